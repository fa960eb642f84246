package converter

import (
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Normalized keys of the built-in columns
const (
	keyCode               = "code"
	keyTitle              = "title"
	keyDescription        = "description"
	keyNotes              = "notes"
	keyState              = "state"
	keyStartDate          = "start date"
	keyDueDate            = "due date"
	keyEffectiveDate      = "effective date"
	keyFinishedDate       = "finished date"
	keyVerifiedDate       = "verified date"
	keyLastDeprecatedDate = "last deprecated date"
	keyCreatedDate        = "created date"
	keyLastUpdatedDate    = "last updated date"
	keyLastUpdatedBy      = "last updated by"
	keyArchived           = "archived"
	keyComments           = "comments"
	keyEvidenceURL        = "evidence url"
	keyEvidenceFile       = "evidence file"
	keyDelete             = "delete"
)

var headerAliases = map[string]string{
	"slug":               keyCode,
	"status":             keyState,
	"planned start date": keyStartDate,
	"end date":           keyDueDate,
	"planned end date":   keyDueDate,
	"comment":            keyComments,
}

// NormalizeHeader trims a header cell, strips the mandatory marker and
// lower-cases it with single spaces. "map: Control" becomes "map:control".
func NormalizeHeader(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "*")
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, prefix := range []string{"map:", "unmap:"} {
		if strings.HasPrefix(s, prefix) {
			s = prefix + strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	if alias, ok := headerAliases[s]; ok {
		return alias
	}
	return s
}

// mappingHeader is a parsed map:/unmap: column name
type mappingHeader struct {
	unmap    bool
	versions bool
	target   string // as written, without " versions"
}

func parseMappingHeader(key string) (mappingHeader, bool) {
	var h mappingHeader
	switch {
	case strings.HasPrefix(key, "map:"):
		h.target = strings.TrimPrefix(key, "map:")
	case strings.HasPrefix(key, "unmap:"):
		h.unmap = true
		h.target = strings.TrimPrefix(key, "unmap:")
	default:
		return h, false
	}
	if strings.HasSuffix(h.target, " versions") {
		h.versions = true
		h.target = strings.TrimSuffix(h.target, " versions")
	}
	return h, true
}

func (h mappingHeader) objectType() (types.ObjectType, bool) {
	t, err := types.ParseObjectType(h.target)
	if err != nil || !t.IsRecord() {
		return "", false
	}
	return t, true
}

// mappingKey returns the normalized key of a map:/unmap: column
func mappingKey(t types.ObjectType, unmap, versions bool) string {
	key := "map:"
	if unmap {
		key = "unmap:"
	}
	key += strings.ToLower(t.DisplayName())
	if versions {
		key += " versions"
	}
	return key
}
