package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	domainConfig "github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// SchemaFile is the TOML representation of the object schema. Everything in
// it is added on top of the built-in defaults.
type SchemaFile struct {
	VerifierRole     string          `toml:"verifier_role"`
	VerifierRequired []string        `toml:"verifier_required"`
	Digest           DigestFile      `toml:"digest"`
	Roles            []RoleFile      `toml:"role"`
	Attributes       []AttributeFile `toml:"attribute"`
}

// DigestFile holds the notification scan settings
type DigestFile struct {
	DueInDays      int    `toml:"due_in_days"`
	CycleStartLead int    `toml:"cycle_start_lead"`
	TimeZone       string `toml:"time_zone"`
}

// RoleFile declares an access control role. Read, update and map default to
// true; delete defaults to the mandatory flag.
type RoleFile struct {
	ObjectType string `toml:"object_type"`
	Name       string `toml:"name"`
	Mandatory  bool   `toml:"mandatory"`
	Read       *bool  `toml:"read"`
	Update     *bool  `toml:"update"`
	Delete     *bool  `toml:"delete"`
	Map        *bool  `toml:"map"`
}

// AttributeFile declares a custom attribute. Setting Record makes it a local
// attribute of the record with that code.
type AttributeFile struct {
	ObjectType string   `toml:"object_type"`
	Title      string   `toml:"title"`
	Type       string   `toml:"type"`
	Mandatory  bool     `toml:"mandatory"`
	Options    []string `toml:"options"`
	Record     string   `toml:"record"`
}

func parseObjectType(s string) (types.ObjectType, error) {
	t, err := types.ParseObjectType(s)
	if err != nil || !t.IsRecord() {
		return "", goerr.Wrap(ErrInvalidObjectType, "object type must be a record type", goerr.V(ObjectTypeKey, s))
	}
	return t, nil
}

// Validate checks if the RoleFile is valid
func (r *RoleFile) Validate() error {
	if _, err := parseObjectType(r.ObjectType); err != nil {
		return err
	}
	if strings.TrimSpace(r.Name) == "" {
		return goerr.Wrap(ErrMissingName, "role name is required", goerr.V(ObjectTypeKey, r.ObjectType))
	}
	return nil
}

// Validate checks if the AttributeFile is valid
func (a *AttributeFile) Validate() error {
	if _, err := parseObjectType(a.ObjectType); err != nil {
		return err
	}
	if strings.TrimSpace(a.Title) == "" {
		return goerr.Wrap(ErrMissingName, "attribute title is required", goerr.V(ObjectTypeKey, a.ObjectType))
	}
	attrType, ok := types.ParseAttributeType(a.Type)
	if !ok {
		return goerr.Wrap(ErrInvalidAttributeType, "unknown attribute type",
			goerr.V(AttributeTitleKey, a.Title), goerr.V(AttributeTypeKey, a.Type))
	}
	if attrType.HasOptions() && len(a.Options) == 0 {
		return goerr.Wrap(ErrMissingOptions, "attribute has no options", goerr.V(AttributeTitleKey, a.Title))
	}
	return nil
}

// Validate checks if the SchemaFile is valid
func (s *SchemaFile) Validate() error {
	roles := make(map[string]bool)
	for i, r := range s.Roles {
		if err := r.Validate(); err != nil {
			return goerr.Wrap(err, "invalid role", goerr.V(RoleIndexKey, i))
		}
		t, _ := parseObjectType(r.ObjectType)
		id := model.RoleID(t, r.Name)
		if roles[id] {
			return goerr.Wrap(ErrDuplicateRole, "role declared twice",
				goerr.V(ObjectTypeKey, t), goerr.V(RoleNameKey, r.Name))
		}
		roles[id] = true
	}

	attrs := make(map[string]bool)
	for i, a := range s.Attributes {
		if err := a.Validate(); err != nil {
			return goerr.Wrap(err, "invalid attribute", goerr.V(AttributeIndexKey, i))
		}
		t, _ := parseObjectType(a.ObjectType)
		key := string(t) + "\x00" + strings.ToLower(strings.TrimSpace(a.Record)) + "\x00" + strings.ToLower(strings.TrimSpace(a.Title))
		if attrs[key] {
			return goerr.Wrap(ErrDuplicateAttribute, "attribute declared twice",
				goerr.V(ObjectTypeKey, t), goerr.V(AttributeTitleKey, a.Title))
		}
		attrs[key] = true
	}

	for _, raw := range s.VerifierRequired {
		if _, ok := types.ParseStatus(types.ObjectTypeAssessment, raw); !ok {
			return goerr.Wrap(ErrInvalidStatus, "verifier_required must list assessment statuses", goerr.V(StatusKey, raw))
		}
	}

	if s.Digest.DueInDays < 0 || s.Digest.CycleStartLead < 0 {
		return goerr.Wrap(ErrInvalidConfig, "digest day counts must not be negative")
	}
	if s.Digest.TimeZone != "" {
		if _, err := time.LoadLocation(s.Digest.TimeZone); err != nil {
			return goerr.Wrap(ErrInvalidTimeZone, "cannot load time zone", goerr.V("time_zone", s.Digest.TimeZone))
		}
	}

	return nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// ToDomainSchema converts a validated SchemaFile to the domain schema. The
// result only holds what the file declares; merge it over the defaults.
func (s *SchemaFile) ToDomainSchema() (*domainConfig.Schema, error) {
	out := &domainConfig.Schema{
		VerifierRole: s.VerifierRole,
		Digest: domainConfig.DigestSettings{
			DueInDays:      s.Digest.DueInDays,
			CycleStartLead: s.Digest.CycleStartLead,
		},
	}

	if s.Digest.TimeZone != "" {
		loc, err := time.LoadLocation(s.Digest.TimeZone)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidTimeZone, "cannot load time zone", goerr.V("time_zone", s.Digest.TimeZone))
		}
		out.Digest.Location = loc
	}

	for _, raw := range s.VerifierRequired {
		status, ok := types.ParseStatus(types.ObjectTypeAssessment, raw)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidStatus, "unknown status", goerr.V(StatusKey, raw))
		}
		out.VerifierRequired = append(out.VerifierRequired, status)
	}

	for _, r := range s.Roles {
		t, err := parseObjectType(r.ObjectType)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(r.Name)
		out.Roles = append(out.Roles, model.AccessControlRole{
			ID:         model.RoleID(t, name),
			Name:       name,
			ObjectType: t,
			Read:       boolOr(r.Read, true),
			Update:     boolOr(r.Update, true),
			Delete:     boolOr(r.Delete, r.Mandatory),
			Map:        boolOr(r.Map, true),
			Mandatory:  r.Mandatory,
		})
	}

	for _, a := range s.Attributes {
		t, err := parseObjectType(a.ObjectType)
		if err != nil {
			return nil, err
		}
		attrType, ok := types.ParseAttributeType(a.Type)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidAttributeType, "unknown attribute type", goerr.V(AttributeTypeKey, a.Type))
		}
		def := model.CustomAttributeDefinition{
			Title:              strings.TrimSpace(a.Title),
			ObjectType:         t,
			AttributeType:      attrType,
			Mandatory:          a.Mandatory,
			MultiChoiceOptions: a.Options,
		}

		if record := strings.TrimSpace(a.Record); record != "" {
			out.LocalAttributes = append(out.LocalAttributes, domainConfig.LocalAttribute{
				RecordSlug: record,
				Definition: def,
			})
			continue
		}
		def.ID = model.CADID(t, "", def.Title)
		out.Attributes = append(out.Attributes, def)
	}

	return out, nil
}

// LoadSchemaFile reads and validates a schema TOML file
func LoadSchemaFile(path string) (*SchemaFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(ErrConfigNotFound, "schema file does not exist", goerr.V(ConfigPathKey, path))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read schema file", goerr.V(ConfigPathKey, path))
	}

	var file SchemaFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML schema",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "schema validation failed", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// LoadSchema reads path and merges it over the built-in schema. An empty
// path returns the defaults.
func LoadSchema(path string) (*domainConfig.Schema, error) {
	schema := domainConfig.DefaultSchema()
	if path == "" {
		return schema, nil
	}

	file, err := LoadSchemaFile(path)
	if err != nil {
		return nil, err
	}
	extra, err := file.ToDomainSchema()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to convert schema", goerr.V(ConfigPathKey, path))
	}
	schema.Merge(extra)
	return schema, nil
}
