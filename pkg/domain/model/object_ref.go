package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// ObjectRef points at any object by type and ID
type ObjectRef struct {
	Type types.ObjectType
	ID   string
}

// String returns "Type:ID"
func (r ObjectRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// IsZero reports whether the reference is unset
func (r ObjectRef) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

var idNamespace = uuid.MustParse("5c2b7e4e-0d5c-4a53-9a4e-2f1e1f0b9a11")

// DeriveID returns a stable ID for an entity identified by the given key parts.
// Entities with natural keys (relationship pairs, ACL entries, attribute values)
// use it so that repeated writes land on the same document.
func DeriveID(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "\x00"
		}
		key += p
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// NewID returns a random ID for entities without a natural key
func NewID() string {
	return uuid.NewString()
}
