package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// CustomAttributeDefinition declares an extra typed field. Global definitions
// (GCA) apply to every object of ObjectType; local ones (LCA) carry the ID of
// the single record they belong to in DefinitionID.
type CustomAttributeDefinition struct {
	ID                 string
	Title              string
	ObjectType         types.ObjectType
	DefinitionID       string
	AttributeType      types.AttributeType
	Mandatory          bool
	MultiChoiceOptions []string
}

// CADID returns the ID of a definition
func CADID(t types.ObjectType, definitionID, title string) string {
	return DeriveID("cad", string(t), definitionID, strings.ToLower(strings.TrimSpace(title)))
}

// IsLocal reports whether the definition belongs to a single record
func (d *CustomAttributeDefinition) IsLocal() bool {
	return d.DefinitionID != ""
}

// CustomAttributeValue binds one definition to one object. Value holds the
// canonical string form produced by AttributeValidator.
type CustomAttributeValue struct {
	ID           string
	DefinitionID string
	Object       ObjectRef
	Value        string
	UpdatedAt    time.Time
}

// CAVID returns the ID of the value of definition on object
func CAVID(definitionID string, object ObjectRef) string {
	return DeriveID("cav", definitionID, object.String())
}
