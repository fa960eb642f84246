package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ObjectType identifies a kind of object handled by import, export and the repositories
type ObjectType string

const (
	ObjectTypeProgram    ObjectType = "Program"
	ObjectTypeControl    ObjectType = "Control"
	ObjectTypeObjective  ObjectType = "Objective"
	ObjectTypeAudit      ObjectType = "Audit"
	ObjectTypeAssessment ObjectType = "Assessment"
	ObjectTypeIssue      ObjectType = "Issue"
	ObjectTypeCycle      ObjectType = "Cycle"
	ObjectTypeCycleTask  ObjectType = "CycleTask"

	// Non-record object types. They take part in relationships but are not imported as blocks.
	ObjectTypePerson   ObjectType = "Person"
	ObjectTypeSnapshot ObjectType = "Snapshot"
	ObjectTypeComment  ObjectType = "Comment"
	ObjectTypeEvidence ObjectType = "Evidence"
)

// ErrUnknownObjectType is returned when an object type name cannot be resolved
var ErrUnknownObjectType = goerr.New("unknown object type")

// AllRecordTypes returns the object types that can be imported and exported
func AllRecordTypes() []ObjectType {
	return []ObjectType{
		ObjectTypeProgram,
		ObjectTypeControl,
		ObjectTypeObjective,
		ObjectTypeAudit,
		ObjectTypeAssessment,
		ObjectTypeIssue,
		ObjectTypeCycle,
		ObjectTypeCycleTask,
	}
}

// IsRecord reports whether t is an importable record type
func (t ObjectType) IsRecord() bool {
	switch t {
	case ObjectTypeProgram,
		ObjectTypeControl,
		ObjectTypeObjective,
		ObjectTypeAudit,
		ObjectTypeAssessment,
		ObjectTypeIssue,
		ObjectTypeCycle,
		ObjectTypeCycleTask:
		return true
	default:
		return false
	}
}

// IsValid checks if the object type is known
func (t ObjectType) IsValid() bool {
	if t.IsRecord() {
		return true
	}
	switch t {
	case ObjectTypePerson,
		ObjectTypeSnapshot,
		ObjectTypeComment,
		ObjectTypeEvidence:
		return true
	default:
		return false
	}
}

// String returns the string representation of the object type
func (t ObjectType) String() string {
	return string(t)
}

// DisplayName returns the human readable name used in spreadsheet headers and messages
func (t ObjectType) DisplayName() string {
	if t == ObjectTypeCycleTask {
		return "Cycle Task"
	}
	return string(t)
}

// SlugPrefix returns the prefix of generated codes, e.g. "ASSESSMENT" for "ASSESSMENT-12"
func (t ObjectType) SlugPrefix() string {
	if t == ObjectTypeCycleTask {
		return "CYCLETASK"
	}
	return strings.ToUpper(string(t))
}

// ParseObjectType resolves a type name case-insensitively. Spaces are ignored so that
// "cycle task" and "CycleTask" resolve to the same type.
func ParseObjectType(s string) (ObjectType, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, t := range append(AllRecordTypes(),
		ObjectTypePerson, ObjectTypeSnapshot, ObjectTypeComment, ObjectTypeEvidence) {
		if strings.ToLower(string(t)) == key {
			return t, nil
		}
	}
	return "", goerr.Wrap(ErrUnknownObjectType, "failed to parse object type", goerr.V("object_type", s))
}
