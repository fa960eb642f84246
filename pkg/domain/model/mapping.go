package model

import "github.com/secmon-lab/grcbook/pkg/domain/types"

var directMappings = map[types.ObjectType][]types.ObjectType{
	types.ObjectTypeProgram:    {types.ObjectTypeControl, types.ObjectTypeObjective, types.ObjectTypeIssue},
	types.ObjectTypeControl:    {types.ObjectTypeProgram, types.ObjectTypeObjective, types.ObjectTypeIssue},
	types.ObjectTypeObjective:  {types.ObjectTypeProgram, types.ObjectTypeControl, types.ObjectTypeIssue},
	types.ObjectTypeAudit:      {types.ObjectTypeIssue},
	types.ObjectTypeAssessment: {types.ObjectTypeIssue},
	types.ObjectTypeIssue: {
		types.ObjectTypeProgram,
		types.ObjectTypeControl,
		types.ObjectTypeObjective,
		types.ObjectTypeAudit,
		types.ObjectTypeAssessment,
	},
}

// CanMap reports whether a map:<to> column is allowed on a from block
func CanMap(from, to types.ObjectType) bool {
	for _, t := range directMappings[from] {
		if t == to {
			return true
		}
	}
	return false
}

// MappableTypes returns the types a block of from may map to, in column order
func MappableTypes(from types.ObjectType) []types.ObjectType {
	return append([]types.ObjectType(nil), directMappings[from]...)
}

// IsSnapshotable reports whether audits take snapshots of t
func IsSnapshotable(t types.ObjectType) bool {
	return t == types.ObjectTypeControl || t == types.ObjectTypeObjective
}

// CanMapSnapshot reports whether a map:<to> versions column is recognized on
// a from block. Issues recognize the column only to warn about it.
func CanMapSnapshot(from, to types.ObjectType) bool {
	if !IsSnapshotable(to) {
		return false
	}
	switch from {
	case types.ObjectTypeAudit, types.ObjectTypeAssessment, types.ObjectTypeIssue:
		return true
	default:
		return false
	}
}

// FieldMapping is a single-valued mandatory parent reference shown as a
// plain column, e.g. the Audit of an Assessment
type FieldMapping struct {
	Column string
	Target types.ObjectType
}

// ParentMapping returns the field mapping of t, if any
func ParentMapping(t types.ObjectType) (FieldMapping, bool) {
	switch t {
	case types.ObjectTypeAssessment:
		return FieldMapping{Column: "Audit", Target: types.ObjectTypeAudit}, true
	case types.ObjectTypeAudit:
		return FieldMapping{Column: "Program", Target: types.ObjectTypeProgram}, true
	case types.ObjectTypeCycleTask:
		return FieldMapping{Column: "Cycle", Target: types.ObjectTypeCycle}, true
	default:
		return FieldMapping{}, false
	}
}
