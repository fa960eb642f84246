package model

import "github.com/secmon-lab/grcbook/pkg/domain/types"

// HasRoles reports whether objects of type t carry access control lists
func HasRoles(t types.ObjectType) bool {
	return t.IsRecord()
}

// HasCustomAttributes reports whether custom attribute columns apply to t
func HasCustomAttributes(t types.ObjectType) bool {
	switch t {
	case types.ObjectTypeProgram,
		types.ObjectTypeControl,
		types.ObjectTypeObjective,
		types.ObjectTypeAudit,
		types.ObjectTypeAssessment,
		types.ObjectTypeIssue:
		return true
	default:
		return false
	}
}

// HasComments reports whether t accepts the Comments column
func HasComments(t types.ObjectType) bool {
	switch t {
	case types.ObjectTypeControl,
		types.ObjectTypeAssessment,
		types.ObjectTypeIssue,
		types.ObjectTypeCycleTask:
		return true
	default:
		return false
	}
}

// IsTimeboxed reports whether t has start and due dates
func IsTimeboxed(t types.ObjectType) bool {
	switch t {
	case types.ObjectTypeProgram,
		types.ObjectTypeAudit,
		types.ObjectTypeIssue,
		types.ObjectTypeCycle,
		types.ObjectTypeCycleTask:
		return true
	default:
		return false
	}
}

// HasEvidence reports whether t accepts evidence columns
func HasEvidence(t types.ObjectType) bool {
	return t == types.ObjectTypeAssessment || t == types.ObjectTypeAudit
}

// HasEffectiveDate reports whether t carries an effective date
func HasEffectiveDate(t types.ObjectType) bool {
	switch t {
	case types.ObjectTypeControl, types.ObjectTypeObjective, types.ObjectTypeProgram:
		return true
	default:
		return false
	}
}
