package config

import (
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Schema is the object configuration shared by import, export and the digest:
// roles per object type, custom attribute definitions and status policy
type Schema struct {
	Roles            []model.AccessControlRole
	Attributes       []model.CustomAttributeDefinition // global definitions
	LocalAttributes  []LocalAttribute
	VerifierRole     string
	VerifierRequired []types.Status
	Digest           DigestSettings
}

// LocalAttribute declares a definition bound to the record with RecordSlug.
// The record ID is filled in when the schema is synced to the repository.
type LocalAttribute struct {
	RecordSlug string
	Definition model.CustomAttributeDefinition
}

// DigestSettings controls the notification scan
type DigestSettings struct {
	DueInDays      int
	CycleStartLead int
	Location       *time.Location
}

func role(t types.ObjectType, name string, mandatory bool) model.AccessControlRole {
	return model.AccessControlRole{
		ID:         model.RoleID(t, name),
		Name:       name,
		ObjectType: t,
		Read:       true,
		Update:     true,
		Delete:     mandatory,
		Map:        true,
		Mandatory:  mandatory,
	}
}

// DefaultSchema returns the built-in roles and policy
func DefaultSchema() *Schema {
	return &Schema{
		Roles: []model.AccessControlRole{
			role(types.ObjectTypeProgram, "Program Managers", true),
			role(types.ObjectTypeProgram, "Program Editors", false),
			role(types.ObjectTypeProgram, "Program Readers", false),
			role(types.ObjectTypeControl, "Admin", true),
			role(types.ObjectTypeControl, "Control Operators", false),
			role(types.ObjectTypeControl, "Control Owners", false),
			role(types.ObjectTypeObjective, "Admin", true),
			role(types.ObjectTypeAudit, "Audit Captains", true),
			role(types.ObjectTypeAudit, "Auditors", false),
			role(types.ObjectTypeAssessment, "Creators", true),
			role(types.ObjectTypeAssessment, "Assignees", true),
			role(types.ObjectTypeAssessment, "Verifiers", false),
			role(types.ObjectTypeIssue, "Admin", true),
			role(types.ObjectTypeIssue, "Primary Contacts", false),
			role(types.ObjectTypeIssue, "Secondary Contacts", false),
			role(types.ObjectTypeCycle, "Admin", false),
			role(types.ObjectTypeCycleTask, "Task Assignees", true),
		},
		VerifierRole: "Verifiers",
		VerifierRequired: []types.Status{
			types.StatusInReview,
			types.StatusReworkNeeded,
			types.StatusCompleted,
			types.StatusVerified,
		},
		Digest: DigestSettings{
			DueInDays:      1,
			CycleStartLead: 3,
			Location:       time.UTC,
		},
	}
}

// Merge adds extra roles and attributes on top of s. A role or global
// attribute already present (same ID) is replaced. Non-zero policy fields of
// extra win.
func (s *Schema) Merge(extra *Schema) {
	if extra == nil {
		return
	}

	for _, r := range extra.Roles {
		replaced := false
		for i := range s.Roles {
			if s.Roles[i].ID == r.ID {
				s.Roles[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			s.Roles = append(s.Roles, r)
		}
	}

	for _, a := range extra.Attributes {
		replaced := false
		for i := range s.Attributes {
			if s.Attributes[i].ID == a.ID {
				s.Attributes[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			s.Attributes = append(s.Attributes, a)
		}
	}
	s.LocalAttributes = append(s.LocalAttributes, extra.LocalAttributes...)

	if extra.VerifierRole != "" {
		s.VerifierRole = extra.VerifierRole
	}
	if len(extra.VerifierRequired) > 0 {
		s.VerifierRequired = extra.VerifierRequired
	}
	if extra.Digest.DueInDays > 0 {
		s.Digest.DueInDays = extra.Digest.DueInDays
	}
	if extra.Digest.CycleStartLead > 0 {
		s.Digest.CycleStartLead = extra.Digest.CycleStartLead
	}
	if extra.Digest.Location != nil {
		s.Digest.Location = extra.Digest.Location
	}
}

// RolesFor returns the roles of object type t in declaration order
func (s *Schema) RolesFor(t types.ObjectType) []model.AccessControlRole {
	var out []model.AccessControlRole
	for _, r := range s.Roles {
		if r.ObjectType == t {
			out = append(out, r)
		}
	}
	return out
}

// Role finds the role named name on object type t
func (s *Schema) Role(t types.ObjectType, name string) (*model.AccessControlRole, bool) {
	id := model.RoleID(t, name)
	for i := range s.Roles {
		if s.Roles[i].ID == id {
			return &s.Roles[i], true
		}
	}
	return nil, false
}

// RoleByID finds a role by ID
func (s *Schema) RoleByID(id string) (*model.AccessControlRole, bool) {
	for i := range s.Roles {
		if s.Roles[i].ID == id {
			return &s.Roles[i], true
		}
	}
	return nil, false
}

// GlobalAttributes returns the global definitions of object type t
func (s *Schema) GlobalAttributes(t types.ObjectType) []model.CustomAttributeDefinition {
	var out []model.CustomAttributeDefinition
	for _, a := range s.Attributes {
		if a.ObjectType == t {
			out = append(out, a)
		}
	}
	return out
}

// IsVerifierRequired reports whether entering status needs at least one verifier
func (s *Schema) IsVerifierRequired(status types.Status) bool {
	for _, st := range s.VerifierRequired {
		if st == status {
			return true
		}
	}
	return false
}

// TimeZone returns the digest time zone, UTC when unset
func (d DigestSettings) TimeZone() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}
