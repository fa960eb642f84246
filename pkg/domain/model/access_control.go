package model

import (
	"sort"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// AccessControlRole is a role scoped to an object type with capability flags
type AccessControlRole struct {
	ID         string
	Name       string
	ObjectType types.ObjectType
	Read       bool
	Update     bool
	Delete     bool
	Map        bool
	Mandatory  bool
	Internal   bool // propagated/system roles, not importable and not shown on comments
}

// RoleID returns the ID of the role named name on object type t
func RoleID(t types.ObjectType, name string) string {
	return DeriveID("acr", string(t), strings.ToLower(strings.TrimSpace(name)))
}

// AccessControlList binds a role to one object instance
type AccessControlList struct {
	ID     string
	RoleID string
	Object ObjectRef
}

// ACLID returns the ID of the list entry for role on object
func ACLID(roleID string, object ObjectRef) string {
	return DeriveID("acl", roleID, object.String())
}

// AccessControlPerson binds a person to a list entry. The ID is derived from
// the pair, so a person holds at most one entry per (role, object).
type AccessControlPerson struct {
	ID       string
	ListID   string
	PersonID string
}

// ACPID returns the ID of the person entry
func ACPID(listID, personID string) string {
	return DeriveID("acp", listID, personID)
}

// RoleAssignment is the resolved membership of one role on one object
type RoleAssignment struct {
	List      AccessControlList
	PersonIDs []string
}

// RoleMembers maps role ID to the sorted person IDs holding it
type RoleMembers map[string][]string

// Clone returns a deep copy
func (m RoleMembers) Clone() RoleMembers {
	out := make(RoleMembers, len(m))
	for k, v := range m {
		ids := make([]string, len(v))
		copy(ids, v)
		out[k] = ids
	}
	return out
}

// Has reports whether personID holds roleID
func (m RoleMembers) Has(roleID, personID string) bool {
	for _, id := range m[roleID] {
		if id == personID {
			return true
		}
	}
	return false
}

// SamePeople reports whether two person ID sets are equal regardless of order
func SamePeople(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
