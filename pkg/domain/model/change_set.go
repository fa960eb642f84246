package model

import "github.com/secmon-lab/grcbook/pkg/domain/types"

// ChangeSet holds the staged writes of one unit of work. Repositories apply a
// change set atomically through Commit.
type ChangeSet struct {
	Records         []*Record
	DeletedRecords  []ObjectRef // cascades to relationships, ACL and attribute values
	Persons         []*Person
	Relationships   []*Relationship
	Unmapped        []string // relationship IDs
	Snapshots       []*Snapshot
	RoleAssignments []*RoleAssignment // replaces the people of each list
	AttributeValues []*CustomAttributeValue
	Comments        []*Comment
	Evidence        []*Evidence
}

// IsEmpty reports whether nothing is staged
func (c *ChangeSet) IsEmpty() bool {
	return c.Size() == 0
}

// Size returns the number of staged writes
func (c *ChangeSet) Size() int {
	if c == nil {
		return 0
	}
	return len(c.Records) +
		len(c.DeletedRecords) +
		len(c.Persons) +
		len(c.Relationships) +
		len(c.Unmapped) +
		len(c.Snapshots) +
		len(c.RoleAssignments) +
		len(c.AttributeValues) +
		len(c.Comments) +
		len(c.Evidence)
}

// Merge folds other's writes into c as if other ran after c. A later write
// replaces an earlier one with the same ID, a later unmap cancels a staged
// relationship and the reverse, and a later delete drops everything staged
// for the deleted record.
func (c *ChangeSet) Merge(other *ChangeSet) {
	if other == nil {
		return
	}

	for _, ref := range other.DeletedRecords {
		c.dropStaged(ref)
	}
	c.DeletedRecords = append(c.DeletedRecords, other.DeletedRecords...)

	c.Records = mergeByID(c.Records, other.Records, func(r *Record) string { return r.ID })
	c.Persons = mergeByID(c.Persons, other.Persons, func(p *Person) string { return p.ID })

	mapped := make(map[string]struct{}, len(other.Relationships))
	for _, rel := range other.Relationships {
		mapped[rel.ID] = struct{}{}
	}
	c.Unmapped = filter(c.Unmapped, func(id string) bool {
		_, ok := mapped[id]
		return !ok
	})
	unmapped := make(map[string]struct{}, len(other.Unmapped))
	for _, id := range other.Unmapped {
		unmapped[id] = struct{}{}
	}
	c.Relationships = filter(c.Relationships, func(rel *Relationship) bool {
		_, ok := unmapped[rel.ID]
		return !ok
	})
	c.Relationships = mergeByID(c.Relationships, other.Relationships, func(r *Relationship) string { return r.ID })
	c.Unmapped = mergeByID(c.Unmapped, other.Unmapped, func(id string) string { return id })

	c.Snapshots = mergeByID(c.Snapshots, other.Snapshots, func(s *Snapshot) string { return s.ID })
	c.RoleAssignments = mergeByID(c.RoleAssignments, other.RoleAssignments, func(a *RoleAssignment) string { return a.List.ID })
	c.AttributeValues = mergeByID(c.AttributeValues, other.AttributeValues, func(v *CustomAttributeValue) string { return v.ID })
	c.Comments = mergeByID(c.Comments, other.Comments, func(cm *Comment) string { return cm.ID })
	c.Evidence = mergeByID(c.Evidence, other.Evidence, func(e *Evidence) string { return e.ID })
}

// dropStaged removes the staged writes that only make sense while ref exists
func (c *ChangeSet) dropStaged(ref ObjectRef) {
	c.Records = filter(c.Records, func(r *Record) bool { return r.Ref() != ref })

	orphans := make(map[ObjectRef]struct{})
	parents := map[ObjectRef]struct{}{ref: {}}
	c.Snapshots = filter(c.Snapshots, func(s *Snapshot) bool {
		if s.Parent != ref {
			return true
		}
		parents[s.Ref()] = struct{}{}
		return false
	})
	c.Relationships = filter(c.Relationships, func(rel *Relationship) bool {
		for parent := range parents {
			if rel.Involves(parent) {
				orphans[rel.Other(parent)] = struct{}{}
				return false
			}
		}
		return true
	})
	c.Comments = filter(c.Comments, func(cm *Comment) bool {
		_, ok := orphans[ObjectRef{Type: types.ObjectTypeComment, ID: cm.ID}]
		return !ok
	})
	c.Evidence = filter(c.Evidence, func(e *Evidence) bool {
		_, ok := orphans[e.Ref()]
		return !ok
	})
	c.RoleAssignments = filter(c.RoleAssignments, func(a *RoleAssignment) bool { return a.List.Object != ref })
	c.AttributeValues = filter(c.AttributeValues, func(v *CustomAttributeValue) bool { return v.Object != ref })
}

// mergeByID appends later to earlier, replacing earlier entries in place when
// the IDs match
func mergeByID[T any](earlier, later []T, id func(T) string) []T {
	index := make(map[string]int, len(earlier))
	for i, v := range earlier {
		index[id(v)] = i
	}
	for _, v := range later {
		if i, ok := index[id(v)]; ok {
			earlier[i] = v
			continue
		}
		index[id(v)] = len(earlier)
		earlier = append(earlier, v)
	}
	return earlier
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := items[:0]
	for _, v := range items {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
