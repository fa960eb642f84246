package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Commit applies the change set under the write lock. Validation runs before
// any mutation so a rejected change set leaves the store untouched.
func (m *Memory) Commit(ctx context.Context, cs *model.ChangeSet) error {
	if cs.IsEmpty() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(cs); err != nil {
		return err
	}

	now := time.Now().UTC()

	// deletes go first so a later row may reuse the slug
	for _, ref := range cs.DeletedRecords {
		m.deleteRecord(ref)
	}

	for _, p := range cs.Persons {
		stored := copyPerson(p)
		stored.Email = model.NormalizeEmail(stored.Email)
		if existing, ok := m.persons[p.ID]; ok {
			stored.CreatedAt = existing.CreatedAt
			delete(m.emails, existing.Email)
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		m.persons[stored.ID] = stored
		m.emails[stored.Email] = stored.ID
	}

	for _, rec := range cs.Records {
		stored := rec.Clone()
		if m.records[rec.Type] == nil {
			m.records[rec.Type] = make(map[string]*model.Record)
			m.slugs[rec.Type] = make(map[string]string)
		}
		if existing, ok := m.records[rec.Type][rec.ID]; ok {
			stored.CreatedAt = existing.CreatedAt
			delete(m.slugs[rec.Type], existing.Slug)
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		m.records[rec.Type][rec.ID] = stored
		m.slugs[rec.Type][stored.Slug] = stored.ID
	}

	for _, s := range cs.Snapshots {
		if _, ok := m.snapshots[s.ID]; ok {
			continue
		}
		copied := *s
		if copied.CreatedAt.IsZero() {
			copied.CreatedAt = now
		}
		m.snapshots[s.ID] = &copied
	}

	for _, rel := range cs.Relationships {
		if _, ok := m.relations[rel.ID]; ok {
			continue
		}
		copied := *rel
		if copied.CreatedAt.IsZero() {
			copied.CreatedAt = now
		}
		m.relations[rel.ID] = &copied
	}

	for _, id := range cs.Unmapped {
		delete(m.relations, id)
	}

	for _, a := range cs.RoleAssignments {
		if len(a.PersonIDs) == 0 {
			delete(m.acls, a.List.ID)
			continue
		}
		ids := append([]string(nil), a.PersonIDs...)
		sort.Strings(ids)
		m.acls[a.List.ID] = &aclEntry{list: a.List, personIDs: ids}
	}

	for _, v := range cs.AttributeValues {
		copied := *v
		copied.UpdatedAt = now
		m.cavs[v.ID] = &copied
	}

	for _, c := range cs.Comments {
		copied := *c
		if copied.CreatedAt.IsZero() {
			copied.CreatedAt = now
		}
		m.comments[c.ID] = &copied
	}

	for _, e := range cs.Evidence {
		copied := *e
		if copied.CreatedAt.IsZero() {
			copied.CreatedAt = now
		}
		m.evidence[e.ID] = &copied
	}

	return nil
}

func (m *Memory) validate(cs *model.ChangeSet) error {
	deleted := make(map[model.ObjectRef]struct{}, len(cs.DeletedRecords))
	for _, ref := range cs.DeletedRecords {
		deleted[ref] = struct{}{}
	}
	for _, rec := range cs.Records {
		if rec.ID == "" || rec.Slug == "" {
			return goerr.New("record must have ID and slug",
				goerr.V("type", rec.Type), goerr.V("slug", rec.Slug))
		}
		id, ok := m.slugs[rec.Type][rec.Slug]
		if _, freed := deleted[model.ObjectRef{Type: rec.Type, ID: id}]; ok && id != rec.ID && !freed {
			return goerr.New("slug already used by another record",
				goerr.V("type", rec.Type), goerr.V("slug", rec.Slug))
		}
	}
	for _, p := range cs.Persons {
		if id, ok := m.emails[model.NormalizeEmail(p.Email)]; ok && id != p.ID {
			return goerr.New("email already used by another person", goerr.V("email", p.Email))
		}
	}
	return nil
}

// deleteRecord removes the record and everything hanging off it
func (m *Memory) deleteRecord(ref model.ObjectRef) {
	rec, ok := m.records[ref.Type][ref.ID]
	if !ok {
		return
	}
	delete(m.records[ref.Type], ref.ID)
	delete(m.slugs[ref.Type], rec.Slug)

	for id, rel := range m.relations {
		if !rel.Involves(ref) {
			continue
		}
		other := rel.Other(ref)
		switch other.Type {
		case types.ObjectTypeComment:
			delete(m.comments, other.ID)
		case types.ObjectTypeEvidence:
			delete(m.evidence, other.ID)
		}
		delete(m.relations, id)
	}
	for id, e := range m.acls {
		if e.list.Object == ref {
			delete(m.acls, id)
		}
	}
	for id, v := range m.cavs {
		if v.Object == ref {
			delete(m.cavs, id)
		}
	}
	for id, d := range m.cads {
		if d.DefinitionID == ref.ID {
			delete(m.cads, id)
		}
	}
	for id, s := range m.snapshots {
		if s.Parent != ref {
			continue
		}
		for relID, rel := range m.relations {
			if rel.Involves(s.Ref()) {
				delete(m.relations, relID)
			}
		}
		delete(m.snapshots, id)
	}
}
