package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

func runCommitTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("persons are found by normalized email", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		p := model.NewPersonStub("Alice." + model.NewID()[:8] + "@Example.com")
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{Persons: []*model.Person{p}})).Required()

		got, err := repo.Person().GetByEmail(ctx, p.Email)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Value(t, got.ID).Equal(p.ID)
		gt.Bool(t, got.Stub).True()

		none, err := repo.Person().GetByEmail(ctx, "nobody-"+model.NewID()+"@example.com")
		gt.NoError(t, err).Required()
		gt.Value(t, none).Nil()

		byIDs, err := repo.Person().GetByIDs(ctx, []string{p.ID, model.NewID()})
		gt.NoError(t, err).Required()
		gt.Number(t, len(byIDs)).Equal(1)
		gt.Map(t, byIDs).HasKey(p.ID)
	})

	t.Run("relationships are found from both sides and unmapped", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		program := newRecord(types.ObjectTypeProgram, "program")
		control := newRecord(types.ObjectTypeControl, "control")
		rel := model.NewRelationship(program.Ref(), control.Ref())
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			Records:       []*model.Record{program, control},
			Relationships: []*model.Relationship{rel},
		})).Required()

		fromControl, err := repo.Relationship().ListByObject(ctx, control.Ref())
		gt.NoError(t, err).Required()
		gt.Array(t, fromControl).Length(1)
		gt.Value(t, fromControl[0].Other(control.Ref())).Equal(program.Ref())

		found, err := repo.Relationship().Find(ctx, control.Ref(), program.Ref())
		gt.NoError(t, err).Required()
		gt.Value(t, found).NotNil()

		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{Unmapped: []string{rel.ID}})).Required()
		found, err = repo.Relationship().Find(ctx, program.Ref(), control.Ref())
		gt.NoError(t, err).Required()
		gt.Value(t, found).Nil()
	})

	t.Run("role assignments replace membership", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		issue := newRecord(types.ObjectTypeIssue, "issue")
		roleID := model.RoleID(types.ObjectTypeIssue, "Admin")
		list := model.AccessControlList{
			ID:     model.ACLID(roleID, issue.Ref()),
			RoleID: roleID,
			Object: issue.Ref(),
		}

		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			Records:         []*model.Record{issue},
			RoleAssignments: []*model.RoleAssignment{{List: list, PersonIDs: []string{"p2", "p1"}}},
		})).Required()

		members, err := repo.AccessControl().ListByObject(ctx, issue.Ref())
		gt.NoError(t, err).Required()
		gt.Array(t, members[roleID]).Length(2)
		gt.Bool(t, members.Has(roleID, "p1")).True()

		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			RoleAssignments: []*model.RoleAssignment{{List: list, PersonIDs: []string{"p3"}}},
		})).Required()
		members, err = repo.AccessControl().ListByObject(ctx, issue.Ref())
		gt.NoError(t, err).Required()
		gt.Array(t, members[roleID]).Length(1)
		gt.Bool(t, members.Has(roleID, "p3")).True()

		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			RoleAssignments: []*model.RoleAssignment{{List: list}},
		})).Required()
		members, err = repo.AccessControl().ListByObject(ctx, issue.Ref())
		gt.NoError(t, err).Required()
		gt.Number(t, len(members)).Equal(0)
	})

	t.Run("attribute values upsert by ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		control := newRecord(types.ObjectTypeControl, "control")
		def := &model.CustomAttributeDefinition{
			ID:            model.CADID(types.ObjectTypeControl, "", "Owner Team "+control.ID),
			Title:         "Owner Team",
			ObjectType:    types.ObjectTypeControl,
			AttributeType: types.AttributeTypeText,
		}
		gt.NoError(t, repo.CustomAttribute().PutDefinition(ctx, def)).Required()

		value := func(v string) *model.CustomAttributeValue {
			return &model.CustomAttributeValue{
				ID:           model.CAVID(def.ID, control.Ref()),
				DefinitionID: def.ID,
				Object:       control.Ref(),
				Value:        v,
			}
		}
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			Records:         []*model.Record{control},
			AttributeValues: []*model.CustomAttributeValue{value("red")},
		})).Required()
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			AttributeValues: []*model.CustomAttributeValue{value("blue")},
		})).Required()

		values, err := repo.CustomAttribute().ListValues(ctx, control.Ref())
		gt.NoError(t, err).Required()
		gt.Number(t, len(values)).Equal(1)
		gt.Value(t, values[def.ID].Value).Equal("blue")

		defs, err := repo.CustomAttribute().ListDefinitions(ctx, types.ObjectTypeControl)
		gt.NoError(t, err).Required()
		found := false
		for _, d := range defs {
			if d.ID == def.ID {
				found = true
			}
		}
		gt.Bool(t, found).True()
	})

	t.Run("deleting a record cascades", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		issue := newRecord(types.ObjectTypeIssue, "issue")
		program := newRecord(types.ObjectTypeProgram, "program")
		comment := &model.Comment{ID: model.NewID(), Description: "looks good"}
		roleID := model.RoleID(types.ObjectTypeIssue, "Admin")
		list := model.AccessControlList{
			ID:     model.ACLID(roleID, issue.Ref()),
			RoleID: roleID,
			Object: issue.Ref(),
		}
		commentRef := model.ObjectRef{Type: types.ObjectTypeComment, ID: comment.ID}

		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			Records:  []*model.Record{issue, program},
			Comments: []*model.Comment{comment},
			Relationships: []*model.Relationship{
				model.NewRelationship(issue.Ref(), program.Ref()),
				model.NewRelationship(issue.Ref(), commentRef),
			},
			RoleAssignments: []*model.RoleAssignment{{List: list, PersonIDs: []string{"p1"}}},
		})).Required()

		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			DeletedRecords: []model.ObjectRef{issue.Ref()},
		})).Required()

		_, err := repo.Record().Get(ctx, types.ObjectTypeIssue, issue.ID)
		gt.Bool(t, isNotFound(err)).True()

		rels, err := repo.Relationship().ListByObject(ctx, program.Ref())
		gt.NoError(t, err).Required()
		gt.Array(t, rels).Length(0)

		members, err := repo.AccessControl().ListByObject(ctx, issue.Ref())
		gt.NoError(t, err).Required()
		gt.Number(t, len(members)).Equal(0)

		comments, err := repo.Comment().GetByIDs(ctx, []string{comment.ID})
		gt.NoError(t, err).Required()
		gt.Array(t, comments).Length(0)

		// the mapped program survives
		_, err = repo.Record().Get(ctx, types.ObjectTypeProgram, program.ID)
		gt.NoError(t, err).Required()
	})

	t.Run("deleted slug can be reused in the same change set", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		old := newRecord(types.ObjectTypeProgram, "old")
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{Records: []*model.Record{old}})).Required()

		fresh := newRecord(types.ObjectTypeProgram, "fresh")
		fresh.Slug = old.Slug
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			DeletedRecords: []model.ObjectRef{old.Ref()},
			Records:        []*model.Record{fresh},
		})).Required()

		got, err := repo.Record().GetBySlug(ctx, types.ObjectTypeProgram, old.Slug)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil().Required()
		gt.Value(t, got.ID).Equal(fresh.ID)
		gt.Value(t, got.Title).Equal("fresh")
	})

	t.Run("slug of a live record is still rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		old := newRecord(types.ObjectTypeProgram, "old")
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{Records: []*model.Record{old}})).Required()

		clash := newRecord(types.ObjectTypeProgram, "clash")
		clash.Slug = old.Slug
		gt.Error(t, repo.Commit(ctx, &model.ChangeSet{Records: []*model.Record{clash}}))
	})

	t.Run("snapshots are listed by parent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		audit := newRecord(types.ObjectTypeAudit, "audit")
		control := newRecord(types.ObjectTypeControl, "control")
		snap := &model.Snapshot{
			ID:        model.SnapshotID(audit.Ref(), control.Ref()),
			Parent:    audit.Ref(),
			Child:     control.Ref(),
			ChildSlug: control.Slug,
			Revision:  1,
		}
		gt.NoError(t, repo.Commit(ctx, &model.ChangeSet{
			Records:   []*model.Record{audit, control},
			Snapshots: []*model.Snapshot{snap},
		})).Required()

		list, err := repo.Snapshot().ListByParent(ctx, audit.Ref())
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(1)
		gt.Value(t, list[0].ChildSlug).Equal(control.Slug)

		got, err := repo.Snapshot().Get(ctx, snap.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Child).Equal(control.Ref())
	})

	t.Run("empty change set is a no-op", func(t *testing.T) {
		repo := newRepo(t)
		gt.NoError(t, repo.Commit(context.Background(), &model.ChangeSet{})).Required()
	})
}

func TestCommit_Memory(t *testing.T) {
	runCommitTest(t, newMemoryRepository)
}

func TestCommit_Firestore(t *testing.T) {
	runCommitTest(t, newFirestoreRepository)
}
