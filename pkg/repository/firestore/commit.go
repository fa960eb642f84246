package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type writeOp func(tx *firestore.Transaction) error

// Commit writes the change set in one transaction. Change sets larger than
// maxTransactionWrites are split into consecutive transactions.
func (f *Firestore) Commit(ctx context.Context, cs *model.ChangeSet) error {
	if cs.IsEmpty() {
		return nil
	}

	if err := f.checkSlugs(ctx, cs.Records, cs.DeletedRecords); err != nil {
		return err
	}

	cascade, err := f.cascadeRefs(ctx, cs.DeletedRecords)
	if err != nil {
		return err
	}

	ops := f.buildOps(cs, cascade, time.Now().UTC())
	for i := 0; i < len(ops); i += maxTransactionWrites {
		end := i + maxTransactionWrites
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[i:end]

		err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, op := range chunk {
				if err := op(tx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return goerr.Wrap(err, "failed to commit change set",
				goerr.V("writes", len(ops)), goerr.V("offset", i))
		}
	}
	return nil
}

func (f *Firestore) checkSlugs(ctx context.Context, records []*model.Record, deleted []model.ObjectRef) error {
	freed := make(map[model.ObjectRef]struct{}, len(deleted))
	for _, ref := range deleted {
		freed[ref] = struct{}{}
	}
	for _, rec := range records {
		if rec.ID == "" || rec.Slug == "" {
			return goerr.New("record must have ID and slug",
				goerr.V("type", rec.Type), goerr.V("slug", rec.Slug))
		}
		existing, err := f.record.GetBySlug(ctx, rec.Type, rec.Slug)
		if err != nil {
			return err
		}
		if existing == nil || existing.ID == rec.ID {
			continue
		}
		if _, ok := freed[existing.Ref()]; !ok {
			return goerr.New("slug already used by another record",
				goerr.V("type", rec.Type), goerr.V("slug", rec.Slug))
		}
	}
	return nil
}

// cascadeRefs collects every document that goes away with the deleted records
func (f *Firestore) cascadeRefs(ctx context.Context, deleted []model.ObjectRef) ([]*firestore.DocumentRef, error) {
	var refs []*firestore.DocumentRef
	seen := make(map[string]bool)
	add := func(ref *firestore.DocumentRef) {
		if !seen[ref.Path] {
			seen[ref.Path] = true
			refs = append(refs, ref)
		}
	}

	addRelationships := func(obj model.ObjectRef, withAttachments bool) error {
		rels, err := f.relationship.ListByObject(ctx, obj)
		if err != nil {
			return err
		}
		for _, rel := range rels {
			add(f.collection(relationshipsCollection).Doc(rel.ID))
			if !withAttachments {
				continue
			}
			other := rel.Other(obj)
			switch other.Type {
			case types.ObjectTypeComment:
				add(f.collection(commentsCollection).Doc(other.ID))
			case types.ObjectTypeEvidence:
				add(f.collection(evidenceCollection).Doc(other.ID))
			}
		}
		return nil
	}

	for _, obj := range deleted {
		add(f.collection(recordsCollection).Doc(obj.ID))

		if err := addRelationships(obj, true); err != nil {
			return nil, err
		}

		queries := []firestore.Query{
			f.collection(aclCollection).Where("object_key", "==", obj.String()),
			f.collection(cavCollection).Where("object_key", "==", obj.String()),
			f.collection(cadCollection).Where("definition_id", "==", obj.ID),
		}
		for _, q := range queries {
			docRefs, err := collectRefs(ctx, q)
			if err != nil {
				return nil, err
			}
			for _, ref := range docRefs {
				add(ref)
			}
		}

		snapshots, err := f.snapshot.ListByParent(ctx, obj)
		if err != nil {
			return nil, err
		}
		for _, s := range snapshots {
			add(f.collection(snapshotsCollection).Doc(s.ID))
			if err := addRelationships(s.Ref(), false); err != nil {
				return nil, err
			}
		}
	}

	return refs, nil
}

func collectRefs(ctx context.Context, q firestore.Query) ([]*firestore.DocumentRef, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents for deletion")
		}
		refs = append(refs, snap.Ref)
	}
	return refs, nil
}

func (f *Firestore) buildOps(cs *model.ChangeSet, cascade []*firestore.DocumentRef, now time.Time) []writeOp {
	var ops []writeOp
	set := func(ref *firestore.DocumentRef, data any) {
		ops = append(ops, func(tx *firestore.Transaction) error {
			if err := tx.Set(ref, data); err != nil {
				return goerr.Wrap(err, "failed to set document", goerr.V("path", ref.Path))
			}
			return nil
		})
	}
	del := func(ref *firestore.DocumentRef) {
		ops = append(ops, func(tx *firestore.Transaction) error {
			if err := tx.Delete(ref); err != nil {
				return goerr.Wrap(err, "failed to delete document", goerr.V("path", ref.Path))
			}
			return nil
		})
	}
	stamp := func(t time.Time) time.Time {
		if t.IsZero() {
			return now
		}
		return t
	}

	// deletes go first so a later row may reuse the slug
	for _, ref := range cascade {
		del(ref)
	}

	for _, p := range cs.Persons {
		doc := toPersonDoc(p)
		doc.CreatedAt = stamp(doc.CreatedAt)
		set(f.collection(personsCollection).Doc(p.ID), doc)
	}

	for _, rec := range cs.Records {
		doc := toRecordDoc(rec)
		doc.CreatedAt = stamp(doc.CreatedAt)
		doc.UpdatedAt = now
		set(f.collection(recordsCollection).Doc(rec.ID), doc)
	}

	for _, s := range cs.Snapshots {
		doc := toSnapshotDoc(s)
		doc.CreatedAt = stamp(doc.CreatedAt)
		set(f.collection(snapshotsCollection).Doc(s.ID), doc)
	}

	for _, rel := range cs.Relationships {
		doc := toRelationshipDoc(rel)
		doc.CreatedAt = stamp(doc.CreatedAt)
		set(f.collection(relationshipsCollection).Doc(rel.ID), doc)
	}

	for _, id := range cs.Unmapped {
		del(f.collection(relationshipsCollection).Doc(id))
	}

	for _, a := range cs.RoleAssignments {
		ref := f.collection(aclCollection).Doc(a.List.ID)
		if len(a.PersonIDs) == 0 {
			del(ref)
			continue
		}
		ids := append([]string(nil), a.PersonIDs...)
		sort.Strings(ids)
		set(ref, &aclDoc{
			ID:        a.List.ID,
			RoleID:    a.List.RoleID,
			Object:    toRefDoc(a.List.Object),
			ObjectKey: a.List.Object.String(),
			PersonIDs: ids,
		})
	}

	for _, v := range cs.AttributeValues {
		doc := toCAVDoc(v)
		doc.UpdatedAt = now
		set(f.collection(cavCollection).Doc(v.ID), doc)
	}

	for _, c := range cs.Comments {
		set(f.collection(commentsCollection).Doc(c.ID), &commentDoc{
			ID:           c.ID,
			Description:  c.Description,
			AssigneeType: c.AssigneeType,
			AuthorID:     c.AuthorID,
			CreatedAt:    stamp(c.CreatedAt),
		})
	}

	for _, e := range cs.Evidence {
		set(f.collection(evidenceCollection).Doc(e.ID), &evidenceDoc{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Link:      e.Link,
			Title:     e.Title,
			SourceID:  e.SourceID,
			CreatedAt: stamp(e.CreatedAt),
		})
	}

	return ops
}
