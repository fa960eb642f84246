package firestore

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type relationshipRepository struct {
	f *Firestore
}

func (r *relationshipRepository) ListByObject(ctx context.Context, ref model.ObjectRef) ([]*model.Relationship, error) {
	iter := r.f.collection(relationshipsCollection).
		Where("keys", "array-contains", ref.String()).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.Relationship
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate relationships", goerr.V("ref", ref.String()))
		}

		var doc relationshipDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode relationship", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, doc.model())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt) ||
			(result[i].CreatedAt.Equal(result[j].CreatedAt) && result[i].ID < result[j].ID)
	})
	return result, nil
}

func (r *relationshipRepository) Find(ctx context.Context, a, b model.ObjectRef) (*model.Relationship, error) {
	id := model.RelationshipID(a, b)
	snap, err := r.f.collection(relationshipsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get relationship", goerr.V("id", id))
	}

	var doc relationshipDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode relationship", goerr.V("id", id))
	}
	return doc.model(), nil
}

type snapshotRepository struct {
	f *Firestore
}

func (r *snapshotRepository) Get(ctx context.Context, id string) (*model.Snapshot, error) {
	snap, err := r.f.collection(snapshotsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "snapshot not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get snapshot", goerr.V("id", id))
	}

	var doc snapshotDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot", goerr.V("id", id))
	}
	return doc.model(), nil
}

func (r *snapshotRepository) ListByParent(ctx context.Context, parent model.ObjectRef) ([]*model.Snapshot, error) {
	iter := r.f.collection(snapshotsCollection).
		Where("parent_key", "==", parent.String()).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.Snapshot
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate snapshots", goerr.V("parent", parent.String()))
		}

		var doc snapshotDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode snapshot", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, doc.model())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ChildSlug < result[j].ChildSlug
	})
	return result, nil
}
