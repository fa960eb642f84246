package firestore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recordRepository struct {
	f *Firestore
}

func (r *recordRepository) Get(ctx context.Context, t types.ObjectType, id string) (*model.Record, error) {
	snap, err := r.f.collection(recordsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "record not found", goerr.V("type", t), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get record", goerr.V("id", id))
	}

	var doc recordDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode record", goerr.V("id", id))
	}
	if doc.Type != string(t) {
		return nil, goerr.Wrap(ErrNotFound, "record not found", goerr.V("type", t), goerr.V("id", id))
	}
	return doc.model(), nil
}

func (r *recordRepository) GetBySlug(ctx context.Context, t types.ObjectType, slug string) (*model.Record, error) {
	iter := r.f.collection(recordsCollection).
		Where("type", "==", string(t)).
		Where("slug", "==", slug).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query record by slug", goerr.V("type", t), goerr.V("slug", slug))
	}

	var doc recordDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode record", goerr.V("doc_id", snap.Ref.ID))
	}
	return doc.model(), nil
}

func (r *recordRepository) List(ctx context.Context, t types.ObjectType, opts ...interfaces.ListRecordOption) ([]*model.Record, error) {
	cfg := interfaces.BuildListRecordConfig(opts...)

	iter := r.f.collection(recordsCollection).Where("type", "==", string(t)).Documents(ctx)
	defer iter.Stop()

	var records []*model.Record
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate records", goerr.V("type", t))
		}

		var doc recordDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record", goerr.V("doc_id", snap.Ref.ID))
		}
		rec := doc.model()
		if cfg.Match(rec) {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Slug < records[j].Slug
	})
	return records, nil
}

func (r *recordRepository) NextSlug(ctx context.Context, t types.ObjectType) (string, error) {
	counterRef := r.f.collection(countersCollection).Doc(string(t) + "_slug_counter")

	var next int64
	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				next = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": next,
				})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		current, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}
		val, ok := current.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64", goerr.V("value", current))
		}
		next = val + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: next},
		})
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to reserve slug", goerr.V("type", t))
	}

	return fmt.Sprintf("%s-%d", t.SlugPrefix(), next), nil
}
