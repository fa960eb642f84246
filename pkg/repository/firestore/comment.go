package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// getAll fetches documents by ID in GetAll-sized batches and calls decode for
// each existing one
func (f *Firestore) getAll(ctx context.Context, collection string, ids []string, decode func(*firestore.DocumentSnapshot) error) error {
	for i := 0; i < len(ids); i += firestoreGetAllLimit {
		end := i + firestoreGetAllLimit
		if end > len(ids) {
			end = len(ids)
		}

		refs := make([]*firestore.DocumentRef, 0, end-i)
		for _, id := range ids[i:end] {
			refs = append(refs, f.collection(collection).Doc(id))
		}

		docs, err := f.client.GetAll(ctx, refs)
		if err != nil {
			return goerr.Wrap(err, "failed to batch get documents",
				goerr.V("collection", collection), goerr.V("count", len(refs)))
		}
		for _, snap := range docs {
			if !snap.Exists() {
				continue
			}
			if err := decode(snap); err != nil {
				return err
			}
		}
	}
	return nil
}

type commentRepository struct {
	f *Firestore
}

func (r *commentRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Comment, error) {
	result := make([]*model.Comment, 0, len(ids))
	err := r.f.getAll(ctx, commentsCollection, ids, func(snap *firestore.DocumentSnapshot) error {
		var doc commentDoc
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode comment", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, &model.Comment{
			ID:           doc.ID,
			Description:  doc.Description,
			AssigneeType: doc.AssigneeType,
			AuthorID:     doc.AuthorID,
			CreatedAt:    doc.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type evidenceRepository struct {
	f *Firestore
}

func (r *evidenceRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Evidence, error) {
	result := make([]*model.Evidence, 0, len(ids))
	err := r.f.getAll(ctx, evidenceCollection, ids, func(snap *firestore.DocumentSnapshot) error {
		var doc evidenceDoc
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode evidence", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, &model.Evidence{
			ID:        doc.ID,
			Kind:      types.EvidenceKind(doc.Kind),
			Link:      doc.Link,
			Title:     doc.Title,
			SourceID:  doc.SourceID,
			CreatedAt: doc.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
