package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type personRepository struct {
	f *Firestore
}

func (r *personRepository) Get(ctx context.Context, id string) (*model.Person, error) {
	snap, err := r.f.collection(personsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "person not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get person", goerr.V("id", id))
	}

	var doc personDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode person", goerr.V("id", id))
	}
	return doc.model(), nil
}

func (r *personRepository) GetByEmail(ctx context.Context, email string) (*model.Person, error) {
	iter := r.f.collection(personsCollection).
		Where("email", "==", model.NormalizeEmail(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query person by email", goerr.V("email", email))
	}

	var doc personDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode person", goerr.V("doc_id", snap.Ref.ID))
	}
	return doc.model(), nil
}

// GetByIDs handles the Firestore GetAll limit by splitting into multiple requests
func (r *personRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Person, error) {
	result := make(map[string]*model.Person, len(ids))

	for i := 0; i < len(ids); i += firestoreGetAllLimit {
		end := i + firestoreGetAllLimit
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		refs := make([]*firestore.DocumentRef, len(batch))
		for j, id := range batch {
			refs[j] = r.f.collection(personsCollection).Doc(id)
		}

		docs, err := r.f.client.GetAll(ctx, refs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to batch get persons", goerr.V("count", len(batch)))
		}

		for idx, snap := range docs {
			if !snap.Exists() {
				continue
			}
			var doc personDoc
			if err := snap.DataTo(&doc); err != nil {
				return nil, goerr.Wrap(err, "failed to decode person", goerr.V("id", batch[idx]))
			}
			result[batch[idx]] = doc.model()
		}
	}

	return result, nil
}
