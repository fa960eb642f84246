package firestore

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type customAttributeRepository struct {
	f *Firestore
}

func (r *customAttributeRepository) PutDefinition(ctx context.Context, def *model.CustomAttributeDefinition) error {
	if _, err := r.f.collection(cadCollection).Doc(def.ID).Set(ctx, toCADDoc(def)); err != nil {
		return goerr.Wrap(err, "failed to put custom attribute definition", goerr.V("id", def.ID))
	}
	return nil
}

func (r *customAttributeRepository) ListDefinitions(ctx context.Context, t types.ObjectType) ([]*model.CustomAttributeDefinition, error) {
	iter := r.f.collection(cadCollection).
		Where("object_type", "==", string(t)).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.CustomAttributeDefinition
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate custom attribute definitions", goerr.V("type", t))
		}

		var doc cadDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode custom attribute definition", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, doc.model())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DefinitionID != result[j].DefinitionID {
			return result[i].DefinitionID < result[j].DefinitionID
		}
		return result[i].Title < result[j].Title
	})
	return result, nil
}

func (r *customAttributeRepository) ListValues(ctx context.Context, ref model.ObjectRef) (map[string]*model.CustomAttributeValue, error) {
	iter := r.f.collection(cavCollection).
		Where("object_key", "==", ref.String()).
		Documents(ctx)
	defer iter.Stop()

	result := make(map[string]*model.CustomAttributeValue)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate custom attribute values", goerr.V("ref", ref.String()))
		}

		var doc cavDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode custom attribute value", goerr.V("doc_id", snap.Ref.ID))
		}
		result[doc.DefinitionID] = doc.model()
	}
	return result, nil
}
