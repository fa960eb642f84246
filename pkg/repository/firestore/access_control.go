package firestore

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type accessControlRepository struct {
	f *Firestore
}

func (r *accessControlRepository) ListByObject(ctx context.Context, ref model.ObjectRef) (model.RoleMembers, error) {
	iter := r.f.collection(aclCollection).
		Where("object_key", "==", ref.String()).
		Documents(ctx)
	defer iter.Stop()

	members := make(model.RoleMembers)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate access control lists", goerr.V("ref", ref.String()))
		}

		var doc aclDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode access control list", goerr.V("doc_id", snap.Ref.ID))
		}
		if len(doc.PersonIDs) > 0 {
			members[doc.RoleID] = doc.PersonIDs
		}
	}
	return members, nil
}
