package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type notificationRepository struct {
	f *Firestore
}

func (r *notificationRepository) Put(ctx context.Context, notifications ...*model.Notification) error {
	now := time.Now().UTC()

	for i := 0; i < len(notifications); i += maxTransactionWrites {
		end := i + maxTransactionWrites
		if end > len(notifications) {
			end = len(notifications)
		}
		batch := notifications[i:end]

		err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			refs := make([]*firestore.DocumentRef, len(batch))
			for j, n := range batch {
				refs[j] = r.f.collection(notificationsCollection).Doc(n.ID)
			}
			existing, err := tx.GetAll(refs)
			if err != nil {
				return goerr.Wrap(err, "failed to get notifications")
			}

			for j, n := range batch {
				doc := toNotificationDoc(n)
				if existing[j].Exists() {
					var prev notificationDoc
					if err := existing[j].DataTo(&prev); err != nil {
						return goerr.Wrap(err, "failed to decode notification", goerr.V("id", n.ID))
					}
					doc.CreatedAt = prev.CreatedAt
					if prev.Sent {
						doc.Sent = true
						doc.SentAt = prev.SentAt
					}
				}
				if doc.CreatedAt.IsZero() {
					doc.CreatedAt = now
				}
				if err := tx.Set(refs[j], doc); err != nil {
					return goerr.Wrap(err, "failed to put notification", goerr.V("id", n.ID))
				}
			}
			return nil
		})
		if err != nil {
			return goerr.Wrap(err, "failed to put notifications", goerr.V("count", len(batch)))
		}
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	snap, err := r.f.collection(notificationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get notification", goerr.V("id", id))
	}

	var doc notificationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode notification", goerr.V("id", id))
	}
	return doc.model(), nil
}

func (r *notificationRepository) ListPending(ctx context.Context) ([]*model.Notification, error) {
	iter := r.f.collection(notificationsCollection).
		Where("sent", "==", false).
		OrderBy("send_on", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.Notification
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate pending notifications")
		}

		var doc notificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode notification", goerr.V("doc_id", snap.Ref.ID))
		}
		result = append(result, doc.model())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SendOn != result[j].SendOn {
			return result[i].SendOn < result[j].SendOn
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *notificationRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	bulkWriter := r.f.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, id := range ids {
		if _, err := bulkWriter.Delete(r.f.collection(notificationsCollection).Doc(id)); err != nil {
			return goerr.Wrap(err, "failed to add Delete operation to bulk writer", goerr.V("id", id))
		}
	}
	bulkWriter.Flush()
	return nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	bulkWriter := r.f.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, id := range ids {
		ref := r.f.collection(notificationsCollection).Doc(id)
		_, err := bulkWriter.Update(ref, []firestore.Update{
			{Path: "sent", Value: true},
			{Path: "sent_at", Value: at},
		})
		if err != nil {
			return goerr.Wrap(err, "failed to add Update operation to bulk writer", goerr.V("id", id))
		}
	}
	bulkWriter.Flush()
	return nil
}
