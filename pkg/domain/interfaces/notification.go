package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

// NotificationRepository defines persistence for digest notifications
type NotificationRepository interface {
	// Put saves notifications (upsert). Existing sent notifications keep their SentAt.
	Put(ctx context.Context, notifications ...*model.Notification) error

	// Get retrieves a notification by ID.
	// Returns nil, nil if it does not exist.
	Get(ctx context.Context, id string) (*model.Notification, error)

	// ListPending returns notifications that have not been sent
	ListPending(ctx context.Context) ([]*model.Notification, error)

	// Delete removes notifications by ID
	Delete(ctx context.Context, ids ...string) error

	// MarkSent stamps SentAt on the notifications
	MarkSent(ctx context.Context, ids []string, at time.Time) error
}

// Notifier delivers one recipient's digest
type Notifier interface {
	Notify(ctx context.Context, msg *model.DigestMessage) error
}

// ExportStore uploads export files and returns their location
type ExportStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}
