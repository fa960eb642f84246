package memory

import (
	"context"
	"sort"
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

type notificationRepository struct {
	m *Memory
}

func copyNotification(n *model.Notification) *model.Notification {
	copied := *n
	if n.SentAt != nil {
		at := *n.SentAt
		copied.SentAt = &at
	}
	return &copied
}

func (r *notificationRepository) Put(ctx context.Context, notifications ...*model.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now().UTC()
	for _, n := range notifications {
		stored := copyNotification(n)
		if existing, ok := r.m.notifs[n.ID]; ok {
			stored.CreatedAt = existing.CreatedAt
			if existing.SentAt != nil {
				at := *existing.SentAt
				stored.SentAt = &at
			}
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		r.m.notifs[n.ID] = stored
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	n, ok := r.m.notifs[id]
	if !ok {
		return nil, nil
	}
	return copyNotification(n), nil
}

func (r *notificationRepository) ListPending(ctx context.Context) ([]*model.Notification, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var result []*model.Notification
	for _, n := range r.m.notifs {
		if n.IsPending() {
			result = append(result, copyNotification(n))
		}
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
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, id := range ids {
		delete(r.m.notifs, id)
	}
	return nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, ids []string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, id := range ids {
		if n, ok := r.m.notifs[id]; ok {
			sentAt := at
			n.SentAt = &sentAt
		}
	}
	return nil
}
