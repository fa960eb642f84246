package model

import (
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Notification is a pending (SentAt == nil) or sent digest entry
type Notification struct {
	ID        string
	Kind      types.NotificationKind
	Object    ObjectRef
	Recipient string // e-mail
	SendOn    Date
	Repeating bool
	SentAt    *time.Time
	CreatedAt time.Time
}

// NotificationID returns the ID of the notification of kind about object for
// recipient on sendOn. Scanning twice on the same day finds the same ID.
func NotificationID(kind types.NotificationKind, object ObjectRef, recipient string, sendOn Date) string {
	return DeriveID("notification", string(kind), object.String(), NormalizeEmail(recipient), string(sendOn))
}

// IsPending reports whether the notification has not been sent yet
func (n *Notification) IsPending() bool {
	return n.SentAt == nil
}

// TaskRef is a digest line item
type TaskRef struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	DueDate Date   `json:"due_date"`
	Cycle   string `json:"cycle,omitempty"` // title of the cycle the task belongs to
}

// Digest maps recipient e-mail to kind to the tasks that triggered it
type Digest map[string]map[types.NotificationKind][]TaskRef

// DigestMessage is one recipient's share of a digest, ready for a notifier
type DigestMessage struct {
	Recipient string
	Date      Date
	Sections  map[types.NotificationKind][]TaskRef
}
