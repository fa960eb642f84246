package model

import (
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Snapshot is an immutable copy of a live object taken for an audit
type Snapshot struct {
	ID        string
	Parent    ObjectRef // the audit
	Child     ObjectRef // the live object
	ChildSlug string
	Revision  int
	CreatedAt time.Time
}

// SnapshotID returns the ID of the snapshot of child under parent
func SnapshotID(parent, child ObjectRef) string {
	return DeriveID("snapshot", parent.String(), child.String())
}

// Ref returns the object reference of the snapshot
func (s *Snapshot) Ref() ObjectRef {
	return ObjectRef{Type: types.ObjectTypeSnapshot, ID: s.ID}
}
