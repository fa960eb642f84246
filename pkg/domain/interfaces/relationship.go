package interfaces

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

// RelationshipRepository defines read access to relationships
type RelationshipRepository interface {
	// ListByObject returns relationships where ref is either side
	ListByObject(ctx context.Context, ref model.ObjectRef) ([]*model.Relationship, error)

	// Find returns the relationship between a and b in either direction.
	// Returns nil, nil if they are not related.
	Find(ctx context.Context, a, b model.ObjectRef) (*model.Relationship, error)
}

// SnapshotRepository defines read access to audit snapshots
type SnapshotRepository interface {
	// Get retrieves a snapshot by ID
	Get(ctx context.Context, id string) (*model.Snapshot, error)

	// ListByParent returns the snapshots taken for an audit
	ListByParent(ctx context.Context, parent model.ObjectRef) ([]*model.Snapshot, error)
}
