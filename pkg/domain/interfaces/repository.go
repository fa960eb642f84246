package interfaces

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

// Repository defines the interface for data persistence. Reads go through the
// sub-repositories; import writes go through Commit so that one unit of work
// lands atomically.
type Repository interface {
	Record() RecordRepository
	Person() PersonRepository
	Relationship() RelationshipRepository
	Snapshot() SnapshotRepository
	AccessControl() AccessControlRepository
	CustomAttribute() CustomAttributeRepository
	Comment() CommentRepository
	Evidence() EvidenceRepository
	Notification() NotificationRepository

	// Commit applies every write of cs in one transaction. Deleted records
	// cascade to their relationships, access control lists and attribute values.
	Commit(ctx context.Context, cs *model.ChangeSet) error

	// Close releases the underlying client
	Close() error
}
