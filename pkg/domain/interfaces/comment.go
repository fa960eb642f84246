package interfaces

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

// CommentRepository defines read access to comments
type CommentRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]*model.Comment, error)
}

// EvidenceRepository defines read access to evidence
type EvidenceRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]*model.Evidence, error)
}

// EvidenceHost resolves evidence links on the document host
type EvidenceHost interface {
	Resolve(ctx context.Context, link string) (*model.Document, error)
}
