package memory

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

type commentRepository struct {
	m *Memory
}

func (r *commentRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Comment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.m.comments[id]; ok {
			copied := *c
			result = append(result, &copied)
		}
	}
	return result, nil
}

type evidenceRepository struct {
	m *Memory
}

func (r *evidenceRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Evidence, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.Evidence, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.m.evidence[id]; ok {
			copied := *e
			result = append(result, &copied)
		}
	}
	return result, nil
}
