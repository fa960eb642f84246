package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

type relationshipRepository struct {
	m *Memory
}

func (r *relationshipRepository) ListByObject(ctx context.Context, ref model.ObjectRef) ([]*model.Relationship, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var result []*model.Relationship
	for _, rel := range r.m.relations {
		if rel.Involves(ref) {
			copied := *rel
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt) ||
			(result[i].CreatedAt.Equal(result[j].CreatedAt) && result[i].ID < result[j].ID)
	})
	return result, nil
}

func (r *relationshipRepository) Find(ctx context.Context, a, b model.ObjectRef) (*model.Relationship, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rel, ok := r.m.relations[model.RelationshipID(a, b)]
	if !ok {
		return nil, nil
	}
	copied := *rel
	return &copied, nil
}

type snapshotRepository struct {
	m *Memory
}

func (r *snapshotRepository) Get(ctx context.Context, id string) (*model.Snapshot, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.snapshots[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "snapshot not found", goerr.V("id", id))
	}
	copied := *s
	return &copied, nil
}

func (r *snapshotRepository) ListByParent(ctx context.Context, parent model.ObjectRef) ([]*model.Snapshot, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var result []*model.Snapshot
	for _, s := range r.m.snapshots {
		if s.Parent == parent {
			copied := *s
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ChildSlug < result[j].ChildSlug
	})
	return result, nil
}
