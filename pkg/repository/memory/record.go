package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

type recordRepository struct {
	m *Memory
}

func (r *recordRepository) Get(ctx context.Context, t types.ObjectType, id string) (*model.Record, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rec, ok := r.m.records[t][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "record not found",
			goerr.V("type", t), goerr.V("id", id))
	}
	return rec.Clone(), nil
}

func (r *recordRepository) GetBySlug(ctx context.Context, t types.ObjectType, slug string) (*model.Record, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	id, ok := r.m.slugs[t][slug]
	if !ok {
		return nil, nil
	}
	return r.m.records[t][id].Clone(), nil
}

func (r *recordRepository) List(ctx context.Context, t types.ObjectType, opts ...interfaces.ListRecordOption) ([]*model.Record, error) {
	cfg := interfaces.BuildListRecordConfig(opts...)

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	records := make([]*model.Record, 0, len(r.m.records[t]))
	for _, rec := range r.m.records[t] {
		if cfg.Match(rec) {
			records = append(records, rec.Clone())
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Slug < records[j].Slug
	})
	return records, nil
}

func (r *recordRepository) NextSlug(ctx context.Context, t types.ObjectType) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.counters[t]++
	return fmt.Sprintf("%s-%d", t.SlugPrefix(), r.m.counters[t]), nil
}
