package memory

import (
	"context"
	"sort"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

type customAttributeRepository struct {
	m *Memory
}

func copyDefinition(d *model.CustomAttributeDefinition) *model.CustomAttributeDefinition {
	copied := *d
	copied.MultiChoiceOptions = append([]string(nil), d.MultiChoiceOptions...)
	return &copied
}

func (r *customAttributeRepository) PutDefinition(ctx context.Context, def *model.CustomAttributeDefinition) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.cads[def.ID] = copyDefinition(def)
	return nil
}

func (r *customAttributeRepository) ListDefinitions(ctx context.Context, t types.ObjectType) ([]*model.CustomAttributeDefinition, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var result []*model.CustomAttributeDefinition
	for _, d := range r.m.cads {
		if d.ObjectType == t {
			result = append(result, copyDefinition(d))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DefinitionID != result[j].DefinitionID {
			return result[i].DefinitionID < result[j].DefinitionID
		}
		return result[i].Title < result[j].Title
	})
	return result, nil
}

func (r *customAttributeRepository) ListValues(ctx context.Context, ref model.ObjectRef) (map[string]*model.CustomAttributeValue, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make(map[string]*model.CustomAttributeValue)
	for _, v := range r.m.cavs {
		if v.Object == ref {
			copied := *v
			result[v.DefinitionID] = &copied
		}
	}
	return result, nil
}
