package memory

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

type accessControlRepository struct {
	m *Memory
}

func (r *accessControlRepository) ListByObject(ctx context.Context, ref model.ObjectRef) (model.RoleMembers, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	members := make(model.RoleMembers)
	for _, e := range r.m.acls {
		if e.list.Object == ref && len(e.personIDs) > 0 {
			ids := make([]string, len(e.personIDs))
			copy(ids, e.personIDs)
			members[e.list.RoleID] = ids
		}
	}
	return members, nil
}
