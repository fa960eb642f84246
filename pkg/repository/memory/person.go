package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

type personRepository struct {
	m *Memory
}

func copyPerson(p *model.Person) *model.Person {
	copied := *p
	return &copied
}

func (r *personRepository) Get(ctx context.Context, id string) (*model.Person, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	p, ok := r.m.persons[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "person not found", goerr.V("id", id))
	}
	return copyPerson(p), nil
}

func (r *personRepository) GetByEmail(ctx context.Context, email string) (*model.Person, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	id, ok := r.m.emails[model.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return copyPerson(r.m.persons[id]), nil
}

func (r *personRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Person, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make(map[string]*model.Person, len(ids))
	for _, id := range ids {
		if p, ok := r.m.persons[id]; ok {
			result[id] = copyPerson(p)
		}
	}
	return result, nil
}
