package interfaces

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

// PersonRepository defines read access to people
type PersonRepository interface {
	// Get retrieves a person by ID
	Get(ctx context.Context, id string) (*model.Person, error)

	// GetByEmail retrieves a person by normalized e-mail.
	// Returns nil, nil if no person has the address.
	GetByEmail(ctx context.Context, email string) (*model.Person, error)

	// GetByIDs retrieves multiple people. Missing IDs are not included in the map.
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Person, error)
}

// PersonDirectory looks people up in an external user directory
type PersonDirectory interface {
	// LookupByEmail returns nil, nil when the directory does not know the address
	LookupByEmail(ctx context.Context, email string) (*model.Person, error)
}
