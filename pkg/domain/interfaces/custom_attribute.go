package interfaces

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// CustomAttributeRepository defines access to custom attribute definitions and values
type CustomAttributeRepository interface {
	// PutDefinition saves a definition (upsert)
	PutDefinition(ctx context.Context, def *model.CustomAttributeDefinition) error

	// ListDefinitions returns global and local definitions of the type
	ListDefinitions(ctx context.Context, t types.ObjectType) ([]*model.CustomAttributeDefinition, error)

	// ListValues returns the values of an object keyed by definition ID
	ListValues(ctx context.Context, ref model.ObjectRef) (map[string]*model.CustomAttributeValue, error)
}
