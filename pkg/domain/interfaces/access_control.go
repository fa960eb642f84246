package interfaces

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

// AccessControlRepository defines read access to role assignments
type AccessControlRepository interface {
	// ListByObject returns the role memberships of an object keyed by role ID
	ListByObject(ctx context.Context, ref model.ObjectRef) (model.RoleMembers, error)
}
