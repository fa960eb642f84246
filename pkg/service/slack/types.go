package slack

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
)

// Service provides the Slack features used by grcbook
type Service interface {
	// LookupByEmail resolves a workspace member by e-mail address.
	// Returns nil, nil if the workspace has no such member.
	LookupByEmail(ctx context.Context, email string) (*model.Person, error)

	// EmailOf returns the e-mail address of a workspace member by user ID
	EmailOf(ctx context.Context, userID string) (string, error)

	// Notify sends a digest to the recipient as a direct message
	Notify(ctx context.Context, msg *model.DigestMessage) error
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}
