package interfaces

import (
	"context"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// RecordRepository defines read access to records
type RecordRepository interface {
	// Get retrieves a record by ID
	Get(ctx context.Context, t types.ObjectType, id string) (*model.Record, error)

	// GetBySlug retrieves a record by its code.
	// Returns nil, nil if no record has the slug.
	GetBySlug(ctx context.Context, t types.ObjectType, slug string) (*model.Record, error)

	// List retrieves records of a type sorted by slug
	List(ctx context.Context, t types.ObjectType, opts ...ListRecordOption) ([]*model.Record, error)

	// NextSlug reserves the next generated code for the type, e.g. "CONTROL-4".
	// Reserved numbers are never handed out twice, even if the record is not saved.
	NextSlug(ctx context.Context, t types.ObjectType) (string, error)
}

// ListRecordOption is a functional option for filtering records in List
type ListRecordOption func(*listRecordConfig)

type listRecordConfig struct {
	slugs    []string
	statuses []types.Status
}

// WithSlugs filters records by code
func WithSlugs(slugs ...string) ListRecordOption {
	return func(c *listRecordConfig) {
		c.slugs = append(c.slugs, slugs...)
	}
}

// WithStatuses filters records by status
func WithStatuses(statuses ...types.Status) ListRecordOption {
	return func(c *listRecordConfig) {
		c.statuses = append(c.statuses, statuses...)
	}
}

// BuildListRecordConfig builds a listRecordConfig from options
func BuildListRecordConfig(opts ...ListRecordOption) *listRecordConfig {
	cfg := &listRecordConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Match reports whether r passes the filters
func (c *listRecordConfig) Match(r *model.Record) bool {
	if len(c.slugs) > 0 {
		found := false
		for _, s := range c.slugs {
			if s == r.Slug {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(c.statuses) > 0 {
		found := false
		for _, s := range c.statuses {
			if s == r.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Slugs returns the slug filter
func (c *listRecordConfig) Slugs() []string {
	return c.slugs
}

// Statuses returns the status filter
func (c *listRecordConfig) Statuses() []types.Status {
	return c.statuses
}
