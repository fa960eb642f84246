package usecase

import (
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model/config"
)

type UseCases struct {
	repo              interfaces.Repository
	schema            *config.Schema
	directory         interfaces.PersonDirectory
	evidenceHost      interfaces.EvidenceHost
	exportStore       interfaces.ExportStore
	notifiers         []interfaces.Notifier
	digestConcurrency int
	now               func() time.Time

	Import *ImportUseCase
	Export *ExportUseCase
	Digest *DigestUseCase
}

type Option func(*UseCases)

// WithSchema replaces the built-in object schema
func WithSchema(schema *config.Schema) Option {
	return func(uc *UseCases) {
		uc.schema = schema
	}
}

func WithPersonDirectory(d interfaces.PersonDirectory) Option {
	return func(uc *UseCases) {
		uc.directory = d
	}
}

func WithEvidenceHost(h interfaces.EvidenceHost) Option {
	return func(uc *UseCases) {
		uc.evidenceHost = h
	}
}

func WithExportStore(s interfaces.ExportStore) Option {
	return func(uc *UseCases) {
		uc.exportStore = s
	}
}

// WithNotifiers sets the digest transports. Every message goes through all of them.
func WithNotifiers(notifiers ...interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifiers = append(uc.notifiers, notifiers...)
	}
}

// WithDigestConcurrency bounds the number of recipients flushed in parallel
func WithDigestConcurrency(n int) Option {
	return func(uc *UseCases) {
		uc.digestConcurrency = n
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:              repo,
		digestConcurrency: 1,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}
	if uc.schema == nil {
		uc.schema = config.DefaultSchema()
	}
	if uc.digestConcurrency < 1 {
		uc.digestConcurrency = 1
	}

	uc.Import = NewImportUseCase(repo, uc.schema, uc.directory, uc.evidenceHost, uc.now)
	uc.Export = NewExportUseCase(repo, uc.schema, uc.exportStore)
	uc.Digest = NewDigestUseCase(repo, uc.schema, uc.notifiers, uc.digestConcurrency)

	return uc
}

// Schema returns the object schema in effect
func (uc *UseCases) Schema() *config.Schema {
	return uc.schema
}
