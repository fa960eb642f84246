package usecase

import (
	"context"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/usecase/converter"
	"github.com/secmon-lab/grcbook/pkg/utils/csvfile"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/secmon-lab/grcbook/pkg/utils/metrics"
)

// ImportOptions controls one import run
type ImportOptions struct {
	// DryRun validates everything and discards all writes
	DryRun bool
	Commit converter.CommitPolicy
	// Actor is the e-mail of the person running the import
	Actor string
}

type ImportUseCase struct {
	repo         interfaces.Repository
	schema       *config.Schema
	directory    interfaces.PersonDirectory
	evidenceHost interfaces.EvidenceHost
	now          func() time.Time
}

func NewImportUseCase(repo interfaces.Repository, schema *config.Schema, directory interfaces.PersonDirectory, host interfaces.EvidenceHost, now func() time.Time) *ImportUseCase {
	if schema == nil {
		schema = config.DefaultSchema()
	}
	if now == nil {
		now = time.Now
	}
	return &ImportUseCase{
		repo:         repo,
		schema:       schema,
		directory:    directory,
		evidenceHost: host,
		now:          now,
	}
}

// ImportFile reads a CSV or XLSX file and imports every block in it
func (uc *ImportUseCase) ImportFile(ctx context.Context, r io.Reader, name string, opts ImportOptions) ([]*model.BlockResult, error) {
	blocks, err := csvfile.ReadBlocks(r, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read import file", goerr.V(FileNameKey, name))
	}
	return uc.ImportBlocks(ctx, blocks, opts)
}

// ImportBlocks imports blocks in order inside one session. Rows with errors
// are skipped, the rest is committed according to opts.Commit unless
// opts.DryRun is set. An error is returned only when storage failed.
func (uc *ImportUseCase) ImportBlocks(ctx context.Context, blocks []*csvfile.Block, opts ImportOptions) ([]*model.BlockResult, error) {
	started := time.Now()
	numberLines(blocks)

	if !opts.DryRun {
		if _, err := SyncSchema(ctx, uc.repo, uc.schema); err != nil {
			return nil, err
		}
	}

	policy := opts.Commit
	if opts.DryRun {
		policy = converter.CommitPerBatch
	}
	session := converter.NewSession(uc.repo, policy)
	defer session.Close(ctx)

	convOpts := []converter.Option{
		converter.WithActor(opts.Actor),
		converter.WithClock(uc.now),
	}
	if uc.directory != nil {
		convOpts = append(convOpts, converter.WithDirectory(uc.directory))
	}
	if uc.evidenceHost != nil {
		convOpts = append(convOpts, converter.WithEvidenceHost(uc.evidenceHost))
	}
	conv := converter.New(session, uc.schema, convOpts...)

	results := make([]*model.BlockResult, 0, len(blocks))
	for _, b := range blocks {
		result, err := conv.ConvertBlock(ctx, b)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to import block", goerr.V(ObjectTypeKey, b.ObjectType))
		}
		results = append(results, result)
	}

	if !opts.DryRun {
		if err := session.Commit(ctx); err != nil {
			return nil, goerr.Wrap(err, "failed to commit import")
		}
	}

	totals := model.SumBlocks(results)
	logging.From(ctx).Info("import finished",
		"blocks", len(results),
		"rows", totals.Rows,
		"created", totals.Created,
		"updated", totals.Updated,
		"ignored", totals.Ignored,
		"deleted", totals.Deleted,
		"errors", totals.Errors,
		"warnings", totals.Warnings,
		"dry_run", opts.DryRun,
		"commit", policy.String(),
	)

	if !opts.DryRun {
		observeImport(results, time.Since(started))
	}
	return results, nil
}

func observeImport(results []*model.BlockResult, elapsed time.Duration) {
	for _, r := range results {
		status := "ok"
		if r.HasErrors() {
			status = "error"
		}
		metrics.ObserveImportBlock(r.Name, status)
		metrics.ObserveImportRows(r.Name, string(model.RowCreated), r.Created)
		metrics.ObserveImportRows(r.Name, string(model.RowUpdated), r.Updated)
		metrics.ObserveImportRows(r.Name, string(model.RowIgnored), r.Ignored)
		metrics.ObserveImportRows(r.Name, string(model.RowDeleted), r.Deleted)
	}
	metrics.ObserveImportDuration(elapsed)
}

// numberLines gives blocks that did not come from a file the line numbers
// they would have if written out with csvfile.Join
func numberLines(blocks []*csvfile.Block) {
	line := 1
	for _, b := range blocks {
		if b.HeaderLine == 0 {
			b.HeaderLine = line + 1
		}
		line = b.HeaderLine + len(b.Rows) + 2
	}
}

// SyncSchema stores the schema's custom attribute definitions. Local
// definitions are bound to their record by slug; those whose record does not
// exist yet are skipped. It returns the number of definitions written.
func SyncSchema(ctx context.Context, repo interfaces.Repository, schema *config.Schema) (int, error) {
	written := 0
	for _, a := range schema.Attributes {
		def := a
		if def.ID == "" {
			def.ID = model.CADID(def.ObjectType, "", def.Title)
		}
		if err := repo.CustomAttribute().PutDefinition(ctx, &def); err != nil {
			return written, goerr.Wrap(err, "failed to save attribute definition", goerr.V("title", def.Title))
		}
		written++
	}

	for _, local := range schema.LocalAttributes {
		def := local.Definition
		rec, err := repo.Record().GetBySlug(ctx, def.ObjectType, local.RecordSlug)
		if err != nil {
			return written, goerr.Wrap(err, "failed to look up record of local attribute", goerr.V(RecordSlugKey, local.RecordSlug))
		}
		if rec == nil {
			logging.From(ctx).Debug("local attribute record not found, skipped",
				"record_slug", local.RecordSlug,
				"title", def.Title,
			)
			continue
		}
		def.DefinitionID = rec.ID
		def.ID = model.CADID(def.ObjectType, rec.ID, def.Title)
		if err := repo.CustomAttribute().PutDefinition(ctx, &def); err != nil {
			return written, goerr.Wrap(err, "failed to save local attribute definition", goerr.V(RecordSlugKey, local.RecordSlug))
		}
		written++
	}
	return written, nil
}
