package usecase

import (
	"bytes"
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/usecase/converter"
	"github.com/secmon-lab/grcbook/pkg/utils/csvfile"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// ExportQuery selects the records of one block. Empty filters select everything.
type ExportQuery struct {
	ObjectType types.ObjectType
	Slugs      []string
	Statuses   []types.Status
	// Fields limits the columns by header name. Code is always included.
	Fields []string
}

// NewExportQuery builds a query from user input. Statuses are matched
// case-insensitively against the vocabulary of the object type.
func NewExportQuery(objectType string, slugs, statuses, fields []string) (ExportQuery, error) {
	t, err := types.ParseObjectType(objectType)
	if err != nil || !t.IsRecord() {
		return ExportQuery{}, goerr.Wrap(ErrUnknownObjectType, "cannot export object type", goerr.V(ObjectTypeKey, objectType))
	}

	q := ExportQuery{
		ObjectType: t,
		Slugs:      slugs,
		Fields:     fields,
	}
	for _, raw := range statuses {
		status, ok := types.ParseStatus(t, raw)
		if !ok {
			return ExportQuery{}, goerr.Wrap(ErrInvalidStatus, "unknown status",
				goerr.V(ObjectTypeKey, t), goerr.V(StatusKey, raw))
		}
		q.Statuses = append(q.Statuses, status)
	}
	return q, nil
}

type ExportUseCase struct {
	repo   interfaces.Repository
	schema *config.Schema
	store  interfaces.ExportStore
}

func NewExportUseCase(repo interfaces.Repository, schema *config.Schema, store interfaces.ExportStore) *ExportUseCase {
	if schema == nil {
		schema = config.DefaultSchema()
	}
	return &ExportUseCase{
		repo:   repo,
		schema: schema,
		store:  store,
	}
}

// Blocks renders one block per query in the import layout
func (uc *ExportUseCase) Blocks(ctx context.Context, queries ...ExportQuery) ([]*csvfile.Block, error) {
	if len(queries) == 0 {
		return nil, goerr.Wrap(ErrNoExportQuery, "nothing to export")
	}

	session := converter.NewSession(uc.repo, converter.CommitPerBatch)
	defer session.Close(ctx)
	conv := converter.New(session, uc.schema)

	blocks := make([]*csvfile.Block, 0, len(queries))
	for _, q := range queries {
		if !q.ObjectType.IsRecord() {
			return nil, goerr.Wrap(ErrUnknownObjectType, "cannot export object type", goerr.V(ObjectTypeKey, q.ObjectType))
		}

		var opts []interfaces.ListRecordOption
		if len(q.Slugs) > 0 {
			opts = append(opts, interfaces.WithSlugs(q.Slugs...))
		}
		if len(q.Statuses) > 0 {
			opts = append(opts, interfaces.WithStatuses(q.Statuses...))
		}
		records, err := uc.repo.Record().List(ctx, q.ObjectType, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list records", goerr.V(ObjectTypeKey, q.ObjectType))
		}

		block, err := conv.ExportBlock(ctx, q.ObjectType, records, q.Fields)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to export block", goerr.V(ObjectTypeKey, q.ObjectType))
		}
		blocks = append(blocks, block)

		logging.From(ctx).Debug("exported block", "object_type", q.ObjectType, "records", len(records))
	}
	return blocks, nil
}

// Write renders the queries and writes them to w in format
func (uc *ExportUseCase) Write(ctx context.Context, w io.Writer, format csvfile.Format, queries ...ExportQuery) error {
	blocks, err := uc.Blocks(ctx, queries...)
	if err != nil {
		return err
	}
	if err := csvfile.WriteBlocks(w, format, blocks); err != nil {
		return goerr.Wrap(err, "failed to write export", goerr.V("format", format))
	}
	return nil
}

// Upload renders the queries and stores the file under name plus the format's
// extension. It returns the location reported by the store.
func (uc *ExportUseCase) Upload(ctx context.Context, name string, format csvfile.Format, queries ...ExportQuery) (string, error) {
	if uc.store == nil {
		return "", goerr.Wrap(ErrNoExportStore, "cannot upload export")
	}

	var buf bytes.Buffer
	if err := uc.Write(ctx, &buf, format, queries...); err != nil {
		return "", err
	}

	location, err := uc.store.Upload(ctx, name+format.Ext(), format.ContentType(), buf.Bytes())
	if err != nil {
		return "", goerr.Wrap(err, "failed to upload export", goerr.V(FileNameKey, name))
	}
	logging.From(ctx).Info("export uploaded", "location", location, "bytes", buf.Len())
	return location, nil
}
