package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/usecase/converter"
	"github.com/secmon-lab/grcbook/pkg/utils/async"
	"github.com/secmon-lab/grcbook/pkg/utils/csvfile"
	"github.com/secmon-lab/grcbook/pkg/utils/errutil"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/secmon-lab/grcbook/pkg/utils/safe"
)

var ErrInvalidParameter = goerr.New("invalid request parameter")

// statusOf maps use case errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, csvfile.ErrNoBlocks),
		errors.Is(err, csvfile.ErrUnsupportedFormat),
		errors.Is(err, converter.ErrInvalidCommitPolicy),
		errors.Is(err, usecase.ErrUnknownObjectType),
		errors.Is(err, usecase.ErrInvalidStatus),
		errors.Is(err, usecase.ErrNoExportQuery):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNoNotifier),
		errors.Is(err, usecase.ErrNoExportStore):
		return http.StatusServiceUnavailable
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func importOptions(q url.Values) (usecase.ImportOptions, error) {
	var opts usecase.ImportOptions

	if v := q.Get("dry_run"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return opts, goerr.Wrap(ErrInvalidParameter, "dry_run must be a boolean", goerr.V("dry_run", v))
		}
		opts.DryRun = dryRun
	}

	policy, err := converter.ParseCommitPolicy(q.Get("commit"))
	if err != nil {
		return opts, err
	}
	opts.Commit = policy
	opts.Actor = q.Get("actor")
	return opts, nil
}

type importJSONRequest struct {
	Blocks []*csvfile.Block `json:"blocks"`
}

// importHandler accepts a multipart upload (field "file"), a JSON block list
// or a raw CSV/XLSX body and responds with one summary per block
func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts, err := importOptions(r.URL.Query())
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	results, err := s.runImport(ctx, r, opts)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	totals := model.SumBlocks(results)
	logging.From(ctx).Info("import request handled",
		"dry_run", opts.DryRun,
		"commit", opts.Commit.String(),
		"created", totals.Created,
		"updated", totals.Updated,
		"errors", totals.Errors,
	)
	writeJSON(w, r, http.StatusOK, results)
}

func (s *Server) runImport(ctx context.Context, r *http.Request, opts usecase.ImportOptions) ([]*model.BlockResult, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidParameter, "multipart request needs a file field", goerr.V("error", err.Error()))
		}
		defer safe.Close(ctx, file, "file", header.Filename)
		return s.uc.Import.ImportFile(ctx, file, header.Filename, opts)

	case "application/json":
		var req importJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, goerr.Wrap(ErrInvalidParameter, "invalid JSON body", goerr.V("error", err.Error()))
		}
		if len(req.Blocks) == 0 {
			return nil, goerr.Wrap(csvfile.ErrNoBlocks, "JSON body has no blocks")
		}
		return s.uc.Import.ImportBlocks(ctx, req.Blocks, opts)

	default:
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "import.csv"
			if mediaType == csvfile.ContentTypeXLSX {
				name = "import.xlsx"
			}
		}
		return s.uc.Import.ImportFile(ctx, r.Body, name, opts)
	}
}

// exportHandler writes one block per object_type parameter. slug, status and
// field filters apply to every block.
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	format, err := csvfile.ParseFormat(q.Get("format"))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	objectTypes := q["object_type"]
	if len(objectTypes) == 0 {
		err := goerr.Wrap(usecase.ErrNoExportQuery, "object_type is required")
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	queries := make([]usecase.ExportQuery, 0, len(objectTypes))
	for _, t := range objectTypes {
		query, err := usecase.NewExportQuery(t, q["slug"], q["status"], q["field"])
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, statusOf(err))
			return
		}
		queries = append(queries, query)
	}

	blocks, err := s.uc.Export.Blocks(ctx, queries...)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	filename := "export-" + s.now().Format("20060102") + format.Ext()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := csvfile.WriteBlocks(w, format, blocks); err != nil {
		// header is already committed
		logging.From(ctx).Error("failed to write export", "error", err)
	}
}

func (s *Server) requestTime(q url.Values) (time.Time, error) {
	v := q.Get("now")
	if v == "" {
		return s.now(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, goerr.Wrap(ErrInvalidParameter, "now must be RFC3339", goerr.V("now", v))
	}
	return t, nil
}

type digestResponse struct {
	Date       string       `json:"date"`
	Recipients model.Digest `json:"recipients"`
}

// digestHandler returns the pending digest without sending it
func (s *Server) digestHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	now, err := s.requestTime(r.URL.Query())
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	digest, err := s.uc.Digest.Digest(ctx, now)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, digestResponse{
		Date:       model.DateOf(now.In(s.uc.Schema().Digest.TimeZone())).String(),
		Recipients: digest,
	})
}

type flushResponse struct {
	Scan  *usecase.ScanResult  `json:"scan"`
	Flush *usecase.FlushResult `json:"flush"`
}

// digestFlushHandler scans and sends the digest. With async=true the run is
// dispatched in the background and 202 is returned immediately.
func (s *Server) digestFlushHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	now, err := s.requestTime(q)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}

	if q.Get("async") == "true" {
		async.Dispatch(ctx, "digest-flush", func(ctx context.Context) error {
			_, _, err := s.uc.Digest.Run(ctx, now)
			return err
		})
		writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	scan, err := s.uc.Digest.Scan(ctx, now)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}
	flush, err := s.uc.Digest.Flush(ctx, now)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, flushResponse{Scan: scan, Flush: flush})
}
