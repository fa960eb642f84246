package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	server "github.com/secmon-lab/grcbook/pkg/controller/http"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/repository/memory"
	"github.com/secmon-lab/grcbook/pkg/usecase"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const programsAndControls = "Object type,Program\n" +
	"Code,Title,Program Managers\n" +
	"PROGRAM-A,Privacy,alice@example.com\n" +
	"\n" +
	"Object type,Control\n" +
	"Code,Title,Admin,map:Program\n" +
	",Encrypt laptops,bob@example.com,PROGRAM-A\n"

const workflowFile = "Object type,Cycle\n" +
	"Code,Title,Start Date,Due Date,Admin\n" +
	"CYCLE-A,Q1 review,03/10/2026,03/31/2026,admin@example.com\n" +
	"\n" +
	"Object type,Cycle Task\n" +
	"Code,Title,Cycle,Due Date,Task Assignees\n" +
	"TASK-1,Collect evidence,CYCLE-A,03/11/2026,bob@example.com\n"

type recordingNotifier struct {
	mu         sync.Mutex
	recipients []string
}

func (n *recordingNotifier) Notify(ctx context.Context, msg *model.DigestMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, msg.Recipient)
	return nil
}

func newServer(t *testing.T, repo *memory.Memory, opts ...any) *server.Server {
	t.Helper()
	var ucOpts []usecase.Option
	var srvOpts []server.Options
	for _, opt := range opts {
		switch v := opt.(type) {
		case usecase.Option:
			ucOpts = append(ucOpts, v)
		case server.Options:
			srvOpts = append(srvOpts, v)
		}
	}
	clock := func() time.Time { return fixedNow }
	ucOpts = append(ucOpts, usecase.WithClock(clock))
	srvOpts = append(srvOpts, server.WithClock(clock))

	srv, err := server.New(usecase.New(repo, ucOpts...), srvOpts...)
	gt.NoError(t, err).Required()
	return srv
}

func do(srv http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeResults(t *testing.T, body io.Reader) []*model.BlockResult {
	t.Helper()
	var results []*model.BlockResult
	gt.NoError(t, json.NewDecoder(body).Decode(&results)).Required()
	return results
}

func TestHealth(t *testing.T) {
	srv := newServer(t, memory.New())
	w := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	gt.Number(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"status":"ok"`)
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, memory.New())
	body := strings.NewReader(programsAndControls)
	do(srv, httptest.NewRequest(http.MethodPost, "/api/import", body))

	w := do(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	gt.Number(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains("grcbook_import_rows_total")
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("raw csv body", func(t *testing.T) {
		repo := memory.New()
		srv := newServer(t, repo)

		req := httptest.NewRequest(http.MethodPost, "/api/import?actor=importer@example.com", strings.NewReader(programsAndControls))
		req.Header.Set("Content-Type", "text/csv")
		w := do(srv, req)
		gt.Number(t, w.Code).Equal(http.StatusOK)

		results := decodeResults(t, w.Body)
		gt.Array(t, results).Length(2).Required()
		gt.Number(t, results[0].Created).Equal(1)
		gt.Number(t, results[1].Created).Equal(1)

		controls, err := repo.Record().List(ctx, types.ObjectTypeControl)
		gt.NoError(t, err).Required()
		gt.Array(t, controls).Length(1).Required()
		gt.Value(t, controls[0].LastUpdatedBy).Equal("importer@example.com")
	})

	t.Run("multipart upload", func(t *testing.T) {
		repo := memory.New()
		srv := newServer(t, repo)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", "records.csv")
		gt.NoError(t, err).Required()
		_, err = fw.Write([]byte(programsAndControls))
		gt.NoError(t, err).Required()
		gt.NoError(t, mw.Close()).Required()

		req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := do(srv, req)
		gt.Number(t, w.Code).Equal(http.StatusOK)
		gt.Array(t, decodeResults(t, w.Body)).Length(2)
	})

	t.Run("json blocks", func(t *testing.T) {
		repo := memory.New()
		srv := newServer(t, repo)

		body := `{"blocks":[{"object_type":"Program","header":["Code","Title","Program Managers"],"rows":[["PROGRAM-B","Security","pm@example.com"],["","Privacy","pm@example.com"]]}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := do(srv, req)
		gt.Number(t, w.Code).Equal(http.StatusOK)

		results := decodeResults(t, w.Body)
		gt.Array(t, results).Length(1).Required()
		gt.Array(t, results[0].RowErrors).Length(0)
		gt.Number(t, results[0].Created).Equal(2)

		program, err := repo.Record().GetBySlug(ctx, types.ObjectTypeProgram, "PROGRAM-B")
		gt.NoError(t, err).Required()
		gt.Value(t, program).NotNil()
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		repo := memory.New()
		srv := newServer(t, repo)

		req := httptest.NewRequest(http.MethodPost, "/api/import?dry_run=true&commit=row", strings.NewReader(programsAndControls))
		w := do(srv, req)
		gt.Number(t, w.Code).Equal(http.StatusOK)
		gt.Number(t, decodeResults(t, w.Body)[0].Created).Equal(1)

		programs, err := repo.Record().List(ctx, types.ObjectTypeProgram)
		gt.NoError(t, err).Required()
		gt.Array(t, programs).Length(0)
	})

	t.Run("bad parameters", func(t *testing.T) {
		srv := newServer(t, memory.New())

		w := do(srv, httptest.NewRequest(http.MethodPost, "/api/import?commit=never", strings.NewReader(programsAndControls)))
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)

		w = do(srv, httptest.NewRequest(http.MethodPost, "/api/import?dry_run=maybe", strings.NewReader(programsAndControls)))
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)

		w = do(srv, httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("Code,Title\nA,B\n")))
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)

		req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`{"blocks":[]}`))
		req.Header.Set("Content-Type", "application/json")
		gt.Number(t, do(srv, req).Code).Equal(http.StatusBadRequest)
	})
}

func TestExport(t *testing.T) {
	repo := memory.New()
	srv := newServer(t, repo)
	w := do(srv, httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(programsAndControls)))
	gt.Number(t, w.Code).Equal(http.StatusOK)

	t.Run("csv", func(t *testing.T) {
		w := do(srv, httptest.NewRequest(http.MethodGet, "/api/export?object_type=Program&field=Title", nil))
		gt.Number(t, w.Code).Equal(http.StatusOK)
		gt.Value(t, w.Header().Get("Content-Type")).Equal("text/csv")
		gt.String(t, w.Header().Get("Content-Disposition")).Contains("export-20260310.csv")
		gt.String(t, w.Body.String()).Contains("Object type,Program\nCode,Title*\nPROGRAM-A,Privacy\n")
	})

	t.Run("xlsx", func(t *testing.T) {
		w := do(srv, httptest.NewRequest(http.MethodGet, "/api/export?object_type=Program&object_type=Control&format=xlsx", nil))
		gt.Number(t, w.Code).Equal(http.StatusOK)
		gt.String(t, w.Header().Get("Content-Disposition")).Contains(".xlsx")
		gt.Bool(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK"))).True()
	})

	t.Run("bad parameters", func(t *testing.T) {
		for _, path := range []string{
			"/api/export",
			"/api/export?object_type=Spreadsheet",
			"/api/export?object_type=Program&status=Finished",
			"/api/export?object_type=Program&format=pdf",
		} {
			w := do(srv, httptest.NewRequest(http.MethodGet, path, nil))
			gt.Number(t, w.Code).Equal(http.StatusBadRequest)
		}
	})
}

func TestDigest(t *testing.T) {
	t.Run("pending digest and flush", func(t *testing.T) {
		repo := memory.New()
		notifier := &recordingNotifier{}
		srv := newServer(t, repo, usecase.WithNotifiers(notifier))

		w := do(srv, httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(workflowFile)))
		gt.Number(t, w.Code).Equal(http.StatusOK)

		w = do(srv, httptest.NewRequest(http.MethodPost, "/api/digest/flush", nil))
		gt.Number(t, w.Code).Equal(http.StatusOK)

		var resp struct {
			Scan  usecase.ScanResult  `json:"scan"`
			Flush usecase.FlushResult `json:"flush"`
		}
		gt.NoError(t, json.NewDecoder(w.Body).Decode(&resp)).Required()
		gt.Bool(t, resp.Scan.Created > 0).True()
		gt.Array(t, resp.Flush.Sent).Has("bob@example.com")
		gt.Array(t, notifier.recipients).Has("admin@example.com")

		w = do(srv, httptest.NewRequest(http.MethodGet, "/api/digest", nil))
		gt.Number(t, w.Code).Equal(http.StatusOK)
		var digest struct {
			Date       string       `json:"date"`
			Recipients model.Digest `json:"recipients"`
		}
		gt.NoError(t, json.NewDecoder(w.Body).Decode(&digest)).Required()
		gt.Value(t, digest.Date).Equal("2026-03-10")
		gt.Number(t, len(digest.Recipients)).Equal(0)
	})

	t.Run("flush without notifier", func(t *testing.T) {
		srv := newServer(t, memory.New())
		w := do(srv, httptest.NewRequest(http.MethodPost, "/api/digest/flush", nil))
		gt.Number(t, w.Code).Equal(http.StatusServiceUnavailable)
	})

	t.Run("invalid now", func(t *testing.T) {
		srv := newServer(t, memory.New())
		w := do(srv, httptest.NewRequest(http.MethodGet, "/api/digest?now=yesterday", nil))
		gt.Number(t, w.Code).Equal(http.StatusBadRequest)
	})
}

func TestAPIToken(t *testing.T) {
	srv := newServer(t, memory.New(), server.WithAPIToken("s3cret"))

	w := do(srv, httptest.NewRequest(http.MethodGet, "/api/digest", nil))
	gt.Number(t, w.Code).Equal(http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/digest", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	gt.Number(t, do(srv, req).Code).Equal(http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/api/digest", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	gt.Number(t, do(srv, req).Code).Equal(http.StatusOK)

	// health stays open
	gt.Number(t, do(srv, httptest.NewRequest(http.MethodGet, "/health", nil)).Code).Equal(http.StatusOK)
}
