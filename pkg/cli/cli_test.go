package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/cli"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/usecase"
)

func init() {
	color.NoColor = true
}

const programsCSV = "Object type,Program\n" +
	"Code,Title,Program Managers\n" +
	"PROGRAM-A,Privacy,alice@example.com\n"

func TestParseNow(t *testing.T) {
	t.Run("RFC3339", func(t *testing.T) {
		got, err := cli.ParseNow("2026-03-10T09:00:00Z")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Equal(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))).Equal(true)
	})

	t.Run("date only", func(t *testing.T) {
		got, err := cli.ParseNow("2026-03-10")
		gt.NoError(t, err).Required()
		gt.Value(t, model.DateOf(got)).Equal(model.Date("2026-03-10"))
	})

	t.Run("empty is now", func(t *testing.T) {
		got, err := cli.ParseNow("")
		gt.NoError(t, err).Required()
		gt.Bool(t, got.IsZero()).False()
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := cli.ParseNow("next tuesday")
		gt.Error(t, err).Is(cli.ErrInvalidTime)
	})
}

func TestPrintImportSummary(t *testing.T) {
	results := []*model.BlockResult{
		{Name: "Program", Rows: 2, Created: 1, Updated: 1},
		{
			Name:        "Control",
			Rows:        1,
			Ignored:     1,
			RowErrors:   []string{"Line 6: Title is required."},
			RowWarnings: []string{"Line 6: Unknown column 'Color'."},
		},
	}

	var buf bytes.Buffer
	cli.PrintImportSummary(&buf, "controls.csv", results, true)
	out := buf.String()
	gt.String(t, out).Contains("controls.csv (dry run)")
	gt.String(t, out).Contains("rows: 2, created: 1, updated: 1, deleted: 0, ignored: 0")
	gt.String(t, out).Contains("error: Line 6: Title is required.")
	gt.String(t, out).Contains("warning: Line 6: Unknown column 'Color'.")
	gt.String(t, out).Contains("total: 3 rows, 1 created, 1 updated, 1 errors, 1 warnings")
}

func TestPrintDigest(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		cli.PrintDigest(&buf, model.Digest{})
		gt.String(t, buf.String()).Contains("No pending notifications")
	})

	t.Run("grouped by recipient and kind", func(t *testing.T) {
		digest := model.Digest{
			"bob@example.com": {
				types.NotificationTaskOverdue: {
					{ID: "t1", Slug: "TASK-1", Title: "Collect evidence", DueDate: model.Date("2026-03-09")},
				},
				types.NotificationDueToday: {
					{ID: "t2", Slug: "TASK-2", Title: "Review", DueDate: model.Date("2026-03-10")},
				},
			},
		}
		var buf bytes.Buffer
		cli.PrintDigest(&buf, digest)
		want := "bob@example.com\n" +
			"  Tasks due today\n" +
			"    TASK-2 Review (due 03/10/2026)\n" +
			"  Overdue tasks\n" +
			"    TASK-1 Collect evidence (due 03/09/2026)\n"
		gt.Value(t, buf.String()).Equal(want)
	})
}

func TestRun_ImportCommand(t *testing.T) {
	ctx := context.Background()
	base := []string{"grcbook", "import", "--repository-backend", "memory"}

	t.Run("imports a CSV file", func(t *testing.T) {
		path := writeFile(t, "programs.csv", programsCSV)
		gt.NoError(t, cli.Run(ctx, append(base, path), "test"))
	})

	t.Run("dry run with JSON output", func(t *testing.T) {
		path := writeFile(t, "programs.csv", programsCSV)
		gt.NoError(t, cli.Run(ctx, append(base, "--dry-run", "--json", path), "test"))
	})

	t.Run("no file", func(t *testing.T) {
		gt.Error(t, cli.Run(ctx, base, "test")).Is(cli.ErrNoInputFile)
	})

	t.Run("strict fails on block errors", func(t *testing.T) {
		path := writeFile(t, "widgets.csv", "Object type,Widget\nCode,Title\nW-1,Gear\n")
		gt.NoError(t, cli.Run(ctx, append(base, path), "test"))
		gt.Error(t, cli.Run(ctx, append(base, "--strict", path), "test")).Is(cli.ErrImportHasError)
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.csv")
		gt.Error(t, cli.Run(ctx, append(base, path), "test"))
	})
}

func TestRun_ExportCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the header of an empty repository", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "export.csv")
		gt.NoError(t, cli.Run(ctx, []string{
			"grcbook", "export", "--repository-backend", "memory",
			"--object-type", "Program", "--field", "Title", "-o", out,
		}, "test")).Required()

		data, err := os.ReadFile(out)
		gt.NoError(t, err).Required()
		gt.String(t, string(data)).Contains("Object type,Program\nCode,Title*\n")
	})

	t.Run("xlsx inferred from the file name", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "export.xlsx")
		gt.NoError(t, cli.Run(ctx, []string{
			"grcbook", "export", "--repository-backend", "memory",
			"--object-type", "Control", "-o", out,
		}, "test")).Required()

		data, err := os.ReadFile(out)
		gt.NoError(t, err).Required()
		gt.Bool(t, bytes.HasPrefix(data, []byte("PK"))).True()
	})

	t.Run("unknown object type", func(t *testing.T) {
		err := cli.Run(ctx, []string{
			"grcbook", "export", "--repository-backend", "memory",
			"--object-type", "Widget",
		}, "test")
		gt.Error(t, err)
	})
}

func TestRun_DigestCommand(t *testing.T) {
	ctx := context.Background()
	base := []string{"grcbook", "digest", "--repository-backend", "memory", "--now", "2026-03-10"}

	t.Run("shows an empty digest", func(t *testing.T) {
		gt.NoError(t, cli.Run(ctx, base, "test"))
	})

	t.Run("send needs a notifier", func(t *testing.T) {
		gt.Error(t, cli.Run(ctx, append(base, "--send"), "test")).Is(usecase.ErrNoNotifier)
	})

	t.Run("invalid time", func(t *testing.T) {
		args := []string{"grcbook", "digest", "--repository-backend", "memory", "--now", "soon"}
		gt.Error(t, cli.Run(ctx, args, "test")).Is(cli.ErrInvalidTime)
	})
}
