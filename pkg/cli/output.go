package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

var (
	headColor = color.New(color.Bold)
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to encode output")
	}
	return nil
}

// printImportSummary writes one section per block followed by the totals
func printImportSummary(w io.Writer, file string, results []*model.BlockResult, dryRun bool) {
	title := file
	if dryRun {
		title += " (dry run)"
	}
	_, _ = headColor.Fprintln(w, title)

	for _, b := range results {
		_, _ = headColor.Fprintf(w, "  %s\n", b.Name)
		_, _ = fmt.Fprintf(w, "    rows: %d, created: %d, updated: %d, deleted: %d, ignored: %d",
			b.Rows, b.Created, b.Updated, b.Deleted, b.Ignored)
		if b.Deprecated > 0 {
			_, _ = fmt.Fprintf(w, ", deprecated: %d", b.Deprecated)
		}
		_, _ = fmt.Fprintln(w)

		for _, msg := range b.BlockErrors {
			_, _ = errColor.Fprintf(w, "    error: %s\n", msg)
		}
		for _, msg := range b.RowErrors {
			_, _ = errColor.Fprintf(w, "    error: %s\n", msg)
		}
		for _, msg := range b.BlockWarnings {
			_, _ = warnColor.Fprintf(w, "    warning: %s\n", msg)
		}
		for _, msg := range b.RowWarnings {
			_, _ = warnColor.Fprintf(w, "    warning: %s\n", msg)
		}
	}

	totals := model.SumBlocks(results)
	summary := fmt.Sprintf("  total: %d rows, %d created, %d updated, %d errors, %d warnings\n",
		totals.Rows, totals.Created, totals.Updated, totals.Errors, totals.Warnings)
	switch {
	case totals.Errors > 0:
		_, _ = errColor.Fprint(w, summary)
	case totals.Warnings > 0:
		_, _ = warnColor.Fprint(w, summary)
	default:
		_, _ = okColor.Fprint(w, summary)
	}
}

// printDigest writes the pending digest grouped by recipient
func printDigest(w io.Writer, digest model.Digest) {
	if len(digest) == 0 {
		_, _ = okColor.Fprintln(w, "No pending notifications")
		return
	}

	recipients := make([]string, 0, len(digest))
	for r := range digest {
		recipients = append(recipients, r)
	}
	sort.Strings(recipients)

	for _, r := range recipients {
		_, _ = headColor.Fprintln(w, r)
		for _, kind := range types.AllNotificationKinds() {
			refs := digest[r][kind]
			if len(refs) == 0 {
				continue
			}
			_, _ = fmt.Fprintf(w, "  %s\n", kind.Title())
			for _, ref := range refs {
				_, _ = fmt.Fprintf(w, "    %s %s (due %s)\n", ref.Slug, ref.Title, ref.DueDate.ExportString())
			}
		}
	}
}
