package converter

import (
	"context"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Handler parses and exports one column. Parse only mutates the row and
// reports problems as row messages; a returned error means a collaborator
// such as the repository failed.
type Handler interface {
	Key() string
	Column() string
	Parse(ctx context.Context, row *Row, raw string) error
	Export(ctx context.Context, row *ExportRow) string
}

// resolver is implemented by handlers that need the values of other columns
// of the same row. Resolve runs after every Parse of the row.
type resolver interface {
	Resolve(ctx context.Context, row *Row) error
}

// importOnly marks handlers that have no export column
type importOnly interface {
	importOnly()
}

// splitMulti splits a multi-value cell and drops empty fragments
func splitMulti(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitLines splits a newline separated cell
func splitLines(raw string) []string {
	return splitMulti(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
}

// splitEmails splits on newlines, commas and semicolons
func splitEmails(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';' || r == ' ' || r == '\t'
	})
}

const clearMarker = "--"

// codeHandler carries the Code column. The code is read by the block
// converter before handlers run.
type codeHandler struct{}

func (h *codeHandler) Key() string    { return keyCode }
func (h *codeHandler) Column() string { return "Code" }

func (h *codeHandler) Parse(ctx context.Context, row *Row, raw string) error {
	return nil
}

func (h *codeHandler) Export(ctx context.Context, row *ExportRow) string {
	return row.Record.Slug
}

// textHandler sets a free-text field
type textHandler struct {
	key       string
	column    string
	mandatory bool
	get       func(*model.Record) string
	set       func(*model.Record, string)
	flatten   bool
}

func (h *textHandler) Key() string    { return h.key }
func (h *textHandler) Column() string { return h.column }

func (h *textHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		if h.mandatory && row.IsNew() {
			row.Error(model.MsgMissingValue, h.column)
		}
		return nil
	}
	h.set(row.Record, value)
	return nil
}

func (h *textHandler) Export(ctx context.Context, row *ExportRow) string {
	if h.flatten {
		return flattenRichText(h.get(row.Record))
	}
	return h.get(row.Record)
}

// dateHandler sets a date field. "--" clears optional dates.
type dateHandler struct {
	key       string
	column    string
	mandatory bool
	get       func(*model.Record) model.Date
	set       func(*model.Record, model.Date)
}

func (h *dateHandler) Key() string    { return h.key }
func (h *dateHandler) Column() string { return h.column }

func (h *dateHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		if h.mandatory && row.IsNew() {
			row.Error(model.MsgMissingValue, h.column)
		}
		return nil
	case value == clearMarker:
		if h.mandatory {
			row.Warning(model.MsgWrongValue, h.column)
			return nil
		}
		h.set(row.Record, "")
		return nil
	}

	d, ok := model.ParseDate(value)
	if !ok {
		if h.mandatory && row.IsNew() {
			row.Error(model.MsgMissingValue, h.column)
			return nil
		}
		row.Warning(model.MsgWrongValue, h.column)
		return nil
	}
	h.set(row.Record, d)
	return nil
}

func (h *dateHandler) Export(ctx context.Context, row *ExportRow) string {
	return h.get(row.Record).ExportString()
}

// archivedHandler parses the Archived checkbox of audits
type archivedHandler struct{}

func (h *archivedHandler) Key() string    { return keyArchived }
func (h *archivedHandler) Column() string { return "Archived" }

func (h *archivedHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	b, ok := model.ParseBool(value)
	if !ok {
		row.Warning(model.MsgWrongValue, h.Column())
		return nil
	}
	row.archived = &b
	row.Record.Archived = b
	return nil
}

func (h *archivedHandler) Export(ctx context.Context, row *ExportRow) string {
	if row.Record.Archived {
		return "yes"
	}
	return "no"
}

// viewOnlyHandler exports a system managed value and warns when an import
// tries to change it
type viewOnlyHandler struct {
	key     string
	column  string
	message string // MsgExportOnly or MsgUnmodifiableColumn
	get     func(*model.Record) string
	isDate  bool
}

func (h *viewOnlyHandler) Key() string    { return h.key }
func (h *viewOnlyHandler) Column() string { return h.column }

func (h *viewOnlyHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	var current string
	if row.Existing != nil {
		current = h.get(row.Existing)
	}
	if value == clearMarker && current == "" {
		return nil
	}

	if h.isDate {
		if d, ok := model.ParseDate(value); ok && string(d) == current {
			return nil
		}
	} else if strings.EqualFold(value, current) {
		return nil
	}

	row.Warning(h.message, h.column)
	return nil
}

func (h *viewOnlyHandler) Export(ctx context.Context, row *ExportRow) string {
	v := h.get(row.Record)
	if h.isDate {
		return model.Date(v).ExportString()
	}
	return v
}

// deleteHandler marks an existing record for deletion
type deleteHandler struct{}

func (h *deleteHandler) Key() string    { return keyDelete }
func (h *deleteHandler) Column() string { return "Delete" }
func (h *deleteHandler) importOnly()    {}

func (h *deleteHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return nil
	case "yes", "true", "force", "y", "1":
		if row.IsNew() {
			row.Error(model.MsgDeleteNewObject)
			return nil
		}
		row.delete = true
	case "no", "false", "n", "0":
	default:
		row.Warning(model.MsgWrongValue, h.Column())
	}
	return nil
}

func (h *deleteHandler) Export(ctx context.Context, row *ExportRow) string {
	return ""
}

func recordDateGetter(f func(*model.Record) model.Date) func(*model.Record) string {
	return func(r *model.Record) string { return string(f(r)) }
}

func statusHasDeprecated(t types.ObjectType) bool {
	_, ok := types.ParseStatus(t, string(types.StatusDeprecated))
	return ok
}
