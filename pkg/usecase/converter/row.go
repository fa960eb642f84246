package converter

import (
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Row is the working state of one data row. Handlers only touch the row; the
// session sees nothing until the whole row validated.
type Row struct {
	Line     int
	Type     types.ObjectType
	Record   *model.Record // working copy
	Existing *model.Record // nil when the row creates a record

	present  map[string]bool
	errors   []string
	warnings []string

	requested *types.Status
	archived  *bool
	parent    *model.ObjectRef
	roles     map[string][]string // role ID -> replacement person IDs
	persons   map[string]*model.Person
	mapAdd    []model.ObjectRef
	mapRemove []model.ObjectRef
	versions  map[types.ObjectType][]string
	snapshots []*model.Snapshot
	comments  []string
	values    map[string]string // definition ID -> canonical value
	emptyCAs  []*model.CustomAttributeDefinition
	evidence  []*model.Evidence
	delete    bool
}

func newRow(line int, t types.ObjectType, present map[string]bool) *Row {
	return &Row{
		Line:     line,
		Type:     t,
		present:  present,
		roles:    make(map[string][]string),
		persons:  make(map[string]*model.Person),
		versions: make(map[types.ObjectType][]string),
		values:   make(map[string]string),
	}
}

// IsNew reports whether the row creates a record
func (r *Row) IsNew() bool {
	return r.Existing == nil
}

// Has reports whether the block has the column with the normalized key
func (r *Row) Has(key string) bool {
	return r.present[key]
}

// Error records a row error. The row will be skipped.
func (r *Row) Error(format string, args ...any) {
	r.errors = append(r.errors, model.LineMessage(r.Line, format, args...))
}

// Warning records a row warning. The row is still applied.
func (r *Row) Warning(format string, args ...any) {
	r.warnings = append(r.warnings, model.LineMessage(r.Line, format, args...))
}

// HasErrors reports whether any handler rejected the row
func (r *Row) HasErrors() bool {
	return len(r.errors) > 0
}

// Errors returns the row errors in the order they were raised
func (r *Row) Errors() []string {
	return r.errors
}

// Warnings returns the row warnings in the order they were raised
func (r *Row) Warnings() []string {
	return r.warnings
}
