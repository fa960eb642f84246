package converter

import (
	"context"
	"sort"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// ColumnSet holds the handlers of every column an object type knows, in
// export order
type ColumnSet struct {
	Type      types.ObjectType
	handlers  []Handler
	byKey     map[string]Handler
	mandatory []string // keys that must be present to create records
}

// NewColumnSet builds the columns of t. defs are the stored custom attribute
// definitions of t; global ones become columns, local ones make their titles
// known so that the column is accepted.
func NewColumnSet(c *Converter, t types.ObjectType, defs []*model.CustomAttributeDefinition) *ColumnSet {
	s := &ColumnSet{
		Type:  t,
		byKey: make(map[string]Handler),
	}

	s.add(&codeHandler{}, false)
	s.add(&textHandler{
		key: keyTitle, column: "Title", mandatory: true,
		get: func(r *model.Record) string { return r.Title },
		set: func(r *model.Record, v string) { r.Title = v },
	}, true)
	s.add(&textHandler{
		key: keyDescription, column: "Description", flatten: true,
		get: func(r *model.Record) string { return r.Description },
		set: func(r *model.Record, v string) { r.Description = v },
	}, false)
	s.add(&textHandler{
		key: keyNotes, column: "Notes", flatten: true,
		get: func(r *model.Record) string { return r.Notes },
		set: func(r *model.Record, v string) { r.Notes = v },
	}, false)
	s.add(&stateHandler{}, false)

	if m, ok := model.ParentMapping(t); ok {
		s.add(&parentHandler{c: c, mapping: m}, true)
	}

	if model.IsTimeboxed(t) {
		s.add(&dateHandler{
			key: keyStartDate, column: "Start Date",
			get: func(r *model.Record) model.Date { return r.StartDate },
			set: func(r *model.Record, d model.Date) { r.StartDate = d },
		}, false)
		dueMandatory := t == types.ObjectTypeCycleTask
		s.add(&dateHandler{
			key: keyDueDate, column: "Due Date", mandatory: dueMandatory,
			get: func(r *model.Record) model.Date { return r.DueDate },
			set: func(r *model.Record, d model.Date) { r.DueDate = d },
		}, dueMandatory)
	}
	if model.HasEffectiveDate(t) {
		s.add(&dateHandler{
			key: keyEffectiveDate, column: "Effective Date",
			get: func(r *model.Record) model.Date { return r.EffectiveDate },
			set: func(r *model.Record, d model.Date) { r.EffectiveDate = d },
		}, false)
	}
	if t == types.ObjectTypeAudit {
		s.add(&archivedHandler{}, false)
	}

	if model.HasRoles(t) {
		for _, role := range c.schema.RolesFor(t) {
			if role.Internal {
				continue
			}
			s.add(&roleHandler{c: c, role: role}, role.Mandatory)
		}
	}

	for _, target := range model.MappableTypes(t) {
		s.add(&mappingHandler{c: c, target: target}, false)
		s.add(&unmappingHandler{c: c, target: target}, false)
	}
	for _, target := range []types.ObjectType{types.ObjectTypeControl, types.ObjectTypeObjective} {
		if model.CanMapSnapshot(t, target) {
			s.add(&snapshotHandler{c: c, target: target}, false)
		}
	}

	if model.HasComments(t) {
		s.add(&commentHandler{}, false)
	}
	if model.HasEvidence(t) {
		s.add(&evidenceURLHandler{c: c}, false)
		s.add(&evidenceFileHandler{c: c}, false)
	}

	if t == types.ObjectTypeAssessment || t == types.ObjectTypeCycleTask {
		s.add(&viewOnlyHandler{
			key: keyFinishedDate, column: "Finished Date", message: model.MsgUnmodifiableColumn, isDate: true,
			get: recordDateGetter(func(r *model.Record) model.Date { return r.FinishedDate }),
		}, false)
		s.add(&viewOnlyHandler{
			key: keyVerifiedDate, column: "Verified Date", message: model.MsgUnmodifiableColumn, isDate: true,
			get: recordDateGetter(func(r *model.Record) model.Date { return r.VerifiedDate }),
		}, false)
	}
	if statusHasDeprecated(t) {
		s.add(&viewOnlyHandler{
			key: keyLastDeprecatedDate, column: "Last Deprecated Date", message: model.MsgUnmodifiableColumn, isDate: true,
			get: recordDateGetter(func(r *model.Record) model.Date { return r.LastDeprecatedDate }),
		}, false)
	}
	s.add(&viewOnlyHandler{
		key: keyCreatedDate, column: "Created Date", message: model.MsgExportOnly, isDate: true,
		get: func(r *model.Record) string { return dateOfTime(r.CreatedAt) },
	}, false)
	s.add(&viewOnlyHandler{
		key: keyLastUpdatedDate, column: "Last Updated Date", message: model.MsgExportOnly, isDate: true,
		get: func(r *model.Record) string { return dateOfTime(r.UpdatedAt) },
	}, false)
	s.add(&viewOnlyHandler{
		key: keyLastUpdatedBy, column: "Last Updated By", message: model.MsgExportOnly,
		get: func(r *model.Record) string { return r.LastUpdatedBy },
	}, false)

	if model.HasCustomAttributes(t) {
		var locals []string
		seen := make(map[string]bool)
		for _, def := range defs {
			key := NormalizeHeader(def.Title)
			if def.ObjectType != t || seen[key] || s.byKey[key] != nil {
				continue
			}
			seen[key] = true
			if def.IsLocal() {
				locals = append(locals, def.Title)
				continue
			}
			s.add(&attributeHandler{c: c, title: def.Title, def: def}, false)
		}
		sort.Strings(locals)
		for _, title := range locals {
			s.add(&attributeHandler{c: c, title: title}, false)
		}
	}

	s.add(&deleteHandler{}, false)
	return s
}

func (s *ColumnSet) add(h Handler, mandatory bool) {
	if _, ok := s.byKey[h.Key()]; ok {
		return
	}
	s.handlers = append(s.handlers, h)
	s.byKey[h.Key()] = h
	if mandatory {
		s.mandatory = append(s.mandatory, h.Key())
	}
}

// Handlers returns every handler in export order
func (s *ColumnSet) Handlers() []Handler {
	return s.handlers
}

// Lookup finds the handler of a normalized column key
func (s *ColumnSet) Lookup(key string) (Handler, bool) {
	h, ok := s.byKey[key]
	return h, ok
}

// IsMandatory reports whether a column must be present to create records
func (s *ColumnSet) IsMandatory(key string) bool {
	for _, k := range s.mandatory {
		if k == key {
			return true
		}
	}
	return false
}

// ExportHandlers returns the exported columns. With fields given only the
// matching columns are returned, Code always first.
func (s *ColumnSet) ExportHandlers(fields []string) []Handler {
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[NormalizeHeader(f)] = true
	}

	var out []Handler
	for _, h := range s.handlers {
		if _, skip := h.(importOnly); skip {
			continue
		}
		if len(wanted) > 0 && h.Key() != keyCode && !wanted[h.Key()] {
			continue
		}
		out = append(out, h)
	}
	return out
}

// HeaderName returns the column name as exported. Mandatory columns carry
// a trailing "*".
func (s *ColumnSet) HeaderName(h Handler) string {
	if s.IsMandatory(h.Key()) {
		return h.Column() + "*"
	}
	return h.Column()
}

// binding is a header matched against a column set
type binding struct {
	columns []Handler // by header position, nil for ignored columns
	present map[string]bool
	missing []string // mandatory column names absent from the header
}

// Bind matches the header row. Block errors mean the block must be skipped.
func (s *ColumnSet) Bind(line int, header []string) (*binding, []string, []string) {
	var blockErrors, blockWarnings []string

	empty := true
	for _, cell := range header {
		if strings.TrimSpace(cell) != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, []string{model.LineMessage(line, model.MsgEmptyHeader)}, nil
	}

	counts := make(map[string]int)
	var order []string
	for _, cell := range header {
		key := NormalizeHeader(cell)
		if key == "" {
			continue
		}
		if counts[key] == 0 {
			order = append(order, cell)
		}
		counts[key]++
	}
	var dups []string
	for _, cell := range order {
		if counts[NormalizeHeader(cell)] > 1 {
			dups = append(dups, strings.TrimSpace(cell))
		}
	}
	if len(dups) > 0 {
		blockErrors = append(blockErrors, model.LineMessage(line, model.MsgDuplicateColumns, strings.Join(dups, ", ")))
		return nil, blockErrors, nil
	}

	b := &binding{
		columns: make([]Handler, len(header)),
		present: make(map[string]bool),
	}
	for i, cell := range header {
		key := NormalizeHeader(cell)
		if key == "" {
			continue
		}
		if h, ok := s.byKey[key]; ok {
			b.columns[i] = h
			b.present[key] = true
			continue
		}
		if mh, ok := parseMappingHeader(key); ok {
			blockWarnings = append(blockWarnings, model.LineMessage(line, model.MsgUnsupportedMapping,
				s.Type.DisplayName(), mappingTargetAsWritten(cell, mh), key))
			continue
		}
		blockWarnings = append(blockWarnings, model.LineMessage(line, model.MsgUnknownColumn, key))
	}

	for _, key := range s.mandatory {
		if !b.present[key] {
			b.missing = append(b.missing, s.byKey[key].Column())
		}
	}
	return b, nil, blockWarnings
}

// mappingTargetAsWritten returns the object name of a map: column as the
// header spelled it
func mappingTargetAsWritten(cell string, mh mappingHeader) string {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cell), "*"))
	if i := strings.Index(s, ":"); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	if mh.versions && len(s) > len(" versions") {
		s = strings.TrimSpace(s[:len(s)-len(" versions")])
	}
	return s
}

// definitionsFor merges the schema's global definitions with the stored ones
func (c *Converter) definitionsFor(ctx context.Context, t types.ObjectType) ([]*model.CustomAttributeDefinition, error) {
	stored, err := c.session.Definitions(ctx, t)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var defs []*model.CustomAttributeDefinition
	for _, d := range c.schema.GlobalAttributes(t) {
		def := d
		if def.ID == "" {
			def.ID = model.CADID(def.ObjectType, def.DefinitionID, def.Title)
		}
		seen[def.ID] = true
		defs = append(defs, &def)
	}
	for _, d := range stored {
		if !seen[d.ID] {
			seen[d.ID] = true
			defs = append(defs, d)
		}
	}
	return defs, nil
}
