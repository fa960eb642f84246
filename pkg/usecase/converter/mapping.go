package converter

import (
	"context"
	"strings"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// mappingHandler adds relationships from a map:<Type> column
type mappingHandler struct {
	c      *Converter
	target types.ObjectType
}

func (h *mappingHandler) Key() string { return mappingKey(h.target, false, false) }
func (h *mappingHandler) Column() string {
	return "map:" + h.target.DisplayName()
}

func (h *mappingHandler) Parse(ctx context.Context, row *Row, raw string) error {
	for _, slug := range splitLines(raw) {
		rec, err := h.c.session.Record(ctx, h.target, slug)
		if err != nil {
			return err
		}
		if rec == nil {
			row.Warning(model.MsgUnknownObject, h.target.DisplayName(), slug)
			continue
		}
		row.mapAdd = append(row.mapAdd, rec.Ref())
	}
	return nil
}

// Resolve enforces that an issue is mapped to at most one audit
func (h *mappingHandler) Resolve(ctx context.Context, row *Row) error {
	if row.Type != types.ObjectTypeIssue || h.target != types.ObjectTypeAudit {
		return nil
	}

	removed := make(map[model.ObjectRef]bool)
	for _, ref := range row.mapRemove {
		removed[ref] = true
	}

	var audit *model.ObjectRef
	if row.Existing != nil {
		current, err := h.c.session.Related(ctx, row.Existing.Ref(), types.ObjectTypeAudit)
		if err != nil {
			return err
		}
		for _, ref := range current {
			if !removed[ref] {
				r := ref
				audit = &r
				break
			}
		}
	}

	kept := row.mapAdd[:0:0]
	for _, ref := range row.mapAdd {
		if ref.Type != types.ObjectTypeAudit {
			kept = append(kept, ref)
			continue
		}
		if audit != nil && *audit != ref {
			rec, err := h.c.session.RecordByRef(ctx, ref)
			if err != nil {
				return err
			}
			slug := ref.ID
			if rec != nil {
				slug = rec.Slug
			}
			row.Warning(model.MsgSingleAuditRestriction, row.Type.DisplayName(), slug, row.Type.DisplayName())
			continue
		}
		r := ref
		audit = &r
		kept = append(kept, ref)
	}
	row.mapAdd = kept
	return nil
}

func (h *mappingHandler) Export(ctx context.Context, row *ExportRow) string {
	return joinSlugs(row.Related[h.target])
}

// unmappingHandler removes relationships listed in an unmap:<Type> column
type unmappingHandler struct {
	c      *Converter
	target types.ObjectType
}

func (h *unmappingHandler) Key() string { return mappingKey(h.target, true, false) }
func (h *unmappingHandler) Column() string {
	return "unmap:" + h.target.DisplayName()
}
func (h *unmappingHandler) importOnly() {}

func (h *unmappingHandler) Parse(ctx context.Context, row *Row, raw string) error {
	for _, slug := range splitLines(raw) {
		rec, err := h.c.session.Record(ctx, h.target, slug)
		if err != nil {
			return err
		}
		if rec == nil {
			row.Warning(model.MsgUnknownObject, h.target.DisplayName(), slug)
			continue
		}
		row.mapRemove = append(row.mapRemove, rec.Ref())
	}
	return nil
}

func (h *unmappingHandler) Export(ctx context.Context, row *ExportRow) string {
	return ""
}

// parentHandler is the single valued mandatory mapping shown as a plain
// column, such as the Audit of an Assessment. It cannot be changed after
// the record is created.
type parentHandler struct {
	c       *Converter
	mapping model.FieldMapping
}

func (h *parentHandler) Key() string    { return NormalizeHeader(h.mapping.Column) }
func (h *parentHandler) Column() string { return h.mapping.Column }

func (h *parentHandler) Parse(ctx context.Context, row *Row, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		if row.IsNew() {
			row.Error(model.MsgMissingValue, h.mapping.Column)
		}
		return nil
	}

	rec, err := h.c.session.Record(ctx, h.mapping.Target, value)
	if err != nil {
		return err
	}

	if row.Existing != nil {
		current, err := h.c.session.Related(ctx, row.Existing.Ref(), h.mapping.Target)
		if err != nil {
			return err
		}
		if rec != nil {
			for _, ref := range current {
				if ref == rec.Ref() {
					return nil
				}
			}
		}
		row.Warning(model.MsgUnmodifiableColumn, h.mapping.Column)
		return nil
	}

	if rec == nil {
		row.Warning(model.MsgUnknownObject, h.mapping.Target.DisplayName(), value)
		row.Error(model.MsgMissingValue, h.mapping.Column)
		return nil
	}
	ref := rec.Ref()
	row.parent = &ref
	return nil
}

func (h *parentHandler) Export(ctx context.Context, row *ExportRow) string {
	if related := row.Related[h.mapping.Target]; len(related) > 0 {
		return related[0].Slug
	}
	return ""
}

// parentOf returns the parent of the row's record, from this row or from
// the stored relationships
func (c *Converter) parentOf(ctx context.Context, row *Row, target types.ObjectType) (*model.ObjectRef, error) {
	if row.parent != nil && row.parent.Type == target {
		return row.parent, nil
	}
	if row.Existing == nil {
		return nil, nil
	}
	related, err := c.session.Related(ctx, row.Existing.Ref(), target)
	if err != nil {
		return nil, err
	}
	if len(related) == 0 {
		return nil, nil
	}
	return &related[0], nil
}

// snapshotHandler handles map:<Type> versions columns. Audits take snapshots
// of objects mapped to their program; assessments map to those snapshots;
// issues can not be mapped to snapshots at all.
type snapshotHandler struct {
	c      *Converter
	target types.ObjectType
}

func (h *snapshotHandler) Key() string { return mappingKey(h.target, false, true) }
func (h *snapshotHandler) Column() string {
	return "map:" + h.target.DisplayName() + " versions"
}

func (h *snapshotHandler) Parse(ctx context.Context, row *Row, raw string) error {
	slugs := splitLines(raw)
	if len(slugs) == 0 {
		return nil
	}
	if row.Type == types.ObjectTypeIssue {
		row.Warning(model.MsgIssueSnapshotMap, h.target.DisplayName())
		return nil
	}
	row.versions[h.target] = append(row.versions[h.target], slugs...)
	return nil
}

func (h *snapshotHandler) Resolve(ctx context.Context, row *Row) error {
	slugs := row.versions[h.target]
	if len(slugs) == 0 {
		return nil
	}

	switch row.Type {
	case types.ObjectTypeAudit:
		return h.resolveAudit(ctx, row, slugs)
	case types.ObjectTypeAssessment:
		return h.resolveAssessment(ctx, row, slugs)
	}
	return nil
}

func (h *snapshotHandler) resolveAudit(ctx context.Context, row *Row, slugs []string) error {
	program, err := h.c.parentOf(ctx, row, types.ObjectTypeProgram)
	if err != nil {
		return err
	}

	var existing []*model.Snapshot
	if row.Existing != nil {
		existing, err = h.c.session.Snapshots(ctx, row.Existing.Ref())
		if err != nil {
			return err
		}
	}

	for _, slug := range slugs {
		live, err := h.c.session.Record(ctx, h.target, slug)
		if err != nil {
			return err
		}
		if live == nil || program == nil {
			row.Warning(model.MsgUnknownObject, h.target.DisplayName(), slug)
			continue
		}
		inScope, err := h.c.session.IsRelated(ctx, live.Ref(), *program)
		if err != nil {
			return err
		}
		if !inScope {
			row.Warning(model.MsgUnknownObject, h.target.DisplayName(), slug)
			continue
		}

		id := model.SnapshotID(row.Record.Ref(), live.Ref())
		if containsSnapshot(existing, id) || containsSnapshot(row.snapshots, id) {
			continue
		}
		row.snapshots = append(row.snapshots, &model.Snapshot{
			ID:        id,
			Parent:    row.Record.Ref(),
			Child:     live.Ref(),
			ChildSlug: live.Slug,
			Revision:  1,
		})
	}
	return nil
}

func (h *snapshotHandler) resolveAssessment(ctx context.Context, row *Row, slugs []string) error {
	audit, err := h.c.parentOf(ctx, row, types.ObjectTypeAudit)
	if err != nil {
		return err
	}

	var snapshots []*model.Snapshot
	if audit != nil {
		snapshots, err = h.c.session.Snapshots(ctx, *audit)
		if err != nil {
			return err
		}
	}

	for _, slug := range slugs {
		var found *model.Snapshot
		for _, s := range snapshots {
			if s.Child.Type == h.target && s.ChildSlug == slug {
				found = s
				break
			}
		}
		if found == nil {
			row.Warning(model.MsgUnknownObject, h.target.DisplayName()+" version", slug)
			continue
		}
		row.mapAdd = append(row.mapAdd, found.Ref())
	}
	return nil
}

func (h *snapshotHandler) Export(ctx context.Context, row *ExportRow) string {
	var slugs []string
	for _, s := range row.Snapshots {
		if s.Child.Type == h.target {
			slugs = append(slugs, s.ChildSlug)
		}
	}
	return strings.Join(slugs, "\n")
}

func containsSnapshot(list []*model.Snapshot, id string) bool {
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}

func joinSlugs(records []*model.Record) string {
	slugs := make([]string, 0, len(records))
	for _, r := range records {
		slugs = append(slugs, r.Slug)
	}
	return strings.Join(slugs, "\n")
}
