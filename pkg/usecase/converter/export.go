package converter

import (
	"context"
	"sort"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/utils/richtext"
)

// ExportRow is everything the column handlers need to render one record
type ExportRow struct {
	Record           *model.Record
	Members          model.RoleMembers
	Persons          map[string]*model.Person // by ID
	Related          map[types.ObjectType][]*model.Record
	Snapshots        []*model.Snapshot // taken by an audit, or mapped to an assessment
	Values           map[string]*model.CustomAttributeValue
	LocalDefinitions []*model.CustomAttributeDefinition
	Comments         []*model.Comment
	Evidence         []*model.Evidence
}

func flattenRichText(s string) string {
	return richtext.Flatten(s)
}

// ExportBlock renders records of type t in the import layout. fields limits
// the columns; empty means all of them.
func (c *Converter) ExportBlock(ctx context.Context, t types.ObjectType, records []*model.Record, fields []string) (*Block, error) {
	defs, err := c.definitionsFor(ctx, t)
	if err != nil {
		return nil, err
	}
	cols := NewColumnSet(c, t, defs)
	handlers := cols.ExportHandlers(fields)

	block := &Block{
		ObjectType: t.DisplayName(),
		HeaderLine: 2,
		Header:     make([]string, 0, len(handlers)),
	}
	for _, h := range handlers {
		block.Header = append(block.Header, cols.HeaderName(h))
	}

	sorted := append([]*model.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug })

	for _, rec := range sorted {
		row, err := c.loadExportRow(ctx, rec, defs)
		if err != nil {
			return nil, err
		}
		cells := make([]string, 0, len(handlers))
		for _, h := range handlers {
			cells = append(cells, h.Export(ctx, row))
		}
		block.Rows = append(block.Rows, cells)
	}
	return block, nil
}

func (c *Converter) loadExportRow(ctx context.Context, rec *model.Record, defs []*model.CustomAttributeDefinition) (*ExportRow, error) {
	ref := rec.Ref()
	row := &ExportRow{
		Record:  rec,
		Related: make(map[types.ObjectType][]*model.Record),
	}

	var err error
	if row.Members, err = c.session.Members(ctx, ref); err != nil {
		return nil, err
	}
	if row.Values, err = c.session.Values(ctx, ref); err != nil {
		return nil, err
	}
	for _, d := range defs {
		if d.IsLocal() && d.DefinitionID == rec.ID {
			row.LocalDefinitions = append(row.LocalDefinitions, d)
		}
	}

	rels, err := c.session.Relationships(ctx, ref)
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		other := r.Other(ref)
		switch {
		case other.Type.IsRecord():
			related, err := c.session.RecordByRef(ctx, other)
			if err != nil {
				return nil, err
			}
			if related != nil {
				row.Related[other.Type] = append(row.Related[other.Type], related)
			}
		case other.Type == types.ObjectTypeSnapshot:
			snap, err := c.session.Snapshot(ctx, other.ID)
			if err != nil {
				return nil, err
			}
			row.Snapshots = append(row.Snapshots, snap)
		}
	}
	for t := range row.Related {
		list := row.Related[t]
		sort.Slice(list, func(i, j int) bool { return list[i].Slug < list[j].Slug })
	}

	if rec.Type == types.ObjectTypeAudit {
		taken, err := c.session.Snapshots(ctx, ref)
		if err != nil {
			return nil, err
		}
		row.Snapshots = append(row.Snapshots, taken...)
	}
	sort.Slice(row.Snapshots, func(i, j int) bool { return row.Snapshots[i].ChildSlug < row.Snapshots[j].ChildSlug })

	if model.HasComments(rec.Type) {
		if row.Comments, err = c.session.Comments(ctx, ref); err != nil {
			return nil, err
		}
	}
	if model.HasEvidence(rec.Type) {
		if row.Evidence, err = c.session.Evidence(ctx, ref); err != nil {
			return nil, err
		}
	}

	var personIDs []string
	for _, ids := range row.Members {
		personIDs = append(personIDs, ids...)
	}
	for _, d := range defs {
		if d.AttributeType != types.AttributeTypePerson {
			continue
		}
		if v, ok := row.Values[d.ID]; ok && v.Value != "" {
			personIDs = append(personIDs, v.Value)
		}
	}
	if row.Persons, err = c.session.PersonsByID(ctx, personIDs); err != nil {
		return nil, err
	}
	return row, nil
}
