package converter

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/utils/csvfile"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// Converter turns spreadsheet blocks into staged writes on a session and
// records back into blocks
type Converter struct {
	session   *Session
	schema    *config.Schema
	directory interfaces.PersonDirectory
	host      interfaces.EvidenceHost
	validator *model.AttributeValidator
	actor     string
	now       func() time.Time
}

// Option configures a Converter
type Option func(*Converter)

// WithDirectory resolves unknown e-mail addresses through an external directory
func WithDirectory(d interfaces.PersonDirectory) Option {
	return func(c *Converter) { c.directory = d }
}

// WithEvidenceHost resolves evidence links on a document host
func WithEvidenceHost(h interfaces.EvidenceHost) Option {
	return func(c *Converter) { c.host = h }
}

// WithActor sets the e-mail of the person running the import
func WithActor(email string) Option {
	return func(c *Converter) { c.actor = model.NormalizeEmail(email) }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

// New creates a converter working on session
func New(session *Session, schema *config.Schema, opts ...Option) *Converter {
	if schema == nil {
		schema = config.DefaultSchema()
	}
	c := &Converter{
		session:   session,
		schema:    schema,
		validator: model.NewAttributeValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Block is one "Object type" section of an import or export file
type Block = csvfile.Block

// ConvertBlock validates every row of the block and stages the valid ones.
// Rows are processed in order and see the writes of the rows before them.
// The returned error is only set when the repository failed.
func (c *Converter) ConvertBlock(ctx context.Context, b *Block) (*model.BlockResult, error) {
	t, err := types.ParseObjectType(b.ObjectType)
	if err != nil || !t.IsRecord() {
		result := model.NewBlockResult(strings.TrimSpace(b.ObjectType))
		result.BlockErrors = append(result.BlockErrors,
			model.LineMessage(b.HeaderLine, model.MsgUnknownObjectType, strings.TrimSpace(b.ObjectType)))
		ignoreRows(result, b)
		return result, nil
	}

	result := model.NewBlockResult(t.DisplayName())
	defs, err := c.definitionsFor(ctx, t)
	if err != nil {
		return nil, err
	}
	cols := NewColumnSet(c, t, defs)

	bound, blockErrors, blockWarnings := cols.Bind(b.HeaderLine, b.Header)
	result.BlockWarnings = append(result.BlockWarnings, blockWarnings...)
	if len(blockErrors) > 0 {
		result.BlockErrors = append(result.BlockErrors, blockErrors...)
		ignoreRows(result, b)
		return result, nil
	}

	codes := make(map[string]int)
	for i, cells := range b.Rows {
		if isBlank(cells) {
			continue
		}
		rr, err := c.convertRow(ctx, t, bound, b.LineOf(i), cells, codes)
		if err != nil {
			return nil, err
		}
		result.AddRow(rr)
	}

	logging.From(ctx).Debug("converted block",
		"object_type", t,
		"rows", result.Rows,
		"created", result.Created,
		"updated", result.Updated,
		"ignored", result.Ignored,
	)
	return result, nil
}

func ignoreRows(result *model.BlockResult, b *Block) {
	for i, cells := range b.Rows {
		if isBlank(cells) {
			continue
		}
		result.AddRow(&model.RowResult{Line: b.LineOf(i), Disposition: model.RowIgnored})
	}
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func (c *Converter) convertRow(ctx context.Context, t types.ObjectType, bound *binding, line int, cells []string, codes map[string]int) (*model.RowResult, error) {
	row := newRow(line, t, bound.present)

	var code string
	for i, h := range bound.columns {
		if h != nil && h.Key() == keyCode {
			code = strings.TrimSpace(cellAt(cells, i))
		}
	}

	if code != "" {
		if first, dup := codes[code]; dup {
			row.Error(model.MsgDuplicateInBlock, code, first)
			return rowResult(row, model.RowIgnored, false), nil
		}
		codes[code] = line

		existing, err := c.session.Record(ctx, t, code)
		if err != nil {
			return nil, err
		}
		row.Existing = existing
	}

	if row.Existing != nil {
		row.Record = row.Existing.Clone()
	} else {
		row.Record = &model.Record{
			ID:     model.NewID(),
			Type:   t,
			Slug:   code,
			Status: types.DefaultStatus(t),
		}
		if len(bound.missing) > 0 {
			plural := ""
			if len(bound.missing) > 1 {
				plural = "s"
			}
			row.Error(model.MsgMissingColumn, plural, strings.Join(bound.missing, ", "))
			return rowResult(row, model.RowIgnored, false), nil
		}
	}

	for i, h := range bound.columns {
		if h == nil {
			continue
		}
		if err := h.Parse(ctx, row, cellAt(cells, i)); err != nil {
			return nil, err
		}
	}
	for _, h := range bound.columns {
		if r, ok := h.(resolver); ok {
			if err := r.Resolve(ctx, row); err != nil {
				return nil, err
			}
		}
	}

	if err := c.checkArchived(ctx, row); err != nil {
		return nil, err
	}
	if row.HasErrors() {
		return rowResult(row, model.RowIgnored, false), nil
	}

	if row.delete {
		cs := &model.ChangeSet{DeletedRecords: []model.ObjectRef{row.Existing.Ref()}}
		if err := c.session.Stage(ctx, cs); err != nil {
			return nil, err
		}
		return rowResult(row, model.RowDeleted, false), nil
	}

	if err := c.applyStatus(ctx, row); err != nil {
		return nil, err
	}

	cs, err := c.buildChangeSet(ctx, row)
	if err != nil {
		return nil, err
	}

	deprecated := row.Record.Status == types.StatusDeprecated &&
		(row.IsNew() || row.Existing.Status != types.StatusDeprecated)

	disposition := model.RowIgnored
	switch {
	case row.IsNew():
		disposition = model.RowCreated
	case !cs.IsEmpty():
		disposition = model.RowUpdated
	default:
		deprecated = false
	}

	if err := c.session.Stage(ctx, cs); err != nil {
		return nil, err
	}
	return rowResult(row, disposition, deprecated), nil
}

func rowResult(row *Row, disposition model.RowDisposition, deprecated bool) *model.RowResult {
	return &model.RowResult{
		Line:        row.Line,
		Record:      row.Record,
		Errors:      row.Errors(),
		Warnings:    row.Warnings(),
		Disposition: disposition,
		Deprecated:  deprecated,
	}
}

// checkArchived rejects rows touching an archived audit, directly or
// through the audit of an assessment or issue
func (c *Converter) checkArchived(ctx context.Context, row *Row) error {
	switch row.Type {
	case types.ObjectTypeAudit:
		if row.Existing != nil && row.Existing.Archived && (row.archived == nil || *row.archived) {
			row.Error(model.MsgArchivedImport)
		}
		return nil

	case types.ObjectTypeAssessment, types.ObjectTypeIssue:
		var audits []model.ObjectRef
		if row.parent != nil && row.parent.Type == types.ObjectTypeAudit {
			audits = append(audits, *row.parent)
		}
		if row.Existing != nil {
			related, err := c.session.Related(ctx, row.Existing.Ref(), types.ObjectTypeAudit)
			if err != nil {
				return err
			}
			audits = append(audits, related...)
		}
		for _, ref := range row.mapAdd {
			if ref.Type == types.ObjectTypeAudit {
				audits = append(audits, ref)
			}
		}

		for _, ref := range audits {
			audit, err := c.session.RecordByRef(ctx, ref)
			if err != nil {
				return err
			}
			if audit != nil && audit.Archived {
				row.Error(model.MsgArchivedImport)
				return nil
			}
		}
	}
	return nil
}

// buildChangeSet diffs the validated row against the stored state. An empty
// change set means the row changes nothing.
func (c *Converter) buildChangeSet(ctx context.Context, row *Row) (*model.ChangeSet, error) {
	cs := &model.ChangeSet{}
	rec := row.Record
	now := c.now()

	if row.IsNew() {
		if rec.Slug == "" {
			slug, err := c.session.NextSlug(ctx, rec.Type)
			if err != nil {
				return nil, err
			}
			rec.Slug = slug
		} else {
			c.session.Reserve(rec.Type, rec.Slug)
		}
	}
	ref := rec.Ref()

	members := model.RoleMembers{}
	relations := map[string]bool{}
	values := map[string]*model.CustomAttributeValue{}
	var comments []*model.Comment
	if row.Existing != nil {
		var err error
		if members, err = c.session.Members(ctx, ref); err != nil {
			return nil, err
		}
		rels, err := c.session.Relationships(ctx, ref)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			relations[r.ID] = true
		}
		if values, err = c.session.Values(ctx, ref); err != nil {
			return nil, err
		}
		if len(row.comments) > 0 {
			if comments, err = c.session.Comments(ctx, ref); err != nil {
				return nil, err
			}
		}
	}

	// roles
	roleIDs := make([]string, 0, len(row.roles))
	for id := range row.roles {
		roleIDs = append(roleIDs, id)
	}
	sort.Strings(roleIDs)
	for _, roleID := range roleIDs {
		ids := row.roles[roleID]
		if model.SamePeople(members[roleID], ids) {
			continue
		}
		cs.RoleAssignments = append(cs.RoleAssignments, &model.RoleAssignment{
			List: model.AccessControlList{
				ID:     model.ACLID(roleID, ref),
				RoleID: roleID,
				Object: ref,
			},
			PersonIDs: ids,
		})
		if len(ids) == 0 {
			delete(members, roleID)
		} else {
			members[roleID] = ids
		}
	}

	// relationships
	addRelation := func(to model.ObjectRef) {
		r := model.NewRelationship(ref, to)
		if relations[r.ID] {
			return
		}
		relations[r.ID] = true
		r.CreatedAt = now
		cs.Relationships = append(cs.Relationships, r)
	}
	if row.parent != nil {
		addRelation(*row.parent)
	}
	adding := make(map[model.ObjectRef]bool, len(row.mapAdd))
	for _, to := range row.mapAdd {
		adding[to] = true
		addRelation(to)
	}
	for _, to := range row.mapRemove {
		id := model.RelationshipID(ref, to)
		if adding[to] || !relations[id] {
			continue
		}
		delete(relations, id)
		cs.Unmapped = append(cs.Unmapped, id)
	}

	// snapshots
	for _, snap := range row.snapshots {
		s := *snap
		s.CreatedAt = now
		cs.Snapshots = append(cs.Snapshots, &s)
	}

	// custom attributes
	defIDs := make([]string, 0, len(row.values))
	for id := range row.values {
		defIDs = append(defIDs, id)
	}
	sort.Strings(defIDs)
	for _, defID := range defIDs {
		v := row.values[defID]
		if cur, ok := values[defID]; ok && cur.Value == v {
			continue
		}
		cs.AttributeValues = append(cs.AttributeValues, &model.CustomAttributeValue{
			ID:           model.CAVID(defID, ref),
			DefinitionID: defID,
			Object:       ref,
			Value:        v,
			UpdatedAt:    now,
		})
	}

	// comments
	if len(row.comments) > 0 {
		known := make(map[string]bool, len(comments))
		for _, cm := range comments {
			known[cm.Description] = true
		}
		var actor *model.Person
		if c.actor != "" && model.IsValidEmail(c.actor) {
			p, err := c.resolvePerson(ctx, row, c.actor)
			if err != nil {
				return nil, err
			}
			actor = p
		}
		assignee := c.assigneeType(row, members, actor)
		for _, desc := range row.comments {
			if known[desc] {
				continue
			}
			known[desc] = true
			cm := &model.Comment{
				ID:           model.NewID(),
				Description:  desc,
				AssigneeType: assignee,
				CreatedAt:    now,
			}
			if actor != nil {
				cm.AuthorID = actor.ID
			}
			cs.Comments = append(cs.Comments, cm)
			addRelation(model.ObjectRef{Type: types.ObjectTypeComment, ID: cm.ID})
		}
	}

	// evidence
	for _, e := range row.evidence {
		ev := *e
		ev.CreatedAt = now
		cs.Evidence = append(cs.Evidence, &ev)
		addRelation(ev.Ref())
	}

	// people created by this row, referenced or not
	emails := make([]string, 0, len(row.persons))
	for email := range row.persons {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	for _, email := range emails {
		stored, err := c.session.Person(ctx, email)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			p := *row.persons[email]
			p.CreatedAt = now
			cs.Persons = append(cs.Persons, &p)
		}
	}

	if row.IsNew() || !cs.IsEmpty() || !rec.SameContent(row.Existing) {
		rec.LastUpdatedBy = c.actor
		rec.UpdatedAt = now
		if row.IsNew() {
			rec.CreatedAt = now
		}
		cs.Records = append([]*model.Record{rec}, cs.Records...)
	}
	return cs, nil
}

func dateOfTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return model.DateOf(t.UTC()).String()
}
