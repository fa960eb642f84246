package converter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// CommitPolicy decides when staged rows reach the repository
type CommitPolicy int

const (
	// CommitPerBatch writes everything staged when Commit is called
	CommitPerBatch CommitPolicy = iota
	// CommitPerRow writes each applied row immediately
	CommitPerRow
)

// String returns "batch" or "row"
func (p CommitPolicy) String() string {
	if p == CommitPerRow {
		return "row"
	}
	return "batch"
}

// ParseCommitPolicy parses "row" or "batch". Empty selects batch.
func ParseCommitPolicy(s string) (CommitPolicy, error) {
	switch s {
	case "", "batch":
		return CommitPerBatch, nil
	case "row":
		return CommitPerRow, nil
	default:
		return CommitPerBatch, goerr.Wrap(ErrInvalidCommitPolicy, "unknown commit policy", goerr.V("policy", s))
	}
}

// Session is the unit of work of one import. Lookups see staged writes before
// they are committed. Close discards anything that was not committed.
type Session struct {
	repo   interfaces.Repository
	policy CommitPolicy
	staged *model.ChangeSet
	closed bool

	records   map[types.ObjectType]map[string]*model.Record // by slug, nil value = known absent
	persons   map[string]*model.Person                      // by email, nil value = known absent
	relations map[model.ObjectRef][]*model.Relationship
	members   map[model.ObjectRef]model.RoleMembers
	values    map[model.ObjectRef]map[string]*model.CustomAttributeValue
	snapshots map[model.ObjectRef][]*model.Snapshot
	defs      map[types.ObjectType][]*model.CustomAttributeDefinition
	reserved  map[types.ObjectType]map[string]bool

	stagedComments map[string]*model.Comment
	stagedEvidence map[string]*model.Evidence
	deleted        map[model.ObjectRef]bool
}

// NewSession starts a unit of work. The caller must Close it.
func NewSession(repo interfaces.Repository, policy CommitPolicy) *Session {
	s := &Session{
		repo:   repo,
		policy: policy,
	}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.staged = &model.ChangeSet{}
	s.records = make(map[types.ObjectType]map[string]*model.Record)
	s.persons = make(map[string]*model.Person)
	s.relations = make(map[model.ObjectRef][]*model.Relationship)
	s.members = make(map[model.ObjectRef]model.RoleMembers)
	s.values = make(map[model.ObjectRef]map[string]*model.CustomAttributeValue)
	s.snapshots = make(map[model.ObjectRef][]*model.Snapshot)
	s.defs = make(map[types.ObjectType][]*model.CustomAttributeDefinition)
	s.reserved = make(map[types.ObjectType]map[string]bool)
	s.stagedComments = make(map[string]*model.Comment)
	s.stagedEvidence = make(map[string]*model.Evidence)
	s.deleted = make(map[model.ObjectRef]bool)
}

// Policy returns the commit policy of the session
func (s *Session) Policy() CommitPolicy {
	return s.policy
}

// Pending returns the number of staged writes not yet committed
func (s *Session) Pending() int {
	return s.staged.Size()
}

// Stage adds a validated row's writes to the unit of work. With CommitPerRow
// they are committed right away.
func (s *Session) Stage(ctx context.Context, cs *model.ChangeSet) error {
	if s.closed {
		return goerr.Wrap(ErrSessionClosed, "failed to stage change set")
	}
	if cs.IsEmpty() {
		return nil
	}

	s.staged.Merge(cs)
	s.applyToCache(cs)

	if s.policy == CommitPerRow {
		return s.Commit(ctx)
	}
	return nil
}

// Commit writes every staged change to the repository
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return goerr.Wrap(ErrSessionClosed, "failed to commit")
	}
	if s.staged.IsEmpty() {
		return nil
	}

	if err := s.repo.Commit(ctx, s.staged); err != nil {
		return goerr.Wrap(err, "failed to commit import session", goerr.V("writes", s.staged.Size()))
	}
	s.staged = &model.ChangeSet{}
	s.stagedComments = make(map[string]*model.Comment)
	s.stagedEvidence = make(map[string]*model.Evidence)
	return nil
}

// Rollback drops everything staged since the last commit
func (s *Session) Rollback() {
	s.reset()
}

// Close rolls back uncommitted writes. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	if s.closed {
		return
	}
	if n := s.staged.Size(); n > 0 {
		logging.From(ctx).Info("discarding uncommitted import writes", "writes", n)
	}
	s.Rollback()
	s.closed = true
}

func (s *Session) applyToCache(cs *model.ChangeSet) {
	for _, p := range cs.Persons {
		s.persons[model.NormalizeEmail(p.Email)] = p
	}
	for _, rec := range cs.Records {
		if s.records[rec.Type] == nil {
			s.records[rec.Type] = make(map[string]*model.Record)
		}
		s.records[rec.Type][rec.Slug] = rec.Clone()
	}
	for _, rel := range cs.Relationships {
		for _, side := range []model.ObjectRef{rel.Source, rel.Destination} {
			if rels, ok := s.relations[side]; ok {
				s.relations[side] = append(rels, rel)
			}
		}
	}
	for _, id := range cs.Unmapped {
		for ref, rels := range s.relations {
			s.relations[ref] = removeRelationship(rels, id)
		}
	}
	for _, snap := range cs.Snapshots {
		if list, ok := s.snapshots[snap.Parent]; ok {
			s.snapshots[snap.Parent] = append(list, snap)
		}
	}
	for _, a := range cs.RoleAssignments {
		if m, ok := s.members[a.List.Object]; ok {
			if len(a.PersonIDs) == 0 {
				delete(m, a.List.RoleID)
			} else {
				m[a.List.RoleID] = append([]string(nil), a.PersonIDs...)
			}
		}
	}
	for _, v := range cs.AttributeValues {
		if m, ok := s.values[v.Object]; ok {
			m[v.DefinitionID] = v
		}
	}
	for _, c := range cs.Comments {
		s.stagedComments[c.ID] = c
	}
	for _, e := range cs.Evidence {
		s.stagedEvidence[e.ID] = e
	}
	for _, ref := range cs.DeletedRecords {
		s.deleted[ref] = true
		for slug, rec := range s.records[ref.Type] {
			if rec != nil && rec.ID == ref.ID {
				s.records[ref.Type][slug] = nil
			}
		}
		delete(s.relations, ref)
		for other, rels := range s.relations {
			s.relations[other] = dropInvolving(rels, ref)
		}
		delete(s.members, ref)
		delete(s.values, ref)
		delete(s.snapshots, ref)
	}
}

func removeRelationship(rels []*model.Relationship, id string) []*model.Relationship {
	out := rels[:0:0]
	for _, r := range rels {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func dropInvolving(rels []*model.Relationship, ref model.ObjectRef) []*model.Relationship {
	out := rels[:0:0]
	for _, r := range rels {
		if !r.Involves(ref) {
			out = append(out, r)
		}
	}
	return out
}

// Record finds a record by slug. Returns nil, nil when it does not exist.
func (s *Session) Record(ctx context.Context, t types.ObjectType, slug string) (*model.Record, error) {
	if byType, ok := s.records[t]; ok {
		if rec, ok := byType[slug]; ok {
			return rec.Clone(), nil
		}
	} else {
		s.records[t] = make(map[string]*model.Record)
	}

	rec, err := s.repo.Record().GetBySlug(ctx, t, slug)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up record", goerr.V("type", t), goerr.V("slug", slug))
	}
	if rec != nil && s.deleted[rec.Ref()] {
		rec = nil
	}
	s.records[t][slug] = rec
	return rec.Clone(), nil
}

// RecordByRef loads the record behind ref
func (s *Session) RecordByRef(ctx context.Context, ref model.ObjectRef) (*model.Record, error) {
	for _, rec := range s.records[ref.Type] {
		if rec != nil && rec.ID == ref.ID {
			return rec.Clone(), nil
		}
	}
	if s.deleted[ref] {
		return nil, nil
	}

	rec, err := s.repo.Record().Get(ctx, ref.Type, ref.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load record", goerr.V("ref", ref.String()))
	}
	if s.records[ref.Type] == nil {
		s.records[ref.Type] = make(map[string]*model.Record)
	}
	s.records[ref.Type][rec.Slug] = rec
	return rec.Clone(), nil
}

// NextSlug generates a code that is neither stored nor reserved in this session
func (s *Session) NextSlug(ctx context.Context, t types.ObjectType) (string, error) {
	for {
		slug, err := s.repo.Record().NextSlug(ctx, t)
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate slug", goerr.V("type", t))
		}
		if s.reserved[t][slug] {
			continue
		}
		existing, err := s.Record(ctx, t, slug)
		if err != nil {
			return "", err
		}
		if existing == nil {
			s.Reserve(t, slug)
			return slug, nil
		}
	}
}

// Reserve marks a slug as taken by a row of this session
func (s *Session) Reserve(t types.ObjectType, slug string) {
	if s.reserved[t] == nil {
		s.reserved[t] = make(map[string]bool)
	}
	s.reserved[t][slug] = true
}

// Person finds a person by e-mail. Returns nil, nil when unknown.
func (s *Session) Person(ctx context.Context, email string) (*model.Person, error) {
	email = model.NormalizeEmail(email)
	if p, ok := s.persons[email]; ok {
		return p, nil
	}

	p, err := s.repo.Person().GetByEmail(ctx, email)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up person", goerr.V("email", email))
	}
	s.persons[email] = p
	return p, nil
}

// PersonsByID returns the people with the given IDs, staged ones included
func (s *Session) PersonsByID(ctx context.Context, ids []string) (map[string]*model.Person, error) {
	result := make(map[string]*model.Person, len(ids))
	var missing []string
	for _, id := range ids {
		found := false
		for _, p := range s.persons {
			if p != nil && p.ID == id {
				result[id] = p
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	stored, err := s.repo.Person().GetByIDs(ctx, missing)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load persons", goerr.V("count", len(missing)))
	}
	for id, p := range stored {
		result[id] = p
		s.persons[p.Email] = p
	}
	return result, nil
}

// Relationships returns the relationships of ref including staged ones
func (s *Session) Relationships(ctx context.Context, ref model.ObjectRef) ([]*model.Relationship, error) {
	if rels, ok := s.relations[ref]; ok {
		return rels, nil
	}
	if s.deleted[ref] {
		return nil, nil
	}

	stored, err := s.repo.Relationship().ListByObject(ctx, ref)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list relationships", goerr.V("ref", ref.String()))
	}

	unmapped := make(map[string]bool, len(s.staged.Unmapped))
	for _, id := range s.staged.Unmapped {
		unmapped[id] = true
	}
	seen := make(map[string]bool)
	var rels []*model.Relationship
	for _, r := range append(stored, s.staged.Relationships...) {
		if seen[r.ID] || unmapped[r.ID] || !r.Involves(ref) {
			continue
		}
		if s.deleted[r.Other(ref)] {
			continue
		}
		seen[r.ID] = true
		rels = append(rels, r)
	}
	s.relations[ref] = rels
	return rels, nil
}

// Related returns the objects of type t related to ref
func (s *Session) Related(ctx context.Context, ref model.ObjectRef, t types.ObjectType) ([]model.ObjectRef, error) {
	rels, err := s.Relationships(ctx, ref)
	if err != nil {
		return nil, err
	}
	var out []model.ObjectRef
	for _, r := range rels {
		if other := r.Other(ref); other.Type == t {
			out = append(out, other)
		}
	}
	return out, nil
}

// IsRelated reports whether a and b are mapped to each other
func (s *Session) IsRelated(ctx context.Context, a, b model.ObjectRef) (bool, error) {
	rels, err := s.Relationships(ctx, a)
	if err != nil {
		return false, err
	}
	for _, r := range rels {
		if r.Involves(b) {
			return true, nil
		}
	}
	return false, nil
}

// Members returns the role memberships of ref including staged assignments
func (s *Session) Members(ctx context.Context, ref model.ObjectRef) (model.RoleMembers, error) {
	if m, ok := s.members[ref]; ok {
		return m.Clone(), nil
	}
	if s.deleted[ref] {
		return model.RoleMembers{}, nil
	}

	m, err := s.repo.AccessControl().ListByObject(ctx, ref)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list role members", goerr.V("ref", ref.String()))
	}
	if m == nil {
		m = make(model.RoleMembers)
	}
	for _, a := range s.staged.RoleAssignments {
		if a.List.Object != ref {
			continue
		}
		if len(a.PersonIDs) == 0 {
			delete(m, a.List.RoleID)
		} else {
			m[a.List.RoleID] = append([]string(nil), a.PersonIDs...)
		}
	}
	s.members[ref] = m
	return m.Clone(), nil
}

// Values returns the custom attribute values of ref keyed by definition ID
func (s *Session) Values(ctx context.Context, ref model.ObjectRef) (map[string]*model.CustomAttributeValue, error) {
	if v, ok := s.values[ref]; ok {
		return copyValues(v), nil
	}
	if s.deleted[ref] {
		return map[string]*model.CustomAttributeValue{}, nil
	}

	v, err := s.repo.CustomAttribute().ListValues(ctx, ref)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list attribute values", goerr.V("ref", ref.String()))
	}
	if v == nil {
		v = make(map[string]*model.CustomAttributeValue)
	}
	for _, sv := range s.staged.AttributeValues {
		if sv.Object == ref {
			v[sv.DefinitionID] = sv
		}
	}
	s.values[ref] = v
	return copyValues(v), nil
}

func copyValues(v map[string]*model.CustomAttributeValue) map[string]*model.CustomAttributeValue {
	out := make(map[string]*model.CustomAttributeValue, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Snapshots returns the snapshots taken for an audit
func (s *Session) Snapshots(ctx context.Context, parent model.ObjectRef) ([]*model.Snapshot, error) {
	if list, ok := s.snapshots[parent]; ok {
		return list, nil
	}
	if s.deleted[parent] {
		return nil, nil
	}

	stored, err := s.repo.Snapshot().ListByParent(ctx, parent)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list snapshots", goerr.V("parent", parent.String()))
	}
	seen := make(map[string]bool)
	var list []*model.Snapshot
	for _, snap := range append(stored, s.staged.Snapshots...) {
		if snap.Parent != parent || seen[snap.ID] {
			continue
		}
		seen[snap.ID] = true
		list = append(list, snap)
	}
	s.snapshots[parent] = list
	return list, nil
}

// Comments returns the comments attached to ref
func (s *Session) Comments(ctx context.Context, ref model.ObjectRef) ([]*model.Comment, error) {
	ids, err := s.Related(ctx, ref, types.ObjectTypeComment)
	if err != nil {
		return nil, err
	}

	var result []*model.Comment
	var missing []string
	for _, id := range ids {
		if c, ok := s.stagedComments[id.ID]; ok {
			result = append(result, c)
		} else {
			missing = append(missing, id.ID)
		}
	}
	if len(missing) > 0 {
		stored, err := s.repo.Comment().GetByIDs(ctx, missing)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load comments", goerr.V("ref", ref.String()))
		}
		result = append(result, stored...)
	}
	return result, nil
}

// Evidence returns the evidence attached to ref
func (s *Session) Evidence(ctx context.Context, ref model.ObjectRef) ([]*model.Evidence, error) {
	ids, err := s.Related(ctx, ref, types.ObjectTypeEvidence)
	if err != nil {
		return nil, err
	}

	var result []*model.Evidence
	var missing []string
	for _, id := range ids {
		if e, ok := s.stagedEvidence[id.ID]; ok {
			result = append(result, e)
		} else {
			missing = append(missing, id.ID)
		}
	}
	if len(missing) > 0 {
		stored, err := s.repo.Evidence().GetByIDs(ctx, missing)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load evidence", goerr.V("ref", ref.String()))
		}
		result = append(result, stored...)
	}
	return result, nil
}

// Definitions returns the custom attribute definitions stored for t
func (s *Session) Definitions(ctx context.Context, t types.ObjectType) ([]*model.CustomAttributeDefinition, error) {
	if defs, ok := s.defs[t]; ok {
		return defs, nil
	}
	defs, err := s.repo.CustomAttribute().ListDefinitions(ctx, t)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list attribute definitions", goerr.V("type", t))
	}
	s.defs[t] = defs
	return defs, nil
}

// Snapshot loads one snapshot by ID, staged ones included
func (s *Session) Snapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	for _, snap := range s.staged.Snapshots {
		if snap.ID == id {
			return snap, nil
		}
	}
	snap, err := s.repo.Snapshot().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load snapshot", goerr.V("id", id))
	}
	return snap, nil
}
