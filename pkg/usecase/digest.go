package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/secmon-lab/grcbook/pkg/utils/metrics"
	"golang.org/x/sync/errgroup"
)

// Role names whose members receive digest notifications
const (
	TaskAssigneesRole = "Task Assignees"
	CycleAdminRole    = "Admin"
)

type DigestUseCase struct {
	repo        interfaces.Repository
	schema      *config.Schema
	notifiers   []interfaces.Notifier
	concurrency int
}

func NewDigestUseCase(repo interfaces.Repository, schema *config.Schema, notifiers []interfaces.Notifier, concurrency int) *DigestUseCase {
	if schema == nil {
		schema = config.DefaultSchema()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &DigestUseCase{
		repo:        repo,
		schema:      schema,
		notifiers:   notifiers,
		concurrency: concurrency,
	}
}

// ScanResult counts the notifications created by one scan
type ScanResult struct {
	Created int                            `json:"created"`
	Kinds   map[types.NotificationKind]int `json:"kinds"`
}

// FlushResult lists the recipients served by one flush
type FlushResult struct {
	Sent   []string          `json:"sent"`
	Failed map[string]string `json:"failed"`
}

// workflow is the cycle and task state a scan or digest works on
type workflow struct {
	records map[model.ObjectRef]*model.Record
	cycleOf map[string]*model.Record    // task ID -> cycle
	tasksOf map[string][]*model.Record  // cycle ID -> tasks
	emails  map[model.ObjectRef][]string // recipients per object
}

func (uc *DigestUseCase) today(now time.Time) model.Date {
	return model.DateOf(now.In(uc.schema.Digest.TimeZone()))
}

func (uc *DigestUseCase) loadWorkflow(ctx context.Context) (*workflow, error) {
	wf := &workflow{
		records: make(map[model.ObjectRef]*model.Record),
		cycleOf: make(map[string]*model.Record),
		tasksOf: make(map[string][]*model.Record),
		emails:  make(map[model.ObjectRef][]string),
	}

	cycles, err := uc.repo.Record().List(ctx, types.ObjectTypeCycle)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cycles")
	}
	tasks, err := uc.repo.Record().List(ctx, types.ObjectTypeCycleTask)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cycle tasks")
	}
	for _, rec := range append(cycles, tasks...) {
		wf.records[rec.Ref()] = rec
	}

	for _, task := range tasks {
		rels, err := uc.repo.Relationship().ListByObject(ctx, task.Ref())
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list task relationships", goerr.V("task", task.Slug))
		}
		for _, rel := range rels {
			other := rel.Other(task.Ref())
			if other.Type != types.ObjectTypeCycle {
				continue
			}
			if cycle, ok := wf.records[other]; ok {
				wf.cycleOf[task.ID] = cycle
				wf.tasksOf[cycle.ID] = append(wf.tasksOf[cycle.ID], task)
				break
			}
		}
	}

	assignee, hasAssignee := uc.schema.Role(types.ObjectTypeCycleTask, TaskAssigneesRole)
	admin, hasAdmin := uc.schema.Role(types.ObjectTypeCycle, CycleAdminRole)

	var personIDs []string
	members := make(map[model.ObjectRef][]string)
	for ref := range wf.records {
		roles, err := uc.repo.AccessControl().ListByObject(ctx, ref)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list role members", goerr.V("ref", ref.String()))
		}
		var ids []string
		switch {
		case ref.Type == types.ObjectTypeCycleTask && hasAssignee:
			ids = roles[assignee.ID]
		case ref.Type == types.ObjectTypeCycle && hasAdmin:
			ids = roles[admin.ID]
		}
		members[ref] = ids
		personIDs = append(personIDs, ids...)
	}

	persons, err := uc.repo.Person().GetByIDs(ctx, personIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load recipients")
	}
	for ref, ids := range members {
		for _, id := range ids {
			if p, ok := persons[id]; ok {
				wf.emails[ref] = append(wf.emails[ref], p.Email)
			}
		}
	}
	return wf, nil
}

// cycleRecipients returns the cycle admins and the assignees of its tasks
func (wf *workflow) cycleRecipients(cycle *model.Record) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(emails []string) {
		for _, e := range emails {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	add(wf.emails[cycle.Ref()])
	for _, task := range wf.tasksOf[cycle.ID] {
		add(wf.emails[task.Ref()])
	}
	sort.Strings(out)
	return out
}

// Scan creates the pending notifications due at now. Scanning twice on the
// same day creates nothing new.
func (uc *DigestUseCase) Scan(ctx context.Context, now time.Time) (*ScanResult, error) {
	wf, err := uc.loadWorkflow(ctx)
	if err != nil {
		return nil, err
	}

	today := uc.today(now)
	settings := uc.schema.Digest
	result := &ScanResult{Kinds: make(map[types.NotificationKind]int)}

	create := func(kind types.NotificationKind, rec *model.Record, recipients []string, sendOn model.Date) error {
		for _, email := range recipients {
			id := model.NotificationID(kind, rec.Ref(), email, sendOn)
			existing, err := uc.repo.Notification().Get(ctx, id)
			if err != nil {
				return goerr.Wrap(err, "failed to get notification", goerr.V("id", id))
			}
			if existing != nil {
				continue
			}
			n := &model.Notification{
				ID:        id,
				Kind:      kind,
				Object:    rec.Ref(),
				Recipient: email,
				SendOn:    sendOn,
				Repeating: kind.IsRepeating(),
				CreatedAt: now,
			}
			if err := uc.repo.Notification().Put(ctx, n); err != nil {
				return goerr.Wrap(err, "failed to save notification", goerr.V("id", id))
			}
			result.Created++
			result.Kinds[kind]++
			metrics.ObserveNotificationCreated(string(kind))
		}
		return nil
	}

	for _, rec := range sortedRecords(wf.records) {
		if rec.Status.IsTaskDone() {
			continue
		}

		switch rec.Type {
		case types.ObjectTypeCycle:
			start := rec.StartDate
			if start.IsZero() {
				continue
			}
			if !today.Before(start) {
				if err := create(types.NotificationCycleStarted, rec, wf.cycleRecipients(rec), start); err != nil {
					return nil, err
				}
			} else if notifyOn := start.AddDays(-settings.CycleStartLead); !today.Before(notifyOn) {
				if err := create(types.NotificationCycleStartsIn, rec, wf.cycleRecipients(rec), notifyOn); err != nil {
					return nil, err
				}
			}

		case types.ObjectTypeCycleTask:
			due := rec.DueDate
			if due.IsZero() {
				continue
			}
			recipients := wf.emails[rec.Ref()]
			switch {
			case due == today:
				err = create(types.NotificationDueToday, rec, recipients, today)
			case due == today.AddDays(settings.DueInDays):
				err = create(types.NotificationDueIn, rec, recipients, today)
			case due.Before(today):
				err = create(types.NotificationTaskOverdue, rec, recipients, today)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	logging.From(ctx).Info("digest scan finished", "date", today, "created", result.Created)
	return result, nil
}

func sortedRecords(records map[model.ObjectRef]*model.Record) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// isLive reports whether a pending notification still describes the state of
// its record on today
func (uc *DigestUseCase) isLive(n *model.Notification, rec *model.Record, today model.Date) bool {
	if rec == nil || rec.Status.IsTaskDone() || today.Before(n.SendOn) {
		return false
	}
	settings := uc.schema.Digest

	switch n.Kind {
	case types.NotificationCycleStarted:
		return rec.StartDate == n.SendOn
	case types.NotificationCycleStartsIn:
		return rec.StartDate == n.SendOn.AddDays(settings.CycleStartLead) && today.Before(rec.StartDate)
	case types.NotificationDueIn:
		return rec.DueDate == n.SendOn.AddDays(settings.DueInDays) && today.Before(rec.DueDate)
	case types.NotificationDueToday:
		return rec.DueDate == n.SendOn && n.SendOn == today
	case types.NotificationTaskOverdue:
		return n.SendOn == today && rec.DueDate.Before(today)
	default:
		return false
	}
}

// pendingDigest is the live pending set grouped per recipient
type pendingDigest struct {
	digest model.Digest
	ids    map[string][]string // recipient -> notification IDs
}

func (uc *DigestUseCase) collect(ctx context.Context, now time.Time) (*pendingDigest, error) {
	pending, err := uc.repo.Notification().ListPending(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list pending notifications")
	}
	wf, err := uc.loadWorkflow(ctx)
	if err != nil {
		return nil, err
	}

	today := uc.today(now)
	out := &pendingDigest{
		digest: make(model.Digest),
		ids:    make(map[string][]string),
	}

	var stale []string
	for _, n := range pending {
		rec := wf.records[n.Object]
		if !uc.isLive(n, rec, today) {
			if !today.Before(n.SendOn) {
				stale = append(stale, n.ID)
			}
			continue
		}

		ref := model.TaskRef{
			ID:      rec.ID,
			Slug:    rec.Slug,
			Title:   rec.Title,
			DueDate: rec.DueDate,
		}
		if cycle, ok := wf.cycleOf[rec.ID]; ok {
			ref.Cycle = cycle.Title
		}

		sections, ok := out.digest[n.Recipient]
		if !ok {
			sections = make(map[types.NotificationKind][]model.TaskRef)
			out.digest[n.Recipient] = sections
		}
		sections[n.Kind] = append(sections[n.Kind], ref)
		out.ids[n.Recipient] = append(out.ids[n.Recipient], n.ID)
	}

	for _, sections := range out.digest {
		for _, refs := range sections {
			sort.Slice(refs, func(i, j int) bool {
				if refs[i].DueDate != refs[j].DueDate {
					return refs[i].DueDate < refs[j].DueDate
				}
				return refs[i].Slug < refs[j].Slug
			})
		}
	}

	if len(stale) > 0 {
		if err := uc.repo.Notification().Delete(ctx, stale...); err != nil {
			return nil, goerr.Wrap(err, "failed to delete stale notifications")
		}
		logging.From(ctx).Info("dropped stale notifications", "count", len(stale))
	}

	metrics.SetDigestPending(len(pending) - len(stale))
	return out, nil
}

// Digest returns the pending notifications grouped per recipient without
// sending them. Stale notifications are deleted.
func (uc *DigestUseCase) Digest(ctx context.Context, now time.Time) (model.Digest, error) {
	p, err := uc.collect(ctx, now)
	if err != nil {
		return nil, err
	}
	return p.digest, nil
}

// Flush sends one message per recipient and marks the recipient's
// notifications sent. A failing recipient is reported in the result and
// keeps its notifications pending; the others are not affected.
func (uc *DigestUseCase) Flush(ctx context.Context, now time.Time) (*FlushResult, error) {
	if len(uc.notifiers) == 0 {
		return nil, goerr.Wrap(ErrNoNotifier, "cannot flush digest")
	}

	p, err := uc.collect(ctx, now)
	if err != nil {
		return nil, err
	}

	today := uc.today(now)
	result := &FlushResult{
		Sent:   []string{},
		Failed: make(map[string]string),
	}
	var mu sync.Mutex

	recipients := make([]string, 0, len(p.digest))
	for r := range p.digest {
		recipients = append(recipients, r)
	}
	sort.Strings(recipients)

	var eg errgroup.Group
	eg.SetLimit(uc.concurrency)
	for _, recipient := range recipients {
		msg := &model.DigestMessage{
			Recipient: recipient,
			Date:      today,
			Sections:  p.digest[recipient],
		}
		ids := p.ids[recipient]

		eg.Go(func() error {
			err := uc.send(ctx, msg, ids, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.From(ctx).Error("failed to send digest",
					"recipient", recipient,
					"error", err,
				)
				result.Failed[recipient] = err.Error()
				metrics.ObserveDigestMessage("failed")
				return nil
			}
			result.Sent = append(result.Sent, recipient)
			metrics.ObserveDigestMessage("sent")
			return nil
		})
	}
	_ = eg.Wait()

	sort.Strings(result.Sent)
	logging.From(ctx).Info("digest flushed", "sent", len(result.Sent), "failed", len(result.Failed))
	return result, nil
}

func (uc *DigestUseCase) send(ctx context.Context, msg *model.DigestMessage, ids []string, now time.Time) error {
	for _, n := range uc.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			return goerr.Wrap(err, "failed to notify", goerr.V(RecipientKey, msg.Recipient))
		}
	}
	if err := uc.repo.Notification().MarkSent(ctx, ids, now); err != nil {
		return goerr.Wrap(err, "failed to mark notifications sent", goerr.V(RecipientKey, msg.Recipient))
	}
	return nil
}

// Run scans and, when notifiers are configured, flushes
func (uc *DigestUseCase) Run(ctx context.Context, now time.Time) (*ScanResult, *FlushResult, error) {
	scan, err := uc.Scan(ctx, now)
	if err != nil {
		return nil, nil, err
	}
	if len(uc.notifiers) == 0 {
		return scan, nil, nil
	}
	flush, err := uc.Flush(ctx, now)
	if err != nil {
		return scan, nil, err
	}
	return scan, flush, nil
}
