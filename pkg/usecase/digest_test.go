package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
	"github.com/secmon-lab/grcbook/pkg/repository/memory"
	"github.com/secmon-lab/grcbook/pkg/usecase"
)

// Today is 2026-03-10: TASK-1 is due tomorrow, TASK-2 today, TASK-3 is overdue
const workflowFile = "Object type,Cycle\n" +
	"Code,Title,Start Date,Due Date,Admin\n" +
	"CYCLE-A,Q1 review,03/10/2026,03/31/2026,admin@example.com\n" +
	"\n" +
	"Object type,Cycle Task\n" +
	"Code,Title,Cycle,Due Date,Task Assignees\n" +
	"TASK-1,Collect evidence,CYCLE-A,03/11/2026,bob@example.com\n" +
	"TASK-2,Review access,CYCLE-A,03/10/2026,carol@example.com\n" +
	"TASK-3,Rotate keys,CYCLE-A,03/05/2026,bob@example.com\n"

type recordingNotifier struct {
	mu       sync.Mutex
	failFor  map[string]bool
	messages map[string]*model.DigestMessage
}

func newRecordingNotifier(failFor ...string) *recordingNotifier {
	n := &recordingNotifier{
		failFor:  make(map[string]bool),
		messages: make(map[string]*model.DigestMessage),
	}
	for _, r := range failFor {
		n.failFor[r] = true
	}
	return n
}

func (n *recordingNotifier) Notify(ctx context.Context, msg *model.DigestMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[msg.Recipient] {
		return goerr.New("mailbox unavailable")
	}
	n.messages[msg.Recipient] = msg
	return nil
}

func setupWorkflow(t *testing.T, notifier *recordingNotifier) (*memory.Memory, *usecase.UseCases) {
	t.Helper()
	repo := memory.New()
	opts := []usecase.Option{usecase.WithDigestConcurrency(2)}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifiers(notifier))
	}
	uc := newUseCases(repo, opts...)

	results, err := uc.Import.ImportFile(context.Background(), strings.NewReader(workflowFile), "workflow.csv",
		usecase.ImportOptions{Actor: importer})
	gt.NoError(t, err).Required()
	for _, r := range results {
		gt.Array(t, r.RowErrors).Length(0)
		gt.Array(t, r.BlockErrors).Length(0)
	}
	return repo, uc
}

func slugs(refs []model.TaskRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Slug)
	}
	return out
}

func TestDigestUseCase_Scan(t *testing.T) {
	ctx := context.Background()
	_, uc := setupWorkflow(t, nil)

	result, err := uc.Digest.Scan(ctx, fixedNow)
	gt.NoError(t, err).Required()
	gt.Number(t, result.Created).Equal(6)
	gt.Number(t, result.Kinds[types.NotificationCycleStarted]).Equal(3)
	gt.Number(t, result.Kinds[types.NotificationDueIn]).Equal(1)
	gt.Number(t, result.Kinds[types.NotificationDueToday]).Equal(1)
	gt.Number(t, result.Kinds[types.NotificationTaskOverdue]).Equal(1)

	again, err := uc.Digest.Scan(ctx, fixedNow.Add(3*time.Hour))
	gt.NoError(t, err).Required()
	gt.Number(t, again.Created).Equal(0)

	digest, err := uc.Digest.Digest(ctx, fixedNow)
	gt.NoError(t, err).Required()
	gt.Map(t, digest).HasKey("admin@example.com")
	gt.Map(t, digest).HasKey("bob@example.com")
	gt.Map(t, digest).HasKey("carol@example.com")

	bob := digest["bob@example.com"]
	gt.Value(t, slugs(bob[types.NotificationDueIn])).Equal([]string{"TASK-1"})
	gt.Value(t, slugs(bob[types.NotificationTaskOverdue])).Equal([]string{"TASK-3"})
	gt.Value(t, slugs(bob[types.NotificationCycleStarted])).Equal([]string{"CYCLE-A"})
	gt.Value(t, bob[types.NotificationDueIn][0].Cycle).Equal("Q1 review")

	carol := digest["carol@example.com"]
	gt.Value(t, slugs(carol[types.NotificationDueToday])).Equal([]string{"TASK-2"})
	gt.Number(t, len(carol[types.NotificationDueIn])).Equal(0)
}

func TestDigestUseCase_Flush(t *testing.T) {
	ctx := context.Background()
	notifier := newRecordingNotifier("carol@example.com")
	_, uc := setupWorkflow(t, notifier)

	_, err := uc.Digest.Scan(ctx, fixedNow)
	gt.NoError(t, err).Required()

	result, err := uc.Digest.Flush(ctx, fixedNow)
	gt.NoError(t, err).Required()
	gt.Value(t, result.Sent).Equal([]string{"admin@example.com", "bob@example.com"})
	gt.Map(t, result.Failed).HasKey("carol@example.com")

	gt.Map(t, notifier.messages).HasKey("bob@example.com")
	gt.Value(t, notifier.messages["bob@example.com"].Date).Equal(model.Date("2026-03-10"))

	t.Run("sent notifications are not pending any more", func(t *testing.T) {
		digest, err := uc.Digest.Digest(ctx, fixedNow)
		gt.NoError(t, err).Required()
		gt.Number(t, len(digest)).Equal(1)
		gt.Map(t, digest).HasKey("carol@example.com")
	})

	t.Run("next day: due_in becomes due_today and overdue repeats", func(t *testing.T) {
		next := fixedNow.AddDate(0, 0, 1)
		_, err := uc.Digest.Scan(ctx, next)
		gt.NoError(t, err).Required()

		digest, err := uc.Digest.Digest(ctx, next)
		gt.NoError(t, err).Required()

		bob := digest["bob@example.com"]
		gt.Value(t, slugs(bob[types.NotificationDueToday])).Equal([]string{"TASK-1"})
		gt.Value(t, slugs(bob[types.NotificationTaskOverdue])).Equal([]string{"TASK-3"})
		gt.Number(t, len(bob[types.NotificationDueIn])).Equal(0)
		gt.Number(t, len(bob[types.NotificationCycleStarted])).Equal(0)

		// carol's unsent due_today of yesterday is dropped, the task is overdue now
		carol := digest["carol@example.com"]
		gt.Number(t, len(carol[types.NotificationDueToday])).Equal(0)
		gt.Value(t, slugs(carol[types.NotificationTaskOverdue])).Equal([]string{"TASK-2"})
		gt.Value(t, slugs(carol[types.NotificationCycleStarted])).Equal([]string{"CYCLE-A"})
	})
}

func TestDigestUseCase_UnsentDueInExpiresOnDueDate(t *testing.T) {
	ctx := context.Background()
	notifier := newRecordingNotifier("bob@example.com")
	_, uc := setupWorkflow(t, notifier)

	_, err := uc.Digest.Scan(ctx, fixedNow)
	gt.NoError(t, err).Required()
	result, err := uc.Digest.Flush(ctx, fixedNow)
	gt.NoError(t, err).Required()
	gt.Map(t, result.Failed).HasKey("bob@example.com")

	next := fixedNow.AddDate(0, 0, 1)
	_, err = uc.Digest.Scan(ctx, next)
	gt.NoError(t, err).Required()
	digest, err := uc.Digest.Digest(ctx, next)
	gt.NoError(t, err).Required()

	bob := digest["bob@example.com"]
	gt.Value(t, slugs(bob[types.NotificationDueToday])).Equal([]string{"TASK-1"})
	gt.Number(t, len(bob[types.NotificationDueIn])).Equal(0)
}

func TestDigestUseCase_DueDateMoved(t *testing.T) {
	ctx := context.Background()
	_, uc := setupWorkflow(t, nil)

	_, err := uc.Digest.Scan(ctx, fixedNow)
	gt.NoError(t, err).Required()

	moved := "Object type,Cycle Task\n" +
		"Code,Due Date\n" +
		"TASK-1,03/20/2026\n"
	results, err := uc.Import.ImportFile(ctx, strings.NewReader(moved), "move.csv", usecase.ImportOptions{Actor: importer})
	gt.NoError(t, err).Required()
	gt.Number(t, results[0].Updated).Equal(1)

	digest, err := uc.Digest.Digest(ctx, fixedNow)
	gt.NoError(t, err).Required()
	gt.Number(t, len(digest["bob@example.com"][types.NotificationDueIn])).Equal(0)

	// the day before the new due date it is announced again
	dayBefore := time.Date(2026, 3, 19, 8, 0, 0, 0, time.UTC)
	_, err = uc.Digest.Scan(ctx, dayBefore)
	gt.NoError(t, err).Required()
	digest, err = uc.Digest.Digest(ctx, dayBefore)
	gt.NoError(t, err).Required()
	gt.Value(t, slugs(digest["bob@example.com"][types.NotificationDueIn])).Equal([]string{"TASK-1"})
}

func TestDigestUseCase_FinishedTask(t *testing.T) {
	ctx := context.Background()
	_, uc := setupWorkflow(t, nil)

	_, err := uc.Digest.Scan(ctx, fixedNow)
	gt.NoError(t, err).Required()

	finished := "Object type,Cycle Task\n" +
		"Code,State\n" +
		"TASK-3,Finished\n"
	_, err = uc.Import.ImportFile(ctx, strings.NewReader(finished), "finish.csv", usecase.ImportOptions{Actor: importer})
	gt.NoError(t, err).Required()

	digest, err := uc.Digest.Digest(ctx, fixedNow)
	gt.NoError(t, err).Required()
	gt.Number(t, len(digest["bob@example.com"][types.NotificationTaskOverdue])).Equal(0)
}

func TestDigestUseCase_FlushWithoutNotifier(t *testing.T) {
	_, uc := setupWorkflow(t, nil)
	_, err := uc.Digest.Flush(context.Background(), fixedNow)
	gt.Error(t, err).Is(usecase.ErrNoNotifier)
}
