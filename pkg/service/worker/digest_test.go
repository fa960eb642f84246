package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/service/worker"
	"github.com/secmon-lab/grcbook/pkg/usecase"
)

// mockRunner reports every run on calls. When release is set, Run blocks
// until it is closed, ignoring cancellation.
type mockRunner struct {
	calls   chan time.Time
	release chan struct{}
	err     error
}

func newMockRunner() *mockRunner {
	return &mockRunner{calls: make(chan time.Time, 16)}
}

func (m *mockRunner) Run(ctx context.Context, now time.Time) (*usecase.ScanResult, *usecase.FlushResult, error) {
	m.calls <- now
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return nil, nil, m.err
	}
	return &usecase.ScanResult{Created: 1}, &usecase.FlushResult{Sent: []string{"alice@example.com"}}, nil
}

// waitRun returns the time passed to the next run, failing after timeout
func (m *mockRunner) waitRun(t *testing.T, timeout time.Duration) time.Time {
	t.Helper()
	select {
	case now := <-m.calls:
		return now
	case <-time.After(timeout):
		t.Fatalf("digest did not run within %s", timeout)
		return time.Time{}
	}
}

func TestDigestWorker_InvalidSchedule(t *testing.T) {
	_, err := worker.NewDigestWorker(newMockRunner(), "every morning")
	gt.Value(t, err).NotNil()
}

func TestDigestWorker_RunOnStart(t *testing.T) {
	runner := newMockRunner()
	fixed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	w, err := worker.NewDigestWorker(runner, "0 9 * * *",
		worker.WithRunOnStart(true),
		worker.WithClock(func() time.Time { return fixed }),
	)
	gt.NoError(t, err).Required()
	gt.NoError(t, w.Start(context.Background())).Required()
	defer w.Stop()

	gt.Value(t, runner.waitRun(t, 5*time.Second)).Equal(fixed)
}

func TestDigestWorker_Schedule(t *testing.T) {
	runner := newMockRunner()
	w, err := worker.NewDigestWorker(runner, "@every 1s")
	gt.NoError(t, err).Required()
	gt.NoError(t, w.Start(context.Background())).Required()
	defer w.Stop()

	runner.waitRun(t, 5*time.Second)
}

func TestDigestWorker_KeepsRunningAfterError(t *testing.T) {
	runner := newMockRunner()
	runner.err = errors.New("firestore unavailable")
	w, err := worker.NewDigestWorker(runner, "@every 1s", worker.WithRunOnStart(true))
	gt.NoError(t, err).Required()
	gt.NoError(t, w.Start(context.Background())).Required()
	defer w.Stop()

	// the failed run on start is followed by scheduled runs
	for range 3 {
		runner.waitRun(t, 5*time.Second)
	}
}

func TestDigestWorker_StartTwice(t *testing.T) {
	w, err := worker.NewDigestWorker(newMockRunner(), "@daily")
	gt.NoError(t, err).Required()
	gt.NoError(t, w.Start(context.Background())).Required()
	defer w.Stop()

	gt.Value(t, w.Start(context.Background())).NotNil()
}

func TestDigestWorker_StopWaitsForRunOnStart(t *testing.T) {
	runner := newMockRunner()
	runner.release = make(chan struct{})

	w, err := worker.NewDigestWorker(runner, "@daily", worker.WithRunOnStart(true))
	gt.NoError(t, err).Required()
	gt.NoError(t, w.Start(context.Background())).Required()
	runner.waitRun(t, 5*time.Second)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the digest was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the digest finished")
	}

	// second stop is a no-op
	w.Stop()
}
