package worker

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/utils/errutil"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// DigestRunner runs one digest scan and flush
type DigestRunner interface {
	Run(ctx context.Context, now time.Time) (*usecase.ScanResult, *usecase.FlushResult, error)
}

// DigestWorker runs the digest on a cron schedule
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Deterministic notification IDs keep a duplicated run from sending twice
type DigestWorker struct {
	runner     DigestRunner
	schedule   string
	location   *time.Location
	runOnStart bool
	clock      func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup // runs started outside cron
}

type DigestWorkerOption func(*DigestWorker)

// WithLocation sets the time zone the schedule is evaluated in
func WithLocation(loc *time.Location) DigestWorkerOption {
	return func(w *DigestWorker) {
		if loc != nil {
			w.location = loc
		}
	}
}

// WithRunOnStart runs the digest once right after Start
func WithRunOnStart(enabled bool) DigestWorkerOption {
	return func(w *DigestWorker) {
		w.runOnStart = enabled
	}
}

func WithClock(clock func() time.Time) DigestWorkerOption {
	return func(w *DigestWorker) {
		w.clock = clock
	}
}

// NewDigestWorker validates the cron schedule and creates a worker
func NewDigestWorker(runner DigestRunner, schedule string, opts ...DigestWorkerOption) (*DigestWorker, error) {
	w := &DigestWorker{
		runner:   runner,
		schedule: schedule,
		location: time.UTC,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, goerr.Wrap(err, "invalid digest schedule", goerr.V("schedule", schedule))
	}
	return w, nil
}

// Start registers the schedule and returns without blocking
func (w *DigestWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return goerr.New("digest worker already started")
	}

	runCtx, cancel := context.WithCancel(logging.With(context.Background(), logging.From(ctx)))
	c := cron.New(cron.WithLocation(w.location))
	if _, err := c.AddFunc(w.schedule, func() { w.run(runCtx) }); err != nil {
		cancel()
		return goerr.Wrap(err, "failed to register digest schedule", goerr.V("schedule", w.schedule))
	}

	logging.From(ctx).Info("Digest worker starting",
		"schedule", w.schedule,
		"location", w.location.String())

	c.Start()
	w.cron = c
	w.cancel = cancel

	if w.runOnStart {
		w.running.Add(1)
		go func() {
			defer w.running.Done()
			w.run(runCtx)
		}()
	}
	return nil
}

// Stop cancels the running digest and waits for every run, scheduled or
// started by WithRunOnStart, to return
func (w *DigestWorker) Stop() {
	w.mu.Lock()
	c, cancel := w.cron, w.cancel
	w.cron, w.cancel = nil, nil
	w.mu.Unlock()

	if c == nil {
		return
	}
	logging.Default().Info("Digest worker stopping")
	cancel()
	<-c.Stop().Done()
	w.running.Wait()
	logging.Default().Info("Digest worker stopped")
}

func (w *DigestWorker) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	startTime := w.clock()

	scan, flush, err := w.runner.Run(ctx, startTime)
	if err != nil {
		_ = errutil.Handle(ctx, err, "digest run failed (will retry next schedule)")
		return
	}

	attrs := []any{
		"created", scan.Created,
		"duration", time.Since(startTime).String(),
	}
	if flush != nil {
		attrs = append(attrs, "sent", len(flush.Sent), "failed", len(flush.Failed))
	}
	logging.From(ctx).Info("Digest run completed", attrs...)
}
