package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the tick cadence for maintenance passes.
const DefaultInterval = 30 * time.Minute

// Job is one unit of periodic work. Run receives the tick's scheduled
// time, not the moment it actually started.
type Job struct {
	Name string
	Run  func(ctx context.Context, scheduled time.Time) error
}

// Scheduler drives registered jobs on a fixed interval.
type Scheduler struct {
	interval time.Duration
	jobs     []Job
	logger   *slog.Logger

	passMu  sync.Mutex // held for the duration of one pass
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	ticks    atomic.Int64
	skips    atomic.Int64
	failures atomic.Int64
}

// New creates a Scheduler. interval <= 0 selects DefaultInterval.
func New(interval time.Duration, logger *slog.Logger, jobs ...Job) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		jobs:     jobs,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. The first pass runs immediately so a
// fresh deployment does not wait a full interval for data. Start
// returns right away; call Stop to shut the loop down.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)

		s.dispatch(ctx, time.Now())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.dispatch(ctx, now)
			}
		}
	}()
}

// dispatch runs one pass in its own goroutine so a slow pass delays
// nothing; the next tick finds the pass lock held and skips.
func (s *Scheduler) dispatch(ctx context.Context, scheduled time.Time) {
	s.ticks.Add(1)
	if !s.passMu.TryLock() {
		s.skips.Add(1)
		s.logger.Warn("maintenance pass still running, skipping tick",
			"scheduled", scheduled.Format(time.RFC3339))
		return
	}
	go func() {
		defer s.passMu.Unlock()
		s.runPass(ctx, scheduled)
	}()
}

func (s *Scheduler) runPass(ctx context.Context, scheduled time.Time) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		if err := job.Run(ctx, scheduled); err != nil {
			s.failures.Add(1)
			s.logger.Error("maintenance job failed",
				"job", job.Name,
				"scheduled", scheduled.Format(time.RFC3339),
				"error", err)
		}
	}
}

// Stop halts the tick loop and waits for any in-flight pass to finish.
// The ctx bounds the wait; on expiry the pass is abandoned and the
// context error returned. Stop is idempotent.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	// The loop is down; wait for a pass that may still hold the lock.
	acquired := make(chan struct{})
	go func() {
		s.passMu.Lock()
		s.passMu.Unlock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a point-in-time view of the scheduler counters.
type Stats struct {
	Ticks    int64
	Skips    int64
	Failures int64
}

// Stats returns the current counter values.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:    s.ticks.Load(),
		Skips:    s.skips.Load(),
		Failures: s.failures.Load(),
	}
}
