package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int64
	s := New(30*time.Millisecond, nil, Job{
		Name: "count",
		Run: func(context.Context, time.Time) error {
			runs.Add(1)
			return nil
		},
	})
	s.Start()
	defer s.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 3 })
}

func TestScheduler_SkipsTickWhilePassRunning(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int64
	s := New(20*time.Millisecond, nil, Job{
		Name: "slow",
		Run: func(context.Context, time.Time) error {
			runs.Add(1)
			if runs.Load() == 1 {
				<-release
			}
			return nil
		},
	})
	s.Start()

	// The first pass blocks; several ticks must come and go without a
	// second concurrent run.
	waitFor(t, 2*time.Second, func() bool { return s.Stats().Skips >= 2 })
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d during blocked pass, want 1", got)
	}

	close(release)
	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 2 })

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestScheduler_JobFailureDoesNotStopOthers(t *testing.T) {
	var after atomic.Int64
	s := New(10*time.Millisecond, nil,
		Job{Name: "bad", Run: func(context.Context, time.Time) error {
			return errors.New("boom")
		}},
		Job{Name: "good", Run: func(context.Context, time.Time) error {
			after.Add(1)
			return nil
		}},
	)
	s.Start()
	defer s.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool { return after.Load() >= 2 })
	if s.Stats().Failures < 2 {
		t.Errorf("failures = %d, want >= 2", s.Stats().Failures)
	}
}

func TestScheduler_StopWaitsForInflightPass(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	s := New(10*time.Millisecond, nil, Job{
		Name: "slow",
		Run: func(context.Context, time.Time) error {
			<-release
			finished.Store(true)
			return nil
		},
	})
	s.Start()
	time.Sleep(30 * time.Millisecond) // let the first pass start

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !finished.Load() {
		t.Error("Stop returned before the in-flight pass finished")
	}
}

func TestScheduler_StopDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s := New(10*time.Millisecond, nil, Job{
		Name: "stuck",
		Run: func(context.Context, time.Time) error {
			<-release
			return nil
		},
	})
	s.Start()
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop = %v, want deadline exceeded", err)
	}
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := New(time.Hour, nil)
	s.Start()
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
