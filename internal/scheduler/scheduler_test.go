package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"polyglot/internal/logging"
	"polyglot/internal/processor"
)

type countingRunner struct {
	calls atomic.Int64
	err   error
}

func (r *countingRunner) ProcessQueue(ctx context.Context) (processor.Summary, error) {
	r.calls.Add(1)
	return processor.Summary{Processed: 1, Completed: 1}, r.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSchedulerStartRunsImmediatelyAndOnTick(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 20*time.Millisecond, logging.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return runner.calls.Load() >= 3 })
	status := s.Status()
	if !status.Running || status.Runs < 3 || status.LastSummary.Completed != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSchedulerKickFiresExtraRun(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, time.Hour, logging.NewNop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return runner.calls.Load() == 1 })

	if !s.Kick() {
		t.Fatal("expected Kick to fire while running")
	}
	waitFor(t, func() bool { return runner.calls.Load() == 2 })

	s.Stop()
	if s.Kick() {
		t.Fatal("expected Kick to be ignored after Stop")
	}
	if s.Status().Running {
		t.Fatal("expected stopped status")
	}
}

func TestSchedulerStartTwiceFails(t *testing.T) {
	s := New(&countingRunner{}, time.Hour, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestSchedulerRunNowRecordsError(t *testing.T) {
	runner := &countingRunner{err: errors.New("db locked")}
	s := New(runner, time.Hour, nil)
	if _, err := s.RunNow(context.Background()); err == nil {
		t.Fatal("expected error from RunNow")
	}
	if got := s.Status().LastError; got != "db locked" {
		t.Fatalf("LastError = %q", got)
	}
}
