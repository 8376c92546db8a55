// Package scheduler fires queue batches on a fixed interval and on demand.
//
// Runs may overlap; the processing lease inside ProcessQueue decides which
// one does work.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"polyglot/internal/logging"
	"polyglot/internal/processor"
)

// Runner executes one queue batch.
type Runner interface {
	ProcessQueue(ctx context.Context) (processor.Summary, error)
}

// Status is a snapshot for the daemon status endpoint.
type Status struct {
	Running     bool
	Interval    time.Duration
	LastRunAt   time.Time
	LastSummary processor.Summary
	LastError   string
	Runs        int64
}

// Scheduler triggers Runner on a ticker and on Kick.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
	status  Status
}

// New constructs a Scheduler. A non-positive interval defaults to one minute.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Start begins the ticker and fires one run immediately so items left pending
// across a restart are picked up.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(runCtx)
	s.Kick()

	s.logger.Info("scheduler started",
		logging.Duration("interval", s.interval),
		logging.String(logging.FieldEventType, "scheduler_started"),
	)
	return nil
}

// Kick fires one run now. It reports false when the scheduler is stopped.
func (s *Scheduler) Kick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.wg.Add(1)
	go s.run(s.ctx)
	return true
}

// RunNow executes one batch synchronously, bypassing the ticker.
func (s *Scheduler) RunNow(ctx context.Context) (processor.Summary, error) {
	return s.execute(ctx)
}

// Stop cancels the ticker and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Status returns the latest run snapshot.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.status
	status.Running = s.running
	status.Interval = s.interval
	return status
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Kick()
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	if _, err := s.execute(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.ErrorWithContext(s.logger, "scheduled queue run failed", "scheduled_run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
}

func (s *Scheduler) execute(ctx context.Context) (processor.Summary, error) {
	summary, err := s.runner.ProcessQueue(ctx)

	s.mu.Lock()
	s.status.Runs++
	s.status.LastRunAt = time.Now()
	if !summary.LockHeld {
		s.status.LastSummary = summary
	}
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()
	return summary, err
}
