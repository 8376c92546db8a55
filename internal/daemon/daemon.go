package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"polyglot/internal/api"
	"polyglot/internal/config"
	"polyglot/internal/content"
	"polyglot/internal/logging"
	"polyglot/internal/metrics"
	"polyglot/internal/notifications"
	"polyglot/internal/preflight"
	"polyglot/internal/processor"
	"polyglot/internal/queue"
	"polyglot/internal/reconcile"
	"polyglot/internal/scheduler"
	"polyglot/internal/services"
	"polyglot/internal/services/llm"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	content  *content.Store
	llm      *llm.Client
	notifier notifications.Service

	processor    *processor.Processor
	scheduler    *scheduler.Scheduler
	queueSvc     *api.QueueService
	translations *api.TranslationService

	server   *apiServer
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes daemon construction.
type Option func(*options)

type options struct {
	llmOptions []llm.Option
	notifier   notifications.Service
}

// WithLLMOptions passes client options to the translation client.
func WithLLMOptions(opts ...llm.Option) Option {
	return func(o *options) {
		o.llmOptions = append(o.llmOptions, opts...)
	}
}

// WithNotifier replaces the config-derived notifier.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	QueueDBPath   string
	ContentDBPath string
	LockFilePath  string
	Model         string
	LLMConfigured bool
	QueueStats    map[queue.Status]int
	Lease         *queue.Lease
	Scheduler     scheduler.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, posts *content.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || posts == nil {
		return nil, errors.New("daemon requires config, queue store, and content store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	notifier := o.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	client := llm.NewClient(llm.FromConfig(cfg), o.llmOptions...)
	proc := processor.New(processor.Dependencies{
		Queue:      store,
		Posts:      posts,
		Translator: client,
		Reconciler: reconcile.New(posts, logger),
		Notifier:   notifier,
		Logger:     logger,
	}, processor.SettingsFromConfig(cfg))
	sched := scheduler.New(proc, cfg.ScheduleInterval(), logger)

	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		store:        store,
		content:      posts,
		llm:          client,
		notifier:     notifier,
		processor:    proc,
		scheduler:    sched,
		queueSvc:     api.NewQueueService(store),
		translations: api.NewTranslationService(cfg, store, posts, sched, logger),
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and starts the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another polyglot daemon instance is already running")
	}

	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run polyglot config validate"),
		)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.scheduler.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.server.start(d.ctx); err != nil {
		d.scheduler.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("polyglot daemon started",
		logging.String("lock", d.lockPath),
		logging.String("model", d.llm.Model()),
		logging.Duration("schedule_interval", d.cfg.ScheduleInterval()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock. It cancels
// in-flight batches first: a translation cut short is recorded as failed and
// the rest of the batch stays pending. Stop returns once those runs exit.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("polyglot daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	if d.content != nil {
		errs = append(errs, d.content.Close())
	}
	return errors.Join(errs...)
}

// Running reports whether the scheduler is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Handler returns the HTTP API handler.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// APIAddr returns the bound API address, or "" when the listener is not running.
func (d *Daemon) APIAddr() string {
	return d.server.addr()
}

// Enqueue queues a translation request.
func (d *Daemon) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error) {
	return d.translations.Enqueue(ctx, req)
}

// TranslationStatus returns the polling view of queue item id.
func (d *Daemon) TranslationStatus(ctx context.Context, id int64) (api.TranslationStatus, error) {
	return d.translations.Status(ctx, id)
}

// ProcessNow runs one batch synchronously, whether or not the scheduler is running.
func (d *Daemon) ProcessNow(ctx context.Context) (processor.Summary, error) {
	return d.scheduler.RunNow(ctx)
}

// TestLLM performs one connection test against the translation API.
func (d *Daemon) TestLLM(ctx context.Context) api.LLMTestResponse {
	err := d.llm.CheckConnection(ctx)
	resp := api.LLMTestResponse{
		OK:      err == nil,
		Message: d.llm.ConnectionMessage(err),
		Model:   d.llm.Model(),
	}
	if err != nil {
		logging.WarnWithContext(d.logger, "translation API connection test failed", "llm_test_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
		)
	}
	return resp
}

// TestNotification sends the notification test event.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// QueueService exposes DTO-returning queue reads.
func (d *Daemon) QueueService() *api.QueueService {
	return d.queueSvc
}

// ListQueue returns queue items matching filter, newest first.
func (d *Daemon) ListQueue(ctx context.Context, filter api.QueueFilter) ([]api.QueueItem, error) {
	return d.queueSvc.List(ctx, filter)
}

// GetQueueItem returns one queue item, or nil when absent.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*api.QueueItem, error) {
	return d.queueSvc.Describe(ctx, id)
}

// ClearQueue removes all terminal and pending queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// RemoveQueueItems deletes the given items and reports how many existed.
func (d *Daemon) RemoveQueueItems(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := d.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// QueueHealth returns aggregate queue counts.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed queue database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		QueueDBPath:   d.store.Path(),
		ContentDBPath: d.content.Path(),
		LockFilePath:  d.lockPath,
		Model:         d.llm.Model(),
		LLMConfigured: d.llm.Configured(),
		Scheduler:     d.scheduler.Status(),
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.QueueStats = stats
		metrics.SetQueueItems(api.MergeQueueStats(stats))
	} else {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
	}
	if lease, err := d.store.CurrentLease(ctx, queue.ProcessLeaseName); err == nil && lease != nil && !lease.Expired(time.Now()) {
		status.Lease = lease
	}
	return status
}

// ToAPI converts a status snapshot to its wire form.
func (s Status) ToAPI() api.DaemonStatus {
	return api.DaemonStatus{
		Running:       s.Running,
		PID:           s.PID,
		QueueDBPath:   s.QueueDBPath,
		ContentDBPath: s.ContentDBPath,
		LockFilePath:  s.LockFilePath,
		Model:         s.Model,
		LLMConfigured: s.LLMConfigured,
		QueueStats:    api.MergeQueueStats(s.QueueStats),
		Lease:         api.FromLease(s.Lease),
		Scheduler:     api.FromSchedulerStatus(s.Scheduler),
	}
}
