package processor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"polyglot/internal/config"
	"polyglot/internal/content"
	"polyglot/internal/logging"
	"polyglot/internal/metrics"
	"polyglot/internal/notifications"
	"polyglot/internal/queue"
	"polyglot/internal/reconcile"
	"polyglot/internal/services"
)

// QueueStore is the job store surface the processor drives.
type QueueStore interface {
	AcquireLease(ctx context.Context, name string, ttl time.Duration) (*queue.Lease, bool, error)
	ReleaseLease(ctx context.Context, lease *queue.Lease) error
	FetchPending(ctx context.Context, limit int) ([]*queue.Item, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64, response string) error
	MarkFailed(ctx context.Context, id int64, message string) error
}

// PostSource resolves the original post of a queue item.
type PostSource interface {
	GetPost(ctx context.Context, id int64) (*content.Post, error)
}

// Translator turns a prompt into translated text.
type Translator interface {
	Translate(ctx context.Context, prompt string) (string, error)
}

// Reconciler writes translated text into the content store.
type Reconciler interface {
	Reconcile(ctx context.Context, original *content.Post, translated, targetLang string) (reconcile.Result, error)
}

// Settings tune a batch run.
type Settings struct {
	BatchSize int
	ItemDelay time.Duration
	LeaseTTL  time.Duration
}

// SettingsFromConfig reads the [queue] section.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{
		BatchSize: cfg.Queue.BatchSize,
		ItemDelay: cfg.ItemDelay(),
		LeaseTTL:  cfg.LockTimeout(),
	}
}

const (
	defaultBatchSize = 1
	defaultLeaseTTL  = 300 * time.Second
)

// Dependencies groups the collaborators of a Processor.
type Dependencies struct {
	Queue      QueueStore
	Posts      PostSource
	Translator Translator
	Reconciler Reconciler
	Notifier   notifications.Service
	Logger     *slog.Logger
}

// Summary reports what one ProcessQueue call did.
type Summary struct {
	LockHeld  bool
	Holder    *queue.Lease
	Processed int
	Completed int
	Failed    int
	Aborted   bool
	Duration  time.Duration
}

// Processor runs queue batches.
type Processor struct {
	queue      QueueStore
	posts      PostSource
	translator Translator
	reconciler Reconciler
	notifier   notifications.Service
	logger     *slog.Logger
	settings   Settings
	sleep      func(context.Context, time.Duration) error
}

// New constructs a Processor.
func New(deps Dependencies, settings Settings) *Processor {
	if settings.BatchSize <= 0 {
		settings.BatchSize = defaultBatchSize
	}
	if settings.LeaseTTL <= 0 {
		settings.LeaseTTL = defaultLeaseTTL
	}
	if settings.ItemDelay < 0 {
		settings.ItemDelay = 0
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Processor{
		queue:      deps.Queue,
		posts:      deps.Posts,
		translator: deps.Translator,
		reconciler: deps.Reconciler,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(deps.Logger, "processor"),
		settings:   settings,
		sleep:      sleepContext,
	}
}

// ProcessQueue runs one batch. The returned error is non-nil only when the
// lease itself could not be queried; everything after acquisition is logged
// and reflected in the Summary.
func (p *Processor) ProcessQueue(ctx context.Context) (summary Summary, err error) {
	started := time.Now()
	lease, acquired, err := p.queue.AcquireLease(ctx, queue.ProcessLeaseName, p.settings.LeaseTTL)
	if err != nil {
		return Summary{}, fmt.Errorf("acquire processing lease: %w", err)
	}
	if !acquired {
		metrics.BatchesTotal.WithLabelValues(metrics.BatchLockHeld).Inc()
		attrs := []logging.Attr{logging.String(logging.FieldEventType, "lease_held")}
		if lease != nil {
			attrs = append(attrs,
				logging.String(logging.FieldLeaseOwner, lease.Owner),
				logging.Any("lock_expires_at", lease.ExpiresAt),
			)
		}
		p.logger.Debug("queue processing already running", logging.Args(attrs...)...)
		return Summary{LockHeld: true, Holder: lease}, nil
	}

	ctx = services.WithLeaseOwner(ctx, lease.Owner)
	logger := logging.WithContext(ctx, p.logger)

	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if releaseErr := p.queue.ReleaseLease(releaseCtx, lease); releaseErr != nil {
			logging.WarnWithContext(logger, "processing lease release failed; lease expires on its own", "lease_release_failed",
				logging.Error(releaseErr),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "next batch waits for lease expiry"),
			)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			summary.Aborted = true
			logger.Error("queue batch panicked",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "batch_panic"),
				logging.Alert("batch_panic"),
			)
		}
		summary.Duration = time.Since(started)
		p.recordBatch(logger, summary)
	}()

	items, err := p.queue.FetchPending(ctx, p.settings.BatchSize)
	if err != nil {
		summary.Aborted = true
		logging.ErrorWithContext(logger, "fetch pending items failed", "queue_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return summary, nil
	}

	for idx, item := range items {
		if ctx.Err() != nil {
			summary.Aborted = true
			break
		}
		p.processItem(ctx, item, &summary)
		if idx < len(items)-1 && p.settings.ItemDelay > 0 {
			if err := p.sleep(ctx, p.settings.ItemDelay); err != nil {
				summary.Aborted = true
				break
			}
		}
	}
	return summary, nil
}

func (p *Processor) recordBatch(logger *slog.Logger, summary Summary) {
	switch {
	case summary.Aborted:
		metrics.BatchesTotal.WithLabelValues(metrics.BatchAborted).Inc()
	case summary.Processed == 0:
		metrics.BatchesTotal.WithLabelValues(metrics.BatchIdle).Inc()
		return
	default:
		metrics.BatchesTotal.WithLabelValues(metrics.BatchProcessed).Inc()
	}
	logger.Info("queue batch finished",
		logging.Int("processed", summary.Processed),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Bool("aborted", summary.Aborted),
		logging.Duration("batch_duration", summary.Duration),
		logging.String(logging.FieldEventType, "batch_finished"),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
