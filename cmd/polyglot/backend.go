package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"polyglot/internal/api"
	"polyglot/internal/content"
	"polyglot/internal/daemon"
	"polyglot/internal/ipc"
	"polyglot/internal/logging"
	"polyglot/internal/queue"
)

// translationBackend covers the job operations the CLI can run either through
// the daemon or against the local databases.
type translationBackend interface {
	Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error)
	TranslationStatus(ctx context.Context, id int64) (api.TranslationStatus, error)
	Process(ctx context.Context) (api.ProcessResponse, error)
	TestLLM(ctx context.Context) (api.LLMTestResponse, error)
}

type ipcBackend struct {
	client *ipc.Client
}

func (b *ipcBackend) Enqueue(_ context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error) {
	resp, err := b.client.Enqueue(req)
	if err != nil {
		return api.EnqueueResponse{}, err
	}
	return *resp, nil
}

func (b *ipcBackend) TranslationStatus(_ context.Context, id int64) (api.TranslationStatus, error) {
	resp, err := b.client.TranslationStatus(id)
	if err != nil {
		return api.TranslationStatus{}, err
	}
	return *resp, nil
}

func (b *ipcBackend) Process(_ context.Context) (api.ProcessResponse, error) {
	resp, err := b.client.Process()
	if err != nil {
		return api.ProcessResponse{}, err
	}
	return *resp, nil
}

func (b *ipcBackend) TestLLM(_ context.Context) (api.LLMTestResponse, error) {
	resp, err := b.client.TestLLM()
	if err != nil {
		return api.LLMTestResponse{}, err
	}
	return *resp, nil
}

// localBackend drives an in-process daemon that is never started. Processing
// still goes through the shared queue lease, so it cannot overlap a running
// daemon's batch.
type localBackend struct {
	daemon *daemon.Daemon
}

func (b *localBackend) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error) {
	return b.daemon.Enqueue(ctx, req)
}

func (b *localBackend) TranslationStatus(ctx context.Context, id int64) (api.TranslationStatus, error) {
	return b.daemon.TranslationStatus(ctx, id)
}

func (b *localBackend) Process(ctx context.Context) (api.ProcessResponse, error) {
	summary, err := b.daemon.ProcessNow(ctx)
	if err != nil {
		return api.ProcessResponse{}, err
	}
	return api.ProcessResponse{Summary: api.FromSummary(summary), Holder: api.FromLease(summary.Holder)}, nil
}

func (b *localBackend) TestLLM(ctx context.Context) (api.LLMTestResponse, error) {
	return b.daemon.TestLLM(ctx), nil
}

// withBackend prefers the daemon and falls back to a local runtime. The
// logger only applies to the local runtime.
func (c *commandContext) withBackend(cmd *cobra.Command, logger *slog.Logger, fn func(translationBackend) error) error {
	if client, err := ipc.Dial(c.socketPath()); err == nil {
		defer client.Close()
		return fn(&ipcBackend{client: client})
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if logger == nil {
		logger, err = c.cliLogger(cmd, false)
		if err != nil {
			return err
		}
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	posts, err := content.Open(cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("open content store: %w", err)
	}
	d, err := daemon.New(cfg, store, posts, logger)
	if err != nil {
		_ = store.Close()
		_ = posts.Close()
		return err
	}
	defer d.Close()
	return fn(&localBackend{daemon: d})
}

// cliLogger writes to stderr so command output on stdout stays clean. Quiet
// mode keeps warnings and errors only.
func (c *commandContext) cliLogger(cmd *cobra.Command, quiet bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	handler, err := logging.NewHandler(cmd.ErrOrStderr(), cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger := slog.New(handler)
	if quiet {
		logger = logging.WithLevelOverride(logger, slog.LevelWarn)
	}
	return logger, nil
}
