package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"polyglot/internal/config"
	"polyglot/internal/content"
	"polyglot/internal/daemon"
	"polyglot/internal/ipc"
	"polyglot/internal/logging"
	"polyglot/internal/queue"
)

// Options configures daemon process runtime behavior.
type Options struct {
	SocketPath  string
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the polyglot daemon runtime loop and blocks until SIGINT or
// SIGTERM, or until cmdCtx is canceled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := NewRunID(time.Now())
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("polyglot-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if opts.Diagnostic {
		debugFile, debugErr := openDiagnosticLog(cfg.Paths.LogDir, runID)
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug log: %v\n", debugErr)
		} else {
			defer debugFile.Close()
			handler, handlerErr := logging.NewHandler(debugFile, "json", "debug")
			if handlerErr != nil {
				return fmt.Errorf("init debug logger: %w", handlerErr)
			}
			logger = logging.TeeLogger(logger, handler)
			logger.Info("diagnostic mode enabled",
				logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
				logging.String("debug_log_path", debugFile.Name()),
			)
		}
	}
	logger = logging.WithRunID(logger, runID)
	slog.SetDefault(logger)

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update polyglot.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	logConfigSnapshot(logger, cfg)

	pidPath := cfg.DaemonPIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	posts, err := content.Open(cfg)
	if err != nil {
		_ = store.Close()
		logger.Error("open content store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, store, posts, logger)
	if err != nil {
		_ = store.Close()
		_ = posts.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue items"),
		)
	}

	<-signalCtx.Done()
	logger.Info("polyglot daemon shutting down")
	return nil
}

// NewRunID returns the identifier used for the per-run log file.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102T150405.000Z") + "-" + uuid.NewString()[:8]
}

func openDiagnosticLog(logDir, runID string) (*os.File, error) {
	debugDir := filepath.Join(logDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug log directory: %w", err)
	}
	return os.OpenFile(filepath.Join(debugDir, fmt.Sprintf("polyglot-%s.log", runID)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "polyglot.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_model", cfg.LLM.Model),
		logging.Int("batch_size", cfg.Queue.BatchSize),
		logging.Duration("item_delay", cfg.ItemDelay()),
		logging.Duration("lock_timeout", cfg.LockTimeout()),
		logging.Duration("schedule_interval", cfg.ScheduleInterval()),
		logging.Bool("notifications_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
