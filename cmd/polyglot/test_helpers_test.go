package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"polyglot/internal/config"
	"polyglot/internal/content"
	"polyglot/internal/daemon"
	"polyglot/internal/ipc"
	"polyglot/internal/logging"
	"polyglot/internal/queue"
	"polyglot/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	content    *content.Store
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func newFakeXAI(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupOfflineEnv writes a config file and opens the stores, but starts no
// daemon, so commands take their local fallback path.
func setupOfflineEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	xai := newFakeXAI(t, "Bonjour le monde")
	cfg := testsupport.NewConfig(t, testsupport.WithLLM(xai.URL, "test-key"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		content:    testsupport.MustOpenContent(t, cfg),
		socketPath: filepath.Join(testsupport.BaseDir(cfg), "missing.sock"),
		configPath: configPath,
	}
}

// setupDaemonEnv additionally serves a daemon over IPC.
func setupDaemonEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	env := setupOfflineEnv(t)

	logger := logging.NewNop()
	d, err := daemon.New(env.cfg, env.store, env.content, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	sockDir, err := os.MkdirTemp("", "pg-cli")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })
	socketPath := filepath.Join(sockDir, "polyglot.sock")

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})

	env.daemon = d
	env.socketPath = socketPath
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, env.socketPath, env.configPath)
	return out, err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[llm]\napi_key = %q\nbase_url = %q\n\n[queue]\nitem_delay_ms = 0\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
