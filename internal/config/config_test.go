package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"polyglot/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("XAI_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "polyglot", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, ".local", "share", "polyglot") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "grok-beta" || cfg.LLM.BaseURL != "https://api.x.ai/v1/chat/completions" {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.TimeoutSeconds != 120 {
		t.Fatalf("unexpected timeout: %d", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Queue.BatchSize != 1 || cfg.ItemDelay() != 500*time.Millisecond {
		t.Fatalf("unexpected queue defaults: %+v", cfg.Queue)
	}
	if cfg.LockTimeout() != 5*time.Minute || cfg.ScheduleInterval() != time.Minute {
		t.Fatalf("unexpected lock/schedule defaults: %+v", cfg.Queue)
	}
	if cfg.Translation.PromptTemplate != config.DefaultPromptTemplate {
		t.Fatal("expected default prompt template")
	}
}

func TestLoadMissingAPIKeyIsAllowed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XAI_API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Fatalf("expected empty key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	contents := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
api_bind = "0.0.0.0:9000"
api_token = "secret"

[llm]
api_key = "file-key"
model = "grok-2"
timeout_seconds = 45

[translation]
prompt_template = "To {target_lang}: {content}"
source_language_name = "Base English"

[queue]
batch_size = 5
item_delay_ms = 0

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIToken != "secret" || cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected paths %+v", cfg.Paths)
	}
	if cfg.LLM.APIKey != "file-key" || cfg.LLM.Model != "grok-2" || cfg.LLM.TimeoutSeconds != 45 {
		t.Fatalf("unexpected llm %+v", cfg.LLM)
	}
	if cfg.Translation.SourceLanguageName != "Base English" {
		t.Fatalf("unexpected source language name %q", cfg.Translation.SourceLanguageName)
	}
	if cfg.Queue.BatchSize != 5 || cfg.ItemDelay() != 0 {
		t.Fatalf("unexpected queue %+v", cfg.Queue)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"batch too large", func(c *config.Config) { c.Queue.BatchSize = 11 }, "queue.batch_size"},
		{"batch zero", func(c *config.Config) { c.Queue.BatchSize = 0 }, "queue.batch_size"},
		{"timeout low", func(c *config.Config) { c.LLM.TimeoutSeconds = 5 }, "llm.timeout_seconds"},
		{"timeout high", func(c *config.Config) { c.LLM.TimeoutSeconds = 301 }, "llm.timeout_seconds"},
		{"delay negative", func(c *config.Config) { c.Queue.ItemDelayMS = -1 }, "queue.item_delay_ms"},
		{"lock short", func(c *config.Config) { c.Queue.LockTimeoutSeconds = 1 }, "queue.lock_timeout_seconds"},
		{"schedule short", func(c *config.Config) { c.Queue.ScheduleIntervalSeconds = 1 }, "queue.schedule_interval_seconds"},
		{"template without content", func(c *config.Config) { c.Translation.PromptTemplate = "Translate to {target_lang}" }, "translation.prompt_template"},
		{"bad base url", func(c *config.Config) { c.LLM.BaseURL = "not a url" }, "llm.base_url"},
		{"bad bind", func(c *config.Config) { c.Paths.APIBind = "localhost" }, "paths.api_bind"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.DataDir = t.TempDir()
			cfg.Paths.LogDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "llm", "translation", "queue", "notifications", "logging"} {
		if _, ok := decoded[section]; !ok {
			t.Fatalf("sample missing [%s] section", section)
		}
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEnsureDirectoriesCreatesDataAndLogDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if filepath.Dir(cfg.DaemonLockPath()) != cfg.Paths.DataDir {
		t.Fatalf("unexpected lock path %q", cfg.DaemonLockPath())
	}
}
