package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"polyglot/internal/api"
	"polyglot/internal/config"
	"polyglot/internal/daemon"
	"polyglot/internal/queue"
	"polyglot/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, testsupport.MustOpenStore(t, cfg), testsupport.MustOpenContent(t, cfg), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestNewRequiresStores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error without stores")
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || !status.Scheduler.Running {
		t.Fatalf("expected daemon and scheduler to report running, got %+v", status)
	}
	if status.LockFilePath != cfg.DaemonLockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running || status.Scheduler.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second instance to fail while lock is held")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonServesAPIWhileRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected API listener address")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestDaemonTestNotificationDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("expected skipped notification, got sent=%v err=%v", sent, err)
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestDaemonStopDuringTranslationRecordsFailure(t *testing.T) {
	requestStarted := make(chan struct{}, 1)
	xai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case requestStarted <- struct{}{}:
		default:
		}
		<-r.Context().Done()
	}))
	t.Cleanup(xai.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithLLM(xai.URL, "test-key"), testsupport.WithItemDelay(0))
	store := testsupport.MustOpenStore(t, cfg)
	posts := testsupport.MustOpenContent(t, cfg)
	d, err := daemon.New(cfg, store, posts, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx := context.Background()
	post := testsupport.NewPost(t, posts, "Hello", "en", "hello")
	queued, err := d.Enqueue(ctx, api.EnqueueRequest{PostID: post.ID, SourceLang: "en", TargetLang: "fr"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Start fires one run immediately, which picks up the pending item.
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-requestStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("translation request never reached the API")
	}
	d.Stop()

	item, err := store.GetByID(ctx, queued.QueueID)
	if err != nil || item == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != queue.StatusFailed || item.ErrorMessage == "" {
		t.Fatalf("interrupted item must end failed with a message, got %+v", item)
	}
}
