package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"polyglot/internal/config"
	"polyglot/internal/content"
	"polyglot/internal/logging"
	"polyglot/internal/queue"
	"polyglot/internal/reconcile"
	"polyglot/internal/services"
	"polyglot/internal/services/llm"
	"polyglot/internal/testsupport"
)

type harness struct {
	cfg       *config.Config
	processor *Processor
	queue     *queue.Store
	content   *content.Store
}

func newHarness(t *testing.T, handler http.Handler, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]testsupport.ConfigOption{testsupport.WithLLM(server.URL, "test-key")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	q := testsupport.MustOpenStore(t, cfg)
	c := testsupport.MustOpenContent(t, cfg)

	p := New(Dependencies{
		Queue:      q,
		Posts:      c,
		Translator: llm.NewClient(llm.FromConfig(cfg)),
		Reconciler: reconcile.New(c, logging.NewNop()),
		Logger:     logging.NewNop(),
	}, SettingsFromConfig(cfg))
	return &harness{cfg: cfg, processor: p, queue: q, content: c}
}

func replyWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}
}

func mustItem(t *testing.T, store *queue.Store, id int64) *queue.Item {
	t.Helper()
	item, err := store.GetByID(context.Background(), id)
	if err != nil || item == nil {
		t.Fatalf("GetByID(%d): %v", id, err)
	}
	return item
}

func TestProcessQueueTwoItemBatch(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []time.Time
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, time.Now())
		mu.Unlock()
		replyWith("<p>Hola</p>")(w, r)
	})
	h := newHarness(t, handler, testsupport.WithBatchSize(2), testsupport.WithItemDelay(50))
	ctx := context.Background()

	post := testsupport.NewPost(t, h.content, "Hello", "en", "<p>Hello</p>")
	first := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "translate es")
	second := testsupport.Enqueue(t, h.queue, post.ID, "en", "fr", "translate fr")

	summary, err := h.processor.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.LockHeld || summary.Processed != 2 || summary.Completed != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 API calls, got %d", len(calls))
	}
	if gap := calls[1].Sub(calls[0]); gap < 50*time.Millisecond {
		t.Fatalf("expected inter-item delay, calls %v apart", gap)
	}

	for _, id := range []int64{first.ID, second.ID} {
		item := mustItem(t, h.queue, id)
		if item.Status != queue.StatusCompleted || item.Response != "<p>Hola</p>" || item.ErrorMessage != "" {
			t.Fatalf("unexpected item %+v", item)
		}
		if item.ProcessedAt == nil {
			t.Fatalf("expected processed_at on item %d", id)
		}
	}

	group, err := h.content.Translations(ctx, post.ID)
	if err != nil {
		t.Fatalf("Translations: %v", err)
	}
	if len(group) != 3 {
		t.Fatalf("expected en/es/fr group, got %v", group)
	}
	if lease, _ := h.queue.CurrentLease(ctx, queue.ProcessLeaseName); lease != nil {
		t.Fatalf("expected lease released, got %+v", lease)
	}
}

func TestProcessQueueNoDelayAfterLastItem(t *testing.T) {
	h := newHarness(t, replyWith("hola"), testsupport.WithBatchSize(3), testsupport.WithItemDelay(500))
	var sleeps int
	h.processor.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "p1")
	testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "p2")

	if _, err := h.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if sleeps != 1 {
		t.Fatalf("expected 1 delay between 2 items, got %d", sleeps)
	}
}

func TestProcessQueueLockHeldIsNoop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("API must not be called while the lease is held")
	})
	h := newHarness(t, handler)
	ctx := context.Background()

	held, ok, err := h.queue.AcquireLease(ctx, queue.ProcessLeaseName, time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLease: ok=%v err=%v", ok, err)
	}
	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	item := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "prompt")

	summary, err := h.processor.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if !summary.LockHeld || summary.Processed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Holder == nil || summary.Holder.Owner != held.Owner {
		t.Fatalf("expected holder %s, got %+v", held.Owner, summary.Holder)
	}
	if got := mustItem(t, h.queue, item.ID); got.Status != queue.StatusPending {
		t.Fatalf("expected item untouched, got %s", got.Status)
	}
	if current, _ := h.queue.CurrentLease(ctx, queue.ProcessLeaseName); current == nil || current.Owner != held.Owner {
		t.Fatalf("foreign lease must survive, got %+v", current)
	}
}

func TestProcessQueueMissingAPIKey(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("API must not be called without a key")
	})
	h := newHarness(t, handler)
	h.processor.translator = llm.NewClient(llm.Config{BaseURL: "http://127.0.0.1:1"})

	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	item := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "prompt")

	summary, err := h.processor.ProcessQueue(context.Background())
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	got := mustItem(t, h.queue, item.ID)
	if got.Status != queue.StatusFailed || got.ErrorMessage != "API key not configured" || got.Response != "" {
		t.Fatalf("unexpected item %+v", got)
	}
}

func TestProcessQueueRemoteOverloaded(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	})
	h := newHarness(t, handler)
	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	item := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "prompt")

	if _, err := h.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	got := mustItem(t, h.queue, item.ID)
	if got.Status != queue.StatusFailed || got.ErrorMessage != "overloaded" {
		t.Fatalf("unexpected item %+v", got)
	}
	posts, _ := h.content.ListPosts(context.Background())
	if len(posts) != 1 {
		t.Fatalf("failed translation must not create posts, got %d", len(posts))
	}
}

func TestProcessQueueFailureDoesNotAbortBatch(t *testing.T) {
	h := newHarness(t, replyWith("hola"), testsupport.WithBatchSize(2))
	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	missing := testsupport.Enqueue(t, h.queue, 999, "en", "es", "prompt")
	ok := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "prompt")

	summary, err := h.processor.ProcessQueue(context.Background())
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := mustItem(t, h.queue, missing.ID); got.ErrorMessage != "Original post not found" {
		t.Fatalf("unexpected failure message %q", got.ErrorMessage)
	}
	if got := mustItem(t, h.queue, ok.ID); got.Status != queue.StatusCompleted {
		t.Fatalf("second item should complete, got %s", got.Status)
	}
}

func TestProcessQueueBlankResponses(t *testing.T) {
	cases := []struct {
		name   string
		reply  string
		status queue.Status
	}{
		{"empty", "", queue.StatusFailed},
		{"spaces", "   ", queue.StatusFailed},
		{"newlines and tabs", "\n\t\r\n", queue.StatusFailed},
		{"padded text", "  hola\n", queue.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, replyWith(tc.reply))
			post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
			item := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "prompt")

			if _, err := h.processor.ProcessQueue(context.Background()); err != nil {
				t.Fatalf("ProcessQueue: %v", err)
			}
			got := mustItem(t, h.queue, item.ID)
			if got.Status != tc.status {
				t.Fatalf("expected %s, got %+v", tc.status, got)
			}
			if tc.status == queue.StatusFailed && got.ErrorMessage != "Empty translation response" {
				t.Fatalf("unexpected error message %q", got.ErrorMessage)
			}
			if tc.status == queue.StatusCompleted && got.Response != tc.reply {
				t.Fatalf("response must be stored verbatim, got %q", got.Response)
			}
		})
	}
}

func TestProcessQueueSameLanguageUpdatesSource(t *testing.T) {
	h := newHarness(t, replyWith("bonjour"))
	ctx := context.Background()
	post := testsupport.NewPost(t, h.content, "Salut", "fr", "salut")
	testsupport.Enqueue(t, h.queue, post.ID, "en", "fr", "prompt")

	if _, err := h.processor.ProcessQueue(ctx); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	got, _ := h.content.GetPost(ctx, post.ID)
	if got.Content != "bonjour" {
		t.Fatalf("expected source post updated, got %q", got.Content)
	}
}

func TestProcessQueueEmptyQueue(t *testing.T) {
	h := newHarness(t, replyWith("unused"))
	summary, err := h.processor.ProcessQueue(context.Background())
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.LockHeld || summary.Processed != 0 || summary.Aborted {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

type flakyTranslator struct {
	calls int
}

func (f *flakyTranslator) Translate(context.Context, string) (string, error) {
	f.calls++
	if f.calls == 1 {
		panic("translator exploded")
	}
	return "hola", nil
}

func TestProcessQueueItemPanicMarksFailedAndContinues(t *testing.T) {
	h := newHarness(t, replyWith("unused"), testsupport.WithBatchSize(2), testsupport.WithItemDelay(0))
	h.processor.translator = &flakyTranslator{}
	ctx := context.Background()
	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	first := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "p1")
	second := testsupport.Enqueue(t, h.queue, post.ID, "en", "fr", "p2")

	summary, err := h.processor.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Aborted || summary.Processed != 2 || summary.Failed != 1 || summary.Completed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	got := mustItem(t, h.queue, first.ID)
	if got.Status != queue.StatusFailed || got.ErrorMessage != "Translation aborted by an internal error" {
		t.Fatalf("panicking item should be failed, got %+v", got)
	}
	if got := mustItem(t, h.queue, second.ID); got.Status != queue.StatusCompleted {
		t.Fatalf("second item should complete, got %s", got.Status)
	}
	if lease, _ := h.queue.CurrentLease(ctx, queue.ProcessLeaseName); lease != nil {
		t.Fatalf("expected lease released after panic, got %+v", lease)
	}
}

func TestProcessQueueCancelDuringTranslateRecordsFailure(t *testing.T) {
	requestStarted := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(requestStarted)
		<-r.Context().Done()
	})
	h := newHarness(t, handler, testsupport.WithBatchSize(2), testsupport.WithItemDelay(0))
	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	first := testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "p1")
	second := testsupport.Enqueue(t, h.queue, post.ID, "en", "fr", "p2")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-requestStarted
		cancel()
	}()

	summary, err := h.processor.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 || !summary.Aborted {
		t.Fatalf("unexpected summary %+v", summary)
	}
	got := mustItem(t, h.queue, first.ID)
	if got.Status != queue.StatusFailed || got.ErrorMessage == "" || got.ProcessedAt == nil {
		t.Fatalf("canceled item must end failed with an error message, got %+v", got)
	}
	if got := mustItem(t, h.queue, second.ID); got.Status != queue.StatusPending {
		t.Fatalf("second item should stay pending, got %s", got.Status)
	}
	if lease, _ := h.queue.CurrentLease(context.Background(), queue.ProcessLeaseName); lease != nil {
		t.Fatalf("expected lease released after cancel, got %+v", lease)
	}
}

type failingPosts struct{}

func (failingPosts) GetPost(context.Context, int64) (*content.Post, error) {
	return nil, errors.New("database is locked")
}

func TestProcessQueuePostLoadErrorIsStorageFailure(t *testing.T) {
	h := newHarness(t, replyWith("unused"))
	h.processor.posts = failingPosts{}
	item := testsupport.Enqueue(t, h.queue, 1, "en", "es", "prompt")

	if _, err := h.processor.ProcessQueue(context.Background()); err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	got := mustItem(t, h.queue, item.ID)
	if got.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !strings.HasPrefix(got.ErrorMessage, "storage error: processor: load post") || !strings.Contains(got.ErrorMessage, "database is locked") {
		t.Fatalf("unexpected error message %q", got.ErrorMessage)
	}
}

func TestFailureHint(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", &llm.TransportError{Err: context.DeadlineExceeded}, "raise llm.timeout_seconds or check provider latency"},
		{"transport", &llm.TransportError{Err: errors.New("connection refused")}, "check network access to llm.base_url"},
		{"storage", services.Wrap(services.ErrStorage, "processor", "reconcile", "", errors.New("disk full")), "check content database access"},
		{"missing post", errPostNotFound, "the post was deleted after enqueue"},
		{"unknown", errors.New("boom"), "check logs for details"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failureHint(tc.err); got != tc.want {
				t.Fatalf("failureHint = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProcessQueueStopsOnCancelDuringDelay(t *testing.T) {
	h := newHarness(t, replyWith("hola"), testsupport.WithBatchSize(2), testsupport.WithItemDelay(10000))
	ctx, cancel := context.WithCancel(context.Background())
	h.processor.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}
	post := testsupport.NewPost(t, h.content, "Hello", "en", "hello")
	testsupport.Enqueue(t, h.queue, post.ID, "en", "es", "p1")
	second := testsupport.Enqueue(t, h.queue, post.ID, "en", "fr", "p2")

	summary, err := h.processor.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Completed != 1 || !summary.Aborted {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := mustItem(t, h.queue, second.ID); got.Status != queue.StatusPending {
		t.Fatalf("second item should stay pending, got %s", got.Status)
	}
	if lease, _ := h.queue.CurrentLease(context.Background(), queue.ProcessLeaseName); lease != nil {
		t.Fatalf("expected lease released after cancel, got %+v", lease)
	}
}
