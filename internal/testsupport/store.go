package testsupport

import (
	"context"
	"testing"

	"polyglot/internal/config"
	"polyglot/internal/content"
	"polyglot/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenContent opens a content.Store for tests and registers cleanup.
func MustOpenContent(t testing.TB, cfg *config.Config) *content.Store {
	t.Helper()

	store, err := content.Open(cfg)
	if err != nil {
		t.Fatalf("content.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewPost creates a post with the given language and body.
func NewPost(t testing.TB, store *content.Store, title, lang, body string) *content.Post {
	t.Helper()

	ctx := context.Background()
	id, err := store.CreatePost(ctx, content.Post{
		Title:    title,
		Content:  body,
		Status:   "publish",
		Language: lang,
	})
	if err != nil {
		t.Fatalf("store.CreatePost: %v", err)
	}
	post, err := store.GetPost(ctx, id)
	if err != nil || post == nil {
		t.Fatalf("store.GetPost: %v", err)
	}
	return post
}

// Enqueue inserts a pending job for tests.
func Enqueue(t testing.TB, store *queue.Store, postID int64, source, target, prompt string) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), queue.NewItem{
		PostID:     postID,
		SourceLang: source,
		TargetLang: target,
		Prompt:     prompt,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
