package reconcile_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"polyglot/internal/content"
	"polyglot/internal/logging"
	"polyglot/internal/reconcile"
	"polyglot/internal/testsupport"
)

func TestReconcileSameLanguageUpdatesSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenContent(t, cfg)
	ctx := context.Background()
	post := testsupport.NewPost(t, store, "Hola", "es", "viejo")

	result, err := reconcile.New(store, logging.NewNop()).Reconcile(ctx, post, "nuevo", "ES")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.SameItemUpdated || result.Created || result.ItemID != post.ID {
		t.Fatalf("unexpected result %+v", result)
	}
	got, _ := store.GetPost(ctx, post.ID)
	if got.Content != "nuevo" {
		t.Fatalf("expected source content replaced, got %q", got.Content)
	}
}

func TestReconcileUpdatesExistingTranslation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenContent(t, cfg)
	ctx := context.Background()
	original := testsupport.NewPost(t, store, "Hello", "en", "hello")
	existing := testsupport.NewPost(t, store, "Hola", "es", "hola viejo")
	if err := store.SaveTranslations(ctx, map[string]int64{"en": original.ID, "es": existing.ID}); err != nil {
		t.Fatalf("SaveTranslations: %v", err)
	}
	for _, seed := range []struct {
		postID     int64
		key, value string
	}{
		{original.ID, "subtitle", "english subtitle"},
		{original.ID, "_thumbnail_id", "10"},
		{existing.ID, "subtitle", "subtitulo"},
	} {
		if err := store.AddMeta(ctx, seed.postID, seed.key, seed.value); err != nil {
			t.Fatalf("AddMeta: %v", err)
		}
	}
	catEN := mustTerm(t, store, content.Term{Taxonomy: "category", Name: "News", Slug: "news", Language: "en"})
	catES := mustTerm(t, store, content.Term{Taxonomy: "category", Name: "Noticias", Slug: "noticias", Language: "es"})
	if err := store.LinkTerms(ctx, catEN, catES); err != nil {
		t.Fatalf("LinkTerms: %v", err)
	}
	tagES := mustTerm(t, store, content.Term{Taxonomy: "post_tag", Name: "Solo", Slug: "solo", Language: "es"})
	if err := store.AddPostTerm(ctx, original.ID, catEN); err != nil {
		t.Fatalf("AddPostTerm: %v", err)
	}
	if err := store.AddPostTerm(ctx, existing.ID, tagES); err != nil {
		t.Fatalf("AddPostTerm: %v", err)
	}
	metaBefore, err := store.Meta(ctx, existing.ID)
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	termsBefore, err := store.PostTerms(ctx, existing.ID)
	if err != nil {
		t.Fatalf("PostTerms: %v", err)
	}

	result, err := reconcile.New(store, logging.NewNop()).Reconcile(ctx, original, "hola nuevo", "es")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Created || result.SameItemUpdated || result.ItemID != existing.ID {
		t.Fatalf("unexpected result %+v", result)
	}
	got, _ := store.GetPost(ctx, existing.ID)
	if got.Content != "hola nuevo" {
		t.Fatalf("expected translation updated, got %q", got.Content)
	}
	src, _ := store.GetPost(ctx, original.ID)
	if src.Content != "hello" {
		t.Fatalf("source must stay untouched, got %q", src.Content)
	}
	posts, _ := store.ListPosts(ctx)
	if len(posts) != 2 {
		t.Fatalf("expected no new post, got %d posts", len(posts))
	}

	metaAfter, err := store.Meta(ctx, existing.ID)
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if want := []content.MetaEntry{{Key: "subtitle", Values: []string{"subtitulo"}}}; !reflect.DeepEqual(metaAfter, want) ||
		!reflect.DeepEqual(metaAfter, metaBefore) {
		t.Fatalf("translation meta changed: before %#v after %#v", metaBefore, metaAfter)
	}
	termsAfter, err := store.PostTerms(ctx, existing.ID)
	if err != nil {
		t.Fatalf("PostTerms: %v", err)
	}
	if want := []content.TaxonomyTerms{{Taxonomy: "post_tag", TermIDs: []int64{tagES}}}; !reflect.DeepEqual(termsAfter, want) ||
		!reflect.DeepEqual(termsAfter, termsBefore) {
		t.Fatalf("translation terms changed: before %#v after %#v", termsBefore, termsAfter)
	}
}

func TestReconcileCreatesLinkedTranslation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenContent(t, cfg)
	ctx := context.Background()

	original, err := createPost(ctx, store, content.Post{
		Title:         "Hello",
		Content:       "hello",
		Status:        "publish",
		Type:          "page",
		AuthorID:      9,
		Excerpt:       "hi",
		MenuOrder:     4,
		CommentStatus: "closed",
		PingStatus:    "closed",
		Language:      "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, kv := range [][2]string{
		{"_edit_lock", "123:1"},
		{"_edit_last", "1"},
		{"_wp_old_slug", "old"},
		{"_wp_old_date", "2020-01-01"},
		{"subtitle", "first"},
		{"subtitle", "second"},
		{"_thumbnail_id", "77"},
	} {
		if err := store.AddMeta(ctx, original.ID, kv[0], kv[1]); err != nil {
			t.Fatalf("AddMeta: %v", err)
		}
	}

	catEN := mustTerm(t, store, content.Term{Taxonomy: "category", Name: "News", Slug: "news", Language: "en"})
	catES := mustTerm(t, store, content.Term{Taxonomy: "category", Name: "Noticias", Slug: "noticias", Language: "es"})
	if err := store.LinkTerms(ctx, catEN, catES); err != nil {
		t.Fatalf("LinkTerms: %v", err)
	}
	untranslated := mustTerm(t, store, content.Term{Taxonomy: "category", Name: "Local", Slug: "local", Language: "en"})
	tagEN := mustTerm(t, store, content.Term{Taxonomy: "post_tag", Name: "Only English", Slug: "only-en", Language: "en"})
	for _, id := range []int64{catEN, untranslated, tagEN} {
		if err := store.AddPostTerm(ctx, original.ID, id); err != nil {
			t.Fatalf("AddPostTerm: %v", err)
		}
	}

	result, err := reconcile.New(store, logging.NewNop()).Reconcile(ctx, original, "hola", "es")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Created || result.ItemID == original.ID {
		t.Fatalf("unexpected result %+v", result)
	}

	clone, err := store.GetPost(ctx, result.ItemID)
	if err != nil || clone == nil {
		t.Fatalf("GetPost clone: %v", err)
	}
	if clone.Content != "hola" || clone.Title != "Hello" || clone.Language != "es" {
		t.Fatalf("unexpected clone %#v", clone)
	}
	if clone.Status != "publish" || clone.Type != "page" || clone.AuthorID != 9 || clone.MenuOrder != 4 ||
		clone.Excerpt != "hi" || clone.CommentStatus != "closed" || clone.PingStatus != "closed" {
		t.Fatalf("editorial fields not copied: %#v", clone)
	}

	group, err := store.Translations(ctx, original.ID)
	if err != nil {
		t.Fatalf("Translations: %v", err)
	}
	if want := map[string]int64{"en": original.ID, "es": clone.ID}; !reflect.DeepEqual(group, want) {
		t.Fatalf("group = %v, want %v", group, want)
	}

	meta, err := store.Meta(ctx, clone.ID)
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	wantMeta := []content.MetaEntry{
		{Key: "subtitle", Values: []string{"first", "second"}},
		{Key: "_thumbnail_id", Values: []string{"77"}},
	}
	if !reflect.DeepEqual(meta, wantMeta) {
		t.Fatalf("meta = %#v, want %#v", meta, wantMeta)
	}

	terms, err := store.PostTerms(ctx, clone.ID)
	if err != nil {
		t.Fatalf("PostTerms: %v", err)
	}
	wantTerms := []content.TaxonomyTerms{{Taxonomy: "category", TermIDs: []int64{catES}}}
	if !reflect.DeepEqual(terms, wantTerms) {
		t.Fatalf("terms = %#v, want %#v", terms, wantTerms)
	}
}

func TestReconcileSecondRunReusesClone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenContent(t, cfg)
	ctx := context.Background()
	original := testsupport.NewPost(t, store, "Hello", "en", "hello")
	reconciler := reconcile.New(store, logging.NewNop())

	first, err := reconciler.Reconcile(ctx, original, "hola", "es")
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	second, err := reconciler.Reconcile(ctx, original, "hola otra vez", "es")
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if second.Created || second.ItemID != first.ItemID {
		t.Fatalf("expected update of %d, got %+v", first.ItemID, second)
	}
	got, _ := store.GetPost(ctx, first.ItemID)
	if got.Content != "hola otra vez" {
		t.Fatalf("expected latest translation, got %q", got.Content)
	}
}

func TestReconcileRequiresInputs(t *testing.T) {
	r := reconcile.New(&failingStore{}, nil)
	if _, err := r.Reconcile(context.Background(), nil, "x", "es"); err == nil {
		t.Fatal("expected error for nil post")
	}
	if _, err := r.Reconcile(context.Background(), &content.Post{ID: 1}, "x", " "); err == nil {
		t.Fatal("expected error for blank target")
	}
}

func TestReconcilePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	r := reconcile.New(&failingStore{lang: "en", createErr: boom}, nil)
	_, err := r.Reconcile(context.Background(), &content.Post{ID: 1}, "hola", "es")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped create error, got %v", err)
	}
}

func createPost(ctx context.Context, store *content.Store, post content.Post) (*content.Post, error) {
	id, err := store.CreatePost(ctx, post)
	if err != nil {
		return nil, err
	}
	return store.GetPost(ctx, id)
}

func mustTerm(t *testing.T, store *content.Store, term content.Term) int64 {
	t.Helper()
	id, err := store.CreateTerm(context.Background(), term)
	if err != nil {
		t.Fatalf("CreateTerm: %v", err)
	}
	return id
}

type failingStore struct {
	lang      string
	createErr error
}

func (f *failingStore) PostLanguage(context.Context, int64) (string, error) { return f.lang, nil }
func (f *failingStore) UpdateContent(context.Context, int64, string) error { return nil }
func (f *failingStore) Translations(context.Context, int64) (map[string]int64, error) {
	return map[string]int64{f.lang: 1}, nil
}
func (f *failingStore) CreatePost(context.Context, content.Post) (int64, error) {
	return 0, f.createErr
}
func (f *failingStore) SetPostLanguage(context.Context, int64, string) error        { return nil }
func (f *failingStore) SaveTranslations(context.Context, map[string]int64) error    { return nil }
func (f *failingStore) Meta(context.Context, int64) ([]content.MetaEntry, error)    { return nil, nil }
func (f *failingStore) ReplaceMeta(context.Context, int64, string, []string) error  { return nil }
func (f *failingStore) PostTerms(context.Context, int64) ([]content.TaxonomyTerms, error) {
	return nil, nil
}
func (f *failingStore) TranslatedTerm(context.Context, int64, string) (int64, bool, error) {
	return 0, false, nil
}
func (f *failingStore) SetPostTerms(context.Context, int64, string, []int64) error { return nil }
