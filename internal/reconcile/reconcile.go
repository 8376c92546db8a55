package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"polyglot/internal/content"
	"polyglot/internal/logging"
)

// skippedMetaKeys are editor bookkeeping entries that belong to the source
// post only.
var skippedMetaKeys = map[string]struct{}{
	"_edit_lock":   {},
	"_edit_last":   {},
	"_wp_old_slug": {},
	"_wp_old_date": {},
}

// Store is the slice of the content store reconciliation needs.
type Store interface {
	PostLanguage(ctx context.Context, id int64) (string, error)
	UpdateContent(ctx context.Context, id int64, body string) error
	Translations(ctx context.Context, postID int64) (map[string]int64, error)
	CreatePost(ctx context.Context, post content.Post) (int64, error)
	SetPostLanguage(ctx context.Context, id int64, lang string) error
	SaveTranslations(ctx context.Context, group map[string]int64) error
	Meta(ctx context.Context, postID int64) ([]content.MetaEntry, error)
	ReplaceMeta(ctx context.Context, postID int64, key string, values []string) error
	PostTerms(ctx context.Context, postID int64) ([]content.TaxonomyTerms, error)
	TranslatedTerm(ctx context.Context, termID int64, lang string) (int64, bool, error)
	SetPostTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error
}

// Result reports where the translation landed.
type Result struct {
	ItemID          int64
	SameItemUpdated bool
	Created         bool
}

// Reconciler applies translations to the content store.
type Reconciler struct {
	store  Store
	logger *slog.Logger
}

// New constructs a Reconciler.
func New(store Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Reconcile writes translated into the post for targetLang, creating it when
// the source has no translation in that language yet.
func (r *Reconciler) Reconcile(ctx context.Context, original *content.Post, translated, targetLang string) (Result, error) {
	if original == nil {
		return Result{}, errors.New("reconcile: original post required")
	}
	targetLang = strings.TrimSpace(targetLang)
	if targetLang == "" {
		return Result{}, errors.New("reconcile: target language required")
	}

	sourceLang, err := r.store.PostLanguage(ctx, original.ID)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: source language: %w", err)
	}
	if strings.EqualFold(sourceLang, targetLang) {
		if err := r.store.UpdateContent(ctx, original.ID, translated); err != nil {
			return Result{}, fmt.Errorf("reconcile: update source: %w", err)
		}
		r.logger.Debug("translation written to source post",
			logging.Int64(logging.FieldPostID, original.ID),
			logging.String(logging.FieldTargetLang, targetLang),
		)
		return Result{ItemID: original.ID, SameItemUpdated: true}, nil
	}

	group, err := r.store.Translations(ctx, original.ID)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: translations: %w", err)
	}
	if existing, ok := content.LookupLanguage(group, targetLang); ok {
		if err := r.store.UpdateContent(ctx, existing, translated); err != nil {
			return Result{}, fmt.Errorf("reconcile: update translation %d: %w", existing, err)
		}
		r.logger.Debug("translation written to linked post",
			logging.Int64(logging.FieldPostID, original.ID),
			logging.Int64("translated_post_id", existing),
			logging.String(logging.FieldTargetLang, targetLang),
		)
		return Result{ItemID: existing}, nil
	}

	clone := content.Post{
		Title:         original.Title,
		Content:       translated,
		Status:        original.Status,
		Type:          original.Type,
		AuthorID:      original.AuthorID,
		Excerpt:       original.Excerpt,
		ParentID:      original.ParentID,
		MenuOrder:     original.MenuOrder,
		CommentStatus: original.CommentStatus,
		PingStatus:    original.PingStatus,
	}
	cloneID, err := r.store.CreatePost(ctx, clone)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: create translation: %w", err)
	}
	if err := r.store.SetPostLanguage(ctx, cloneID, targetLang); err != nil {
		return Result{}, fmt.Errorf("reconcile: set language: %w", err)
	}
	if group == nil {
		group = make(map[string]int64)
	}
	group[targetLang] = cloneID
	if err := r.store.SaveTranslations(ctx, group); err != nil {
		return Result{}, fmt.Errorf("reconcile: link translation: %w", err)
	}
	if err := r.copyMeta(ctx, original.ID, cloneID); err != nil {
		return Result{}, err
	}
	if err := r.copyTerms(ctx, original.ID, cloneID, targetLang); err != nil {
		return Result{}, err
	}

	r.logger.Info("translation post created",
		logging.Int64(logging.FieldPostID, original.ID),
		logging.Int64("translated_post_id", cloneID),
		logging.String(logging.FieldTargetLang, targetLang),
	)
	return Result{ItemID: cloneID, Created: true}, nil
}

func (r *Reconciler) copyMeta(ctx context.Context, from, to int64) error {
	entries, err := r.store.Meta(ctx, from)
	if err != nil {
		return fmt.Errorf("reconcile: read meta: %w", err)
	}
	for _, entry := range entries {
		if _, skip := skippedMetaKeys[entry.Key]; skip {
			continue
		}
		if err := r.store.ReplaceMeta(ctx, to, entry.Key, entry.Values); err != nil {
			return fmt.Errorf("reconcile: copy meta %s: %w", entry.Key, err)
		}
	}
	return nil
}

func (r *Reconciler) copyTerms(ctx context.Context, from, to int64, targetLang string) error {
	taxonomies, err := r.store.PostTerms(ctx, from)
	if err != nil {
		return fmt.Errorf("reconcile: read terms: %w", err)
	}
	for _, tax := range taxonomies {
		var mapped []int64
		for _, termID := range tax.TermIDs {
			translated, ok, err := r.store.TranslatedTerm(ctx, termID, targetLang)
			if err != nil {
				return fmt.Errorf("reconcile: translate term %d: %w", termID, err)
			}
			if ok {
				mapped = append(mapped, translated)
			}
		}
		if len(mapped) == 0 {
			continue
		}
		if err := r.store.SetPostTerms(ctx, to, tax.Taxonomy, mapped); err != nil {
			return fmt.Errorf("reconcile: set %s terms: %w", tax.Taxonomy, err)
		}
	}
	return nil
}
