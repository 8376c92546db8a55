package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"polyglot/internal/config"
	"polyglot/internal/content"
	"polyglot/internal/language"
	"polyglot/internal/logging"
	"polyglot/internal/queue"
	"polyglot/internal/services"
)

// Operator-facing messages returned by the request and status calls.
const (
	MessageQueued            = "Translation queued successfully."
	MessagePending           = "Translation is queued."
	MessageProcessing        = "Translation in progress."
	MessageCompletedInPlace  = "Translation completed! Post content has been updated."
	MessageCompleted         = "Translation completed!"
	messageCompletedLinked   = "Translation completed! View translated post #%d."
	messageFailed            = "Translation failed: %s"
	messageInvalidParameters = "Invalid request parameters."
	messagePostNotFound      = "Post not found."
	messagePostNoLanguage    = "Post has no language set."
	messageItemNotFound      = "Queue item not found."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("langtag", func(fl validator.FieldLevel) bool {
		return language.Valid(fl.Field().String())
	})
	return v
}

// ValidateRequest checks struct tags on a request payload.
func ValidateRequest(v any) error {
	return validate.Struct(v)
}

// RequestError is a request failure with a client-safe message. The marker
// classifies it for status code mapping.
type RequestError struct {
	marker  error
	message string
	cause   error
}

func (e *RequestError) Error() string { return e.message }

func (e *RequestError) Is(target error) bool { return target == e.marker }

func (e *RequestError) Unwrap() error { return e.cause }

func requestError(marker error, message string, cause error) error {
	return &RequestError{marker: marker, message: message, cause: cause}
}

// JobStore is the queue surface the translation service needs.
type JobStore interface {
	Enqueue(ctx context.Context, item queue.NewItem) (*queue.Item, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
}

// PostReader resolves posts and their translation groups.
type PostReader interface {
	GetPost(ctx context.Context, id int64) (*content.Post, error)
	TranslationFor(ctx context.Context, postID int64, lang string) (int64, bool, error)
}

// Kicker starts an immediate processing run.
type Kicker interface {
	Kick() bool
}

// TranslationService implements the request and status operations.
type TranslationService struct {
	jobs     JobStore
	posts    PostReader
	kicker   Kicker
	template string
	source   string
	logger   *slog.Logger
}

// NewTranslationService wires the request API. kicker may be nil when no
// scheduler is running; the job then waits for the next processing run.
func NewTranslationService(cfg *config.Config, jobs JobStore, posts PostReader, kicker Kicker, logger *slog.Logger) *TranslationService {
	svc := &TranslationService{
		jobs:     jobs,
		posts:    posts,
		kicker:   kicker,
		template: config.DefaultPromptTemplate,
		logger:   logging.NewComponentLogger(logger, "translation-api"),
	}
	if cfg != nil {
		if tmpl := cfg.Translation.PromptTemplate; strings.TrimSpace(tmpl) != "" {
			svc.template = tmpl
		}
		svc.source = strings.TrimSpace(cfg.Translation.SourceLanguageName)
	}
	return svc
}

// Enqueue validates req, renders the prompt from the post body, stores a
// pending job, and kicks the scheduler.
func (s *TranslationService) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return EnqueueResponse{}, requestError(services.ErrValidation, messageInvalidParameters, err)
	}
	sourceLang, _ := language.Normalize(req.SourceLang)
	targetLang, _ := language.Normalize(req.TargetLang)

	post, err := s.posts.GetPost(ctx, req.PostID)
	if err != nil {
		return EnqueueResponse{}, fmt.Errorf("load post %d: %w", req.PostID, err)
	}
	if post == nil {
		return EnqueueResponse{}, requestError(services.ErrNotFound, messagePostNotFound, nil)
	}
	if strings.TrimSpace(post.Language) == "" {
		return EnqueueResponse{}, requestError(services.ErrValidation, messagePostNoLanguage, nil)
	}

	prompt := RenderPrompt(s.template, s.sourceName(sourceLang), targetLang, post.Content)
	item, err := s.jobs.Enqueue(ctx, queue.NewItem{
		PostID:     post.ID,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Prompt:     prompt,
	})
	if err != nil {
		return EnqueueResponse{}, fmt.Errorf("enqueue translation: %w", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	kicked := false
	if s.kicker != nil {
		kicked = s.kicker.Kick()
	}
	attrs := append([]logging.Attr{logging.Int64(logging.FieldItemID, item.ID)},
		logging.JobAttrs(post.ID, sourceLang, targetLang)...)
	attrs = append(attrs,
		logging.Int("prompt_chars", len(prompt)),
		logging.Bool("kicked", kicked),
		logging.String(logging.FieldEventType, "item_enqueued"),
	)
	logger.Info("translation queued", logging.Args(attrs...)...)
	return EnqueueResponse{QueueID: item.ID, Message: MessageQueued}, nil
}

// Status builds the polling view of queue item id.
func (s *TranslationService) Status(ctx context.Context, id int64) (TranslationStatus, error) {
	item, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return TranslationStatus{}, fmt.Errorf("load queue item %d: %w", id, err)
	}
	if item == nil {
		return TranslationStatus{}, requestError(services.ErrNotFound, messageItemNotFound, nil)
	}

	view := TranslationStatus{QueueID: item.ID, Status: string(item.Status)}
	switch item.Status {
	case queue.StatusPending:
		view.Message = MessagePending
	case queue.StatusProcessing:
		view.Message = MessageProcessing
	case queue.StatusFailed:
		view.Message = fmt.Sprintf(messageFailed, item.ErrorMessage)
	case queue.StatusCompleted:
		if err := s.describeCompleted(ctx, item, &view); err != nil {
			return TranslationStatus{}, err
		}
	}
	return view, nil
}

func (s *TranslationService) describeCompleted(ctx context.Context, item *queue.Item, view *TranslationStatus) error {
	view.Message = MessageCompleted
	post, err := s.posts.GetPost(ctx, item.PostID)
	if err != nil {
		return fmt.Errorf("load post %d: %w", item.PostID, err)
	}
	if post == nil {
		return nil
	}
	if language.Equal(post.Language, item.TargetLang) {
		view.Message = MessageCompletedInPlace
		view.SameItemUpdated = true
		return nil
	}
	translatedID, ok, err := s.posts.TranslationFor(ctx, item.PostID, item.TargetLang)
	if err != nil {
		return fmt.Errorf("lookup translation for post %d: %w", item.PostID, err)
	}
	if ok {
		view.Message = fmt.Sprintf(messageCompletedLinked, translatedID)
		view.TranslatedItemRef = translatedID
	}
	return nil
}

func (s *TranslationService) sourceName(sourceLang string) string {
	if s.source != "" {
		return s.source
	}
	return language.DisplayName(sourceLang)
}

// RenderPrompt substitutes {source_lang}, {target_lang}, and {content} in
// template. Substituted values are not rescanned.
func RenderPrompt(template, sourceLang, targetLang, body string) string {
	return strings.NewReplacer(
		"{source_lang}", sourceLang,
		"{target_lang}", targetLang,
		"{content}", body,
	).Replace(template)
}

// IsRequestError reports whether err carries a client-safe message.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}
