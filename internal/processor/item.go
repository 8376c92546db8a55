package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"polyglot/internal/content"
	"polyglot/internal/logging"
	"polyglot/internal/metrics"
	"polyglot/internal/notifications"
	"polyglot/internal/queue"
	"polyglot/internal/reconcile"
	"polyglot/internal/services"
	"polyglot/internal/services/llm"
)

// itemError is a per-item failure whose text is stored verbatim on the job.
type itemError struct {
	marker  error
	message string
}

func (e *itemError) Error() string        { return e.message }
func (e *itemError) Is(target error) bool { return target == e.marker }

var (
	errPostNotFound  = &itemError{marker: services.ErrNotFound, message: "Original post not found"}
	errEmptyResponse = &itemError{marker: services.ErrEmptyResponse, message: "Empty translation response"}
	errItemPanicked  = &itemError{marker: services.ErrInternal, message: "Translation aborted by an internal error"}
)

type outcome struct {
	post     *content.Post
	response string
	result   reconcile.Result
}

func (p *Processor) processItem(ctx context.Context, item *queue.Item, summary *Summary) {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, p.logger).With(
		logging.Args(logging.JobAttrs(item.PostID, item.SourceLang, item.TargetLang)...)...,
	)

	if err := p.queue.MarkProcessing(ctx, item.ID); err != nil {
		if errors.Is(err, queue.ErrInvalidTransition) {
			logger.Debug("queue item no longer pending; skipping",
				logging.String(logging.FieldEventType, "item_skipped"),
			)
			return
		}
		logging.ErrorWithContext(logger, "mark item processing failed", "item_claim_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return
	}
	summary.Processed++

	// Once claimed, the item must reach a terminal state even when the batch
	// context is canceled mid-translation.
	recordCtx := context.WithoutCancel(ctx)
	settled := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("queue item panicked",
			logging.String("panic", fmt.Sprint(r)),
			logging.String("stack", string(debug.Stack())),
			logging.String(logging.FieldEventType, "item_panic"),
			logging.Alert("item_panic"),
		)
		if settled {
			return
		}
		summary.Failed++
		p.recordFailed(recordCtx, logger, item, errItemPanicked)
	}()

	started := time.Now()
	out, err := p.translateItem(ctx, logger, item)
	if err == nil {
		err = p.queue.MarkCompleted(recordCtx, item.ID, out.response)
		if err == nil {
			settled = true
			summary.Completed++
			p.recordCompleted(recordCtx, logger, item, out, time.Since(started))
			return
		}
		logging.ErrorWithContext(logger, "record completion failed", "item_complete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}

	settled = true
	summary.Failed++
	p.recordFailed(recordCtx, logger, item, err)
}

func (p *Processor) translateItem(ctx context.Context, logger *slog.Logger, item *queue.Item) (outcome, error) {
	post, err := p.posts.GetPost(ctx, item.PostID)
	if err != nil {
		return outcome{}, services.Wrap(services.ErrStorage, "processor", "load post", fmt.Sprintf("post %d", item.PostID), err)
	}
	if post == nil {
		return outcome{}, errPostNotFound
	}

	logger.Debug("sending translation request",
		logging.Int("prompt_chars", len(item.Prompt)),
	)
	callStarted := time.Now()
	response, err := p.translator.Translate(ctx, item.Prompt)
	elapsed := time.Since(callStarted)
	metrics.TranslationDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		return outcome{}, err
	}
	if strings.TrimSpace(response) == "" {
		return outcome{}, errEmptyResponse
	}
	logger.Debug("translation received",
		logging.Int("response_chars", len(response)),
		logging.String("response_preview", llm.SummarizePayload(response)),
		logging.Duration("translate_duration", elapsed),
	)

	result, err := p.reconciler.Reconcile(ctx, post, response, item.TargetLang)
	if err != nil {
		return outcome{}, services.Wrap(services.ErrStorage, "processor", "reconcile", "", err)
	}
	return outcome{post: post, response: response, result: result}, nil
}

func (p *Processor) recordCompleted(ctx context.Context, logger *slog.Logger, item *queue.Item, out outcome, elapsed time.Duration) {
	metrics.JobsTotal.WithLabelValues(string(queue.StatusCompleted), services.Kind(nil)).Inc()

	attrs := []logging.Attr{
		logging.String("status", string(queue.StatusCompleted)),
		logging.Duration("translate_duration", elapsed),
		logging.String(logging.FieldEventType, "item_completed"),
	}
	payload := notifications.Payload{
		"itemID":     item.ID,
		"postTitle":  out.post.Title,
		"targetLang": item.TargetLang,
	}
	if !out.result.SameItemUpdated {
		attrs = append(attrs, logging.Int64("translated_post_id", out.result.ItemID))
		payload["translatedPostID"] = out.result.ItemID
	}
	logger.Info("translation completed", logging.Args(attrs...)...)
	p.notify(ctx, logger, notifications.EventTranslationCompleted, payload)
}

func (p *Processor) recordFailed(ctx context.Context, logger *slog.Logger, item *queue.Item, cause error) {
	message := services.Message(cause)
	if err := p.queue.MarkFailed(ctx, item.ID, message); err != nil {
		logging.ErrorWithContext(logger, "record failure failed; item left processing", "item_fail_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "clear the item with polyglot queue clear"),
		)
	}

	kind := services.Kind(cause)
	metrics.JobsTotal.WithLabelValues(string(queue.StatusFailed), kind).Inc()
	logging.WarnWithContext(logger, "translation failed", "item_failed",
		logging.String("status", string(queue.StatusFailed)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldErrorHint, failureHint(cause)),
		logging.String(logging.FieldImpact, "item recorded as failed; re-enqueue to retry"),
	)
	p.notify(ctx, logger, notifications.EventTranslationFailed, notifications.Payload{
		"itemID":     item.ID,
		"targetLang": item.TargetLang,
		"error":      message,
	})
}

func (p *Processor) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification delivery failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "operator was not notified"),
		)
	}
}

func failureHint(cause error) string {
	if llm.IsTimeout(cause) {
		return "raise llm.timeout_seconds or check provider latency"
	}
	switch services.Kind(cause) {
	case "configuration":
		return "set llm.api_key or XAI_API_KEY"
	case "transport":
		return "check network access to llm.base_url"
	case "api":
		return "check the API key, model and provider status"
	case "not_found":
		return "the post was deleted after enqueue"
	case "empty_response":
		return "retry; the model returned no text"
	case "storage":
		return "check content database access"
	default:
		return "check logs for details"
	}
}
