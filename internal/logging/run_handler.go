package logging

import (
	"context"
	"log/slog"
)

// FieldRunID tags every record emitted during one daemon run.
const FieldRunID = "run_id"

// runHandler decorates a base handler for one daemon run: it stamps run_id
// and can raise the minimum level for a quieter view of the same output.
// minLevel is only enforced when hasMin is set so the base level still
// applies to plain run loggers.
type runHandler struct {
	base     slog.Handler
	runID    string
	minLevel slog.Level
	hasMin   bool
}

func (h *runHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.hasMin && level < h.minLevel {
		return false
	}
	return h.base.Enabled(ctx, level)
}

func (h *runHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.hasMin && record.Level < h.minLevel {
		return nil
	}
	if h.runID != "" {
		record.AddAttrs(slog.String(FieldRunID, h.runID))
	}
	return h.base.Handle(ctx, record)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.base = h.base.WithAttrs(attrs)
	return &next
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.base = h.base.WithGroup(name)
	return &next
}

func decorate(logger *slog.Logger, apply func(*runHandler)) *slog.Logger {
	var h runHandler
	switch existing := logger.Handler().(type) {
	case *runHandler:
		h = *existing
	default:
		h = runHandler{base: existing}
	}
	apply(&h)
	return slog.New(&h)
}

// WithRunID returns a logger whose records all carry run_id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	if logger == nil || runID == "" {
		return logger
	}
	return decorate(logger, func(h *runHandler) { h.runID = runID })
}

// WithLevelOverride returns a logger that drops records below level while
// keeping the run_id and attributes of logger. Repeated overrides replace
// each other rather than stacking.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return slog.New(NoopHandler{})
	}
	return decorate(logger, func(h *runHandler) {
		h.minLevel = level
		h.hasMin = true
	})
}
