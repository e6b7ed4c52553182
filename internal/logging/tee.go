package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler duplicates records across the configured sinks (stdout,
// journal, history). A record is offered to every sink that accepts its
// level; sink failures are joined rather than short-circuiting, so one
// broken sink cannot silence the others.
type teeHandler struct {
	sinks []slog.Handler
}

func newTeeHandler(sinks ...slog.Handler) *teeHandler {
	return &teeHandler{sinks: sinks}
}

// Enabled reports whether any sink wants records at this level.
func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range t.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle offers the record to every interested sink.
func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range t.sinks {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs derives a tee whose sinks all carry the attributes.
func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		derived[i] = sink.WithAttrs(attrs)
	}
	return &teeHandler{sinks: derived}
}

// WithGroup derives a tee whose sinks all open the group.
func (t *teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	derived := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		derived[i] = sink.WithGroup(name)
	}
	return &teeHandler{sinks: derived}
}
