package logger

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler fans each record out to every handler in the slice. slog ships
// no handler composition, and the OTLP bridge has to see the same records as
// the primary output.
type teeHandler []slog.Handler

var _ slog.Handler = (teeHandler)(nil)

// Enabled reports true if any of the handlers would accept the level.
func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle delivers the record to every handler that accepts its level. A
// failing handler does not stop delivery to the others.
func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}

		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}

	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}

	return out
}
