package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Fanout sends every record to each wrapped handler that accepts its level.
type Fanout struct {
	sinks []slog.Handler
}

// NewFanout wraps handlers; nil entries are dropped.
func NewFanout(handlers ...slog.Handler) *Fanout {
	f := &Fanout{}
	for _, h := range handlers {
		if h != nil {
			f.sinks = append(f.sinks, h)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every sink. A failing sink does not stop the others;
// their errors are joined.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{sinks: make([]slog.Handler, len(f.sinks))}
	for i, h := range f.sinks {
		out.sinks[i] = fn(h)
	}
	return out
}
