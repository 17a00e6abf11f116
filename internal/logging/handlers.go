package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// ContextProvider returns attrs describing the running simulation. They are
// attached to every record under the "sim" group.
type ContextProvider func() []slog.Attr

// SimGroup is the group name dynamic simulation attrs are logged under.
const SimGroup = "sim"

// Tee hands each record to every sink that accepts its level. A failing sink
// does not stop the others; their errors are joined.
type Tee struct {
	sinks []slog.Handler
}

func NewTee(sinks ...slog.Handler) *Tee {
	return &Tee{sinks: slices.DeleteFunc(slices.Clone(sinks), func(h slog.Handler) bool { return h == nil })}
}

func (t *Tee) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(t.sinks, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (t *Tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *Tee) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *Tee) each(fn func(slog.Handler) slog.Handler) *Tee {
	out := make([]slog.Handler, len(t.sinks))
	for i, h := range t.sinks {
		out[i] = fn(h)
	}
	return &Tee{sinks: out}
}

// SimContext appends the provider's attrs to each record it handles. The provider
// is called at log time, so records carry the step that was current when logged.
type SimContext struct {
	next     slog.Handler
	provider ContextProvider
}

func NewSimContext(next slog.Handler, provider ContextProvider) *SimContext {
	return &SimContext{next: next, provider: provider}
}

func (h *SimContext) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SimContext) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			r.AddAttrs(slog.Attr{Key: SimGroup, Value: slog.GroupValue(attrs...)})
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *SimContext) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SimContext{next: h.next.WithAttrs(attrs), provider: h.provider}
}

func (h *SimContext) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SimContext{next: h.next.WithGroup(name), provider: h.provider}
}
