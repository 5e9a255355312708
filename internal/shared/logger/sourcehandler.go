package logger

import (
	"context"
	"log/slog"
	"runtime"
)

type leveledSourceHandler struct {
	handler slog.Handler
	from    slog.Level
}

// NewLeveledSourceHandler attaches the caller location to records at or
// above the given level. The wrapped handler must not set AddSource itself.
func NewLeveledSourceHandler(handler slog.Handler, from slog.Level) slog.Handler {
	return &leveledSourceHandler{handler: handler, from: from}
}

func (h *leveledSourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.from {
		source := r.PC
		if source == 0 {
			var pcs [1]uintptr
			runtime.Callers(3, pcs[:])
			source = pcs[0]
		}
		f, _ := runtime.CallersFrames([]uintptr{source}).Next()
		r.AddAttrs(slog.Any(slog.SourceKey, &slog.Source{
			Function: f.Function,
			File:     f.File,
			Line:     f.Line,
		}))
	}
	return h.handler.Handle(ctx, r)
}

func (h *leveledSourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveledSourceHandler{handler: h.handler.WithAttrs(attrs), from: h.from}
}

func (h *leveledSourceHandler) WithGroup(name string) slog.Handler {
	return &leveledSourceHandler{handler: h.handler.WithGroup(name), from: h.from}
}

func (h *leveledSourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}
