package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/regionstat/internal/ctxutil"
)

// contextFields are the tracing values copied from the context onto every
// record. Empty values are skipped.
var contextFields = []struct {
	key string
	get func(context.Context) string
}{
	{"request_id", requestID},
	{"snapshot_id", ctxutil.GetSnapshotID},
	{"client_ip", ctxutil.GetClientIP},
}

func requestID(ctx context.Context) string {
	id, _ := ctxutil.GetRequestID(ctx)
	return id
}

// ContextHandler decorates a slog.Handler so that *Context logging calls
// carry request_id, snapshot_id and client_ip without every call site
// passing them.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler wraps handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds the context's tracing values to r. Cancellation of ctx is
// ignored, as the slog.Handler contract requires.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, f := range contextFields {
		if v := f.get(ctx); v != "" {
			r.AddAttrs(slog.String(f.key, v))
		}
	}
	return h.handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
