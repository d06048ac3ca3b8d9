package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/regionstat/internal/ctxutil"
)

// captureJSON logs through a ContextHandler built by wrap and returns the
// decoded record.
func captureJSON(t *testing.T, wrap func(slog.Handler) slog.Handler, log func(*slog.Logger)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	log(slog.New(wrap(NewContextHandler(slog.NewJSONHandler(&buf, nil)))))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func noWrap(h slog.Handler) slog.Handler { return h }

func TestContextHandler_Handle(t *testing.T) {
	tests := []struct {
		name string
		ctx  func(context.Context) context.Context
		want map[string]string
	}{
		{
			name: "all tracing values",
			ctx: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithRequestID(ctx, "req-abc-123")
				ctx = ctxutil.WithSnapshotID(ctx, "202510")
				return ctxutil.WithClientIP(ctx, "192.0.2.1")
			},
			want: map[string]string{"request_id": "req-abc-123", "snapshot_id": "202510", "client_ip": "192.0.2.1"},
		},
		{
			name: "snapshot only",
			ctx:  func(ctx context.Context) context.Context { return ctxutil.WithSnapshotID(ctx, "202509") },
			want: map[string]string{"snapshot_id": "202509"},
		},
		{
			name: "empty values skipped",
			ctx: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithSnapshotID(ctx, "")
				return ctxutil.WithRequestID(ctx, "req-1")
			},
			want: map[string]string{"request_id": "req-1"},
		},
		{
			name: "bare context",
			ctx:  func(ctx context.Context) context.Context { return ctx },
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := captureJSON(t, noWrap, func(l *slog.Logger) {
				l.InfoContext(tt.ctx(context.Background()), "view built")
			})
			for _, f := range contextFields {
				want, ok := tt.want[f.key]
				if !ok {
					assert.NotContains(t, entry, f.key)
					continue
				}
				assert.Equal(t, want, entry[f.key])
			}
		})
	}
}

func TestContextHandler_Enabled(t *testing.T) {
	h := NewContextHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := context.Background()

	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.True(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestContextHandler_WithAttrsAndGroup(t *testing.T) {
	entry := captureJSON(t,
		func(h slog.Handler) slog.Handler {
			return h.WithAttrs([]slog.Attr{slog.String("service", "regionstat")}).WithGroup("supply")
		},
		func(l *slog.Logger) {
			l.InfoContext(ctxutil.WithSnapshotID(context.Background(), "202510"), "calendar", "regions", 3)
		})

	assert.Equal(t, "regionstat", entry["service"])
	group, ok := entry["supply"].(map[string]any)
	require.True(t, ok, "group attrs are nested")
	assert.InDelta(t, 3, group["regions"], 0)
	// record attrs added by the handler land inside the open group
	assert.Equal(t, "202510", group["snapshot_id"])
}

func TestContextHandler_ExplicitAttrs(t *testing.T) {
	ctx := ctxutil.WithRequestID(context.Background(), "req-test-123")
	entry := captureJSON(t, noWrap, func(l *slog.Logger) {
		l.InfoContext(ctx, "processing request", slog.String("view", "supply"), slog.Int("attempt", 1))
	})

	assert.Equal(t, "req-test-123", entry["request_id"])
	assert.Equal(t, "supply", entry["view"])
	assert.InDelta(t, 1, entry["attempt"], 0)
	assert.Equal(t, "processing request", entry["msg"])
}
