// Package logger wraps log/slog with the service's JSON layout, request
// and snapshot identifiers pulled from the context, and optional shipping
// to Better Stack.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Logger is the application logger.
type Logger struct {
	*slog.Logger
	remote *shipHandler
}

// Options configures log shipping. Shipping is off without a token.
type Options struct {
	BetterStackToken    string
	BetterStackEndpoint string
	Queue               QueueOptions
}

// New logs JSON to stdout.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter logs JSON to w.
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(level, w, Options{})
}

// NewWithOptions logs JSON to w and, when configured, also queues every
// record for Better Stack.
func NewWithOptions(level string, w io.Writer, opts Options) *Logger {
	lvl := parseLevel(level)

	var h slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, ReplaceAttr: renameKeys})
	var remote *shipHandler
	if opts.BetterStackToken != "" {
		remote = newShipHandler(slogbetterstack.Option{
			Level:    lvl,
			Token:    opts.BetterStackToken,
			Endpoint: opts.BetterStackEndpoint,
		}.NewBetterstackHandler(), opts.Queue)
		h = tee(h, remote)
	}
	return &Logger{Logger: slog.New(NewContextHandler(h)), remote: remote}
}

// Shutdown flushes records still queued for shipping.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l == nil || l.remote == nil {
		return nil
	}
	return l.remote.Shutdown(ctx)
}

// DroppedRecords counts records discarded because the ship queue was full.
func (l *Logger) DroppedRecords() uint64 {
	if l == nil || l.remote == nil {
		return 0
	}
	return l.remote.Dropped()
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLevel(level string) slog.Level {
	if lvl, ok := levels[strings.ToLower(level)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// renameKeys emits timestamp, level and message, with lower-case level
// names and "warning" for WARN.
func renameKeys(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	case slog.LevelKey:
		name := strings.ToLower(a.Value.String())
		if name == "warn" {
			name = "warning"
		}
		a.Value = slog.StringValue(name)
	}
	return a
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.With(args...), remote: l.remote}
}

// WithModule tags records with the emitting package.
func (l *Logger) WithModule(module string) *Logger { return l.with("module", module) }

// WithSnapshot tags records with a snapshot identifier.
func (l *Logger) WithSnapshot(snapshotID string) *Logger { return l.with("snapshot_id", snapshotID) }

// WithError attaches err under the "error" key.
func (l *Logger) WithError(err error) *Logger { return l.with("error", err) }

// WithField attaches a single attribute.
func (l *Logger) WithField(key string, value any) *Logger { return l.with(key, value) }
