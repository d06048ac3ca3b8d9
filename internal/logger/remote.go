package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize    = 1024
	defaultFlushTimeout = 5 * time.Second
)

// QueueOptions sizes the in-memory queue in front of remote log shipping.
type QueueOptions struct {
	Size         int
	FlushTimeout time.Duration
}

// teeHandler writes each record to every handler that accepts its level.
type teeHandler []slog.Handler

func tee(handlers ...slog.Handler) slog.Handler {
	out := make(teeHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithGroup(name)
	}
	return next
}

type queued struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// shipQueue drains records on one goroutine. A full queue drops the
// record and counts it; records arriving after close are ignored.
type shipQueue struct {
	mu      sync.RWMutex // guards closed against concurrent sends
	closed  bool
	records chan queued
	done    chan struct{}
	dropped atomic.Uint64
	timeout time.Duration
}

func newShipQueue(opts QueueOptions) *shipQueue {
	if opts.Size <= 0 {
		opts.Size = defaultQueueSize
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultFlushTimeout
	}
	q := &shipQueue{
		records: make(chan queued, opts.Size),
		done:    make(chan struct{}),
		timeout: opts.FlushTimeout,
	}
	go q.drain()
	return q
}

func (q *shipQueue) drain() {
	defer close(q.done)
	for rec := range q.records {
		_ = rec.handler.Handle(rec.ctx, rec.record)
	}
}

func (q *shipQueue) push(rec queued) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.records <- rec:
	default:
		q.dropped.Add(1)
	}
}

func (q *shipQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.records)
	q.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shipHandler moves Handle calls of a slow remote handler off the caller's
// goroutine.
type shipHandler struct {
	q    *shipQueue
	next slog.Handler
}

func newShipHandler(next slog.Handler, opts QueueOptions) *shipHandler {
	return &shipHandler{q: newShipQueue(opts), next: next}
}

func (h *shipHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle never blocks and never fails.
func (h *shipHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.next.Enabled(ctx, r.Level) {
		// the caller's context may be cancelled before the record drains
		h.q.push(queued{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.next})
	}
	return nil
}

func (h *shipHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &shipHandler{q: h.q, next: h.next.WithAttrs(attrs)}
}

func (h *shipHandler) WithGroup(name string) slog.Handler {
	return &shipHandler{q: h.q, next: h.next.WithGroup(name)}
}

// Dropped reports how many records the full queue discarded.
func (h *shipHandler) Dropped() uint64 {
	return h.q.dropped.Load()
}

// Shutdown stops accepting records and waits for the queue to drain.
func (h *shipHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.q.close(ctx)
}
