// Package ctxutil carries request identifiers through context.Context.
package ctxutil

import "context"

type key int

const (
	requestIDKey key = iota
	snapshotIDKey
	clientIPKey
)

// traced lists the keys PreserveTracing copies.
var traced = [...]key{requestIDKey, snapshotIDKey, clientIPKey}

func str(ctx context.Context, k key) string {
	s, _ := ctx.Value(k).(string)
	return s
}

// WithRequestID tags ctx with the id used to correlate logs and error reports.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID reports the request id and whether one was set.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// WithSnapshotID tags ctx with the snapshot being served.
func WithSnapshotID(ctx context.Context, snapshotID string) context.Context {
	return context.WithValue(ctx, snapshotIDKey, snapshotID)
}

// GetSnapshotID returns "" when no snapshot is set.
func GetSnapshotID(ctx context.Context) string { return str(ctx, snapshotIDKey) }

// WithClientIP tags ctx with the caller address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP returns "" when no address is set.
func GetClientIP(ctx context.Context) string { return str(ctx, clientIPKey) }

// PreserveTracing returns a fresh background context holding only the
// identifiers of ctx. It is never canceled and keeps no reference to ctx,
// so work shared by several requests (a snapshot load, say) can outlive
// the request that started it.
func PreserveTracing(ctx context.Context) context.Context {
	out := context.Background()
	for _, k := range traced {
		if v := str(ctx, k); v != "" {
			out = context.WithValue(out, k, v)
		}
	}
	return out
}
