// Package sentry reports server errors to a Sentry-compatible backend
// (Better Stack Errors).
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/garyellow/regionstat/internal/ctxutil"
)

// Config holds Sentry configuration. An empty Token disables reporting.
type Config struct {
	Token       string // Better Stack Errors application token
	Host        string // e.g. errors.betterstack.com
	Environment string
	Release     string
	ServerName  string
	SampleRate  float64 // 0 means 1.0
}

func (c Config) dsn() string {
	// Better Stack ignores the project id but the SDK requires one.
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host)
}

// Initialize sets up the global SDK client. It is a no-op without a token.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return errors.New("sentry host is required when token is provided")
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.dsn(),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		SampleRate:       rate,
		AttachStacktrace: true,
	})
}

// Middleware clones a hub per request and reports recovered panics before
// re-raising them for gin.Recovery.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// Flush waits up to timeout for buffered events.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether Initialize installed a client.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// requestTags lists the request-scoped values worth grouping events by.
func requestTags(ctx context.Context) map[string]string {
	tags := make(map[string]string, 3)
	if id, ok := ctxutil.GetRequestID(ctx); ok {
		tags["request_id"] = id
	}
	if id := ctxutil.GetSnapshotID(ctx); id != "" {
		tags["snapshot_id"] = id
	}
	if ip := ctxutil.GetClientIP(ctx); ip != "" {
		tags["client_ip"] = ip
	}
	return tags
}

// CaptureGinException reports err on the hub the middleware attached to c,
// or the global hub, tagged with the request's identifiers.
func CaptureGinException(c *gin.Context, err error) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		hub = sentry.GetHubFromContext(c.Request.Context())
	}
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	tags := requestTags(c.Request.Context())
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
