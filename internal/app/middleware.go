package app

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/regionstat/internal/ctxutil"
	"github.com/garyellow/regionstat/internal/logger"
	"github.com/garyellow/regionstat/internal/metrics"
	"github.com/garyellow/regionstat/internal/ratelimit"
)

// requestIDHeader is echoed on every response.
const requestIDHeader = "X-Request-Id"

// requestIDMiddleware reuses an incoming request or correlation id, or
// generates one, and stores it in the request context.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
		ctx = ctxutil.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// securityHeadersMiddleware adds security headers to responses.
// The API serves JSON, XLSX, PNG and HTML fragments; none of them load
// sub-resources.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			entry.ErrorContext(ctx, "HTTP request failed")
		case status >= 400 && status != http.StatusNotFound:
			entry.WarnContext(ctx, "HTTP request rejected")
		case status == http.StatusNotFound:
			entry.DebugContext(ctx, "HTTP request not found")
		default:
			entry.DebugContext(ctx, "HTTP request completed")
		}
	}
}

// metricsMiddleware records request counts and latency by route template.
// Unmatched paths share one label so scanners cannot blow up cardinality.
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// rateLimitMiddleware applies a token bucket per client IP.
func rateLimitMiddleware(limiter *ratelimit.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if limiter.Allow(key) {
			c.Next()
			return
		}
		retry := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요",
			"retry_after": retry,
		})
	}
}

// timeoutMiddleware bounds the request context of API handlers.
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
