package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/export"
	"github.com/garyellow/regionstat/internal/sentry"
)

// classify maps an error to its HTTP status and metric label.
func classify(err error) (int, string) {
	switch {
	case domerrors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case domerrors.IsInvalidInput(err):
		return http.StatusBadRequest, "invalid_input"
	case domerrors.IsDatasetMissing(err), errors.Is(err, export.ErrEmptyChart):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, domerrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case domerrors.IsRateLimitExceeded(err):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// userMessage is the response text for err. Internal failures only expose
// the user message of a wrapped error.
func userMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		var wrapped *domerrors.WrappedError
		if errors.As(err, &wrapped) {
			return wrapped.UserMessage
		}
		return "내부 오류가 발생했습니다"
	case http.StatusServiceUnavailable:
		return "요청 처리 시간이 초과되었습니다"
	case http.StatusUnprocessableEntity:
		if errors.Is(err, export.ErrEmptyChart) {
			return "그릴 데이터가 없습니다"
		}
	}
	return domerrors.GetUserMessage(err)
}

// fail writes the JSON error response for err and aborts the chain.
func (h *Handler) fail(c *gin.Context, err error) {
	status, kind := classify(err)
	route := c.FullPath()

	if h.metrics != nil {
		h.metrics.RecordHTTPError(kind, route)
	}

	entry := h.log.WithError(err).WithField("route", route).WithField("http_status", status)
	if status >= http.StatusInternalServerError {
		entry.ErrorContext(c.Request.Context(), "Request failed")
		if status == http.StatusInternalServerError {
			sentry.CaptureGinException(c, err)
		}
	} else {
		entry.DebugContext(c.Request.Context(), "Request rejected")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": userMessage(status, err)})
}
