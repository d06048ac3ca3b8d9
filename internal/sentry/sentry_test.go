package sentry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/regionstat/internal/ctxutil"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "disabled without token", cfg: Config{}},
		{name: "token without host", cfg: Config{Token: "t"}, wantErr: true},
		{name: "valid", cfg: Config{Token: "t", Host: "errors.betterstack.com", Environment: "test"}},
		{name: "default sample rate", cfg: Config{Token: "t", Host: "errors.betterstack.com", SampleRate: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Initialize(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Token: "abc", Host: "errors.example.com"}
	assert.Equal(t, "https://abc@errors.example.com/1", cfg.dsn())
}

func TestRequestTags(t *testing.T) {
	assert.Empty(t, requestTags(context.Background()))

	ctx := ctxutil.WithRequestID(context.Background(), "req-1")
	ctx = ctxutil.WithSnapshotID(ctx, "202510")
	ctx = ctxutil.WithClientIP(ctx, "10.0.0.1")
	assert.Equal(t, map[string]string{
		"request_id":  "req-1",
		"snapshot_id": "202510",
		"client_ip":   "10.0.0.1",
	}, requestTags(ctx))
}

func TestCaptureGinException(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Middleware())
	router.GET("/fail", func(c *gin.Context) {
		CaptureGinException(c, errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	Flush(10 * time.Millisecond)
}
