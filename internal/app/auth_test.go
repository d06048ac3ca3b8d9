package app

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/garyellow/regionstat/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMetricsAuthMiddleware(t *testing.T) {
	cfg := &config.Config{
		MetricsAuthEnabled: true,
		MetricsUsername:    "prometheus",
		MetricsPassword:    "secret123",
	}
	router := gin.New()
	router.GET("/metrics", metricsAuthMiddleware(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"valid credentials", []string{"Authorization", basicHeader("prometheus", "secret123")}, http.StatusOK},
		{"wrong password", []string{"Authorization", basicHeader("prometheus", "wrong")}, http.StatusUnauthorized},
		{"wrong username", []string{"Authorization", basicHeader("grafana", "secret123")}, http.StatusUnauthorized},
		{"no header", nil, http.StatusUnauthorized},
		{"bearer token", []string{"Authorization", "Bearer secret123"}, http.StatusUnauthorized},
		{"malformed base64", []string{"Authorization", "Basic !!!"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/metrics", tt.header...)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="metrics", charset="UTF-8"`, w.Header().Get("WWW-Authenticate"))
			} else {
				assert.Equal(t, "metrics", w.Body.String())
			}
		})
	}
}

func TestMetricsAuthMiddleware_Disabled(t *testing.T) {
	router := gin.New()
	router.GET("/metrics", metricsAuthMiddleware(&config.Config{MetricsPassword: "ignored"}), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})

	w := serve(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func basicHeader(user, pass string) string {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth(user, pass)
	return req.Header.Get("Authorization")
}
