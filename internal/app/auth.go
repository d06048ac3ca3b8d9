package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/regionstat/internal/config"
)

// basicAuth holds the credentials of one Basic-auth realm.
type basicAuth struct {
	realm    string
	username string
	password string
}

func (a basicAuth) matches(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.password)) == 1
	return userOK && passOK
}

func (a basicAuth) middleware() gin.HandlerFunc {
	challenge := `Basic realm="` + a.realm + `", charset="UTF-8"`
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok || !a.matches(user, pass) {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// metricsAuthMiddleware guards /metrics when metrics auth is enabled and
// passes everything through otherwise.
func metricsAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.MetricsAuthEnabled {
		return func(c *gin.Context) { c.Next() }
	}
	return basicAuth{
		realm:    "metrics",
		username: cfg.MetricsUsername,
		password: cfg.MetricsPassword,
	}.middleware()
}
