package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/livez" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.True(t, probe(srv.URL+"/livez", time.Second))
	assert.False(t, probe(srv.URL+"/readyz", time.Second))

	srv.Close()
	assert.False(t, probe(srv.URL+"/livez", time.Second))
}
