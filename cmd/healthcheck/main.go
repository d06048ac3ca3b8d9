// Package main probes the local server for distroless images, which ship
// without curl or wget. It exits 0 when the probe answers 200.
//
//	healthcheck          # GET /livez
//	healthcheck -ready   # GET /readyz, which also pings the dataset store
package main

import (
	"flag"
	"net"
	"net/http"
	"os"
	"time"
)

var readyFlag = flag.Bool("ready", false, "Probe /readyz instead of /livez")

func main() {
	flag.Parse()

	port := os.Getenv("REGIONSTAT_PORT")
	if port == "" {
		port = "10000"
	}
	path := "/livez"
	if *readyFlag {
		path = "/readyz"
	}

	if !probe("http://"+net.JoinHostPort("localhost", port)+path, 8*time.Second) {
		os.Exit(1)
	}
}

func probe(url string, timeout time.Duration) bool {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
