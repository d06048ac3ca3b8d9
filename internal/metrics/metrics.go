// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal     *prometheus.CounterVec

	// Catalog metrics
	SnapshotLoadsTotal     *prometheus.CounterVec
	SnapshotLoadDuration   *prometheus.HistogramVec
	CatalogHitsTotal       prometheus.Counter
	CatalogMissesTotal     prometheus.Counter
	CatalogSnapshots       prometheus.Gauge
	SingleflightDedupTotal *prometheus.CounterVec

	// View metrics
	ViewDurationSeconds *prometheus.HistogramVec
	ExportsTotal        *prometheus.CounterVec

	// Store metrics
	DatasetImportsTotal *prometheus.CounterVec
	SnapshotSyncTotal   *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regionstat_http_duration_seconds",
				Help:    "HTTP request duration in seconds by route",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"route"},
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_http_errors_total",
				Help: "Total number of API errors by type and route",
			},
			[]string{"error_type", "route"}, // error_type: not_found, invalid_input, dataset_missing, internal
		),

		SnapshotLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_snapshot_loads_total",
				Help: "Total number of snapshot loads by source and status",
			},
			[]string{"source", "status"}, // source: store, embedded; status: success, error, not_found
		),

		SnapshotLoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regionstat_snapshot_load_duration_seconds",
				Help:    "Time to parse and index a snapshot by source",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"source"},
		),

		CatalogHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "regionstat_catalog_hits_total",
				Help: "Total number of snapshot lookups served from memory",
			},
		),

		CatalogMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "regionstat_catalog_misses_total",
				Help: "Total number of snapshot lookups that required a load",
			},
		),

		CatalogSnapshots: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "regionstat_catalog_snapshots",
				Help: "Number of snapshots currently held in memory",
			},
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_singleflight_dedup_total",
				Help: "Total number of loads that joined an in-flight load",
			},
			[]string{"module"},
		),

		ViewDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regionstat_view_duration_seconds",
				Help:    "Projection build duration in seconds by view",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"view"}, // view: population, supply, regions, supply_search
		),

		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_exports_total",
				Help: "Total number of rendered exports by format and status",
			},
			[]string{"format", "status"}, // format: xlsx, png, html
		),

		DatasetImportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_dataset_imports_total",
				Help: "Total number of dataset imports by kind and status",
			},
			[]string{"kind", "status"},
		),

		SnapshotSyncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_snapshot_sync_total",
				Help: "Total number of R2 snapshot operations by operation and status",
			},
			[]string{"operation", "status"}, // operation: download, upload, poll, swap
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regionstat_rate_limiter_dropped_total",
				Help: "Total number of requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
	}

	return m
}

// RecordHTTPRequest records a finished HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPDurationSeconds.WithLabelValues(route).Observe(duration)
}

// RecordHTTPError records an API error response.
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordSnapshotLoad records a snapshot load attempt.
func (m *Metrics) RecordSnapshotLoad(source, status string, duration float64) {
	m.SnapshotLoadsTotal.WithLabelValues(source, status).Inc()
	if status == "success" {
		m.SnapshotLoadDuration.WithLabelValues(source).Observe(duration)
	}
}

// RecordCatalogHit records a lookup served from memory.
func (m *Metrics) RecordCatalogHit() {
	m.CatalogHitsTotal.Inc()
}

// RecordCatalogMiss records a lookup that had to load.
func (m *Metrics) RecordCatalogMiss() {
	m.CatalogMissesTotal.Inc()
}

// SetCatalogSnapshots updates the in-memory snapshot gauge.
func (m *Metrics) SetCatalogSnapshots(n int) {
	m.CatalogSnapshots.Set(float64(n))
}

// RecordSingleflightDedup records a caller that shared another caller's load.
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordView records how long a projection took.
func (m *Metrics) RecordView(view string, duration float64) {
	m.ViewDurationSeconds.WithLabelValues(view).Observe(duration)
}

// RecordExport records a rendered export.
func (m *Metrics) RecordExport(format, status string) {
	m.ExportsTotal.WithLabelValues(format, status).Inc()
}

// RecordDatasetImport records a dataset import.
func (m *Metrics) RecordDatasetImport(kind, status string) {
	m.DatasetImportsTotal.WithLabelValues(kind, status).Inc()
}

// RecordSnapshotSync records an R2 snapshot operation.
func (m *Metrics) RecordSnapshotSync(operation, status string) {
	m.SnapshotSyncTotal.WithLabelValues(operation, status).Inc()
}

// RecordRateLimiterDrop records a rejected request.
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}
