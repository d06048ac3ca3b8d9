package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.SnapshotLoadsTotal == nil {
		t.Error("SnapshotLoadsTotal is nil")
	}
	if m.CatalogHitsTotal == nil || m.CatalogMissesTotal == nil {
		t.Error("catalog counters are nil")
	}
	if m.ViewDurationSeconds == nil {
		t.Error("ViewDurationSeconds is nil")
	}
	if m.RateLimiterDropped == nil {
		t.Error("RateLimiterDropped is nil")
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry panics; separate registries must not.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func gather(t *testing.T, registry *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestRecordMethods(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordHTTPRequest("/api/v1/snapshots", "GET", "200", 0.01)
	m.RecordHTTPError("not_found", "/api/v1/snapshots/:id/regions")
	m.RecordSnapshotLoad("store", "success", 0.2)
	m.RecordSnapshotLoad("embedded", "error", 0)
	m.RecordCatalogHit()
	m.RecordCatalogHit()
	m.RecordCatalogMiss()
	m.SetCatalogSnapshots(3)
	m.RecordSingleflightDedup("catalog")
	m.RecordView("supply", 0.002)
	m.RecordExport("xlsx", "success")
	m.RecordDatasetImport("supply", "success")
	m.RecordSnapshotSync("poll", "unchanged")
	m.RecordRateLimiterDrop("client")

	families := gather(t, registry)

	hits := families["regionstat_catalog_hits_total"]
	if hits == nil || hits.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Errorf("catalog hits = %v, want 2", hits)
	}
	gauge := families["regionstat_catalog_snapshots"]
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Errorf("catalog snapshots = %v, want 3", gauge)
	}

	// failed loads are counted but not timed
	loads := families["regionstat_snapshot_load_duration_seconds"]
	if loads == nil || len(loads.GetMetric()) != 1 {
		t.Errorf("expected one timed load source, got %v", loads)
	}

	for _, name := range []string{
		"regionstat_http_requests_total",
		"regionstat_http_errors_total",
		"regionstat_view_duration_seconds",
		"regionstat_exports_total",
		"regionstat_dataset_imports_total",
		"regionstat_snapshot_sync_total",
		"regionstat_rate_limiter_dropped_total",
		"regionstat_singleflight_dedup_total",
	} {
		if families[name] == nil {
			t.Errorf("metric %s was not exported", name)
		}
	}
}
