// Package config provides centralized timeout constants for the application.
//
// Dataset texts are small (a few MB at most) and every projection is computed
// in memory, so request timeouts stay short. Snapshot transfer to and from R2
// is the only slow path.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPReadHeader bounds how long a client may take to send headers.
	HTTPReadHeader = 5 * time.Second

	// HTTPRead is the HTTP server read timeout.
	// Dataset imports are the largest request bodies.
	HTTPRead = 30 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// Should accommodate XLSX and PNG rendering of the largest selection.
	HTTPWrite = 60 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second

	// RequestProcessing bounds a single projection request.
	RequestProcessing = 20 * time.Second

	// ReadinessCheckTimeout bounds the database ping of /readyz.
	ReadinessCheckTimeout = 3 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Imports write while requests read, so writers wait instead of failing.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Snapshot distribution timeouts
const (
	// SnapshotPollInterval is how often followers check R2 for a newer snapshot.
	SnapshotPollInterval = 5 * time.Minute

	// SnapshotLockTTL is how long the publish lock is held before it expires.
	SnapshotLockTTL = 10 * time.Minute

	// SnapshotTransfer bounds a single download or upload of the snapshot file.
	SnapshotTransfer = 5 * time.Minute

	// SnapshotRetryInterval is the constant delay between download attempts.
	SnapshotRetryInterval = 2 * time.Second

	// SnapshotMaxRetries is how many times a failed download is retried.
	SnapshotMaxRetries = 3
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often catalog size metrics are updated.
	MetricsUpdateInterval = time.Minute

	// RateLimiterCleanupInterval is how often inactive client limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute

	// RateLimiterIdleTTL is how long a client limiter may sit unused before cleanup.
	RateLimiterIdleTTL = 10 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
