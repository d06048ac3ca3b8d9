// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "REGIONSTAT_PORT"
	EnvLogLevel        = "REGIONSTAT_LOG_LEVEL"
	EnvShutdownTimeout = "REGIONSTAT_SHUTDOWN_TIMEOUT"
	EnvServerName      = "REGIONSTAT_SERVER_NAME"

	// Data
	EnvDataDir       = "REGIONSTAT_DATA_DIR"
	EnvPolicyFile    = "REGIONSTAT_POLICY_FILE"
	EnvCatalogSize   = "REGIONSTAT_CATALOG_SIZE"
	EnvDefaultSample = "REGIONSTAT_DEFAULT_SAMPLE"

	// Admin
	EnvAdminToken = "REGIONSTAT_ADMIN_TOKEN"

	// Rate Limits
	EnvClientRateRPS   = "REGIONSTAT_CLIENT_RATE_RPS"
	EnvClientRateBurst = "REGIONSTAT_CLIENT_RATE_BURST"

	// R2 Snapshot Feature
	EnvR2Enabled              = "REGIONSTAT_R2_ENABLED"
	EnvR2AccountID            = "REGIONSTAT_R2_ACCOUNT_ID"
	EnvR2AccessKeyID          = "REGIONSTAT_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey      = "REGIONSTAT_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName           = "REGIONSTAT_R2_BUCKET_NAME"
	EnvR2SnapshotKey          = "REGIONSTAT_R2_SNAPSHOT_KEY"
	EnvR2LockKey              = "REGIONSTAT_R2_LOCK_KEY"
	EnvR2LockTTL              = "REGIONSTAT_R2_LOCK_TTL"
	EnvR2SnapshotPollInterval = "REGIONSTAT_R2_SNAPSHOT_POLL_INTERVAL"

	// Sentry Feature
	EnvSentryEnabled     = "REGIONSTAT_SENTRY_ENABLED"
	EnvSentryToken       = "REGIONSTAT_SENTRY_TOKEN"
	EnvSentryHost        = "REGIONSTAT_SENTRY_HOST"
	EnvSentryEnvironment = "REGIONSTAT_SENTRY_ENVIRONMENT"
	EnvSentryRelease     = "REGIONSTAT_SENTRY_RELEASE"
	EnvSentrySampleRate  = "REGIONSTAT_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "REGIONSTAT_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "REGIONSTAT_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "REGIONSTAT_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "REGIONSTAT_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "REGIONSTAT_METRICS_USERNAME"
	EnvMetricsPassword    = "REGIONSTAT_METRICS_PASSWORD"
)
