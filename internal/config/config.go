// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the API server, the snapshot tool, timeouts and the analysis policy.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings must be present.
type ValidationMode int

const (
	// ServerMode validates everything the HTTP server needs.
	ServerMode ValidationMode = iota
	// ToolMode validates only what the snapshot CLI needs.
	ToolMode
)

func (m ValidationMode) String() string {
	switch m {
	case ServerMode:
		return "server"
	case ToolMode:
		return "tool"
	default:
		return "unknown"
	}
}

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string

	// Data Configuration
	DataDir       string // Data directory for the SQLite dataset store
	PolicyFile    string // Optional YAML policy file; empty uses the built-in policy
	CatalogSize   int    // Maximum number of built snapshots kept in memory
	DefaultSample bool   // Serve the embedded sample snapshot when the store has none

	// Admin
	AdminToken string // Bearer token for dataset import; empty disables the admin routes

	// Rate Limits (Token Bucket Algorithm)
	ClientRateRPS   float64 // Tokens refilled per second per client IP
	ClientRateBurst int     // Maximum burst per client IP

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string

	R2          R2Config
	Sentry      SentryConfig
	BetterStack BetterStackConfig
}

// R2Config holds Cloudflare R2 snapshot distribution settings.
type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	SnapshotKey     string
	LockKey         string
	LockTTL         time.Duration
	PollInterval    time.Duration
}

// Endpoint returns the S3-compatible endpoint for the account.
func (r R2Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

// SentryConfig holds error tracking settings.
type SentryConfig struct {
	Enabled     bool
	Token       string
	Host        string
	Environment string
	Release     string
	SampleRate  float64
}

// BetterStackConfig holds log shipping settings.
type BetterStackConfig struct {
	Enabled  bool
	Token    string
	Endpoint string
}

// Load reads configuration for the server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from environment variables.
// It attempts to load .env file first, then reads from env vars.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:      getEnv(EnvServerName, ""),

		DataDir:       getEnv(EnvDataDir, getDefaultDataDir()),
		PolicyFile:    getEnv(EnvPolicyFile, ""),
		CatalogSize:   getIntEnv(EnvCatalogSize, 8),
		DefaultSample: getBoolEnv(EnvDefaultSample, true),

		AdminToken: getEnv(EnvAdminToken, ""),

		ClientRateRPS:   getFloatEnv(EnvClientRateRPS, 10),
		ClientRateBurst: getIntEnv(EnvClientRateBurst, 30),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),

		R2: R2Config{
			Enabled:         getBoolEnv(EnvR2Enabled, false),
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			SnapshotKey:     getEnv(EnvR2SnapshotKey, "snapshots/datasets.db.zst"),
			LockKey:         getEnv(EnvR2LockKey, "locks/snapshot.lock"),
			LockTTL:         getDurationEnv(EnvR2LockTTL, SnapshotLockTTL),
			PollInterval:    getDurationEnv(EnvR2SnapshotPollInterval, SnapshotPollInterval),
		},

		Sentry: SentryConfig{
			Enabled:     getBoolEnv(EnvSentryEnabled, false),
			Token:       getEnv(EnvSentryToken, ""),
			Host:        getEnv(EnvSentryHost, ""),
			Environment: getEnv(EnvSentryEnvironment, "production"),
			Release:     getEnv(EnvSentryRelease, ""),
			SampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		},

		BetterStack: BetterStackConfig{
			Enabled:  getBoolEnv(EnvBetterStackEnabled, false),
			Token:    getEnv(EnvBetterStackToken, ""),
			Endpoint: getEnv(EnvBetterStackEndpoint, ""),
		},
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for server mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks if required configuration values are set
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}

	if mode == ServerMode {
		if c.Port == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvPort))
		}
		if c.ShutdownTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
		}
		if c.CatalogSize <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvCatalogSize, c.CatalogSize))
		}
		if c.ClientRateRPS <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvClientRateRPS, c.ClientRateRPS))
		}
		if c.ClientRateBurst <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvClientRateBurst, c.ClientRateBurst))
		}
		if c.MetricsAuthEnabled && c.MetricsPassword == "" {
			errs = append(errs, fmt.Errorf("%s is required when metrics auth is enabled", EnvMetricsPassword))
		}
		if c.Sentry.Enabled && (c.Sentry.Token == "" || c.Sentry.Host == "") {
			errs = append(errs, fmt.Errorf("%s and %s are required when sentry is enabled", EnvSentryToken, EnvSentryHost))
		}
		if c.BetterStack.Enabled && c.BetterStack.Token == "" {
			errs = append(errs, fmt.Errorf("%s is required when betterstack is enabled", EnvBetterStackToken))
		}
	}

	if c.R2.Enabled {
		if c.R2.AccountID == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "" || c.R2.BucketName == "" {
			errs = append(errs, errors.New("R2 account id, access key, secret key and bucket are required when R2 is enabled"))
		}
		if c.R2.LockTTL <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvR2LockTTL, c.R2.LockTTL))
		}
		if mode == ServerMode && c.R2.PollInterval <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvR2SnapshotPollInterval, c.R2.PollInterval))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite dataset store
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "datasets.db")
}
