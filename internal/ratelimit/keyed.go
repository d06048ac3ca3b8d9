// Package ratelimit provides per-client token bucket rate limiting.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/garyellow/regionstat/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "client", "admin")
	Name string

	// Token bucket settings
	Burst      int     // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// Cleanup settings
	CleanupPeriod time.Duration // How often to look for idle limiters
	IdleTTL       time.Duration // How long a limiter may sit unused before removal

	// Optional metrics reporter
	Metrics *metrics.Metrics
}

// KeyedLimiter tracks rate limits per key (e.g., client IP).
// It creates a separate token bucket for each key and removes buckets that
// have been idle for IdleTTL.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
	config  KeyedConfig
	onDrop  func()
	now     func() time.Time
	stopCh  chan struct{}
	stopped sync.Once
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter creates a new per-key rate limiter and starts its cleanup loop.
//
// Example:
//
//	limiter := NewKeyedLimiter(KeyedConfig{
//	    Name:          "client",
//	    Burst:         30,
//	    RefillRate:    10,
//	    CleanupPeriod: 5 * time.Minute,
//	    IdleTTL:       10 * time.Minute,
//	})
//	defer limiter.Stop()
//
//	if limiter.Allow("203.0.113.7") {
//	    // Process request
//	}
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * cfg.CleanupPeriod
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		config:  cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if cfg.Metrics != nil {
		kl.onDrop = func() {
			cfg.Metrics.RecordRateLimiterDrop(cfg.Name)
		}
	}

	go kl.cleanupLoop()

	return kl
}

// Allow reports whether a request for key may proceed, consuming a token if so.
// An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	now := kl.now()
	kl.mu.Lock()
	entry, ok := kl.entries[key]
	if !ok {
		entry = &keyedEntry{limiter: rate.NewLimiter(rate.Limit(kl.config.RefillRate), kl.config.Burst)}
		kl.entries[key] = entry
	}
	entry.lastSeen = now
	allowed := entry.limiter.AllowN(now, 1)
	kl.mu.Unlock()

	if !allowed && kl.onDrop != nil {
		kl.onDrop()
	}
	return allowed
}

// RetryAfter estimates how long key must wait for its next token.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	entry, ok := kl.entries[key]
	if !ok {
		return 0
	}
	now := kl.now()
	tokens := entry.limiter.TokensAt(now)
	if tokens >= 1 || kl.config.RefillRate <= 0 {
		return 0
	}
	return time.Duration((1 - tokens) / kl.config.RefillRate * float64(time.Second))
}

// GetActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) GetActiveCount() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}

// cleanup removes limiters idle for longer than IdleTTL and returns how many remain.
func (kl *KeyedLimiter) cleanup() int {
	cutoff := kl.now().Add(-kl.config.IdleTTL)
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, entry := range kl.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(kl.entries, key)
		}
	}
	return len(kl.entries)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stopped.Do(func() { close(kl.stopCh) })
}
