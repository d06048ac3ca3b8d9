// Package snapshot distributes the SQLite dataset store through R2.
// A publisher packs the store into a zstd object under a distributed lock;
// servers download it at startup and poll for newer versions, hot-swapping
// the local store when the object's ETag changes.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/garyellow/regionstat/internal/config"
	"github.com/garyellow/regionstat/internal/logger"
	"github.com/garyellow/regionstat/internal/metrics"
	"github.com/garyellow/regionstat/internal/r2client"
)

var (
	// ErrNotFound indicates no snapshot exists in R2.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrLocked indicates another publisher holds the snapshot lock.
	ErrLocked = errors.New("snapshot: lock held by another publisher")
)

// Source produces a consistent copy of a dataset store.
// Both *storage.DB and *storage.HotSwapDB satisfy it.
type Source interface {
	CreateSnapshot(ctx context.Context, destPath string) error
}

// Swapper replaces the live dataset store with the database at path.
type Swapper interface {
	Swap(ctx context.Context, path string) error
}

// Config holds snapshot manager configuration.
type Config struct {
	SnapshotKey   string        // R2 object key, e.g. "snapshots/datasets.db.zst"
	LockKey       string        // R2 object key of the publish lock
	LockTTL       time.Duration // lease length of the publish lock
	PollInterval  time.Duration // how often followers check for a newer snapshot
	TempDir       string        // scratch space for packed files
	RetryInterval time.Duration // delay between download attempts
	MaxRetries    uint64        // download retries after the first attempt
}

// Manager handles dataset store synchronization with R2.
type Manager struct {
	store   r2client.ObjectStore
	config  Config
	log     *logger.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	currentETag string

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a snapshot manager. m may be nil.
func New(store r2client.ObjectStore, cfg Config, log *logger.Logger, m *metrics.Metrics) *Manager {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = config.SnapshotRetryInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = config.SnapshotMaxRetries
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = config.SnapshotLockTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.SnapshotPollInterval
	}
	return &Manager{
		store:   store,
		config:  cfg,
		log:     log.WithModule("snapshot"),
		metrics: m,
	}
}

// Download fetches the current snapshot and decompresses it to destPath.
// Transient failures are retried; a missing object returns ErrNotFound at once.
func (m *Manager) Download(ctx context.Context, destPath string) (string, error) {
	etag, err := m.download(ctx, destPath)
	if err != nil {
		return "", err
	}
	m.SetCurrentETag(etag)
	return etag, nil
}

func (m *Manager) download(ctx context.Context, destPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	var etag string
	attempt := func() error {
		ctx, cancel := context.WithTimeout(ctx, config.SnapshotTransfer)
		defer cancel()

		body, tag, err := m.store.Download(ctx, m.config.SnapshotKey)
		if err != nil {
			if errors.Is(err, r2client.ErrNotFound) {
				return backoff.Permanent(ErrNotFound)
			}
			return fmt.Errorf("download snapshot: %w", err)
		}
		defer func() { _ = body.Close() }()

		if err := r2client.DecompressStream(body, destPath); err != nil {
			return fmt.Errorf("decompress snapshot: %w", err)
		}
		etag = tag
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.config.RetryInterval), m.config.MaxRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		m.log.WithError(err).WithField("retry_in", wait.String()).Warn("Snapshot download failed, retrying")
	}
	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		m.record("download", err)
		return "", err
	}

	m.record("download", nil)
	m.log.WithField("etag", etag).WithField("path", destPath).Info("Snapshot downloaded")
	return etag, nil
}

// Upload packs src and uploads it as the current snapshot.
// It returns the ETag of the uploaded object.
func (m *Manager) Upload(ctx context.Context, src Source) (string, error) {
	etag, err := m.upload(ctx, src)
	m.record("upload", err)
	if err != nil {
		return "", err
	}
	m.SetCurrentETag(etag)
	m.log.WithField("etag", etag).Info("Snapshot uploaded")
	return etag, nil
}

func (m *Manager) upload(ctx context.Context, src Source) (string, error) {
	snapshotPath := filepath.Join(m.config.TempDir, fmt.Sprintf("snapshot_%d.db", time.Now().UnixNano()))
	if err := src.CreateSnapshot(ctx, snapshotPath); err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer func() { _ = os.Remove(snapshotPath) }()

	packedPath := snapshotPath + ".zst"
	if err := r2client.CompressFile(snapshotPath, packedPath); err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	defer func() { _ = os.Remove(packedPath) }()

	f, err := os.Open(packedPath)
	if err != nil {
		return "", fmt.Errorf("open packed snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	ctx, cancel := context.WithTimeout(ctx, config.SnapshotTransfer)
	defer cancel()
	etag, err := m.store.Upload(ctx, m.config.SnapshotKey, f, r2client.ContentTypeZstd)
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	return etag, nil
}

// Publish uploads src while holding the publish lock, so concurrent
// publishers never interleave. It returns ErrLocked when the lock is taken.
func (m *Manager) Publish(ctx context.Context, src Source) (string, error) {
	lock := r2client.NewDistributedLock(m.store, m.config.LockKey, m.config.LockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		m.record("publish", err)
		return "", fmt.Errorf("acquire publish lock: %w", err)
	}
	if !acquired {
		m.record("publish", ErrLocked)
		return "", ErrLocked
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			m.log.WithError(err).Warn("Failed to release publish lock")
		}
	}()

	renewCtx, stopRenew := context.WithCancel(ctx)
	renewDone := make(chan struct{})
	go m.renewLoop(renewCtx, lock, renewDone)
	defer func() {
		stopRenew()
		<-renewDone
	}()

	etag, err := m.Upload(ctx, src)
	m.record("publish", err)
	return etag, err
}

func (m *Manager) renewLoop(ctx context.Context, lock *r2client.DistributedLock, done chan struct{}) {
	defer close(done)

	interval := m.config.LockTTL / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			renewed, err := lock.Renew(ctx)
			if err != nil {
				m.log.WithError(err).Warn("Publish lock renew failed")
				return
			}
			if !renewed {
				m.log.Warn("Publish lock lost during renew")
				return
			}
		}
	}
}

// Sync downloads the remote snapshot into dir and swaps it in when its ETag
// differs from the loaded one. It reports whether a swap happened.
func (m *Manager) Sync(ctx context.Context, swapper Swapper, dir string) (bool, error) {
	remoteETag, err := m.store.HeadObject(ctx, m.config.SnapshotKey)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return false, nil
		}
		m.record("poll", err)
		return false, fmt.Errorf("head snapshot: %w", err)
	}
	if remoteETag == m.CurrentETag() {
		return false, nil
	}

	m.log.WithField("old_etag", m.CurrentETag()).WithField("new_etag", remoteETag).
		Info("New snapshot detected, initiating hot-swap")

	newPath := filepath.Join(dir, fmt.Sprintf("datasets_%d.db", time.Now().UnixNano()))
	etag, err := m.download(ctx, newPath)
	if err != nil {
		return false, err
	}

	if err := swapper.Swap(ctx, newPath); err != nil {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(newPath + suffix)
		}
		m.record("swap", err)
		return false, fmt.Errorf("swap snapshot: %w", err)
	}

	m.SetCurrentETag(etag)
	m.record("swap", nil)
	m.log.WithField("etag", etag).Info("Hot-swap completed")
	return true, nil
}

// StartPolling runs Sync every PollInterval until ctx is cancelled or
// StopPolling is called.
func (m *Manager) StartPolling(ctx context.Context, swapper Swapper, dir string) {
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	m.pollDone = make(chan struct{})

	go func() {
		defer close(m.pollDone)

		ticker := time.NewTicker(m.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				m.log.Info("Snapshot polling stopped")
				return
			case <-ticker.C:
				if _, err := m.Sync(pollCtx, swapper, dir); err != nil && pollCtx.Err() == nil {
					m.log.WithError(err).Warn("Snapshot poll failed")
				}
			}
		}
	}()

	m.log.WithField("interval", m.config.PollInterval.String()).
		WithField("snapshot_key", m.config.SnapshotKey).
		Info("Snapshot polling started")
}

// StopPolling stops the polling goroutine and waits for it to exit.
func (m *Manager) StopPolling() {
	if m.pollCancel != nil {
		m.pollCancel()
		<-m.pollDone
		m.pollCancel = nil
	}
}

// CurrentETag returns the ETag of the loaded snapshot.
func (m *Manager) CurrentETag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentETag
}

// SetCurrentETag records the ETag of the loaded snapshot.
func (m *Manager) SetCurrentETag(etag string) {
	m.mu.Lock()
	m.currentETag = etag
	m.mu.Unlock()
}

func (m *Manager) record(operation string, err error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case errors.Is(err, ErrLocked):
		status = "locked"
	case err != nil:
		status = "error"
	}
	m.metrics.RecordSnapshotSync(operation, status)
}
