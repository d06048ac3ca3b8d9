package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// HotSwapDB lets a freshly downloaded database replace the live one while
// requests keep running. Queries hold a read lock; Swap takes the write lock
// only long enough to exchange connections.
type HotSwapDB struct {
	mu      sync.RWMutex
	current *DB

	hookMu sync.Mutex
	onSwap []func(path string)
}

// NewHotSwapDB opens the initial database.
func NewHotSwapDB(ctx context.Context, dbPath string) (*HotSwapDB, error) {
	db, err := New(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("hotswap: create initial db: %w", err)
	}
	return &HotSwapDB{current: db}, nil
}

// OnSwap registers fn to run after every successful swap.
func (h *HotSwapDB) OnSwap(fn func(path string)) {
	h.hookMu.Lock()
	defer h.hookMu.Unlock()
	h.onSwap = append(h.onSwap, fn)
}

// Swap replaces the live database with the one at newDbPath.
// The new file is opened and checked before any lock is taken; the old
// connections are closed and the old file removed in the background.
func (h *HotSwapDB) Swap(ctx context.Context, newDbPath string) error {
	next, err := New(ctx, newDbPath)
	if err != nil {
		return fmt.Errorf("hotswap: open new db: %w", err)
	}
	if err := next.Ping(ctx); err != nil {
		_ = next.Close()
		return fmt.Errorf("hotswap: ping new db: %w", err)
	}

	h.mu.Lock()
	oldWriter, oldReader, oldPath := h.current.SwapConnections(next)
	h.mu.Unlock()

	go func() {
		if oldReader != nil && oldReader != oldWriter {
			_ = oldReader.Close()
		}
		if oldWriter != nil {
			_ = oldWriter.Close()
		}
		if oldPath != newDbPath && oldPath != memoryPath {
			_ = os.Remove(oldPath)
			_ = os.Remove(oldPath + "-wal")
			_ = os.Remove(oldPath + "-shm")
		}
	}()

	h.hookMu.Lock()
	hooks := append([]func(string){}, h.onSwap...)
	h.hookMu.Unlock()
	for _, fn := range hooks {
		fn(newDbPath)
	}
	return nil
}

// Path returns the live database file path.
func (h *HotSwapDB) Path() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Path()
}

// Close closes the live database.
func (h *HotSwapDB) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		return h.current.Close()
	}
	return nil
}

// Ping checks the live database.
func (h *HotSwapDB) Ping(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Ping(ctx)
}

// CreateSnapshot writes a consistent copy of the live database.
func (h *HotSwapDB) CreateSnapshot(ctx context.Context, destPath string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.CreateSnapshot(ctx, destPath)
}

// SaveDataset stores a dataset in the live database.
func (h *HotSwapDB) SaveDataset(ctx context.Context, snapshotID, kind, content string) (*Dataset, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.SaveDataset(ctx, snapshotID, kind, content)
}

// GetDataset reads a dataset from the live database.
func (h *HotSwapDB) GetDataset(ctx context.Context, snapshotID, kind string) (*Dataset, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.GetDataset(ctx, snapshotID, kind)
}

// GetSnapshotTexts reads every dataset of a snapshot from the live database.
func (h *HotSwapDB) GetSnapshotTexts(ctx context.Context, snapshotID string) (map[string]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.GetSnapshotTexts(ctx, snapshotID)
}

// ListSnapshots lists the snapshots of the live database.
func (h *HotSwapDB) ListSnapshots(ctx context.Context, prefix string) ([]SnapshotInfo, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.ListSnapshots(ctx, prefix)
}

// DeleteDataset removes a dataset from the live database.
func (h *HotSwapDB) DeleteDataset(ctx context.Context, snapshotID, kind string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.DeleteDataset(ctx, snapshotID, kind)
}

// CountDatasets counts datasets in the live database.
func (h *HotSwapDB) CountDatasets(ctx context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.CountDatasets(ctx)
}
