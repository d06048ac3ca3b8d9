package snapshot

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/regionstat/internal/logger"
	"github.com/garyellow/regionstat/internal/metrics"
	"github.com/garyellow/regionstat/internal/r2client"
	"github.com/garyellow/regionstat/internal/r2client/r2test"
	"github.com/garyellow/regionstat/internal/storage"
)

const ageText = "행정구역,총인구수,0~9세\n서울특별시,\"9,386,034\",\"512,000\"\n"

func newManager(t *testing.T, store r2client.ObjectStore) (*Manager, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	mgr := New(store, Config{
		SnapshotKey:   "snapshots/datasets.db.zst",
		LockKey:       "locks/snapshot.lock",
		LockTTL:       time.Minute,
		PollInterval:  time.Hour,
		TempDir:       t.TempDir(),
		RetryInterval: time.Millisecond,
		MaxRetries:    2,
	}, logger.NewWithWriter("error", io.Discard), m)
	return mgr, m
}

func newSourceDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.New(ctx, filepath.Join(t.TempDir(), "source.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.SaveDataset(ctx, "202510", "age", ageText)
	require.NoError(t, err)
	return db
}

func TestUploadThenDownload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := r2test.NewMemStore()
	mgr, m := newManager(t, store)

	etag, err := mgr.Upload(ctx, newSourceDB(t))
	require.NoError(t, err)
	assert.NotEmpty(t, etag)
	assert.Equal(t, etag, mgr.CurrentETag())

	follower, _ := newManager(t, store)
	dest := filepath.Join(t.TempDir(), "nested", "datasets.db")
	got, err := follower.Download(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, etag, got)

	db, err := storage.New(ctx, dest)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	ds, err := db.GetDataset(ctx, "202510", "age")
	require.NoError(t, err)
	assert.Equal(t, ageText, ds.Content)

	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotSyncTotal.WithLabelValues("upload", "success")), 0)
}

func TestDownload_NotFound(t *testing.T) {
	t.Parallel()
	mgr, m := newManager(t, r2test.NewMemStore())

	_, err := mgr.Download(context.Background(), filepath.Join(t.TempDir(), "datasets.db"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotSyncTotal.WithLabelValues("download", "not_found")), 0)
}

type flakyStore struct {
	*r2test.MemStore
	failures atomic.Int32
}

func (f *flakyStore) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, "", errors.New("connection reset")
	}
	return f.MemStore.Download(ctx, key)
}

func TestDownload_RetriesTransientErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &flakyStore{MemStore: r2test.NewMemStore()}
	mgr, _ := newManager(t, store)
	_, err := mgr.Upload(ctx, newSourceDB(t))
	require.NoError(t, err)

	store.failures.Store(2)
	_, err = mgr.Download(ctx, filepath.Join(t.TempDir(), "datasets.db"))
	require.NoError(t, err)

	store.failures.Store(5)
	_, err = mgr.Download(ctx, filepath.Join(t.TempDir(), "datasets.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPublish_Locked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := r2test.NewMemStore()
	mgr, _ := newManager(t, store)

	other := r2client.NewDistributedLock(store, "locks/snapshot.lock", time.Minute)
	ok, err := other.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = mgr.Publish(ctx, newSourceDB(t))
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, other.Release(ctx))
	etag, err := mgr.Publish(ctx, newSourceDB(t))
	require.NoError(t, err)
	assert.NotEmpty(t, etag)

	_, held := store.Bytes("locks/snapshot.lock")
	assert.False(t, held, "lock is released after publishing")
}

func TestSync_SwapsOnNewETag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := r2test.NewMemStore()
	publisher, _ := newManager(t, store)
	follower, _ := newManager(t, store)

	dir := t.TempDir()
	live, err := storage.NewHotSwapDB(ctx, filepath.Join(dir, "datasets.db"))
	require.NoError(t, err)
	defer func() { _ = live.Close() }()

	var swapped []string
	live.OnSwap(func(path string) { swapped = append(swapped, path) })

	changed, err := follower.Sync(ctx, live, dir)
	require.NoError(t, err)
	assert.False(t, changed, "nothing published yet")

	_, err = publisher.Upload(ctx, newSourceDB(t))
	require.NoError(t, err)

	changed, err = follower.Sync(ctx, live, dir)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, publisher.CurrentETag(), follower.CurrentETag())
	require.Len(t, swapped, 1)
	assert.Equal(t, live.Path(), swapped[0])

	ds, err := live.GetDataset(ctx, "202510", "age")
	require.NoError(t, err)
	assert.Equal(t, ageText, ds.Content)

	changed, err = follower.Sync(ctx, live, dir)
	require.NoError(t, err)
	assert.False(t, changed, "same etag is not swapped twice")
}

type failingSwapper struct{}

func (failingSwapper) Swap(context.Context, string) error { return errors.New("swap refused") }

func TestSync_SwapFailureKeepsETag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := r2test.NewMemStore()
	publisher, _ := newManager(t, store)
	follower, m := newManager(t, store)

	_, err := publisher.Upload(ctx, newSourceDB(t))
	require.NoError(t, err)

	_, err = follower.Sync(ctx, failingSwapper{}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "swap refused")
	assert.Empty(t, follower.CurrentETag(), "a failed swap is retried on the next poll")
	assert.InDelta(t, 1, testutil.ToFloat64(m.SnapshotSyncTotal.WithLabelValues("swap", "error")), 0)
}

func TestPolling_StartStop(t *testing.T) {
	t.Parallel()
	mgr, _ := newManager(t, r2test.NewMemStore())
	mgr.StartPolling(context.Background(), failingSwapper{}, t.TempDir())
	mgr.StopPolling()
	mgr.StopPolling()
}
