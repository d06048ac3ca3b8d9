// Package catalog resolves snapshot identifiers to built, indexed snapshots.
//
// Dataset texts come from the SQLite store first and from the sample bundled
// in the binary second. Built snapshots are immutable and cached in memory;
// concurrent loads of the same identifier are deduplicated.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyellow/regionstat/internal/ctxutil"
	"github.com/garyellow/regionstat/internal/dataset"
	domerrors "github.com/garyellow/regionstat/internal/errors"
	"github.com/garyellow/regionstat/internal/logger"
	"github.com/garyellow/regionstat/internal/metrics"
	"github.com/garyellow/regionstat/internal/sliceutil"
	"github.com/garyellow/regionstat/internal/storage"
)

// Source names where a snapshot's texts were read from.
const (
	SourceStore  = "store"
	SourceSample = "sample"
)

// Info describes one snapshot offered by the catalog.
type Info struct {
	ID     string         `json:"id"`
	Kinds  []dataset.Kind `json:"kinds"`
	Source string         `json:"source"`
}

type entry struct {
	snap     *dataset.Snapshot
	source   string
	lastUsed time.Time
}

// Catalog caches built snapshots. It is safe for concurrent use.
type Catalog struct {
	repo    storage.DatasetRepository
	sample  *Sample
	size    int
	log     *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	gen     uint64 // bumped on invalidation; loads started earlier are not cached
	group   singleflight.Group
	now     func() time.Time
}

// Options configures a Catalog. Logger is required; Repo, Sample and
// Metrics may be nil.
type Options struct {
	Repo    storage.DatasetRepository
	Sample  *Sample
	Size    int
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// New creates a catalog.
func New(opts Options) *Catalog {
	size := opts.Size
	if size <= 0 {
		size = 8
	}
	return &Catalog{
		repo:    opts.Repo,
		sample:  opts.Sample,
		size:    size,
		log:     opts.Logger.WithModule("catalog"),
		metrics: opts.Metrics,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the built snapshot for id.
// Unknown identifiers return an error matching ErrSnapshotUnknown.
func (c *Catalog) Get(ctx context.Context, id string) (*dataset.Snapshot, error) {
	if err := dataset.ValidateSnapshotID(id); err != nil {
		return nil, err
	}

	if snap := c.cached(id); snap != nil {
		if c.metrics != nil {
			c.metrics.RecordCatalogHit()
		}
		return snap, nil
	}
	if c.metrics != nil {
		c.metrics.RecordCatalogMiss()
	}

	// The load outlives any single caller: others may be waiting on it.
	loadCtx := ctxutil.PreserveTracing(ctxutil.WithSnapshotID(ctx, id))
	ch := c.group.DoChan(id, func() (any, error) {
		return c.load(loadCtx, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared && c.metrics != nil {
			c.metrics.RecordSingleflightDedup("catalog")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dataset.Snapshot), nil
	}
}

func (c *Catalog) cached(id string) *dataset.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	e.lastUsed = c.now()
	return e.snap
}

func (c *Catalog) load(ctx context.Context, id string) (*dataset.Snapshot, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	start := c.now()
	texts, source, err := c.texts(ctx, id)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordSnapshotLoad(sourceLabel(source), "error", 0)
		}
		return nil, err
	}

	snap, err := dataset.Build(ctx, id, texts)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordSnapshotLoad(source, "error", 0)
		}
		return nil, buildErrors.Wrapf(err, "%s 스냅샷 데이터를 해석하지 못했습니다", id)
	}

	elapsed := c.now().Sub(start)
	if c.metrics != nil {
		c.metrics.RecordSnapshotLoad(source, "success", elapsed.Seconds())
	}
	c.log.WithSnapshot(id).WithField("source", source).
		WithField("kinds", len(snap.Available())).
		WithField("duration_ms", elapsed.Milliseconds()).
		InfoContext(ctx, "Snapshot loaded")

	c.store(id, snap, source, gen)
	return snap, nil
}

var (
	readErrors  = domerrors.NewWrapper("catalog", "read_snapshot")
	buildErrors = domerrors.NewWrapper("catalog", "build_snapshot")
)

func sourceLabel(source string) string {
	if source == "" {
		return "none"
	}
	return source
}

// texts reads the dataset texts of id from the first source that has them.
func (c *Catalog) texts(ctx context.Context, id string) (map[dataset.Kind]string, string, error) {
	if c.repo != nil {
		raw, err := c.repo.GetSnapshotTexts(ctx, id)
		switch {
		case err == nil:
			texts := make(map[dataset.Kind]string, len(raw))
			for name, text := range raw {
				kind, err := dataset.ParseKind(name)
				if err != nil {
					c.log.WithSnapshot(id).WithField("kind", name).Warn("Skipping unknown dataset kind")
					continue
				}
				texts[kind] = text
			}
			return texts, SourceStore, nil
		case !errors.Is(err, storage.ErrNotFound):
			return nil, SourceStore, readErrors.Wrapf(err, "%s 스냅샷을 읽지 못했습니다", id)
		}
	}

	if c.sample != nil {
		if texts, ok := c.sample.Texts(id); ok {
			return texts, SourceSample, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", domerrors.ErrSnapshotUnknown, id)
}

// store caches snap, evicting the least recently used entry when full.
func (c *Catalog) store(id string, snap *dataset.Snapshot, source string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	c.entries[id] = &entry{snap: snap, source: source, lastUsed: c.now()}
	for len(c.entries) > c.size {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldest == "" || e.lastUsed.Before(oldestAt) {
				oldest, oldestAt = k, e.lastUsed
			}
		}
		delete(c.entries, oldest)
	}
	if c.metrics != nil {
		c.metrics.SetCatalogSnapshots(len(c.entries))
	}
}

// Forget drops one cached snapshot, e.g. after a dataset import.
func (c *Catalog) Forget(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.gen++
	n := len(c.entries)
	c.mu.Unlock()
	c.group.Forget(id)
	if c.metrics != nil {
		c.metrics.SetCatalogSnapshots(n)
	}
}

// Invalidate drops every cached snapshot. It is registered as the store's
// swap hook so a new R2 snapshot is never mixed with stale cached data.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	clear(c.entries)
	c.gen++
	c.mu.Unlock()

	for _, id := range ids {
		c.group.Forget(id)
	}
	if c.metrics != nil {
		c.metrics.SetCatalogSnapshots(0)
	}
	c.log.WithField("dropped", len(ids)).Info("Catalog invalidated")
}

// Len returns the number of cached snapshots.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// List enumerates every snapshot the catalog can serve, newest first.
// A snapshot present in the store shadows the sample with the same id.
func (c *Catalog) List(ctx context.Context) ([]Info, error) {
	var out []Info

	if c.repo != nil {
		stored, err := c.repo.ListSnapshots(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		for _, s := range stored {
			info := Info{ID: s.ID, Source: SourceStore}
			for _, name := range s.Kinds {
				if kind, err := dataset.ParseKind(name); err == nil {
					info.Kinds = append(info.Kinds, kind)
				}
			}
			sortKinds(info.Kinds)
			out = append(out, info)
		}
	}

	if c.sample != nil {
		for _, id := range c.sample.IDs() {
			texts, _ := c.sample.Texts(id)
			info := Info{ID: id, Source: SourceSample}
			for kind := range texts {
				info.Kinds = append(info.Kinds, kind)
			}
			sortKinds(info.Kinds)
			out = append(out, info)
		}
	}

	out = sliceutil.Deduplicate(out, func(i Info) string { return i.ID })
	slices.SortFunc(out, func(a, b Info) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func sortKinds(kinds []dataset.Kind) {
	order := dataset.Kinds()
	slices.SortFunc(kinds, func(a, b dataset.Kind) int {
		return slices.Index(order, a) - slices.Index(order, b)
	})
}
