// Package collection implements the collection manager of spec.md §4.7: it
// creates, loads, lists, and destroys collections, each a directory holding
// one KWI container and one metadata side-store, and it keeps the two
// stores consistent across writes.
package collection

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/neilthomass/kowari"
	"github.com/neilthomass/kowari/internal/klog"
	"github.com/neilthomass/kowari/pkg/index"
	"github.com/neilthomass/kowari/pkg/kwi"
	"github.com/neilthomass/kowari/pkg/metastore"
	"github.com/neilthomass/kowari/pkg/query"
)

const (
	vectorsFileName  = "vectors.kwi"
	metadataFileName = "metadata.sqlite3"
	lockFileName     = ".lock"

	sysKeyVectorCount = "vector_count"
	sysKeyUpdatedAt   = "updated_at"
)

var _ query.Store = (*Collection)(nil)

// Info summarizes a collection's current state, returned by Manager.Info.
type Info struct {
	Name        string
	Dimension   int
	VectorCount int
	IndexKind   kowari.IndexKind
}

// Collection binds one KWI container and one metastore to a name, plus the
// in-memory index built from their contents. It is single-threaded per
// spec.md §5; the mutex only serializes against the manager's own cache
// eviction, not concurrent callers.
type Collection struct {
	mu sync.Mutex

	name      string
	dir       string
	dimension int
	indexKind kowari.IndexKind

	container *kwi.Container
	meta      *metastore.Store
	idx       index.Index
	fileLock  *flock.Flock

	log klog.Logger
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Dimension returns the collection's fixed vector dimension.
func (c *Collection) Dimension() int { return c.dimension }

// Add inserts a new vector, following the write path of spec.md §4.7:
// verify dimension, insert into the side-store first (the durable row),
// then append to the KWI container (the fast-path payload), then refresh
// system_info. This ordering means a crash between steps 3 and 4 leaves an
// orphan row in the side-store, which Repair/Optimize can reconcile — the
// opposite failure (an orphan payload with no side-store row) is much
// harder to recover from because the KWI container has no independent
// notion of "this id should exist".
func (c *Collection) Add(ctx context.Context, v kowari.Vector) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v.Dimension() != c.dimension {
		return kowari.WrapErr("collection.add", kowari.KindStorage, kowari.ErrDimensionMismatch)
	}

	if err := c.meta.InsertVector(ctx, metastore.VectorRow{
		ID:        v.ID.String(),
		Dimension: v.Dimension(),
		Data:      v.Data,
		Metadata:  v.Metadata,
	}); err != nil {
		return err
	}

	if err := c.container.Add(v.ID, v.Data, v.Metadata); err != nil {
		return kowari.WrapErr("collection.add", kowari.KindPersistence, err)
	}

	if c.idx != nil {
		_ = c.idx.Build(c.pairsLocked())
	}

	return c.refreshSystemInfoLocked(ctx)
}

// Get prefers the KWI container and falls back to the side-store, per
// spec.md §4.7 — this lets a partially-rebuilt container still serve reads
// from the authoritative side-store.
func (c *Collection) Get(ctx context.Context, id uuid.UUID) (kowari.Vector, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok, err := c.container.Get(id)
	if err != nil {
		return kowari.Vector{}, false, kowari.WrapErr("collection.get", kowari.KindPersistence, err)
	}
	if ok {
		return kowari.Vector{ID: id, Data: rec.Data, Metadata: rec.Metadata}, true, nil
	}

	row, ok, err := c.meta.GetVector(ctx, id.String())
	if err != nil || !ok {
		return kowari.Vector{}, false, err
	}
	return kowari.Vector{ID: id, Data: row.Data, Metadata: row.Metadata}, true, nil
}

// Delete removes id from both stores and refreshes system info. Deleting a
// missing id is a no-op in both underlying stores, so it is a no-op here.
func (c *Collection) Delete(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.container.Delete(id); err != nil {
		return kowari.WrapErr("collection.delete", kowari.KindPersistence, err)
	}
	if err := c.meta.DeleteVector(ctx, id.String()); err != nil {
		return err
	}

	if c.idx != nil {
		_ = c.idx.Build(c.pairsLocked())
	}

	return c.refreshSystemInfoLocked(ctx)
}

// All returns every vector, served from the KWI container for throughput
// per spec.md §4.7.
func (c *Collection) All() ([]kowari.Vector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	recs, err := c.container.All()
	if err != nil {
		return nil, kowari.WrapErr("collection.all", kowari.KindPersistence, err)
	}

	out := make([]kowari.Vector, len(recs))
	for i, r := range recs {
		out[i] = kowari.Vector{ID: r.ID, Data: r.Data, Metadata: r.Metadata}
	}
	return out, nil
}

// Count returns the number of live vectors in the KWI container.
func (c *Collection) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.container.Count()
}

// Index returns the collection's in-memory search index, rebuilding it
// first if it has never been built.
func (c *Collection) Index() index.Index {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idx == nil {
		c.idx = newIndex(c.indexKind, c.dimension, 0)
		_ = c.idx.Build(c.pairsLocked())
	}
	return c.idx
}

// Search returns the top-k vectors nearest vec, via the query engine of
// spec.md §4.8 joined against this collection's own index and stores.
func (c *Collection) Search(ctx context.Context, vec []float32, k int) ([]kowari.Vector, error) {
	return query.New(c, c.Index()).Search(ctx, vec, k)
}

// SearchWithScores returns the top-k (vector, score) pairs nearest vec.
func (c *Collection) SearchWithScores(ctx context.Context, vec []float32, k int) ([]kowari.ScoredVector, error) {
	return query.New(c, c.Index()).SearchWithScores(ctx, vec, k)
}

// Optimize compacts the KWI container, reclaiming space left behind by
// deletions and upserts. If the container's live record count disagrees
// with the side-store's row count — the two have drifted, most likely
// because a prior crash landed between the side-store write and the KWI
// append described in Add's comment — it re-syncs by rebuilding the
// container from the side-store instead of merely compacting it, per
// spec.md §4.6/§4.7.
func (c *Collection) Optimize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sideCount, err := c.meta.CountVectors(ctx)
	if err != nil {
		return err
	}

	if sideCount != c.container.Count() {
		return c.rebuildFromSideStoreLocked(ctx)
	}

	if err := c.container.Optimize(); err != nil {
		return kowari.WrapErr("collection.optimize", kowari.KindPersistence, err)
	}
	return nil
}

// Repair unconditionally rebuilds the KWI container from the side-store's
// rows, discarding whatever the container currently holds. This is the
// recovery path spec.md §4.6 alludes to when it calls the side-store
// authoritative: a container whose offset table has been lost or
// corrupted can always be regenerated from metadata.sqlite3, because
// every Add commits there first. Unlike Optimize, Repair does not check
// cardinality first — it is the tool to reach for when the container
// itself is suspect, not just out of sync.
func (c *Collection) Repair(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rebuildFromSideStoreLocked(ctx)
}

// rebuildFromSideStoreLocked regenerates the KWI container from the
// side-store's rows via a temp-file-then-atomic-rename, the same pattern
// kwi.Container.Optimize uses internally for its own compaction. Caller
// holds c.mu.
func (c *Collection) rebuildFromSideStoreLocked(ctx context.Context) error {
	rows, err := c.meta.AllVectors(ctx)
	if err != nil {
		return err
	}

	tmpPath := filepath.Join(c.dir, vectorsFileName+".repair.tmp")
	_ = os.Remove(tmpPath)

	fresh, err := kwi.Open(tmpPath, c.dimension)
	if err != nil {
		return kowari.WrapErr("collection.repair", kowari.KindPersistence, err)
	}

	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			continue
		}
		if err := fresh.Add(id, row.Data, row.Metadata); err != nil {
			os.Remove(tmpPath)
			return kowari.WrapErr("collection.repair", kowari.KindPersistence, err)
		}
	}

	containerPath := filepath.Join(c.dir, vectorsFileName)
	if err := os.Rename(tmpPath, containerPath); err != nil {
		os.Remove(tmpPath)
		return kowari.WrapErr("collection.repair", kowari.KindPersistence, err)
	}

	reopened, err := kwi.Open(containerPath, c.dimension)
	if err != nil {
		return kowari.WrapErr("collection.repair", kowari.KindPersistence, err)
	}
	c.container = reopened

	if c.idx != nil {
		_ = c.idx.Build(c.pairsLocked())
	}

	return c.refreshSystemInfoLocked(ctx)
}

// close releases the collection's file descriptors. The KWI container
// itself holds none (opened per-operation, per spec.md §5); only the
// side-store connection and the advisory lock need releasing.
func (c *Collection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if err := c.meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.fileLock != nil {
		if err := c.fileLock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Collection) pairsLocked() []index.Pair {
	recs, err := c.container.All()
	if err != nil {
		return nil
	}
	pairs := make([]index.Pair, len(recs))
	for i, r := range recs {
		pairs[i] = index.Pair{ID: r.ID, Data: r.Data}
	}
	return pairs
}

func (c *Collection) refreshSystemInfoLocked(ctx context.Context) error {
	if err := c.meta.SetSystemInfo(ctx, sysKeyVectorCount, fmt.Sprintf("%d", c.container.Count())); err != nil {
		return err
	}
	return c.meta.SetSystemInfo(ctx, sysKeyUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano))
}

func newIndex(kind kowari.IndexKind, dimension, seed int) index.Index {
	switch kind {
	case kowari.IndexLSH:
		return index.NewLSH(12, int64(seed))
	case kowari.IndexHNSW:
		return index.NewHNSW(index.HNSWConfig{M: 16, Ef: 64, Seed: int64(seed)})
	default:
		return index.NewFlat()
	}
}
