package collection

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gofrs/flock"

	"github.com/neilthomass/kowari"
	"github.com/neilthomass/kowari/internal/klog"
	"github.com/neilthomass/kowari/pkg/kwi"
	"github.com/neilthomass/kowari/pkg/metastore"
)

// Manager creates, loads, lists, and destroys collections rooted at a
// single base directory, per spec.md §4.7. It caches open collections in a
// bounded, name-keyed LRU so a long-running process doesn't accumulate an
// unbounded number of open side-store connections.
type Manager struct {
	mu  sync.Mutex
	cfg kowari.Config
	log klog.Logger

	cache *lru.Cache[string, *Collection]
}

// NewManager builds a Manager from cfg. A zero cfg.MaxOpenCollections
// defaults to 32.
func NewManager(cfg kowari.Config) (*Manager, error) {
	if cfg.BaseDir == "" {
		return nil, kowari.WrapErr("manager.new", kowari.KindStorage, fmt.Errorf("base directory is required"))
	}
	if cfg.MaxOpenCollections <= 0 {
		cfg.MaxOpenCollections = 32
	}
	if cfg.DefaultIndex == "" {
		cfg.DefaultIndex = kowari.IndexFlat
	}

	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, kowari.WrapErr("manager.new", kowari.KindPersistence, err)
	}

	m := &Manager{cfg: cfg, log: klog.Nop()}

	cache, err := lru.NewWithEvict[string, *Collection](cfg.MaxOpenCollections, func(_ string, c *Collection) {
		if err := c.close(); err != nil {
			m.log.Warn("error closing evicted collection", "name", c.name, "error", err)
		}
	})
	if err != nil {
		return nil, kowari.WrapErr("manager.new", kowari.KindOther, err)
	}
	m.cache = cache

	return m, nil
}

// SetLogger replaces the manager's logger (the default discards output).
func (m *Manager) SetLogger(l klog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = l
}

func (m *Manager) dirFor(name string) string {
	return filepath.Join(m.cfg.BaseDir, name)
}

// Create makes a new collection named name with the given dimension. It
// fails if the collection already exists.
func (m *Manager) Create(ctx context.Context, name string, dimension int) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dimension <= 0 {
		return nil, kowari.WrapErr("manager.create", kowari.KindStorage, fmt.Errorf("dimension must be positive"))
	}

	dir := m.dirFor(name)
	if _, err := os.Stat(dir); err == nil {
		return nil, kowari.WrapErr("manager.create", kowari.KindStorage, kowari.ErrCollectionExists)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kowari.WrapErr("manager.create", kowari.KindPersistence, err)
	}

	c, err := m.openLocked(ctx, name, dir, dimension)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := c.meta.SetSystemInfo(ctx, sysKeyVectorCount, "0"); err != nil {
		_ = c.close()
		os.RemoveAll(dir)
		return nil, err
	}

	m.cache.Add(name, c)
	return c, nil
}

// Open loads an existing collection, reusing the cached instance if one is
// already open.
func (m *Manager) Open(ctx context.Context, name string) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.cache.Get(name); ok {
		return c, nil
	}

	dir := m.dirFor(name)
	if _, err := os.Stat(dir); err != nil {
		return nil, kowari.WrapErr("manager.open", kowari.KindStorage, kowari.ErrCollectionNotFound)
	}

	container, err := kwi.Open(filepath.Join(dir, vectorsFileName), 0)
	if err != nil {
		return nil, kowari.WrapErr("manager.open", kowari.KindPersistence, err)
	}

	c, err := m.openLocked(ctx, name, dir, container.Dimension())
	if err != nil {
		return nil, err
	}

	m.cache.Add(name, c)
	return c, nil
}

// openLocked opens (or creates) a collection's backing files. Caller holds
// m.mu.
func (m *Manager) openLocked(_ context.Context, name, dir string, dimension int) (*Collection, error) {
	fileLock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, kowari.WrapErr("manager.open", kowari.KindPersistence, err)
	}
	if !locked {
		return nil, kowari.WrapErr("manager.open", kowari.KindStorage, fmt.Errorf("collection %q is locked by another process", name))
	}

	container, err := kwi.Open(filepath.Join(dir, vectorsFileName), dimension)
	if err != nil {
		fileLock.Unlock()
		return nil, kowari.WrapErr("manager.open", kowari.KindPersistence, err)
	}

	meta, err := metastore.Open(filepath.Join(dir, metadataFileName))
	if err != nil {
		fileLock.Unlock()
		return nil, err
	}

	return &Collection{
		name:      name,
		dir:       dir,
		dimension: dimension,
		indexKind: m.cfg.DefaultIndex,
		container: container,
		meta:      meta,
		fileLock:  fileLock,
		log:       m.log,
	}, nil
}

// List returns every collection name under the manager's base directory,
// sorted lexically.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.BaseDir)
	if err != nil {
		return nil, kowari.WrapErr("manager.list", kowari.KindPersistence, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a collection's directory entirely, closing it first if it
// is open.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.cache.Get(name); ok {
		_ = c.close()
		m.cache.Remove(name)
	}

	dir := m.dirFor(name)
	if _, err := os.Stat(dir); err != nil {
		return kowari.WrapErr("manager.delete", kowari.KindStorage, kowari.ErrCollectionNotFound)
	}

	if err := os.RemoveAll(dir); err != nil {
		return kowari.WrapErr("manager.delete", kowari.KindPersistence, err)
	}
	return nil
}

// Info reports a snapshot of a collection's current state.
func (m *Manager) Info(ctx context.Context, name string) (Info, error) {
	c, err := m.Open(ctx, name)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Name:        c.Name(),
		Dimension:   c.Dimension(),
		VectorCount: c.Count(),
		IndexKind:   c.indexKind,
	}, nil
}

// Optimize compacts a collection's KWI container, or re-syncs it from the
// side-store if the two have drifted apart. See Collection.Optimize.
func (m *Manager) Optimize(ctx context.Context, name string) error {
	c, err := m.Open(ctx, name)
	if err != nil {
		return err
	}
	return c.Optimize(ctx)
}

// Repair rebuilds a collection's KWI container from its side-store.
func (m *Manager) Repair(ctx context.Context, name string) error {
	c, err := m.Open(ctx, name)
	if err != nil {
		return err
	}
	return c.Repair(ctx)
}

// Close releases every collection currently held open by the manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, key := range m.cache.Keys() {
		if c, ok := m.cache.Peek(key); ok {
			if err := c.close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	m.cache.Purge()
	return firstErr
}
