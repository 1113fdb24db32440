package query

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilthomass/kowari"
	"github.com/neilthomass/kowari/pkg/index"
)

// memStore is a minimal in-memory Store used to exercise the engine
// without pulling in pkg/collection.
type memStore struct {
	vectors map[uuid.UUID]kowari.Vector
}

func newMemStore() *memStore {
	return &memStore{vectors: make(map[uuid.UUID]kowari.Vector)}
}

func (s *memStore) put(v kowari.Vector) { s.vectors[v.ID] = v }

func (s *memStore) Get(_ context.Context, id uuid.UUID) (kowari.Vector, bool, error) {
	v, ok := s.vectors[id]
	return v, ok, nil
}

func TestEngineSearchWithScores(t *testing.T) {
	store := newMemStore()
	flat := index.NewFlat()

	a := kowari.NewVector(nil, []float32{1, 0, 0}, nil)
	b := kowari.NewVector(nil, []float32{0, 1, 0}, nil)
	store.put(a)
	store.put(b)

	require.NoError(t, flat.Build([]index.Pair{
		{ID: a.ID, Data: a.Data},
		{ID: b.ID, Data: b.Data},
	}))

	engine := New(store, flat)
	results, err := engine.SearchWithScores(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a.ID, results[0].Vector.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestEngineSearchDropsDanglingIDs(t *testing.T) {
	store := newMemStore()
	flat := index.NewFlat()

	present := kowari.NewVector(nil, []float32{1, 0}, nil)
	stale := kowari.NewVector(nil, []float32{0, 1}, nil)
	store.put(present) // stale is never added to the store

	require.NoError(t, flat.Build([]index.Pair{
		{ID: present.ID, Data: present.Data},
		{ID: stale.ID, Data: stale.Data},
	}))

	engine := New(store, flat)
	results, err := engine.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, present.ID, results[0].ID)
}
