// Package query implements the thin, non-owning query coordinator of
// spec.md §4.8: it joins a vector store and a search index and offers the
// three query verbs the rest of the system needs, without owning either
// side's lifecycle.
package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/neilthomass/kowari"
	"github.com/neilthomass/kowari/pkg/index"
)

// Store is the subset of collection.Collection's surface the engine needs:
// a way to resolve an id back to its full vector. Declared locally so this
// package never imports pkg/collection, keeping the dependency direction
// one-way (collection can use query, query never needs collection).
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (kowari.Vector, bool, error)
}

// Engine is a non-owning (store, index) coordinator. Neither field is
// closed or mutated by the engine itself.
type Engine struct {
	store Store
	idx   index.Index
}

// New builds an Engine over an already-populated store and index.
func New(store Store, idx index.Index) *Engine {
	return &Engine{store: store, idx: idx}
}

// Search returns the top-k records nearest to query, by id. Ids the index
// returns that are no longer present in the store are silently dropped —
// spec.md §4.8 treats this as expected drift between an index and a store
// under incremental mutation, not an error.
func (e *Engine) Search(ctx context.Context, vec []float32, k int) ([]kowari.Vector, error) {
	scored, err := e.SearchWithScores(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]kowari.Vector, len(scored))
	for i, sv := range scored {
		out[i] = sv.Vector
	}
	return out, nil
}

// SearchWithScores returns the top-k (record, score) pairs nearest to vec.
func (e *Engine) SearchWithScores(ctx context.Context, vec []float32, k int) ([]kowari.ScoredVector, error) {
	results, err := e.idx.Query(vec, k)
	if err != nil {
		return nil, kowari.WrapErr("query.search", kowari.KindIndex, err)
	}

	out := make([]kowari.ScoredVector, 0, len(results))
	for _, r := range results {
		v, ok, err := e.store.Get(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, kowari.ScoredVector{Vector: v, Score: r.Score})
	}
	return out, nil
}

// SearchRaw is an alias for Search that makes the "raw data vector" input
// of spec.md §4.8 explicit at call sites that otherwise read a bare vec
// argument as a stored id.
func (e *Engine) SearchRaw(ctx context.Context, vec []float32, k int) ([]kowari.Vector, error) {
	return e.Search(ctx, vec, k)
}
