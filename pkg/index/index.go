// Package index provides the three interchangeable nearest-neighbour
// indexes kowari ships: Flat (exact brute force), LSH (random-hyperplane
// hashing) and HNSW (layered navigable small-world graph). All three
// satisfy the Index interface, so callers never need to know which one
// they're holding.
package index

import "github.com/google/uuid"

// Pair is one (id, vector) input to Build.
type Pair struct {
	ID   uuid.UUID
	Data []float32
}

// Result is one (id, score) output of Query. Higher Score is always more
// similar.
type Result struct {
	ID    uuid.UUID
	Score float64
}

// Index is the shared contract over the three index implementations.
// Build replaces any previously held state; Query never mutates the
// index; Clear drops all state. None of the three implementations hold
// file handles or other external resources — they are rebuilt from a
// collection's snapshot on demand, per spec.md §5.
type Index interface {
	// Build copies pairs into the index's internal representation,
	// replacing any previous state. It returns an error for malformed
	// input, such as vectors of heterogeneous dimension.
	Build(pairs []Pair) error

	// Query returns up to k results ranked by descending score.
	Query(vector []float32, k int) ([]Result, error)

	// Clear drops all state, leaving the index as if freshly constructed.
	Clear()
}
