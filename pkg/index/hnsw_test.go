package index

import (
	"testing"

	"github.com/google/uuid"
)

func TestHNSWSelfQuery(t *testing.T) {
	h := NewHNSW(HNSWConfig{M: 8, Ef: 16, Seed: 1})

	pairs := make([]Pair, 0, 20)
	for i := 0; i < 20; i++ {
		pairs = append(pairs, Pair{ID: uuid.New(), Data: randomVector(32, int64(i))})
	}
	if err := h.Build(pairs); err != nil {
		t.Fatalf("Build: %v", err)
	}

	target := pairs[0]
	results, err := h.Query(target.Data, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != target.ID {
		t.Errorf("expected top-1 result to be the query vector's own id, got %v", results[0].ID)
	}
}

func TestHNSWEmptyIndex(t *testing.T) {
	h := NewHNSW(HNSWConfig{M: 4, Ef: 8})
	results, err := h.Query([]float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("Query on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}

func TestHNSWNeighborCapRespectsM(t *testing.T) {
	h := NewHNSW(HNSWConfig{M: 3, Ef: 16, Seed: 9})

	pairs := make([]Pair, 0, 30)
	for i := 0; i < 30; i++ {
		pairs = append(pairs, Pair{ID: uuid.New(), Data: randomVector(12, int64(i))})
	}
	if err := h.Build(pairs); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, node := range h.nodes {
		for level, neighbors := range node.Neighbors {
			if len(neighbors) > h.M {
				t.Errorf("node %v level %d has %d neighbours, want <= M=%d", node.ID, level, len(neighbors), h.M)
			}
		}
	}
}

func TestHNSWClear(t *testing.T) {
	h := NewHNSW(HNSWConfig{M: 4, Ef: 8})
	if err := h.Build([]Pair{{ID: uuid.New(), Data: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	h.Clear()
	if h.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", h.Size())
	}
}
