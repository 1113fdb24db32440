package index

import (
	"testing"

	"github.com/google/uuid"
)

func TestLSHSelfQueryFallback(t *testing.T) {
	l := NewLSH(8, 42)

	pairs := make([]Pair, 0, 20)
	for i := 0; i < 20; i++ {
		pairs = append(pairs, Pair{ID: uuid.New(), Data: randomVector(16, int64(i))})
	}
	if err := l.Build(pairs); err != nil {
		t.Fatalf("Build: %v", err)
	}

	target := pairs[0]
	results, err := l.Query(target.Data, 1)
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

func TestLSHBucketFallbackReplacesNotSupplements(t *testing.T) {
	l := NewLSH(4, 7)
	pairs := []Pair{
		{ID: uuid.New(), Data: []float32{1, 0, 0, 0}},
		{ID: uuid.New(), Data: []float32{-1, 0, 0, 0}},
		{ID: uuid.New(), Data: []float32{0, 1, 0, 0}},
	}
	if err := l.Build(pairs); err != nil {
		t.Fatalf("Build: %v", err)
	}

	results, err := l.Query([]float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("fallback should return top-3 over the full mirror, got %d", len(results))
	}
}

func TestLSHClear(t *testing.T) {
	l := NewLSH(4, 1)
	if err := l.Build([]Pair{{ID: uuid.New(), Data: []float32{1, 2, 3, 4}}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Clear()
	if l.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", l.Size())
	}
	results, err := l.Query([]float32{1, 2, 3, 4}, 1)
	if err != nil {
		t.Fatalf("Query on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result on empty index, got %d", len(results))
	}
}
