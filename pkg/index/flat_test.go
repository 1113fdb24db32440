package index

import (
	"testing"

	"github.com/google/uuid"
)

func TestFlatBasic(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	f := NewFlat()

	if err := f.Build([]Pair{
		{ID: a, Data: []float32{1, 0, 0}},
		{ID: b, Data: []float32{0, 1, 0}},
		{ID: c, Data: []float32{0.9, 0.1, 0}},
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if f.Size() != 3 {
		t.Fatalf("expected size 3, got %d", f.Size())
	}

	results, err := f.Query([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != a {
		t.Errorf("expected closest to be a, got %v (score %f)", results[0].ID, results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not in non-increasing score order at index %d", i)
		}
	}
}

func TestFlatSelfQuery(t *testing.T) {
	f := NewFlat()
	pairs := make([]Pair, 0, 20)
	for i := 0; i < 20; i++ {
		pairs = append(pairs, Pair{ID: uuid.New(), Data: randomVector(8, int64(i))})
	}
	if err := f.Build(pairs); err != nil {
		t.Fatalf("Build: %v", err)
	}

	target := pairs[3]
	results, err := f.Query(target.Data, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	found := false
	for _, r := range results {
		if r.ID == target.ID {
			found = true
			if r.Score < 0.999999 {
				t.Errorf("self-query score too low: %f", r.Score)
			}
		}
	}
	if !found {
		t.Error("expected self id in top-k results")
	}
}

func TestFlatHeterogeneousDimensionsRejected(t *testing.T) {
	f := NewFlat()
	err := f.Build([]Pair{
		{ID: uuid.New(), Data: []float32{1, 2, 3}},
		{ID: uuid.New(), Data: []float32{1, 2}},
	})
	if err == nil {
		t.Fatal("expected error for heterogeneous dimensions")
	}
}

func TestFlatClearAndEmptyQuery(t *testing.T) {
	f := NewFlat()
	if err := f.Build([]Pair{{ID: uuid.New(), Data: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	f.Clear()
	if f.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", f.Size())
	}

	results, err := f.Query([]float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("Query on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}

// randomVector generates a deterministic pseudo-random vector for test
// fixtures, without depending on math/rand's global state.
func randomVector(dim int, seed int64) []float32 {
	v := make([]float32, dim)
	x := seed*2654435761 + 1
	for i := range v {
		x = (x*1103515245 + 12345) & 0x7fffffff
		v[i] = float32(x%2000)/1000.0 - 1.0
	}
	return v
}
