package index

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Flat is the exhaustive, exact brute-force index of spec.md §4.2: it
// scores every stored vector against the query and returns the true
// top-k by cosine similarity (or negated Euclidean distance, if
// UseEuclidean is set).
type Flat struct {
	mu           sync.RWMutex
	dimension    int
	vectors      map[uuid.UUID][]float32
	UseEuclidean bool
}

// NewFlat creates an empty brute-force index.
func NewFlat() *Flat {
	return &Flat{vectors: make(map[uuid.UUID][]float32)}
}

// Build copies each (id, data) pair into the index, replacing any
// previous state. All pairs must share the same dimension.
func (f *Flat) Build(pairs []Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	vectors := make(map[uuid.UUID][]float32, len(pairs))
	dim := 0
	for i, p := range pairs {
		if i == 0 {
			dim = len(p.Data)
		} else if len(p.Data) != dim {
			return fmt.Errorf("flat: heterogeneous dimensions: pair 0 has %d, pair %d has %d", dim, i, len(p.Data))
		}

		v := make([]float32, len(p.Data))
		copy(v, p.Data)
		vectors[p.ID] = v
	}

	f.vectors = vectors
	f.dimension = dim
	return nil
}

// Query scores query against every stored vector and returns the top k,
// in non-increasing order of score. Ties are broken by heap-pop order and
// are not otherwise specified, per spec.md §4.2.
func (f *Flat) Query(query []float32, k int) ([]Result, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 || k <= 0 {
		return []Result{}, nil
	}

	score := f.scoreFunc()

	h := &minScoreHeap{}
	heap.Init(h)

	for id, data := range f.vectors {
		s := score(query, data)

		if h.Len() < k {
			heap.Push(h, Result{ID: id, Score: s})
		} else if s > (*h)[0].Score {
			heap.Pop(h)
			heap.Push(h, Result{ID: id, Score: s})
		}
	}

	out := make([]Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Result)
	}
	return out, nil
}

// Clear removes all stored vectors.
func (f *Flat) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = make(map[uuid.UUID][]float32)
	f.dimension = 0
}

// Size returns the number of vectors currently indexed.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

func (f *Flat) scoreFunc() func(a, b []float32) float64 {
	if f.UseEuclidean {
		return euclideanSimilarity
	}
	return cosine
}

// minScoreHeap is a min-heap on Score, used to keep the k highest-scoring
// results seen so far: the weakest of the current top-k sits at the root
// and is evicted first when a better candidate arrives.
type minScoreHeap []Result

func (h minScoreHeap) Len() int            { return len(h) }
func (h minScoreHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h minScoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minScoreHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *minScoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
