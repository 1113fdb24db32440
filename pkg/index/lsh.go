package index

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LSH is the random-hyperplane locality-sensitive hashing index of
// spec.md §4.3. It draws P random hyperplanes once at build time, hashes
// every vector to a P-bit signature, and buckets by that signature.
// Queries rank bucket members by cosine and fall back to a full scan of
// the mirror list (replacing, not supplementing, the bucket result) if
// the bucket underflows k.
type LSH struct {
	mu sync.RWMutex

	Planes int // P: number of hyperplanes / bits per hash

	dimension int
	planes    [][]float32           // P hyperplane vectors, each of length dimension
	buckets   map[uint64][]Pair     // hash -> bucket members
	mirror    []Pair                // every indexed vector, for fallback

	rng *rand.Rand
}

// NewLSH creates an LSH index with the given number of hyperplanes and
// random seed. A zero seed draws a time-seeded source.
func NewLSH(planes int, seed int64) *LSH {
	if planes <= 0 {
		planes = 8
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := rand.NewSource(seed)
	return &LSH{
		Planes:  planes,
		buckets: make(map[uint64][]Pair),
		rng:     rand.New(src),
	}
}

// Build clears all state, draws a fresh set of hyperplanes, and hashes
// every input vector into its bucket and the mirror list.
func (l *LSH) Build(pairs []Pair) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dim := 0
	if len(pairs) > 0 {
		dim = len(pairs[0].Data)
	}
	for i, p := range pairs {
		if len(p.Data) != dim {
			return fmt.Errorf("lsh: heterogeneous dimensions: pair 0 has %d, pair %d has %d", dim, i, len(p.Data))
		}
	}

	l.dimension = dim
	l.planes = l.drawPlanes(dim)
	l.buckets = make(map[uint64][]Pair)
	l.mirror = make([]Pair, 0, len(pairs))

	for _, p := range pairs {
		cp := Pair{ID: p.ID, Data: append([]float32(nil), p.Data...)}
		h := l.hash(cp.Data)
		l.buckets[h] = append(l.buckets[h], cp)
		l.mirror = append(l.mirror, cp)
	}

	return nil
}

// drawPlanes draws l.Planes hyperplane vectors of the given dimension,
// each coordinate uniform in [-1, 1), per spec.md §4.3 step 2.
func (l *LSH) drawPlanes(dim int) [][]float32 {
	planes := make([][]float32, l.Planes)
	for i := range planes {
		plane := make([]float32, dim)
		for j := range plane {
			plane[j] = float32(l.rng.Float64()*2 - 1)
		}
		planes[i] = plane
	}
	return planes
}

// hash computes the P-bit signature of v: bit i is set iff the dot
// product of v with plane i is non-negative.
func (l *LSH) hash(v []float32) uint64 {
	var h uint64
	for i, plane := range l.planes {
		var dot float64
		for j := range v {
			dot += float64(v[j]) * float64(plane[j])
		}
		if dot >= 0 {
			h |= 1 << uint(i)
		}
	}
	return h
}

// Query hashes the query vector, ranks its bucket by cosine, and falls
// back to a full scan of the mirror list — replacing the bucket result
// entirely — when the bucket holds fewer than k candidates.
func (l *LSH) Query(query []float32, k int) ([]Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.mirror) == 0 || k <= 0 {
		return []Result{}, nil
	}

	h := l.hash(query)
	bucket := l.buckets[h]

	if len(bucket) >= k {
		return rankTopK(bucket, query, k), nil
	}

	return rankTopK(l.mirror, query, k), nil
}

// rankTopK scores each pair against query by cosine and returns the top k
// in descending order.
func rankTopK(pairs []Pair, query []float32, k int) []Result {
	results := make([]Result, len(pairs))
	for i, p := range pairs {
		results[i] = Result{ID: p.ID, Score: cosine(query, p.Data)}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Clear drops all buckets, planes, and the mirror list.
func (l *LSH) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.planes = nil
	l.buckets = make(map[uint64][]Pair)
	l.mirror = nil
	l.dimension = 0
}

// Size returns the number of vectors currently indexed.
func (l *LSH) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.mirror)
}
