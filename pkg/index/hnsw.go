package index

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// hnswNode is one node in the graph. Neighbour lists store integer node
// indices, never ids or pointers, so the graph never needs reference
// counting or back-pointers. A node's
// integer index is assigned once, at insertion, and never changes.
type hnswNode struct {
	ID        uuid.UUID
	Vector    []float32
	Level     int
	Neighbors [][]int // Neighbors[l] = indices of neighbours at level l
}

// HNSW is the layered navigable small-world graph index of spec.md §4.4.
// Distance within the graph is 1 − cosine; final result scores are plain
// cosine similarity.
type HNSW struct {
	mu sync.RWMutex

	// M is the neighbour cap per level.
	M int
	// Ef is the visit budget for the level-0 breadth-first expansion.
	Ef int
	// LevelProbability is p in the geometric level draw (spec.md §4.4
	// step 1, and the Open Question in §9: kept at the spec's stated 0.5
	// rather than silently switched to the standard HNSW value 1/ln(M)).
	LevelProbability float64

	nodes      []*hnswNode
	idIndex    map[uuid.UUID]int
	entryPoint int // index into nodes, or -1 when empty
	maxLevel   int

	rng *rand.Rand
}

// HNSWConfig configures a new HNSW index.
type HNSWConfig struct {
	M                int
	Ef               int
	LevelProbability float64
	Seed             int64
}

// NewHNSW creates an empty HNSW index. A zero LevelProbability defaults
// to 0.5, zero M defaults to 16, and zero Ef defaults to 64.
func NewHNSW(cfg HNSWConfig) *HNSW {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.Ef <= 0 {
		cfg.Ef = 64
	}
	if cfg.LevelProbability <= 0 || cfg.LevelProbability >= 1 {
		cfg.LevelProbability = 0.5
	}

	return &HNSW{
		M:                cfg.M,
		Ef:               cfg.Ef,
		LevelProbability: cfg.LevelProbability,
		idIndex:          make(map[uuid.UUID]int),
		entryPoint:       -1,
		rng:              rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Build clears the graph and inserts every pair in order. Order matters:
// spec.md's insert rule connects a new node to every already-present
// node at their shared levels, so the resulting graph depends on
// insertion order the same way an incrementally-built one would.
func (h *HNSW) Build(pairs []Pair) error {
	h.mu.Lock()
	h.resetLocked()
	h.mu.Unlock()

	for _, p := range pairs {
		if err := h.Insert(p.ID, p.Data); err != nil {
			return err
		}
	}
	return nil
}

func (h *HNSW) resetLocked() {
	h.nodes = nil
	h.idIndex = make(map[uuid.UUID]int)
	h.entryPoint = -1
	h.maxLevel = 0
}

// Insert adds a single vector to the graph, following spec.md §4.4:
// sample a level, connect to every existing node at shared levels, then
// prune each touched neighbour list back to M.
func (h *HNSW) Insert(id uuid.UUID, vector []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	level := h.sampleLevel()

	data := make([]float32, len(vector))
	copy(data, vector)

	newIdx := len(h.nodes)
	node := &hnswNode{
		ID:        id,
		Vector:    data,
		Level:     level,
		Neighbors: make([][]int, level+1),
	}
	h.nodes = append(h.nodes, node)
	h.idIndex[id] = newIdx

	if h.entryPoint == -1 {
		h.entryPoint = newIdx
		h.maxLevel = level
		return nil
	}

	for i := 0; i < newIdx; i++ {
		other := h.nodes[i]
		shared := level
		if other.Level < shared {
			shared = other.Level
		}

		for l := 0; l <= shared; l++ {
			node.Neighbors[l] = append(node.Neighbors[l], i)
			other.Neighbors[l] = append(other.Neighbors[l], newIdx)

			h.pruneLocked(newIdx, l)
			h.pruneLocked(i, l)
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = newIdx
	}

	return nil
}

// sampleLevel draws the largest L such that L geometric trials with
// p=LevelProbability all succeed, per spec.md §4.4 step 1.
func (h *HNSW) sampleLevel() int {
	level := 0
	for h.rng.Float64() < h.LevelProbability {
		level++
		if level > 31 {
			break
		}
	}
	return level
}

// pruneLocked trims nodes[idx]'s neighbour list at level l down to its M
// closest members, by graph distance (1 − cosine). Caller holds h.mu.
func (h *HNSW) pruneLocked(idx, l int) {
	node := h.nodes[idx]
	if l >= len(node.Neighbors) || len(node.Neighbors[l]) <= h.M {
		return
	}

	neighbors := node.Neighbors[l]
	type scored struct {
		idx  int
		dist float64
	}
	scoredList := make([]scored, len(neighbors))
	for i, n := range neighbors {
		scoredList[i] = scored{idx: n, dist: graphDistance(node.Vector, h.nodes[n].Vector)}
	}

	sort.SliceStable(scoredList, func(i, j int) bool {
		return scoredList[i].dist < scoredList[j].dist
	})

	trimmed := make([]int, h.M)
	for i := 0; i < h.M; i++ {
		trimmed[i] = scoredList[i].idx
	}
	node.Neighbors[l] = trimmed
}

// graphDistance is 1 − cosine, the distance kernel spec.md §4.4 prescribes
// for the graph.
func graphDistance(a, b []float32) float64 {
	return 1 - cosine(a, b)
}

// Query performs greedy descent from the entry point down to level 1,
// then a level-0 breadth-first expansion bounded by Ef, and returns the
// top k results by cosine similarity.
func (h *HNSW) Query(query []float32, k int) ([]Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.entryPoint == -1 || k <= 0 {
		return []Result{}, nil
	}

	current := h.entryPoint
	for l := h.maxLevel; l >= 1; l-- {
		current = h.greedyDescend(current, query, l)
	}

	visited := h.bfsExpand(current, query, 0)

	results := make([]Result, 0, len(visited))
	for _, idx := range visited {
		results = append(results, Result{ID: h.nodes[idx].ID, Score: cosine(query, h.nodes[idx].Vector)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// greedyDescend repeatedly moves to the neighbour with strictly smaller
// distance to query at level l, stopping when no neighbour improves.
func (h *HNSW) greedyDescend(start int, query []float32, l int) int {
	current := start
	currentDist := graphDistance(query, h.nodes[current].Vector)

	for {
		improved := false
		node := h.nodes[current]
		if l >= len(node.Neighbors) {
			break
		}
		for _, n := range node.Neighbors[l] {
			d := graphDistance(query, h.nodes[n].Vector)
			if d < currentDist {
				current = n
				currentDist = d
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return current
}

// bfsExpand runs a FIFO breadth-first expansion from start at level l,
// halting once the visited set reaches Ef members (or the graph is
// exhausted first), per spec.md §4.4 step 2.
func (h *HNSW) bfsExpand(start int, query []float32, l int) []int {
	visited := map[int]bool{start: true}
	order := []int{start}
	queue := []int{start}

	for len(queue) > 0 && len(visited) < h.Ef {
		curr := queue[0]
		queue = queue[1:]

		node := h.nodes[curr]
		if l >= len(node.Neighbors) {
			continue
		}
		for _, n := range node.Neighbors[l] {
			if visited[n] {
				continue
			}
			visited[n] = true
			order = append(order, n)
			queue = append(queue, n)
			if len(visited) >= h.Ef {
				break
			}
		}
	}

	return order
}

// Clear drops the entire graph.
func (h *HNSW) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked()
}

// Size returns the number of nodes in the graph.
func (h *HNSW) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}
