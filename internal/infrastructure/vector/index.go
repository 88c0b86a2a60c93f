package vector

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/coder/hnsw"
	"github.com/dealscout/backend/internal/domain"
)

// IndexConfig tunes the HNSW graph
type IndexConfig struct {
	Dimensions int
	M          int
	EfSearch   int
}

// Index is an in-memory HNSW graph over cosine distance. Each vector carries
// a product id and filterable metadata.
//
// Replaced ids are orphaned rather than deleted from the graph; coder/hnsw
// misbehaves when its last node is removed.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dims    int
	nextKey uint64
	ids     map[string]uint64
	entries map[uint64]entry
}

type entry struct {
	id   string
	meta map[string]any
}

// NewIndex creates an empty index
func NewIndex(cfg IndexConfig) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 64
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25
	return &Index{
		graph:   g,
		dims:    cfg.Dimensions,
		ids:     make(map[string]uint64),
		entries: make(map[uint64]entry),
	}, nil
}

// Add inserts or replaces the vector for id
func (x *Index) Add(id string, vec []float32, meta map[string]any) error {
	if len(vec) != x.dims {
		return fmt.Errorf("vector for %s has %d dimensions, want %d", id, len(vec), x.dims)
	}
	v := make([]float32, len(vec))
	copy(v, vec)
	if !normalize(v) {
		return fmt.Errorf("vector for %s is all zeros", id)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if old, ok := x.ids[id]; ok {
		delete(x.entries, old)
	}
	key := x.nextKey
	x.nextKey++
	x.graph.Add(hnsw.MakeNode(key, v))
	x.ids[id] = key
	x.entries[key] = entry{id: id, meta: meta}
	return nil
}

// Query returns up to topK nearest live vectors satisfying filter, most
// similar first. Similarity is cosine similarity clamped to [0, 1].
func (x *Index) Query(vec []float32, topK int, filter Filter) ([]domain.VectorHit, error) {
	if len(vec) != x.dims {
		return nil, fmt.Errorf("query has %d dimensions, want %d", len(vec), x.dims)
	}
	if topK <= 0 {
		return nil, nil
	}
	q := make([]float32, len(vec))
	copy(q, vec)
	if !normalize(q) {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	total := x.graph.Len()
	if total == 0 {
		return nil, nil
	}

	// Over-fetch and widen until enough hits survive the filter or the
	// whole graph has been visited.
	k := topK * 4
	for {
		if k > total {
			k = total
		}
		hits := x.collect(q, k, topK, filter)
		if len(hits) >= topK || k == total {
			return hits, nil
		}
		k *= 2
	}
}

func (x *Index) collect(q []float32, k, topK int, filter Filter) []domain.VectorHit {
	nodes := x.graph.Search(q, k)
	hits := make([]domain.VectorHit, 0, len(nodes))
	for _, n := range nodes {
		e, ok := x.entries[n.Key]
		if !ok || !filter.Matches(e.meta) {
			continue
		}
		sim := 1 - float64(x.graph.Distance(q, n.Value))
		if math.IsNaN(sim) {
			sim = 0
		}
		hits = append(hits, domain.VectorHit{
			ID:       e.id,
			Score:    domain.Clamp(sim, 0, 1),
			Metadata: copyMeta(e.meta),
		})
	}
	slices.SortStableFunc(hits, func(a, b domain.VectorHit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Len returns the number of live vectors
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dimensions returns the vector size the index accepts
func (x *Index) Dimensions() int { return x.dims }

func copyMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
