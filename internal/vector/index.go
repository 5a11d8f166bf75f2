package vector

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Neighbor is one nearest-neighbor hit. Distance is cosine distance, in [0,1]
// for the unit-ish vectors the embedding gateway produces.
type Neighbor struct {
	ID       string
	Distance float64
}

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is an in-memory nearest-neighbor index over stored embeddings. It is
// a brute-force cosine scan, which is plenty for a catalog of this size, and
// is safe for concurrent use. The index reports itself unconfigured until
// MarkReady is called after the initial load, so searches degrade to the
// fallback scorer instead of running against a half-filled index.
type Index struct {
	mu     sync.RWMutex
	dims   int
	points map[string][]float32
	ready  bool
}

// NewIndex creates an index for vectors of the given dimensionality. A zero
// dims accepts the first upserted vector's length.
func NewIndex(dims int) *Index {
	return &Index{
		dims:   dims,
		points: make(map[string][]float32),
	}
}

func (i *Index) Upsert(id string, vec []float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dims == 0 {
		i.dims = len(vec)
	}
	if len(vec) != i.dims {
		return errors.Wrapf(ErrDimensionMismatch, "id %v: got %d, want %d", id, len(vec), i.dims)
	}

	i.points[id] = vec
	return nil
}

func (i *Index) Remove(ids ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, id := range ids {
		delete(i.points, id)
	}
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.points)
}

// MarkReady flips the index into the configured state.
func (i *Index) MarkReady() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ready = true
}

func (i *Index) IsConfigured() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ready && len(i.points) > 0
}

// Query returns up to k neighbors in ascending distance order, skipping any
// ID in excludeIDs.
func (i *Index) Query(vec []float32, k int, excludeIDs []string) ([]Neighbor, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.dims != 0 && len(vec) != i.dims {
		return nil, errors.Wrapf(ErrDimensionMismatch, "query: got %d, want %d", len(vec), i.dims)
	}

	excluded := lo.SliceToMap(excludeIDs, func(id string) (string, struct{}) {
		return id, struct{}{}
	})

	neighbors := make([]Neighbor, 0, len(i.points))
	for id, point := range i.points {
		if _, skip := excluded[id]; skip {
			continue
		}
		neighbors = append(neighbors, Neighbor{ID: id, Distance: cosineDistance(vec, point)})
	}

	sort.Slice(neighbors, func(a, b int) bool {
		return neighbors[a].Distance < neighbors[b].Distance
	})

	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for idx := range a {
		dot += float64(a[idx]) * float64(b[idx])
		normA += float64(a[idx]) * float64(a[idx])
		normB += float64(b[idx]) * float64(b[idx])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
