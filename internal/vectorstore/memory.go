package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by small
// deployments with no external vector database configured. Grounded on the
// teacher's internal/persistence/databases/memory_vector.go.
type MemoryStore struct {
	mu     sync.RWMutex
	points map[string]Point
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]Point)}
}

func (m *MemoryStore) Upsert(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		md := make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			md[k] = v
		}
		m.points[p.ID] = Point{ID: p.ID, Vector: vec, Metadata: md}
	}
	return nil
}

func (m *MemoryStore) Search(_ context.Context, vector []float32, limit int, filter Filter) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	qnorm := norm(vector)

	var results []SearchResult
	for _, p := range m.points {
		if !matchesFilter(p.Metadata, filter) {
			continue
		}
		results = append(results, SearchResult{
			ID:       p.ID,
			Score:    cosine(vector, p.Vector, qnorm),
			Metadata: p.Metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.points, id)
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.points {
		if matchesFilter(p.Metadata, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }

func matchesFilter(metadata map[string]any, filter Filter) bool {
	for field, cond := range filter {
		v, ok := metadata[field]
		if !ok {
			return false
		}
		switch c := cond.(type) {
		case string:
			if v != c {
				return false
			}
		case []string:
			if !containsAny(v, c) {
				return false
			}
		case FilterOp:
			if !matchesOp(v, c) {
				return false
			}
		}
	}
	return true
}

// containsAny reports whether v (a single string, or a []string for
// multi-valued fields like topics) shares at least one value with options.
func containsAny(v any, options []string) bool {
	switch vv := v.(type) {
	case string:
		for _, o := range options {
			if vv == o {
				return true
			}
		}
	case []string:
		for _, s := range vv {
			for _, o := range options {
				if s == o {
					return true
				}
			}
		}
	}
	return false
}

func matchesOp(v any, op FilterOp) bool {
	f, ok := toFloat(v)
	if !ok {
		return len(op.In) > 0 && containsAny(v, op.In)
	}
	if op.Gt != nil && !(f > *op.Gt) {
		return false
	}
	if op.Gte != nil && !(f >= *op.Gte) {
		return false
	}
	if op.Lt != nil && !(f < *op.Lt) {
		return false
	}
	if op.Lte != nil && !(f <= *op.Lte) {
		return false
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = norm(a)
	}
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}
