package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUpsertAndSearch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"lang": "go"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Metadata: map[string]any{"lang": "python"}},
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
}

func TestMemoryStoreSearchWithEqualityFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"lang": "go"}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"lang": "python"}},
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 10, Filter{"lang": "python"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestMemoryStoreSearchWithRangeFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	gte := 2.0
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"version": 1.0}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"version": 3.0}},
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 10, Filter{"version": FilterOp{Gte: &gte}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestMemoryStoreDeleteAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1, 2}}}))

	p, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, p)

	require.NoError(t, s.Delete(ctx, []string{"a"}))
	p, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemoryStoreCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1}, Metadata: map[string]any{"doc_id": "d1"}},
		{ID: "b", Vector: []float32{1}, Metadata: map[string]any{"doc_id": "d1"}},
		{ID: "c", Vector: []float32{1}, Metadata: map[string]any{"doc_id": "d2"}},
	}))

	n, err := s.Count(ctx, Filter{"doc_id": "d1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
