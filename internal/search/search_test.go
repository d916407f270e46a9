package search

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docvector/internal/embedding"
	"docvector/internal/model"
	"docvector/internal/rerank"
	"docvector/internal/vectorstore"
)

type fakeChunkStore struct {
	byID map[uuid.UUID]*model.Chunk
}

func (f *fakeChunkStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Chunk, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, errNotFound{}
	}
	return c, nil
}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

func newFixture(t *testing.T) (*Orchestrator, []uuid.UUID) {
	t.Helper()

	vec := vectorstore.NewMemoryStore()
	provider := embedding.NewLocalProvider(16)
	svc := embedding.NewService(provider, nil, 8)

	chunkStore := &fakeChunkStore{byID: map[uuid.UUID]*model.Chunk{}}

	texts := []string{
		"quick start: install the library and run the example",
		"unrelated filler content about something else entirely",
	}
	ids := make([]uuid.UUID, len(texts))
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	for i, text := range texts {
		id := model.NewID()
		ids[i] = id
		docID := model.NewID()
		chunkStore.byID[id] = &model.Chunk{ID: id, DocumentID: docID, Text: text}
		err := vec.Upsert(context.Background(), []vectorstore.Point{{
			ID:       id.String(),
			Vector:   vecs[i],
			Metadata: map[string]any{"title": "doc", "url": "https://example.com"},
		}})
		require.NoError(t, err)
	}

	o := &Orchestrator{
		Embedder: svc,
		Vectors:  vec,
		Chunks:   chunkStore,
		Reranker: rerank.New(rerank.DefaultWeights()),
	}
	return o, ids
}

func TestSearchReturnsHydratedHits(t *testing.T) {
	t.Parallel()

	o, _ := newFixture(t)

	hits, err := o.Search(context.Background(), Request{Query: "quick start install", Limit: 5})

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, "doc", hits[0].Title)
}

func TestSearchWithRerankingTrimsToLimit(t *testing.T) {
	t.Parallel()

	o, _ := newFixture(t)

	hits, err := o.Search(context.Background(), Request{Query: "quick start install", Limit: 1, UseReranking: true})

	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestBuildFilterMergesNamedFieldsAndCallerFilters(t *testing.T) {
	t.Parallel()

	f := buildFilter(Request{
		LibraryID: "lib-1",
		Topics:    []string{"auth", "billing"},
		Filters:   vectorstore.Filter{"custom": "value"},
	})

	require.Equal(t, "lib-1", f["library_id"])
	require.Equal(t, "value", f["custom"])
	op, ok := f["topics"].(vectorstore.FilterOp)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"auth", "billing"}, op.In)
}

func TestSearchRespectsLimit(t *testing.T) {
	t.Parallel()

	o, _ := newFixture(t)

	hits, err := o.Search(context.Background(), Request{Query: "filler", Limit: 1})

	require.NoError(t, err)
	require.Len(t, hits, 1)
}
