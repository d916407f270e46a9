// Package search implements C11: the search orchestrator
// (query -> embed -> filter -> vector search -> hydrate -> rerank -> pack),
// spec §4.11, grounded on the teacher's internal/rag/service/service.go's
// Retrieve method and internal/rag/retrieve/{query,candidates,docs}.go's
// stage decomposition.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docvector/internal/embedding"
	"docvector/internal/metrics"
	"docvector/internal/model"
	"docvector/internal/rerank"
	"docvector/internal/vectorstore"
)

// ChunkGetter is the minimal capability the orchestrator needs from the
// relational store, matching the teacher's narrow per-dependency interfaces
// in internal/rag/service.Service (search/vector/graph as separate small
// interfaces rather than one fat store).
type ChunkGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Chunk, error)
}

// SearchType selects the retrieval mode (spec §4.11 names vector and hybrid;
// this module implements vector search with optional reranking — see
// DESIGN.md's "no BM25" Open Question decision for why hybrid here means
// vector+rerank rather than vector+full-text fusion).
type SearchType string

const (
	SearchVector SearchType = "vector"
	SearchHybrid SearchType = "hybrid"
)

// Request is the search orchestrator's input contract (spec §4.11).
type Request struct {
	Query          string
	Limit          int
	SearchType     SearchType
	Filters        vectorstore.Filter
	ScoreThreshold float64
	UseReranking   bool
	MaxTokens      int

	// Fields merged into the constructed filter alongside caller Filters.
	AccessLevel string
	Topics      []string
	LibraryID   string
	Version     string
}

// Hit is one returned result (spec §4.11's output shape).
type Hit struct {
	ChunkID    string
	DocumentID string
	Score      float64
	Content    string
	Title      string
	URL        string
	Metadata   map[string]any
	Truncated  bool
}

// Orchestrator wires the embedding service, vector index, relational store,
// and reranker together to answer search requests.
type Orchestrator struct {
	Embedder *embedding.Service
	Vectors  vectorstore.Store
	Chunks   ChunkGetter
	Reranker *rerank.Reranker

	// Metrics records query counters and end-to-end search latency; nil
	// disables recording.
	Metrics metrics.Metrics
}

const defaultLimit = 10

// Search executes one query end to end per spec §4.11.
func (o *Orchestrator) Search(ctx context.Context, req Request) ([]Hit, error) {
	start := time.Now()
	defer func() {
		if o.Metrics == nil {
			return
		}
		o.Metrics.IncCounter("docvector_search_queries_total", map[string]string{"reranked": fmt.Sprintf("%t", req.UseReranking)})
		o.Metrics.ObserveHistogram("docvector_search_latency_seconds", time.Since(start).Seconds(), nil)
	}()

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	filter := buildFilter(req)

	queryVec, err := o.Embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	// limit' = 2*limit when reranking is on, to give the reranker headroom
	// (spec §4.11).
	vecLimit := limit
	if req.UseReranking {
		vecLimit = limit * 2
	}

	results, err := o.Vectors.Search(ctx, queryVec, vecLimit, filter)
	if err != nil {
		return nil, fmt.Errorf("search: vector search: %w", err)
	}
	if req.ScoreThreshold > 0 {
		results = filterByThreshold(results, req.ScoreThreshold)
	}

	hits, err := o.hydrate(ctx, results)
	if err != nil {
		return nil, err
	}

	if req.UseReranking && o.Reranker != nil {
		hits = o.rerankHits(req.Query, hits)
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}

	if req.MaxTokens > 0 {
		hits = o.pack(hits, req.MaxTokens)
	}

	return hits, nil
}

func filterByThreshold(results []vectorstore.SearchResult, threshold float64) []vectorstore.SearchResult {
	out := results[:0]
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// buildFilter merges the named access_level/topics/library_id/version
// fields with the caller-supplied filter map, per spec §4.11.
func buildFilter(req Request) vectorstore.Filter {
	filter := vectorstore.Filter{}
	for k, v := range req.Filters {
		filter[k] = v
	}
	if req.AccessLevel != "" {
		filter["access_level"] = req.AccessLevel
	}
	if len(req.Topics) > 0 {
		filter["topics"] = vectorstore.FilterOp{In: req.Topics}
	}
	if req.LibraryID != "" {
		filter["library_id"] = req.LibraryID
	}
	if req.Version != "" {
		filter["version"] = req.Version
	}
	return filter
}

func (o *Orchestrator) hydrate(ctx context.Context, results []vectorstore.SearchResult) ([]Hit, error) {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		chunkID, err := uuid.Parse(r.ID)
		if err != nil {
			continue
		}
		c, err := o.Chunks.GetByID(ctx, chunkID)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{
			ChunkID:    c.ID.String(),
			DocumentID: c.DocumentID.String(),
			Score:      r.Score,
			Content:    c.Text,
			Title:      stringField(r.Metadata, "title"),
			URL:        stringField(r.Metadata, "url"),
			Metadata:   r.Metadata,
		})
	}
	return hits, nil
}

func (o *Orchestrator) rerankHits(query string, hits []Hit) []Hit {
	candidates := make([]rerank.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = rerank.Candidate{
			ID:          h.ChunkID,
			Content:     h.Content,
			VectorScore: h.Score,
			Metadata:    h.Metadata,
		}
	}

	ranked := o.Reranker.Rerank(query, candidates, true)
	out := make([]Hit, len(ranked))
	byID := indexHitsByID(hits)
	for i, r := range ranked {
		h := byID[r.ID]
		h.Score = r.FinalScore
		out[i] = h
	}
	return out
}

func (o *Orchestrator) pack(hits []Hit, maxTokens int) []Hit {
	results := make([]rerank.Result, len(hits))
	byID := indexHitsByID(hits)
	for i, h := range hits {
		results[i] = rerank.Result{
			Candidate:  rerank.Candidate{ID: h.ChunkID, Content: h.Content, VectorScore: h.Score},
			FinalScore: h.Score,
		}
	}

	packed := rerank.Pack(results, maxTokens)
	out := make([]Hit, len(packed))
	for i, p := range packed {
		h := byID[p.ID]
		h.Content = p.Content
		h.Truncated = p.Truncated
		out[i] = h
	}
	return out
}

func indexHitsByID(hits []Hit) map[string]Hit {
	m := make(map[string]Hit, len(hits))
	for _, h := range hits {
		m[h.ChunkID] = h
	}
	return m
}

func stringField(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	s, _ := metadata[key].(string)
	return s
}
