// Package embedding implements C6: turning chunk text into vectors, with a
// batched call interface, a two-tier cache, and local/remote providers (spec
// §4.6). Grounded on the teacher's internal/rag/embedder/embedder.go
// (Embedder interface, batching-to-avoid-crashes idiom) and
// internal/embedding/client.go's HTTP wire shape for the remote provider.
package embedding

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Provider embeds batches of text, reporting its model name and output
// dimension. Mirrors the teacher's Embedder interface.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
}

// ConcurrentProvider is implemented by providers whose EmbedBatch calls are
// safe and worthwhile to run in parallel (remote HTTP providers); a provider
// that doesn't implement it is assumed serialized (LocalProvider: in-process
// CPU work with no latency to hide).
type ConcurrentProvider interface {
	Concurrent() bool
}

// maxConcurrentBatches bounds how many outer embed batches run in parallel
// against a remote provider (spec §4.6/§5: "a small fixed number (e.g. 4)").
const maxConcurrentBatches = 4

// Service wraps a Provider with batching and a two-tier cache.
type Service struct {
	provider  Provider
	cache     Cache
	batchSize int
}

// NewService constructs a Service. cache may be nil (NoopCache is used).
func NewService(provider Provider, cache Cache, batchSize int) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Service{provider: provider, cache: cache, batchSize: batchSize}
}

// EmbedBatch returns one embedding per text, checking the cache first and
// only calling the provider for cache misses, batched at s.batchSize.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := CacheKey(s.provider.Name(), t)
		if v, ok := s.cache.Get(ctx, key); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	type batchRange struct{ start, end int }
	var batches []batchRange
	for start := 0; start < len(missTexts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batches = append(batches, batchRange{start, end})
	}

	apply := func(b batchRange, vecs [][]float32) error {
		if len(vecs) != b.end-b.start {
			return fmt.Errorf("embedding: provider %s returned %d vectors for %d inputs", s.provider.Name(), len(vecs), b.end-b.start)
		}
		for j, vec := range vecs {
			globalIdx := missIdx[b.start+j]
			out[globalIdx] = vec
			s.cache.Set(ctx, CacheKey(s.provider.Name(), missTexts[b.start+j]), vec)
		}
		return nil
	}

	if cp, ok := s.provider.(ConcurrentProvider); ok && cp.Concurrent() && len(batches) > 1 {
		sem := semaphore.NewWeighted(maxConcurrentBatches)
		g, gctx := errgroup.WithContext(ctx)
		for _, b := range batches {
			b := b
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil, fmt.Errorf("embedding: %w", err)
			}
			g.Go(func() error {
				defer sem.Release(1)
				vecs, err := s.provider.EmbedBatch(gctx, missTexts[b.start:b.end])
				if err != nil {
					return fmt.Errorf("embedding: provider %s: %w", s.provider.Name(), err)
				}
				return apply(b, vecs)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}

	for _, b := range batches {
		vecs, err := s.provider.EmbedBatch(ctx, missTexts[b.start:b.end])
		if err != nil {
			return nil, fmt.Errorf("embedding: provider %s: %w", s.provider.Name(), err)
		}
		if err := apply(b, vecs); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// EmbedQuery embeds a single query string as a one-element EmbedBatch call,
// so it goes through the same cache.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Dimension returns the provider's embedding dimension.
func (s *Service) Dimension() int { return s.provider.Dimension() }

// Name returns the provider's model identifier.
func (s *Service) Name() string { return s.provider.Name() }

// normalize L2-normalizes a vector in place, matching the teacher's
// deterministicEmbedder's optional normalization step for local models.
func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
