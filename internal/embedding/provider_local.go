package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// LocalProvider is a deterministic, dependency-free embedding model used for
// tests and for small local deployments that have no remote embedding
// endpoint configured. Grounded on the teacher's
// internal/rag/embedder/embedder.go deterministicEmbedder (FNV-hash 3-gram
// embedding, optional L2 normalization).
type LocalProvider struct {
	dimension int
	name      string
	normalize bool
}

// NewLocalProvider constructs a LocalProvider with the given output
// dimension. L2 normalization is always applied, matching the embedder's
// default for local models (cosine-similarity-friendly vectors).
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &LocalProvider{dimension: dimension, name: "local-minilm", normalize: true}
}

func (p *LocalProvider) Name() string    { return p.name }
func (p *LocalProvider) Dimension() int  { return p.dimension }

func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.embedOne(t)
	}
	return out, nil
}

func (p *LocalProvider) embedOne(text string) []float32 {
	v := make([]float32, p.dimension)
	lower := strings.ToLower(text)
	runes := []rune(lower)

	for i := 0; i < len(runes); i++ {
		end := i + 3
		if end > len(runes) {
			end = len(runes)
		}
		gram := string(runes[i:end])

		h := fnv.New32a()
		h.Write([]byte(gram))
		idx := int(h.Sum32()) % p.dimension
		if idx < 0 {
			idx += p.dimension
		}
		v[idx] += 1.0
	}

	if p.normalize {
		normalize(v)
	}
	return v
}
