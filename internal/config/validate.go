package config

import "fmt"

// Validate checks cross-field invariants that simple per-field parsing can't
// catch (spec §6's configuration surface requires a sane chunk/search setup
// before any component touches the database or vector index).
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.ChunkingStrategy != ChunkingFixed && c.ChunkingStrategy != ChunkingSemantic {
		return fmt.Errorf("unknown chunking_strategy %q", c.ChunkingStrategy)
	}
	if c.EmbeddingProvider != EmbeddingProviderLocal && c.EmbeddingProvider != EmbeddingProviderOpenAI {
		return fmt.Errorf("unknown embedding_provider %q", c.EmbeddingProvider)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding_dimension must be positive, got %d", c.EmbeddingDimension)
	}
	if c.SearchDefaultLimit <= 0 || c.SearchDefaultLimit > c.SearchMaxLimit {
		return fmt.Errorf("search_default_limit (%d) must be in (0, search_max_limit=%d]", c.SearchDefaultLimit, c.SearchMaxLimit)
	}
	if c.CrawlerMaxDepth < 0 {
		return fmt.Errorf("crawler_max_depth must not be negative, got %d", c.CrawlerMaxDepth)
	}
	if c.CrawlerMaxPages <= 0 {
		return fmt.Errorf("crawler_max_pages must be positive, got %d", c.CrawlerMaxPages)
	}
	if c.CrawlerConcurrentRequests <= 0 {
		return fmt.Errorf("crawler_concurrent_requests must be positive, got %d", c.CrawlerConcurrentRequests)
	}
	return nil
}
