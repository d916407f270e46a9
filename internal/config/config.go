// Package config loads docvector's runtime configuration from environment
// variables (prefix DOCVECTOR_), matching spec §6's configuration surface.
// The loading style — godotenv overlay, os.Getenv reads, int/bool/float
// parsing with defaults applied first — mirrors the teacher's
// internal/config/loader.go env-var-chain pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EmbeddingProvider enumerates supported embedding backends.
type EmbeddingProvider string

const (
	EmbeddingProviderLocal  EmbeddingProvider = "local"
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// ChunkingStrategy enumerates supported chunking strategies.
type ChunkingStrategy string

const (
	ChunkingFixed    ChunkingStrategy = "fixed"
	ChunkingSemantic ChunkingStrategy = "semantic"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	DatabaseURL string
	RedisURL    string

	VectorHost string
	VectorPort int

	EmbeddingProvider  EmbeddingProvider
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingBatchSize int

	ChunkSize        int
	ChunkOverlap     int
	ChunkingStrategy ChunkingStrategy

	CrawlerMaxDepth           int
	CrawlerMaxPages           int
	CrawlerConcurrentRequests int
	CrawlerRespectRobotsTxt   bool
	CrawlerUserAgent          string
	CrawlerRequestTimeout     time.Duration

	SearchDefaultLimit  int
	SearchMaxLimit      int
	SearchVectorWeight  float64
	SearchKeywordWeight float64
	SearchMinScore      float64

	IngestionFanout            int
	EmbeddingBatchMax          int
	EmbeddingRemoteConcurrency int
}

// defaults mirror the conservative small-deployment defaults implied by spec §5/§6.
func defaults() Config {
	return Config{
		VectorPort:                 6334,
		EmbeddingProvider:          EmbeddingProviderLocal,
		EmbeddingModel:             "local-minilm",
		EmbeddingDimension:         384,
		EmbeddingBatchSize:         32,
		ChunkSize:                  1000,
		ChunkOverlap:               200,
		ChunkingStrategy:           ChunkingSemantic,
		CrawlerMaxDepth:            3,
		CrawlerMaxPages:            100,
		CrawlerConcurrentRequests:  5,
		CrawlerRespectRobotsTxt:    true,
		CrawlerUserAgent:           "docvector-bot/1.0 (+https://github.com/docvector)",
		CrawlerRequestTimeout:      30 * time.Second,
		SearchDefaultLimit:         10,
		SearchMaxLimit:             100,
		SearchVectorWeight:         0.3,
		SearchKeywordWeight:        0.7,
		SearchMinScore:             0.0,
		IngestionFanout:            4,
		EmbeddingBatchMax:          64,
		EmbeddingRemoteConcurrency: 4,
	}
}

const envPrefix = "DOCVECTOR_"

// Load reads configuration from the environment, overlaying a .env file when
// present (godotenv.Overload semantics match the teacher's Load()).
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := defaults()

	cfg.DatabaseURL = getenv("DATABASE_URL")
	cfg.RedisURL = getenv("REDIS_URL")
	cfg.VectorHost = firstNonEmpty(getenv("VECTOR_HOST"), "localhost")

	var err error
	if cfg.VectorPort, err = getint("VECTOR_PORT", cfg.VectorPort); err != nil {
		return Config{}, err
	}

	if v := getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.EmbeddingProvider = EmbeddingProvider(strings.ToLower(v))
	}
	if v := getenv("EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if cfg.EmbeddingDimension, err = getint("EMBEDDING_DIMENSION", cfg.EmbeddingDimension); err != nil {
		return Config{}, err
	}
	if cfg.EmbeddingBatchSize, err = getint("EMBEDDING_BATCH_SIZE", cfg.EmbeddingBatchSize); err != nil {
		return Config{}, err
	}

	if cfg.ChunkSize, err = getint("CHUNK_SIZE", cfg.ChunkSize); err != nil {
		return Config{}, err
	}
	if cfg.ChunkOverlap, err = getint("CHUNK_OVERLAP", cfg.ChunkOverlap); err != nil {
		return Config{}, err
	}
	if v := getenv("CHUNKING_STRATEGY"); v != "" {
		cfg.ChunkingStrategy = ChunkingStrategy(strings.ToLower(v))
	}

	if cfg.CrawlerMaxDepth, err = getint("CRAWLER_MAX_DEPTH", cfg.CrawlerMaxDepth); err != nil {
		return Config{}, err
	}
	if cfg.CrawlerMaxPages, err = getint("CRAWLER_MAX_PAGES", cfg.CrawlerMaxPages); err != nil {
		return Config{}, err
	}
	if cfg.CrawlerConcurrentRequests, err = getint("CRAWLER_CONCURRENT_REQUESTS", cfg.CrawlerConcurrentRequests); err != nil {
		return Config{}, err
	}
	if v := getenv("CRAWLER_RESPECT_ROBOTS_TXT"); v != "" {
		cfg.CrawlerRespectRobotsTxt = isTruthy(v)
	}
	if v := getenv("CRAWLER_USER_AGENT"); v != "" {
		cfg.CrawlerUserAgent = v
	}

	if cfg.SearchDefaultLimit, err = getint("SEARCH_DEFAULT_LIMIT", cfg.SearchDefaultLimit); err != nil {
		return Config{}, err
	}
	if cfg.SearchMaxLimit, err = getint("SEARCH_MAX_LIMIT", cfg.SearchMaxLimit); err != nil {
		return Config{}, err
	}
	if cfg.SearchVectorWeight, err = getfloat("SEARCH_VECTOR_WEIGHT", cfg.SearchVectorWeight); err != nil {
		return Config{}, err
	}
	if cfg.SearchKeywordWeight, err = getfloat("SEARCH_KEYWORD_WEIGHT", cfg.SearchKeywordWeight); err != nil {
		return Config{}, err
	}
	if cfg.SearchMinScore, err = getfloat("SEARCH_MIN_SCORE", cfg.SearchMinScore); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(suffix string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + suffix))
}

func getint(suffix string, fallback int) (int, error) {
	v := getenv(suffix)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", envPrefix, suffix, err)
	}
	return n, nil
}

func getfloat(suffix string, fallback float64) (float64, error) {
	v := getenv(suffix)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", envPrefix, suffix, err)
	}
	return f, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}
