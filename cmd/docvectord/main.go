// Command docvectord wires C1-C11 together behind two subcommands, ingest
// and search, standing in for the HTTP layer a real deployment would put in
// front of the library (see SPEC_FULL.md's scope note). Flag-set-per-command
// dispatch and log.Fatalf error handling follow cmd/embedctl's style.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"docvector/internal/chunker"
	"docvector/internal/config"
	"docvector/internal/crawler"
	"docvector/internal/crawler/robots"
	"docvector/internal/docverr"
	"docvector/internal/embedding"
	"docvector/internal/ingest"
	"docvector/internal/logging"
	"docvector/internal/metrics"
	"docvector/internal/model"
	"docvector/internal/parser"
	"docvector/internal/rerank"
	"docvector/internal/search"
	"docvector/internal/store"
	"docvector/internal/vectorstore"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		log.Fatal("usage: docvectord <ingest|search> [flags]")
	}

	switch os.Args[1] {
	case "ingest":
		runIngest(os.Args[2:])
	case "search":
		runSearch(os.Args[2:])
	default:
		log.Fatalf("unknown subcommand %q; want ingest or search", os.Args[1])
	}
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var (
		name           = fs.String("name", "", "source name")
		startURL       = fs.String("url", "", "start URL to crawl")
		maxPages       = fs.Int("max-pages", 0, "override crawler max pages (0 = config default)")
		jobType        = fs.String("job-type", string(model.JobManual), "ingestion_jobs.job_type")
		pattern        = fs.String("pattern", "*", "URL glob pattern admitted by the crawler")
		accessLevel    = fs.String("access-level", "private", "access level stamped on every ingested chunk: public or private")
		reingestPolicy = fs.String("reingest-policy", string(ingest.ReingestSkipIfUnchanged), "skip_if_unchanged, overwrite, or new_version")
	)
	fs.Parse(args)

	if *name == "" || *startURL == "" {
		log.Fatal("ingest: -name and -url are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ingest: load config: %v", err)
	}
	logger := logging.New("info")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := store.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ingest: open store pool: %v", err)
	}
	defer pool.Close()
	deps := wireStore(pool)

	vecStore, err := wireVectorStore(ctx, cfg)
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	defer vecStore.Close()

	source := &model.Source{
		Name:          *name,
		Kind:          model.SourceKindWeb,
		Status:        model.SourceActive,
		SyncFrequency: 24 * time.Hour,
		Config:        map[string]any{"start_url": *startURL},
	}
	if err := deps.sources.Create(ctx, source); err != nil {
		if code, ok := docverr.CodeOf(err); ok && code == docverr.CodeSourceExists {
			log.Fatalf("ingest: source %q already exists", *name)
		}
		log.Fatalf("ingest: create source: %v", err)
	}

	pages, err := crawlSource(ctx, cfg, *startURL, *maxPages, *pattern)
	if err != nil {
		log.Fatalf("ingest: crawl: %v", err)
	}
	logger.Info("crawl complete", map[string]any{"source": *name, "pages": len(pages)})

	job := &model.IngestionJob{
		SourceID:       &source.ID,
		JobType:        model.JobType(*jobType),
		TotalDocuments: len(pages),
	}
	if err := deps.jobs.Create(ctx, job); err != nil {
		log.Fatalf("ingest: create job: %v", err)
	}

	orch := &ingest.Orchestrator{
		Sources:   deps.sources,
		Documents: deps.documents,
		Chunks:    deps.chunks,
		Jobs:      deps.jobs,
		Vectors:   vecStore,
		Embedder:  wireEmbedder(cfg),
		Parser:    parser.New(),
		ChunkCfg: chunker.Config{
			Strategy: chunker.Strategy(cfg.ChunkingStrategy),
			Size:     cfg.ChunkSize,
			Overlap:  cfg.ChunkOverlap,
		},
		Log:            logger,
		FanOut:         cfg.IngestionFanout,
		ReingestPolicy: ingest.ReingestPolicy(*reingestPolicy),
		Metrics:        metrics.NewOtelMetrics("docvector_ingest"),
	}

	if err := orch.Run(ctx, job.ID, source, toFetchedDocuments(pages), *accessLevel); err != nil {
		log.Fatalf("ingest: run: %v", err)
	}

	logger.Info("ingestion job finished", map[string]any{"source": *name, "job_id": job.ID.String()})
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var (
		query     = fs.String("query", "", "search query")
		limit     = fs.Int("limit", 0, "result limit (0 = config default)")
		doRerank  = fs.Bool("rerank", true, "apply multi-stage reranking")
		maxTokens = fs.Int("max-tokens", 0, "pack results into this token budget (0 = no packing)")
	)
	fs.Parse(args)

	if *query == "" {
		log.Fatal("search: -query is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("search: load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := store.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("search: open store pool: %v", err)
	}
	defer pool.Close()
	deps := wireStore(pool)

	vecStore, err := wireVectorStore(ctx, cfg)
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	defer vecStore.Close()

	orch := &search.Orchestrator{
		Embedder: wireEmbedder(cfg),
		Vectors:  vecStore,
		Chunks:   deps.chunks,
		Reranker: rerank.New(rerank.DefaultWeights()),
		Metrics:  metrics.NewOtelMetrics("docvector_search"),
	}

	req := search.Request{
		Query:        *query,
		Limit:        *limit,
		UseReranking: *doRerank,
		MaxTokens:    *maxTokens,
	}
	if req.Limit <= 0 {
		req.Limit = cfg.SearchDefaultLimit
	}
	if req.Limit > cfg.SearchMaxLimit {
		req.Limit = cfg.SearchMaxLimit
	}

	hits, err := orch.Search(ctx, req)
	if err != nil {
		log.Fatalf("search: %v", err)
	}

	for i, h := range hits {
		fmt.Printf("%d. [%.4f] %s\n%s\n\n", i+1, h.Score, h.Title, h.Content)
	}
}

// storeDeps bundles the per-request repos built from one pool, matching the
// set of narrow interfaces internal/ingest and internal/search depend on.
type storeDeps struct {
	sources   *store.SourceRepo
	documents *store.DocumentRepo
	chunks    *store.ChunkRepo
	jobs      *store.IngestionJobRepo
}

func wireStore(pool *pgxpool.Pool) *storeDeps {
	return &storeDeps{
		sources:   store.NewSourceRepo(pool),
		documents: store.NewDocumentRepo(pool),
		chunks:    store.NewChunkRepo(pool),
		jobs:      store.NewIngestionJobRepo(pool),
	}
}

func wireVectorStore(ctx context.Context, cfg config.Config) (vectorstore.Store, error) {
	dsn := fmt.Sprintf("http://%s:%d", cfg.VectorHost, cfg.VectorPort)
	s, err := vectorstore.NewQdrantStore(ctx, dsn, "docvector_chunks", cfg.EmbeddingDimension, "cosine")
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return s, nil
}

func wireEmbedder(cfg config.Config) *embedding.Service {
	var provider embedding.Provider
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderOpenAI:
		provider = embedding.NewRemoteProvider(embedding.RemoteConfig{
			BaseURL:   "https://api.openai.com",
			Path:      "/v1/embeddings",
			Model:     cfg.EmbeddingModel,
			Dimension: cfg.EmbeddingDimension,
			APIKey:    os.Getenv("DOCVECTOR_EMBEDDING_API_KEY"),
			APIHeader: "Authorization",
		})
	default:
		provider = embedding.NewLocalProvider(cfg.EmbeddingDimension)
	}

	return embedding.NewService(provider, wireCache(cfg), cfg.EmbeddingBatchSize)
}

// wireCache builds the two-tier embedding cache when Redis is configured,
// falling back to the process-local tier alone otherwise.
func wireCache(cfg config.Config) embedding.Cache {
	local := embedding.NewMemoryCache()
	if cfg.RedisURL == "" {
		return local
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("warn: parse REDIS_URL: %v; embedding cache is memory-only", err)
		return local
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("warn: ping redis: %v; embedding cache is memory-only", err)
		return local
	}
	return embedding.NewTwoTier(local, embedding.NewRedisCache(client, embedding.DefaultCacheTTL))
}

func crawlSource(ctx context.Context, cfg config.Config, startURL string, maxPagesOverride int, pattern string) ([]crawler.Page, error) {
	fetcher := crawler.NewFetcher(cfg.CrawlerUserAgent, cfg.CrawlerRequestTimeout, 5, 10<<20)
	robotsCache := robots.New(nil, cfg.CrawlerUserAgent, time.Hour)
	c := crawler.New(fetcher, robotsCache)

	maxPages := cfg.CrawlerMaxPages
	if maxPagesOverride > 0 {
		maxPages = maxPagesOverride
	}

	return c.Crawl(ctx, crawler.Config{
		StartURL:           startURL,
		MaxDepth:           cfg.CrawlerMaxDepth,
		MaxPages:           maxPages,
		ConcurrentRequests: cfg.CrawlerConcurrentRequests,
		RespectRobotsTxt:   cfg.CrawlerRespectRobotsTxt,
		UserAgent:          cfg.CrawlerUserAgent,
		Pattern:            pattern,
	})
}

func toFetchedDocuments(pages []crawler.Page) []ingest.FetchedDocument {
	out := make([]ingest.FetchedDocument, len(pages))
	for i, p := range pages {
		format := "html"
		if strings.HasSuffix(p.URL, ".md") || strings.HasSuffix(p.URL, ".markdown") {
			format = "markdown"
		}
		out[i] = ingest.FetchedDocument{
			URL:       p.URL,
			Format:    format,
			Body:      p.Body,
			FetchedAt: time.Now(),
		}
	}
	return out
}
