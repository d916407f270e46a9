// Package ingest implements C9: the per-source ingestion pipeline
// (fetch -> dedupe -> parse -> chunk -> extract -> embed -> persist) with a
// per-document partial-failure policy, grounded on the teacher's
// internal/rag/service/service.go Ingest method and internal/rag/ingest's
// stage decomposition.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"docvector/internal/chunker"
	"docvector/internal/codeextract"
	"docvector/internal/docverr"
	"docvector/internal/embedding"
	"docvector/internal/logging"
	"docvector/internal/metrics"
	"docvector/internal/model"
	"docvector/internal/parser"
	"docvector/internal/vectorstore"
)

// EmbedBatchSize is the M of spec §4.9 step 4: chunks are batched to the
// embedding service up to this many at a time.
const EmbedBatchSize = 64

// SourceSyncer is the narrow slice of SourceRepo the orchestrator needs,
// matching internal/search's ChunkGetter pattern (the teacher's
// internal/rag/service.Service keeps one small interface per dependency
// rather than a single fat store) so Orchestrator is unit-testable without
// a live Postgres connection.
type SourceSyncer interface {
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// DocumentStore is the document-repo capability the orchestrator needs.
type DocumentStore interface {
	Create(ctx context.Context, d *model.Document) error
	FindByURL(ctx context.Context, sourceID uuid.UUID, url string) (*model.Document, error)
	ReplaceContent(ctx context.Context, id uuid.UUID, title, content, hash, language, format string) error
	TransitionStatus(ctx context.Context, id uuid.UUID, next model.DocumentStatus, errMsg string) error
	SetChunkCount(ctx context.Context, id uuid.UUID, count int) error
}

// ChunkStore is the chunk-repo capability the orchestrator needs.
type ChunkStore interface {
	CreateBatch(ctx context.Context, documentID uuid.UUID, chunks []*model.Chunk) error
}

// JobStore is the ingestion-job-repo capability the orchestrator needs.
type JobStore interface {
	Transition(ctx context.Context, id uuid.UUID, next model.JobStatus) error
	IncrementCounters(ctx context.Context, id uuid.UUID, processedDelta, failedDelta, chunksDelta int) error
}

// Orchestrator runs the ingestion pipeline for one source at a time.
type Orchestrator struct {
	Sources   SourceSyncer
	Documents DocumentStore
	Chunks    ChunkStore
	Jobs      JobStore
	Vectors   vectorstore.Store
	Embedder  *embedding.Service
	Parser    *parser.Parser
	ChunkCfg  chunker.Config
	Log       logging.Logger

	// FanOut bounds how many documents within this job are processed
	// concurrently (spec §5's "Ingestion fan-out").
	FanOut int

	// ReingestPolicy governs what happens when a fetched URL's content has
	// changed since its last ingest; "" normalizes to ReingestSkipIfUnchanged.
	ReingestPolicy ReingestPolicy

	// Metrics records document/chunk counters and embed-batch latency; nil
	// is valid and disables recording, matching the teacher's nil-safe
	// Metrics field in internal/rag/service.Service.
	Metrics metrics.Metrics
}

func (o *Orchestrator) incCounter(name string, labels map[string]string) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.IncCounter(name, labels)
}

func (o *Orchestrator) observeHistogram(name string, value float64, labels map[string]string) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.ObserveHistogram(name, value, labels)
}

// FetchedDocument is what the crawler hands the orchestrator for one page.
type FetchedDocument struct {
	URL      string
	Format   string // "html" or "markdown"
	Body     []byte
	FetchedAt time.Time
}

// Run processes the pages in fetched against one source under one job,
// implementing spec §4.9's per-document pipeline and partial-failure
// policy. accessLevel tags every chunk produced by this call ("public" or
// "private"; "" is normalized to "private"), matching the original's
// ingest_source/ingest_url access_level parameter
// (original_source/api/routes/ingestion.py). It returns the first
// unexpected (non-per-document) error; normal per-document failures are
// absorbed into the job's counters.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID, source *model.Source, fetched []FetchedDocument, accessLevel string) error {
	accessLevel = normalizeAccessLevel(accessLevel)

	if err := o.Jobs.Transition(ctx, jobID, model.JobRunning); err != nil {
		return err
	}

	sem := make(chan struct{}, fanOut(o.FanOut))
	errCh := make(chan error, len(fetched))
	doneCh := make(chan struct{}, len(fetched))

	for _, fd := range fetched {
		select {
		case <-ctx.Done():
			return o.finishCancelled(ctx, jobID)
		default:
		}

		sem <- struct{}{}
		go func(fd FetchedDocument) {
			defer func() { <-sem; doneCh <- struct{}{} }()
			processed, chunkCount, err := o.processDocument(ctx, source, fd, accessLevel)
			if err != nil {
				o.logFailure(fd.URL, err)
				o.incCounter("docvector_documents_failed_total", map[string]string{"source_id": source.ID.String()})
				errCh <- o.Jobs.IncrementCounters(ctx, jobID, 0, 1, 0)
				return
			}
			if processed {
				o.incCounter("docvector_documents_processed_total", map[string]string{"source_id": source.ID.String()})
				o.observeHistogram("docvector_document_chunk_count", float64(chunkCount), map[string]string{"source_id": source.ID.String()})
				errCh <- o.Jobs.IncrementCounters(ctx, jobID, 1, 0, chunkCount)
			}
		}(fd)
	}

	for range fetched {
		<-doneCh
	}
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}

	if err := o.Sources.MarkSynced(ctx, source.ID, time.Now()); err != nil {
		return err
	}
	return o.Jobs.Transition(ctx, jobID, model.JobCompleted)
}

func fanOut(n int) int {
	if n <= 0 {
		return 4
	}
	return n
}

// normalizeAccessLevel defaults to "private" per the original's field
// default (Field("private", pattern="^(public|private)$")); any value other
// than "public" is treated as private.
func normalizeAccessLevel(level string) string {
	if level == "public" {
		return "public"
	}
	return "private"
}

func (o *Orchestrator) finishCancelled(ctx context.Context, jobID uuid.UUID) error {
	return o.Jobs.Transition(ctx, jobID, model.JobCancelled)
}

func (o *Orchestrator) logFailure(url string, err error) {
	if o.Log == nil {
		return
	}
	o.Log.Error("document ingestion failed", map[string]any{"url": url, "error": err.Error()})
}

// processDocument runs one document through the full pipeline. The bool
// return reports whether the document was newly processed (false on dedupe
// skip, so the job's processed_documents counter is not double-incremented).
func (o *Orchestrator) processDocument(ctx context.Context, source *model.Source, fd FetchedDocument, accessLevel string) (bool, int, error) {
	var parsed *parser.ParsedDocument
	var err error
	switch fd.Format {
	case "markdown":
		parsed, err = o.Parser.ParseMarkdown(fd.Body, fd.URL)
	default:
		parsed, err = o.Parser.ParseHTML(fd.Body, fd.URL)
	}
	if err != nil {
		return false, 0, docverr.Wrap(docverr.CodeProcessing, "parse failed", err)
	}

	hash := contentHash(parsed.Markdown)

	decision, err := ResolveIdempotency(ctx, o.Documents, source.ID, fd.URL, hash, o.ReingestPolicy)
	if err != nil {
		return false, 0, err
	}

	var doc *model.Document
	switch decision.Action {
	case "skip":
		return false, 0, nil
	case "overwrite":
		doc = decision.Existing
		if err := o.Documents.ReplaceContent(ctx, doc.ID, parsed.Title, parsed.Markdown, hash, parsed.Language, parsed.Format); err != nil {
			return false, 0, err
		}
		doc.Title, doc.Content, doc.ContentHash = parsed.Title, parsed.Markdown, hash
		doc.Language, doc.Format = parsed.Language, parsed.Format
	default: // "create" or "new_version"
		doc = &model.Document{
			SourceID:         source.ID,
			URL:              fd.URL,
			ContentHash:      hash,
			Title:            parsed.Title,
			Content:          parsed.Markdown,
			Language:         parsed.Language,
			Format:           parsed.Format,
			Status:           model.DocumentPending,
			ChunkingStrategy: string(o.ChunkCfg.Strategy),
		}
		if decision.Action == "new_version" {
			doc.Version = decision.Existing.Version + 1
		}
		if err := o.Documents.Create(ctx, doc); err != nil {
			return false, 0, err
		}
	}
	if err := o.Documents.TransitionStatus(ctx, doc.ID, model.DocumentProcessing, ""); err != nil {
		return false, 0, err
	}

	chunkCount, err := o.ingestChunks(ctx, doc, source, parsed, accessLevel)
	if err != nil {
		_ = o.Documents.TransitionStatus(ctx, doc.ID, model.DocumentFailed, err.Error())
		return false, 0, err
	}

	if err := o.Documents.SetChunkCount(ctx, doc.ID, chunkCount); err != nil {
		return false, 0, err
	}
	if err := o.Documents.TransitionStatus(ctx, doc.ID, model.DocumentCompleted, ""); err != nil {
		return false, 0, err
	}
	return true, chunkCount, nil
}

// ingestChunks chunks, extracts code snippets per-chunk, embeds in batches
// of EmbedBatchSize, upserts to the vector index, then persists the chunk
// rows with their vector ids — vector-first, relational-second, per spec
// §5's ordering invariant (a crash here leaves an orphan vector, never a
// dangling chunk reference; internal/ingest/reconcile.go sweeps orphans).
func (o *Orchestrator) ingestChunks(ctx context.Context, doc *model.Document, source *model.Source, parsed *parser.ParsedDocument, accessLevel string) (int, error) {
	rawChunks := chunker.Chunk(parsed.Markdown, o.ChunkCfg)
	if len(rawChunks) == 0 {
		return 0, nil
	}

	snippets := codeextract.ExtractFromMarkdown(parsed.Markdown)

	chunks := make([]*model.Chunk, len(rawChunks))
	texts := make([]string, len(rawChunks))
	for i, rc := range rawChunks {
		c := &model.Chunk{
			ID:             model.NewID(),
			DocumentID:     doc.ID,
			Index:          rc.Index,
			Text:           rc.Text,
			StartChar:      rc.StartChar,
			EndChar:        rc.EndChar,
			AccessLevel:    accessLevel,
			EmbeddingModel: o.Embedder.Name(),
		}
		if snip := overlappingSnippet(snippets, rc.StartChar, rc.EndChar); snip != nil {
			c.IsCodeSnippet = true
			c.CodeLanguage = snip.Language
			c.CodeQualityScore = snip.CodeQualityScore
			c.FormattingScore = snip.FormattingScore
			c.MetadataScore = snip.MetadataScore
			c.InitializationScore = snip.InitializationScore
		}
		chunks[i] = c
		texts[i] = rc.Text
	}

	for start := 0; start < len(chunks); start += EmbedBatchSize {
		end := start + EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		embedStart := time.Now()
		vecs, err := o.Embedder.EmbedBatch(ctx, texts[start:end])
		o.observeHistogram("docvector_embed_batch_seconds", time.Since(embedStart).Seconds(), map[string]string{"source_id": source.ID.String()})
		if err != nil {
			return 0, docverr.Wrap(docverr.CodeEmbedding, "embed batch failed", err)
		}

		points := make([]vectorstore.Point, len(batch))
		for i, c := range batch {
			points[i] = vectorstore.Point{
				ID:     c.ID.String(),
				Vector: vecs[i],
				Metadata: map[string]any{
					"chunk_id":     c.ID.String(),
					"document_id":  doc.ID.String(),
					"source_id":    doc.SourceID.String(),
					"chunk_index":  c.Index,
					"content":      c.Text,
					"title":        doc.Title,
					"url":          doc.URL,
					"language":     c.CodeLanguage,
					"access_level": c.AccessLevel,
					"topics":       c.Topics,
					"version":      source.Version,
				},
			}
		}
		if err := o.Vectors.Upsert(ctx, points); err != nil {
			return 0, docverr.Wrap(docverr.CodeEmbedding, "vector upsert failed", err)
		}

		now := time.Now()
		for _, c := range batch {
			c.EmbeddingID = c.ID.String()
			c.EmbeddedAt = &now
		}
	}

	if err := o.Chunks.CreateBatch(ctx, doc.ID, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func overlappingSnippet(snippets []codeextract.Snippet, start, end int) *codeextract.Snippet {
	for i := range snippets {
		s := &snippets[i]
		if s.StartChar < end && s.EndChar > start {
			return s
		}
	}
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
