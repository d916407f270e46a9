package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docvector/internal/chunker"
	"docvector/internal/codeextract"
	"docvector/internal/docverr"
	"docvector/internal/embedding"
	"docvector/internal/metrics"
	"docvector/internal/model"
	"docvector/internal/parser"
	"docvector/internal/vectorstore"
)

// fakeSources/fakeDocuments/fakeChunks/fakeJobs are minimal in-memory
// doubles for the narrow interfaces Orchestrator depends on, following the
// same approach as internal/search's fakeChunkStore: exercise the
// orchestration logic without a live Postgres connection.

type fakeSources struct {
	mu     sync.Mutex
	synced map[uuid.UUID]time.Time
}

func newFakeSources() *fakeSources { return &fakeSources{synced: map[uuid.UUID]time.Time{}} }

func (f *fakeSources) MarkSynced(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced[id] = at
	return nil
}

type fakeDocuments struct {
	mu         sync.Mutex
	byURL      map[string]*model.Document
	byID       map[uuid.UUID]*model.Document
	chunkCount map[uuid.UUID]int
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{
		byURL:      map[string]*model.Document{},
		byID:       map[uuid.UUID]*model.Document{},
		chunkCount: map[uuid.UUID]int{},
	}
}

func (f *fakeDocuments) Create(_ context.Context, d *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = model.NewID()
	}
	if d.Status == "" {
		d.Status = model.DocumentPending
	}
	if d.Version == 0 {
		d.Version = 1
	}
	f.byID[d.ID] = d
	f.byURL[d.SourceID.String()+"|"+d.URL] = d
	return nil
}

func (f *fakeDocuments) FindByURL(_ context.Context, sourceID uuid.UUID, url string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byURL[sourceID.String()+"|"+url]
	if !ok {
		return nil, docverr.ErrNotFound
	}
	return d, nil
}

func (f *fakeDocuments) ReplaceContent(_ context.Context, id uuid.UUID, title, content, hash, language, format string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return docverr.ErrNotFound
	}
	d.Title, d.Content, d.ContentHash = title, content, hash
	d.Language, d.Format = language, format
	d.Status = model.DocumentPending
	d.ErrorMessage = ""
	return nil
}

func (f *fakeDocuments) TransitionStatus(_ context.Context, id uuid.UUID, next model.DocumentStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return docverr.ErrNotFound
	}
	if !d.Status.CanTransition(next) {
		return docverr.New(docverr.CodeValidation, "illegal document transition")
	}
	d.Status = next
	d.ErrorMessage = errMsg
	return nil
}

func (f *fakeDocuments) SetChunkCount(_ context.Context, id uuid.UUID, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkCount[id] = count
	return nil
}

type fakeChunks struct {
	mu      sync.Mutex
	batches map[uuid.UUID][]*model.Chunk
}

func newFakeChunks() *fakeChunks { return &fakeChunks{batches: map[uuid.UUID][]*model.Chunk{}} }

func (f *fakeChunks) CreateBatch(_ context.Context, documentID uuid.UUID, chunks []*model.Chunk) error {
	for i, c := range chunks {
		if c.Index != i {
			return docverr.New(docverr.CodeValidation, "chunk index gap")
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[documentID] = chunks
	return nil
}

type fakeJobs struct {
	mu                             sync.Mutex
	status                         model.JobStatus
	processed, failed, totalChunks int
}

func newFakeJobs() *fakeJobs { return &fakeJobs{status: model.JobPending} }

func (f *fakeJobs) Transition(_ context.Context, _ uuid.UUID, next model.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.status.CanTransition(next) {
		return docverr.New(docverr.CodeValidation, "illegal job transition")
	}
	f.status = next
	return nil
}

func (f *fakeJobs) IncrementCounters(_ context.Context, _ uuid.UUID, processedDelta, failedDelta, chunksDelta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed += processedDelta
	f.failed += failedDelta
	f.totalChunks += chunksDelta
	return nil
}

func newTestOrchestrator() (*Orchestrator, *fakeDocuments, *fakeChunks, *fakeJobs) {
	docs := newFakeDocuments()
	chunks := newFakeChunks()
	jobs := newFakeJobs()
	provider := embedding.NewLocalProvider(16)
	o := &Orchestrator{
		Sources:   newFakeSources(),
		Documents: docs,
		Chunks:    chunks,
		Jobs:      jobs,
		Vectors:   vectorstore.NewMemoryStore(),
		Embedder:  embedding.NewService(provider, nil, 8),
		Parser:    parser.New(),
		ChunkCfg:  chunker.Config{Strategy: chunker.StrategyFixed, Size: 200, Overlap: 20},
		FanOut:    2,
		Metrics:   metrics.NewMock(),
	}
	return o, docs, chunks, jobs
}

func TestRunIngestsNewDocumentsAndCompletesJob(t *testing.T) {
	t.Parallel()

	o, docs, chunks, jobs := newTestOrchestrator()
	source := &model.Source{ID: model.NewID(), Name: "example"}
	jobID := model.NewID()

	fetched := []FetchedDocument{
		{URL: "https://example.com/a", Format: "markdown", Body: []byte("# A\n\nSome introductory content about the library."), FetchedAt: time.Now()},
		{URL: "https://example.com/b", Format: "markdown", Body: []byte("# B\n\nA different page entirely about something else."), FetchedAt: time.Now()},
	}

	err := o.Run(context.Background(), jobID, source, fetched, "public")

	require.NoError(t, err)
	require.Equal(t, model.JobCompleted, jobs.status)
	require.Equal(t, 2, jobs.processed)
	require.Equal(t, 0, jobs.failed)
	require.Len(t, docs.byID, 2)
	for id, d := range docs.byID {
		require.Equal(t, model.DocumentCompleted, d.Status)
		require.NotEmpty(t, chunks.batches[id])
		for _, c := range chunks.batches[id] {
			require.Equal(t, "public", c.AccessLevel)
		}
	}

	mock := o.Metrics.(*metrics.Mock)
	require.Equal(t, 2, mock.Counters["docvector_documents_processed_total"])
}

func TestRunVectorPayloadCarriesRequiredFieldsAndFiltersByAccessLevel(t *testing.T) {
	t.Parallel()

	o, docs, _, _ := newTestOrchestrator()
	source := &model.Source{ID: model.NewID(), Name: "example", Version: "v1"}
	jobID := model.NewID()

	fetched := []FetchedDocument{
		{URL: "https://example.com/a", Format: "markdown", Body: []byte("# A\n\nPublic content about the library."), FetchedAt: time.Now()},
	}
	require.NoError(t, o.Run(context.Background(), jobID, source, fetched, "public"))

	var docID uuid.UUID
	for id := range docs.byID {
		docID = id
	}
	store := o.Vectors.(*vectorstore.MemoryStore)

	results, err := store.Search(context.Background(), make([]float32, 16), 10, vectorstore.Filter{
		"access_level": "public",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results, "search filtered by access_level=public must return the ingested chunk")

	md := results[0].Metadata
	require.NotEmpty(t, md["chunk_id"])
	require.Equal(t, docID.String(), md["document_id"])
	require.NotEmpty(t, md["content"])
	require.Equal(t, "public", md["access_level"])
	require.Equal(t, "v1", md["version"])

	noHits, err := store.Search(context.Background(), make([]float32, 16), 10, vectorstore.Filter{
		"access_level": "private",
	})
	require.NoError(t, err)
	require.Empty(t, noHits, "a public chunk must not match an access_level=private filter")
}

func TestRunSkipsDuplicateContentByHash(t *testing.T) {
	t.Parallel()

	o, docs, _, jobs := newTestOrchestrator()
	source := &model.Source{ID: model.NewID(), Name: "example"}

	body := []byte("# Same\n\nIdentical content across two fetches of the same page.")
	firstJob := model.NewID()
	require.NoError(t, o.Run(context.Background(), firstJob, source, []FetchedDocument{
		{URL: "https://example.com/same", Format: "markdown", Body: body, FetchedAt: time.Now()},
	}, "private"))
	require.Len(t, docs.byID, 1)
	require.Equal(t, 1, jobs.processed)

	// A second job over the same content must not re-create a document or
	// bump the processed counter (spec §4.9's content-hash dedupe).
	jobs.status = model.JobPending
	secondJob := model.NewID()
	require.NoError(t, o.Run(context.Background(), secondJob, source, []FetchedDocument{
		{URL: "https://example.com/same", Format: "markdown", Body: body, FetchedAt: time.Now()},
	}, "private"))

	require.Len(t, docs.byID, 1, "duplicate content must not create a second document")
	require.Equal(t, 1, jobs.processed, "dedupe skip must not increment processed_documents")
}

func TestRunOverwritePolicyReplacesChangedContentInPlace(t *testing.T) {
	t.Parallel()

	o, docs, _, jobs := newTestOrchestrator()
	o.ReingestPolicy = ReingestOverwrite
	source := &model.Source{ID: model.NewID(), Name: "example"}
	url := "https://example.com/changing"

	require.NoError(t, o.Run(context.Background(), model.NewID(), source, []FetchedDocument{
		{URL: url, Format: "markdown", Body: []byte("# V1\n\nOriginal content about the library."), FetchedAt: time.Now()},
	}, "private"))
	require.Len(t, docs.byID, 1)

	var firstID uuid.UUID
	for id := range docs.byID {
		firstID = id
	}

	jobs.status = model.JobPending
	require.NoError(t, o.Run(context.Background(), model.NewID(), source, []FetchedDocument{
		{URL: url, Format: "markdown", Body: []byte("# V2\n\nCompletely different content about the library."), FetchedAt: time.Now()},
	}, "private"))

	require.Len(t, docs.byID, 1, "overwrite must reuse the existing document row, not create a second one")
	require.Equal(t, firstID, func() uuid.UUID {
		for id := range docs.byID {
			return id
		}
		return uuid.Nil
	}())
	require.Contains(t, docs.byID[firstID].Content, "Completely different")
}

func TestRunNewVersionPolicyKeepsBothDocuments(t *testing.T) {
	t.Parallel()

	o, docs, _, jobs := newTestOrchestrator()
	o.ReingestPolicy = ReingestNewVersion
	source := &model.Source{ID: model.NewID(), Name: "example"}
	url := "https://example.com/versioned"

	require.NoError(t, o.Run(context.Background(), model.NewID(), source, []FetchedDocument{
		{URL: url, Format: "markdown", Body: []byte("# V1\n\nOriginal content about the library."), FetchedAt: time.Now()},
	}, "private"))
	require.Len(t, docs.byID, 1)

	jobs.status = model.JobPending
	require.NoError(t, o.Run(context.Background(), model.NewID(), source, []FetchedDocument{
		{URL: url, Format: "markdown", Body: []byte("# V2\n\nCompletely different content about the library."), FetchedAt: time.Now()},
	}, "private"))

	require.Len(t, docs.byID, 2, "new_version must keep the old document and add a new one")
	versions := map[int]bool{}
	for _, d := range docs.byID {
		versions[d.Version] = true
	}
	require.True(t, versions[1] && versions[2], "expected documents at version 1 and 2, got %v", versions)
}

func TestRunCancelledBeforeStartTransitionsJobToCancelled(t *testing.T) {
	t.Parallel()

	o, _, _, jobs := newTestOrchestrator()
	source := &model.Source{ID: model.NewID(), Name: "example"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Run(ctx, model.NewID(), source, []FetchedDocument{
		{URL: "https://example.com/a", Format: "markdown", Body: []byte("# A\n\ncontent"), FetchedAt: time.Now()},
	}, "private")

	require.NoError(t, err)
	require.Equal(t, model.JobCancelled, jobs.status)
}

func TestOverlappingSnippetMatchesOnCharRangeIntersection(t *testing.T) {
	t.Parallel()

	snippets := []codeextract.Snippet{{StartChar: 10, EndChar: 20}}
	snip := overlappingSnippet(snippets, 15, 25)
	require.NotNil(t, snip)

	miss := overlappingSnippet(snippets, 30, 40)
	require.Nil(t, miss)
}
