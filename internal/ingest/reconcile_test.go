package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docvector/internal/model"
	"docvector/internal/vectorstore"
)

func TestSweepOrphanVectorsDeletesOnlyMissingChunks(t *testing.T) {
	t.Parallel()

	vec := vectorstore.NewMemoryStore()
	sourceID := model.NewID()
	keptChunk := model.NewID()
	orphanChunk := model.NewID()

	require.NoError(t, vec.Upsert(context.Background(), []vectorstore.Point{
		{ID: keptChunk.String(), Vector: []float32{1, 0}, Metadata: map[string]any{"source_id": sourceID.String()}},
		{ID: orphanChunk.String(), Vector: []float32{0, 1}, Metadata: map[string]any{"source_id": sourceID.String()}},
	}))

	r := &Reconciler{Vectors: vec}
	err := r.SweepOrphanVectors(context.Background(), sourceID, map[uuid.UUID]bool{
		keptChunk:   true,
		orphanChunk: false,
	})

	require.NoError(t, err)
	n, err := vec.Count(context.Background(), vectorstore.Filter{"source_id": sourceID.String()})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

type fakeDocumentLister struct {
	docs []*model.Document
	now  map[uuid.UUID]model.DocumentStatus
}

func (f *fakeDocumentLister) ListBySource(_ context.Context, _ uuid.UUID, status model.DocumentStatus) ([]*model.Document, error) {
	var out []*model.Document
	for _, d := range f.docs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocumentLister) TransitionStatus(_ context.Context, id uuid.UUID, next model.DocumentStatus, _ string) error {
	if f.now == nil {
		f.now = map[uuid.UUID]model.DocumentStatus{}
	}
	f.now[id] = next
	return nil
}

func TestRequeueStaleDocumentsFailsOnlyThosePastThreshold(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	fresh := &model.Document{ID: model.NewID(), Status: model.DocumentProcessing, UpdatedAt: now.Add(-5 * time.Minute)}
	stale := &model.Document{ID: model.NewID(), Status: model.DocumentProcessing, UpdatedAt: now.Add(-time.Hour)}

	lister := &fakeDocumentLister{docs: []*model.Document{fresh, stale}}
	r := &Reconciler{Documents: lister}

	n, err := r.RequeueStaleDocuments(context.Background(), model.NewID(), now)

	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, model.DocumentFailed, lister.now[stale.ID])
	_, freshTouched := lister.now[fresh.ID]
	require.False(t, freshTouched)
}
