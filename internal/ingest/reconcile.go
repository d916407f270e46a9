package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docvector/internal/model"
	"docvector/internal/vectorstore"
)

// staleProcessingThreshold is how long a Document may sit in `processing`
// before the reconciliation sweep assumes the worker that owned it died and
// marks it failed.
const staleProcessingThreshold = 30 * time.Minute

// Reconciler implements spec §7's periodic sweep: orphan vector cleanup and
// marking stuck documents failed. Grounded directly on the spec's own §7 text —
// original_source's ingestion/base.py has no equivalent, so this is new to
// the Go distillation rather than ported from the original.
type Reconciler struct {
	Documents DocumentLister
	Vectors   vectorstore.Store
}

// DocumentLister is the narrow read capability the reconciler needs.
type DocumentLister interface {
	ListBySource(ctx context.Context, sourceID uuid.UUID, status model.DocumentStatus) ([]*model.Document, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, next model.DocumentStatus, errMsg string) error
}

// SweepOrphanVectors deletes vectors for chunk ids the caller has already
// determined no longer exist in the relational store. Vector point ids are
// Chunk ids (internal/ingest.ingestChunks upserts one point per Chunk), so
// candidateExists maps a candidate chunk id to whether ChunkRepo.GetByID
// still finds it; entries with a false value are deleted from the vector
// index. sourceID only scopes the initial existence check (the caller
// assembles candidateExists from whatever chunk ids it has observed in
// vector payloads for that source — the Store interface doesn't expose its
// own enumeration beyond Count/Get/Search).
func (r *Reconciler) SweepOrphanVectors(ctx context.Context, sourceID uuid.UUID, candidateExists map[uuid.UUID]bool) error {
	count, err := r.Vectors.Count(ctx, vectorstore.Filter{"source_id": sourceID.String()})
	if err != nil {
		return fmt.Errorf("ingest: count vectors for reconciliation: %w", err)
	}
	if count == 0 {
		return nil
	}

	for chunkID, exists := range candidateExists {
		if exists {
			continue
		}
		if err := r.Vectors.Delete(ctx, []string{chunkID.String()}); err != nil {
			return fmt.Errorf("ingest: delete orphan vector for chunk %s: %w", chunkID, err)
		}
	}
	return nil
}

// RequeueStaleDocuments marks Documents stuck in `processing` past
// staleProcessingThreshold as `failed` with a diagnostic message and returns
// how many it marked. It does not enqueue them or start any processing;
// `failed -> processing` is a legal transition, so a later run may retry them.
func (r *Reconciler) RequeueStaleDocuments(ctx context.Context, sourceID uuid.UUID, now time.Time) (int, error) {
	docs, err := r.Documents.ListBySource(ctx, sourceID, model.DocumentProcessing)
	if err != nil {
		return 0, fmt.Errorf("ingest: list processing documents: %w", err)
	}

	requeued := 0
	for _, d := range docs {
		if d.UpdatedAt.After(now.Add(-staleProcessingThreshold)) {
			continue
		}
		if err := r.Documents.TransitionStatus(ctx, d.ID, model.DocumentFailed, "reconciliation: stale in processing"); err != nil {
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}
