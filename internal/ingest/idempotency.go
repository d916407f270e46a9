package ingest

import (
	"context"

	"github.com/google/uuid"

	"docvector/internal/docverr"
	"docvector/internal/model"
)

// ReingestPolicy controls what happens when a fetch for a URL that already
// has a document disagrees with the stored content_hash, grounded on the
// teacher's internal/rag/ingest/idempotency.go ReingestPolicy/
// ResolveIdempotency pair.
type ReingestPolicy string

const (
	// ReingestSkipIfUnchanged is the default: unchanged content is skipped,
	// changed content overwrites the existing document in place.
	ReingestSkipIfUnchanged ReingestPolicy = "skip_if_unchanged"
	// ReingestOverwrite always overwrites the existing document in place,
	// even when content_hash hasn't changed (forces reprocessing).
	ReingestOverwrite ReingestPolicy = "overwrite"
	// ReingestNewVersion keeps the existing document and creates a new,
	// separately versioned document row for the changed content.
	ReingestNewVersion ReingestPolicy = "new_version"
)

func normalizeReingestPolicy(p ReingestPolicy) ReingestPolicy {
	switch p {
	case ReingestOverwrite, ReingestNewVersion:
		return p
	default:
		return ReingestSkipIfUnchanged
	}
}

// DocumentFinder is the lookup capability ResolveIdempotency needs.
type DocumentFinder interface {
	FindByURL(ctx context.Context, sourceID uuid.UUID, url string) (*model.Document, error)
}

// IdempotencyDecision is what the orchestrator should do with one fetch.
type IdempotencyDecision struct {
	Action   string // "create", "skip", "overwrite", "new_version"
	Existing *model.Document
}

// ResolveIdempotency decides the fetch's fate from the policy and whatever
// document already exists at this URL for this source.
func ResolveIdempotency(ctx context.Context, finder DocumentFinder, sourceID uuid.UUID, url, hash string, policy ReingestPolicy) (IdempotencyDecision, error) {
	existing, err := finder.FindByURL(ctx, sourceID, url)
	if err == docverr.ErrNotFound {
		return IdempotencyDecision{Action: "create"}, nil
	}
	if err != nil {
		return IdempotencyDecision{}, err
	}

	unchanged := existing.ContentHash == hash
	switch normalizeReingestPolicy(policy) {
	case ReingestOverwrite:
		return IdempotencyDecision{Action: "overwrite", Existing: existing}, nil
	case ReingestNewVersion:
		if unchanged {
			return IdempotencyDecision{Action: "skip", Existing: existing}, nil
		}
		return IdempotencyDecision{Action: "new_version", Existing: existing}, nil
	default: // skip_if_unchanged
		if unchanged {
			return IdempotencyDecision{Action: "skip", Existing: existing}, nil
		}
		return IdempotencyDecision{Action: "overwrite", Existing: existing}, nil
	}
}
