package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"docvector/internal/docverr"
	"docvector/internal/model"
)

type mockFinder struct {
	doc *model.Document
	err error
}

func (m mockFinder) FindByURL(context.Context, uuid.UUID, string) (*model.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

func TestResolveIdempotencyNoExistingDocumentCreates(t *testing.T) {
	dec, err := ResolveIdempotency(context.Background(), mockFinder{err: docverr.ErrNotFound}, model.NewID(), "https://x/a", "h1", ReingestSkipIfUnchanged)
	if err != nil || dec.Action != "create" {
		t.Fatalf("got %+v err=%v, want create", dec, err)
	}
}

func TestResolveIdempotencySkipIfUnchanged(t *testing.T) {
	existing := &model.Document{ID: model.NewID(), ContentHash: "h1", Version: 2}

	dec, err := ResolveIdempotency(context.Background(), mockFinder{doc: existing}, model.NewID(), "https://x/a", "h1", ReingestSkipIfUnchanged)
	if err != nil || dec.Action != "skip" {
		t.Fatalf("unchanged content: got %+v err=%v, want skip", dec, err)
	}

	dec, err = ResolveIdempotency(context.Background(), mockFinder{doc: existing}, model.NewID(), "https://x/a", "h2", ReingestSkipIfUnchanged)
	if err != nil || dec.Action != "overwrite" {
		t.Fatalf("changed content under default policy: got %+v err=%v, want overwrite", dec, err)
	}
}

func TestResolveIdempotencyOverwriteAlwaysOverwrites(t *testing.T) {
	existing := &model.Document{ID: model.NewID(), ContentHash: "h1", Version: 1}

	dec, err := ResolveIdempotency(context.Background(), mockFinder{doc: existing}, model.NewID(), "https://x/a", "h1", ReingestOverwrite)
	if err != nil || dec.Action != "overwrite" {
		t.Fatalf("got %+v err=%v, want overwrite even when unchanged", dec, err)
	}
}

func TestResolveIdempotencyNewVersionSkipsWhenUnchangedAndVersionsWhenChanged(t *testing.T) {
	existing := &model.Document{ID: model.NewID(), ContentHash: "h1", Version: 3}

	dec, err := ResolveIdempotency(context.Background(), mockFinder{doc: existing}, model.NewID(), "https://x/a", "h1", ReingestNewVersion)
	if err != nil || dec.Action != "skip" {
		t.Fatalf("unchanged content: got %+v err=%v, want skip", dec, err)
	}

	dec, err = ResolveIdempotency(context.Background(), mockFinder{doc: existing}, model.NewID(), "https://x/a", "h2", ReingestNewVersion)
	if err != nil || dec.Action != "new_version" || dec.Existing.Version != 3 {
		t.Fatalf("changed content: got %+v err=%v, want new_version against version 3", dec, err)
	}
}
