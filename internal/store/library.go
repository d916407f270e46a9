package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docvector/internal/docverr"
	"docvector/internal/model"
)

// LibraryRepo persists Library rows, grounded on spec §3's Library entity
// and the original's models/source.py, carried forward per SPEC_FULL.md's
// supplemented-features section.
type LibraryRepo struct {
	pool *pgxpool.Pool
}

func NewLibraryRepo(pool *pgxpool.Pool) *LibraryRepo { return &LibraryRepo{pool: pool} }

func (r *LibraryRepo) Create(ctx context.Context, l *model.Library) error {
	if l.ID == uuid.Nil {
		l.ID = model.NewID()
	}
	metadata, err := json.Marshal(l.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal library metadata: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO libraries (id, external_id, name, aliases, homepage, repo_url, metadata)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
	`, l.ID, l.ExternalID, l.Name, l.Aliases, l.Homepage, l.RepoURL, metadata)
	if err != nil {
		return fmt.Errorf("store: create library: %w", err)
	}
	return nil
}

func (r *LibraryRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Library, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, external_id, name, aliases, homepage, repo_url, metadata, created_at, updated_at
		FROM libraries WHERE id = $1
	`, id)
	return scanLibrary(row)
}

func (r *LibraryRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Library, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, external_id, name, aliases, homepage, repo_url, metadata, created_at, updated_at
		FROM libraries WHERE external_id = $1
	`, externalID)
	return scanLibrary(row)
}

func scanLibrary(row pgx.Row) (*model.Library, error) {
	var l model.Library
	var externalID *string
	var metadataRaw []byte
	err := row.Scan(&l.ID, &externalID, &l.Name, &l.Aliases, &l.Homepage, &l.RepoURL, &metadataRaw, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, docverr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan library: %w", err)
	}
	if externalID != nil {
		l.ExternalID = *externalID
	}
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &l.Metadata)
	}
	return &l, nil
}
