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

// DocumentRepo persists Document rows and enforces the content-hash dedupe
// invariant per source via the documents(source_id, content_hash) unique
// constraint, grounded on the original's ingestion idempotency checks
// (original_source's content-hash skip-if-unchanged logic).
type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo { return &DocumentRepo{pool: pool} }

func (r *DocumentRepo) Create(ctx context.Context, d *model.Document) error {
	if d.ID == uuid.Nil {
		d.ID = model.NewID()
	}
	if d.Status == "" {
		d.Status = model.DocumentPending
	}
	if d.Version == 0 {
		d.Version = 1
	}
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal document metadata: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (
			id, source_id, url, path, content_hash, title, content, content_length,
			language, format, status, chunking_strategy, version, author, metadata
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, d.ID, d.SourceID, d.URL, d.Path, d.ContentHash, d.Title, d.Content, len([]rune(d.Content)),
		d.Language, d.Format, string(d.Status), d.ChunkingStrategy, d.Version, d.Author, metadata)
	if err != nil {
		if isUniqueViolation(err) {
			return docverr.Wrap(docverr.CodeIngestion, "document with this content hash already exists for source", err)
		}
		return fmt.Errorf("store: create document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// FindByURL returns the most recent document ingested for this URL under
// this source, used by the reingest-policy decision (internal/ingest's
// idempotency.go) to find what a changed fetch should act on.
func (r *DocumentRepo) FindByURL(ctx context.Context, sourceID uuid.UUID, url string) (*model.Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE source_id = $1 AND url = $2
		ORDER BY version DESC, created_at DESC LIMIT 1
	`, sourceID, url)
	return scanDocument(row)
}

// ReplaceContent overwrites an existing document's content in place (the
// reingest-policy "overwrite" action), resetting it to pending so the
// pipeline reprocesses it from scratch.
func (r *DocumentRepo) ReplaceContent(ctx context.Context, id uuid.UUID, title, content, hash, language, format string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents SET
			title = $2, content = $3, content_length = $4, content_hash = $5,
			language = $6, format = $7, status = $8, error_message = '', updated_at = now()
		WHERE id = $1
	`, id, title, content, len([]rune(content)), hash, language, format, string(model.DocumentPending))
	if err != nil {
		return fmt.Errorf("store: replace document content: %w", err)
	}
	return nil
}

// ListBySource returns documents for a source, optionally filtered by status.
func (r *DocumentRepo) ListBySource(ctx context.Context, sourceID uuid.UUID, status model.DocumentStatus) ([]*model.Document, error) {
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = r.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE source_id = $1 ORDER BY created_at`, sourceID)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE source_id = $1 AND status = $2 ORDER BY created_at`, sourceID, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TransitionStatus enforces the Document state machine (spec §4.12) before
// writing, returning a validation error on an illegal transition.
func (r *DocumentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, next model.DocumentStatus, errMsg string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(next) {
		return docverr.New(docverr.CodeValidation, fmt.Sprintf("illegal document transition %s -> %s", current.Status, next))
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE documents SET status = $2, error_message = $3, updated_at = now() WHERE id = $1
	`, id, string(next), errMsg)
	if err != nil {
		return fmt.Errorf("store: transition document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) SetChunkCount(ctx context.Context, id uuid.UUID, count int) error {
	_, err := r.pool.Exec(ctx, `UPDATE documents SET chunk_count = $2, updated_at = now() WHERE id = $1`, id, count)
	if err != nil {
		return fmt.Errorf("store: set chunk count: %w", err)
	}
	return nil
}

const documentColumns = `
	id, source_id, url, path, content_hash, title, content, content_length,
	language, format, status, error_message, chunk_count, chunking_strategy, version,
	fetched_at, processed_at, published_at, modified_at, author, metadata,
	created_at, updated_at`

func scanDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var status string
	var metadataRaw []byte
	err := row.Scan(&d.ID, &d.SourceID, &d.URL, &d.Path, &d.ContentHash, &d.Title, &d.Content, &d.ContentLength,
		&d.Language, &d.Format, &status, &d.ErrorMessage, &d.ChunkCount, &d.ChunkingStrategy, &d.Version,
		&d.FetchedAt, &d.ProcessedAt, &d.PublishedAt, &d.ModifiedAt, &d.Author, &metadataRaw,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, docverr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan document: %w", err)
	}
	d.Status = model.DocumentStatus(status)
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &d.Metadata)
	}
	return &d, nil
}
