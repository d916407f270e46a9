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

// ChunkRepo persists Chunk rows. Chunks are written in a single batch per
// document so the documents(document_id, index) uniqueness and the
// dense-index invariant (0..N-1, no gaps) hold by construction, grounded on
// the teacher's batched-insert idiom in internal/rag/ingest.
type ChunkRepo struct {
	pool *pgxpool.Pool
}

func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo { return &ChunkRepo{pool: pool} }

// CreateBatch inserts all chunks for a document inside one transaction,
// replacing any prior chunks for that document (re-ingestion case).
func (r *ChunkRepo) CreateBatch(ctx context.Context, documentID uuid.UUID, chunks []*model.Chunk) error {
	for i, c := range chunks {
		if c.Index != i {
			return docverr.New(docverr.CodeValidation, fmt.Sprintf("chunk index gap: expected %d, got %d", i, c.Index))
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin chunk batch: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("store: clear old chunks: %w", err)
	}

	for _, c := range chunks {
		if c.ID == uuid.Nil {
			c.ID = model.NewID()
		}
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("store: marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO chunks (
				id, document_id, index, text, content_length, start_char, end_char,
				is_code_snippet, code_language, access_level, topics, enrichment,
				relevance_score, code_quality_score, formatting_score, metadata_score, initialization_score,
				metadata, embedding_id, embedding_model
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		`, c.ID, documentID, c.Index, c.Text, len([]rune(c.Text)), c.StartChar, c.EndChar,
			c.IsCodeSnippet, c.CodeLanguage, c.AccessLevel, c.Topics, c.Enrichment,
			c.RelevanceScore, c.CodeQualityScore, c.FormattingScore, c.MetadataScore, c.InitializationScore,
			metadata, c.EmbeddingID, c.EmbeddingModel)
		if err != nil {
			return fmt.Errorf("store: insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE document_id = $1 ORDER BY index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChunkRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Chunk, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, id)
	return scanChunk(row)
}

// GetByIDs batch-hydrates chunks returned from a vector search, preserving
// no particular order; callers re-sort to match the vector result ranking.
func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks by ids: %w", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChunkRepo) MarkEmbedded(ctx context.Context, id uuid.UUID, embeddingID, model_ string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chunks SET embedding_id = $2, embedding_model = $3, embedded_at = now(), updated_at = now()
		WHERE id = $1
	`, id, embeddingID, model_)
	if err != nil {
		return fmt.Errorf("store: mark chunk embedded: %w", err)
	}
	return nil
}

const chunkColumns = `
	id, document_id, index, text, content_length, start_char, end_char,
	is_code_snippet, code_language, access_level, topics, enrichment,
	relevance_score, code_quality_score, formatting_score, metadata_score, initialization_score,
	prev_chunk_id, next_chunk_id, metadata, embedding_id, embedding_model, embedded_at,
	created_at, updated_at`

func scanChunk(row pgx.Row) (*model.Chunk, error) {
	var c model.Chunk
	var metadataRaw []byte
	err := row.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &c.ContentLength, &c.StartChar, &c.EndChar,
		&c.IsCodeSnippet, &c.CodeLanguage, &c.AccessLevel, &c.Topics, &c.Enrichment,
		&c.RelevanceScore, &c.CodeQualityScore, &c.FormattingScore, &c.MetadataScore, &c.InitializationScore,
		&c.PrevChunkID, &c.NextChunkID, &metadataRaw, &c.EmbeddingID, &c.EmbeddingModel, &c.EmbeddedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, docverr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan chunk: %w", err)
	}
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &c.Metadata)
	}
	return &c, nil
}
