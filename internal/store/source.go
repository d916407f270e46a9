package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docvector/internal/docverr"
	"docvector/internal/model"
)

// SourceRepo persists Source rows, including per-source sync bookkeeping
// (sync_frequency, last_synced_at), grounded on the original's
// models/source.py.
type SourceRepo struct {
	pool *pgxpool.Pool
}

func NewSourceRepo(pool *pgxpool.Pool) *SourceRepo { return &SourceRepo{pool: pool} }

func (r *SourceRepo) Create(ctx context.Context, s *model.Source) error {
	if !s.Kind.Valid() {
		return docverr.New(docverr.CodeValidation, fmt.Sprintf("invalid source kind %q", s.Kind))
	}
	if s.ID == uuid.Nil {
		s.ID = model.NewID()
	}
	if s.Status == "" {
		s.Status = model.SourceActive
	}
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("store: marshal source config: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO sources (id, name, kind, library_id, version, config, status, sync_frequency_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Name, string(s.Kind), s.LibraryID, s.Version, cfg, string(s.Status), int64(s.SyncFrequency.Seconds()))
	if err != nil {
		if isUniqueViolation(err) {
			return docverr.Wrap(docverr.CodeSourceExists, fmt.Sprintf("source %q (%s) already exists", s.Name, s.Kind), err)
		}
		return fmt.Errorf("store: create source: %w", err)
	}
	return nil
}

func (r *SourceRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Source, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, kind, library_id, version, config, status, sync_frequency_seconds,
		       last_synced_at, error_message, created_at, updated_at
		FROM sources WHERE id = $1
	`, id)
	return scanSource(row)
}

func (r *SourceRepo) ListDue(ctx context.Context, now time.Time) ([]*model.Source, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, kind, library_id, version, config, status, sync_frequency_seconds,
		       last_synced_at, error_message, created_at, updated_at
		FROM sources
		WHERE status = 'active'
		  AND sync_frequency_seconds > 0
		  AND (last_synced_at IS NULL OR last_synced_at + (sync_frequency_seconds * INTERVAL '1 second') <= $1)
	`, now)
	if err != nil {
		return nil, fmt.Errorf("store: list due sources: %w", err)
	}
	defer rows.Close()

	var out []*model.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SourceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SourceStatus, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sources SET status = $2, error_message = $3, updated_at = now() WHERE id = $1
	`, id, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("store: update source status: %w", err)
	}
	return nil
}

func (r *SourceRepo) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sources SET last_synced_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("store: mark source synced: %w", err)
	}
	return nil
}

func scanSource(row pgx.Row) (*model.Source, error) {
	var s model.Source
	var kind, status string
	var syncSeconds int64
	var cfgRaw []byte
	err := row.Scan(&s.ID, &s.Name, &kind, &s.LibraryID, &s.Version, &cfgRaw, &status, &syncSeconds,
		&s.LastSyncedAt, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, docverr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan source: %w", err)
	}
	s.Kind = model.SourceKind(kind)
	s.Status = model.SourceStatus(status)
	s.SyncFrequency = time.Duration(syncSeconds) * time.Second
	if len(cfgRaw) > 0 {
		_ = json.Unmarshal(cfgRaw, &s.Config)
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	return containsAny(err.Error(), "duplicate key value violates unique constraint")
}

func containsAny(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
