// Package store implements C8: the relational store for Library, Source,
// Document, Chunk, and IngestionJob rows (spec §4.8), on top of pgx/pgxpool,
// grounded on the teacher's internal/persistence/databases/pool.go and
// postgres_vector.go connection/pooling conventions, with the schema shape
// following original_source/db/migrations/versions/002_context7_features.py.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool creates a Postgres connection pool with the teacher's standard
// tuning (MaxConns=8, MinConns=0, MaxConnLifetime=1h).
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}
