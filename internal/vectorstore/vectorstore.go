// Package vectorstore implements C7: the vector index adapter, wrapping
// Qdrant with create_collection/upsert/search/delete/get/count/close and a
// small filter DSL (spec §4.7), grounded on the teacher's
// internal/persistence/databases/qdrant_vector.go.
package vectorstore

import (
	"context"
)

// Filter is a field -> condition map. A condition is either a scalar
// (equality) or a FilterOp (range/membership), matching spec §4.7's DSL:
// equality, $in, $gt, $gte, $lt, $lte.
type Filter map[string]any

// FilterOp expresses a non-equality condition on one field.
type FilterOp struct {
	In  []string
	Gt  *float64
	Gte *float64
	Lt  *float64
	Lte *float64
}

// Point is one vector plus its associated metadata, keyed by an
// application-level ID (a Chunk ID in this system).
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Store is the vector index adapter contract.
type Store interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]SearchResult, error)
	Delete(ctx context.Context, ids []string) error
	Get(ctx context.Context, id string) (*Point, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Close() error
}
