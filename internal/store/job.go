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

// IngestionJobRepo persists IngestionJob rows and enforces the job state
// machine (spec §4.12), grounded on the teacher's job-tracking conventions
// in internal/rag/service/service.go's ingestion bookkeeping.
type IngestionJobRepo struct {
	pool *pgxpool.Pool
}

func NewIngestionJobRepo(pool *pgxpool.Pool) *IngestionJobRepo { return &IngestionJobRepo{pool: pool} }

func (r *IngestionJobRepo) Create(ctx context.Context, j *model.IngestionJob) error {
	if j.ID == uuid.Nil {
		j.ID = model.NewID()
	}
	if j.Status == "" {
		j.Status = model.JobPending
	}
	cfg, err := json.Marshal(j.Config)
	if err != nil {
		return fmt.Errorf("store: marshal job config: %w", err)
	}
	errMsg, err := json.Marshal(j.ErrorMessage)
	if err != nil {
		return fmt.Errorf("store: marshal job error_message: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO ingestion_jobs (id, source_id, job_type, status, total_documents, config, error_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, j.ID, j.SourceID, string(j.JobType), string(j.Status), j.TotalDocuments, cfg, errMsg)
	if err != nil {
		return fmt.Errorf("store: create ingestion job: %w", err)
	}
	return nil
}

func (r *IngestionJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.IngestionJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM ingestion_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// Transition enforces the job state machine before writing the new status,
// stamping started_at/completed_at as the transition crosses those
// boundaries.
func (r *IngestionJobRepo) Transition(ctx context.Context, id uuid.UUID, next model.JobStatus) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(next) {
		return docverr.New(docverr.CodeValidation, fmt.Sprintf("illegal job transition %s -> %s", current.Status, next))
	}

	switch next {
	case model.JobRunning:
		_, err = r.pool.Exec(ctx, `UPDATE ingestion_jobs SET status = $2, started_at = now(), updated_at = now() WHERE id = $1`, id, string(next))
	case model.JobCompleted, model.JobFailed, model.JobCancelled:
		_, err = r.pool.Exec(ctx, `UPDATE ingestion_jobs SET status = $2, completed_at = now(), updated_at = now() WHERE id = $1`, id, string(next))
	default:
		_, err = r.pool.Exec(ctx, `UPDATE ingestion_jobs SET status = $2, updated_at = now() WHERE id = $1`, id, string(next))
	}
	if err != nil {
		return fmt.Errorf("store: transition job: %w", err)
	}
	return nil
}

// IncrementCounters atomically advances the job's progress counters; used
// once per document processed by the orchestrator so concurrent workers
// never race on a read-modify-write of the job row.
func (r *IngestionJobRepo) IncrementCounters(ctx context.Context, id uuid.UUID, processedDelta, failedDelta, chunksDelta int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ingestion_jobs
		SET processed_documents = processed_documents + $2,
		    failed_documents = failed_documents + $3,
		    total_chunks = total_chunks + $4,
		    updated_at = now()
		WHERE id = $1
	`, id, processedDelta, failedDelta, chunksDelta)
	if err != nil {
		return fmt.Errorf("store: increment job counters: %w", err)
	}
	return nil
}

func (r *IngestionJobRepo) ListActive(ctx context.Context) ([]*model.IngestionJob, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM ingestion_jobs WHERE status IN ('pending','running') ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list active jobs: %w", err)
	}
	defer rows.Close()

	var out []*model.IngestionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

const jobColumns = `
	id, source_id, job_type, status, total_documents, processed_documents, failed_documents,
	total_chunks, started_at, completed_at, error_message, config, created_at, updated_at`

func scanJob(row pgx.Row) (*model.IngestionJob, error) {
	var j model.IngestionJob
	var jobType, status string
	var errMsgRaw, cfgRaw []byte
	err := row.Scan(&j.ID, &j.SourceID, &jobType, &status, &j.TotalDocuments, &j.ProcessedDocuments, &j.FailedDocuments,
		&j.TotalChunks, &j.StartedAt, &j.CompletedAt, &errMsgRaw, &cfgRaw, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, docverr.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan job: %w", err)
	}
	j.JobType = model.JobType(jobType)
	j.Status = model.JobStatus(status)
	if len(errMsgRaw) > 0 {
		_ = json.Unmarshal(errMsgRaw, &j.ErrorMessage)
	}
	if len(cfgRaw) > 0 {
		_ = json.Unmarshal(cfgRaw, &j.Config)
	}
	return &j, nil
}
