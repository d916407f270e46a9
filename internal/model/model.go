// Package model defines the relational data model shared across the
// ingestion and retrieval pipelines: libraries, sources, documents, chunks,
// and ingestion jobs.
package model

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind enumerates the allowed Source.Kind values.
type SourceKind string

const (
	SourceKindWeb  SourceKind = "web"
	SourceKindGit  SourceKind = "git"
	SourceKindFile SourceKind = "file"
	SourceKindAPI  SourceKind = "api"
)

// Valid reports whether k is one of the allowed source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindWeb, SourceKindGit, SourceKindFile, SourceKindAPI:
		return true
	}
	return false
}

// SourceStatus enumerates the Source state machine (spec §4.12).
type SourceStatus string

const (
	SourceActive SourceStatus = "active"
	SourcePaused SourceStatus = "paused"
	SourceError  SourceStatus = "error"
)

// Valid reports whether s is a known source status.
func (s SourceStatus) Valid() bool {
	switch s {
	case SourceActive, SourcePaused, SourceError:
		return true
	}
	return false
}

// DocumentStatus enumerates the Document state machine (spec §4.12).
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// CanTransition reports whether moving from s to next is legal.
// pending -> processing -> {completed, failed}; failed -> processing (retry).
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case DocumentPending:
		return next == DocumentProcessing
	case DocumentProcessing:
		return next == DocumentCompleted || next == DocumentFailed
	case DocumentFailed:
		return next == DocumentProcessing
	case DocumentCompleted:
		return next == DocumentProcessing // reindex
	}
	return false
}

// JobType enumerates IngestionJob.JobType values.
type JobType string

const (
	JobFullSync    JobType = "full_sync"
	JobIncremental JobType = "incremental"
	JobManual      JobType = "manual"
	JobCrawlURL    JobType = "crawl_url"
	JobReindex     JobType = "reindex"
)

// JobStatus enumerates the Job state machine (spec §4.12).
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsFinished reports whether s is a terminal job status.
func (s JobStatus) IsFinished() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobRunning || next == JobCancelled
	case JobRunning:
		return next == JobCompleted || next == JobFailed || next == JobCancelled
	}
	return false
}

// Library is an optional grouping of Sources (e.g. "vercel/next.js").
type Library struct {
	ID         uuid.UUID
	ExternalID string
	Name       string
	Aliases    []string
	Homepage   string
	RepoURL    string
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Source is a fetchable origin.
type Source struct {
	ID            uuid.UUID
	Name          string
	Kind          SourceKind
	LibraryID     *uuid.UUID
	Version       string
	Config        map[string]any
	Status        SourceStatus
	SyncFrequency time.Duration
	LastSyncedAt  *time.Time
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Document is one fetched artifact from a Source.
type Document struct {
	ID                uuid.UUID
	SourceID          uuid.UUID
	URL               string
	Path              string
	ContentHash       string
	Title             string
	Content           string
	ContentLength     int
	Language          string
	Format            string
	Status            DocumentStatus
	ErrorMessage      string
	ChunkCount        int
	ChunkingStrategy  string
	Version           int
	FetchedAt         *time.Time
	ProcessedAt       *time.Time
	PublishedAt       *time.Time
	ModifiedAt        *time.Time
	Author            string
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Chunk is a segment of one Document.
type Chunk struct {
	ID                   uuid.UUID
	DocumentID           uuid.UUID
	Index                int
	Text                 string
	ContentLength        int
	StartChar            int
	EndChar              int
	IsCodeSnippet        bool
	CodeLanguage         string
	AccessLevel          string
	Topics               []string
	Enrichment           string
	RelevanceScore       float64
	CodeQualityScore     float64
	FormattingScore      float64
	MetadataScore        float64
	InitializationScore  float64
	PrevChunkID          *uuid.UUID
	NextChunkID          *uuid.UUID
	Metadata             map[string]any
	EmbeddingID          string
	EmbeddingModel       string
	EmbeddedAt           *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IngestionJob tracks one asynchronous ingestion task.
type IngestionJob struct {
	ID                uuid.UUID
	SourceID          *uuid.UUID
	JobType           JobType
	Status            JobStatus
	TotalDocuments    int
	ProcessedDocuments int
	FailedDocuments   int
	TotalChunks       int
	StartedAt         *time.Time
	CompletedAt       *time.Time
	ErrorMessage      map[string]any
	Config            map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewID returns a fresh random identifier, used wherever the store does not
// assign one (e.g. application-layer construction before INSERT).
func NewID() uuid.UUID { return uuid.New() }
