package store

// schema is the relational schema backing C8, following
// original_source/db/migrations/versions/002_context7_features.py's column
// shapes for libraries/sources/documents/chunks/ingestion_jobs. Applied via
// Migrate at startup; a real deployment would run this through a migration
// tool, but a single idempotent DDL script matches the scope of this module.
const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS libraries (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	external_id TEXT UNIQUE,
	name TEXT NOT NULL,
	aliases TEXT[] NOT NULL DEFAULT '{}',
	homepage TEXT NOT NULL DEFAULT '',
	repo_url TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sources (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	library_id UUID REFERENCES libraries(id) ON DELETE SET NULL,
	version TEXT NOT NULL DEFAULT '',
	config JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'active',
	sync_frequency_seconds BIGINT NOT NULL DEFAULT 0,
	last_synced_at TIMESTAMPTZ,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (name, kind)
);

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	source_id UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	url TEXT NOT NULL DEFAULT '',
	path TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	content_length INT NOT NULL DEFAULT 0,
	language TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	chunk_count INT NOT NULL DEFAULT 0,
	chunking_strategy TEXT NOT NULL DEFAULT '',
	version INT NOT NULL DEFAULT 1,
	fetched_at TIMESTAMPTZ,
	processed_at TIMESTAMPTZ,
	published_at TIMESTAMPTZ,
	modified_at TIMESTAMPTZ,
	author TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source_id, content_hash)
);

CREATE INDEX IF NOT EXISTS idx_documents_source_status ON documents(source_id, status);
CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash);

CREATE TABLE IF NOT EXISTS chunks (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	index INT NOT NULL,
	text TEXT NOT NULL,
	content_length INT NOT NULL DEFAULT 0,
	start_char INT NOT NULL DEFAULT 0,
	end_char INT NOT NULL DEFAULT 0,
	is_code_snippet BOOLEAN NOT NULL DEFAULT false,
	code_language TEXT NOT NULL DEFAULT '',
	access_level TEXT NOT NULL DEFAULT 'private',
	topics TEXT[] NOT NULL DEFAULT '{}',
	enrichment TEXT NOT NULL DEFAULT '',
	relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	code_quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	formatting_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	metadata_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	initialization_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	prev_chunk_id UUID REFERENCES chunks(id) ON DELETE SET NULL,
	next_chunk_id UUID REFERENCES chunks(id) ON DELETE SET NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	embedding_id TEXT NOT NULL DEFAULT '',
	embedding_model TEXT NOT NULL DEFAULT '',
	embedded_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (document_id, index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	source_id UUID REFERENCES sources(id) ON DELETE SET NULL,
	job_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	total_documents INT NOT NULL DEFAULT 0,
	processed_documents INT NOT NULL DEFAULT 0,
	failed_documents INT NOT NULL DEFAULT 0,
	total_chunks INT NOT NULL DEFAULT 0,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	error_message JSONB NOT NULL DEFAULT '{}',
	config JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON ingestion_jobs(status);
`
