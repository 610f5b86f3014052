package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the storage-of-record DDL. Statements are idempotent so the
// migrator can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id BIGSERIAL PRIMARY KEY,
		canonical_id VARCHAR(32) NOT NULL UNIQUE,
		source VARCHAR(50) NOT NULL,
		page_url TEXT NOT NULL,
		document_url TEXT,
		reference_number VARCHAR(100) NOT NULL,
		title TEXT NOT NULL,
		category VARCHAR(100) NOT NULL DEFAULT '',
		document_type VARCHAR(50) NOT NULL DEFAULT '',
		domain VARCHAR(100),
		issue_date DATE,
		effective_date DATE,
		content_hash VARCHAR(64),
		storage_path TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'new',
		discovered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_checked TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_source ON documents (source)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_discovered_at ON documents (discovered_at)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_issue_date ON documents (issue_date)`,

	`CREATE TABLE IF NOT EXISTS analysis_results (
		id BIGSERIAL PRIMARY KEY,
		document_id BIGINT NOT NULL REFERENCES documents (id),
		model_id VARCHAR(255) NOT NULL,
		summary TEXT NOT NULL,
		raw_response TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_results_document_id ON analysis_results (document_id)`,

	`CREATE TABLE IF NOT EXISTS page_hashes (
		id BIGSERIAL PRIMARY KEY,
		page_key VARCHAR(500) NOT NULL UNIQUE,
		content_hash VARCHAR(64) NOT NULL,
		last_checked TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ,
		status VARCHAR(20) NOT NULL,
		documents_found_total INT NOT NULL DEFAULT 0,
		new_documents INT NOT NULL DEFAULT 0,
		error_message TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at)`,
}

// Migrate applies the schema to the connected database.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
