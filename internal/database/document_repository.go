package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/regwatch/regwatch/internal/domain"
)

// documentSelectColumns lists columns for SELECT queries on documents.
const documentSelectColumns = `id, canonical_id, source, page_url, document_url,
	reference_number, title, category, document_type, domain, issue_date,
	effective_date, content_hash, storage_path, status, discovered_at, last_checked`

// ErrDocumentNotFound is returned when a document lookup matches no row.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository handles database operations for documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Exists reports whether a document with the canonical ID is already stored.
func (r *DocumentRepository) Exists(ctx context.Context, canonicalID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM documents WHERE canonical_id = $1)`

	if err := r.db.GetContext(ctx, &exists, query, canonicalID); err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}

	return exists, nil
}

// Upsert inserts a document. A uniqueness conflict on canonical_id is a
// successful no-op: concurrent crawlers discovering the same reference
// must not crash the run, and the first writer wins.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (canonical_id, source, page_url, document_url,
			reference_number, title, category, document_type, domain, issue_date,
			effective_date, content_hash, storage_path, status, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (canonical_id) DO NOTHING
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		doc.CanonicalID,
		doc.Source,
		doc.PageURL,
		doc.DocumentURL,
		doc.ReferenceNumber,
		doc.Title,
		doc.Category,
		doc.DocumentType,
		doc.Domain,
		doc.IssueDate,
		doc.EffectiveDate,
		doc.ContentHash,
		doc.StoragePath,
		doc.Status,
		doc.DiscoveredAt,
	).Scan(&doc.ID)

	if errors.Is(err, sql.ErrNoRows) {
		// Conflict: the row already exists. Load the winner's id so the
		// caller still holds a valid reference.
		return r.loadIDByCanonical(ctx, doc)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

func (r *DocumentRepository) loadIDByCanonical(ctx context.Context, doc *domain.Document) error {
	query := `SELECT id FROM documents WHERE canonical_id = $1`
	if err := r.db.GetContext(ctx, &doc.ID, query, doc.CanonicalID); err != nil {
		return fmt.Errorf("failed to resolve existing document id: %w", err)
	}
	return nil
}

// GetByCanonicalID retrieves a document by its canonical ID.
func (r *DocumentRepository) GetByCanonicalID(ctx context.Context, canonicalID string) (*domain.Document, error) {
	var doc domain.Document
	query := `SELECT ` + documentSelectColumns + ` FROM documents WHERE canonical_id = $1`

	err := r.db.GetContext(ctx, &doc, query, canonicalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// Count returns the total number of documents, optionally filtered by source.
func (r *DocumentRepository) Count(ctx context.Context, source string) (int, error) {
	var count int
	var err error

	if source != "" {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM documents WHERE source = $1`, source)
	} else {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM documents`)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}

// CountByStatus returns the number of documents in the given status.
func (r *DocumentRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE status = $1`

	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("failed to count documents by status: %w", err)
	}

	return count, nil
}

// RecentFilter narrows QueryRecent results. Zero values mean "no filter".
type RecentFilter struct {
	// Source restricts results to one feed tag.
	Source string
	// IssuedSince keeps documents whose issue_date is on or after the date.
	IssuedSince *time.Time
	// DiscoveredSince keeps documents discovered at or after the instant.
	DiscoveredSince *time.Time
	// WithContent keeps only documents that have a stored binary.
	WithContent bool
	// WithAnalysis keeps only documents that already have an analysis.
	WithAnalysis bool
	// WithoutAnalysis keeps only documents that have no analysis yet.
	WithoutAnalysis bool
	// Limit caps the result size; 0 means no cap.
	Limit int
}

// QueryRecent returns documents matching the filter, newest first by
// issue date then discovery time.
func (r *DocumentRepository) QueryRecent(ctx context.Context, filter RecentFilter) ([]*domain.Document, error) {
	query := `SELECT ` + documentSelectColumns + ` FROM documents WHERE 1=1`
	var args []any

	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if filter.IssuedSince != nil {
		args = append(args, *filter.IssuedSince)
		query += fmt.Sprintf(" AND issue_date IS NOT NULL AND issue_date >= $%d", len(args))
	}
	if filter.DiscoveredSince != nil {
		args = append(args, *filter.DiscoveredSince)
		query += fmt.Sprintf(" AND discovered_at >= $%d", len(args))
	}
	if filter.WithContent {
		query += ` AND storage_path IS NOT NULL`
	}
	if filter.WithAnalysis {
		query += ` AND EXISTS (SELECT 1 FROM analysis_results a WHERE a.document_id = documents.id)`
	}
	if filter.WithoutAnalysis {
		query += ` AND NOT EXISTS (SELECT 1 FROM analysis_results a WHERE a.document_id = documents.id)`
	}

	query += ` ORDER BY issue_date DESC NULLS LAST, discovered_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var docs []*domain.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}

	if docs == nil {
		docs = []*domain.Document{}
	}

	return docs, nil
}

// ListDiscoveredSince returns documents discovered at or after the given
// instant, oldest first. This is the "new set" for a run window.
func (r *DocumentRepository) ListDiscoveredSince(ctx context.Context, since time.Time) ([]*domain.Document, error) {
	var docs []*domain.Document
	query := `
		SELECT ` + documentSelectColumns + `
		FROM documents
		WHERE discovered_at >= $1
		ORDER BY discovered_at ASC
	`

	if err := r.db.SelectContext(ctx, &docs, query, since); err != nil {
		return nil, fmt.Errorf("failed to list documents for run window: %w", err)
	}

	if docs == nil {
		docs = []*domain.Document{}
	}

	return docs, nil
}

// UpdateStatus sets the status of a document.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE documents SET status = $2, last_checked = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	return requireAffected(result, err, fmt.Errorf("%w: id=%d", ErrDocumentNotFound, id))
}
