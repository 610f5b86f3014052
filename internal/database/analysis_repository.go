package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/regwatch/regwatch/internal/domain"
)

// ErrAnalysisNotFound is returned when no analysis exists for a document.
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisRepository handles database operations for analysis results.
type AnalysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Record appends an analysis result and, when domainLabel is non-nil,
// updates the owning document's domain in the same transaction. Both
// writes succeed or both roll back.
func (r *AnalysisRepository) Record(ctx context.Context, result *domain.AnalysisResult, domainLabel *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertQuery := `
		INSERT INTO analysis_results (document_id, model_id, summary, raw_response)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err = tx.QueryRowContext(
		ctx,
		insertQuery,
		result.DocumentID,
		result.ModelID,
		result.Summary,
		result.RawResponse,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	if domainLabel != nil {
		updateQuery := `UPDATE documents SET domain = $2 WHERE id = $1`
		if _, execErr := tx.ExecContext(ctx, updateQuery, result.DocumentID, *domainLabel); execErr != nil {
			return fmt.Errorf("failed to update document domain: %w", execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit analysis: %w", commitErr)
	}

	return nil
}

// UpdateDocumentDomain sets the domain label on a document without
// persisting an analysis row. Used by classification-only outcomes.
func (r *AnalysisRepository) UpdateDocumentDomain(ctx context.Context, documentID int64, domainLabel string) error {
	query := `UPDATE documents SET domain = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, documentID, domainLabel)
	return requireAffected(result, err, fmt.Errorf("%w: id=%d", ErrDocumentNotFound, documentID))
}

// LatestForDocument returns the most recent analysis for a document,
// or ErrAnalysisNotFound.
func (r *AnalysisRepository) LatestForDocument(ctx context.Context, documentID int64) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	query := `
		SELECT id, document_id, model_id, summary, raw_response, created_at
		FROM analysis_results
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &result, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to get latest analysis: %w", err)
	}

	return &result, nil
}

// CountForDocument returns the number of analyses stored for a document.
func (r *AnalysisRepository) CountForDocument(ctx context.Context, documentID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM analysis_results WHERE document_id = $1`

	if err := r.db.GetContext(ctx, &count, query, documentID); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	return count, nil
}
