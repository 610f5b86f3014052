package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/regwatch/regwatch/internal/domain"
)

// ErrRunNotFound is returned when a run lookup matches no row.
var ErrRunNotFound = errors.New("run not found")

// RunRepository handles database operations for run records.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record in the running state.
func (r *RunRepository) Create(ctx context.Context, run *domain.RunRecord) error {
	query := `
		INSERT INTO runs (id, started_at, status)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, run.ID, run.StartedAt, run.Status); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// Finish records the terminal state of a run. Called exactly once per run.
func (r *RunRepository) Finish(ctx context.Context, run *domain.RunRecord) error {
	query := `
		UPDATE runs
		SET completed_at = $2, status = $3, documents_found_total = $4,
			new_documents = $5, error_message = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.CompletedAt,
		run.Status,
		run.DocumentsFoundTotal,
		run.NewDocuments,
		run.ErrorMessage,
	)
	return requireAffected(result, err, fmt.Errorf("%w: %s", ErrRunNotFound, run.ID))
}

// GetByID retrieves a run record.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	query := `
		SELECT id, started_at, completed_at, status, documents_found_total,
			new_documents, error_message
		FROM runs
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// Recent returns the most recent runs, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	var runs []*domain.RunRecord
	query := `
		SELECT id, started_at, completed_at, status, documents_found_total,
			new_documents, error_message
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}

	if runs == nil {
		runs = []*domain.RunRecord{}
	}

	return runs, nil
}

// Latest returns the most recent run, or ErrRunNotFound if none exist.
func (r *RunRepository) Latest(ctx context.Context) (*domain.RunRecord, error) {
	runs, err := r.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}
