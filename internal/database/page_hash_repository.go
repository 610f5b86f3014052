package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/regwatch/regwatch/internal/domain"
)

// PageHashRepository handles database operations for change-detection
// digests. It satisfies changedetect.Store.
type PageHashRepository struct {
	db *sqlx.DB
}

// NewPageHashRepository creates a new page hash repository.
func NewPageHashRepository(db *sqlx.DB) *PageHashRepository {
	return &PageHashRepository{db: db}
}

// GetHash returns the stored digest for a page key, or "" if none exists.
func (r *PageHashRepository) GetHash(ctx context.Context, pageKey string) (string, error) {
	var hash string
	query := `SELECT content_hash FROM page_hashes WHERE page_key = $1`

	err := r.db.GetContext(ctx, &hash, query, pageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get page hash: %w", err)
	}

	return hash, nil
}

// UpsertHash stores the digest for a page key and refreshes last_checked.
func (r *PageHashRepository) UpsertHash(ctx context.Context, pageKey, digest string) error {
	query := `
		INSERT INTO page_hashes (page_key, content_hash, last_checked)
		VALUES ($1, $2, NOW())
		ON CONFLICT (page_key)
		DO UPDATE SET content_hash = EXCLUDED.content_hash, last_checked = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, pageKey, digest); err != nil {
		return fmt.Errorf("failed to upsert page hash: %w", err)
	}

	return nil
}

// Get returns the full record for a page key.
func (r *PageHashRepository) Get(ctx context.Context, pageKey string) (*domain.PageHash, error) {
	var record domain.PageHash
	query := `
		SELECT id, page_key, content_hash, last_checked, created_at
		FROM page_hashes
		WHERE page_key = $1
	`

	if err := r.db.GetContext(ctx, &record, query, pageKey); err != nil {
		return nil, fmt.Errorf("failed to get page hash record: %w", err)
	}

	return &record, nil
}
