package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/regwatch/regwatch/internal/domain"
)

// LatestPerSource returns the most recent documents for one source,
// ordered by issue date then discovery time. Used by the rollback
// utility to pick purge candidates.
func (r *DocumentRepository) LatestPerSource(ctx context.Context, source string, limit int) ([]*domain.Document, error) {
	var docs []*domain.Document
	query := `
		SELECT ` + documentSelectColumns + `
		FROM documents
		WHERE source = $1
		ORDER BY issue_date DESC NULLS LAST, discovered_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &docs, query, source, limit); err != nil {
		return nil, fmt.Errorf("failed to list latest documents: %w", err)
	}

	return docs, nil
}

// PurgeWithPageHashes deletes the given documents, their analyses, and
// the page digests under the given key prefixes in a single
// transaction, children first so referential integrity holds at every
// point. Clearing the digests in the same transaction matters: a digest
// that outlives its purged documents would suppress their rediscovery
// on the next non-forced run. Returns the number of document and page
// hash rows deleted.
func (r *DocumentRepository) PurgeWithPageHashes(ctx context.Context, ids []int64, hashPrefixes []string) (int64, int64, error) {
	if len(ids) == 0 && len(hashPrefixes) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var docsDeleted int64
	if len(ids) > 0 {
		deleteAnalyses := `DELETE FROM analysis_results WHERE document_id = ANY($1)`
		if _, execErr := tx.ExecContext(ctx, deleteAnalyses, pq.Array(ids)); execErr != nil {
			return 0, 0, fmt.Errorf("failed to delete analyses: %w", execErr)
		}

		deleteDocs := `DELETE FROM documents WHERE id = ANY($1)`
		result, execErr := tx.ExecContext(ctx, deleteDocs, pq.Array(ids))
		if execErr != nil {
			return 0, 0, fmt.Errorf("failed to delete documents: %w", execErr)
		}
		if docsDeleted, err = result.RowsAffected(); err != nil {
			return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
	}

	var hashesDeleted int64
	deleteHashes := `DELETE FROM page_hashes WHERE page_key LIKE $1 || '%'`
	for _, prefix := range hashPrefixes {
		result, execErr := tx.ExecContext(ctx, deleteHashes, prefix)
		if execErr != nil {
			return 0, 0, fmt.Errorf("failed to delete page hashes for %s: %w", prefix, execErr)
		}
		cleared, raErr := result.RowsAffected()
		if raErr != nil {
			return 0, 0, fmt.Errorf("failed to get rows affected: %w", raErr)
		}
		hashesDeleted += cleared
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, 0, fmt.Errorf("failed to commit purge: %w", commitErr)
	}

	return docsDeleted, hashesDeleted, nil
}
