// Package store is the single owner of document, analysis and
// change-detection persistence. All other components go through its
// contract rather than touching repositories directly.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/regwatch/regwatch/internal/database"
	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
)

// Store aggregates the repositories and artifact storage behind the
// document-store contract.
type Store struct {
	documents *database.DocumentRepository
	analyses  *database.AnalysisRepository
	pages     *database.PageHashRepository
	runs      *database.RunRepository
	artifacts *ArtifactStore
	logger    logger.Interface
}

// New creates a store over the given database connection and artifact
// directory.
func New(db *sqlx.DB, artifactDir string, log logger.Interface) (*Store, error) {
	artifacts, err := NewArtifactStore(artifactDir)
	if err != nil {
		return nil, err
	}

	return &Store{
		documents: database.NewDocumentRepository(db),
		analyses:  database.NewAnalysisRepository(db),
		pages:     database.NewPageHashRepository(db),
		runs:      database.NewRunRepository(db),
		artifacts: artifacts,
		logger:    log.WithComponent("store"),
	}, nil
}

// Documents exposes the document repository for read paths.
func (s *Store) Documents() *database.DocumentRepository { return s.documents }

// Runs exposes the run repository.
func (s *Store) Runs() *database.RunRepository { return s.runs }

// PageHashes exposes the change-detection repository.
func (s *Store) PageHashes() *database.PageHashRepository { return s.pages }

// Artifacts exposes the artifact store.
func (s *Store) Artifacts() *ArtifactStore { return s.artifacts }

// Exists reports whether a canonical ID is already stored.
func (s *Store) Exists(ctx context.Context, canonicalID string) (bool, error) {
	return s.documents.Exists(ctx, canonicalID)
}

// UpsertMetadataOnly persists a document that has no retrievable binary.
// Conflicts on canonical_id are idempotent no-ops.
func (s *Store) UpsertMetadataOnly(ctx context.Context, doc *domain.Document) error {
	if doc.Status == "" {
		doc.Status = domain.StatusTrackedNoPDF
	}
	if doc.DiscoveredAt.IsZero() {
		doc.DiscoveredAt = time.Now().UTC()
	}

	if err := s.documents.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to store metadata-only document: %w", err)
	}

	s.logger.Info("Stored document (metadata only)",
		"source", doc.Source, "reference", doc.ReferenceNumber)
	return nil
}

// UpsertWithContent writes the binary artifact, fingerprints it, and
// persists the document. Conflicts on canonical_id are idempotent
// no-ops; the artifact write is an overwrite in that case, which leaves
// the same bytes at the same path.
func (s *Store) UpsertWithContent(ctx context.Context, doc *domain.Document, content []byte) error {
	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])

	path, err := s.artifacts.Write(doc.Source, doc.ReferenceNumber, doc.IssueDate, content)
	if err != nil {
		return fmt.Errorf("failed to persist artifact: %w", err)
	}

	doc.ContentHash = &contentHash
	doc.StoragePath = &path
	if doc.Status == "" || doc.Status == domain.StatusTrackedNoPDF {
		doc.Status = domain.StatusNew
	}
	if doc.DiscoveredAt.IsZero() {
		doc.DiscoveredAt = time.Now().UTC()
	}

	if err := s.documents.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document with content: %w", err)
	}

	s.logger.Info("Stored document",
		"source", doc.Source, "reference", doc.ReferenceNumber, "path", path)
	return nil
}

// RecordAnalysis appends an analysis for a document and optionally
// updates its domain label in the same transaction.
func (s *Store) RecordAnalysis(ctx context.Context, result *domain.AnalysisResult, domainLabel *string) error {
	return s.analyses.Record(ctx, result, domainLabel)
}

// SetDomain updates a document's domain label without persisting an
// analysis row.
func (s *Store) SetDomain(ctx context.Context, documentID int64, domainLabel string) error {
	return s.analyses.UpdateDocumentDomain(ctx, documentID, domainLabel)
}

// LatestAnalysis returns the most recent analysis for a document, or
// nil when none exists.
func (s *Store) LatestAnalysis(ctx context.Context, documentID int64) (*domain.AnalysisResult, error) {
	result, err := s.analyses.LatestForDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, database.ErrAnalysisNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// CreateRun inserts a run record in the running state.
func (s *Store) CreateRun(ctx context.Context, run *domain.RunRecord) error {
	return s.runs.Create(ctx, run)
}

// FinishRun records a run's terminal state and counts.
func (s *Store) FinishRun(ctx context.Context, run *domain.RunRecord) error {
	return s.runs.Finish(ctx, run)
}

// CountDocuments returns the total number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	return s.documents.Count(ctx, "")
}

// ListDiscoveredSince returns documents first seen at or after the
// given instant, oldest first.
func (s *Store) ListDiscoveredSince(ctx context.Context, since time.Time) ([]*domain.Document, error) {
	return s.documents.ListDiscoveredSince(ctx, since)
}

// ReadArtifact returns the stored binary at the given path.
func (s *Store) ReadArtifact(path string) ([]byte, error) {
	return s.artifacts.Read(path)
}

// SetStatus updates a document's lifecycle status.
func (s *Store) SetStatus(ctx context.Context, documentID int64, status string) error {
	return s.documents.UpdateStatus(ctx, documentID, status)
}

// QueryRecent returns documents matching the filter.
func (s *Store) QueryRecent(ctx context.Context, filter database.RecentFilter) ([]*domain.Document, error) {
	return s.documents.QueryRecent(ctx, filter)
}

// GetDocument returns a document by canonical ID.
func (s *Store) GetDocument(ctx context.Context, canonicalID string) (*domain.Document, error) {
	return s.documents.GetByCanonicalID(ctx, canonicalID)
}

// CountBySource returns the number of documents from one source.
func (s *Store) CountBySource(ctx context.Context, source string) (int, error) {
	return s.documents.Count(ctx, source)
}

// CountByStatus returns the number of documents in one status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int, error) {
	return s.documents.CountByStatus(ctx, status)
}

// RecentRuns returns the most recent run records, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	return s.runs.Recent(ctx, limit)
}

// LatestPerSource returns the most recently discovered documents for a
// source.
func (s *Store) LatestPerSource(ctx context.Context, source string, limit int) ([]*domain.Document, error) {
	return s.documents.LatestPerSource(ctx, source, limit)
}

// PurgeWithPageHashes removes the given documents, their analyses, and
// the change-detection state under the given page-key prefixes in one
// transaction, so a partial rollback can never leave a digest
// suppressing rediscovery of purged documents.
func (s *Store) PurgeWithPageHashes(ctx context.Context, ids []int64, hashPrefixes []string) (int64, int64, error) {
	return s.documents.PurgeWithPageHashes(ctx, ids, hashPrefixes)
}
