// Package changedetect decides whether a listing page changed since the
// last crawl.
//
// The digest is a cheap, lossy signal over the page's stable row
// identifiers. It intentionally does not guarantee per-item novelty;
// item novelty is always re-verified against the document store via the
// canonical ID, whatever this package says about the page.
package changedetect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/regwatch/regwatch/internal/logger"
)

// Store persists page digests between runs.
type Store interface {
	// GetHash returns the stored digest for a page key, or "" if none.
	GetHash(ctx context.Context, pageKey string) (string, error)
	// UpsertHash stores the digest and refreshes last_checked.
	UpsertHash(ctx context.Context, pageKey, digest string) error
}

// Detector compares listing-page digests against stored state.
type Detector struct {
	store  Store
	logger logger.Interface
}

// NewDetector creates a change detector backed by the given store.
func NewDetector(store Store, log logger.Interface) *Detector {
	return &Detector{store: store, logger: log}
}

// HashOf returns the hex SHA-256 over the sorted identifiers. Sorting
// first makes the digest independent of row order, so a reshuffled feed
// page does not falsely signal change.
func HashOf(ids []string) string {
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	h := sha256.New()
	for _, id := range sorted {
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ShouldSkip reports whether the page can be skipped: a stored digest
// exists, matches the computed one, and force is false. Force supports
// deliberate re-scans for operational testing and backfill.
func (d *Detector) ShouldSkip(ctx context.Context, pageKey, digest string, force bool) (bool, error) {
	if force {
		return false, nil
	}

	stored, err := d.store.GetHash(ctx, pageKey)
	if err != nil {
		return false, fmt.Errorf("failed to load stored digest: %w", err)
	}

	if stored != "" && stored == digest {
		d.logger.Info("Listing unchanged, skipping", "page_key", pageKey)
		return true, nil
	}

	return false, nil
}

// Record upserts the digest for a page key.
func (d *Detector) Record(ctx context.Context, pageKey, digest string) error {
	if err := d.store.UpsertHash(ctx, pageKey, digest); err != nil {
		return fmt.Errorf("failed to record digest: %w", err)
	}
	return nil
}
