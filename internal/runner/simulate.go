package runner

import (
	"context"
	"fmt"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
)

// SimulateStore is the persistence surface the rollback needs.
// *store.Store satisfies it.
type SimulateStore interface {
	LatestPerSource(ctx context.Context, source string, limit int) ([]*domain.Document, error)
	PurgeWithPageHashes(ctx context.Context, ids []int64, hashPrefixes []string) (int64, int64, error)
}

// Simulate rolls back the latest documents so the next run rediscovers
// them: it purges up to count documents per source along with their
// analyses, and clears the sources' page digests so change detection
// cannot short-circuit the rescan. Then it triggers a run.
//
// This exists for end-to-end verification of the discovery pipeline
// against live sources without waiting for the regulators to publish.
func Simulate(ctx context.Context, st SimulateStore, orch *Orchestrator, count int, srcs []string, log logger.Interface) (*domain.RunRecord, error) {
	if count <= 0 {
		count = 5
	}
	if len(srcs) == 0 {
		srcs = []string{domain.SourceFBR, domain.SourceSECP, domain.SourcePCP}
	}
	log = log.WithComponent("simulate")

	var ids []int64
	for _, source := range srcs {
		docs, err := st.LatestPerSource(ctx, source, count)
		if err != nil {
			return nil, fmt.Errorf("failed to select documents for %s: %w", source, err)
		}
		for _, doc := range docs {
			ids = append(ids, doc.ID)
		}
	}

	if len(ids) == 0 {
		log.Info("nothing to roll back")
	}

	// One transaction for documents, analyses and page digests: a
	// digest surviving a partial rollback would suppress rediscovery
	// of the purged documents on the next non-forced run.
	prefixes := make([]string, len(srcs))
	for i, source := range srcs {
		prefixes[i] = source + ":"
	}
	purged, cleared, err := st.PurgeWithPageHashes(ctx, ids, prefixes)
	if err != nil {
		return nil, fmt.Errorf("failed to roll back documents: %w", err)
	}
	log.Info("rolled back", "documents", purged, "page_digests", cleared)

	// force bypasses any digest a source stored outside the prefix
	// convention.
	return orch.Run(ctx, true)
}
