// Package runner orchestrates a full discovery and analysis cycle:
// crawl every source, analyze what arrived, and send the digest.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
	"github.com/regwatch/regwatch/internal/notify"
	"github.com/regwatch/regwatch/internal/sources"
)

// ErrRunInProgress is returned when a run is triggered while another is
// still executing. Runs are strictly serialized; overlapping crawls of
// the same sources would race on change detection.
var ErrRunInProgress = errors.New("a run is already in progress")

// Store is the persistence surface the orchestrator needs.
// *store.Store satisfies it.
type Store interface {
	CreateRun(ctx context.Context, run *domain.RunRecord) error
	FinishRun(ctx context.Context, run *domain.RunRecord) error
	CountDocuments(ctx context.Context) (int, error)
	ListDiscoveredSince(ctx context.Context, since time.Time) ([]*domain.Document, error)
	ReadArtifact(path string) ([]byte, error)
	SetStatus(ctx context.Context, documentID int64, status string) error
}

// TextPipeline extracts analyzable text from stored PDF bytes.
type TextPipeline interface {
	Text(ctx context.Context, content []byte) string
}

// Analyzer runs model analyses for a document.
type Analyzer interface {
	Summarize(ctx context.Context, doc *domain.Document, documentText string) *domain.AnalysisResult
	ClassifyDomain(ctx context.Context, doc *domain.Document, documentText string) string
}

const defaultCrawlTimeout = 15 * time.Minute

// Orchestrator drives one run at a time across all configured sources.
type Orchestrator struct {
	store        Store
	crawlers     []sources.Crawler
	text         TextPipeline
	analyzer     Analyzer
	notifier     notify.Notifier
	crawlTimeout time.Duration
	logger       logger.Interface
	now          func() time.Time

	running atomic.Bool
}

// New creates an orchestrator. text, analyzer and notifier may be nil;
// the corresponding stage is then skipped.
func New(st Store, crawlers []sources.Crawler, text TextPipeline, analyzer Analyzer, notifier notify.Notifier, crawlTimeout time.Duration, log logger.Interface) *Orchestrator {
	if crawlTimeout <= 0 {
		crawlTimeout = defaultCrawlTimeout
	}
	return &Orchestrator{
		store:        st,
		crawlers:     crawlers,
		text:         text,
		analyzer:     analyzer,
		notifier:     notifier,
		crawlTimeout: crawlTimeout,
		logger:       log.WithComponent("runner"),
		now:          time.Now,
	}
}

// Busy reports whether a run is currently executing.
func (o *Orchestrator) Busy() bool { return o.running.Load() }

// Run executes one full cycle and returns its record. A single source
// failing is logged and isolated; the run still succeeds. Only failures
// of the run machinery itself (persistence of the run, the new-document
// query) mark the run failed.
func (o *Orchestrator) Run(ctx context.Context, force bool) (*domain.RunRecord, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	run := &domain.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: o.now().UTC(),
		Status:    domain.RunStatusRunning,
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	o.logger.Info("run started", "run_id", run.ID, "force", force)

	countBefore, err := o.store.CountDocuments(ctx)
	if err != nil {
		return o.fail(ctx, run, fmt.Errorf("failed to snapshot document count: %w", err))
	}

	for _, crawler := range o.crawlers {
		if ctx.Err() != nil {
			return o.fail(ctx, run, ctx.Err())
		}

		crawlCtx, cancel := context.WithTimeout(ctx, o.crawlTimeout)
		found, err := crawler.Crawl(crawlCtx, force)
		cancel()

		if err != nil {
			// Source isolation: one broken regulator site must not
			// block discovery from the others.
			o.logger.Error("source crawl failed, continuing",
				"source", crawler.Name(), "error", err)
			continue
		}
		o.logger.Info("source crawled", "source", crawler.Name(), "rows_seen", found)
	}

	newDocs, err := o.store.ListDiscoveredSince(ctx, run.StartedAt)
	if err != nil {
		return o.fail(ctx, run, fmt.Errorf("failed to list new documents: %w", err))
	}

	entries := make([]notify.Entry, 0, len(newDocs))
	analyzed := 0
	for _, doc := range newDocs {
		var analysis *domain.AnalysisResult
		if doc.HasContent() {
			analysis = o.analyzeDocument(ctx, doc)
			if analysis != nil {
				analyzed++
			}
		} else {
			o.logger.Info("skipping analysis, no stored binary",
				"document_id", doc.ID, "reference", doc.ReferenceNumber)
		}
		entries = append(entries, notify.Entry{Document: doc, Analysis: analysis})
	}

	countAfter, err := o.store.CountDocuments(ctx)
	if err != nil {
		return o.fail(ctx, run, fmt.Errorf("failed to count documents: %w", err))
	}

	// Digest delivery is best-effort; the run outcome never depends on it.
	if len(entries) > 0 && o.notifier != nil {
		subject, body := notify.BuildDigest(entries, run.StartedAt)
		if _, err := o.notifier.Notify(subject, body); err != nil {
			o.logger.Error("failed to send run digest", "error", err)
		}
	}

	completed := o.now().UTC()
	run.CompletedAt = &completed
	run.Status = domain.RunStatusSuccess
	run.DocumentsFoundTotal = countAfter
	run.NewDocuments = countAfter - countBefore
	if err := o.store.FinishRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to finish run record: %w", err)
	}

	o.logger.Info("run completed",
		"run_id", run.ID, "new_documents", run.NewDocuments, "analyzed", analyzed)
	return run, nil
}

// analyzeDocument extracts text and runs both analyses for one
// document. Every failure inside degrades to "no analysis".
func (o *Orchestrator) analyzeDocument(ctx context.Context, doc *domain.Document) *domain.AnalysisResult {
	if o.text == nil || o.analyzer == nil {
		return nil
	}

	content, err := o.store.ReadArtifact(*doc.StoragePath)
	if err != nil {
		o.logger.Error("failed to read stored artifact",
			"error", err, "document_id", doc.ID, "path", *doc.StoragePath)
		return nil
	}

	text := o.text.Text(ctx, content)
	if text == "" {
		o.logger.Warn("no extractable text", "document_id", doc.ID, "reference", doc.ReferenceNumber)
		return nil
	}

	analysis := o.analyzer.Summarize(ctx, doc, text)
	o.analyzer.ClassifyDomain(ctx, doc, text)

	if analysis != nil {
		if err := o.store.SetStatus(ctx, doc.ID, domain.StatusProcessed); err != nil {
			o.logger.Warn("failed to mark document processed", "error", err, "document_id", doc.ID)
		}
	}
	return analysis
}

func (o *Orchestrator) fail(ctx context.Context, run *domain.RunRecord, cause error) (*domain.RunRecord, error) {
	o.logger.Error("run failed", "run_id", run.ID, "error", cause)

	completed := o.now().UTC()
	msg := cause.Error()
	run.CompletedAt = &completed
	run.Status = domain.RunStatusFailed
	run.ErrorMessage = &msg
	if err := o.store.FinishRun(ctx, run); err != nil {
		o.logger.Error("failed to persist failed run", "run_id", run.ID, "error", err)
	}
	return run, cause
}
