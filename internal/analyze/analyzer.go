package analyze

import (
	"context"
	"regexp"
	"strings"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
)

// ResultStore persists analysis output. *store.Store satisfies it.
type ResultStore interface {
	RecordAnalysis(ctx context.Context, result *domain.AnalysisResult, domainLabel *string) error
	SetDomain(ctx context.Context, documentID int64, domainLabel string) error
}

// Analyzer runs model analyses over document text and persists the
// results. Analysis failures are logged and swallowed: a gateway outage
// must never fail a crawl run, it just leaves documents unanalyzed for
// the next pass.
type Analyzer struct {
	completer Completer
	store     ResultStore
	maxChars  int
	logger    logger.Interface
}

// NewAnalyzer creates an Analyzer. A non-positive maxChars falls back
// to DefaultMaxPromptChars.
func NewAnalyzer(completer Completer, store ResultStore, maxChars int, log logger.Interface) *Analyzer {
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}
	return &Analyzer{
		completer: completer,
		store:     store,
		maxChars:  maxChars,
		logger:    log.WithComponent("analyze"),
	}
}

// Summarize runs the identify analysis for a document and stores the
// result. Returns nil when the document text is empty, the gateway
// fails, or the model returns nothing.
func (a *Analyzer) Summarize(ctx context.Context, doc *domain.Document, documentText string) *domain.AnalysisResult {
	text := Clean(documentText, a.maxChars)
	if text == "" {
		a.logger.Warn("skipping analysis, cleaned document text is empty",
			"document_id", doc.ID, "reference", doc.ReferenceNumber)
		return nil
	}

	prompt, err := BuildPrompt(KindIdentify, doc, text)
	if err != nil {
		a.logger.Error("failed to build prompt", "error", err, "document_id", doc.ID)
		return nil
	}

	summary, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("model completion failed", "error", err, "document_id", doc.ID)
		return nil
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		a.logger.Warn("model returned empty summary", "document_id", doc.ID)
		return nil
	}

	result := &domain.AnalysisResult{
		DocumentID: doc.ID,
		ModelID:    a.completer.ModelID(),
		Summary:    summary,
	}
	if err := a.store.RecordAnalysis(ctx, result, nil); err != nil {
		a.logger.Error("failed to store analysis", "error", err, "document_id", doc.ID)
		return nil
	}

	a.logger.Info("stored analysis",
		"document_id", doc.ID, "reference", doc.ReferenceNumber, "model", result.ModelID)
	return result
}

// ClassifyDomain runs the classify analysis and updates the document's
// domain label. The model output itself is not stored; only the parsed
// label survives. Returns the label, or "" when classification failed
// or produced nothing parseable.
func (a *Analyzer) ClassifyDomain(ctx context.Context, doc *domain.Document, documentText string) string {
	text := Clean(documentText, a.maxChars)
	if text == "" {
		return ""
	}

	prompt, err := BuildPrompt(KindClassify, doc, text)
	if err != nil {
		a.logger.Error("failed to build prompt", "error", err, "document_id", doc.ID)
		return ""
	}

	output, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("model classification failed", "error", err, "document_id", doc.ID)
		return ""
	}

	label := ExtractDomain(output)
	if label == "" {
		a.logger.Warn("classification output had no parseable domain", "document_id", doc.ID)
		return ""
	}

	if err := a.store.SetDomain(ctx, doc.ID, label); err != nil {
		a.logger.Error("failed to store domain label", "error", err, "document_id", doc.ID)
		return ""
	}
	return label
}

// domainRe tolerantly matches a "Domain: <label>" line anywhere in the
// model output.
var domainRe = regexp.MustCompile(`(?i)Domain\s*:\s*([A-Za-z \-/&]+)`)

// ExtractDomain pulls the domain label out of classification output.
// Labels are capped at 100 characters; no match yields "".
func ExtractDomain(output string) string {
	if output == "" {
		return ""
	}
	m := domainRe.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	label := strings.TrimSpace(m[1])
	if len(label) > 100 {
		label = label[:100]
	}
	return label
}
