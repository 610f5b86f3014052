package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/regwatch/regwatch/internal/domain"
)

// Entry pairs a newly discovered document with its latest analysis,
// which may be nil when analysis was skipped or failed.
type Entry struct {
	Document *domain.Document
	Analysis *domain.AnalysisResult
}

const digestSeparator = "----------------------------------------"

// BuildDigest renders the subject and plain-text body of a run alert.
// The per-source breakdown in the subject lets a reader triage from the
// inbox list alone.
func BuildDigest(entries []Entry, startedAt time.Time) (subject, body string) {
	bySource := map[string]int{}
	for _, e := range entries {
		bySource[e.Document.Source]++
	}

	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s:%d", source, bySource[source]))
	}
	breakdown := strings.Join(parts, ", ")
	if breakdown == "" {
		breakdown = "N/A"
	}

	subject = fmt.Sprintf("[Compliance Monitor] %d new regulations (%s)", len(entries), breakdown)

	var sb strings.Builder
	sb.WriteString("Compliance Monitor - New Regulations Alert\n")
	sb.WriteString(fmt.Sprintf("Scrape started: %s\n", startedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString(fmt.Sprintf("New regulations in this run: %d\n", len(entries)))
	sb.WriteString(fmt.Sprintf("Breakdown: %s\n", breakdown))
	sb.WriteString("\n" + digestSeparator + "\n\n")

	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("#%d\n", i+1))
		sb.WriteString(formatEntry(e))
		sb.WriteString("\n\n" + digestSeparator + "\n\n")
	}

	return subject, sb.String()
}

func formatEntry(e Entry) string {
	doc := e.Document

	lines := []string{
		"Source: " + doc.Source,
		"Reference: " + doc.ReferenceNumber,
		"Title: " + doc.Title,
		"Issue Date: " + formatDate(doc.IssueDate),
		"Document Type: " + doc.DocumentType,
		"Category: " + doc.Category,
		"Page URL: " + doc.PageURL,
		"Document URL: " + formatOptional(doc.DocumentURL),
	}

	if e.Analysis != nil && e.Analysis.Summary != "" {
		gi := e.Analysis.GeneralIdea()
		impact := e.Analysis.Impact()
		if gi != "" || impact != "" {
			lines = append(lines, "", "7. General Idea:", valueOrNA(gi))
			lines = append(lines, "", "8. Impact:", valueOrNA(impact))
		} else {
			// Unstructured output still beats silence.
			lines = append(lines, "", "LLM Summary:", e.Analysis.Summary)
		}
	} else {
		lines = append(lines, "", "LLM Summary: N/A (no analysis generated)")
	}

	return strings.Join(lines, "\n")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}

func formatOptional(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
