package domain

import (
	"regexp"
	"strings"
	"time"
)

// AnalysisResult is a single model analysis of a document. Rows are
// append-only: a document may accumulate several over re-analysis, and
// "latest" is the max by CreatedAt.
type AnalysisResult struct {
	ID         int64  `db:"id"          json:"id"`
	DocumentID int64  `db:"document_id" json:"document_id"`
	ModelID    string `db:"model_id"    json:"model_id"`

	// Summary is the free-text model output. The structured sections
	// below are derived from it on demand, never stored redundantly.
	Summary     string    `db:"summary"      json:"summary"`
	RawResponse *string   `db:"raw_response" json:"raw_response,omitempty"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// Section markers in the numbered summary format. The general-idea
// section is item 7, impact is item 8.
var (
	generalIdeaRe = regexp.MustCompile(`(?s)7\.\s*General Idea:\s*(\S.*?)(?:\n\s*8\.\s*Impact:|\z)`)
	impactRe      = regexp.MustCompile(`(?s)8\.\s*Impact:\s*(\S.*)`)
	anySevenRe    = regexp.MustCompile(`(?s)7\.\s*(.*)`)
)

// GeneralIdea extracts the "General Idea" section from the summary, or
// returns an empty string if the marker is absent.
func (a *AnalysisResult) GeneralIdea() string {
	if a.Summary == "" {
		return ""
	}
	m := generalIdeaRe.FindStringSubmatch(a.Summary)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Impact extracts the "Impact" section from the summary, or returns an
// empty string if the marker is absent.
func (a *AnalysisResult) Impact() string {
	if a.Summary == "" {
		return ""
	}
	m := impactRe.FindStringSubmatch(a.Summary)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// GeneralIdeaAndImpact returns the summary from the general-idea marker
// onward. Falls back to any "7." marker, then to the full summary, so
// callers always get something to show.
func (a *AnalysisResult) GeneralIdeaAndImpact() string {
	if a.Summary == "" {
		return ""
	}
	if idx := strings.Index(a.Summary, "7. General Idea"); idx >= 0 {
		return strings.TrimSpace(a.Summary[idx:])
	}
	if m := anySevenRe.FindStringIndex(a.Summary); m != nil {
		return strings.TrimSpace(a.Summary[m[0]:])
	}
	return strings.TrimSpace(a.Summary)
}
