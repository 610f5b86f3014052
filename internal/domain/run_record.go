package domain

import (
	"time"
)

// Run statuses. A run transitions running -> success|failed exactly once.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunRecord tracks one complete discovery cycle across all sources.
type RunRecord struct {
	ID          string     `db:"id"           json:"id"`
	StartedAt   time.Time  `db:"started_at"   json:"started_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Status      string     `db:"status"       json:"status"`

	// DocumentsFoundTotal is the total document count at run end.
	DocumentsFoundTotal int `db:"documents_found_total" json:"documents_found_total"`
	// NewDocuments is how many documents this run discovered.
	NewDocuments int `db:"new_documents" json:"new_documents"`

	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`
}

// Duration returns the wall time of a completed run, or zero if the run
// is still in flight.
func (r *RunRecord) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
