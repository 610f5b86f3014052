// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Document statuses.
const (
	// StatusNew marks a document discovered in the most recent run.
	StatusNew = "new"
	// StatusTrackedNoPDF marks a document tracked by metadata only,
	// with no retrievable binary.
	StatusTrackedNoPDF = "tracked_no_pdf"
	// StatusDownloaded marks a document whose binary has been stored.
	StatusDownloaded = "downloaded"
	// StatusProcessed marks a document that has been analyzed.
	StatusProcessed = "processed"
)

// Known source tags.
const (
	SourceFBR  = "FBR"
	SourceSECP = "SECP"
	SourcePCP  = "PCP"
)

// Document represents a discovered regulatory document or notice.
// CanonicalID is the deterministic dedup key; a second discovery with the
// same id is a no-op, never a duplicate row.
type Document struct {
	ID          int64  `db:"id"           json:"id"`
	CanonicalID string `db:"canonical_id" json:"canonical_id"`
	Source      string `db:"source"       json:"source"`

	PageURL     string  `db:"page_url"     json:"page_url"`
	DocumentURL *string `db:"document_url" json:"document_url,omitempty"`

	ReferenceNumber string `db:"reference_number" json:"reference_number"`
	Title           string `db:"title"            json:"title"`
	Category        string `db:"category"         json:"category"`
	DocumentType    string `db:"document_type"    json:"document_type"`

	// Domain is the classification label (e.g. Taxation, Corporate Law).
	// Filled in later by the classifier, may be empty.
	Domain *string `db:"domain" json:"domain,omitempty"`

	IssueDate     *time.Time `db:"issue_date"     json:"issue_date,omitempty"`
	EffectiveDate *time.Time `db:"effective_date" json:"effective_date,omitempty"`

	// ContentHash is the SHA-256 of the raw binary, set once content is
	// fetched. A changed hash under the same reference signals a silent
	// re-issue of the document.
	ContentHash *string `db:"content_hash" json:"content_hash,omitempty"`
	StoragePath *string `db:"storage_path" json:"storage_path,omitempty"`

	Status       string     `db:"status"        json:"status"`
	DiscoveredAt time.Time  `db:"discovered_at" json:"discovered_at"`
	LastChecked  *time.Time `db:"last_checked"  json:"last_checked,omitempty"`
}

// HasContent reports whether a binary artifact has been stored for
// this document.
func (d *Document) HasContent() bool {
	return d.StoragePath != nil && *d.StoragePath != ""
}

// DomainLabel returns the classification label or an empty string.
func (d *Document) DomainLabel() string {
	if d.Domain == nil {
		return ""
	}
	return *d.Domain
}
