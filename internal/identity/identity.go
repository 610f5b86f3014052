// Package identity derives canonical document identifiers.
//
// A canonical ID is the deterministic fingerprint of a document's
// (source, reference, date) identity. It is what makes crawling
// idempotent: crawlers never need to remember prior runs, they just
// re-derive the id and check the store.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// noDateSentinel stands in for a missing date so that the derived id
// stays stable whether or not a date was ever parsed.
const noDateSentinel = "NODATE"

// nonAlnumRe collapses anything outside [A-Za-z0-9] for last-resort refs.
var nonAlnumRe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Derive returns the canonical ID for (source, reference, date): the
// hex MD5 of "source_reference_date". Pure function; identical inputs
// produce identical ids across processes and runs.
func Derive(source, referenceNumber string, date *time.Time) string {
	var identifier string
	if date != nil {
		identifier = fmt.Sprintf("%s_%s_%s", source, referenceNumber, date.Format("2006-01-02"))
	} else {
		identifier = fmt.Sprintf("%s_%s_%s", source, referenceNumber, noDateSentinel)
	}
	sum := md5.Sum([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

// FallbackRef derives a stable reference number from structural parts of
// a document URL when no official reference is available. It prefers a
// download-manager id query parameter, then the terminal path segment.
// Volatile text such as truncated titles must never be used here: it
// changes between runs and would defeat dedup.
func FallbackRef(source, rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		safe := nonAlnumRe.ReplaceAllString(rawURL, "-")
		if len(safe) > 50 {
			safe = safe[:50]
		}
		return fmt.Sprintf("%s-%s", source, safe)
	}

	qs := parsed.Query()
	if id := qs.Get("wpdmdl"); id != "" {
		return fmt.Sprintf("%s-WPDM-%s", source, id)
	}

	path := strings.TrimRight(parsed.Path, "/")
	filename := path[strings.LastIndex(path, "/")+1:]
	if filename == "" {
		filename = "document"
	}
	filename = strings.TrimSuffix(filename, ".pdf")
	filename = strings.TrimSuffix(filename, ".PDF")
	if len(filename) > 50 {
		filename = filename[:50]
	}

	return fmt.Sprintf("%s-%s", source, filename)
}
