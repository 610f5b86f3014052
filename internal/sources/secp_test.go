package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
)

func secpListingRow(date, title, href string) string {
	return fmt.Sprintf(
		`<tr class="download-row-table"><td class="download-date">%s</td><td class="download-title">%s</td><td class="download-link"><a href=%q>Download</a></td></tr>`,
		date, title, href,
	)
}

func TestSECPCrawlDirectAndDetailLinks(t *testing.T) {
	recentDate := time.Now().AddDate(0, 0, -20).Format("02-01-2006")

	mux := http.NewServeMux()
	mux.HandleFunc("/laws/notifications/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><table>")
		fmt.Fprint(w, secpListingRow(recentDate, "Direct download circular", "/download/?wpdmdl=4242"))
		fmt.Fprint(w, secpListingRow(recentDate, "Listing title", "/laws/detail-page/"))
		fmt.Fprint(w, secpListingRow("01-01-2019", "Stale entry", "/download/?wpdmdl=1111"))
		fmt.Fprint(w, "</table></body></html>")
	})
	mux.HandleFunc("/laws/detail-page/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Companies Circular No. 7 of 2025</h1>`)
		fmt.Fprint(w, `<p>The Commission issues Circular No. 7 under the Companies Act.</p>`)
		fmt.Fprint(w, `<a href="/files/circular7.pdf">Download PDF</a></body></html>`)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-wpdm"))
	})
	mux.HandleFunc("/files/circular7.pdf", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-detail"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := newMemSink()
	crawler := NewSECPCrawler(testCrawlConfig(), sink, logger.NewNoOp())
	crawler.listingURLs = []string{srv.URL + "/laws/notifications/"}

	found, err := crawler.Crawl(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != 3 {
		t.Errorf("found = %d rows, want 3", found)
	}
	// The stale row is filtered by the recency cutoff.
	if len(sink.saved) != 2 {
		t.Fatalf("saved = %d, want 2", len(sink.saved))
	}

	byRef := map[string]*domain.Document{}
	for _, doc := range sink.saved {
		byRef[doc.ReferenceNumber] = doc
	}

	direct, ok := byRef["SECP-WPDM-4242"]
	if !ok {
		t.Fatalf("missing wpdmdl document, got refs %v", refsOf(sink.saved))
	}
	if direct.DocumentType != "Notification" {
		t.Errorf("direct doc type = %q", direct.DocumentType)
	}
	if string(sink.content[direct.CanonicalID]) != "%PDF-wpdm" {
		t.Error("direct document content mismatch")
	}

	detail, ok := byRef["Circular No. 7"]
	if !ok {
		t.Fatalf("missing detail-page document, got refs %v", refsOf(sink.saved))
	}
	if detail.Title != "Companies Circular No. 7 of 2025" {
		t.Errorf("detail title = %q, want the page h1", detail.Title)
	}
	if string(sink.content[detail.CanonicalID]) != "%PDF-detail" {
		t.Error("detail document content mismatch")
	}
}

func refsOf(docs []*domain.Document) []string {
	refs := make([]string, len(docs))
	for i, d := range docs {
		refs[i] = d.ReferenceNumber
	}
	return refs
}

func TestSECPDocType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.secp.gov.pk/laws/notifications/", "Notification"},
		{"https://www.secp.gov.pk/laws/ordinances/", "Ordinance"},
		{"https://www.secp.gov.pk/laws/other/", "Document"},
	}
	for _, tt := range tests {
		if got := secpDocType(tt.url); got != tt.want {
			t.Errorf("secpDocType(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
