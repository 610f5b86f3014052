package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/regwatch/regwatch/internal/logger"
)

func pcpTableRow(jobID, dept, title, date, href, part string) string {
	return fmt.Sprintf(
		`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td><a href=%q>PDF</a></td><td></td><td>%s</td></tr>`,
		jobID, dept, title, date, href, part,
	)
}

func TestPCPCrawlKeepsOnlyRecentPartTwo(t *testing.T) {
	recentDate := time.Now().AddDate(0, 0, -10).Format("January 2, 2006")

	mux := http.NewServeMux()
	mux.HandleFunc("/Download", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><table id="myTable"><tbody>`)
		fmt.Fprint(w, pcpTableRow("5501", "Finance", "Customs tariff notification", recentDate, "/files/5501.pdf", "2"))
		fmt.Fprint(w, pcpTableRow("5502", "Interior", "Part three entry", recentDate, "/files/5502.pdf", "3"))
		fmt.Fprint(w, pcpTableRow("5503", "Finance", "Stale notification", "January 1, 2020", "/files/5503.pdf", "2"))
		fmt.Fprint(w, `</tbody></table></body></html>`)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-gazette"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := newMemSink()
	crawler := NewPCPCrawler(testCrawlConfig(), sink, logger.NewNoOp())
	crawler.downloadURL = srv.URL + "/Download"

	seen, err := crawler.Crawl(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != 3 {
		t.Errorf("seen = %d, want 3", seen)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("saved = %d, want 1 (only the recent Part-II row)", len(sink.saved))
	}

	doc := sink.saved[0]
	if doc.ReferenceNumber != "5501" {
		t.Errorf("reference = %q, want job id 5501", doc.ReferenceNumber)
	}
	if doc.Category != "Gazette Part-II" {
		t.Errorf("category = %q", doc.Category)
	}
	if doc.DocumentType != "SRO" {
		t.Errorf("document type = %q", doc.DocumentType)
	}
	if string(sink.content[doc.CanonicalID]) != "%PDF-gazette" {
		t.Error("stored content does not match served pdf")
	}
}

func TestPCPCrawlSkipsKnownDocuments(t *testing.T) {
	recentDate := time.Now().AddDate(0, 0, -10).Format("January 2, 2006")
	var pdfRequests int

	mux := http.NewServeMux()
	mux.HandleFunc("/Download", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><table id="myTable"><tbody>`)
		fmt.Fprint(w, pcpTableRow("5501", "Finance", "Known notification", recentDate, "/files/5501.pdf", "2"))
		fmt.Fprint(w, `</tbody></table></body></html>`)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, _ *http.Request) {
		pdfRequests++
		_, _ = w.Write([]byte("%PDF"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := newMemSink()

	first := NewPCPCrawler(testCrawlConfig(), sink, logger.NewNoOp())
	first.downloadURL = srv.URL + "/Download"
	if _, err := first.Crawl(context.Background(), false); err != nil {
		t.Fatalf("first crawl: %v", err)
	}

	second := NewPCPCrawler(testCrawlConfig(), sink, logger.NewNoOp())
	second.downloadURL = srv.URL + "/Download"
	if _, err := second.Crawl(context.Background(), false); err != nil {
		t.Fatalf("second crawl: %v", err)
	}

	if len(sink.saved) != 1 {
		t.Errorf("saved = %d, want 1", len(sink.saved))
	}
	if pdfRequests != 1 {
		t.Errorf("pdf fetched %d times, want 1 (known ids must not refetch)", pdfRequests)
	}
}
