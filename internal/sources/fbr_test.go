package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/regwatch/regwatch/internal/changedetect"
	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
)

func testCrawlConfig() Config {
	return Config{
		Delay:       time.Millisecond,
		Parallelism: 2,
		RecencyDays: 100,
	}
}

func fbrTestServer(t *testing.T, rows []map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/ShowSROs", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>listing</body></html>")
	})
	mux.HandleFunc("/Home/LoadSROs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": rows})
	})
	mux.HandleFunc("/docs/a.pdf", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-fake-content"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFBRCrawler(srv *httptest.Server, sink Sink, hashStore changedetect.Store) *FBRCrawler {
	c := NewFBRCrawler(testCrawlConfig(), sink, changedetect.NewDetector(hashStore, logger.NewNoOp()), logger.NewNoOp())
	c.showURL = srv.URL + "/ShowSROs"
	c.apiURL = srv.URL + "/Home/LoadSROs"
	return c
}

func TestFBRCrawlDownloadsNewDocuments(t *testing.T) {
	recent := "/Date(" + strconv.FormatInt(time.Now().AddDate(0, 0, -5).UnixMilli(), 10) + ")/"

	var srvURL string
	rows := []map[string]any{
		{
			"SRONumber":     "SRO 100(I)/2025",
			"Title":         "Amendment to withholding rates",
			"CreationDate":  recent,
			"UploadedFile1": "", // filled in below once the server URL is known
		},
	}
	srv := fbrTestServer(t, rows)
	srvURL = srv.URL
	rows[0]["UploadedFile1"] = srvURL + "/docs/a.pdf"

	sink := newMemSink()
	crawler := newTestFBRCrawler(srv, sink, newMemHashStore())

	found, err := crawler.Crawl(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Three departments see the same row.
	if found != 3 {
		t.Errorf("found = %d, want 3", found)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("saved = %d documents, want 1", len(sink.saved))
	}

	doc := sink.saved[0]
	if doc.Source != domain.SourceFBR {
		t.Errorf("source = %q", doc.Source)
	}
	if doc.ReferenceNumber != "SRO 100(I)/2025" {
		t.Errorf("reference = %q", doc.ReferenceNumber)
	}
	if doc.IssueDate == nil {
		t.Error("expected a parsed issue date")
	}
	if string(sink.content[doc.CanonicalID]) != "%PDF-fake-content" {
		t.Error("stored content does not match served pdf")
	}
}

func TestFBRCrawlOldRowsTrackedMetadataOnly(t *testing.T) {
	rows := []map[string]any{
		{
			"SRONumber":     "SRO 9(I)/2019",
			"Title":         "Ancient notification",
			"CreationDate":  "01-01-2019",
			"UploadedFile1": "old.pdf",
		},
	}
	srv := fbrTestServer(t, rows)

	sink := newMemSink()
	crawler := newTestFBRCrawler(srv, sink, newMemHashStore())

	if _, err := crawler.Crawl(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.saved) != 0 {
		t.Errorf("saved = %d, want 0", len(sink.saved))
	}
	if len(sink.metaOnly) != 1 {
		t.Fatalf("metadata-only = %d, want 1", len(sink.metaOnly))
	}
	if sink.metaOnly[0].DocumentURL == nil {
		t.Error("expected document url to be recorded even without download")
	}
}

func TestFBRCrawlSkipsRowsWithoutStructuralRef(t *testing.T) {
	recent := "/Date(" + strconv.FormatInt(time.Now().AddDate(0, 0, -5).UnixMilli(), 10) + ")/"

	// Title only: no reference, no file. Identity derived from the
	// title would change with every rewording, so the row is skipped.
	rows := []map[string]any{
		{
			"Title":        "Notice regarding upcoming changes",
			"CreationDate": recent,
		},
		{
			"Title":         "Notice with a file but no number",
			"CreationDate":  recent,
			"UploadedFile1": "", // filled in below once the server URL is known
		},
	}
	srv := fbrTestServer(t, rows)
	rows[1]["UploadedFile1"] = srv.URL + "/docs/a.pdf"

	sink := newMemSink()
	crawler := newTestFBRCrawler(srv, sink, newMemHashStore())

	if _, err := crawler.Crawl(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, doc := range append(sink.saved, sink.metaOnly...) {
		if doc.ReferenceNumber == "" {
			t.Error("stored document without a reference")
		}
		if doc.Title == "Notice regarding upcoming changes" {
			t.Error("row without reference or file must be skipped")
		}
	}
	// The file-bearing row keeps its path-derived reference.
	if len(sink.saved)+len(sink.metaOnly) == 0 {
		t.Error("file-bearing row should still be tracked")
	}
}

func TestFBRCrawlSkipsUnchangedListing(t *testing.T) {
	rows := []map[string]any{
		{
			"SRONumber":    "SRO 1(I)/2020",
			"Title":        "Old",
			"CreationDate": "01-01-2020",
		},
	}
	srv := fbrTestServer(t, rows)

	sink := newMemSink()
	hashStore := newMemHashStore()

	first := newTestFBRCrawler(srv, sink, hashStore)
	if _, err := first.Crawl(context.Background(), false); err != nil {
		t.Fatalf("first crawl: %v", err)
	}
	metaAfterFirst := len(sink.metaOnly)

	// Same rows again: the page digest matches and the second pass
	// never reaches row processing.
	second := newTestFBRCrawler(srv, sink, hashStore)
	if _, err := second.Crawl(context.Background(), false); err != nil {
		t.Fatalf("second crawl: %v", err)
	}
	if len(sink.metaOnly) != metaAfterFirst {
		t.Errorf("second crawl stored %d new rows, want 0", len(sink.metaOnly)-metaAfterFirst)
	}
}

func TestDecodeFBRRowsDoubleEncoded(t *testing.T) {
	inner, _ := json.Marshal(map[string]any{"data": []map[string]any{{"SRONumber": "SRO 1"}}})
	outer, _ := json.Marshal(string(inner))

	rows, err := decodeFBRRows(outer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["SRONumber"] != "SRO 1" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestDecodeFBRRowsInvalid(t *testing.T) {
	if _, err := decodeFBRRows([]byte("<html>error page</html>")); err == nil {
		t.Error("expected error for non-json body")
	}
	if _, err := decodeFBRRows([]byte(`[1,2,3]`)); err == nil {
		t.Error("expected error for non-object payload")
	}
}

func TestStringField(t *testing.T) {
	row := map[string]any{"A": "", "B": "  ", "C": "value", "D": 42}
	if got := stringField(row, "A", "B", "C"); got != "value" {
		t.Errorf("got %q, want value", got)
	}
	if got := stringField(row, "D", "missing"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
