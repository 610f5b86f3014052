package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/regwatch/regwatch/internal/changedetect"
	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/identity"
	"github.com/regwatch/regwatch/internal/logger"
)

const (
	fbrShowURL     = "https://www.fbr.gov.pk/ShowSROs"
	fbrAPIURL      = "https://www.fbr.gov.pk/Home/LoadSROs"
	fbrDocsBase    = "https://download1.fbr.gov.pk/Docs/"
	fbrRecencyDays = 100
)

// fbrTarget is one department listing on the FBR portal.
type fbrTarget struct {
	Department string
	Category   string
	DocType    string
}

var fbrTargets = []fbrTarget{
	{Department: "Income Tax", Category: "Income Tax", DocType: "SRO"},
	{Department: "Sales Tax", Category: "Sales Tax", DocType: "SRO"},
	{Department: "Customs", Category: "Customs", DocType: "SRO"},
}

// FBRCrawler monitors the FBR SRO listings. The portal serves rows
// through a DataTables endpoint that needs a session cookie from the
// listing page first, so each department is a two-request dance:
// GET ShowSROs, then POST LoadSROs.
type FBRCrawler struct {
	config   Config
	sink     Sink
	detector *changedetect.Detector
	logger   logger.Interface
	now      func() time.Time

	showURL string
	apiURL  string
}

// NewFBRCrawler creates the FBR crawler. FBR publishes SROs in bursts,
// so its recency window is tighter than the other sources.
func NewFBRCrawler(cfg Config, sink Sink, detector *changedetect.Detector, log logger.Interface) *FBRCrawler {
	if cfg.RecencyDays <= 0 {
		cfg.RecencyDays = fbrRecencyDays
	}
	return &FBRCrawler{
		config:   cfg.withDefaults(),
		sink:     sink,
		detector: detector,
		logger:   log.WithComponent("fbr"),
		now:      time.Now,
		showURL:  fbrShowURL,
		apiURL:   fbrAPIURL,
	}
}

// Name returns the source tag.
func (c *FBRCrawler) Name() string { return domain.SourceFBR }

// Crawl walks every department listing once.
func (c *FBRCrawler) Crawl(ctx context.Context, force bool) (int, error) {
	var (
		mu    sync.Mutex
		found int
		errs  []error
	)

	collector, err := newCollector(ctx, c.config)
	if err != nil {
		return 0, err
	}

	collector.OnRequest(func(r *colly.Request) {
		if r.Ctx.Get("kind") == "api" {
			r.Headers.Set("Accept", "application/json, text/javascript, */*; q=0.01")
			r.Headers.Set("X-Requested-With", "XMLHttpRequest")
			r.Headers.Set("Origin", "https://www.fbr.gov.pk")
			r.Headers.Set("Referer", r.Ctx.Get("referer"))
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		switch r.Ctx.Get("kind") {
		case "show":
			// Session cookie acquired, now hit the DataTables endpoint.
			target := r.Ctx.GetAny("target").(fbrTarget)
			if err := c.postListing(collector, target, r.Request.URL.String()); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		case "api":
			target := r.Ctx.GetAny("target").(fbrTarget)
			n, err := c.handleListing(ctx, collector, target, r.Body, force)
			mu.Lock()
			found += n
			if err != nil {
				errs = append(errs, err)
			}
			mu.Unlock()
		case "pdf":
			doc := r.Ctx.GetAny("doc").(*domain.Document)
			if err := c.sink.UpsertWithContent(ctx, doc, r.Body); err != nil {
				c.logger.Error("failed to store document", "error", err, "reference", doc.ReferenceNumber)
			}
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.logger.Error("request failed", "error", err, "url", r.Request.URL.String())
		if kind := r.Ctx.Get("kind"); kind == "show" || kind == "api" {
			mu.Lock()
			errs = append(errs, fmt.Errorf("fbr %s request failed: %w", kind, err))
			mu.Unlock()
		}
	})

	for _, target := range fbrTargets {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		reqCtx := colly.NewContext()
		reqCtx.Put("kind", "show")
		reqCtx.Put("target", target)

		showURL := c.showURL + "?Department=" + url.QueryEscape(target.Department)
		if err := collector.Request(http.MethodGet, showURL, nil, reqCtx, nil); err != nil {
			errs = append(errs, fmt.Errorf("failed to request %s listing: %w", target.Department, err))
		}
	}
	collector.Wait()

	return found, errors.Join(errs...)
}

// postListing issues the DataTables POST for one department.
func (c *FBRCrawler) postListing(collector *colly.Collector, target fbrTarget, referer string) error {
	form := fbrListingForm(target.Department)

	reqCtx := colly.NewContext()
	reqCtx.Put("kind", "api")
	reqCtx.Put("target", target)
	reqCtx.Put("referer", referer)

	hdr := http.Header{}
	hdr.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	if err := collector.Request(http.MethodPost, c.apiURL, strings.NewReader(form.Encode()), reqCtx, hdr); err != nil {
		return fmt.Errorf("failed to post listing for %s: %w", target.Department, err)
	}
	return nil
}

// handleListing processes the JSON rows for one department.
func (c *FBRCrawler) handleListing(ctx context.Context, collector *colly.Collector, target fbrTarget, body []byte, force bool) (int, error) {
	rows, err := decodeFBRRows(body)
	if err != nil {
		return 0, fmt.Errorf("failed to decode listing for %s: %w", target.Department, err)
	}
	if len(rows) == 0 {
		c.logger.Warn("no rows in listing", "department", target.Department)
		return 0, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		id := stringField(row, "SRONumber", "SRO", "SRONo", "Title", "UploadedFile1")
		if id != "" {
			ids = append(ids, id)
		}
	}
	digest := changedetect.HashOf(ids)
	pageKey := "FBR:" + target.Department

	skip, err := c.detector.ShouldSkip(ctx, pageKey, digest, force)
	if err != nil {
		c.logger.Warn("change detection unavailable, rescanning", "error", err, "page", pageKey)
	} else if skip {
		c.logger.Info("listing unchanged, skipping", "department", target.Department)
		return len(rows), nil
	}

	cutoff := c.config.cutoff(c.now())
	pageURL := c.showURL + "?Department=" + url.QueryEscape(target.Department)

	for _, row := range rows {
		if ctx.Err() != nil {
			return len(rows), ctx.Err()
		}

		ref := stringField(row, "SRONumber", "SRO", "SRONo")
		title := stringField(row, "Title", "title")
		dateStr := stringField(row, "CreationDate", "creationDate")
		fileField := stringField(row, "UploadedFile1", "UploadedFile", "FilePath", "filePath")

		if ref == "" {
			if fileField == "" {
				// No structural identifier at all. Titles drift
				// between listings, so an id derived from one would
				// duplicate the document on the next wording change.
				c.logger.Warn("row without reference or file, skipping",
					"department", target.Department, "title", title)
				continue
			}
			ref = identity.FallbackRef(domain.SourceFBR, fileField)
		}

		issueDate := ParseDate(dateStr)
		canonicalID := identity.Derive(domain.SourceFBR, ref, issueDate)

		exists, err := c.sink.Exists(ctx, canonicalID)
		if err != nil {
			c.logger.Error("failed to check document", "error", err, "reference", ref)
			continue
		}
		if exists {
			continue
		}

		pdfURL := fileField
		if pdfURL != "" && !strings.HasPrefix(pdfURL, "http") {
			pdfURL = strings.TrimRight(fbrDocsBase+fileField, "/")
		}

		if title == "" {
			title = "FBR " + ref
		}
		doc := &domain.Document{
			CanonicalID:     canonicalID,
			Source:          domain.SourceFBR,
			PageURL:         pageURL,
			ReferenceNumber: ref,
			Title:           truncateTitle(title),
			Category:        target.Category,
			DocumentType:    target.DocType,
			IssueDate:       issueDate,
		}
		if pdfURL != "" {
			doc.DocumentURL = &pdfURL
		}

		if tooOld(issueDate, cutoff) || pdfURL == "" {
			c.logger.Info("new document, metadata only", "reference", ref, "department", target.Department)
			if err := c.sink.UpsertMetadataOnly(ctx, doc); err != nil {
				c.logger.Error("failed to store metadata", "error", err, "reference", ref)
			}
			continue
		}

		c.logger.Info("new document", "reference", ref, "department", target.Department)
		pdfCtx := colly.NewContext()
		pdfCtx.Put("kind", "pdf")
		pdfCtx.Put("doc", doc)
		if err := collector.Request(http.MethodGet, pdfURL, nil, pdfCtx, nil); err != nil {
			c.logger.Error("failed to request pdf", "error", err, "url", pdfURL)
		}
	}

	if err := c.detector.Record(ctx, pageKey, digest); err != nil {
		c.logger.Warn("failed to record page digest", "error", err, "page", pageKey)
	}
	return len(rows), nil
}

// fbrListingForm builds the DataTables request body the portal expects.
func fbrListingForm(department string) url.Values {
	form := url.Values{}
	form.Set("draw", "1")
	form.Set("start", "0")
	form.Set("length", "100")
	form.Set("search[value]", "")
	form.Set("search[regex]", "false")
	form.Set("order[0][column]", "0")
	form.Set("order[0][dir]", "asc")

	columns := []string{"SRONumber", "Title", "CreationDate", "CategoryTitle", "UploadedFile1"}
	for i, name := range columns {
		prefix := fmt.Sprintf("columns[%d]", i)
		form.Set(prefix+"[data]", name)
		if name == "UploadedFile1" {
			form.Set(prefix+"[name]", "")
		} else {
			form.Set(prefix+"[name]", name)
		}
		form.Set(prefix+"[searchable]", "true")
		form.Set(prefix+"[orderable]", "true")
		form.Set(prefix+"[search][value]", "")
		form.Set(prefix+"[search][regex]", "false")
	}

	form.Set("department", department)
	return form
}

// decodeFBRRows decodes the DataTables payload, tolerating the portal's
// occasional double encoding (a JSON string containing JSON).
func decodeFBRRows(body []byte) ([]map[string]any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	if s, ok := payload.(string); ok {
		if err := json.Unmarshal([]byte(s), &payload); err != nil {
			return nil, fmt.Errorf("invalid nested json: %w", err)
		}
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}

	raw := obj["data"]
	if raw == nil {
		raw = obj["Data"]
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, nil
	}

	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// stringField returns the first non-empty string value among keys.
func stringField(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}
