package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/identity"
	"github.com/regwatch/regwatch/internal/logger"
)

var secpListingURLs = []string{
	"https://www.secp.gov.pk/laws/notifications/",
	"https://www.secp.gov.pk/laws/ordinances/",
}

const secpCategory = "Corporate/Securities"

// SECPCrawler monitors the SECP laws pages. Listings either link a
// download-manager URL directly (wpdmdl) or a detail page that needs a
// second hop to find the PDF.
//
// SECP canonical ids deliberately exclude the issue date: listing dates
// drift as pages are re-edited, and including them produced duplicate
// rows for the same document.
type SECPCrawler struct {
	config Config
	sink   Sink
	logger logger.Interface
	now    func() time.Time

	listingURLs []string
}

// NewSECPCrawler creates the SECP crawler.
func NewSECPCrawler(cfg Config, sink Sink, log logger.Interface) *SECPCrawler {
	return &SECPCrawler{
		config:      cfg.withDefaults(),
		sink:        sink,
		logger:      log.WithComponent("secp"),
		now:         time.Now,
		listingURLs: secpListingURLs,
	}
}

// Name returns the source tag.
func (c *SECPCrawler) Name() string { return domain.SourceSECP }

// Crawl walks the notification and ordinance listings once.
func (c *SECPCrawler) Crawl(ctx context.Context, _ bool) (int, error) {
	var (
		mu    sync.Mutex
		found int
		errs  []error
	)
	cutoff := c.config.cutoff(c.now())

	collector, err := newCollector(ctx, c.config)
	if err != nil {
		return 0, err
	}

	collector.OnHTML("tr.download-row-table", func(e *colly.HTMLElement) {
		if e.Request.Ctx.Get("kind") != "listing" {
			return
		}
		mu.Lock()
		found++
		mu.Unlock()

		c.handleListingRow(ctx, collector, e, cutoff)
	})

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		if e.Request.Ctx.Get("kind") != "detail" {
			return
		}
		c.handleDetailPage(ctx, collector, e)
	})

	collector.OnResponse(func(r *colly.Response) {
		if r.Ctx.Get("kind") != "pdf" {
			return
		}
		doc := r.Ctx.GetAny("doc").(*domain.Document)
		if err := c.sink.UpsertWithContent(ctx, doc, r.Body); err != nil {
			c.logger.Error("failed to store document", "error", err, "reference", doc.ReferenceNumber)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.logger.Error("request failed", "error", err, "url", r.Request.URL.String())
		if r.Ctx.Get("kind") == "listing" {
			mu.Lock()
			errs = append(errs, fmt.Errorf("secp listing request failed: %w", err))
			mu.Unlock()
		}
	})

	for _, listingURL := range c.listingURLs {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		reqCtx := colly.NewContext()
		reqCtx.Put("kind", "listing")
		if err := collector.Request(http.MethodGet, listingURL, nil, reqCtx, nil); err != nil {
			errs = append(errs, fmt.Errorf("failed to request %s: %w", listingURL, err))
		}
	}
	collector.Wait()

	return found, errors.Join(errs...)
}

func (c *SECPCrawler) handleListingRow(ctx context.Context, collector *colly.Collector, e *colly.HTMLElement, cutoff time.Time) {
	docType := secpDocType(e.Request.URL.String())
	dateStr := strings.TrimSpace(e.ChildText("td.download-date"))
	title := strings.TrimSpace(e.ChildText("td.download-title"))
	href := e.ChildAttr("td.download-link a", "href")

	if href == "" {
		c.logger.Warn("listing row without document link", "page", e.Request.URL.String())
		return
	}

	issueDate := ParseDate(dateStr)
	if tooOld(issueDate, cutoff) {
		return
	}

	if strings.Contains(href, "wpdmdl") {
		pdfURL := e.Request.AbsoluteURL(href)
		ref := identity.FallbackRef(domain.SourceSECP, pdfURL)
		canonicalID := identity.Derive(domain.SourceSECP, ref, nil)

		exists, err := c.sink.Exists(ctx, canonicalID)
		if err != nil {
			c.logger.Error("failed to check document", "error", err, "reference", ref)
			return
		}
		if exists {
			return
		}

		if title == "" {
			title = ref
		}
		c.logger.Info("new document", "reference", ref, "type", docType)
		c.requestPDF(collector, pdfURL, &domain.Document{
			CanonicalID:     canonicalID,
			Source:          domain.SourceSECP,
			PageURL:         e.Request.URL.String(),
			DocumentURL:     &pdfURL,
			ReferenceNumber: ref,
			Title:           truncateTitle(title),
			Category:        secpCategory,
			DocumentType:    docType,
			IssueDate:       issueDate,
		})
		return
	}

	// Detail page hop.
	reqCtx := colly.NewContext()
	reqCtx.Put("kind", "detail")
	reqCtx.Put("docType", docType)
	reqCtx.Put("listingURL", e.Request.URL.String())
	reqCtx.Put("title", title)
	reqCtx.Put("issueDate", issueDate)
	if err := collector.Request(http.MethodGet, e.Request.AbsoluteURL(href), nil, reqCtx, nil); err != nil {
		c.logger.Error("failed to request detail page", "error", err, "url", href)
	}
}

func (c *SECPCrawler) handleDetailPage(ctx context.Context, collector *colly.Collector, e *colly.HTMLElement) {
	docType := e.Request.Ctx.Get("docType")
	listingURL := e.Request.Ctx.Get("listingURL")
	title := e.Request.Ctx.Get("title")
	issueDate, _ := e.Request.Ctx.GetAny("issueDate").(*time.Time)

	if pageTitle := strings.TrimSpace(e.ChildText("h1")); pageTitle != "" {
		title = pageTitle
	}

	pdfHref := findDownloadLink(e.DOM)
	if pdfHref == "" {
		c.logger.Warn("no download link on detail page", "url", e.Request.URL.String())
		return
	}
	pdfURL := e.Request.AbsoluteURL(pdfHref)

	fullText := strings.Join(strings.Fields(e.DOM.Find("body").Text()), " ")
	ref := ExtractRef(pdfURL, fullText)
	if ref == "" {
		ref = identity.FallbackRef(domain.SourceSECP, pdfURL)
	}

	canonicalID := identity.Derive(domain.SourceSECP, ref, nil)
	exists, err := c.sink.Exists(ctx, canonicalID)
	if err != nil {
		c.logger.Error("failed to check document", "error", err, "reference", ref)
		return
	}
	if exists {
		return
	}

	if title == "" {
		title = ref
	}
	c.logger.Info("new document", "reference", ref, "type", docType)
	c.requestPDF(collector, pdfURL, &domain.Document{
		CanonicalID:     canonicalID,
		Source:          domain.SourceSECP,
		PageURL:         listingURL,
		DocumentURL:     &pdfURL,
		ReferenceNumber: ref,
		Title:           truncateTitle(title),
		Category:        secpCategory,
		DocumentType:    docType,
		IssueDate:       issueDate,
	})
}

func (c *SECPCrawler) requestPDF(collector *colly.Collector, pdfURL string, doc *domain.Document) {
	pdfCtx := colly.NewContext()
	pdfCtx.Put("kind", "pdf")
	pdfCtx.Put("doc", doc)
	if err := collector.Request(http.MethodGet, pdfURL, nil, pdfCtx, nil); err != nil {
		c.logger.Error("failed to request pdf", "error", err, "url", pdfURL)
	}
}

// findDownloadLink scans detail-page anchors for the document binary.
// Direct .pdf links win over download-manager links.
func findDownloadLink(dom *goquery.Selection) string {
	var pdf, wpdm string
	dom.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		switch {
		case strings.Contains(href, ".pdf"):
			pdf = href
			return false
		case wpdm == "" && strings.Contains(href, "wpdmdl="):
			wpdm = href
		}
		return true
	})
	if pdf != "" {
		return pdf
	}
	return wpdm
}

func secpDocType(listingURL string) string {
	switch {
	case strings.Contains(listingURL, "notifications"):
		return "Notification"
	case strings.Contains(listingURL, "ordinances"):
		return "Ordinance"
	default:
		return "Document"
	}
}
