package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/identity"
	"github.com/regwatch/regwatch/internal/logger"
)

const (
	pcpDownloadURL = "http://www.pcp.gov.pk/Download"
	pcpCategory    = "Gazette Part-II"

	// Part-II of the gazette carries statutory notifications and SROs;
	// the other parts are out of scope.
	pcpWantedPart = "2"
)

// PCPCrawler monitors the Gazette of Pakistan download table. Only
// Part-II rows are kept.
type PCPCrawler struct {
	config Config
	sink   Sink
	logger logger.Interface
	now    func() time.Time

	downloadURL string
}

// NewPCPCrawler creates the gazette crawler.
func NewPCPCrawler(cfg Config, sink Sink, log logger.Interface) *PCPCrawler {
	return &PCPCrawler{
		config:      cfg.withDefaults(),
		sink:        sink,
		logger:      log.WithComponent("pcp"),
		now:         time.Now,
		downloadURL: pcpDownloadURL,
	}
}

// Name returns the source tag.
func (c *PCPCrawler) Name() string { return domain.SourcePCP }

// Crawl scans the gazette download table once.
func (c *PCPCrawler) Crawl(ctx context.Context, _ bool) (int, error) {
	var (
		mu    sync.Mutex
		seen  int
		errs  []error
	)
	cutoff := c.config.cutoff(c.now())

	collector, err := newCollector(ctx, c.config)
	if err != nil {
		return 0, err
	}

	collector.OnHTML("table#myTable tbody tr", func(e *colly.HTMLElement) {
		if e.Request.Ctx.Get("kind") != "listing" {
			return
		}
		mu.Lock()
		seen++
		mu.Unlock()

		c.handleRow(ctx, collector, e, cutoff)
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
			errs = append(errs, fmt.Errorf("gazette listing request failed: %w", err))
			mu.Unlock()
		}
	})

	reqCtx := colly.NewContext()
	reqCtx.Put("kind", "listing")
	if err := collector.Request(http.MethodGet, c.downloadURL, nil, reqCtx, nil); err != nil {
		errs = append(errs, fmt.Errorf("failed to request gazette listing: %w", err))
	}
	collector.Wait()

	return seen, errors.Join(errs...)
}

func (c *PCPCrawler) handleRow(ctx context.Context, collector *colly.Collector, e *colly.HTMLElement, cutoff time.Time) {
	jobID := strings.TrimSpace(e.ChildText("td:nth-child(1)"))
	title := strings.TrimSpace(e.ChildText("td:nth-child(3)"))
	dateStr := strings.TrimSpace(e.ChildText("td:nth-child(4)"))
	pdfHref := e.ChildAttr("td:nth-child(5) a", "href")
	partsText := strings.TrimSpace(e.ChildText("td:nth-child(7)"))

	if partsText != pcpWantedPart {
		return
	}
	if pdfHref == "" {
		c.logger.Warn("gazette row without pdf link", "job_id", jobID)
		return
	}

	pdfURL := e.Request.AbsoluteURL(pdfHref)
	issueDate := ParseDate(dateStr)
	if tooOld(issueDate, cutoff) {
		return
	}

	ref := jobID
	if ref == "" {
		ref = identity.FallbackRef(domain.SourcePCP, pdfURL)
	}

	canonicalID := identity.Derive(domain.SourcePCP, ref, issueDate)
	exists, err := c.sink.Exists(ctx, canonicalID)
	if err != nil {
		c.logger.Error("failed to check document", "error", err, "reference", ref)
		return
	}
	if exists {
		return
	}

	if title == "" {
		if jobID != "" {
			title = jobID
		} else {
			title = "PCP Gazette " + ref
		}
	}

	c.logger.Info("new document", "reference", ref, "date", dateStr)

	doc := &domain.Document{
		CanonicalID:     canonicalID,
		Source:          domain.SourcePCP,
		PageURL:         e.Request.URL.String(),
		DocumentURL:     &pdfURL,
		ReferenceNumber: ref,
		Title:           truncateTitle(title),
		Category:        pcpCategory,
		DocumentType:    "SRO",
		IssueDate:       issueDate,
	}

	pdfCtx := colly.NewContext()
	pdfCtx.Put("kind", "pdf")
	pdfCtx.Put("doc", doc)
	if err := collector.Request(http.MethodGet, pdfURL, nil, pdfCtx, nil); err != nil {
		c.logger.Error("failed to request pdf", "error", err, "url", pdfURL)
	}
}
