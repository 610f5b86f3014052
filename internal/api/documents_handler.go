package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regwatch/regwatch/internal/database"
	"github.com/regwatch/regwatch/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	recentRunsLimit  = 10
)

// DocumentStore is the read surface the document handlers need.
// *store.Store satisfies it.
type DocumentStore interface {
	QueryRecent(ctx context.Context, filter database.RecentFilter) ([]*domain.Document, error)
	GetDocument(ctx context.Context, canonicalID string) (*domain.Document, error)
	ReadArtifact(path string) ([]byte, error)
	CountDocuments(ctx context.Context) (int, error)
	CountBySource(ctx context.Context, source string) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	RecentRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}

// DocumentsHandler serves stored documents and aggregate stats.
type DocumentsHandler struct {
	store DocumentStore
}

// NewDocumentsHandler creates a documents handler.
func NewDocumentsHandler(store DocumentStore) *DocumentsHandler {
	return &DocumentsHandler{store: store}
}

// List handles GET /api/documents.
// Query parameters: source, days (issue-date window), limit,
// with_content=true to keep only documents with stored binaries.
func (h *DocumentsHandler) List(c *gin.Context) {
	filter := database.RecentFilter{
		Source: c.Query("source"),
		Limit:  defaultListLimit,
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		since := time.Now().UTC().AddDate(0, 0, -days)
		filter.IssuedSince = &since
	}

	filter.WithContent = c.Query("with_content") == "true"

	docs, err := h.store.QueryRecent(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

// Get handles GET /api/documents/:canonical_id.
func (h *DocumentsHandler) Get(c *gin.Context) {
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("canonical_id"))
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Download handles GET /api/documents/:canonical_id/download, serving
// the stored PDF artifact.
func (h *DocumentsHandler) Download(c *gin.Context) {
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("canonical_id"))
	if err != nil {
		if errors.Is(err, database.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	if !doc.HasContent() {
		c.JSON(http.StatusNotFound, gin.H{"error": "document has no stored binary"})
		return
	}

	content, err := h.store.ReadArtifact(*doc.StoragePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read artifact"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Source+"_"+doc.CanonicalID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", content)
}

// Stats handles GET /api/stats.
func (h *DocumentsHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.store.CountDocuments(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count documents"})
		return
	}

	bySource := gin.H{}
	for _, source := range []string{domain.SourceFBR, domain.SourceSECP, domain.SourcePCP} {
		count, err := h.store.CountBySource(ctx, source)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count documents"})
			return
		}
		bySource[source] = count
	}

	byStatus := gin.H{}
	for _, status := range []string{domain.StatusNew, domain.StatusTrackedNoPDF, domain.StatusDownloaded, domain.StatusProcessed} {
		count, err := h.store.CountByStatus(ctx, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count documents"})
			return
		}
		byStatus[status] = count
	}

	runs, err := h.store.RecentRuns(ctx, recentRunsLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_documents": total,
		"by_source":       bySource,
		"by_status":       byStatus,
		"recent_runs":     runs,
	})
}
