package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
)

// RunStore reads run records. *store.Store satisfies it.
type RunStore interface {
	RecentRuns(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}

// Trigger starts pipeline runs. *runner.Orchestrator satisfies it.
type Trigger interface {
	Run(ctx context.Context, force bool) (*domain.RunRecord, error)
	Busy() bool
}

// RunsHandler serves run history and accepts run triggers.
type RunsHandler struct {
	store   RunStore
	trigger Trigger
	logger  logger.Interface
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(store RunStore, trigger Trigger, log logger.Interface) *RunsHandler {
	return &RunsHandler{
		store:   store,
		trigger: trigger,
		logger:  log.WithComponent("api"),
	}
}

// List handles GET /api/runs.
func (h *RunsHandler) List(c *gin.Context) {
	limit := recentRunsLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	runs, err := h.store.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// Trigger handles POST /api/runs/trigger. The run executes in the
// background; a trigger while one is active returns 409.
func (h *RunsHandler) Trigger(c *gin.Context) {
	if h.trigger.Busy() {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}

	force := c.Query("force") == "true"

	go func() {
		// Detached from the request: the run outlives the HTTP call.
		if _, err := h.trigger.Run(context.Background(), force); err != nil {
			h.logger.Error("triggered run failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "force": force})
}
