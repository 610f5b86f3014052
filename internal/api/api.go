// Package api implements the HTTP surface: read endpoints over stored
// documents and runs, and a trigger for starting a run. No pipeline
// logic lives here.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regwatch/regwatch/internal/logger"
)

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(log logger.Interface, docs *DocumentsHandler, runs *RunsHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	apiGroup.GET("/documents", docs.List)
	apiGroup.GET("/documents/:canonical_id", docs.Get)
	apiGroup.GET("/documents/:canonical_id/download", docs.Download)
	apiGroup.GET("/stats", docs.Stats)
	apiGroup.GET("/runs", runs.List)
	apiGroup.POST("/runs/trigger", runs.Trigger)

	return router
}

// loggingMiddleware logs each request with latency and status.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
