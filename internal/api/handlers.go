package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskbot/shadbot/internal/database"
)

// Handler serves the ops endpoints.
type Handler struct {
	store   database.Store
	jobs    JobLister
	logger  *slog.Logger
	started time.Time
}

// HealthCheck pings the catalog database.
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.WarnContext(c.Request.Context(), "Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// GetStats returns aggregate catalog counts.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.CatalogStats(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "Failed to read catalog stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read catalog stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Index describes the service and the scheduled jobs.
func (h *Handler) Index(c *gin.Context) {
	jobs := gin.H{}
	if h.jobs != nil {
		for name, next := range h.jobs.Jobs() {
			jobs[name] = next.Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"service": "shadbot",
		"jobs":    jobs,
		"endpoints": map[string]string{
			"health": "/health",
			"stats":  "/stats",
		},
	})
}
