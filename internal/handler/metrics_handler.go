package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-datatable/internal/service"
	"github.com/noah-isme/sma-adp-datatable/pkg/response"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes observability and probe endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      Pinger
	cache   *service.CacheService
}

// NewMetricsHandler constructs a metrics handler. db and cache may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db Pinger, cache *service.CacheService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, cache: cache}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Gateway metrics summary
// @Description Cache hit ratio, request and table query counters.
// @Tags System
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.OK(c, "metrics snapshot", h.metrics.Snapshot())
}

// Health reports liveness only.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready fails while the table database is unreachable. The page cache is
// reported but never fails readiness since reads fall through to Postgres.
func (h *MetricsHandler) Ready(c *gin.Context) {
	cacheState := "disabled"
	if h.cache != nil && h.cache.Enabled() {
		cacheState = "enabled"
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down", "cache": cacheState})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "up", "cache": cacheState})
}
