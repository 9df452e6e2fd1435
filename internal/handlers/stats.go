package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"titanhub/internal/services"
)

type StatsHandler struct {
	stats *services.StatsService
	log   *slog.Logger
}

func NewStatsHandler(stats *services.StatsService, log *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, log: log}
}

func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Pinger is anything whose liveness /healthz should reflect.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers 200 while the store responds, 503 otherwise.
func Health(store Pinger, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.WarnContext(ctx, "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
