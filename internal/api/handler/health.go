package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timmy/veris/internal/logger"
)

const storePingTimeout = 2 * time.Second

// StorePinger reports whether the claim store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service liveness and claim-store connectivity.
type HealthHandler struct {
	store StorePinger
}

// NewHealthHandler creates a health handler. A nil store is reported as
// not configured.
func NewHealthHandler(store StorePinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health answers 200 when the claim store responds to a ping and 503 when it
// does not, since submissions cannot be saved without it.
func (h *HealthHandler) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "claim_store": "not_configured", "timestamp": now})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storePingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.CtxWarn(c.Request.Context(), "Claim store ping failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "degraded",
			"claim_store": "unavailable",
			"error":       err.Error(),
			"timestamp":   now,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "claim_store": "ok", "timestamp": now})
}
