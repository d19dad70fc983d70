package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping func() error
}

// NewHealthHandler takes the readiness probe; nil means always ready.
func NewHealthHandler(ping func() error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.ping != nil {
		if err := h.ping(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
