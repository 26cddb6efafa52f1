package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/workspace-chat/internal/services"
	ws "github.com/thereayou/workspace-chat/internal/websocket"
)

type HealthHandler struct {
	db  services.HealthChecker
	hub *ws.Hub
}

func NewHealthHandler(db services.HealthChecker, hub *ws.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.hub.ClientCount(),
	})
}
