package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thereayou/workspace-chat/internal/config"
	"github.com/thereayou/workspace-chat/internal/handlers"
	"github.com/thereayou/workspace-chat/internal/middleware"
	"github.com/thereayou/workspace-chat/internal/relay"
	"github.com/thereayou/workspace-chat/internal/services"
	ws "github.com/thereayou/workspace-chat/internal/websocket"
	"go.uber.org/zap"
)

// chatDatabase всё, что роутер берёт из базы
type chatDatabase interface {
	services.ChatStore
	services.ProfileResolver
	services.HealthChecker
}

func newRouter(ctx context.Context, cfg *config.Config, db chatDatabase, hub *ws.Hub, rooms relay.RoomBroadcaster, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := relay.NewEngine(db, db, rooms, relay.Policy{RequireJoin: cfg.RequireJoin}, logger)

	chatH := handlers.NewChatHandler(engine, db, logger)
	wsH := handlers.NewWebSocketHandler(ctx, hub, engine, cfg.AllowedOrigins, logger)
	healthH := handlers.NewHealthHandler(db, hub)

	r := gin.New()
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger.Named("http")))
	r.Use(middleware.Recovery(logger))

	APIEndpoints(r, chatH, wsH, healthH)

	return r
}

func APIEndpoints(r *gin.Engine, chatH *handlers.ChatHandler, wsH *handlers.WebSocketHandler, healthH *handlers.HealthHandler) {
	r.GET("/health", healthH.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Сокет чата
	r.GET("/ws", wsH.HandleWebSocket)

	// API endpoints
	chat := r.Group("/api/chat")
	{
		chat.DELETE("/message/:messageId", chatH.DeleteMessage)
		chat.GET("/:workspaceId", chatH.GetThread)
		chat.POST("/:workspaceId", chatH.PostMessage)
		chat.DELETE("/:workspaceId", chatH.ClearThread)
	}
}
