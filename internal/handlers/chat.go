package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thereayou/workspace-chat/internal/database"
	"github.com/thereayou/workspace-chat/internal/handlers/dto"
	"github.com/thereayou/workspace-chat/internal/relay"
	"github.com/thereayou/workspace-chat/internal/services"
	"go.uber.org/zap"
)

type ChatHandler struct {
	relay  *relay.Engine
	store  services.ChatStore
	logger *zap.Logger
}

func NewChatHandler(engine *relay.Engine, store services.ChatStore, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{relay: engine, store: store, logger: logger.Named("chat")}
}

// GetThread возвращает историю чата workspace с профилями отправителей
func (h *ChatHandler) GetThread(c *gin.Context) {
	workspaceID := c.Param("workspaceId")

	thread, err := h.relay.Thread(c.Request.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, http.StatusNotFound, "messages not found")
			return
		}
		h.logger.Error("failed to load thread", zap.String("workspace_id", workspaceID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to get messages")
		return
	}

	respond(c, http.StatusOK, "fetched messages successfully", thread)
}

// PostMessage отправляет сообщение через HTTP (альтернатива WebSocket).
// Сообщение сохраняется и рассылается в комнату так же, как из сокета.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	thread, err := h.relay.Send(c.Request.Context(), nil, dto.SendMessagePayload{
		WorkspaceID: c.Param("workspaceId"),
		Content:     req.Content,
		Sender:      req.Sender,
	})
	if err != nil {
		switch {
		case errors.Is(err, relay.ErrValidation):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "failed to save message")
		}
		return
	}

	respond(c, http.StatusCreated, "message sent successfully", thread)
}

// ClearThread удаляет всю историю чата workspace
func (h *ChatHandler) ClearThread(c *gin.Context) {
	workspaceID := c.Param("workspaceId")

	count, err := h.store.DeleteThreadsByWorkspace(c.Request.Context(), workspaceID)
	if err != nil {
		h.logger.Error("failed to clear thread", zap.String("workspace_id", workspaceID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to clear chat")
		return
	}

	respond(c, http.StatusOK, "chat cleared successfully", gin.H{"deleted": count})
}

// DeleteMessage удаляет одно сообщение
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		respondError(c, http.StatusNotFound, "message not found")
		return
	}

	removed, err := h.store.DeleteMessage(c.Request.Context(), messageID)
	if err != nil {
		h.logger.Error("failed to delete message", zap.Stringer("message_id", messageID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to delete message")
		return
	}
	if !removed {
		respondError(c, http.StatusNotFound, "message not found")
		return
	}

	respond(c, http.StatusOK, "message deleted successfully", gin.H{})
}
