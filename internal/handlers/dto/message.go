package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/workspace-chat/internal/models"
)

// SendMessagePayload входящее сообщение чата. Поле workSpaceId пишется именно так
// в протоколе клиента.
type SendMessagePayload struct {
	WorkspaceID string `json:"workSpaceId"`
	Content     string `json:"content"`
	Sender      string `json:"sender"`
}

// PostMessageRequest тело POST /api/chat/:workspaceId
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Sender  string `json:"sender" binding:"required"`
}

// ThreadResponse тред с профилями отправителей
type ThreadResponse struct {
	ID          uuid.UUID         `json:"id"`
	WorkspaceID string            `json:"workspaceId"`
	Messages    []MessageResponse `json:"messages"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sender    UserInfo  `json:"sender"`
}

// UserInfo профиль без секретных полей
type UserInfo struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// NewThreadResponse собирает ответ. Отправитель без профиля остаётся только с id.
func NewThreadResponse(thread *models.ChatThread, profiles map[string]models.User) *ThreadResponse {
	resp := &ThreadResponse{
		ID:          thread.ID,
		WorkspaceID: thread.WorkspaceID,
		Messages:    make([]MessageResponse, len(thread.Messages)),
		CreatedAt:   thread.CreatedAt,
		UpdatedAt:   thread.UpdatedAt,
	}

	for i, msg := range thread.Messages {
		sender := UserInfo{ID: msg.SenderID}
		if user, ok := profiles[msg.SenderID]; ok {
			sender.Username = user.Username
			sender.AvatarURL = user.AvatarURL
		}

		resp.Messages[i] = MessageResponse{
			ID:        msg.ID,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			Sender:    sender,
		}
	}

	return resp
}

// SenderIDs уникальные отправители треда в порядке появления
func SenderIDs(thread *models.ChatThread) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, msg := range thread.Messages {
		if !seen[msg.SenderID] {
			seen[msg.SenderID] = true
			ids = append(ids, msg.SenderID)
		}
	}
	return ids
}
