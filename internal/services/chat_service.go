package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/workspace-chat/internal/models"
)

// ChatStore хранилище тредов чата, один тред на workspace
type ChatStore interface {
	FindThreadByWorkspace(ctx context.Context, workspaceID string) (*models.ChatThread, error)
	AppendMessage(ctx context.Context, workspaceID string, msg *models.ChatMessage) (*models.ChatThread, bool, error)
	DeleteThreadsByWorkspace(ctx context.Context, workspaceID string) (int64, error)
	DeleteMessage(ctx context.Context, id uuid.UUID) (bool, error)
}

// ProfileResolver находит профили отправителей для обогащения сообщений
type ProfileResolver interface {
	ResolveSenderProfiles(ctx context.Context, ids []string) (map[string]models.User, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}
