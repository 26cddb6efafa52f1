package relay

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/thereayou/workspace-chat/internal/handlers/dto"
	"github.com/thereayou/workspace-chat/internal/metrics"
	"github.com/thereayou/workspace-chat/internal/models"
	"github.com/thereayou/workspace-chat/internal/services"
	"github.com/thereayou/workspace-chat/internal/websocket"
	"go.uber.org/zap"
)

// RoomBroadcaster рассылает готовый кадр текущим участникам комнаты
type RoomBroadcaster interface {
	SendToRoom(workspaceID string, message []byte) int
}

// Session то, что relay знает о сессии отправителя
type Session interface {
	IsInRoom(workspaceID string) bool
}

type Policy struct {
	// RequireJoin запрещает отправку в workspace, к которому сессия не присоединилась
	RequireJoin bool
}

// Engine сохраняет сообщения чата и рассылает их участникам комнаты
type Engine struct {
	store    services.ChatStore
	profiles services.ProfileResolver
	rooms    RoomBroadcaster
	policy   Policy
	locks    *workspaceLocks
	now      func() time.Time
	logger   *zap.Logger
}

func NewEngine(store services.ChatStore, profiles services.ProfileResolver, rooms RoomBroadcaster, policy Policy, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		profiles: profiles,
		rooms:    rooms,
		policy:   policy,
		locks:    newWorkspaceLocks(),
		now:      time.Now,
		logger:   logger.Named("relay"),
	}
}

// HandleMessage точка входа для событий сокета
func (e *Engine) HandleMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeSendMessage:
		var payload dto.SendMessagePayload
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				metrics.ActionsDropped.WithLabelValues("validation").Inc()
				return errors.Wrap(ErrValidation, err.Error())
			}
		}
		if payload.WorkspaceID == "" {
			payload.WorkspaceID = msg.WorkspaceID
		}

		_, err := e.Send(ctx, client, payload)
		return err

	default:
		e.logger.Debug("unknown message type", zap.String("type", string(msg.Type)))
		return nil
	}
}

// Send проверяет, сохраняет, обогащает и рассылает сообщение. При любой ошибке
// рассылки нет. session может быть nil для отправки через HTTP.
// Сохранение и рассылка внутри одного workspace идут строго по очереди,
// поэтому кадры уходят в порядке записи.
func (e *Engine) Send(ctx context.Context, session Session, payload dto.SendMessagePayload) (*dto.ThreadResponse, error) {
	workspaceID := strings.TrimSpace(payload.WorkspaceID)
	sender := strings.TrimSpace(payload.Sender)

	if err := validate(workspaceID, sender, payload.Content); err != nil {
		metrics.ActionsDropped.WithLabelValues("validation").Inc()
		e.logger.Debug("dropping invalid message", zap.Error(err))
		return nil, err
	}

	if e.policy.RequireJoin && session != nil && !session.IsInRoom(workspaceID) {
		metrics.ActionsDropped.WithLabelValues("not_joined").Inc()
		e.logger.Debug("dropping message from session outside room", zap.String("workspace_id", workspaceID))
		return nil, ErrNotJoined
	}

	unlock := e.locks.lock(workspaceID)
	defer unlock()

	msg := &models.ChatMessage{
		SenderID:  sender,
		Content:   payload.Content,
		Timestamp: e.now().UTC().Truncate(time.Millisecond),
	}

	thread, created, err := e.store.AppendMessage(ctx, workspaceID, msg)
	if err != nil {
		metrics.ActionsDropped.WithLabelValues("persistence").Inc()
		e.logger.Error("failed to save message",
			zap.String("workspace_id", workspaceID),
			zap.String("sender", sender),
			zap.Error(err))
		return nil, &PersistenceError{Op: "append message", Err: err}
	}

	resp := dto.NewThreadResponse(thread, e.resolve(ctx, thread))

	frame, err := websocket.NewMessage(websocket.TypeReceiveMessage, workspaceID, resp)
	if err != nil {
		return nil, errors.Wrap(err, "encode receiveMessage")
	}

	recipients := e.rooms.SendToRoom(workspaceID, frame)
	metrics.MessagesRelayed.Inc()
	metrics.BroadcastRecipients.Observe(float64(recipients))

	e.logger.Debug("message relayed",
		zap.String("workspace_id", workspaceID),
		zap.Bool("thread_created", created),
		zap.Int("messages", len(thread.Messages)),
		zap.Int("recipients", recipients))

	return resp, nil
}

// Thread тред workspace с профилями отправителей
func (e *Engine) Thread(ctx context.Context, workspaceID string) (*dto.ThreadResponse, error) {
	thread, err := e.store.FindThreadByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return dto.NewThreadResponse(thread, e.resolve(ctx, thread)), nil
}

// resolve не прерывает рассылку: без профилей отправитель уходит только с id
func (e *Engine) resolve(ctx context.Context, thread *models.ChatThread) map[string]models.User {
	profiles, err := e.profiles.ResolveSenderProfiles(ctx, dto.SenderIDs(thread))
	if err != nil {
		e.logger.Warn("failed to resolve sender profiles",
			zap.String("workspace_id", thread.WorkspaceID),
			zap.Error(err))
		return nil
	}
	return profiles
}

func validate(workspaceID, sender, content string) error {
	switch {
	case workspaceID == "":
		return errors.Wrap(ErrValidation, "workspace id is required")
	case sender == "":
		return errors.Wrap(ErrValidation, "sender is required")
	case content == "":
		return errors.Wrap(ErrValidation, "content is required")
	}
	return nil
}
