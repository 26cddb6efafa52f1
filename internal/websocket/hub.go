package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/workspace-chat/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultSendQueueSize  = 256
	defaultMaxMessageSize = 512 * 1024 // 512KB
)

type Options struct {
	SendQueueSize  int
	MaxMessageSize int64
}

// Hub реестр живых сессий и комнат workspace. Все поля под одним mutex,
// членство в комнатах не сохраняется и живёт только в памяти процесса.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты в комнатах: workspaceID -> sessionID -> client
	rooms map[string]map[uuid.UUID]*Client

	mu sync.RWMutex

	opts   Options
	logger *zap.Logger
}

// NewHub создает новый Hub
func NewHub(logger *zap.Logger, opts Options) *Hub {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = defaultSendQueueSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}

	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		rooms:   make(map[string]map[uuid.UUID]*Client),
		opts:    opts,
		logger:  logger.Named("hub"),
	}
}

// Stop закрывает все сессии
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		h.leaveAllUnsafe(client)
		delete(h.clients, id)
		client.close()
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	metrics.SessionsActive.Set(0)
}

// Register регистрирует новую сессию, в комнатах она пока не состоит
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	metrics.SessionsActive.Inc()

	h.logger.Debug("client registered", zap.Stringer("session_id", client.ID))
}

// Unregister удаляет сессию из всех комнат и закрывает её очередь.
// Вызывается при любом отключении, в том числе аварийном.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveAllUnsafe(client)

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		metrics.SessionsActive.Dec()
		h.logger.Debug("client unregistered", zap.Stringer("session_id", client.ID))
	}
	client.close()
}

// JoinRoom добавляет сессию в комнату workspace. Повторный вход ничего не меняет,
// наличие треда в базе не проверяется.
func (h *Hub) JoinRoom(client *Client, workspaceID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.IsClosed() {
		return ErrSessionClosed
	}

	room, ok := h.rooms[workspaceID]
	if !ok {
		room = make(map[uuid.UUID]*Client)
		h.rooms[workspaceID] = room
	}

	if _, ok := room[client.ID]; ok {
		return nil
	}

	room[client.ID] = client
	client.mu.Lock()
	client.Rooms[workspaceID] = true
	client.mu.Unlock()
	metrics.RoomJoins.Inc()

	h.logger.Debug("joined room",
		zap.Stringer("session_id", client.ID),
		zap.String("workspace_id", workspaceID))
	return nil
}

// LeaveRoom удаляет сессию из комнаты
func (h *Hub) LeaveRoom(client *Client, workspaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, workspaceID)
}

// LeaveAll удаляет сессию из всех комнат
func (h *Hub) LeaveAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveAllUnsafe(client)
}

func (h *Hub) leaveAllUnsafe(client *Client) {
	for _, workspaceID := range client.GetRooms() {
		h.removeFromRoomUnsafe(client, workspaceID)
	}
}

func (h *Hub) removeFromRoomUnsafe(client *Client, workspaceID string) {
	client.mu.Lock()
	delete(client.Rooms, workspaceID)
	client.mu.Unlock()

	room, ok := h.rooms[workspaceID]
	if !ok {
		return
	}
	delete(room, client.ID)
	if len(room) == 0 {
		delete(h.rooms, workspaceID)
	}
}

// MembersOf возвращает сессии комнаты. Для неизвестной комнаты пустой список.
func (h *Hub) MembersOf(workspaceID string) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[workspaceID]
	members := make([]uuid.UUID, 0, len(room))
	for id := range room {
		members = append(members, id)
	}
	return members
}

// SendToRoom отправляет сообщение всем, кто сейчас в комнате, включая отправителя.
// Возвращает число сессий, принявших сообщение в очередь.
func (h *Hub) SendToRoom(workspaceID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.rooms[workspaceID] {
		if err := client.enqueue(message); err != nil {
			h.logger.Warn("dropping room message",
				zap.Stringer("session_id", client.ID),
				zap.String("workspace_id", workspaceID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// ClientCount число подключенных сессий
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
