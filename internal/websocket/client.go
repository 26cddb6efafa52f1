package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/workspace-chat/internal/metrics"
	"go.uber.org/zap"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10
)

// ClientMessageHandler обрабатывает действия сессии, которые не относятся к комнатам
type ClientMessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *Message) error
}

// Client одна живая сессия сокета: connected -> joined(0..N) -> disconnected
type Client struct {
	ID    uuid.UUID
	Conn  *websocket.Conn
	Send  chan []byte
	Rooms map[string]bool
	Hub   *Hub

	mu     sync.RWMutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:    uuid.New(),
		Conn:  conn,
		Send:  make(chan []byte, hub.opts.SendQueueSize),
		Rooms: make(map[string]bool),
		Hub:   hub,
	}
}

// ReadPump читает события клиента до разрыва соединения
func (c *Client) ReadPump(ctx context.Context, handler ClientMessageHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.opts.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read error", zap.Stringer("session_id", c.ID), zap.Error(err))
			}
			return
		}

		msg, err := decodeFrame(data)
		if err != nil {
			c.Hub.logger.Debug("dropping malformed frame", zap.Stringer("session_id", c.ID), zap.Error(err))
			continue
		}

		if err := c.Dispatch(ctx, handler, msg); err != nil {
			c.Hub.logger.Debug("action dropped",
				zap.Stringer("session_id", c.ID),
				zap.String("type", string(msg.Type)),
				zap.Error(err))
		}
	}
}

// Dispatch выполняет одно действие сессии. Ошибка или panic обработчика
// не затрагивает ни сессию, ни hub.
func (c *Client) Dispatch(ctx context.Context, handler ClientMessageHandler, msg *Message) (err error) {
	if c.IsClosed() {
		metrics.ActionsDropped.WithLabelValues("closed").Inc()
		return ErrSessionClosed
	}

	defer func() {
		if r := recover(); r != nil {
			c.Hub.logger.Error("message handler panic",
				zap.Stringer("session_id", c.ID),
				zap.String("type", string(msg.Type)),
				zap.Any("panic", r))
			err = ErrHandlerPanic
		}
	}()

	switch msg.Type {
	case TypePing, TypePong:
		return nil

	case TypeJoinWorkspace:
		workspaceID := msg.Workspace()
		if workspaceID == "" {
			return ErrInvalidMessage
		}
		return c.Hub.JoinRoom(c, workspaceID)

	case TypeLeaveWorkspace:
		workspaceID := msg.Workspace()
		if workspaceID == "" {
			return ErrInvalidMessage
		}
		c.Hub.LeaveRoom(c, workspaceID)
		return nil
	}

	if handler == nil {
		return nil
	}
	return handler.HandleMessage(ctx, c, msg)
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) SendMessage(msgType MessageType, workspaceID string, data interface{}) error {
	msg, err := NewMessage(msgType, workspaceID, data)
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

func (c *Client) enqueue(message []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrSessionClosed
	}

	select {
	case c.Send <- message:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) IsInRoom(workspaceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Rooms[workspaceID]
}

func (c *Client) GetRooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.Rooms))
	for workspaceID := range c.Rooms {
		rooms = append(rooms, workspaceID)
	}
	return rooms
}
