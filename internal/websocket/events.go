package websocket

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageType имя события протокола
type MessageType string

const (
	// Системные типы
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"

	// Клиент -> сервер
	TypeJoinWorkspace  MessageType = "joinWorkspace"
	TypeLeaveWorkspace MessageType = "leaveWorkspace"
	TypeSendMessage    MessageType = "sendMessage"

	// Сервер -> клиент
	TypeReceiveMessage MessageType = "receiveMessage"
)

// Message конверт всех событий сокета
type Message struct {
	Type        MessageType     `json:"type"`
	WorkspaceID string          `json:"workspaceId,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// inboundFrame входящий кадр клиента. Поле timestamp клиента не читается,
// время событию назначает сервер.
type inboundFrame struct {
	Type        MessageType     `json:"type"`
	WorkspaceID string          `json:"workspaceId"`
	Data        json.RawMessage `json:"data"`
}

func decodeFrame(raw []byte) (*Message, error) {
	var in inboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	return &Message{Type: in.Type, WorkspaceID: in.WorkspaceID, Data: in.Data}, nil
}

// Workspace возвращает workspace события: поле конверта либо data в виде строки
func (m *Message) Workspace() string {
	if ws := strings.TrimSpace(m.WorkspaceID); ws != "" {
		return ws
	}
	var ws string
	if len(m.Data) > 0 && json.Unmarshal(m.Data, &ws) == nil {
		return strings.TrimSpace(ws)
	}
	return ""
}

// NewMessage готовый к отправке конверт
func NewMessage(msgType MessageType, workspaceID string, data interface{}) ([]byte, error) {
	msg := Message{
		Type:        msgType,
		WorkspaceID: workspaceID,
		Timestamp:   time.Now().UTC(),
	}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = jsonData
	}

	return json.Marshal(msg)
}
