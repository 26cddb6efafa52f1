package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatThread хранит всю историю сообщений одного workspace
type ChatThread struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID string    `gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Связи
	Messages []ChatMessage `gorm:"foreignKey:ThreadID"`
}

func (t *ChatThread) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ChatMessage запись в треде (только добавление). Position начинается с 1
// и совпадает с порядком сохранения.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_thread_position"`
	Position  int64     `gorm:"not null;uniqueIndex:idx_thread_position"`
	SenderID  string    `gorm:"not null;index"`
	Content   string    `gorm:"not null"`
	Timestamp time.Time `gorm:"not null"`
}

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
