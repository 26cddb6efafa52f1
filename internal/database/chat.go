package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thereayou/workspace-chat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FindThreadByWorkspace возвращает тред workspace с сообщениями по порядку
func (d *Database) FindThreadByWorkspace(ctx context.Context, workspaceID string) (*models.ChatThread, error) {
	var thread models.ChatThread
	err := d.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&thread, "workspace_id = ?", workspaceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find thread")
	}
	return &thread, nil
}

// AppendMessage добавляет сообщение в тред workspace, создавая тред при первой записи.
// Всё происходит в одной транзакции: строка треда блокируется, поэтому позиции
// и время сообщений идут по порядку записи. created == true, если тред был создан.
func (d *Database) AppendMessage(ctx context.Context, workspaceID string, msg *models.ChatMessage) (*models.ChatThread, bool, error) {
	var (
		thread  models.ChatThread
		created bool
	)

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := models.ChatThread{ID: uuid.New(), WorkspaceID: workspaceID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}},
			DoNothing: true,
		}).Create(&candidate).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&thread, "workspace_id = ?", workspaceID).Error; err != nil {
			return err
		}
		created = thread.ID == candidate.ID

		var last []models.ChatMessage
		if err := tx.Where("thread_id = ?", thread.ID).
			Order("position DESC").
			Limit(1).
			Find(&last).Error; err != nil {
			return err
		}

		msg.ThreadID = thread.ID
		msg.Position = 1
		if msg.Timestamp.IsZero() {
			msg.Timestamp = d.now().UTC()
		}
		if len(last) > 0 {
			msg.Position = last[0].Position + 1
			// Время не может быть раньше предыдущего сообщения
			if msg.Timestamp.Before(last[0].Timestamp) {
				msg.Timestamp = last[0].Timestamp
			}
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if err := tx.Model(&thread).Update("updated_at", d.now()).Error; err != nil {
			return err
		}

		return tx.Where("thread_id = ?", thread.ID).
			Order("position ASC").
			Find(&thread.Messages).Error
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "append message")
	}

	return &thread, created, nil
}

// DeleteThreadsByWorkspace удаляет тред workspace вместе с сообщениями.
// Возвращает число удалённых тредов, отсутствие треда не ошибка.
func (d *Database) DeleteThreadsByWorkspace(ctx context.Context, workspaceID string) (int64, error) {
	var count int64

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		threadIDs := tx.Model(&models.ChatThread{}).
			Select("id").
			Where("workspace_id = ?", workspaceID)

		if err := tx.Where("thread_id IN (?)", threadIDs).
			Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}

		res := tx.Where("workspace_id = ?", workspaceID).Delete(&models.ChatThread{})
		if res.Error != nil {
			return res.Error
		}
		count = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete threads")
	}
	return count, nil
}

// DeleteMessage удаляет одно сообщение, false если сообщения не было
func (d *Database) DeleteMessage(ctx context.Context, id uuid.UUID) (bool, error) {
	res := d.db.WithContext(ctx).Delete(&models.ChatMessage{}, "id = ?", id)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "delete message")
	}
	return res.RowsAffected > 0, nil
}
