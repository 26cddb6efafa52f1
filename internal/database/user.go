package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thereayou/workspace-chat/internal/models"
	"gorm.io/gorm"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return d.db.WithContext(ctx).Create(user).Error
}

func (d *Database) GetUser(ctx context.Context, id string) (*models.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	user := models.User{}
	if err := d.db.WithContext(ctx).First(&user, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &user, nil
}

// ResolveSenderProfiles загружает пользователей по идентификаторам отправителей.
// Неизвестные и некорректные идентификаторы просто отсутствуют в результате.
func (d *Database) ResolveSenderProfiles(ctx context.Context, ids []string) (map[string]models.User, error) {
	uids := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if uid, err := uuid.Parse(id); err == nil {
			uids = append(uids, uid)
		}
	}

	result := make(map[string]models.User, len(uids))
	if len(uids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", uids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "resolve sender profiles")
	}

	for _, u := range users {
		result[u.ID.String()] = u
	}
	return result, nil
}
