package repo

import (
	"context"

	"github.com/Skotchmaster/gigmarket/internal/models"
)

func (r *GormRepo) MessagesByRoom(ctx context.Context, room string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.DB.WithContext(ctx).
		Where("room = ?", room).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *GormRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	return r.DB.WithContext(ctx).Create(m).Error
}
