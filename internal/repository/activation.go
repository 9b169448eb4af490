package repository

import (
	"context"
	"fmt"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"gorm.io/gorm/clause"
)

// CreateActivation фиксирует привязку реферального кода. Повторная
// активация того же пользователя молча игнорируется.
func (r *Repository) CreateActivation(ctx context.Context, activation *models.Activation) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(activation).Error
	if err != nil {
		return fmt.Errorf("failed to create activation: %w", err)
	}
	return nil
}

func (r *Repository) GetActivationsByReferrer(ctx context.Context, referrerTelegramID int64) ([]models.Activation, error) {
	var activations []models.Activation
	err := r.db.WithContext(ctx).
		Where("referrer_telegram_id = ?", referrerTelegramID).
		Order("created_at DESC").
		Find(&activations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get activations for referrer %d: %w", referrerTelegramID, err)
	}
	return activations, nil
}
