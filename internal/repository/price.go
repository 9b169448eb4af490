package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) GetPriceByDescription(ctx context.Context, description string) (*models.Price, error) {
	var price models.Price
	err := r.db.WithContext(ctx).Where("description = ?", description).First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price %s: %w", description, err)
	}
	return &price, nil
}

func (r *Repository) UpsertPrice(ctx context.Context, description string, amount int64) error {
	var existing models.Price
	err := r.db.WithContext(ctx).Where("description = ?", description).First(&existing).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(&models.Price{
				Description: description,
				Amount:      amount,
			}).Error
		}
		return err
	}

	existing.Amount = amount
	return r.db.WithContext(ctx).Save(&existing).Error
}
