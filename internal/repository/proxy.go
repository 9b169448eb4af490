package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetProxyByLogin(ctx context.Context, login string) (*models.Proxy, error) {
	var proxy models.Proxy
	err := r.db.WithContext(ctx).Where("login = ?", login).First(&proxy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proxy by login %s: %w", login, err)
	}
	return &proxy, nil
}

// GetFreeProxyForUpdate берёт первый свободный прокси с блокировкой
// строки, чтобы две параллельные аренды не получили один и тот же.
func (r *Repository) GetFreeProxyForUpdate(ctx context.Context, tx *gorm.DB) (*models.Proxy, error) {
	db := tx
	if tx == nil {
		db = r.db
	}

	var proxy models.Proxy
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_free = ?", true).
		Order("login ASC").
		First(&proxy).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock free proxy: %w", err)
	}
	return &proxy, nil
}

func (r *Repository) CountFreeProxies(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Proxy{}).
		Where("is_free = ?", true).
		Count(&count).Error
	return count, err
}

func (r *Repository) GetProxiesByUser(ctx context.Context, telegramID int64) ([]models.Proxy, error) {
	var proxies []models.Proxy
	err := r.db.WithContext(ctx).
		Where("user_telegram_id = ?", telegramID).
		Order("expiration_date ASC").
		Find(&proxies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get proxies for user %d: %w", telegramID, err)
	}
	return proxies, nil
}

func (r *Repository) GetAllProxies(ctx context.Context) ([]models.Proxy, error) {
	var proxies []models.Proxy
	err := r.db.WithContext(ctx).Order("login ASC").Find(&proxies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all proxies: %w", err)
	}
	return proxies, nil
}

func (r *Repository) CreateProxy(ctx context.Context, proxy *models.Proxy) error {
	return r.db.WithContext(ctx).Create(proxy).Error
}

func (r *Repository) UpdateProxy(ctx context.Context, proxy *models.Proxy, tx *gorm.DB) error {
	db := tx
	if tx == nil {
		db = r.db
	}

	return db.WithContext(ctx).Save(proxy).Error
}

// GetExpiredProxies возвращает занятые прокси с истёкшим сроком аренды.
func (r *Repository) GetExpiredProxies(ctx context.Context, now time.Time) ([]models.Proxy, error) {
	var proxies []models.Proxy
	err := r.db.WithContext(ctx).
		Where("is_free = ? AND expiration_date IS NOT NULL AND expiration_date < ?", false, now).
		Find(&proxies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get expired proxies: %w", err)
	}
	return proxies, nil
}
