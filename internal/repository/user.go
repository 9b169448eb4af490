package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "telegram_id = ?", telegramID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserForUpdate читает пользователя с блокировкой строки (FOR UPDATE)
// внутри переданной транзакции БД.
func (r *Repository) GetUserForUpdate(ctx context.Context, telegramID int64, tx *gorm.DB) (*models.User, error) {
	db := tx
	if tx == nil {
		db = r.db
	}

	var user models.User
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "telegram_id = ?", telegramID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock user %d: %w", telegramID, err)
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *Repository) UpdateUser(ctx context.Context, user *models.User, tx *gorm.DB) error {
	db := tx
	if tx == nil {
		db = r.db
	}

	return db.WithContext(ctx).Save(user).Error
}

func (r *Repository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// IncrementBalance атомарно изменяет баланс на delta (может быть
// отрицательной). Чтение-изменение-запись в памяти не используется.
func (r *Repository) IncrementBalance(ctx context.Context, telegramID int64, delta int64, tx *gorm.DB) error {
	db := tx
	if tx == nil {
		db = r.db
	}

	res := db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("balance", gorm.Expr("balance + ?", delta))

	if res.Error != nil {
		return fmt.Errorf("failed to update balance for user %d: %w", telegramID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d not found for balance update", telegramID)
	}
	return nil
}

// IncrementReferralReward начисляет рефереру бонус: и на баланс,
// и в счётчик заработка с рефералов.
func (r *Repository) IncrementReferralReward(ctx context.Context, telegramID int64, bonus int64, tx *gorm.DB) error {
	db := tx
	if tx == nil {
		db = r.db
	}

	res := db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", bonus),
			"ref_earnings": gorm.Expr("ref_earnings + ?", bonus),
		})

	if res.Error != nil {
		return fmt.Errorf("failed to add referral reward for user %d: %w", telegramID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("referrer %d not found for reward", telegramID)
	}
	return nil
}

func (r *Repository) CountReferrals(ctx context.Context, refCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("ref_code = ?", refCode).
		Count(&count).Error
	return count, err
}
