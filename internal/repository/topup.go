package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateTopUp создаёт запись о зачислении. Уникальный индекс по
// transaction_id закрывает гонку между проверкой и созданием: повторная
// вставка падает с нарушением уникальности и возвращает
// ErrDuplicateTopUp, которую вызывающий трактует как "уже зачислено".
func (r *Repository) CreateTopUp(ctx context.Context, topUp *models.BalanceTopUp, tx *gorm.DB) error {
	db := tx
	if tx == nil {
		db = r.db
	}

	err := db.WithContext(ctx).Create(topUp).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTopUp
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateTopUp
		}
		return fmt.Errorf("failed to create top-up: %w", err)
	}
	return nil
}

// GetTopUpByTransactionIDForUpdate читает зачисление с блокировкой
// строки; два параллельных разворота сериализуются на ней.
func (r *Repository) GetTopUpByTransactionIDForUpdate(ctx context.Context, transactionID uint, tx *gorm.DB) (*models.BalanceTopUp, error) {
	db := tx
	if tx == nil {
		db = r.db
	}

	var topUp models.BalanceTopUp
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&topUp).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get top-up for transaction %d: %w", transactionID, err)
	}
	return &topUp, nil
}

func (r *Repository) GetTopUpByTransactionID(ctx context.Context, transactionID uint) (*models.BalanceTopUp, error) {
	var topUp models.BalanceTopUp
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&topUp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get top-up for transaction %d: %w", transactionID, err)
	}
	return &topUp, nil
}

func (r *Repository) DeleteTopUp(ctx context.Context, id uint, tx *gorm.DB) error {
	db := tx
	if tx == nil {
		db = r.db
	}

	res := db.WithContext(ctx).Delete(&models.BalanceTopUp{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete top-up %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("top-up %d not found for deletion", id)
	}
	return nil
}

func (r *Repository) GetAllTopUps(ctx context.Context) ([]models.BalanceTopUp, error) {
	var topUps []models.BalanceTopUp
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&topUps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all top-ups: %w", err)
	}
	return topUps, nil
}
