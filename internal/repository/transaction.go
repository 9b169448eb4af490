package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *Repository) GetTransactionByInvoiceID(ctx context.Context, invoiceID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", invoiceID, err)
	}
	return &txn, nil
}

func (r *Repository) GetTransactionsByUser(ctx context.Context, telegramID int64) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_telegram_id = ?", telegramID).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %d: %w", telegramID, err)
	}
	return txns, nil
}

func (r *Repository) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransactionStatus обновляет статус по invoiceId. InvoiceID и
// остальные поля транзакции после создания не меняются.
func (r *Repository) UpdateTransactionStatus(ctx context.Context, invoiceID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return fmt.Errorf("failed to update status for transaction %s: %w", invoiceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s not found for status update", invoiceID)
	}
	return nil
}
