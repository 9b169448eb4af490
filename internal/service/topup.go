package service

import (
	"context"
	"fmt"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
)

const (
	currencyUSD    = 840
	topUpReference = "Пополнение счета SimpleProxy"
	minTopUpAmount = 100    // 1$
	maxTopUpAmount = 100000 // 1000$
)

// CreateTopUp выставляет счёт в шлюзе и сохраняет транзакцию в статусе
// created. Если шлюз отказал, локально ничего не сохраняется.
func (s *Service) CreateTopUp(ctx context.Context, telegramID int64, amount int64) (*models.Transaction, error) {
	if amount < minTopUpAmount || amount > maxTopUpAmount {
		return nil, ErrInvalidAmount
	}

	user, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	destination := fmt.Sprintf("Пополнение баланса на %s", utils.FormatAmount(amount))

	invoice, err := s.gateway.CreateInvoice(ctx, amount, currencyUSD, s.config.InvoiceValiditySecs, topUpReference, destination)
	if err != nil {
		s.logger.Errorf("Failed to create invoice for user %d: %v", telegramID, err)
		return nil, err
	}

	txn := &models.Transaction{
		UserTelegramID: telegramID,
		InvoiceID:      invoice.InvoiceID,
		Amount:         amount,
		Currency:       currencyUSD,
		Validity:       s.config.InvoiceValiditySecs,
		Status:         models.StatusCreated,
		PageURL:        invoice.PageURL,
		Reference:      topUpReference,
		Destination:    destination,
	}

	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.logger.Infof("Invoice %s created for user %d, amount %d", invoice.InvoiceID, telegramID, amount)
	return txn, nil
}

func (s *Service) GetAllTopUps(ctx context.Context) ([]models.BalanceTopUp, error) {
	return s.repo.GetAllTopUps(ctx)
}
