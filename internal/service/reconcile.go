package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/internal/repository"
	"gorm.io/gorm"
)

// Reconcile опрашивает шлюз по каждой переданной транзакции и
// применяет эффект на баланс ровно один раз. Ошибка по одной
// транзакции не прерывает обработку остальных: результат содержит ошибки
// по invoiceId для тех, что не удалось обновить.
//
// Терминально-негативные статусы (expired, failure) повторно не
// опрашиваются.
func (s *Service) Reconcile(ctx context.Context, txns []models.Transaction) map[string]error {
	failed := make(map[string]error)

	for i := range txns {
		txn := &txns[i]

		switch txn.Status {
		case models.StatusExpired, models.StatusFailure:
			continue
		}

		status, err := s.gateway.FetchStatus(ctx, txn.InvoiceID)
		if err != nil {
			// Шлюз недоступен, значит новой информации нет: статус
			// уточнится при следующем просмотре баланса.
			s.logger.Warnf("Failed to fetch status for invoice %s: %v", txn.InvoiceID, err)
			failed[txn.InvoiceID] = err
			continue
		}

		if status != txn.Status {
			if err := s.repo.UpdateTransactionStatus(ctx, txn.InvoiceID, status); err != nil {
				s.logger.Errorf("Failed to persist status %s for invoice %s: %v", status, txn.InvoiceID, err)
				failed[txn.InvoiceID] = err
				continue
			}
			txn.Status = status
		}

		switch txn.Status {
		case models.StatusSuccess:
			if err := s.applyTopUp(ctx, txn); err != nil {
				failed[txn.InvoiceID] = err
			}
		case models.StatusReversed:
			if err := s.reverseTopUp(ctx, txn); err != nil {
				failed[txn.InvoiceID] = err
			}
		}
	}

	return failed
}

// applyTopUp зачисляет средства по успешной транзакции не более
// одного раза. Запись BalanceTopUp создаётся первой: её уникальный
// индекс по transaction_id служит стражем идемпотентности, повторная вставка
// означает "уже зачислено".
func (s *Service) applyTopUp(ctx context.Context, txn *models.Transaction) error {
	user, err := s.repo.GetUser(ctx, txn.UserTelegramID)
	if err != nil {
		return fmt.Errorf("failed to get user for top-up: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin top-up transaction: %w", err)
	}

	topUp := &models.BalanceTopUp{
		UserTelegramID: txn.UserTelegramID,
		TransactionID:  txn.ID,
		Amount:         txn.Amount,
		Currency:       txn.Currency,
		RefCode:        user.RefCode,
	}

	if err := s.repo.CreateTopUp(ctx, topUp, tx); err != nil {
		s.repo.Rollback(tx)
		if errors.Is(err, repository.ErrDuplicateTopUp) {
			return nil
		}
		return err
	}

	if err := s.repo.IncrementBalance(ctx, txn.UserTelegramID, txn.Amount, tx); err != nil {
		s.repo.Rollback(tx)
		return err
	}

	if user.RefCode != "" {
		if err := s.creditReferrer(ctx, user.RefCode, txn.Amount, tx); err != nil {
			s.repo.Rollback(tx)
			return err
		}
	}

	if err := s.repo.Commit(tx); err != nil {
		return fmt.Errorf("failed to commit top-up: %w", err)
	}

	s.logger.Infof("Balance top-up applied: user %d, invoice %s, amount %d", txn.UserTelegramID, txn.InvoiceID, txn.Amount)
	return nil
}

// creditReferrer начисляет рефереру процент от зачисленной суммы.
// Несуществующий или битый реферальный код бонуса не даёт, но и
// зачисление пользователю не ломает.
func (s *Service) creditReferrer(ctx context.Context, refCode string, amount int64, tx *gorm.DB) error {
	referrerID, ok := parseRefCode(refCode)
	if !ok {
		s.logger.Warnf("Skipping referral bonus: malformed ref code %q", refCode)
		return nil
	}

	referrer, err := s.repo.GetUser(ctx, referrerID)
	if err != nil {
		return fmt.Errorf("failed to get referrer %d: %w", referrerID, err)
	}
	if referrer == nil {
		s.logger.Warnf("Skipping referral bonus: referrer %d not found", referrerID)
		return nil
	}

	bonus := s.referralBonus(amount)
	if bonus <= 0 {
		return nil
	}

	return s.repo.IncrementReferralReward(ctx, referrer.TelegramID, bonus, tx)
}

// reverseTopUp откатывает зачисление по транзакции, которую шлюз
// развернул. Если записи о зачислении нет, разворачивать нечего.
func (s *Service) reverseTopUp(ctx context.Context, txn *models.Transaction) error {
	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reversal transaction: %w", err)
	}

	topUp, err := s.repo.GetTopUpByTransactionIDForUpdate(ctx, txn.ID, tx)
	if err != nil {
		s.repo.Rollback(tx)
		return err
	}
	if topUp == nil {
		s.repo.Rollback(tx)
		return nil
	}

	if err := s.repo.DeleteTopUp(ctx, topUp.ID, tx); err != nil {
		s.repo.Rollback(tx)
		return err
	}

	if err := s.repo.IncrementBalance(ctx, topUp.UserTelegramID, -topUp.Amount, tx); err != nil {
		s.repo.Rollback(tx)
		return err
	}

	if err := s.repo.Commit(tx); err != nil {
		return fmt.Errorf("failed to commit reversal: %w", err)
	}

	s.logger.Infof("Balance top-up reversed: user %d, invoice %s, amount %d", topUp.UserTelegramID, txn.InvoiceID, topUp.Amount)
	return nil
}

// RefreshUserTransactions возвращает транзакции пользователя, обновив
// их статусы у шлюза. Ошибки опроса не мешают показать историю.
func (s *Service) RefreshUserTransactions(ctx context.Context, telegramID int64) ([]models.Transaction, map[string]error, error) {
	txns, err := s.repo.GetTransactionsByUser(ctx, telegramID)
	if err != nil {
		return nil, nil, err
	}
	failed := s.Reconcile(ctx, txns)
	return txns, failed, nil
}

// RefreshAllTransactions делает то же для админского экрана.
func (s *Service) RefreshAllTransactions(ctx context.Context) ([]models.Transaction, map[string]error, error) {
	txns, err := s.repo.GetAllTransactions(ctx)
	if err != nil {
		return nil, nil, err
	}
	failed := s.Reconcile(ctx, txns)
	return txns, failed, nil
}

func parseRefCode(refCode string) (int64, bool) {
	id, err := strconv.ParseInt(refCode, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
