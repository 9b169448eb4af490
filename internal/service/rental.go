package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
)

const (
	PriceWeek  = "week"
	PriceMonth = "month"
)

var rentPeriods = map[int]string{
	7:  PriceWeek,
	30: PriceMonth,
}

// RentProxy списывает стоимость аренды и закрепляет свободный прокси
// за пользователем. Проверка баланса и списание выполняются в одной
// транзакции БД под блокировкой строки пользователя, чтобы аренда не
// пересекалась небезопасно с зачислениями.
func (s *Service) RentProxy(ctx context.Context, telegramID int64, days int) (*models.Proxy, *models.Price, error) {
	description, ok := rentPeriods[days]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported rent period: %d days", days)
	}

	price, err := s.repo.GetPriceByDescription(ctx, description)
	if err != nil {
		return nil, nil, err
	}
	if price == nil {
		return nil, nil, ErrPriceNotFound
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin rent transaction: %w", err)
	}

	user, err := s.repo.GetUserForUpdate(ctx, telegramID, tx)
	if err != nil {
		s.repo.Rollback(tx)
		return nil, nil, err
	}
	if user == nil {
		s.repo.Rollback(tx)
		return nil, nil, ErrUserNotFound
	}

	if user.Balance < price.Amount {
		s.repo.Rollback(tx)
		return nil, price, ErrInsufficientFunds
	}

	proxy, err := s.repo.GetFreeProxyForUpdate(ctx, tx)
	if err != nil {
		s.repo.Rollback(tx)
		return nil, nil, err
	}
	if proxy == nil {
		s.repo.Rollback(tx)
		return nil, price, ErrNoFreeProxies
	}

	if err := s.repo.IncrementBalance(ctx, telegramID, -price.Amount, tx); err != nil {
		s.repo.Rollback(tx)
		return nil, nil, err
	}

	expiration := time.Now().AddDate(0, 0, days)
	proxy.IsFree = false
	proxy.ExpirationDate = &expiration
	proxy.UserTelegramID = &telegramID

	if err := s.repo.UpdateProxy(ctx, proxy, tx); err != nil {
		s.repo.Rollback(tx)
		return nil, nil, err
	}

	if err := s.repo.Commit(tx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit rent: %w", err)
	}

	s.logger.Infof("Proxy %s rented by user %d for %d days", proxy.Login, telegramID, days)
	return proxy, price, nil
}

// GetRentPrices возвращает недельную и месячную цены для экрана покупки.
func (s *Service) GetRentPrices(ctx context.Context) (*models.Price, *models.Price, error) {
	week, err := s.repo.GetPriceByDescription(ctx, PriceWeek)
	if err != nil {
		return nil, nil, err
	}
	month, err := s.repo.GetPriceByDescription(ctx, PriceMonth)
	if err != nil {
		return nil, nil, err
	}
	if week == nil || month == nil {
		return nil, nil, ErrPriceNotFound
	}
	return week, month, nil
}

func (s *Service) UpdatePrice(ctx context.Context, description string, amount int64) error {
	if description != PriceWeek && description != PriceMonth {
		return fmt.Errorf("unknown price description: %s", description)
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.UpsertPrice(ctx, description, amount)
}
