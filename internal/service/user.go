package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
)

func (s *Service) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUser(ctx, telegramID)
}

func (s *Service) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

// RegisterUser создаёт пользователя после принятия соглашения.
// Реферальный код из deep-link /start привязывается сразу, если он
// указывает на существующего пользователя и это не сам регистрирующийся.
func (s *Service) RegisterUser(ctx context.Context, telegramID, chatID int64, username, firstName, refCode string) (*models.User, error) {
	existing, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return existing, ErrUserAlreadyExists
	}

	user := &models.User{
		TelegramID: telegramID,
		ChatID:     chatID,
		Username:   username,
		FirstName:  firstName,
		Role:       models.RoleUser,
	}

	if refCode != "" {
		if referrer, ok := s.resolveReferrer(ctx, telegramID, refCode); ok {
			user.RefCode = strconv.FormatInt(referrer.TelegramID, 10)
		}
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if user.RefCode != "" {
		s.recordActivation(ctx, user)
	}

	s.logger.Infof("Registered user %d (%s)", telegramID, username)
	return user, nil
}

// AttachReferralCode привязывает код задним числом с экрана
// реферальной системы. Код можно установить только один раз.
func (s *Service) AttachReferralCode(ctx context.Context, telegramID int64, code string) error {
	user, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.RefCode != "" {
		return ErrReferralAlreadySet
	}

	referrer, ok := s.resolveReferrer(ctx, telegramID, code)
	if !ok {
		return ErrInvalidReferral
	}

	user.RefCode = strconv.FormatInt(referrer.TelegramID, 10)
	if err := s.repo.UpdateUser(ctx, user, nil); err != nil {
		return fmt.Errorf("failed to save referral code: %w", err)
	}

	s.recordActivation(ctx, user)
	return nil
}

func (s *Service) resolveReferrer(ctx context.Context, telegramID int64, code string) (*models.User, bool) {
	referrerID, ok := parseRefCode(code)
	if !ok || referrerID == telegramID {
		return nil, false
	}

	referrer, err := s.repo.GetUser(ctx, referrerID)
	if err != nil {
		s.logger.Errorf("Failed to resolve referrer %s: %v", code, err)
		return nil, false
	}
	if referrer == nil {
		return nil, false
	}
	return referrer, true
}

func (s *Service) recordActivation(ctx context.Context, user *models.User) {
	referrerID, ok := parseRefCode(user.RefCode)
	if !ok {
		return
	}

	activation := &models.Activation{
		ReferrerTelegramID:  referrerID,
		ActivatedTelegramID: user.TelegramID,
		ActivatedUsername:   user.Username,
	}
	if err := s.repo.CreateActivation(ctx, activation); err != nil {
		// Трекинг активаций не должен ломать основной поток.
		s.logger.Errorf("Failed to record activation for user %d: %v", user.TelegramID, err)
	}
}

type ReferralStats struct {
	ReferralCount int64
	Earnings      int64
}

func (s *Service) GetReferralStats(ctx context.Context, user *models.User) (*ReferralStats, error) {
	count, err := s.repo.CountReferrals(ctx, strconv.FormatInt(user.TelegramID, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}
	return &ReferralStats{
		ReferralCount: count,
		Earnings:      user.RefEarnings,
	}, nil
}

func (s *Service) GetActivationsByReferrer(ctx context.Context, referrerTelegramID int64) ([]models.Activation, error) {
	return s.repo.GetActivationsByReferrer(ctx, referrerTelegramID)
}

// AdjustBalance выполняет админскую правку баланса на delta (в центах,
// может быть отрицательной).
func (s *Service) AdjustBalance(ctx context.Context, telegramID, delta int64) error {
	user, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.repo.IncrementBalance(ctx, telegramID, delta, nil)
}

// AdjustReferralEarnings выполняет админскую правку реферального заработка.
func (s *Service) AdjustReferralEarnings(ctx context.Context, telegramID, delta int64) error {
	user, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.repo.IncrementReferralReward(ctx, telegramID, delta, nil)
}
