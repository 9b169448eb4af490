package service

import (
	"context"
	"errors"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/config"
	"github.com/ShakerUp/tg-bot-sproxy/internal/gateway"
	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrProxyNotFound      = errors.New("proxy not found")
	ErrPriceNotFound      = errors.New("price not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoFreeProxies      = errors.New("no free proxies available")
	ErrProxyOccupied      = errors.New("proxy is already assigned")
	ErrInvalidReferral    = errors.New("invalid referral code")
	ErrReferralAlreadySet = errors.New("referral code already set")
	ErrInvalidAmount      = errors.New("invalid amount")
)

type Repository interface {
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	GetUserForUpdate(ctx context.Context, telegramID int64, tx *gorm.DB) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User, tx *gorm.DB) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	IncrementBalance(ctx context.Context, telegramID int64, delta int64, tx *gorm.DB) error
	IncrementReferralReward(ctx context.Context, telegramID int64, bonus int64, tx *gorm.DB) error
	CountReferrals(ctx context.Context, refCode string) (int64, error)

	GetProxyByLogin(ctx context.Context, login string) (*models.Proxy, error)
	GetFreeProxyForUpdate(ctx context.Context, tx *gorm.DB) (*models.Proxy, error)
	CountFreeProxies(ctx context.Context) (int64, error)
	GetProxiesByUser(ctx context.Context, telegramID int64) ([]models.Proxy, error)
	GetAllProxies(ctx context.Context) ([]models.Proxy, error)
	CreateProxy(ctx context.Context, proxy *models.Proxy) error
	UpdateProxy(ctx context.Context, proxy *models.Proxy, tx *gorm.DB) error
	GetExpiredProxies(ctx context.Context, now time.Time) ([]models.Proxy, error)

	GetPriceByDescription(ctx context.Context, description string) (*models.Price, error)
	UpsertPrice(ctx context.Context, description string, amount int64) error

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransactionByInvoiceID(ctx context.Context, invoiceID string) (*models.Transaction, error)
	GetTransactionsByUser(ctx context.Context, telegramID int64) ([]models.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, invoiceID, status string) error

	CreateTopUp(ctx context.Context, topUp *models.BalanceTopUp, tx *gorm.DB) error
	GetTopUpByTransactionID(ctx context.Context, transactionID uint) (*models.BalanceTopUp, error)
	GetTopUpByTransactionIDForUpdate(ctx context.Context, transactionID uint, tx *gorm.DB) (*models.BalanceTopUp, error)
	DeleteTopUp(ctx context.Context, id uint, tx *gorm.DB) error
	GetAllTopUps(ctx context.Context) ([]models.BalanceTopUp, error)

	CreateActivation(ctx context.Context, activation *models.Activation) error
	GetActivationsByReferrer(ctx context.Context, referrerTelegramID int64) ([]models.Activation, error)

	BeginTransaction(ctx context.Context) (*gorm.DB, error)
	Commit(tx *gorm.DB) error
	Rollback(tx *gorm.DB)
}

// Gateway абстрагирует платёжный шлюз. Стратегия по умолчанию
// pull: статусы опрашиваются по запросу пользователя; push-канал может
// заменить её, реализовав этот же интерфейс.
type Gateway interface {
	CreateInvoice(ctx context.Context, amount int64, currency, validity int, reference, destination string) (*gateway.Invoice, error)
	FetchStatus(ctx context.Context, invoiceID string) (string, error)
}

type Service struct {
	repo    Repository
	gateway Gateway
	logger  *utils.Logger
	config  *config.Config

	// Проба доступности прокси, подменяется в тестах.
	probeProxy func(ctx context.Context, proxy *models.Proxy) bool
}

func NewService(repo Repository, gw Gateway, cfg *config.Config, logger *utils.Logger) *Service {
	return &Service{
		repo:       repo,
		gateway:    gw,
		logger:     logger,
		config:     cfg,
		probeProxy: probeHTTPProxy,
	}
}

// ReferralBonusPercent возвращает настроенный процент реферального
// бонуса для экрана реферальной системы.
func (s *Service) ReferralBonusPercent() int64 {
	if s.config.ReferralBonusPct <= 0 {
		return 0
	}
	return s.config.ReferralBonusPct
}

func (s *Service) referralBonus(amount int64) int64 {
	pct := s.config.ReferralBonusPct
	if pct <= 0 {
		return 0
	}
	return amount * pct / 100
}
