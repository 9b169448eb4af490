package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/config"
	"github.com/ShakerUp/tg-bot-sproxy/internal/gateway"
	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/internal/repository"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	"gorm.io/gorm"
)

// fakeRepo хранит все в памяти. Транзакции БД он не моделирует,
// tx всегда nil, методы применяют эффект сразу.
type fakeRepo struct {
	users       map[int64]*models.User
	proxies     []*models.Proxy
	prices      map[string]*models.Price
	txns        []*models.Transaction
	topUps      map[uint]*models.BalanceTopUp
	activations []models.Activation

	nextTopUpID uint
	failCreate  error // подменяет результат CreateTopUp
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  make(map[int64]*models.User),
		prices: make(map[string]*models.Price),
		topUps: make(map[uint]*models.BalanceTopUp),
	}
}

func (r *fakeRepo) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	user, ok := r.users[telegramID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeRepo) GetUserForUpdate(ctx context.Context, telegramID int64, tx *gorm.DB) (*models.User, error) {
	return r.GetUser(ctx, telegramID)
}

func (r *fakeRepo) CreateUser(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.TelegramID]; ok {
		return fmt.Errorf("user %d already exists", user.TelegramID)
	}
	copied := *user
	copied.CreatedAt = time.Now()
	r.users[user.TelegramID] = &copied
	return nil
}

func (r *fakeRepo) UpdateUser(ctx context.Context, user *models.User, tx *gorm.DB) error {
	if _, ok := r.users[user.TelegramID]; !ok {
		return fmt.Errorf("user %d not found", user.TelegramID)
	}
	copied := *user
	r.users[user.TelegramID] = &copied
	return nil
}

func (r *fakeRepo) GetAllUsers(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func (r *fakeRepo) IncrementBalance(ctx context.Context, telegramID int64, delta int64, tx *gorm.DB) error {
	user, ok := r.users[telegramID]
	if !ok {
		return fmt.Errorf("user %d not found", telegramID)
	}
	user.Balance += delta
	return nil
}

func (r *fakeRepo) IncrementReferralReward(ctx context.Context, telegramID int64, bonus int64, tx *gorm.DB) error {
	user, ok := r.users[telegramID]
	if !ok {
		return fmt.Errorf("user %d not found", telegramID)
	}
	user.Balance += bonus
	user.RefEarnings += bonus
	return nil
}

func (r *fakeRepo) CountReferrals(ctx context.Context, refCode string) (int64, error) {
	var count int64
	for _, user := range r.users {
		if user.RefCode == refCode {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) GetProxyByLogin(ctx context.Context, login string) (*models.Proxy, error) {
	for _, proxy := range r.proxies {
		if proxy.Login == login {
			copied := *proxy
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetFreeProxyForUpdate(ctx context.Context, tx *gorm.DB) (*models.Proxy, error) {
	for _, proxy := range r.proxies {
		if proxy.IsFree {
			copied := *proxy
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) CountFreeProxies(ctx context.Context) (int64, error) {
	var count int64
	for _, proxy := range r.proxies {
		if proxy.IsFree {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) GetProxiesByUser(ctx context.Context, telegramID int64) ([]models.Proxy, error) {
	var out []models.Proxy
	for _, proxy := range r.proxies {
		if proxy.UserTelegramID != nil && *proxy.UserTelegramID == telegramID {
			out = append(out, *proxy)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetAllProxies(ctx context.Context) ([]models.Proxy, error) {
	out := make([]models.Proxy, 0, len(r.proxies))
	for _, proxy := range r.proxies {
		out = append(out, *proxy)
	}
	return out, nil
}

func (r *fakeRepo) CreateProxy(ctx context.Context, proxy *models.Proxy) error {
	copied := *proxy
	copied.ID = uint(len(r.proxies) + 1)
	r.proxies = append(r.proxies, &copied)
	proxy.ID = copied.ID
	return nil
}

func (r *fakeRepo) UpdateProxy(ctx context.Context, proxy *models.Proxy, tx *gorm.DB) error {
	for i, existing := range r.proxies {
		if existing.ID == proxy.ID {
			copied := *proxy
			r.proxies[i] = &copied
			return nil
		}
	}
	return fmt.Errorf("proxy %d not found", proxy.ID)
}

func (r *fakeRepo) GetExpiredProxies(ctx context.Context, now time.Time) ([]models.Proxy, error) {
	var out []models.Proxy
	for _, proxy := range r.proxies {
		if !proxy.IsFree && proxy.ExpirationDate != nil && proxy.ExpirationDate.Before(now) {
			out = append(out, *proxy)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetPriceByDescription(ctx context.Context, description string) (*models.Price, error) {
	price, ok := r.prices[description]
	if !ok {
		return nil, nil
	}
	copied := *price
	return &copied, nil
}

func (r *fakeRepo) UpsertPrice(ctx context.Context, description string, amount int64) error {
	r.prices[description] = &models.Price{Description: description, Amount: amount, Currency: 840}
	return nil
}

func (r *fakeRepo) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	copied := *txn
	copied.ID = uint(len(r.txns) + 1)
	copied.CreatedAt = time.Now()
	r.txns = append(r.txns, &copied)
	txn.ID = copied.ID
	return nil
}

func (r *fakeRepo) GetTransactionByInvoiceID(ctx context.Context, invoiceID string) (*models.Transaction, error) {
	for _, txn := range r.txns {
		if txn.InvoiceID == invoiceID {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetTransactionsByUser(ctx context.Context, telegramID int64) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range r.txns {
		if txn.UserTelegramID == telegramID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(r.txns))
	for _, txn := range r.txns {
		out = append(out, *txn)
	}
	return out, nil
}

func (r *fakeRepo) UpdateTransactionStatus(ctx context.Context, invoiceID, status string) error {
	for _, txn := range r.txns {
		if txn.InvoiceID == invoiceID {
			txn.Status = status
			return nil
		}
	}
	return fmt.Errorf("transaction %s not found", invoiceID)
}

func (r *fakeRepo) CreateTopUp(ctx context.Context, topUp *models.BalanceTopUp, tx *gorm.DB) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	for _, existing := range r.topUps {
		if existing.TransactionID == topUp.TransactionID {
			return repository.ErrDuplicateTopUp
		}
	}
	r.nextTopUpID++
	copied := *topUp
	copied.ID = r.nextTopUpID
	copied.CreatedAt = time.Now()
	r.topUps[copied.ID] = &copied
	topUp.ID = copied.ID
	return nil
}

func (r *fakeRepo) GetTopUpByTransactionID(ctx context.Context, transactionID uint) (*models.BalanceTopUp, error) {
	for _, topUp := range r.topUps {
		if topUp.TransactionID == transactionID {
			copied := *topUp
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetTopUpByTransactionIDForUpdate(ctx context.Context, transactionID uint, tx *gorm.DB) (*models.BalanceTopUp, error) {
	return r.GetTopUpByTransactionID(ctx, transactionID)
}

func (r *fakeRepo) DeleteTopUp(ctx context.Context, id uint, tx *gorm.DB) error {
	if _, ok := r.topUps[id]; !ok {
		return fmt.Errorf("top-up %d not found", id)
	}
	delete(r.topUps, id)
	return nil
}

func (r *fakeRepo) GetAllTopUps(ctx context.Context) ([]models.BalanceTopUp, error) {
	out := make([]models.BalanceTopUp, 0, len(r.topUps))
	for _, topUp := range r.topUps {
		out = append(out, *topUp)
	}
	return out, nil
}

func (r *fakeRepo) CreateActivation(ctx context.Context, activation *models.Activation) error {
	for _, existing := range r.activations {
		if existing.ActivatedTelegramID == activation.ActivatedTelegramID {
			return nil
		}
	}
	r.activations = append(r.activations, *activation)
	return nil
}

func (r *fakeRepo) GetActivationsByReferrer(ctx context.Context, referrerTelegramID int64) ([]models.Activation, error) {
	var out []models.Activation
	for _, activation := range r.activations {
		if activation.ReferrerTelegramID == referrerTelegramID {
			out = append(out, activation)
		}
	}
	return out, nil
}

func (r *fakeRepo) BeginTransaction(ctx context.Context) (*gorm.DB, error) { return nil, nil }
func (r *fakeRepo) Commit(tx *gorm.DB) error                              { return nil }
func (r *fakeRepo) Rollback(tx *gorm.DB)                                  {}

// fakeGateway отдаёт статусы по invoiceId из map; отсутствующий
// invoiceId считается ошибкой сети.
type fakeGateway struct {
	statuses map[string]string
	invoices int
	calls    int
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, amount int64, currency, validity int, reference, destination string) (*gateway.Invoice, error) {
	g.invoices++
	id := fmt.Sprintf("inv-%d", g.invoices)
	return &gateway.Invoice{InvoiceID: id, PageURL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) FetchStatus(ctx context.Context, invoiceID string) (string, error) {
	g.calls++
	status, ok := g.statuses[invoiceID]
	if !ok {
		return "", errors.New("gateway unavailable")
	}
	return status, nil
}

func newTestService(repo Repository, gw Gateway) *Service {
	cfg := &config.Config{
		ReferralBonusPct:    10,
		InvoiceValiditySecs: 120,
	}
	return NewService(repo, gw, cfg, utils.InitLogger())
}
