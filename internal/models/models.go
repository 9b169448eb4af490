package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleTraf  = "traf"
)

// Статусы транзакции, как их отдаёт платёжный шлюз.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailure    = "failure"
	StatusReversed   = "reversed"
	StatusExpired    = "expired"
)

type User struct {
	TelegramID  int64  `gorm:"primaryKey" json:"telegram_id"`
	ChatID      int64  `json:"chat_id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	Role        string `gorm:"default:user" json:"role"`
	Balance     int64  `gorm:"default:0" json:"balance"` // в центах
	RefCode     string `json:"ref_code"`                 // telegram id пригласившего
	RefEarnings int64  `gorm:"default:0" json:"ref_earnings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Proxy struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	HostIP         string     `json:"host_ip"`
	SocksPort      int        `gorm:"uniqueIndex" json:"socks_port"`
	HTTPPort       int        `gorm:"uniqueIndex" json:"http_port"`
	Login          string     `gorm:"uniqueIndex" json:"login"`
	Password       string     `json:"password"`
	ChangeIPURL    string     `gorm:"uniqueIndex" json:"change_ip_url"`
	IsFree         bool       `json:"is_free"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	UserTelegramID *int64     `gorm:"index" json:"user_telegram_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Price хранит стоимость аренды: description = week или month.
type Price struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Description string `gorm:"uniqueIndex" json:"description"`
	Amount      int64  `json:"amount"` // в центах
	Currency    int    `gorm:"default:840" json:"currency"`
}

type Transaction struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserTelegramID int64  `gorm:"index" json:"user_telegram_id"`
	InvoiceID      string `gorm:"uniqueIndex" json:"invoice_id"`
	Amount         int64  `json:"amount"` // в центах
	Currency       int    `json:"currency"`
	Validity       int    `json:"validity"` // секунды действия счета
	Status         string `gorm:"default:created" json:"status"`
	PageURL        string `json:"page_url"`
	Reference      string `json:"reference"`
	Destination    string `json:"destination"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceTopUp фиксирует фактическое зачисление средств по транзакции.
// Уникальный индекс по TransactionID гарантирует не более одного
// зачисления на транзакцию.
type BalanceTopUp struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserTelegramID int64  `gorm:"index" json:"user_telegram_id"`
	TransactionID  uint   `gorm:"uniqueIndex" json:"transaction_id"`
	Amount         int64  `json:"amount"` // в центах
	Currency       int    `json:"currency"`
	RefCode        string `json:"ref_code"` // реферальный код на момент зачисления

	CreatedAt time.Time `json:"created_at"`
}

// Activation фиксирует привязку реферального кода.
type Activation struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	ReferrerTelegramID  int64  `gorm:"index" json:"referrer_telegram_id"`
	ActivatedTelegramID int64  `gorm:"uniqueIndex" json:"activated_telegram_id"`
	ActivatedUsername   string `json:"activated_username"`

	CreatedAt time.Time `json:"created_at"`
}
