package repository

import (
	"errors"

	"github.com/ShakerUp/tg-bot-sproxy/utils"
	"gorm.io/gorm"
)

// ErrDuplicateTopUp возвращается при попытке создать второе зачисление
// по одной и той же транзакции (нарушение уникального индекса).
var ErrDuplicateTopUp = errors.New("top-up for this transaction already exists")

type Repository struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewRepository(db *gorm.DB, logger *utils.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}
