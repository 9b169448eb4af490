package bot

import (
	"context"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
)

// requireRole возвращает пользователя, если он существует и его роль
// входит в допустимые. Любой отказ уже отправлен в чат.
func (b *Bot) requireRole(ctx context.Context, chatID, telegramID int64, roles ...string) (*models.User, bool) {
	user, err := b.service.GetUser(ctx, telegramID)
	if err != nil {
		b.logger.Errorf("Failed to get user %d: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return nil, false
	}
	if user == nil {
		b.sendMessage(chatID, "Пользователь не найден. Зарегистрируйтесь через /start.", nil)
		return nil, false
	}

	for _, role := range roles {
		if user.Role == role {
			return user, true
		}
	}

	b.sendMessage(chatID, "У вас нет прав на это действие.", nil)
	return nil, false
}
