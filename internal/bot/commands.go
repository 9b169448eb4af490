package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/internal/service"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) HandleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	// Незавершённый ввод имеет приоритет над командами.
	if !message.IsCommand() {
		switch b.getState(message.From.ID) {
		case stateAwaitingReferralCode:
			b.handleReferralCodeInput(ctx, message)
			return
		case stateAwaitingTopupAmount:
			b.handleTopupAmountInput(ctx, message)
			return
		case stateAwaitingBroadcast:
			b.handleBroadcastInput(ctx, message)
			return
		}
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "addproxy":
		b.handleAddProxy(ctx, message)
	case "freeproxy":
		b.handleFreeProxy(ctx, message)
	case "giveproxy":
		b.handleGiveProxy(ctx, message)
	case "updateproxypass":
		b.handleUpdateProxyPass(ctx, message)
	case "updateproxyprice":
		b.handleUpdateProxyPrice(ctx, message)
	case "updateuserbalance":
		b.handleUpdateUserBalance(ctx, message)
	case "updateuserbonus":
		b.handleUpdateUserBonus(ctx, message)
	case "broadcast":
		b.handleBroadcast(ctx, message)
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	// Deep-link вида t.me/bot?start=<код> доносит реферальный код до
	// момента регистрации.
	if refCode := strings.TrimSpace(message.CommandArguments()); refCode != "" {
		b.setStartRefCode(message.From.ID, refCode)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Войти/Зарегистрироваться", "login_or_register"),
		),
	)
	b.sendMessage(message.Chat.ID,
		"Добро пожаловать в SimpleProxy! Для входа в свой профиль или регистрации нажмите кнопку ниже.",
		keyboard)
}

func (b *Bot) handleAddProxy(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	proxy, err := b.service.AddProxy(ctx, message.CommandArguments())
	if err != nil {
		b.sendMessage(chatID, err.Error(), nil)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("Прокси <code>%s</code> добавлен в пул.", proxy.Login), nil)
}

func (b *Bot) handleFreeProxy(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) != 2 {
		b.sendMessage(chatID, "Использование: /freeproxy логин новый_пароль", nil)
		return
	}

	err := b.service.FreeProxy(ctx, args[0], args[1])
	switch {
	case err == nil:
		b.sendMessage(chatID, fmt.Sprintf("Прокси <code>%s</code> освобождён, пароль обновлён.", args[0]), nil)
	case errors.Is(err, service.ErrProxyNotFound):
		b.sendMessage(chatID, "Прокси с таким логином не найден.", nil)
	default:
		b.logger.Errorf("Failed to free proxy %s: %v", args[0], err)
		b.sendMessage(chatID, errTryLater, nil)
	}
}

func (b *Bot) handleGiveProxy(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) != 3 {
		b.sendMessage(chatID, "Использование: /giveproxy логин telegram_id дней", nil)
		return
	}

	targetID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		b.sendMessage(chatID, "Неверный Telegram ID.", nil)
		return
	}
	days, err := strconv.Atoi(args[2])
	if err != nil || days <= 0 {
		b.sendMessage(chatID, "Неверное количество дней.", nil)
		return
	}

	targetUser, err := b.service.GiveProxy(ctx, args[0], targetID, days)
	switch {
	case err == nil:
		b.sendMessage(chatID, fmt.Sprintf("Прокси <code>%s</code> выдан пользователю %s на %d дней.", args[0], targetUser.Username, days), nil)
		b.sendMessage(targetUser.ChatID, fmt.Sprintf("Вам выдан прокси на %d дней. Детали в разделе \"Мои прокси\".", days), nil)
	case errors.Is(err, service.ErrProxyNotFound):
		b.sendMessage(chatID, "Прокси с таким логином не найден.", nil)
	case errors.Is(err, service.ErrProxyOccupied):
		b.sendMessage(chatID, "Прокси уже занят.", nil)
	case errors.Is(err, service.ErrUserNotFound):
		b.sendMessage(chatID, "Пользователь не найден.", nil)
	default:
		b.logger.Errorf("Failed to give proxy %s to %d: %v", args[0], targetID, err)
		b.sendMessage(chatID, errTryLater, nil)
	}
}

func (b *Bot) handleUpdateProxyPass(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) != 2 {
		b.sendMessage(chatID, "Использование: /updateproxypass логин новый_пароль", nil)
		return
	}

	err := b.service.UpdateProxyPassword(ctx, args[0], args[1])
	switch {
	case err == nil:
		b.sendMessage(chatID, fmt.Sprintf("Пароль прокси <code>%s</code> обновлён.", args[0]), nil)
	case errors.Is(err, service.ErrProxyNotFound):
		b.sendMessage(chatID, "Прокси с таким логином не найден.", nil)
	default:
		b.logger.Errorf("Failed to update proxy password for %s: %v", args[0], err)
		b.sendMessage(chatID, errTryLater, nil)
	}
}

func (b *Bot) handleUpdateProxyPrice(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) != 2 || (args[0] != service.PriceWeek && args[0] != service.PriceMonth) {
		b.sendMessage(chatID, "Использование: /updateproxyprice week|month сумма", nil)
		return
	}

	amount, err := utils.ParseAmount(args[1])
	if err != nil {
		b.sendMessage(chatID, err.Error(), nil)
		return
	}

	if err := b.service.UpdatePrice(ctx, args[0], amount); err != nil {
		b.logger.Errorf("Failed to update price %s: %v", args[0], err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("Цена аренды (%s) обновлена: %s.", args[0], utils.FormatAmount(amount)), nil)
}

func (b *Bot) handleUpdateUserBalance(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	targetID, delta, ok := parseUserDelta(message.CommandArguments())
	if !ok {
		b.sendMessage(chatID, "Использование: /updateuserbalance telegram_id сумма (можно отрицательную)", nil)
		return
	}

	err := b.service.AdjustBalance(ctx, targetID, delta)
	switch {
	case err == nil:
		b.sendMessage(chatID, fmt.Sprintf("Баланс пользователя %d изменён на %s.", targetID, utils.FormatAmount(delta)), nil)
	case errors.Is(err, service.ErrUserNotFound):
		b.sendMessage(chatID, "Пользователь не найден.", nil)
	default:
		b.logger.Errorf("Failed to adjust balance for %d: %v", targetID, err)
		b.sendMessage(chatID, errTryLater, nil)
	}
}

func (b *Bot) handleUpdateUserBonus(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	targetID, delta, ok := parseUserDelta(message.CommandArguments())
	if !ok {
		b.sendMessage(chatID, "Использование: /updateuserbonus telegram_id сумма (можно отрицательную)", nil)
		return
	}

	err := b.service.AdjustReferralEarnings(ctx, targetID, delta)
	switch {
	case err == nil:
		b.sendMessage(chatID, fmt.Sprintf("Реферальный заработок пользователя %d изменён на %s.", targetID, utils.FormatAmount(delta)), nil)
	case errors.Is(err, service.ErrUserNotFound):
		b.sendMessage(chatID, "Пользователь не найден.", nil)
	default:
		b.logger.Errorf("Failed to adjust referral earnings for %d: %v", targetID, err)
		b.sendMessage(chatID, errTryLater, nil)
	}
}

// parseUserDelta разбирает "telegram_id сумма", сумма в долларах со
// знаком.
func parseUserDelta(argsText string) (int64, int64, bool) {
	args := strings.Fields(argsText)
	if len(args) != 2 {
		return 0, 0, false
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	amount, err := utils.ParseAmount(args[1])
	if err != nil {
		return 0, 0, false
	}
	return targetID, amount, true
}

func (b *Bot) handleBroadcast(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	b.setState(message.From.ID, stateAwaitingBroadcast)
	b.sendMessage(chatID, "Отправьте текст рассылки следующим сообщением. Для отмены нажмите \"Назад\" в меню.", nil)
}

func (b *Bot) handleBroadcastInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.setState(message.From.ID, stateIdle)

	if _, ok := b.requireRole(ctx, chatID, message.From.ID, models.RoleAdmin); !ok {
		return
	}

	users, err := b.service.GetAllUsers(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get users for broadcast: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	sent := 0
	for _, user := range users {
		if user.ChatID == 0 {
			continue
		}
		b.sendMessage(user.ChatID, message.Text, nil)
		sent++
	}

	b.logger.Infof("Broadcast sent to %d users", sent)
	b.sendMessage(chatID, fmt.Sprintf("Рассылка отправлена %d пользователям.", sent), nil)
}
