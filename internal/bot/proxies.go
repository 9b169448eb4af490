package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/internal/service"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleMyProxies(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	if _, ok := b.requireRole(ctx, chatID, telegramID, models.RoleAdmin, models.RoleUser, models.RoleTraf); !ok {
		return
	}

	proxies, err := b.service.GetProxiesByUser(ctx, telegramID)
	if err != nil {
		b.logger.Errorf("Failed to get proxies for user %d: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	var text string
	if len(proxies) > 0 {
		var sb strings.Builder
		sb.WriteString("<b>🔗 Ваши прокси: 🔗</b>\n\n")
		for i, proxy := range proxies {
			fmt.Fprintf(&sb, "<b>Прокси №%d:</b>\n", i+1)
			fmt.Fprintf(&sb, "<b>Host:</b> <code>%s</code>\n", proxy.HostIP)
			fmt.Fprintf(&sb, "<b>Socks порт:</b> <code>%d</code>\n", proxy.SocksPort)
			fmt.Fprintf(&sb, "<b>HTTP порт:</b> <code>%d</code>\n", proxy.HTTPPort)
			fmt.Fprintf(&sb, "<b>Логин:</b> <code>%s</code>\n", proxy.Login)
			fmt.Fprintf(&sb, "<b>Пароль:</b> <code>%s</code>\n", proxy.Password)
			fmt.Fprintf(&sb, "<b>Ссылка для смены IP:</b> <code>%s</code>\n", proxy.ChangeIPURL)
			if proxy.ExpirationDate != nil {
				fmt.Fprintf(&sb, "<b>Дата окончания:</b> %s\n", formatTime(*proxy.ExpirationDate))
			}
			sb.WriteString("\n")
		}
		text = sb.String()
	} else {
		text = "У вас пока нет купленных прокси."
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Купить прокси", "buy_proxies"),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "login_or_register"),
		),
	)
	b.editMessage(chatID, messageID, text, &keyboard)
}

func (b *Bot) handleBuyProxies(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	if _, ok := b.requireRole(ctx, chatID, telegramID, models.RoleAdmin, models.RoleUser, models.RoleTraf); !ok {
		return
	}

	// Покупка оплачивается с баланса, поэтому по пути обновляем
	// статусы незакрытых транзакций.
	if _, _, err := b.service.RefreshUserTransactions(ctx, telegramID); err != nil {
		b.logger.Warnf("Failed to refresh transactions before purchase screen: %v", err)
	}

	freeCount, err := b.service.CountFreeProxies(ctx)
	if err != nil {
		b.logger.Errorf("Failed to count free proxies: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	week, month, err := b.service.GetRentPrices(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get rent prices: %v", err)
		b.sendMessage(chatID, "Цены аренды не настроены. Попробуйте позже.", nil)
		return
	}

	countText := fmt.Sprintf("<b>%d</b>", freeCount)
	if freeCount == 0 {
		countText = fmt.Sprintf("<b>❗️%d</b>", freeCount)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("7 дней (%s)", utils.FormatAmount(week.Amount)), "rent_7_days"),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("30 дней (%s)", utils.FormatAmount(month.Amount)), "rent_30_days"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "my_proxies"),
		),
	)

	text := fmt.Sprintf("В наличии %s свободных прокси. Выберите опцию аренды:", countText)
	b.editMessage(chatID, messageID, text, &keyboard)
}

func (b *Bot) handleRent(ctx context.Context, callback *tgbotapi.CallbackQuery, days int) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	if _, ok := b.requireRole(ctx, chatID, telegramID, models.RoleAdmin, models.RoleUser, models.RoleTraf); !ok {
		return
	}

	proxy, price, err := b.service.RentProxy(ctx, telegramID, days)

	var text string
	switch {
	case err == nil:
		text = fmt.Sprintf("Вы успешно приобрели прокси на %d дней за %s.", days, utils.FormatAmount(price.Amount))
	case errors.Is(err, service.ErrNoFreeProxies):
		text = "Извините, нет доступных прокси в данный момент."
	case errors.Is(err, service.ErrInsufficientFunds):
		text = "Недостаточно средств на балансе."
	case errors.Is(err, service.ErrPriceNotFound):
		text = "Цены аренды не настроены. Попробуйте позже."
	default:
		b.logger.Errorf("Failed to rent proxy for user %d: %v", telegramID, err)
		text = errTryLater
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "buy_proxies"),
		),
	)
	b.editMessage(chatID, messageID, text, &keyboard)

	if err == nil && proxy != nil {
		b.sendMessage(chatID, proxyDetailsText(proxy), nil)
	}
}

func proxyDetailsText(proxy *models.Proxy) string {
	var sb strings.Builder
	sb.WriteString("<b>Данные вашего прокси:</b>\n")
	fmt.Fprintf(&sb, "<b>Host:</b> <code>%s</code>\n", proxy.HostIP)
	fmt.Fprintf(&sb, "<b>Socks порт:</b> <code>%d</code>\n", proxy.SocksPort)
	fmt.Fprintf(&sb, "<b>HTTP порт:</b> <code>%d</code>\n", proxy.HTTPPort)
	fmt.Fprintf(&sb, "<b>Логин:</b> <code>%s</code>\n", proxy.Login)
	fmt.Fprintf(&sb, "<b>Пароль:</b> <code>%s</code>\n", proxy.Password)
	fmt.Fprintf(&sb, "<b>Ссылка для смены IP:</b> <code>%s</code>\n", proxy.ChangeIPURL)
	if proxy.ExpirationDate != nil {
		fmt.Fprintf(&sb, "<b>Дата окончания:</b> %s\n", formatTime(*proxy.ExpirationDate))
	}
	return sb.String()
}
