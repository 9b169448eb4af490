package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram ограничивает сообщение 4096 символами; длинные списки
// режем на страницы примерно по 4000.
const pageChunkSize = 4000

func chunkMessages(header string, items []string, footer string) []string {
	var pages []string
	current := header

	flush := func() {
		pages = append(pages, current)
		current = ""
	}

	for _, item := range items {
		// Элемент длиннее страницы режем принудительно, по границе руны.
		for len(item) > pageChunkSize {
			if current != "" {
				flush()
			}
			cut := splitPoint(item, pageChunkSize)
			current = item[:cut]
			flush()
			item = item[cut:]
		}
		if len(current)+len(item) > pageChunkSize {
			flush()
		}
		current += item
	}

	if current != "" && len(current)+len(footer) > pageChunkSize {
		flush()
	}
	current += footer
	pages = append(pages, current)
	return pages
}

// splitPoint возвращает наибольшую позицию не дальше limit, по которой
// строку можно резать, не разрывая UTF-8 руну.
func splitPoint(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}

func pagingKeyboard(prefix string, page, total int, backData string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if page > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Назад", fmt.Sprintf("%s_%d", prefix, page-1)),
		))
	}
	if page < total-1 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Далее", fmt.Sprintf("%s_%d", prefix, page+1)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", backData),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleAdminPanel(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if _, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin); !ok {
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Пользователи", "admin_users"),
			tgbotapi.NewInlineKeyboardButtonData("Прокси", "admin_proxies"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Пополнения баланса", "admin_topups"),
			tgbotapi.NewInlineKeyboardButtonData("Транзакции", "admin_transactions"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Проверить все прокси", "check_all_proxies"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "login_or_register"),
		),
	)
	b.editMessage(chatID, messageID, "Админ панель:", &keyboard)
}

func (b *Bot) handleAdminUsers(ctx context.Context, callback *tgbotapi.CallbackQuery, page int) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if _, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin); !ok {
		return
	}

	users, err := b.service.GetAllUsers(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get all users: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	items := make([]string, 0, len(users))
	for i, user := range users {
		var sb strings.Builder
		fmt.Fprintf(&sb, "<b>№%d | %s:</b>\n", i+1, user.Role)
		fmt.Fprintf(&sb, "<b>Имя пользователя:</b> %s / %s\n", user.Username, user.FirstName)
		fmt.Fprintf(&sb, "<b>Telegram ID:</b> %d\n", user.TelegramID)
		fmt.Fprintf(&sb, "<b>Баланс:</b> %s\n", utils.FormatAmount(user.Balance))
		fmt.Fprintf(&sb, "<b>Дата регистрации:</b> %s\n\n", formatTime(user.CreatedAt))
		items = append(items, sb.String())
	}

	footer := fmt.Sprintf("Последнее обновление: %s", formatTime(time.Now()))
	pages := chunkMessages("<b>Все пользователи:</b>\n\n", items, footer)

	if page >= len(pages) {
		page = len(pages) - 1
	}

	keyboard := pagingKeyboard("admin_users", page, len(pages), "admin_panel")
	b.editMessage(chatID, messageID, pages[page], &keyboard)
}

func (b *Bot) handleAdminProxies(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if _, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin); !ok {
		return
	}

	proxies, err := b.service.GetAllProxies(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get all proxies: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	users, err := b.service.GetAllUsers(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get users for proxy listing: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}
	usersByID := make(map[int64]models.User, len(users))
	for _, user := range users {
		usersByID[user.TelegramID] = user
	}

	var sb strings.Builder
	sb.WriteString("<b>Все прокси:</b>")
	for _, proxy := range proxies {
		status := "СВОБОДНО"
		if !proxy.IsFree && proxy.UserTelegramID != nil {
			holder := fmt.Sprintf("%d", *proxy.UserTelegramID)
			if user, ok := usersByID[*proxy.UserTelegramID]; ok {
				holder = user.Username
			}
			status = fmt.Sprintf("ЗАНЯТО %s %s", holder, timeRemaining(proxy.ExpirationDate))
		}

		fmt.Fprintf(&sb, "\n\n<b>Прокси %s: - %s</b>\n", proxy.Login, status)
		fmt.Fprintf(&sb, "Host: %s\n", proxy.HostIP)
		fmt.Fprintf(&sb, "Socks порт: %d\n", proxy.SocksPort)
		fmt.Fprintf(&sb, "HTTP порт: %d\n", proxy.HTTPPort)
		fmt.Fprintf(&sb, "Логин: %s\n", proxy.Login)
		fmt.Fprintf(&sb, "Пароль: %s\n", proxy.Password)
		fmt.Fprintf(&sb, "Ссылка для смены IP: <code>%s</code>\n", proxy.ChangeIPURL)
		if proxy.ExpirationDate != nil {
			fmt.Fprintf(&sb, "Дата окончания: %s", formatTime(*proxy.ExpirationDate))
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "admin_panel"),
		),
	)
	b.editMessage(chatID, messageID, sb.String(), &keyboard)
}

// handleCheckAllProxies прогоняет проверку доступности по всему пулу.
// Проверка сетевая и занимает время пропорционально размеру пула.
func (b *Bot) handleCheckAllProxies(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if _, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin); !ok {
		return
	}

	results, err := b.service.CheckAllProxies(ctx)
	if err != nil {
		b.logger.Errorf("Failed to check proxies: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	var sb strings.Builder
	if len(results) > 0 {
		sb.WriteString("<b>Результат проверки всех прокси:</b>\n\n")
		for _, result := range results {
			verdict := "Не работает🔴"
			if result.OK {
				verdict = "Работает🟢"
			}
			fmt.Fprintf(&sb, "Прокси %s: %s\n", result.Login, verdict)
		}
	} else {
		sb.WriteString("Нет прокси для проверки.")
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Админ панель", "admin_panel"),
		),
	)
	b.editMessage(chatID, messageID, sb.String(), &keyboard)
}

func timeRemaining(expiration *time.Time) string {
	if expiration == nil {
		return ""
	}
	diff := time.Until(*expiration)
	days := int(diff.Hours()) / 24
	hours := int(diff.Hours()) % 24
	if days > 0 {
		return fmt.Sprintf("%d дн. %d час.", days, hours)
	}
	return fmt.Sprintf("%d час.", hours)
}

func (b *Bot) handleAdminTopUps(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if _, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin); !ok {
		return
	}

	topUps, err := b.service.GetAllTopUps(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get top-ups: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "admin_panel"),
		),
	)

	if len(topUps) == 0 {
		b.editMessage(chatID, messageID, "Пока что нет пополнений баланса.", &keyboard)
		return
	}

	users, err := b.service.GetAllUsers(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get users for top-up listing: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}
	usersByID := make(map[int64]models.User, len(users))
	for _, user := range users {
		usersByID[user.TelegramID] = user
	}

	var sb strings.Builder
	sb.WriteString("Список пополнений баланса:\n\n")
	for i, topUp := range topUps {
		holder := fmt.Sprintf("%d", topUp.UserTelegramID)
		if user, ok := usersByID[topUp.UserTelegramID]; ok {
			holder = user.Username
		}
		fmt.Fprintf(&sb, "№%d\n", i+1)
		fmt.Fprintf(&sb, "Пользователь: %s\n", holder)
		fmt.Fprintf(&sb, "Сумма: %s\n", utils.FormatAmount(topUp.Amount))
		fmt.Fprintf(&sb, "Дата: %s\n\n", formatTime(topUp.CreatedAt))
	}

	b.editMessage(chatID, messageID, sb.String(), &keyboard)
}

// handleAdminTransactions показывает все транзакции; как и
// "Мой баланс", просмотр запускает сверку статусов со шлюзом.
func (b *Bot) handleAdminTransactions(ctx context.Context, callback *tgbotapi.CallbackQuery, page int) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if _, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin); !ok {
		return
	}

	txns, failed, err := b.service.RefreshAllTransactions(ctx)
	if err != nil {
		b.logger.Errorf("Failed to refresh all transactions: %v", err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	items := make([]string, 0, len(txns))
	for i, txn := range txns {
		item := fmt.Sprintf("<b>№%d | %s</b>\nПользователь: %d\nСумма: %s; Статус: %s; %s\n\n",
			i+1, txn.InvoiceID, txn.UserTelegramID, utils.FormatAmount(txn.Amount), txn.Status, formatTime(txn.CreatedAt))
		items = append(items, item)
	}

	footer := ""
	if len(failed) > 0 {
		footer = fmt.Sprintf("⚠️ Не удалось обновить статусы: %d\n", len(failed))
	}
	footer += fmt.Sprintf("Последнее обновление: %s", formatTime(time.Now()))

	header := "<b>Все транзакции:</b>\n\n"
	if len(txns) == 0 {
		header = "Транзакций пока нет.\n"
	}
	pages := chunkMessages(header, items, footer)

	if page >= len(pages) {
		page = len(pages) - 1
	}

	keyboard := pagingKeyboard("admin_transactions", page, len(pages), "admin_panel")
	b.editMessage(chatID, messageID, pages[page], &keyboard)
}

// handleTrackPanel показывает активации реферальных кодов; доступен
// администратору и трафик-менеджеру (по своим активациям).
func (b *Bot) handleTrackPanel(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	user, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin, models.RoleTraf)
	if !ok {
		return
	}

	activations, err := b.service.GetActivationsByReferrer(ctx, user.TelegramID)
	if err != nil {
		b.logger.Errorf("Failed to get activations for %d: %v", user.TelegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Трекинг активаций:</b>\n\n")
	if len(activations) == 0 {
		sb.WriteString("Активаций по вашему коду пока нет.\n")
	}
	for i, activation := range activations {
		fmt.Fprintf(&sb, "№%d | @%s (<code>%d</code>) | %s\n",
			i+1, activation.ActivatedUsername, activation.ActivatedTelegramID, formatTime(activation.CreatedAt))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "login_or_register"),
		),
	)
	b.editMessage(chatID, messageID, sb.String(), &keyboard)
}
