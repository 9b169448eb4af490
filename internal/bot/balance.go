package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/internal/service"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleMyBalance показывает экран "Мой баланс". Просмотр и есть триггер сверки:
// статусы транзакций опрашиваются у шлюза прямо здесь, и только после
// этого читается баланс.
func (b *Bot) handleMyBalance(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	if _, ok := b.requireRole(ctx, chatID, telegramID, models.RoleAdmin, models.RoleUser, models.RoleTraf); !ok {
		return
	}

	txns, failed, err := b.service.RefreshUserTransactions(ctx, telegramID)
	if err != nil {
		b.logger.Errorf("Failed to refresh transactions for user %d: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	// Баланс читается после сверки: зачисления уже применены.
	user, err := b.service.GetUser(ctx, telegramID)
	if err != nil || user == nil {
		b.logger.Errorf("Failed to get user %d after reconcile: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Ваш баланс:</b> %s\n\n", utils.FormatAmount(user.Balance))

	if len(txns) > 0 {
		sb.WriteString("<b>История транзакций:</b>\n\n")
		for i, txn := range txns {
			fmt.Fprintf(&sb, "<b><a href=\"%s\">Транзакция №%d | %s</a></b>\nСумма: %s; Статус: %s; %s\n\n",
				txn.PageURL, i+1, txn.InvoiceID, utils.FormatAmount(txn.Amount), txn.Status, formatTime(txn.CreatedAt))
		}
	} else {
		sb.WriteString("У вас пока нет транзакций.\n")
	}

	if len(failed) > 0 {
		sb.WriteString("\n⚠️ Часть статусов не удалось обновить, попробуйте обновить позже.\n")
	}

	fmt.Fprintf(&sb, "\nПоследнее обновление: %s", formatTime(time.Now()))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Пополнить баланс", "topup_balance"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", "my_balance"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "login_or_register"),
		),
	)
	b.editMessage(chatID, messageID, sb.String(), &keyboard)
}

func (b *Bot) handleTopupMenu(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	if _, ok := b.requireRole(ctx, chatID, callback.From.ID, models.RoleAdmin, models.RoleUser, models.RoleTraf); !ok {
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1$", "topup_1"),
			tgbotapi.NewInlineKeyboardButtonData("8$", "topup_8"),
			tgbotapi.NewInlineKeyboardButtonData("25$", "topup_25"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍🏻 Своя сумма", "topup_custom"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "my_balance"),
		),
	)
	b.editMessage(chatID, messageID, "Выберите сумму для пополнения баланса:", &keyboard)
}

func (b *Bot) handleTopupPreset(ctx context.Context, callback *tgbotapi.CallbackQuery, amount int64) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	txn, err := b.service.CreateTopUp(ctx, callback.From.ID, amount)
	if err != nil {
		b.renderTopupError(chatID, messageID, err)
		return
	}

	b.renderInvoice(chatID, messageID, txn)
}

func (b *Bot) handleTopupCustom(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	if _, ok := b.requireRole(ctx, chatID, telegramID, models.RoleAdmin, models.RoleUser, models.RoleTraf); !ok {
		return
	}

	b.setState(telegramID, stateAwaitingTopupAmount)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "topup_balance"),
		),
	)
	b.editMessage(chatID, messageID, "<b>Введите сумму пополнения в долларах</b> (например, 12 или 12.50):", &keyboard)
}

// handleTopupAmountInput принимает свободный ввод суммы после "Своя сумма".
func (b *Bot) handleTopupAmountInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	telegramID := message.From.ID

	amount, err := utils.ParseAmount(message.Text)
	if err != nil {
		b.sendMessage(chatID, "Не удалось разобрать сумму. Введите число, например 12 или 12.50.", nil)
		return
	}

	txn, err := b.service.CreateTopUp(ctx, telegramID, amount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			b.sendMessage(chatID, "Сумма должна быть от 1$ до 1000$. Попробуйте еще раз.", nil)
			return
		}
		b.setState(telegramID, stateIdle)
		b.sendMessage(chatID, "Платёжный сервис временно недоступен. Попробуйте позже.", nil)
		return
	}

	b.setState(telegramID, stateIdle)
	b.sendMessage(chatID, invoiceText(txn), balanceBackKeyboard())
}

func (b *Bot) renderTopupError(chatID int64, messageID int, err error) {
	text := "Платёжный сервис временно недоступен. Попробуйте позже."
	if errors.Is(err, service.ErrUserNotFound) {
		text = "Пользователь не найден."
	} else if errors.Is(err, service.ErrInvalidAmount) {
		text = "Недопустимая сумма пополнения."
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Мой баланс", "my_balance"),
		),
	)
	b.editMessage(chatID, messageID, text, &keyboard)
}

func (b *Bot) renderInvoice(chatID int64, messageID int, txn *models.Transaction) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Мой баланс", "my_balance"),
		),
	)
	b.editMessage(chatID, messageID, invoiceText(txn), &keyboard)
}

func invoiceText(txn *models.Transaction) string {
	return fmt.Sprintf(
		"<b>Платеж успешно создан!</b>\nПожалуйста, <b><a href=\"%s\">оплатите %s</a></b> в течение <b>%d</b> секунд.\nПосле оплаты перейдите на страницу <b>\"Мой баланс\"</b> и обновите свои транзакции.",
		txn.PageURL, utils.FormatAmount(txn.Amount), txn.Validity,
	)
}

func balanceBackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Мой баланс", "my_balance"),
		),
	)
}

func (b *Bot) handleReferralSystem(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	b.setState(telegramID, stateIdle)

	user, ok := b.requireRole(ctx, chatID, telegramID, models.RoleAdmin, models.RoleUser, models.RoleTraf)
	if !ok {
		return
	}

	stats, err := b.service.GetReferralStats(ctx, user)
	if err != nil {
		b.logger.Errorf("Failed to get referral stats for user %d: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Реферальная система:</b>\n\n")
	fmt.Fprintf(&sb, "<b>👋 Вы получаете %d%% от пополнений ваших рефералов</b>\n\n", b.service.ReferralBonusPercent())
	fmt.Fprintf(&sb, "<b>🌐 Ваш реферальный код:</b> <code>%d</code>\n", user.TelegramID)
	fmt.Fprintf(&sb, "<b>🔗 Ваша реферальная ссылка:</b> <code>https://t.me/proxy_simple_bot?start=%d</code>\n\n", user.TelegramID)
	fmt.Fprintf(&sb, "<b>👨‍👩‍👦‍👦 Кол-во рефералов:</b> %d\n", stats.ReferralCount)
	fmt.Fprintf(&sb, "<b>💵 Заработок с реферальной системы:</b> %s\n", utils.FormatAmount(stats.Earnings))

	if user.RefCode != "" {
		fmt.Fprintf(&sb, "\n<b>✅ Вы являетесь рефералом пользователя с ID:</b> %s", user.RefCode)
	}

	var row []tgbotapi.InlineKeyboardButton
	if user.RefCode == "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✍🏻 Ввести реферальный код", "enter_referral_code"))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "login_or_register"))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(row)
	b.editMessage(chatID, messageID, sb.String(), &keyboard)
}

func (b *Bot) handleEnterReferralCode(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	if _, ok := b.requireRole(ctx, chatID, telegramID, models.RoleAdmin, models.RoleUser, models.RoleTraf); !ok {
		return
	}

	b.setState(telegramID, stateAwaitingReferralCode)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "referral_system"),
		),
	)
	b.editMessage(chatID, messageID, "<b>Введите реферальный код:</b>", &keyboard)
}

func (b *Bot) handleReferralCodeInput(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	telegramID := message.From.ID
	code := strings.TrimSpace(message.Text)

	err := b.service.AttachReferralCode(ctx, telegramID, code)
	switch {
	case err == nil:
		b.setState(telegramID, stateIdle)
		b.sendMessage(chatID, "Реферальный код успешно введен!", nil)
	case errors.Is(err, service.ErrInvalidReferral):
		b.sendMessage(chatID, "Вы ввели неправильный реферальный код, возможно такого пользователя не существует. Попробуйте еще раз...", nil)
	case errors.Is(err, service.ErrReferralAlreadySet):
		b.setState(telegramID, stateIdle)
		b.sendMessage(chatID, "Реферальный код уже привязан к вашему аккаунту.", nil)
	default:
		b.logger.Errorf("Failed to attach referral code for user %d: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
	}
}
