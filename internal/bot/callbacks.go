package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
	"github.com/ShakerUp/tg-bot-sproxy/internal/service"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// actionKind задает закрытое перечисление callback-действий. Диспетчеризация
// по нему исчерпывающая: новая кнопка требует новой ветки switch.
type actionKind int

const (
	actionUnknown actionKind = iota
	actionLoginOrRegister
	actionAccept
	actionDecline
	actionBack
	actionDocuments
	actionMyProxies
	actionBuyProxies
	actionRent
	actionMyBalance
	actionTopupMenu
	actionTopupPreset
	actionTopupCustom
	actionReferralSystem
	actionEnterReferralCode
	actionAdminPanel
	actionAdminUsers
	actionAdminProxies
	actionAdminTopUps
	actionAdminTransactions
	actionCheckAllProxies
	actionTrackPanel
)

type action struct {
	kind actionKind
	arg  int64 // дни аренды, сумма пополнения в центах или номер страницы
}

func parseAction(data string) action {
	switch data {
	case "login_or_register":
		return action{kind: actionLoginOrRegister}
	case "accept":
		return action{kind: actionAccept}
	case "decline":
		return action{kind: actionDecline}
	case "back":
		return action{kind: actionBack}
	case "documents":
		return action{kind: actionDocuments}
	case "my_proxies":
		return action{kind: actionMyProxies}
	case "buy_proxies":
		return action{kind: actionBuyProxies}
	case "rent_7_days":
		return action{kind: actionRent, arg: 7}
	case "rent_30_days":
		return action{kind: actionRent, arg: 30}
	case "my_balance":
		return action{kind: actionMyBalance}
	case "topup_balance":
		return action{kind: actionTopupMenu}
	case "topup_custom":
		return action{kind: actionTopupCustom}
	case "referral_system":
		return action{kind: actionReferralSystem}
	case "enter_referral_code":
		return action{kind: actionEnterReferralCode}
	case "admin_panel":
		return action{kind: actionAdminPanel}
	case "admin_users":
		return action{kind: actionAdminUsers}
	case "admin_proxies":
		return action{kind: actionAdminProxies}
	case "admin_topups":
		return action{kind: actionAdminTopUps}
	case "admin_transactions":
		return action{kind: actionAdminTransactions}
	case "check_all_proxies":
		return action{kind: actionCheckAllProxies}
	case "track_panel":
		return action{kind: actionTrackPanel}
	}

	// Параметризованные действия: topup_<доллары>, admin_users_<стр>,
	// admin_transactions_<стр>.
	if rest, ok := strings.CutPrefix(data, "topup_"); ok {
		if dollars, err := strconv.ParseInt(rest, 10, 64); err == nil && dollars > 0 {
			return action{kind: actionTopupPreset, arg: dollars * 100}
		}
	}
	if rest, ok := strings.CutPrefix(data, "admin_users_"); ok {
		if page, err := strconv.ParseInt(rest, 10, 64); err == nil && page >= 0 {
			return action{kind: actionAdminUsers, arg: page}
		}
	}
	if rest, ok := strings.CutPrefix(data, "admin_transactions_"); ok {
		if page, err := strconv.ParseInt(rest, 10, 64); err == nil && page >= 0 {
			return action{kind: actionAdminTransactions, arg: page}
		}
	}

	return action{kind: actionUnknown}
}

func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	act := parseAction(callback.Data)

	switch act.kind {
	case actionLoginOrRegister:
		b.handleProfile(ctx, callback)
	case actionAccept:
		b.handleAccept(ctx, callback)
	case actionDecline:
		b.handleDecline(callback)
	case actionBack:
		b.handleBack(callback)
	case actionDocuments:
		b.handleDocuments(callback)
	case actionMyProxies:
		b.handleMyProxies(ctx, callback)
	case actionBuyProxies:
		b.handleBuyProxies(ctx, callback)
	case actionRent:
		b.handleRent(ctx, callback, int(act.arg))
	case actionMyBalance:
		b.handleMyBalance(ctx, callback)
	case actionTopupMenu:
		b.handleTopupMenu(ctx, callback)
	case actionTopupPreset:
		b.handleTopupPreset(ctx, callback, act.arg)
	case actionTopupCustom:
		b.handleTopupCustom(ctx, callback)
	case actionReferralSystem:
		b.handleReferralSystem(ctx, callback)
	case actionEnterReferralCode:
		b.handleEnterReferralCode(ctx, callback)
	case actionAdminPanel:
		b.handleAdminPanel(ctx, callback)
	case actionAdminUsers:
		b.handleAdminUsers(ctx, callback, int(act.arg))
	case actionAdminProxies:
		b.handleAdminProxies(ctx, callback)
	case actionAdminTopUps:
		b.handleAdminTopUps(ctx, callback)
	case actionAdminTransactions:
		b.handleAdminTransactions(ctx, callback, int(act.arg))
	case actionCheckAllProxies:
		b.handleCheckAllProxies(ctx, callback)
	case actionTrackPanel:
		b.handleTrackPanel(ctx, callback)
	case actionUnknown:
		b.logger.Errorf("Неверное действие: %s", callback.Data)
	}

	b.answerCallback(callback.ID, "")
}

func (b *Bot) handleProfile(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	// Сбрасываем незавершённый ввод при возврате в профиль.
	b.setState(telegramID, stateIdle)

	user, err := b.service.GetUser(ctx, telegramID)
	if err != nil {
		b.logger.Errorf("Failed to get user %d: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	if user == nil {
		registerText := fmt.Sprintf(
			"Для регистрации необходимо принять <a href=\"%s\">Пользовательское соглашение</a> и <a href=\"%s\">Политику конфиденциальности</a>. Принять?",
			userAgreementURL, privacyPolicyURL,
		)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✔️ Принять", "accept"),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отказаться", "decline"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📑 На главную", "back"),
			),
		)
		b.editMessage(chatID, messageID, registerText, &keyboard)
		return
	}

	profileText := fmt.Sprintf(
		"<b>Профиль пользователя:</b>\n\n<b>ID:</b> <code>%d</code>\n<b>Ваше имя:</b> %s\n<b>Баланс:</b> %s\n<b>Дата регистрации:</b> %s",
		user.TelegramID, user.FirstName, utils.FormatAmount(user.Balance), formatTime(user.CreatedAt),
	)

	keyboard := profileKeyboard(user)
	b.editMessage(chatID, messageID, profileText, &keyboard)
}

func profileKeyboard(user *models.User) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Мои прокси", "my_proxies"),
			tgbotapi.NewInlineKeyboardButtonData("💰 Мой баланс", "my_balance"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Документы", "documents"),
			tgbotapi.NewInlineKeyboardButtonData("🚀 Реферальная система", "referral_system"),
		),
	}

	if user.Role == models.RoleAdmin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛠️ Админ панель", "admin_panel"),
		))
	}
	if user.Role == models.RoleAdmin || user.Role == models.RoleTraf {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛠️ Трекинг активаций", "track_panel"),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleAccept(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	telegramID := callback.From.ID

	refCode := b.takeStartRefCode(telegramID)

	_, err := b.service.RegisterUser(ctx, telegramID, chatID, callback.From.UserName, callback.From.FirstName, refCode)
	if err != nil && err != service.ErrUserAlreadyExists {
		b.logger.Errorf("Failed to register user %d: %v", telegramID, err)
		b.sendMessage(chatID, errTryLater, nil)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📑 На главную", "back"),
		),
	)
	b.editMessage(chatID, messageID, "Вы успешно зарегистрированы!", &keyboard)
}

func (b *Bot) handleDecline(callback *tgbotapi.CallbackQuery) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📑 На главную", "back"),
		),
	)
	b.editMessage(callback.Message.Chat.ID, callback.Message.MessageID, "Вы отказались от регистрации.", &keyboard)
}

func (b *Bot) handleBack(callback *tgbotapi.CallbackQuery) {
	b.setState(callback.From.ID, stateIdle)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Войти/Зарегистрироваться", "login_or_register"),
		),
	)
	b.editMessage(callback.Message.Chat.ID, callback.Message.MessageID, "Для входа в свой профиль или регистрации нажмите кнопку ниже.", &keyboard)
}

func (b *Bot) handleDocuments(callback *tgbotapi.CallbackQuery) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Пользовательское соглашение", userAgreementURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Политика конфиденциальности", privacyPolicyURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Политика безопасности", securityPolicyURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "login_or_register")),
	)
	b.editMessage(callback.Message.Chat.ID, callback.Message.MessageID, "Выберите документ для просмотра:", &keyboard)
}
