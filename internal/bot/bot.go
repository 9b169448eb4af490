package bot

import (
	"sync"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/internal/service"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	userAgreementURL  = "https://docs.google.com/document/d/17QsXL8k_zCq6i8F-yKxqGsnQ2ROwt4PZUZPhPiq_6Vs/edit?usp=sharing"
	privacyPolicyURL  = "https://docs.google.com/document/d/1idyS_5VNLUdn6LJpJKVn6mvbNZ3_YGAyif9KIAIX-_E/edit?usp=sharing"
	securityPolicyURL = "https://docs.google.com/document/d/16xhrk9nMMW1PnHkfpINpfu2i2wGeVKkt3iUw5Z9vDFY/edit?usp=sharing"
)

const errTryLater = "Произошла ошибка. Попробуйте позже."

type Bot struct {
	API      *tgbotapi.BotAPI
	service  *service.Service
	logger   *utils.Logger
	sessions map[int64]*session
	mu       sync.Mutex
}

func NewBot(api *tgbotapi.BotAPI, svc *service.Service, logger *utils.Logger) *Bot {
	return &Bot{
		API:      api,
		service:  svc,
		logger:   logger,
		sessions: make(map[int64]*session),
	}
}

func (b *Bot) Start() {
	b.logger.Info("Starting bot...")
	updates := b.API.GetUpdatesChan(tgbotapi.NewUpdate(0))
	for update := range updates {
		if update.CallbackQuery != nil {
			b.handleCallbackQuery(update.CallbackQuery)
			continue
		}
		if update.Message != nil {
			b.HandleMessage(update.Message)
		}
	}
}

// sendMessage отправляет сообщение; HTML-разметка по умолчанию.
func (b *Bot) sendMessage(chatID int64, text string, replyMarkup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}
	if _, err := b.API.Send(msg); err != nil {
		b.logger.Errorf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = keyboard
	if _, err := b.API.Send(edit); err != nil {
		b.logger.Errorf("Failed to edit message %d in chat %d: %v", messageID, chatID, err)
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.API.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Errorf("Failed to answer callback: %v", err)
	}
}

// SendText используется фоновыми задачами для уведомлений.
func (b *Bot) SendText(chatID int64, text string) {
	b.sendMessage(chatID, text, nil)
}

var kyivLocation = mustLoadLocation("Europe/Kiev")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func formatTime(t time.Time) string {
	return t.In(kyivLocation).Format("02.01.2006, 15:04:05")
}
