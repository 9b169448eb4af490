package main

import (
	"github.com/ShakerUp/tg-bot-sproxy/config"
	"github.com/ShakerUp/tg-bot-sproxy/db"
	"github.com/ShakerUp/tg-bot-sproxy/internal/bot"
	"github.com/ShakerUp/tg-bot-sproxy/internal/gateway"
	"github.com/ShakerUp/tg-bot-sproxy/internal/jobs"
	"github.com/ShakerUp/tg-bot-sproxy/internal/repository"
	"github.com/ShakerUp/tg-bot-sproxy/internal/service"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	logger := utils.InitLogger()
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}

	database, err := db.ConnectDb(cfg.DB_URL, logger)
	if err != nil {
		logger.Fatal(err)
	}

	if err := db.Migrate(database, true, logger); err != nil {
		logger.Fatal(err)
	}

	repo := repository.NewRepository(database, logger)
	merchant := gateway.NewClient(cfg.MerchantAPIURL, cfg.MerchantAPIToken, logger)
	svc := service.NewService(repo, merchant, &cfg, logger)

	telegramBot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal("Failed to create bot API: ", err)
	}

	proxyBot := bot.NewBot(telegramBot, svc, logger)

	scheduler := jobs.NewScheduler(svc, proxyBot.SendText, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler: ", err)
	}
	defer scheduler.Stop()

	proxyBot.Start()
}
