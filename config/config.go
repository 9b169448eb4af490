package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	TelegramBotToken    string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	DB_URL              string `mapstructure:"DB_URL"`
	MerchantAPIURL      string `mapstructure:"MERCHANT_API_URL"`
	MerchantAPIToken    string `mapstructure:"MERCHANT_API_TOKEN"`
	ReferralBonusPct    int64  `mapstructure:"REFERRAL_BONUS_PERCENT"`
	InvoiceValiditySecs int    `mapstructure:"INVOICE_VALIDITY_SECONDS"`
}

func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("ошибка получения абсолютного пути: %w", err)
	}

	viper.AddConfigPath(filepath.Dir(absPath))
	viper.SetConfigName(filepath.Base(absPath))
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("MERCHANT_API_URL", "https://api.monobank.ua")
	viper.SetDefault("REFERRAL_BONUS_PERCENT", 10)
	viper.SetDefault("INVOICE_VALIDITY_SECONDS", 120)

	if err := viper.ReadInConfig(); err != nil {
		return config, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("ошибка преобразования конфига: %w", err)
	}

	return config, nil
}
