package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken    string `env:"TELEGRAM_TOKEN"`
	DatabaseURL      string `env:"DATABASE_URL" env-default:"shop_bot.db"`
	MerchantSeedPath string `env:"MERCHANT_SEED_PATH" env-default:"dataset/merchants_sg.json"`

	HTTPAddr   string `env:"HTTP_ADDR" env-default:":8080"`
	WebhookURL string `env:"WEBHOOK_URL"`

	PageSize     int `env:"PAGE_SIZE" env-default:"8"`
	PopularCount int `env:"POPULAR_COUNT" env-default:"6"`

	AnalyticsWindowDays int    `env:"ANALYTICS_WINDOW_DAYS" env-default:"7"`
	TopMerchantsLimit   int    `env:"TOP_MERCHANTS_LIMIT" env-default:"5"`
	TrendDays           int    `env:"TREND_DAYS" env-default:"14"`
	UsageSampleDays     int    `env:"USAGE_SAMPLE_DAYS" env-default:"3"`
	MonthlyQuota        int64  `env:"MONTHLY_QUOTA" env-default:"10000"`
	CountSelfReferrals  bool   `env:"COUNT_SELF_REFERRALS" env-default:"false"`
	DigestTime          string `env:"DIGEST_TIME" env-default:"09:00"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env config: %w", err)
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return cfg, nil
}
