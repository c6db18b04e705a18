package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	Site     SiteConfig
	Notify   NotifyConfig
	HTTP     HTTPConfig
	Log      LogConfig

	AutoMigrate bool
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token          string
	Timeout        time.Duration
	UploadFallback bool // download-then-upload when Telegram rejects a photo URL
}

// SiteConfig describes where product images are served from.
type SiteConfig struct {
	BaseURL  string
	MediaURL string
	Location *time.Location
}

type NotifyConfig struct {
	Lang           string
	MaxConcurrency int
	Workers        int
	QueueSize      int
	StaffCacheTTL  time.Duration
}

type HTTPConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("TOKEN", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "teleshop")
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("MEDIA_URL", "/media/")
	v.SetDefault("TIME_ZONE", "Europe/Moscow")
	v.SetDefault("NOTIFY_LANG", "ru")
	v.SetDefault("NOTIFY_MAX_CONCURRENCY", 10)
	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("STAFF_CACHE_TTL", "1m")
	v.SetDefault("TELEGRAM_TIMEOUT", "10s")
	v.SetDefault("TELEGRAM_UPLOAD_FALLBACK", true)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTO_MIGRATE", false)

	tgTimeout, err := time.ParseDuration(v.GetString("TELEGRAM_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_TIMEOUT: %w", err)
	}
	staffTTL, err := time.ParseDuration(v.GetString("STAFF_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("STAFF_CACHE_TTL: %w", err)
	}
	loc, err := time.LoadLocation(v.GetString("TIME_ZONE"))
	if err != nil {
		return nil, fmt.Errorf("TIME_ZONE: %w", err)
	}

	return &Config{
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
		},
		Telegram: TelegramConfig{
			Token:          v.GetString("TOKEN"),
			Timeout:        tgTimeout,
			UploadFallback: v.GetBool("TELEGRAM_UPLOAD_FALLBACK"),
		},
		Site: SiteConfig{
			BaseURL:  v.GetString("BASE_URL"),
			MediaURL: v.GetString("MEDIA_URL"),
			Location: loc,
		},
		Notify: NotifyConfig{
			Lang:           v.GetString("NOTIFY_LANG"),
			MaxConcurrency: positive(v.GetInt("NOTIFY_MAX_CONCURRENCY"), 10),
			Workers:        positive(v.GetInt("NOTIFY_WORKERS"), 4),
			QueueSize:      positive(v.GetInt("NOTIFY_QUEUE_SIZE"), 256),
			StaffCacheTTL:  staffTTL,
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("HTTP_ADDR"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		AutoMigrate: v.GetBool("AUTO_MIGRATE"),
	}, nil
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
