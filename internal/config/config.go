// Package config loads runtime configuration from a .env file and the
// environment. Env vars always win over .env entries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/example/wordpusher/internal/notify"
	"github.com/example/wordpusher/internal/review"
)

// Default notification window: pushes are only sent between these hours
const (
	DefaultNotifyStartHour = 8
	DefaultNotifyEndHour   = 22
)

// Config is the full runtime configuration
type Config struct {
	// StorePath is the flat word file
	StorePath string
	// Topic is the ntfy topic pushes are published to
	Topic string
	// ServerURL is the push server, normally the public ntfy instance
	ServerURL string
	// WordsPerPush caps the batch size per cycle
	WordsPerPush int

	// NotifyStartHour / NotifyEndHour bound the serve-mode push window
	NotifyStartHour int
	NotifyEndHour   int

	// BotToken enables the Telegram front end when set
	BotToken string
	// AdminChatID may run /push from the bot
	AdminChatID int64
	// DatabaseURL selects the subscriber store; empty means a local
	// sqlite file next to the word file
	DatabaseURL string

	// WebAddr and WebPassword configure the add-word web form
	WebAddr     string
	WebPassword string
	// WebSecret signs the session cookie; generated per process if empty
	WebSecret string
}

// FailLogPath derives the failure log location from the store path
func (c *Config) FailLogPath() string {
	return strings.TrimSuffix(c.StorePath, ".csv") + notify.FailLogSuffix
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	// Missing .env is fine; env vars alone are a valid configuration
	_ = godotenv.Load()

	cfg := &Config{
		StorePath:       getenv("GRE_CSV_PATH", "words.csv"),
		Topic:           os.Getenv("NTFY_TOPIC"),
		ServerURL:       getenv("NTFY_SERVER", notify.DefaultServerURL),
		WordsPerPush:    review.DefaultBatchSize,
		NotifyStartHour: DefaultNotifyStartHour,
		NotifyEndHour:   DefaultNotifyEndHour,
		BotToken:        os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		WebAddr:         getenv("WEB_ADDR", ":5000"),
		WebPassword:     os.Getenv("GRE_PASSWORD"),
		WebSecret:       os.Getenv("GRE_SECRET_KEY"),
	}

	if v := os.Getenv("WORDS_PER_PUSH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid WORDS_PER_PUSH: %q", v)
		}
		cfg.WordsPerPush = n
	}
	if v := os.Getenv("NOTIFICATION_START_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			cfg.NotifyStartHour = h
		}
	}
	if v := os.Getenv("NOTIFICATION_END_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			cfg.NotifyEndHour = h
		}
	}
	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %q", v)
		}
		cfg.AdminChatID = id
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
