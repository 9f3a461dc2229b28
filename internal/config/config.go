package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Bot update delivery modes
const (
	BotModePolling = "polling"
	BotModeWebhook = "webhook"
)

// Config holds the settings of the bot server
type Config struct {
	DB *DBConfig

	BotToken      string
	BotMode       string
	WebhookURL    string
	WebhookSecret string
	ServerPort    string

	JWTSecret          string
	JWTExpirationHours int64

	SessionTTL        time.Duration
	SessionCapacity   int
	FanoutConcurrency int
	UpdateWorkers     int

	InitialAdminIDs []int64
}

// Load reads the server configuration from environment variables. Missing
// required values are an error; malformed optional ones fall back to their
// defaults with a warning.
func Load(log *logrus.Logger) (*Config, error) {
	dbCfg, err := LoadDBConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DB:            dbCfg,
		BotToken:      os.Getenv("BOT_TOKEN"),
		BotMode:       strings.ToLower(envOr("BOT_MODE", BotModePolling)),
		WebhookURL:    strings.TrimRight(os.Getenv("WEBHOOK_URL"), "/"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		ServerPort:    envOr("SERVER_PORT", "8080"),
		JWTSecret:     os.Getenv("JWT_SECRET_KEY"),

		JWTExpirationHours: int64(envInt(log, "JWT_EXPIRATION_HOURS", 24)),
		SessionTTL:         time.Duration(envInt(log, "SESSION_TTL_MINUTES", 30)) * time.Minute,
		SessionCapacity:    envInt(log, "SESSION_CAPACITY", 10000),
		FanoutConcurrency:  envInt(log, "FANOUT_CONCURRENCY", 8),
		UpdateWorkers:      envInt(log, "UPDATE_WORKERS", 16),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN not set in environment")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}

	switch cfg.BotMode {
	case BotModePolling:
	case BotModeWebhook:
		if cfg.WebhookURL == "" || cfg.WebhookSecret == "" {
			return nil, fmt.Errorf("BOT_MODE=webhook requires WEBHOOK_URL and WEBHOOK_SECRET")
		}
	default:
		return nil, fmt.Errorf("unknown BOT_MODE %q (expected %s or %s)", cfg.BotMode, BotModePolling, BotModeWebhook)
	}

	cfg.InitialAdminIDs, err = ParseUserIDs(os.Getenv("INITIAL_ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_ADMIN_IDS: %w", err)
	}

	return cfg, nil
}

// ParseUserIDs parses a comma-separated list of messenger user ids
func ParseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a user id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(log *logrus.Logger, key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.WithFields(logrus.Fields{"key": key, "value": raw, "default": def}).
			Warn("Invalid numeric setting, using default")
		return def
	}
	return v
}
