package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv      string
	DatabaseURL string
	ListenAddr  string

	GameVersion string
	AdminSecret string

	AllowedOrigins []string

	CooldownDuration time.Duration
	BlockDuration    time.Duration
	CheckMinInterval time.Duration
	RetentionHorizon time.Duration
	MaxPayloadBytes  int

	GlobalRateWindow    time.Duration
	GlobalRateMax       int
	SensitiveRateWindow time.Duration
	SensitiveRateMax    int

	CleanupSchedule string // cron expression

	// Optional ops alerting. Alerts are disabled when the token is
	// empty.
	TelegramAlertToken  string
	TelegramAlertChatID int64
}

// bindings maps viper keys to their environment variable names.
var bindings = map[string]string{
	"app.env":                "APP_ENV",
	"database.url":           "DATABASE_URL",
	"http.listen_addr":       "LISTEN_ADDR",
	"game.version":           "GAME_VERSION",
	"admin.secret":           "ADMIN_SECRET",
	"security.origins":       "ALLOWED_ORIGINS",
	"security.cooldown":      "COOLDOWN_DURATION",
	"security.block":         "BLOCK_DURATION",
	"security.check_min":     "CHECK_MIN_INTERVAL",
	"security.retention":     "RETENTION_HORIZON",
	"security.max_payload":   "MAX_PAYLOAD_BYTES",
	"rate.global_window":     "RATE_GLOBAL_WINDOW",
	"rate.global_max":        "RATE_GLOBAL_MAX",
	"rate.sensitive_window":  "RATE_SENSITIVE_WINDOW",
	"rate.sensitive_max":     "RATE_SENSITIVE_MAX",
	"cleanup.schedule":       "CLEANUP_SCHEDULE",
	"telegram.alert_token":   "TELEGRAM_ALERT_TOKEN",
	"telegram.alert_chat_id": "TELEGRAM_ALERT_CHAT_ID",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {

	// 1. Load .env file into the process environment. A missing file
	// is fine in prod; any other error should surface.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	// 2. Explicitly bind viper keys to env var names.
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	// 3. Set defaults. Policy values mirror the live game rules.
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("http.listen_addr", ":8080")
	viper.SetDefault("game.version", "1.0.0")
	viper.SetDefault("security.origins", "http://localhost:3000")
	viper.SetDefault("security.cooldown", "5m")
	viper.SetDefault("security.block", "1h")
	viper.SetDefault("security.check_min", "1h")
	viper.SetDefault("security.retention", "720h") // 30 days
	viper.SetDefault("security.max_payload", 10_000)
	viper.SetDefault("rate.global_window", "15m")
	viper.SetDefault("rate.global_max", 100)
	viper.SetDefault("rate.sensitive_window", "5m")
	viper.SetDefault("rate.sensitive_max", 50)
	viper.SetDefault("cleanup.schedule", "0 4 * * *") // daily, 04:00 UTC

	// 4. Get values from viper.
	cfg := Config{
		AppEnv:              viper.GetString("app.env"),
		DatabaseURL:         viper.GetString("database.url"),
		ListenAddr:          viper.GetString("http.listen_addr"),
		GameVersion:         viper.GetString("game.version"),
		AdminSecret:         viper.GetString("admin.secret"),
		AllowedOrigins:      splitOrigins(viper.GetString("security.origins")),
		CooldownDuration:    viper.GetDuration("security.cooldown"),
		BlockDuration:       viper.GetDuration("security.block"),
		CheckMinInterval:    viper.GetDuration("security.check_min"),
		RetentionHorizon:    viper.GetDuration("security.retention"),
		MaxPayloadBytes:     viper.GetInt("security.max_payload"),
		GlobalRateWindow:    viper.GetDuration("rate.global_window"),
		GlobalRateMax:       viper.GetInt("rate.global_max"),
		SensitiveRateWindow: viper.GetDuration("rate.sensitive_window"),
		SensitiveRateMax:    viper.GetInt("rate.sensitive_max"),
		CleanupSchedule:     viper.GetString("cleanup.schedule"),
		TelegramAlertToken:  viper.GetString("telegram.alert_token"),
		TelegramAlertChatID: viper.GetInt64("telegram.alert_chat_id"),
	}

	// 5. Validation.
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set in environment or .env file")
	}
	if cfg.AdminSecret == "" {
		return nil, errors.New("ADMIN_SECRET is not set; the cleanup endpoint cannot be gated without it")
	}
	if len(cfg.AdminSecret) < 16 {
		return nil, fmt.Errorf("ADMIN_SECRET must be at least 16 characters, got %d", len(cfg.AdminSecret))
	}
	if cfg.CheckMinInterval <= 0 {
		return nil, errors.New("CHECK_MIN_INTERVAL must be positive")
	}
	if cfg.RetentionHorizon <= 0 {
		return nil, errors.New("RETENTION_HORIZON must be positive")
	}

	return &cfg, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
