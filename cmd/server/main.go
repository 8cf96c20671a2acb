package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"

	"crowguard/internal/adapters/eventbus"
	"crowguard/internal/adapters/httpapi"
	"crowguard/internal/adapters/postgres"
	"crowguard/internal/adapters/telegram"
	"crowguard/internal/core/services"
	"crowguard/internal/shared/config"
	"crowguard/internal/shared/logger"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("game_version", cfg.GameVersion).
		Msg("Configuration loaded")

	// 3. Initialize Database
	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.DatabaseURL, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// 4. Initialize Repositories
	ledger := postgres.NewSecurityLedger(db, &baseLogger)
	activityLog := postgres.NewActivityLog(db, &baseLogger)
	eventLog := postgres.NewEventLog(db, &baseLogger)
	blockLog := postgres.NewBlockLog(db, &baseLogger)

	// 5. Event bus + optional Telegram ops alerts
	bus := eventbus.NewInMemoryEventBus(&baseLogger)
	if cfg.TelegramAlertToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramAlertToken)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize Telegram alert bot")
		}
		notifier := telegram.NewAlertNotifier(api, cfg.TelegramAlertChatID, &baseLogger)
		telegram.SubscribeAlerts(bus, notifier, &baseLogger)
		baseLogger.Info().Int64("chat_id", cfg.TelegramAlertChatID).Msg("Ops alerts enabled")
	} else {
		baseLogger.Info().Msg("Ops alerts disabled (no token configured)")
	}

	// 6. Verification service
	policy := services.Policy{
		GameVersion:         cfg.GameVersion,
		Limits:              services.DefaultPolicy().Limits,
		CooldownDuration:    cfg.CooldownDuration,
		BlockDuration:       cfg.BlockDuration,
		CheckMinInterval:    cfg.CheckMinInterval,
		RetentionHorizon:    cfg.RetentionHorizon,
		MaxPayloadBytes:     cfg.MaxPayloadBytes,
		AllowedOrigins:      cfg.AllowedOrigins,
		GlobalRateWindow:    cfg.GlobalRateWindow,
		GlobalRateMax:       cfg.GlobalRateMax,
		SensitiveRateWindow: cfg.SensitiveRateWindow,
		SensitiveRateMax:    cfg.SensitiveRateMax,
	}
	svc := services.NewVerification(ledger, activityLog, eventLog, blockLog, bus, policy, &baseLogger)

	// 7. Scheduled retention sweep
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Cron(cfg.CleanupSchedule).Do(func() {
		if _, err := svc.Cleanup(context.Background()); err != nil {
			baseLogger.Error().Err(err).Msg("Scheduled cleanup failed")
		}
	}); err != nil {
		baseLogger.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("Failed to schedule cleanup")
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	// 8. HTTP server
	app := fiber.New(fiber.Config{
		AppName:      "crowguard",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	handler := httpapi.NewSecurityHandler(svc, &baseLogger)
	httpapi.RegisterRoutes(app, handler, svc, httpapi.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AdminSecret:    cfg.AdminSecret,
		GlobalRate:     httpapi.RatePolicy{Window: cfg.GlobalRateWindow, Max: cfg.GlobalRateMax},
		SensitiveRate:  httpapi.RatePolicy{Window: cfg.SensitiveRateWindow, Max: cfg.SensitiveRateMax},
	}, &baseLogger)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			baseLogger.Fatal().Err(err).Msg("HTTP server stopped")
		}
	}()
	baseLogger.Info().Str("addr", cfg.ListenAddr).Msg("Verification service listening")

	// 9. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	baseLogger.Info().Msg("Shutting down")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		baseLogger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
