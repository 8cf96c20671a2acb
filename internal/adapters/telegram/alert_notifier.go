package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/ports"
)

// alertNotifier implements ports.AlertNotifier over a Telegram ops
// channel. It is pure telemetry: a failed send is logged and dropped.
type alertNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

var _ ports.AlertNotifier = (*alertNotifier)(nil) // Ensure compliance

// NewAlertNotifier creates the Telegram alert adapter.
func NewAlertNotifier(api *tgbotapi.BotAPI, chatID int64, baseLogger *zerolog.Logger) ports.AlertNotifier {
	return &alertNotifier{
		api:    api,
		chatID: chatID,
		log:    baseLogger.With().Str("component", "alert_notifier").Logger(),
	}
}

// Notify sends one detection alert to the ops channel.
func (n *alertNotifier) Notify(ctx context.Context, event ports.DetectionEvent) error {
	text := fmt.Sprintf(
		"⚠️ %s detection\nuser: %s\nkind: %s\naction: %s\nsource: %s",
		event.Severity, event.UserID, event.Kind, event.Action, event.SourceIP,
	)
	msg := tgbotapi.NewMessage(n.chatID, text)

	if _, err := n.api.Send(msg); err != nil {
		n.log.Error().Err(err).Str("kind", string(event.Kind)).Msg("Failed to send ops alert")
		return err
	}
	return nil
}

// SubscribeAlerts wires a notifier to the detection topic. Only high
// severity detections and blocks reach the ops channel; the rest stay
// in the audit tables.
func SubscribeAlerts(bus ports.EventBus, notifier ports.AlertNotifier, baseLogger *zerolog.Logger) {
	log := baseLogger.With().Str("component", "alert_subscription").Logger()

	bus.Subscribe(ports.TopicDetection, func(ctx context.Context, event ports.Event) error {
		detection, ok := event.Data.(ports.DetectionEvent)
		if !ok {
			log.Error().Str("topic", event.Topic).Msg("Received bad detection event from bus")
			return nil // Don't retry
		}
		if detection.Severity != domain.SeverityHigh {
			return nil
		}
		return notifier.Notify(ctx, detection)
	})

	bus.Subscribe(ports.TopicBlock, func(ctx context.Context, event ports.Event) error {
		detection, ok := event.Data.(ports.DetectionEvent)
		if !ok {
			log.Error().Str("topic", event.Topic).Msg("Received bad block event from bus")
			return nil
		}
		// High-severity blocks already alerted on the detection topic.
		if detection.Severity == domain.SeverityHigh {
			return nil
		}
		return notifier.Notify(ctx, detection)
	})
}
