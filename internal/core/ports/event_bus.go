package ports

import (
	"context"

	"crowguard/internal/core/domain"
)

// Topics the verification service publishes on.
const (
	TopicDetection = "security:detection"
	TopicBlock     = "security:block"
)

// DetectionEvent is the payload published for every persisted
// suspicious activity. Subscribers (the ops alert notifier) run
// asynchronously so a slow consumer never holds up a request.
type DetectionEvent struct {
	UserID   string
	Kind     domain.ActivityKind
	Severity domain.Severity
	Action   domain.Action
	SourceIP string
}

// Event is a generic wrapper for any event payload.
type Event struct {
	Topic string
	Data  interface{}
}

// EventHandler is a function that can handle a specific event.
type EventHandler func(ctx context.Context, event Event) error

// EventBus defines the interface for the in-process pub/sub system.
type EventBus interface {
	// Publish sends an event to all subscribers of a topic.
	Publish(ctx context.Context, topic string, data interface{}) error

	// Subscribe registers a handler for a specific topic.
	Subscribe(topic string, handler EventHandler)
}
