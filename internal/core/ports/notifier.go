package ports

import "context"

// AlertNotifier delivers high-severity detections to the operations
// channel. Best-effort: failures are logged by the implementation and
// never propagate into request handling.
type AlertNotifier interface {
	Notify(ctx context.Context, event DetectionEvent) error
}
