package ports

import (
	"context"
	"time"

	"crowguard/internal/core/domain"
)

// Report is the payload the monitor ships to the verification
// service: one detection, its evidence, and when it was observed.
type Report struct {
	UserID    string
	Kind      domain.ActivityKind
	Details   map[string]any
	Timestamp time.Time
}

// ReportQueue is the bounded buffer between detection and delivery.
// Enqueue never blocks: when the queue is full the oldest pending
// report is dropped to make room, which keeps the "never blocks
// gameplay" contract explicit.
type ReportQueue interface {
	// Enqueue adds a report, evicting the oldest one on overflow.
	// It returns true if an eviction happened.
	Enqueue(report Report) (dropped bool)

	// Dequeue pops the oldest pending report, blocking until one is
	// available or ctx is done.
	Dequeue(ctx context.Context) (Report, error)

	// Len reports how many entries are pending.
	Len() int
}

// ReportSink delivers one report to the verification service.
// Delivery is best-effort telemetry: callers log failures and move
// on, they never retry or block on it.
type ReportSink interface {
	Send(ctx context.Context, report Report) error
}
