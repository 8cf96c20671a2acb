package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/integrity"
	"crowguard/internal/core/ports"
)

// SnapshotSource provides the current local game state.
type SnapshotSource interface {
	Snapshot() integrity.Snapshot
}

// LocalEnforcer applies the cosmetic local actions. These are
// advisory by design: the client is untrusted, so the durable state
// change always happens server-side. The local action only gives
// immediate feedback and degrades obvious cheats instantly.
type LocalEnforcer interface {
	CorrectResources(limits domain.ResourceLimits)
	ApplyCooldown(d time.Duration)
	BlockLocally(d time.Duration)
}

// Config carries the monitor tunables.
type Config struct {
	Interval      time.Duration // tick period
	LocalCooldown time.Duration // soft-penalty duration
	LocalBlock    time.Duration // hard-penalty duration
	Thresholds    integrity.Thresholds
}

// DefaultConfig returns the live monitor settings.
func DefaultConfig() Config {
	return Config{
		Interval:      30 * time.Second,
		LocalCooldown: 30 * time.Second,
		LocalBlock:    time.Hour,
		Thresholds:    integrity.DefaultThresholds(),
	}
}

// Monitor periodically samples the session, runs the heuristics,
// applies the local corrective action per detection, and queues one
// best-effort report per detection. The tick never touches the
// network; delivery runs on its own goroutine off the queue.
type Monitor struct {
	source   SnapshotSource
	enforcer LocalEnforcer
	queue    ports.ReportQueue
	sink     ports.ReportSink
	cfg      Config
	log      zerolog.Logger
}

// New creates a monitor.
func New(source SnapshotSource, enforcer LocalEnforcer, queue ports.ReportQueue, sink ports.ReportSink, cfg Config, baseLogger *zerolog.Logger) *Monitor {
	return &Monitor{
		source:   source,
		enforcer: enforcer,
		queue:    queue,
		sink:     sink,
		cfg:      cfg,
		log:      baseLogger.With().Str("component", "monitor").Logger(),
	}
}

// Run ticks until ctx is done. It also starts the delivery drain.
func (m *Monitor) Run(ctx context.Context) {
	go m.drain(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Info().Dur("interval", m.cfg.Interval).Msg("Monitor started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Monitor stopped")
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick runs one sample-evaluate-act cycle. Exported so tests and
// callers with their own schedulers can drive it directly.
func (m *Monitor) Tick() {
	snap := m.source.Snapshot()
	detections := integrity.Evaluate(snap, m.cfg.Thresholds)

	for _, d := range detections {
		m.applyLocal(d.Kind)

		dropped := m.queue.Enqueue(ports.Report{
			UserID:    snap.UserID,
			Kind:      d.Kind,
			Details:   d.Evidence,
			Timestamp: snap.TakenAt,
		})
		m.log.Warn().
			Str("kind", string(d.Kind)).
			Str("severity", string(domain.SeverityOf(d.Kind))).
			Bool("queue_dropped_oldest", dropped).
			Msg("Suspicious activity detected")
	}
}

// applyLocal maps a kind to its cosmetic local action.
func (m *Monitor) applyLocal(kind domain.ActivityKind) {
	switch domain.ActionFor(kind) {
	case domain.ActionCorrectResources:
		m.enforcer.CorrectResources(m.cfg.Thresholds.Limits)
	case domain.ActionApplyCooldown:
		m.enforcer.ApplyCooldown(m.cfg.LocalCooldown)
	case domain.ActionBlockUser:
		m.enforcer.BlockLocally(m.cfg.LocalBlock)
	}
}

// drain ships queued reports one at a time. Failures are logged and
// the report is dropped; the local action already took effect and the
// server re-derives everything anyway.
func (m *Monitor) drain(ctx context.Context) {
	for {
		report, err := m.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		if err := m.sink.Send(ctx, report); err != nil {
			m.log.Warn().Err(err).Str("kind", string(report.Kind)).Msg("Report delivery failed, dropping")
		}
	}
}
