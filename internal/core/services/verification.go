package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/integrity"
	"crowguard/internal/core/ports"
)

// Verification is the only authority allowed to mutate the punitive
// and audit fields of user security state. It re-derives checksums
// and limits itself instead of trusting anything the client reports.
type Verification struct {
	ledger      ports.SecurityLedger
	activityLog ports.ActivityLog
	eventLog    ports.EventLog
	blockLog    ports.BlockLog
	bus         ports.EventBus
	policy      Policy
	now         func() time.Time
	log         zerolog.Logger
}

// NewVerification creates the verification service.
func NewVerification(
	ledger ports.SecurityLedger,
	activityLog ports.ActivityLog,
	eventLog ports.EventLog,
	blockLog ports.BlockLog,
	bus ports.EventBus,
	policy Policy,
	baseLogger *zerolog.Logger,
) *Verification {
	return &Verification{
		ledger:      ledger,
		activityLog: activityLog,
		eventLog:    eventLog,
		blockLog:    blockLog,
		bus:         bus,
		policy:      policy,
		now:         time.Now,
		log:         baseLogger.With().Str("component", "verification").Logger(),
	}
}

// WithClock overrides the time source. Test hook.
func (v *Verification) WithClock(now func() time.Time) *Verification {
	v.now = now
	return v
}

// Policy returns the active enforcement policy.
func (v *Verification) Policy() Policy {
	return v.policy
}

// ReportActivity handles one suspicious-activity report. The report
// is advisory input: the action applied here is decided from the kind
// alone and every ledger mutation is idempotent, so duplicate or
// concurrent reports are harmless.
//
// An unknown user is a logged no-op, never an error, so the endpoint
// does not leak which ids exist.
func (v *Verification) ReportActivity(ctx context.Context, userID string, kind domain.ActivityKind, details map[string]any, sourceIP string) (domain.Action, error) {
	if !kind.Valid() {
		return domain.ActionNone, ErrInvalidActivityKind
	}
	if !domain.ValidUserID(userID) {
		return domain.ActionNone, ErrInvalidUserID
	}
	if err := v.checkDetailsSize(details); err != nil {
		return domain.ActionNone, err
	}

	state, err := v.ledger.GetByExternalID(ctx, userID)
	if err != nil {
		return domain.ActionNone, fmt.Errorf("resolve user: %w", err)
	}
	if state == nil {
		v.recordEvent(ctx, nil, "unknown_user_report", "warn",
			"report for unknown user", map[string]any{"user_id": userID, "kind": string(kind)}, sourceIP)
		return domain.ActionNone, nil
	}

	if err := v.logSuspiciousActivity(ctx, state.ID, kind, details, sourceIP); err != nil {
		return domain.ActionNone, err
	}

	action := domain.ActionFor(kind)
	if err := v.applyAction(ctx, state, action); err != nil {
		return domain.ActionNone, err
	}

	v.publishDetection(ctx, userID, kind, action, sourceIP)
	return action, nil
}

// applyAction executes one decided action against the ledger.
func (v *Verification) applyAction(ctx context.Context, state *domain.UserSecurityState, action domain.Action) error {
	now := v.now()
	switch action {
	case domain.ActionCorrectResources:
		if err := v.ledger.ClampResources(ctx, state.UserID, v.policy.Limits); err != nil {
			return fmt.Errorf("clamp resources: %w", err)
		}
	case domain.ActionApplyCooldown:
		if err := v.ledger.ApplyCooldown(ctx, state.UserID, now.Add(v.policy.CooldownDuration)); err != nil {
			return fmt.Errorf("apply cooldown: %w", err)
		}
	case domain.ActionBlockUser:
		until := now.Add(v.policy.BlockDuration)
		if err := v.ledger.ApplyBlock(ctx, state.UserID, until); err != nil {
			return fmt.Errorf("apply block: %w", err)
		}
		rec := &domain.BlockRecord{
			ID:           uuid.New(),
			UserID:       state.ID,
			Reason:       "cheating_detected",
			BlockType:    domain.BlockTemporary,
			BlockedAt:    now,
			BlockedUntil: until,
		}
		if err := v.blockLog.Append(ctx, rec); err != nil {
			return fmt.Errorf("append block record: %w", err)
		}
	case domain.ActionNone:
	}
	return nil
}

// VerifyIntegrity handles one checksum/version submission. Order
// matters: the version gate and the frequency gate are cheap and run
// before any recomputation. A single mismatch never blocks; it only
// logs and bumps the failure counter, since benign version skew can
// produce one.
func (v *Verification) VerifyIntegrity(ctx context.Context, userID, checksum, version, payload string) (time.Time, error) {
	var zero time.Time
	if !domain.ValidUserID(userID) {
		return zero, ErrInvalidUserID
	}
	if len(payload) > v.policy.MaxPayloadBytes {
		return zero, ErrPayloadTooLarge
	}

	state, err := v.ledger.GetByExternalID(ctx, userID)
	if err != nil {
		return zero, fmt.Errorf("resolve user: %w", err)
	}
	if state == nil {
		v.recordEvent(ctx, nil, "unknown_user_report", "warn",
			"integrity check for unknown user", map[string]any{"user_id": userID}, "")
		return zero, ErrUnknownUser
	}

	if mismatch, ev := integrity.VersionMismatch(version, v.policy.GameVersion); mismatch {
		if err := v.logSuspiciousActivity(ctx, state.ID, domain.KindOutdatedVersion, ev, ""); err != nil {
			return zero, err
		}
		return zero, ErrOutdatedVersion
	}

	now := v.now()
	if tooSoon, _ := integrity.CheckFrequencyViolation(state.LastIntegrityCheckAt, now, v.policy.CheckMinInterval); tooSoon {
		return zero, ErrCheckTooFrequent
	}

	if mismatch, ev := integrity.ChecksumMismatch(checksum, payload); mismatch {
		if err := v.logSuspiciousActivity(ctx, state.ID, domain.KindIntegrityFailure, ev, ""); err != nil {
			return zero, err
		}
		if err := v.ledger.RecordIntegrityCheck(ctx, userID, false, now); err != nil {
			return zero, fmt.Errorf("record failed check: %w", err)
		}
		v.publishDetection(ctx, userID, domain.KindIntegrityFailure, domain.ActionNone, "")
		return zero, ErrIntegrityCompromised
	}

	if err := v.ledger.RecordIntegrityCheck(ctx, userID, true, now); err != nil {
		return zero, fmt.Errorf("record passed check: %w", err)
	}
	return now, nil
}

// Status is the aggregate returned by the user-status endpoint.
type Status struct {
	UserID         string
	IsBlocked      bool
	BlockInfo      *domain.BlockRecord
	RecentActivity []*domain.SuspiciousActivityRecord
	EventStats     []domain.EventTypeStat
	ChecksPassed   int64
	ChecksFailed   int64
	LastCheckAt    *time.Time
	GeneratedAt    time.Time
}

// UserStatus assembles the security status for one user. Block state
// is derived lazily from the deadline, never from the stale flag.
func (v *Verification) UserStatus(ctx context.Context, userID string) (*Status, error) {
	if !domain.ValidUserID(userID) {
		return nil, ErrInvalidUserID
	}
	state, err := v.ledger.GetByExternalID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if state == nil {
		return nil, ErrUnknownUser
	}

	now := v.now()
	block, err := v.blockLog.ActiveBlock(ctx, state.ID, now)
	if err != nil {
		return nil, fmt.Errorf("active block: %w", err)
	}
	recent, err := v.activityLog.RecentByUser(ctx, state.ID, 10)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	stats, err := v.eventLog.StatsByUser(ctx, state.ID)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}

	return &Status{
		UserID:         userID,
		IsBlocked:      state.BlockedNow(now),
		BlockInfo:      block,
		RecentActivity: recent,
		EventStats:     stats,
		ChecksPassed:   state.IntegrityChecksPassed,
		ChecksFailed:   state.IntegrityChecksFailed,
		LastCheckAt:    state.LastIntegrityCheckAt,
		GeneratedAt:    now,
	}, nil
}

// BlockedNow reports whether the user's block deadline is still
// ahead. Unknown users are not blocked.
func (v *Verification) BlockedNow(ctx context.Context, userID string) (bool, error) {
	state, err := v.ledger.GetByExternalID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("resolve user: %w", err)
	}
	if state == nil {
		return false, nil
	}
	return state.BlockedNow(v.now()), nil
}

// CleanupSummary reports what one retention sweep removed.
type CleanupSummary struct {
	ActivityRemoved int64
	EventsRemoved   int64
	BlocksClosed    int64
}

// Cleanup runs the retention sweep: aged activity and event rows are
// deleted, and expired blocks get unblocked_at stamped (exactly once,
// so re-running is a no-op for already-closed records). This is the
// only path that closes a block's audit trail.
func (v *Verification) Cleanup(ctx context.Context) (CleanupSummary, error) {
	var sum CleanupSummary
	now := v.now()
	horizon := now.Add(-v.policy.RetentionHorizon)

	removed, err := v.activityLog.DeleteOlderThan(ctx, horizon)
	if err != nil {
		return sum, fmt.Errorf("sweep activity log: %w", err)
	}
	sum.ActivityRemoved = removed

	removed, err = v.eventLog.DeleteOlderThan(ctx, horizon)
	if err != nil {
		return sum, fmt.Errorf("sweep event log: %w", err)
	}
	sum.EventsRemoved = removed

	closed, err := v.blockLog.CloseExpired(ctx, now)
	if err != nil {
		return sum, fmt.Errorf("close expired blocks: %w", err)
	}
	sum.BlocksClosed = closed

	v.log.Info().
		Int64("activity_removed", sum.ActivityRemoved).
		Int64("events_removed", sum.EventsRemoved).
		Int64("blocks_closed", sum.BlocksClosed).
		Msg("Retention sweep completed")
	return sum, nil
}

// RecordEvent exposes the perimeter event log to the HTTP layer for
// rejected requests (bot user agents, bad origins, invalid ids).
func (v *Verification) RecordEvent(ctx context.Context, eventType, message string, details map[string]any, sourceIP string) {
	v.recordEvent(ctx, nil, eventType, "warn", message, details, sourceIP)
}

// logSuspiciousActivity appends the audit row and its mirror in the
// event log, the way the original reporting pipeline did.
func (v *Verification) logSuspiciousActivity(ctx context.Context, userID uuid.UUID, kind domain.ActivityKind, details map[string]any, sourceIP string) error {
	severity := domain.SeverityOf(kind)
	rec := &domain.SuspiciousActivityRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Severity:  severity,
		Details:   details,
		SourceIP:  sourceIP,
		CreatedAt: v.now(),
	}
	if err := v.activityLog.Append(ctx, rec); err != nil {
		return fmt.Errorf("append activity record: %w", err)
	}

	level := "warn"
	if severity == domain.SeverityHigh {
		level = "error"
	}
	v.recordEvent(ctx, &userID, "suspicious_activity", level,
		fmt.Sprintf("suspicious activity: %s", kind), details, sourceIP)
	return nil
}

// recordEvent writes one perimeter event row. Event logging is
// telemetry; failures are logged and swallowed.
func (v *Verification) recordEvent(ctx context.Context, userID *uuid.UUID, eventType, level, message string, details map[string]any, sourceIP string) {
	rec := &domain.SecurityEventRecord{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType,
		Level:     level,
		Message:   message,
		Details:   details,
		SourceIP:  sourceIP,
		CreatedAt: v.now(),
	}
	if err := v.eventLog.Append(ctx, rec); err != nil {
		v.log.Error().Err(err).Str("event_type", eventType).Msg("Failed to append security event")
	}
}

// publishDetection fans the detection out on the bus. Subscribers run
// asynchronously, so this never holds up the request.
func (v *Verification) publishDetection(ctx context.Context, userID string, kind domain.ActivityKind, action domain.Action, sourceIP string) {
	if v.bus == nil {
		return
	}
	event := ports.DetectionEvent{
		UserID:   userID,
		Kind:     kind,
		Severity: domain.SeverityOf(kind),
		Action:   action,
		SourceIP: sourceIP,
	}
	if err := v.bus.Publish(ctx, ports.TopicDetection, event); err != nil {
		v.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to publish detection event")
	}
	if action == domain.ActionBlockUser {
		if err := v.bus.Publish(ctx, ports.TopicBlock, event); err != nil {
			v.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to publish block event")
		}
	}
}

func (v *Verification) checkDetailsSize(details map[string]any) error {
	if details == nil {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	if len(raw) > v.policy.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	return nil
}
