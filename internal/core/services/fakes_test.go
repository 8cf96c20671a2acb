package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/ports"
)

// In-memory fakes for the persistence ports. Behavior mirrors the
// postgres adapters closely enough for service-level tests.

type fakeLedger struct {
	states map[string]*domain.UserSecurityState
}

var _ ports.SecurityLedger = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{states: make(map[string]*domain.UserSecurityState)}
}

func (f *fakeLedger) add(externalID string, coins, tickets, level int64) *domain.UserSecurityState {
	s := &domain.UserSecurityState{
		ID:      uuid.New(),
		UserID:  externalID,
		Coins:   coins,
		Tickets: tickets,
		Energy:  100,
		Level:   level,
	}
	f.states[externalID] = s
	return s
}

func (f *fakeLedger) GetByExternalID(_ context.Context, userID string) (*domain.UserSecurityState, error) {
	s, ok := f.states[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeLedger) GetByID(_ context.Context, id uuid.UUID) (*domain.UserSecurityState, error) {
	for _, s := range f.states {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) ClampResources(_ context.Context, userID string, limits domain.ResourceLimits) error {
	if s, ok := f.states[userID]; ok {
		clamped := limits.ClampResources(*s)
		s.Coins, s.Tickets, s.Energy, s.Level = clamped.Coins, clamped.Tickets, clamped.Energy, clamped.Level
	}
	return nil
}

func (f *fakeLedger) ApplyCooldown(_ context.Context, userID string, until time.Time) error {
	if s, ok := f.states[userID]; ok {
		s.IsCooldown = true
		s.CooldownUntil = &until
	}
	return nil
}

func (f *fakeLedger) ApplyBlock(_ context.Context, userID string, until time.Time) error {
	if s, ok := f.states[userID]; ok {
		s.IsBlocked = true
		s.BlockedUntil = &until
	}
	return nil
}

func (f *fakeLedger) RecordIntegrityCheck(_ context.Context, userID string, passed bool, at time.Time) error {
	s, ok := f.states[userID]
	if !ok {
		return nil
	}
	if passed {
		s.IntegrityChecksPassed++
		t := at
		s.LastIntegrityCheckAt = &t
	} else {
		s.IntegrityChecksFailed++
	}
	return nil
}

type fakeActivityLog struct {
	records []*domain.SuspiciousActivityRecord
}

var _ ports.ActivityLog = (*fakeActivityLog)(nil)

func (f *fakeActivityLog) Append(_ context.Context, rec *domain.SuspiciousActivityRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeActivityLog) RecentByUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.SuspiciousActivityRecord, error) {
	var out []*domain.SuspiciousActivityRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeActivityLog) DeleteOlderThan(_ context.Context, horizon time.Time) (int64, error) {
	var kept []*domain.SuspiciousActivityRecord
	var removed int64
	for _, rec := range f.records {
		if rec.CreatedAt.Before(horizon) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	return removed, nil
}

func (f *fakeActivityLog) byKind(kind domain.ActivityKind) []*domain.SuspiciousActivityRecord {
	var out []*domain.SuspiciousActivityRecord
	for _, rec := range f.records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

type fakeEventLog struct {
	records []*domain.SecurityEventRecord
}

var _ ports.EventLog = (*fakeEventLog)(nil)

func (f *fakeEventLog) Append(_ context.Context, rec *domain.SecurityEventRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeEventLog) StatsByUser(_ context.Context, userID uuid.UUID) ([]domain.EventTypeStat, error) {
	counts := map[string]int64{}
	for _, rec := range f.records {
		if rec.UserID != nil && *rec.UserID == userID {
			counts[rec.EventType]++
		}
	}
	var out []domain.EventTypeStat
	for eventType, count := range counts {
		out = append(out, domain.EventTypeStat{EventType: eventType, Count: count})
	}
	return out, nil
}

func (f *fakeEventLog) DeleteOlderThan(_ context.Context, horizon time.Time) (int64, error) {
	var kept []*domain.SecurityEventRecord
	var removed int64
	for _, rec := range f.records {
		if rec.CreatedAt.Before(horizon) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	f.records = kept
	return removed, nil
}

func (f *fakeEventLog) byType(eventType string) []*domain.SecurityEventRecord {
	var out []*domain.SecurityEventRecord
	for _, rec := range f.records {
		if rec.EventType == eventType {
			out = append(out, rec)
		}
	}
	return out
}

type fakeBlockLog struct {
	records []*domain.BlockRecord
}

var _ ports.BlockLog = (*fakeBlockLog)(nil)

func (f *fakeBlockLog) Append(_ context.Context, rec *domain.BlockRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeBlockLog) ActiveBlock(_ context.Context, userID uuid.UUID, now time.Time) (*domain.BlockRecord, error) {
	var newest *domain.BlockRecord
	for _, rec := range f.records {
		if rec.UserID == userID && rec.BlockedUntil.After(now) {
			if newest == nil || rec.BlockedAt.After(newest.BlockedAt) {
				newest = rec
			}
		}
	}
	return newest, nil
}

func (f *fakeBlockLog) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	var closed int64
	note := "auto-unblocked on expiry"
	for _, rec := range f.records {
		if rec.BlockedUntil.Before(now) && rec.UnblockedAt == nil {
			t := now
			rec.UnblockedAt = &t
			rec.Notes = &note
			closed++
		}
	}
	return closed, nil
}

type fakeBus struct {
	published []ports.Event
}

var _ ports.EventBus = (*fakeBus)(nil)

func (f *fakeBus) Publish(_ context.Context, topic string, data interface{}) error {
	f.published = append(f.published, ports.Event{Topic: topic, Data: data})
	return nil
}

func (f *fakeBus) Subscribe(string, ports.EventHandler) {}
