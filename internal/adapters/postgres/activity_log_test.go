package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
)

func TestActivityLog_AppendAndRecent(t *testing.T) {
	nopLogger := zerolog.Nop()
	repo := NewActivityLog(testDB, &nopLogger)
	ctx := t.Context()

	userID, _, cleanup := insertTestUser(t, 100, 10, 5)
	defer cleanup()

	kinds := []domain.ActivityKind{
		domain.KindCoinManipulation,
		domain.KindBotDetected,
		domain.KindSpeedHack,
	}
	for i, kind := range kinds {
		rec := &domain.SuspiciousActivityRecord{
			ID:        uuid.New(),
			UserID:    userID,
			Kind:      kind,
			Severity:  domain.SeverityOf(kind),
			Details:   map[string]any{"seq": i},
			SourceIP:  "203.0.113.7",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(ctx, rec); err != nil {
			t.Fatalf("Append %s failed: %v", kind, err)
		}
	}

	recent, err := repo.RecentByUser(ctx, userID, 2)
	if err != nil {
		t.Fatalf("RecentByUser failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentByUser returned %d records, want 2", len(recent))
	}
	// Newest first
	if recent[0].Kind != domain.KindSpeedHack {
		t.Errorf("first record: got %s, want %s", recent[0].Kind, domain.KindSpeedHack)
	}
	if recent[0].Severity != domain.SeverityMedium {
		t.Errorf("severity not persisted: got %s", recent[0].Severity)
	}
}

func TestActivityLog_DeleteOlderThan(t *testing.T) {
	nopLogger := zerolog.Nop()
	repo := NewActivityLog(testDB, &nopLogger)
	ctx := t.Context()

	userID, _, cleanup := insertTestUser(t, 100, 10, 5)
	defer cleanup()

	old := &domain.SuspiciousActivityRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      domain.KindBotDetected,
		Severity:  domain.SeverityMedium,
		SourceIP:  "203.0.113.7",
		CreatedAt: time.Now().Add(-31 * 24 * time.Hour),
	}
	fresh := &domain.SuspiciousActivityRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      domain.KindBotDetected,
		Severity:  domain.SeverityMedium,
		SourceIP:  "203.0.113.7",
		CreatedAt: time.Now(),
	}
	if err := repo.Append(ctx, old); err != nil {
		t.Fatalf("Append old failed: %v", err)
	}
	if err := repo.Append(ctx, fresh); err != nil {
		t.Fatalf("Append fresh failed: %v", err)
	}

	horizon := time.Now().Add(-30 * 24 * time.Hour)
	removed, err := repo.DeleteOlderThan(ctx, horizon)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed < 1 {
		t.Errorf("DeleteOlderThan removed %d, want >= 1", removed)
	}

	recent, err := repo.RecentByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("RecentByUser failed: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("expected only the fresh record to survive, got %d", len(recent))
	}
}
