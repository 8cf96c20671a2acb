package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crowguard/internal/core/domain"
)

// ActivityLog defines persistence for the append-only suspicious
// activity trail. Rows are immutable; only the retention sweep
// removes them.
type ActivityLog interface {
	Append(ctx context.Context, rec *domain.SuspiciousActivityRecord) error

	// RecentByUser returns the newest records first, at most limit.
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.SuspiciousActivityRecord, error)

	// DeleteOlderThan removes rows created before the horizon and
	// reports how many were removed.
	DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error)
}

// EventLog defines persistence for perimeter/operational security
// events (rejected origins, bot user agents, unknown-user reports).
type EventLog interface {
	Append(ctx context.Context, rec *domain.SecurityEventRecord) error
	StatsByUser(ctx context.Context, userID uuid.UUID) ([]domain.EventTypeStat, error)
	DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error)
}

// BlockLog defines persistence for per-event block records.
type BlockLog interface {
	Append(ctx context.Context, rec *domain.BlockRecord) error

	// ActiveBlock returns the block whose deadline is still ahead of
	// now, or nil, nil when the user has none.
	ActiveBlock(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.BlockRecord, error)

	// CloseExpired stamps unblocked_at = now on every record whose
	// deadline has passed and whose unblocked_at is still null. The
	// null guard makes re-running it a no-op. Returns the number of
	// records closed.
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}
