package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crowguard/internal/core/domain"
)

// SecurityLedger defines the persistence operations against the
// authoritative per-user security state. Implementations must make
// every mutation either an idempotent clamp or a set-to-fixed-value,
// and counter bumps must use the store's atomic increment rather than
// read-modify-write.
type SecurityLedger interface {
	// GetByExternalID finds a user's security state by the external
	// (chat-platform) identifier. Returns nil, nil when not found.
	GetByExternalID(ctx context.Context, userID string) (*domain.UserSecurityState, error)

	// GetByID finds a user's security state by internal UUID.
	// Returns nil, nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSecurityState, error)

	// ClampResources forces the user's resource columns into the
	// policy intervals in a single atomic statement.
	ClampResources(ctx context.Context, userID string, limits domain.ResourceLimits) error

	// ApplyCooldown sets the advisory cooldown flag and deadline.
	ApplyCooldown(ctx context.Context, userID string, until time.Time) error

	// ApplyBlock sets the punitive block flag and deadline.
	ApplyBlock(ctx context.Context, userID string, until time.Time) error

	// RecordIntegrityCheck bumps exactly one of the pass/fail
	// counters atomically; on a pass it also stamps
	// last_integrity_check_at.
	RecordIntegrityCheck(ctx context.Context, userID string, passed bool, at time.Time) error
}
