package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserSecurityState is the per-player security row in the ledger.
// Punitive and audit fields are mutated only by the verification
// service; the resource columns are shared with normal gameplay
// transactions, which live elsewhere.
type UserSecurityState struct {
	ID     uuid.UUID
	UserID string // external identity (chat-platform user id)

	Coins   int64
	Tickets int64
	Energy  int64
	Level   int64
	XP      int64

	IsBlocked     bool
	BlockedUntil  *time.Time // Nullable
	IsCooldown    bool
	CooldownUntil *time.Time // Nullable

	LastIntegrityCheckAt  *time.Time // Nullable
	IntegrityChecksPassed int64
	IntegrityChecksFailed int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BlockedNow reports whether the block is actually in force at now.
// The IsBlocked flag goes stale once BlockedUntil passes, so it must
// never be trusted on its own.
func (s *UserSecurityState) BlockedNow(now time.Time) bool {
	return s.IsBlocked && s.BlockedUntil != nil && now.Before(*s.BlockedUntil)
}

// CoolingDownNow reports whether the advisory cooldown is in force.
func (s *UserSecurityState) CoolingDownNow(now time.Time) bool {
	return s.IsCooldown && s.CooldownUntil != nil && now.Before(*s.CooldownUntil)
}
