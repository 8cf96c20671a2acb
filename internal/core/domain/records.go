package domain

import (
	"time"

	"github.com/google/uuid"
)

// SuspiciousActivityRecord is one append-only audit row per detection.
// Immutable once written; removed only by the retention sweep.
type SuspiciousActivityRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID // internal id, not the external one
	Kind      ActivityKind
	Severity  Severity
	Details   map[string]any // size-bounded structured payload
	SourceIP  string
	CreatedAt time.Time
}

// BlockType distinguishes temporary from permanent blocks.
type BlockType string

const (
	BlockTemporary BlockType = "temporary"
	BlockPermanent BlockType = "permanent"
)

// BlockRecord is one row per block event, kept separately from the
// flag on UserSecurityState so the audit trail survives unblocking.
type BlockRecord struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Reason       string
	BlockType    BlockType
	BlockedAt    time.Time
	BlockedUntil time.Time
	UnblockedAt  *time.Time // Nullable, set exactly once by cleanup
	Notes        *string    // Nullable
}

// SecurityEventRecord is a perimeter/operational log row (rejected
// origins, bot user agents, unknown-user reports and the like).
type SecurityEventRecord struct {
	ID        uuid.UUID
	UserID    *uuid.UUID // Nullable: many events have no resolved user
	EventType string
	Level     string // "warn" or "error"
	Message   string
	Details   map[string]any
	SourceIP  string
	CreatedAt time.Time
}

// EventTypeStat is an aggregate row for the user-status endpoint.
type EventTypeStat struct {
	EventType string
	Count     int64
}
