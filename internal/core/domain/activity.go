package domain

// ActivityKind is a custom type for the closed set of suspicious
// activity categories the monitor and the server both understand.
type ActivityKind string

const (
	KindCoinManipulation   ActivityKind = "coin_manipulation"
	KindTicketManipulation ActivityKind = "ticket_manipulation"
	KindBotDetected        ActivityKind = "bot_detected"
	KindTimeManipulation   ActivityKind = "time_manipulation"
	KindSpeedHack          ActivityKind = "speed_hack"
	KindMemoryTampering    ActivityKind = "memory_tampering"
	KindIntegrityFailure   ActivityKind = "integrity_failure"
	KindOutdatedVersion    ActivityKind = "outdated_version"
)

// ReportableKinds are the kinds a client is allowed to submit via the
// report endpoint. Server-derived kinds (outdated_version,
// integrity_failure from a checksum mismatch) are excluded.
var ReportableKinds = []ActivityKind{
	KindCoinManipulation,
	KindTicketManipulation,
	KindBotDetected,
	KindTimeManipulation,
	KindSpeedHack,
	KindMemoryTampering,
	KindIntegrityFailure,
}

// Valid reports whether k belongs to the reportable enumeration.
func (k ActivityKind) Valid() bool {
	for _, v := range ReportableKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Severity is the coarse three-level classification derived from kind.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// SeverityOf maps every activity kind to exactly one severity.
// The mapping is total: unknown kinds fall through to low.
func SeverityOf(kind ActivityKind) Severity {
	switch kind {
	case KindCoinManipulation, KindTicketManipulation, KindTimeManipulation, KindMemoryTampering:
		return SeverityHigh
	case KindBotDetected, KindSpeedHack, KindIntegrityFailure:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Action is the authoritative response to a confirmed report.
type Action string

const (
	ActionCorrectResources Action = "resources_corrected"
	ActionApplyCooldown    Action = "cooldown_applied"
	ActionBlockUser        Action = "user_blocked"
	ActionNone             Action = "none"
)

// ActionFor decides the action for a kind. It is a pure decision
// function; applying the action against the ledger is the
// verification service's job.
//
// bot_detected only toggles the cooldown flag and deliberately does
// not write a block record, matching the report endpoint's historical
// behavior.
func ActionFor(kind ActivityKind) Action {
	switch kind {
	case KindCoinManipulation, KindTicketManipulation:
		return ActionCorrectResources
	case KindBotDetected:
		return ActionApplyCooldown
	case KindTimeManipulation, KindSpeedHack, KindMemoryTampering:
		return ActionBlockUser
	default:
		return ActionNone
	}
}
