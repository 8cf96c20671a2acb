package integrity

import (
	"fmt"
	"regexp"
	"time"

	"crowguard/internal/core/domain"
)

// Snapshot is an immutable sample of client-side state taken by the
// monitor on each tick. Heuristics only ever read it; corrections are
// expressed as new values, never in-place mutation.
type Snapshot struct {
	UserID           string
	Coins            int64
	Tickets          int64
	Energy           int64
	Level            int64
	XP               int64
	ActionTimestamps []time.Time
	ClientTime       time.Time
	ReportedVersion  string
	TakenAt          time.Time
}

// Evidence is the structured payload attached to a detection.
type Evidence map[string]any

// RangeViolation reports whether value lies outside [min, max].
func RangeViolation(field string, value, min, max int64) (bool, Evidence) {
	if value >= min && value <= max {
		return false, nil
	}
	return true, Evidence{"field": field, "value": value, "min": min, "max": max}
}

// ActionRateViolation reports whether more than maxCount actions fall
// inside the trailing window ending at now. Cost is linear in the
// number of recent timestamps, which the monitor bounds by trimming.
func ActionRateViolation(timestamps []time.Time, now time.Time, window time.Duration, maxCount int) (bool, Evidence) {
	cutoff := now.Add(-window)
	count := 0
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			count++
		}
	}
	if count <= maxCount {
		return false, nil
	}
	return true, Evidence{"count": count, "max": maxCount, "window_ms": window.Milliseconds()}
}

// ClockSkewViolation reports whether the client clock and the
// reference clock disagree by more than tolerance.
func ClockSkewViolation(clientTime, serverTime time.Time, tolerance time.Duration) (bool, Evidence) {
	skew := clientTime.Sub(serverTime)
	if skew < 0 {
		skew = -skew
	}
	if skew <= tolerance {
		return false, nil
	}
	return true, Evidence{"skew_ms": skew.Milliseconds(), "tolerance_ms": tolerance.Milliseconds()}
}

// VersionMismatch reports whether the client runs anything other than
// the exact expected game version.
func VersionMismatch(reported, expected string) (bool, Evidence) {
	if reported == expected {
		return false, nil
	}
	return true, Evidence{"version": reported, "expected": expected}
}

// ChecksumMismatch recomputes the checksum over payload and compares
// it to the client-submitted value.
func ChecksumMismatch(reported, payload string) (bool, Evidence) {
	recomputed := Checksum(payload)
	if reported == recomputed {
		return false, nil
	}
	return true, Evidence{"checksum": reported, "expected": recomputed}
}

// CheckFrequencyViolation reports whether less than minInterval has
// elapsed since the last accepted integrity check. A nil lastCheckAt
// means no prior check and never violates. Elapsed time of exactly
// minInterval is accepted.
func CheckFrequencyViolation(lastCheckAt *time.Time, now time.Time, minInterval time.Duration) (bool, Evidence) {
	if lastCheckAt == nil {
		return false, nil
	}
	elapsed := now.Sub(*lastCheckAt)
	if elapsed >= minInterval {
		return false, nil
	}
	return true, Evidence{
		"elapsed_ms":      elapsed.Milliseconds(),
		"min_interval_ms": minInterval.Milliseconds(),
	}
}

// maliciousPatterns mirror the injection screens the game applies to
// free-form string fields before trusting them.
var maliciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script\b[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)fromCharCode`),
	regexp.MustCompile(`(?i)\\x[0-9a-f]{2}`),
	regexp.MustCompile(`(?i)\\u[0-9a-f]{4}`),
}

// ContainsMaliciousPayload screens a string field for script-injection
// patterns. Advisory, like every other heuristic here.
func ContainsMaliciousPayload(text string) bool {
	for _, p := range maliciousPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Detection couples a classified kind with its evidence.
type Detection struct {
	Kind     domain.ActivityKind
	Evidence Evidence
}

// Thresholds carries the tunables Evaluate needs. Zero values are not
// meaningful; callers build it from config (or DefaultThresholds).
type Thresholds struct {
	Limits             domain.ResourceLimits
	ActionRateWindow   time.Duration
	ActionRateMax      int
	ClockSkewTolerance time.Duration
}

// DefaultThresholds returns the live policy values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Limits:             domain.DefaultLimits(),
		ActionRateWindow:   time.Minute,
		ActionRateMax:      100,
		ClockSkewTolerance: time.Minute,
	}
}

// Evaluate runs every applicable heuristic over one snapshot and
// returns the detections in a stable order. It is pure: same snapshot
// and thresholds, same detections.
func Evaluate(snap Snapshot, th Thresholds) []Detection {
	var out []Detection

	if ok, ev := RangeViolation("coins", snap.Coins, th.Limits.MinCoins, th.Limits.MaxCoins); ok {
		out = append(out, Detection{Kind: domain.KindCoinManipulation, Evidence: ev})
	}
	if ok, ev := RangeViolation("tickets", snap.Tickets, th.Limits.MinTickets, th.Limits.MaxTickets); ok {
		out = append(out, Detection{Kind: domain.KindTicketManipulation, Evidence: ev})
	}
	if ok, ev := RangeViolation("level", snap.Level, th.Limits.MinLevel, th.Limits.MaxLevel); ok {
		out = append(out, Detection{Kind: domain.KindMemoryTampering, Evidence: ev})
	}
	if ok, ev := RangeViolation("energy", snap.Energy, th.Limits.MinEnergy, th.Limits.MaxEnergy); ok {
		out = append(out, Detection{Kind: domain.KindMemoryTampering, Evidence: ev})
	}
	if ok, ev := ActionRateViolation(snap.ActionTimestamps, snap.TakenAt, th.ActionRateWindow, th.ActionRateMax); ok {
		out = append(out, Detection{Kind: domain.KindBotDetected, Evidence: ev})
	}
	if ok, ev := ClockSkewViolation(snap.ClientTime, snap.TakenAt, th.ClockSkewTolerance); ok {
		out = append(out, Detection{Kind: domain.KindTimeManipulation, Evidence: ev})
	}
	if ContainsMaliciousPayload(snap.UserID) {
		out = append(out, Detection{
			Kind:     domain.KindMemoryTampering,
			Evidence: Evidence{"field": "user_id", "reason": "malicious_payload"},
		})
	}
	return out
}

// String implements fmt.Stringer for log lines.
func (d Detection) String() string {
	return fmt.Sprintf("%s (%s)", d.Kind, domain.SeverityOf(d.Kind))
}
