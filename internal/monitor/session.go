package monitor

import (
	"sync"
	"time"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/integrity"
)

// maxTrackedActions bounds the trailing action history so heuristic
// evaluation stays O(bounded) per tick.
const maxTrackedActions = 256

// SessionState mirrors the player's local resources for the running
// session. Gameplay code updates it; the monitor samples it. All
// access goes through the lock, and snapshots are value copies, so
// heuristics never observe a half-written state.
type SessionState struct {
	mu sync.Mutex

	userID  string
	version string

	coins   int64
	tickets int64
	energy  int64
	level   int64
	xp      int64

	actions []time.Time

	cooldownUntil time.Time
	blockedUntil  time.Time

	now func() time.Time
}

// NewSessionState creates the local mirror for one player session.
func NewSessionState(userID, version string) *SessionState {
	return &SessionState{
		userID:  userID,
		version: version,
		level:   1,
		now:     time.Now,
	}
}

// SetResources replaces the mirrored resource values.
func (s *SessionState) SetResources(coins, tickets, energy, level, xp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coins, s.tickets, s.energy, s.level, s.xp = coins, tickets, energy, level, xp
}

// RecordAction notes one player action for the rate heuristic. While
// a local cooldown or block is in force the action is ignored, which
// is the soft-penalty taking effect.
func (s *SessionState) RecordAction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Before(s.cooldownUntil) || now.Before(s.blockedUntil) {
		return false
	}
	s.actions = append(s.actions, now)
	if len(s.actions) > maxTrackedActions {
		s.actions = s.actions[len(s.actions)-maxTrackedActions:]
	}
	return true
}

// Snapshot returns an immutable copy of the current state.
func (s *SessionState) Snapshot() integrity.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := make([]time.Time, len(s.actions))
	copy(actions, s.actions)

	now := s.now()
	return integrity.Snapshot{
		UserID:           s.userID,
		Coins:            s.coins,
		Tickets:          s.tickets,
		Energy:           s.energy,
		Level:            s.level,
		XP:               s.xp,
		ActionTimestamps: actions,
		ClientTime:       now,
		ReportedVersion:  s.version,
		TakenAt:          now,
	}
}

// CorrectResources clamps the mirrored values into the policy
// intervals. Cosmetic self-heal only: the server applies the
// authoritative correction independently.
func (s *SessionState) CorrectResources(limits domain.ResourceLimits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coins = domain.Clamp(s.coins, limits.MinCoins, limits.MaxCoins)
	s.tickets = domain.Clamp(s.tickets, limits.MinTickets, limits.MaxTickets)
	s.energy = domain.Clamp(s.energy, limits.MinEnergy, limits.MaxEnergy)
	s.level = domain.Clamp(s.level, limits.MinLevel, limits.MaxLevel)
}

// ApplyCooldown suppresses local actions for the duration.
func (s *SessionState) ApplyCooldown(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until := s.now().Add(d)
	if until.After(s.cooldownUntil) {
		s.cooldownUntil = until
	}
}

// BlockLocally marks the session blocked for the duration.
func (s *SessionState) BlockLocally(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until := s.now().Add(d)
	if until.After(s.blockedUntil) {
		s.blockedUntil = until
	}
}

// Blocked reports whether the local block is in force.
func (s *SessionState) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.blockedUntil)
}

// withClock overrides the time source. Test hook.
func (s *SessionState) withClock(now func() time.Time) *SessionState {
	s.now = now
	return s
}
