package domain

// ResourceLimits holds the per-field policy bounds every consumer
// clamps against. Values mirror the game's published validation rules.
type ResourceLimits struct {
	MinCoins   int64
	MaxCoins   int64
	MinTickets int64
	MaxTickets int64
	MinEnergy  int64
	MaxEnergy  int64
	MinLevel   int64
	MaxLevel   int64
}

// DefaultLimits returns the policy constants for the live game.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MinCoins:   0,
		MaxCoins:   999_999_999,
		MinTickets: 0,
		MaxTickets: 999_999,
		MinEnergy:  0,
		MaxEnergy:  5000,
		MinLevel:   1,
		MaxLevel:   100,
	}
}

// Clamp forces v into the closed interval [min, max].
// Applying it twice yields the same result as applying it once.
func Clamp(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampResources returns a copy of s with coins, tickets, energy and
// level forced into their policy intervals. The input is not mutated.
func (l ResourceLimits) ClampResources(s UserSecurityState) UserSecurityState {
	s.Coins = Clamp(s.Coins, l.MinCoins, l.MaxCoins)
	s.Tickets = Clamp(s.Tickets, l.MinTickets, l.MaxTickets)
	s.Energy = Clamp(s.Energy, l.MinEnergy, l.MaxEnergy)
	s.Level = Clamp(s.Level, l.MinLevel, l.MaxLevel)
	return s
}
