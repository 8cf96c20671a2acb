package services

import (
	"time"

	"crowguard/internal/core/domain"
)

// Policy carries the enforcement tunables. The server builds it from
// configuration once at startup; the rules endpoint serves it back to
// clients so they can self-configure.
type Policy struct {
	GameVersion      string
	Limits           domain.ResourceLimits
	CooldownDuration time.Duration
	BlockDuration    time.Duration
	CheckMinInterval time.Duration
	RetentionHorizon time.Duration
	MaxPayloadBytes  int
	AllowedOrigins   []string

	// Rate limits, advertised via the rules endpoint. Enforcement
	// happens in the HTTP layer.
	GlobalRateWindow    time.Duration
	GlobalRateMax       int
	SensitiveRateWindow time.Duration
	SensitiveRateMax    int
}

// DefaultPolicy returns the live game's policy constants.
func DefaultPolicy() Policy {
	return Policy{
		GameVersion:         "1.0.0",
		Limits:              domain.DefaultLimits(),
		CooldownDuration:    5 * time.Minute,
		BlockDuration:       time.Hour,
		CheckMinInterval:    time.Hour,
		RetentionHorizon:    30 * 24 * time.Hour,
		MaxPayloadBytes:     10_000,
		AllowedOrigins:      []string{"http://localhost:3000"},
		GlobalRateWindow:    15 * time.Minute,
		GlobalRateMax:       100,
		SensitiveRateWindow: 5 * time.Minute,
		SensitiveRateMax:    50,
	}
}

// Rules is the self-configuration document served to clients.
type Rules struct {
	MaxCoins             int64    `json:"max_coins"`
	MaxTickets           int64    `json:"max_tickets"`
	MaxLevel             int64    `json:"max_level"`
	MaxEnergy            int64    `json:"max_energy"`
	RequestSizeLimit     int      `json:"request_size_limit"`
	AllowedOrigins       []string `json:"allowed_origins"`
	GlobalRateMax        int      `json:"global_rate_max"`
	GlobalRateWindowS    int      `json:"global_rate_window_seconds"`
	SensitiveRateMax     int      `json:"sensitive_rate_max"`
	SensitiveRateWindowS int      `json:"sensitive_rate_window_seconds"`
	CheckMinIntervalS    int      `json:"integrity_check_min_interval_seconds"`
	SecurityFeatures     []string `json:"security_features"`
}

// RulesDoc renders the policy as the client-facing rules document.
func (p Policy) RulesDoc() Rules {
	return Rules{
		MaxCoins:             p.Limits.MaxCoins,
		MaxTickets:           p.Limits.MaxTickets,
		MaxLevel:             p.Limits.MaxLevel,
		MaxEnergy:            p.Limits.MaxEnergy,
		RequestSizeLimit:     p.MaxPayloadBytes,
		AllowedOrigins:       p.AllowedOrigins,
		GlobalRateMax:        p.GlobalRateMax,
		GlobalRateWindowS:    int(p.GlobalRateWindow.Seconds()),
		SensitiveRateMax:     p.SensitiveRateMax,
		SensitiveRateWindowS: int(p.SensitiveRateWindow.Seconds()),
		CheckMinIntervalS:    int(p.CheckMinInterval.Seconds()),
		SecurityFeatures: []string{
			"rate_limiting",
			"input_validation",
			"integrity_checks",
			"cheat_detection",
			"activity_monitoring",
		},
	}
}
