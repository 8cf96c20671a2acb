package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/ports"
)

type securityLedger struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.SecurityLedger = (*securityLedger)(nil) // Ensure compliance

// NewSecurityLedger creates the pgx-backed security state repository.
func NewSecurityLedger(db *DB, baseLogger *zerolog.Logger) ports.SecurityLedger {
	return &securityLedger{
		db:  db,
		log: baseLogger.With().Str("component", "security_ledger").Logger(),
	}
}

const stateQueryCols = `
	id, external_id, coins, tickets, energy, level, xp,
	is_blocked, blocked_until, is_cooldown, cooldown_until,
	last_integrity_check_at, integrity_checks_passed, integrity_checks_failed,
	created_at, updated_at
`

// scanState is a helper to scan a row into a UserSecurityState.
func (r *securityLedger) scanState(row pgx.Row) (*domain.UserSecurityState, error) {
	var s domain.UserSecurityState
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Coins,
		&s.Tickets,
		&s.Energy,
		&s.Level,
		&s.XP,
		&s.IsBlocked,
		&s.BlockedUntil,
		&s.IsCooldown,
		&s.CooldownUntil,
		&s.LastIntegrityCheckAt,
		&s.IntegrityChecksPassed,
		&s.IntegrityChecksFailed,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		r.log.Error().Err(err).Msg("Failed to scan security state row")
		return nil, err
	}
	return &s, nil
}

// GetByExternalID finds a user's state by their external id.
func (r *securityLedger) GetByExternalID(ctx context.Context, userID string) (*domain.UserSecurityState, error) {
	query := `SELECT ` + stateQueryCols + ` FROM users WHERE external_id = $1`

	row := r.db.pool.QueryRow(ctx, query, userID)
	state, err := r.scanState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Return nil, nil for "not found"
		}
		return nil, err
	}
	return state, nil
}

// GetByID finds a user's state by their internal UUID.
func (r *securityLedger) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSecurityState, error) {
	query := `SELECT ` + stateQueryCols + ` FROM users WHERE id = $1`

	row := r.db.pool.QueryRow(ctx, query, id)
	state, err := r.scanState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return state, nil
}

// ClampResources forces the resource columns into their policy
// intervals in one statement. GREATEST/LEAST keeps the whole clamp
// atomic on the database side, so concurrent clamps interleave safely.
func (r *securityLedger) ClampResources(ctx context.Context, userID string, limits domain.ResourceLimits) error {
	query := `
		UPDATE users SET
			coins = GREATEST($2::bigint, LEAST(coins, $3::bigint)),
			tickets = GREATEST($4::bigint, LEAST(tickets, $5::bigint)),
			energy = GREATEST($6::bigint, LEAST(energy, $7::bigint)),
			level = GREATEST($8::bigint, LEAST(level, $9::bigint)),
			updated_at = NOW()
		WHERE external_id = $1
	`
	_, err := r.db.pool.Exec(ctx, query, userID,
		limits.MinCoins, limits.MaxCoins,
		limits.MinTickets, limits.MaxTickets,
		limits.MinEnergy, limits.MaxEnergy,
		limits.MinLevel, limits.MaxLevel,
	)
	if err != nil {
		r.log.Error().Err(err).Str("external_id", userID).Msg("Failed to clamp resources")
	}
	return err
}

// ApplyCooldown sets the advisory cooldown flag and deadline.
func (r *securityLedger) ApplyCooldown(ctx context.Context, userID string, until time.Time) error {
	query := `
		UPDATE users SET is_cooldown = TRUE, cooldown_until = $2, updated_at = NOW()
		WHERE external_id = $1
	`
	_, err := r.db.pool.Exec(ctx, query, userID, until)
	if err != nil {
		r.log.Error().Err(err).Str("external_id", userID).Msg("Failed to apply cooldown")
	}
	return err
}

// ApplyBlock sets the punitive block flag and deadline.
func (r *securityLedger) ApplyBlock(ctx context.Context, userID string, until time.Time) error {
	query := `
		UPDATE users SET is_blocked = TRUE, blocked_until = $2, updated_at = NOW()
		WHERE external_id = $1
	`
	_, err := r.db.pool.Exec(ctx, query, userID, until)
	if err != nil {
		r.log.Error().Err(err).Str("external_id", userID).Msg("Failed to apply block")
	}
	return err
}

// RecordIntegrityCheck bumps the pass/fail counters with SQL-side
// increments. Read-then-write here would lose updates under
// concurrent checks; the increment has to happen in the store.
func (r *securityLedger) RecordIntegrityCheck(ctx context.Context, userID string, passed bool, at time.Time) error {
	var query string
	if passed {
		query = `
			UPDATE users SET
				integrity_checks_passed = integrity_checks_passed + 1,
				last_integrity_check_at = $2,
				updated_at = NOW()
			WHERE external_id = $1
		`
	} else {
		query = `
			UPDATE users SET
				integrity_checks_failed = integrity_checks_failed + 1,
				updated_at = NOW()
			WHERE external_id = $1
		`
	}
	var err error
	if passed {
		_, err = r.db.pool.Exec(ctx, query, userID, at)
	} else {
		_, err = r.db.pool.Exec(ctx, query, userID)
	}
	if err != nil {
		r.log.Error().Err(err).Str("external_id", userID).Bool("passed", passed).Msg("Failed to record integrity check")
	}
	return err
}
