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

type blockLog struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.BlockLog = (*blockLog)(nil) // Ensure compliance

// NewBlockLog creates the block record repository.
func NewBlockLog(db *DB, baseLogger *zerolog.Logger) ports.BlockLog {
	return &blockLog{
		db:  db,
		log: baseLogger.With().Str("component", "block_log").Logger(),
	}
}

// Append inserts one block event row.
func (r *blockLog) Append(ctx context.Context, rec *domain.BlockRecord) error {
	query := `
		INSERT INTO blocked_users (
			id, user_id, reason, block_type, blocked_at, blocked_until, unblocked_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Reason,
		rec.BlockType,
		rec.BlockedAt,
		rec.BlockedUntil,
		rec.UnblockedAt,
		rec.Notes,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", rec.UserID.String()).Msg("Failed to insert block record")
	}
	return err
}

// ActiveBlock returns the newest block whose deadline is still ahead
// of now, or nil, nil when there is none.
func (r *blockLog) ActiveBlock(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.BlockRecord, error) {
	query := `
		SELECT id, user_id, reason, block_type, blocked_at, blocked_until, unblocked_at, notes
		FROM blocked_users
		WHERE user_id = $1 AND blocked_until > $2
		ORDER BY blocked_at DESC
		LIMIT 1
	`
	row := r.db.pool.QueryRow(ctx, query, userID, now)

	var rec domain.BlockRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Reason,
		&rec.BlockType,
		&rec.BlockedAt,
		&rec.BlockedUntil,
		&rec.UnblockedAt,
		&rec.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Return nil, nil for "not found"
		}
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to scan block record")
		return nil, err
	}
	return &rec, nil
}

// CloseExpired stamps unblocked_at on expired, still-open records.
// The unblocked_at IS NULL guard makes the sweep idempotent: a record
// is closed exactly once no matter how often the sweep runs.
func (r *blockLog) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE blocked_users
		SET unblocked_at = $1, notes = 'auto-unblocked on expiry'
		WHERE blocked_until < $1 AND unblocked_at IS NULL
	`
	tag, err := r.db.pool.Exec(ctx, query, now)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to close expired blocks")
		return 0, err
	}
	return tag.RowsAffected(), nil
}
