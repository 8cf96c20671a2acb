package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/ports"
)

type eventLog struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.EventLog = (*eventLog)(nil) // Ensure compliance

// NewEventLog creates the perimeter event repository.
func NewEventLog(db *DB, baseLogger *zerolog.Logger) ports.EventLog {
	return &eventLog{
		db:  db,
		log: baseLogger.With().Str("component", "event_log").Logger(),
	}
}

// Append inserts one event row.
func (r *eventLog) Append(ctx context.Context, rec *domain.SecurityEventRecord) error {
	query := `
		INSERT INTO security_logs (
			id, user_id, log_type, log_level, message, details, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.EventType,
		rec.Level,
		rec.Message,
		rec.Details,
		rec.SourceIP,
		rec.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("log_type", rec.EventType).Msg("Failed to insert security event")
	}
	return err
}

// StatsByUser aggregates event counts per type for one user.
func (r *eventLog) StatsByUser(ctx context.Context, userID uuid.UUID) ([]domain.EventTypeStat, error) {
	query := `
		SELECT log_type, COUNT(*) AS count
		FROM security_logs
		WHERE user_id = $1
		GROUP BY log_type
		ORDER BY log_type
	`
	rows, err := r.db.pool.Query(ctx, query, userID)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to query event stats")
		return nil, err
	}
	defer rows.Close()

	var out []domain.EventTypeStat
	for rows.Next() {
		var stat domain.EventTypeStat
		if err := rows.Scan(&stat.EventType, &stat.Count); err != nil {
			r.log.Error().Err(err).Msg("Failed to scan event stat row")
			return nil, err
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes rows created before the horizon.
func (r *eventLog) DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM security_logs WHERE created_at < $1`, horizon)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to sweep security logs")
		return 0, err
	}
	return tag.RowsAffected(), nil
}
