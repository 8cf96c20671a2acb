package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/ports"
)

type activityLog struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.ActivityLog = (*activityLog)(nil) // Ensure compliance

// NewActivityLog creates the suspicious-activity repository.
func NewActivityLog(db *DB, baseLogger *zerolog.Logger) ports.ActivityLog {
	return &activityLog{
		db:  db,
		log: baseLogger.With().Str("component", "activity_log").Logger(),
	}
}

// Append inserts one immutable audit row.
func (r *activityLog) Append(ctx context.Context, rec *domain.SuspiciousActivityRecord) error {
	query := `
		INSERT INTO suspicious_activity (
			id, user_id, activity_type, severity, details, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Kind,
		rec.Severity,
		rec.Details,
		rec.SourceIP,
		rec.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("kind", string(rec.Kind)).Msg("Failed to insert activity record")
	}
	return err
}

// RecentByUser returns the newest records first, at most limit.
func (r *activityLog) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.SuspiciousActivityRecord, error) {
	query := `
		SELECT id, user_id, activity_type, severity, details, ip_address, created_at
		FROM suspicious_activity
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.pool.Query(ctx, query, userID, limit)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to query recent activity")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SuspiciousActivityRecord
	for rows.Next() {
		var rec domain.SuspiciousActivityRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Kind,
			&rec.Severity,
			&rec.Details,
			&rec.SourceIP,
			&rec.CreatedAt,
		); err != nil {
			r.log.Error().Err(err).Msg("Failed to scan activity row")
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes rows created before the horizon.
func (r *activityLog) DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM suspicious_activity WHERE created_at < $1`, horizon)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to sweep suspicious activity")
		return 0, err
	}
	return tag.RowsAffected(), nil
}
