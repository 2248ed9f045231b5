package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
)

// AlertRepository implements persistence.AlertRepository using SQLite. The
// UNIQUE (athlete_id, cooldown_bucket) constraint makes alert creation
// race-safe: concurrent evaluations for the same athlete collapse into one
// stored alert per cooldown window.
type AlertRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAlertRepository creates a new SQLite alert repository.
func NewAlertRepository(pool *ConnectionPool) *AlertRepository {
	return &AlertRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const alertColumns = `id, athlete_id, absence_count, window_days, created_at, acknowledged, acknowledged_by, acknowledged_at`

// cooldownBucket partitions time into cooldownDays-sized slots. Two alerts
// for the same athlete can only coexist in different slots.
func cooldownBucket(at time.Time, cooldownDays int) int64 {
	if cooldownDays < 1 {
		cooldownDays = 1
	}
	return at.UTC().Unix() / (int64(cooldownDays) * 86400)
}

// CreateAlert inserts an alert into the athlete's current cooldown bucket.
// Returns persistence.ErrDuplicate when the bucket is already occupied.
func (r *AlertRepository) CreateAlert(ctx context.Context, alert persistence.AbsenceAlert, cooldownDays int) (persistence.AbsenceAlert, error) {
	if alert.ID == "" || alert.AthleteID == "" {
		return persistence.AbsenceAlert{}, persistence.ErrConstraintViolation
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	alert.Acknowledged = false
	alert.AcknowledgedBy = ""
	alert.AcknowledgedAt = nil

	_, err := r.helper.Exec(ctx, `
		INSERT INTO absence_alerts (id, athlete_id, absence_count, window_days, cooldown_bucket, created_at, acknowledged, acknowledged_by, acknowledged_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, '', NULL)
	`,
		alert.ID,
		alert.AthleteID,
		alert.AbsenceCount,
		alert.WindowDays,
		cooldownBucket(alert.CreatedAt, cooldownDays),
		formatTimestamp(alert.CreatedAt),
	)
	if err != nil {
		return persistence.AbsenceAlert{}, r.mapper.MapError(err)
	}

	return alert, nil
}

// GetAlert retrieves an alert by ID.
func (r *AlertRepository) GetAlert(ctx context.Context, id string) (persistence.AbsenceAlert, error) {
	if id == "" {
		return persistence.AbsenceAlert{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+alertColumns+` FROM absence_alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AbsenceAlert{}, persistence.ErrNotFound
		}
		return persistence.AbsenceAlert{}, r.mapper.MapError(err)
	}
	return alert, nil
}

// LatestAlertForAthlete returns the athlete's most recent alert, or
// persistence.ErrNotFound when none exists.
func (r *AlertRepository) LatestAlertForAthlete(ctx context.Context, athleteID string) (persistence.AbsenceAlert, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT `+alertColumns+` FROM absence_alerts
		WHERE athlete_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, athleteID)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AbsenceAlert{}, persistence.ErrNotFound
		}
		return persistence.AbsenceAlert{}, r.mapper.MapError(err)
	}
	return alert, nil
}

// AcknowledgeAlert marks an open alert as handled. Acknowledging twice
// returns persistence.ErrDuplicate; acknowledgement is not reversible.
func (r *AlertRepository) AcknowledgeAlert(ctx context.Context, id, actorID string, at time.Time) (persistence.AbsenceAlert, error) {
	result, err := r.helper.Exec(ctx, `
		UPDATE absence_alerts
		SET acknowledged = 1, acknowledged_by = ?, acknowledged_at = ?
		WHERE id = ? AND acknowledged = 0
	`, actorID, formatTimestamp(at), id)
	if err != nil {
		return persistence.AbsenceAlert{}, r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.AbsenceAlert{}, err
	}
	if affected == 0 {
		alert, err := r.GetAlert(ctx, id)
		if err != nil {
			return persistence.AbsenceAlert{}, err
		}
		if alert.Acknowledged {
			return persistence.AbsenceAlert{}, persistence.ErrDuplicate
		}
		return persistence.AbsenceAlert{}, persistence.ErrNotFound
	}

	return r.GetAlert(ctx, id)
}

// ListOpenAlerts returns unacknowledged alerts, oldest first.
func (r *AlertRepository) ListOpenAlerts(ctx context.Context) ([]persistence.AbsenceAlert, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+alertColumns+` FROM absence_alerts
		WHERE acknowledged = 0
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	alerts := make([]persistence.AbsenceAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanAlert(row rowScanner) (persistence.AbsenceAlert, error) {
	var (
		alert      persistence.AbsenceAlert
		createdStr string
		acked      int
		ackedAt    sql.NullString
	)

	if err := row.Scan(&alert.ID, &alert.AthleteID, &alert.AbsenceCount, &alert.WindowDays, &createdStr, &acked, &alert.AcknowledgedBy, &ackedAt); err != nil {
		return persistence.AbsenceAlert{}, err
	}

	alert.Acknowledged = acked != 0

	var err error
	if alert.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.AbsenceAlert{}, err
	}
	if alert.AcknowledgedAt, err = scanNullableTimestamp(ackedAt); err != nil {
		return persistence.AbsenceAlert{}, err
	}
	return alert, nil
}
