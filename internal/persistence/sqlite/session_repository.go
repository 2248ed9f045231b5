package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/recurrence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
// The UNIQUE (rule_id, session_date) constraint carried by the table is the
// synchronization primitive for concurrent materialization.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = `
	s.id, s.rule_id, s.rule_name, s.session_date, s.day_of_week, s.start_time, s.end_time,
	s.note, s.cancelled, s.cancel_reason, s.cancelled_by, s.cancelled_at, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM attendance_records a WHERE a.session_id = s.id)
`

// CreateSession inserts the session and its group snapshot rows in a single
// transaction. A concurrent insert for the same (rule, date) surfaces as
// persistence.ErrDuplicate and the whole transaction is rolled back.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.TrainingSession, groups []persistence.SessionGroup) (persistence.TrainingSession, error) {
	if session.ID == "" {
		return persistence.TrainingSession{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.Date = recurrence.Date(session.Date)

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, `
			INSERT INTO training_sessions (id, rule_id, rule_name, session_date, day_of_week, start_time, end_time, note, cancelled, cancel_reason, cancelled_by, cancelled_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			session.ID,
			session.RuleID,
			session.RuleName,
			formatDate(session.Date),
			int(session.DayOfWeek),
			session.StartTime.String(),
			session.EndTime.String(),
			session.Note,
			boolToInt(session.Cancelled),
			session.CancelReason,
			session.CancelledBy,
			nullableTimestamp(session.CancelledAt),
			formatTimestamp(session.CreatedAt),
			formatTimestamp(session.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for _, group := range groups {
			_, err := r.helper.ExecTx(tx, `
				INSERT INTO session_groups (id, session_id, group_id, name, position, trainer_id)
				VALUES (?, ?, ?, ?, ?, ?)
			`, group.ID, session.ID, group.GroupID, group.Name, group.Position, group.TrainerID)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
	if err != nil {
		return persistence.TrainingSession{}, err
	}

	return session, nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.TrainingSession, error) {
	if id == "" {
		return persistence.TrainingSession{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+sessionColumns+` FROM training_sessions s WHERE s.id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.TrainingSession{}, persistence.ErrNotFound
		}
		return persistence.TrainingSession{}, r.mapper.MapError(err)
	}
	return session, nil
}

// GetSessionByRuleAndDate retrieves the unique session for a (rule, date)
// pair.
func (r *SessionRepository) GetSessionByRuleAndDate(ctx context.Context, ruleID string, date time.Time) (persistence.TrainingSession, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM training_sessions s WHERE s.rule_id = ? AND s.session_date = ?
	`, ruleID, formatDate(date))
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.TrainingSession{}, persistence.ErrNotFound
		}
		return persistence.TrainingSession{}, r.mapper.MapError(err)
	}
	return session, nil
}

// ListSessions returns sessions with dates in [from, to] ordered by date.
func (r *SessionRepository) ListSessions(ctx context.Context, from, to time.Time) ([]persistence.TrainingSession, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+sessionColumns+` FROM training_sessions s
		WHERE s.session_date >= ? AND s.session_date <= ?
		ORDER BY s.session_date, s.start_time, s.rule_name
	`, formatDate(from), formatDate(to))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	sessions := make([]persistence.TrainingSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// ListSessionGroups returns the group snapshot rows of a session.
func (r *SessionRepository) ListSessionGroups(ctx context.Context, sessionID string) ([]persistence.SessionGroup, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, session_id, group_id, name, position, trainer_id
		FROM session_groups
		WHERE session_id = ?
		ORDER BY position, id
	`, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	groups := make([]persistence.SessionGroup, 0)
	for rows.Next() {
		var group persistence.SessionGroup
		if err := rows.Scan(&group.ID, &group.SessionID, &group.GroupID, &group.Name, &group.Position, &group.TrainerID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// UpdateSessionNote replaces the free-text note of a session.
func (r *SessionRepository) UpdateSessionNote(ctx context.Context, id, note string) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE training_sessions SET note = ?, updated_at = ? WHERE id = ?
	`, note, formatTimestamp(time.Now().UTC()), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanSession(row rowScanner) (persistence.TrainingSession, error) {
	var (
		session            persistence.TrainingSession
		dateStr            string
		dayOfWeek, cancel  int
		startStr, endStr   string
		cancelledAt        sql.NullString
		createdStr, updStr string
	)

	if err := row.Scan(
		&session.ID,
		&session.RuleID,
		&session.RuleName,
		&dateStr,
		&dayOfWeek,
		&startStr,
		&endStr,
		&session.Note,
		&cancel,
		&session.CancelReason,
		&session.CancelledBy,
		&cancelledAt,
		&createdStr,
		&updStr,
		&session.AttendanceCount,
	); err != nil {
		return persistence.TrainingSession{}, err
	}

	session.DayOfWeek = time.Weekday(dayOfWeek)
	session.Cancelled = cancel != 0

	var err error
	if session.Date, err = parseDate(dateStr); err != nil {
		return persistence.TrainingSession{}, err
	}
	if session.StartTime, err = parseTimeOfDay(startStr); err != nil {
		return persistence.TrainingSession{}, err
	}
	if session.EndTime, err = parseTimeOfDay(endStr); err != nil {
		return persistence.TrainingSession{}, err
	}
	if session.CancelledAt, err = scanNullableTimestamp(cancelledAt); err != nil {
		return persistence.TrainingSession{}, err
	}
	if session.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.TrainingSession{}, err
	}
	if session.UpdatedAt, err = parseTimestamp(updStr); err != nil {
		return persistence.TrainingSession{}, err
	}

	return session, nil
}
