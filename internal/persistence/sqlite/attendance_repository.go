package sqlite

import (
	"context"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
)

// AttendanceRepository implements persistence.AttendanceRepository using
// SQLite. The UNIQUE (session_id, athlete_id) constraint keeps one record
// per athlete per session; UpsertAttendance overwrites on conflict.
type AttendanceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAttendanceRepository creates a new SQLite attendance repository.
func NewAttendanceRepository(pool *ConnectionPool) *AttendanceRepository {
	return &AttendanceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertAttendance inserts the record, or replaces the status of an existing
// record for the same (session, athlete) pair.
func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, record persistence.AttendanceRecord) (persistence.AttendanceRecord, error) {
	if record.ID == "" || record.SessionID == "" || record.AthleteID == "" {
		return persistence.AttendanceRecord{}, persistence.ErrConstraintViolation
	}
	if !persistence.ValidAttendanceStatus(record.Status) {
		return persistence.AttendanceRecord{}, persistence.ErrConstraintViolation
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = time.Now().UTC()
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO attendance_records (id, session_id, athlete_id, status, marked_at, marked_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, athlete_id) DO UPDATE SET
			status = excluded.status,
			marked_at = excluded.marked_at,
			marked_by = excluded.marked_by
	`,
		record.ID,
		record.SessionID,
		record.AthleteID,
		string(record.Status),
		formatTimestamp(record.MarkedAt),
		record.MarkedBy,
	)
	if err != nil {
		return persistence.AttendanceRecord{}, r.mapper.MapError(err)
	}

	// The upsert keeps the original row ID on conflict; re-read so the
	// caller sees the stored record.
	row := r.helper.QueryRow(ctx, `
		SELECT id, session_id, athlete_id, status, marked_at, marked_by
		FROM attendance_records
		WHERE session_id = ? AND athlete_id = ?
	`, record.SessionID, record.AthleteID)
	stored, err := scanAttendance(row)
	if err != nil {
		return persistence.AttendanceRecord{}, r.mapper.MapError(err)
	}
	return stored, nil
}

// CountAttendance counts an athlete's records with the given status whose
// marked_at falls in [from, to].
func (r *AttendanceRepository) CountAttendance(ctx context.Context, athleteID string, status persistence.AttendanceStatus, from, to time.Time) (int, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM attendance_records
		WHERE athlete_id = ? AND status = ? AND marked_at >= ? AND marked_at <= ?
	`, athleteID, string(status), formatTimestamp(from), formatTimestamp(to))

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// ListAttendanceForSession returns all attendance records of a session,
// ordered by athlete.
func (r *AttendanceRepository) ListAttendanceForSession(ctx context.Context, sessionID string) ([]persistence.AttendanceRecord, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, session_id, athlete_id, status, marked_at, marked_by
		FROM attendance_records
		WHERE session_id = ?
		ORDER BY athlete_id
	`, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	records := make([]persistence.AttendanceRecord, 0)
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanAttendance(row rowScanner) (persistence.AttendanceRecord, error) {
	var (
		record    persistence.AttendanceRecord
		status    string
		markedStr string
	)

	if err := row.Scan(&record.ID, &record.SessionID, &record.AthleteID, &status, &markedStr, &record.MarkedBy); err != nil {
		return persistence.AttendanceRecord{}, err
	}

	record.Status = persistence.AttendanceStatus(status)

	var err error
	if record.MarkedAt, err = parseTimestamp(markedStr); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	return record, nil
}
