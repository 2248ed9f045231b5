package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
)

// CancellationRepository implements persistence.CancellationRepository using
// SQLite. The partial unique index on active (session_id, actor_id) pairs
// serializes concurrent cancel requests for the same session.
type CancellationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCancellationRepository creates a new SQLite cancellation repository.
func NewCancellationRepository(pool *ConnectionPool) *CancellationRepository {
	return &CancellationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateCancellation inserts a new active cancellation and refreshes the
// session's denormalized cancellation state in the same transaction.
func (r *CancellationRepository) CreateCancellation(ctx context.Context, record persistence.CancellationRecord) (persistence.CancellationRecord, error) {
	if record.ID == "" || record.SessionID == "" || record.ActorID == "" {
		return persistence.CancellationRecord{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Active = true
	record.UndoneAt = nil

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, `
			INSERT INTO cancellations (id, session_id, actor_id, reason, late, active, created_at, updated_at, undone_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?, NULL)
		`,
			record.ID,
			record.SessionID,
			record.ActorID,
			record.Reason,
			boolToInt(record.Late),
			formatTimestamp(record.CreatedAt),
			formatTimestamp(record.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.refreshSessionStateTx(tx, record.SessionID)
	})
	if err != nil {
		return persistence.CancellationRecord{}, err
	}

	return record, nil
}

// GetCancellation retrieves a cancellation record by ID.
func (r *CancellationRepository) GetCancellation(ctx context.Context, id string) (persistence.CancellationRecord, error) {
	if id == "" {
		return persistence.CancellationRecord{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT id, session_id, actor_id, reason, late, active, created_at, updated_at, undone_at
		FROM cancellations
		WHERE id = ?
	`, id)
	record, err := scanCancellation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.CancellationRecord{}, persistence.ErrNotFound
		}
		return persistence.CancellationRecord{}, r.mapper.MapError(err)
	}
	return record, nil
}

// UpdateCancellation persists a lifecycle transition (reason edit, undo or
// re-activation) and refreshes the session's denormalized state.
func (r *CancellationRepository) UpdateCancellation(ctx context.Context, record persistence.CancellationRecord) (persistence.CancellationRecord, error) {
	if record.ID == "" {
		return persistence.CancellationRecord{}, persistence.ErrNotFound
	}

	record.UpdatedAt = time.Now().UTC()

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, `
			UPDATE cancellations
			SET reason = ?, late = ?, active = ?, updated_at = ?, undone_at = ?
			WHERE id = ?
		`,
			record.Reason,
			boolToInt(record.Late),
			boolToInt(record.Active),
			formatTimestamp(record.UpdatedAt),
			nullableTimestamp(record.UndoneAt),
			record.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		return r.refreshSessionStateTx(tx, record.SessionID)
	})
	if err != nil {
		return persistence.CancellationRecord{}, err
	}

	return record, nil
}

// ListCancellationsForSession returns a session's cancellation history,
// oldest first.
func (r *CancellationRepository) ListCancellationsForSession(ctx context.Context, sessionID string) ([]persistence.CancellationRecord, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, session_id, actor_id, reason, late, active, created_at, updated_at, undone_at
		FROM cancellations
		WHERE session_id = ?
		ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	records := make([]persistence.CancellationRecord, 0)
	for rows.Next() {
		record, err := scanCancellation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// refreshSessionStateTx re-derives the session's denormalized cancellation
// columns from its earliest still-active cancellation record.
func (r *CancellationRepository) refreshSessionStateTx(tx *sql.Tx, sessionID string) error {
	row := r.helper.QueryRowTx(tx, `
		SELECT actor_id, reason, created_at
		FROM cancellations
		WHERE session_id = ? AND active = 1
		ORDER BY created_at, id
		LIMIT 1
	`, sessionID)

	var actorID, reason, createdAt string
	err := row.Scan(&actorID, &reason, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = r.helper.ExecTx(tx, `
			UPDATE training_sessions
			SET cancelled = 0, cancel_reason = '', cancelled_by = '', cancelled_at = NULL, updated_at = ?
			WHERE id = ?
		`, formatTimestamp(time.Now().UTC()), sessionID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	case err != nil:
		return r.mapper.MapError(err)
	}

	_, err = r.helper.ExecTx(tx, `
		UPDATE training_sessions
		SET cancelled = 1, cancel_reason = ?, cancelled_by = ?, cancelled_at = ?, updated_at = ?
		WHERE id = ?
	`, reason, actorID, createdAt, formatTimestamp(time.Now().UTC()), sessionID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func scanCancellation(row rowScanner) (persistence.CancellationRecord, error) {
	var (
		record             persistence.CancellationRecord
		late, active       int
		createdStr, updStr string
		undoneAt           sql.NullString
	)

	if err := row.Scan(&record.ID, &record.SessionID, &record.ActorID, &record.Reason, &late, &active, &createdStr, &updStr, &undoneAt); err != nil {
		return persistence.CancellationRecord{}, err
	}

	record.Late = late != 0
	record.Active = active != 0

	var err error
	if record.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.CancellationRecord{}, err
	}
	if record.UpdatedAt, err = parseTimestamp(updStr); err != nil {
		return persistence.CancellationRecord{}, err
	}
	if record.UndoneAt, err = scanNullableTimestamp(undoneAt); err != nil {
		return persistence.CancellationRecord{}, err
	}

	return record, nil
}
