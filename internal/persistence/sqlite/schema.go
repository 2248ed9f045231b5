package sqlite

import (
	"context"
	"fmt"
)

// schemaStatements holds the embedded DDL applied at startup. Statements
// are idempotent so repeated startups are safe.
//
// training_sessions.rule_id deliberately carries no foreign key: sessions
// of deleted or deactivated rules must survive as orphaned history.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK (role IN ('athlete', 'trainer', 'admin')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS training_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		recur_interval TEXT NOT NULL CHECK (recur_interval IN ('once', 'weekly', 'biweekly', 'monthly')),
		valid_from TEXT,
		valid_until TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rule_groups (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL REFERENCES training_rules(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		trainer_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS training_sessions (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		session_date TEXT NOT NULL,
		day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		cancelled INTEGER NOT NULL DEFAULT 0,
		cancel_reason TEXT NOT NULL DEFAULT '',
		cancelled_by TEXT NOT NULL DEFAULT '',
		cancelled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (rule_id, session_date)
	)`,
	`CREATE TABLE IF NOT EXISTS session_groups (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES training_sessions(id) ON DELETE CASCADE,
		group_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		trainer_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS cancellations (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES training_sessions(id),
		actor_id TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		late INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		undone_at TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cancellations_active
		ON cancellations(session_id, actor_id) WHERE active = 1`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES training_sessions(id),
		athlete_id TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('present', 'excused', 'absent_unexcused')),
		marked_at TEXT NOT NULL,
		marked_by TEXT NOT NULL DEFAULT '',
		UNIQUE (session_id, athlete_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_attendance_athlete_status
		ON attendance_records(athlete_id, status, marked_at)`,
	`CREATE TABLE IF NOT EXISTS absence_alerts (
		id TEXT PRIMARY KEY,
		athlete_id TEXT NOT NULL,
		absence_count INTEGER NOT NULL,
		window_days INTEGER NOT NULL,
		cooldown_bucket INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		acknowledged INTEGER NOT NULL DEFAULT 0,
		acknowledged_by TEXT NOT NULL DEFAULT '',
		acknowledged_at TEXT,
		UNIQUE (athlete_id, cooldown_bucket)
	)`,
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
