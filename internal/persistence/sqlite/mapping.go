package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/club-scheduler/internal/occurrence"
	"github.com/example/club-scheduler/internal/recurrence"
)

// Column encodings shared by all repositories: timestamps as fixed-width
// UTC strings, calendar dates as YYYY-MM-DD on the UTC occurrence calendar,
// wall-clock times as HH:MM.

// timestampLayout pads the fraction to nine digits so the stored strings
// sort in time order. RFC3339Nano strips trailing zeros, which breaks the
// range and ORDER BY comparisons the repositories run in SQL.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	return recurrence.Date(t).Format(time.DateOnly)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

func parseTimeOfDay(value string) (occurrence.TimeOfDay, error) {
	tod, err := occurrence.ParseTimeOfDay(value)
	if err != nil {
		return occurrence.TimeOfDay{}, fmt.Errorf("invalid time column %q: %w", value, err)
	}
	return tod, nil
}

func nullableTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func scanNullableTimestamp(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTimestamp(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func scanNullableDate(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseDate(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
