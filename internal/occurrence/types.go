package occurrence

import (
	"errors"
	"fmt"
	"time"
)

// State tells callers whether a session view is backed by storage.
type State string

const (
	// StateVirtual marks a view computed from the rule template only.
	StateVirtual State = "virtual"
	// StateMaterialized marks a view backed by a persisted session record.
	StateMaterialized State = "materialized"
)

// ErrInvalidTimeOfDay indicates a wall-clock value outside HH:MM bounds.
var ErrInvalidTimeOfDay = errors.New("occurrence: invalid time of day")

// TimeOfDay is a club-local wall-clock time without a timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses the canonical "HH:MM" representation.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// Valid reports whether the value is a real wall-clock time.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// String renders the canonical "HH:MM" representation.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

// On combines the wall-clock value with a calendar date into an instant on
// the engine's fixed UTC calendar.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, time.UTC)
}

// SessionView is the canonical per-occurrence record returned to callers.
// Exactly one view exists per (rule, date) pair; virtual views are
// read-only projections of the rule template.
type SessionView struct {
	Ref       Ref
	RuleID    string
	RuleName  string
	Date      time.Time
	DayOfWeek time.Weekday
	StartTime TimeOfDay
	EndTime   TimeOfDay
	State     State

	// Fields below are populated for materialized views only.
	SessionID       string
	Cancelled       bool
	CancelReason    string
	CancelledBy     string
	CancelledAt     *time.Time
	Note            string
	AttendanceCount int
}
