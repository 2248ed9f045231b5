// Package policy holds the pure time-sensitive decisions of the training
// core: cancellation deadline classification and absence alerting. Both are
// free of I/O so the threshold, window and cooldown logic has exactly one
// implementation and one test surface.
package policy

import (
	"errors"
	"time"
)

// ErrInvalidSettings indicates a non-positive policy configuration value.
var ErrInvalidSettings = errors.New("policy: invalid settings")

// ErrSessionStarted indicates the session start has already passed, which
// makes the session not cancellable at all. This is deliberately distinct
// from a late cancellation, which is accepted and flagged.
var ErrSessionStarted = errors.New("policy: session already started")

// Settings is the club-wide policy configuration snapshot, read once per
// operation and passed explicitly.
type Settings struct {
	CancelDeadlineHours int
	Absence             AbsenceSettings
}

// ClassifyCancellation decides whether a cancellation submitted at now is
// late with respect to the session's frozen start instant. A cancellation
// is never blocked by the deadline; lateness only changes how downstream
// attendance logic classifies the absence.
func ClassifyCancellation(sessionStart time.Time, deadlineHours int, now time.Time) (late bool, err error) {
	if deadlineHours <= 0 {
		return false, ErrInvalidSettings
	}
	if !now.Before(sessionStart) {
		return false, ErrSessionStarted
	}

	deadline := sessionStart.Add(-time.Duration(deadlineHours) * time.Hour)
	return now.After(deadline), nil
}
