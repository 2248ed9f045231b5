package application

import (
	"time"

	"github.com/example/club-scheduler/internal/persistence"
)

// maxQueryWindowDays bounds occurrence listing so a single request cannot
// expand years of virtual sessions.
const maxQueryWindowDays = 370

// OccurrenceQuery selects the calendar window to project.
type OccurrenceQuery struct {
	From time.Time
	To   time.Time
}

// MaterializeParams identifies the virtual occurrence to persist.
type MaterializeParams struct {
	Ref     string
	ActorID string
}

// CancelParams carries one cancellation request. Ref addresses the
// occurrence; virtual occurrences are materialized on the way.
type CancelParams struct {
	Ref     string
	ActorID string
	Reason  string
}

// UndoCancelParams identifies the cancellation record to deactivate.
type UndoCancelParams struct {
	CancellationID string
	ActorID        string
}

// EditReasonParams replaces the free-text reason of an active cancellation.
type EditReasonParams struct {
	CancellationID string
	ActorID        string
	Reason         string
}

// CancelResult reports the stored record together with the session it
// belongs to.
type CancelResult struct {
	Record  persistence.CancellationRecord
	Session persistence.TrainingSession
}

// AttendanceParams records one athlete's status for a session.
type AttendanceParams struct {
	SessionID string
	AthleteID string
	Status    persistence.AttendanceStatus
	MarkedBy  string
}

// AttendanceResult reports the stored record and, when the status was an
// unexcused absence, the outcome of the alert evaluation.
type AttendanceResult struct {
	Record persistence.AttendanceRecord
	Alert  *persistence.AbsenceAlert
}
