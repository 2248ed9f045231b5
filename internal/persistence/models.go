package persistence

import (
	"time"

	"github.com/example/club-scheduler/internal/occurrence"
	"github.com/example/club-scheduler/internal/recurrence"
)

// TrainingRule is the persisted weekly-pattern template a club administers.
// Editing a rule only affects future virtual projections; materialized
// sessions freeze their own day and times at creation.
type TrainingRule struct {
	ID         string
	Name       string
	DayOfWeek  time.Weekday
	StartTime  occurrence.TimeOfDay
	EndTime    occurrence.TimeOfDay
	Interval   recurrence.Interval
	ValidFrom  *time.Time
	ValidUntil *time.Time
	Active     bool
	Groups     []RuleGroup
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CalendarRule extracts the calendrical fields consumed by the occurrence
// engine.
func (r TrainingRule) CalendarRule() recurrence.Rule {
	return recurrence.Rule{
		ID:         r.ID,
		DayOfWeek:  r.DayOfWeek,
		Interval:   r.Interval,
		ValidFrom:  r.ValidFrom,
		ValidUntil: r.ValidUntil,
		Active:     r.Active,
	}
}

// RuleGroup is an ordered sub-group of a training rule.
type RuleGroup struct {
	ID        string
	RuleID    string
	Name      string
	Position  int
	TrainerID string
}

// TrainingSession is a materialized occurrence. Day and times are frozen
// copies of the rule defaults at materialization time. The cancellation
// columns denormalize the earliest still-active cancellation record.
type TrainingSession struct {
	ID              string
	RuleID          string
	RuleName        string
	Date            time.Time
	DayOfWeek       time.Weekday
	StartTime       occurrence.TimeOfDay
	EndTime         occurrence.TimeOfDay
	Note            string
	Cancelled       bool
	CancelReason    string
	CancelledBy     string
	CancelledAt     *time.Time
	AttendanceCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionGroup snapshots one rule sub-group for a materialized session.
type SessionGroup struct {
	ID        string
	SessionID string
	GroupID   string
	Name      string
	Position  int
	TrainerID string
}

// CancellationRecord is the audit entity behind a session cancellation.
// Records are deactivated, never deleted, and the late flag is set at
// creation and at re-activation only.
type CancellationRecord struct {
	ID        string
	SessionID string
	ActorID   string
	Reason    string
	Late      bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	UndoneAt  *time.Time
}

// AttendanceStatus classifies an athlete's presence at a session.
type AttendanceStatus string

const (
	// AttendancePresent marks the athlete as present.
	AttendancePresent AttendanceStatus = "present"
	// AttendanceExcused marks a timely excused absence.
	AttendanceExcused AttendanceStatus = "excused"
	// AttendanceAbsentUnexcused marks an unexcused absence. Late
	// cancellations are recorded with this status.
	AttendanceAbsentUnexcused AttendanceStatus = "absent_unexcused"
)

// ValidAttendanceStatus reports whether the value is a known status.
func ValidAttendanceStatus(status AttendanceStatus) bool {
	switch status {
	case AttendancePresent, AttendanceExcused, AttendanceAbsentUnexcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord stores one athlete's status for one session.
type AttendanceRecord struct {
	ID        string
	SessionID string
	AthleteID string
	Status    AttendanceStatus
	MarkedAt  time.Time
	MarkedBy  string
}

// AbsenceAlert records that an athlete crossed the unexcused-absence
// threshold. At most one alert exists per athlete per cooldown window.
type AbsenceAlert struct {
	ID             string
	AthleteID      string
	AbsenceCount   int
	WindowDays     int
	CreatedAt      time.Time
	Acknowledged   bool
	AcknowledgedBy string
	AcknowledgedAt *time.Time
}

// MemberRole distinguishes the people referenced by sessions and alerts.
type MemberRole string

const (
	// RoleAthlete marks a training participant.
	RoleAthlete MemberRole = "athlete"
	// RoleTrainer marks a group trainer.
	RoleTrainer MemberRole = "trainer"
	// RoleAdmin marks a club administrator.
	RoleAdmin MemberRole = "admin"
)

// Member is a club member referenced as actor, athlete or trainer.
type Member struct {
	ID          string
	DisplayName string
	Email       string
	Role        MemberRole
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
