package persistence

import (
	"context"
	"time"
)

// RuleRepository reads recurring training templates. Rule administration is
// owned by an external authority; this core only queries.
type RuleRepository interface {
	GetRule(ctx context.Context, id string) (TrainingRule, error)
	// ListRules returns rules whose validity window overlaps [from, to].
	// When activeOnly is set, deactivated rules are omitted.
	ListRules(ctx context.Context, from, to time.Time, activeOnly bool) ([]TrainingRule, error)
	CreateRule(ctx context.Context, rule TrainingRule) (TrainingRule, error)
	SetRuleActive(ctx context.Context, id string, active bool) error
}

// SessionRepository stores materialized training sessions. CreateSession
// writes the session and its group snapshot rows in one transaction and
// returns ErrDuplicate when a session for the same (rule, date) already
// exists; that uniqueness constraint is the materialization race guard.
type SessionRepository interface {
	CreateSession(ctx context.Context, session TrainingSession, groups []SessionGroup) (TrainingSession, error)
	GetSession(ctx context.Context, id string) (TrainingSession, error)
	GetSessionByRuleAndDate(ctx context.Context, ruleID string, date time.Time) (TrainingSession, error)
	ListSessions(ctx context.Context, from, to time.Time) ([]TrainingSession, error)
	ListSessionGroups(ctx context.Context, sessionID string) ([]SessionGroup, error)
	UpdateSessionNote(ctx context.Context, id, note string) error
}

// CancellationRepository stores cancellation audit records. CreateCancellation
// returns ErrDuplicate when the (session, actor) pair already has an active
// record, which serializes concurrent cancel requests.
type CancellationRepository interface {
	CreateCancellation(ctx context.Context, record CancellationRecord) (CancellationRecord, error)
	GetCancellation(ctx context.Context, id string) (CancellationRecord, error)
	UpdateCancellation(ctx context.Context, record CancellationRecord) (CancellationRecord, error)
	ListCancellationsForSession(ctx context.Context, sessionID string) ([]CancellationRecord, error)
}

// AttendanceRepository stores per-athlete attendance and answers the
// rolling-window counting query the absence policy needs.
type AttendanceRepository interface {
	UpsertAttendance(ctx context.Context, record AttendanceRecord) (AttendanceRecord, error)
	CountAttendance(ctx context.Context, athleteID string, status AttendanceStatus, from, to time.Time) (int, error)
	ListAttendanceForSession(ctx context.Context, sessionID string) ([]AttendanceRecord, error)
}

// AlertRepository stores absence alerts. CreateAlert derives a cooldown
// bucket from the creation timestamp and returns ErrDuplicate when another
// alert already occupies the athlete's bucket, so concurrent evaluations
// cannot raise two alerts in one cooldown window.
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert AbsenceAlert, cooldownDays int) (AbsenceAlert, error)
	GetAlert(ctx context.Context, id string) (AbsenceAlert, error)
	LatestAlertForAthlete(ctx context.Context, athleteID string) (AbsenceAlert, error)
	AcknowledgeAlert(ctx context.Context, id, actorID string, at time.Time) (AbsenceAlert, error)
	ListOpenAlerts(ctx context.Context) ([]AbsenceAlert, error)
}

// MemberRepository stores the club member directory.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) (Member, error)
	GetMember(ctx context.Context, id string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}
