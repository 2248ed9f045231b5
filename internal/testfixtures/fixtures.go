// Package testfixtures provides deterministic builders, clocks and fake
// repositories shared by tests across the module.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/club-scheduler/internal/occurrence"
	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/recurrence"
)

var (
	ruleCounter    uint64
	sessionCounter uint64
	memberCounter  uint64
)

// referenceTime is a Tuesday. Fixture rules default to the following Monday.
var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Rule fixtures -----------------------------

// RuleOption configures a generated training rule.
type RuleOption func(*persistence.TrainingRule)

// NewRule returns a deterministic weekly Monday rule with optional overrides.
func NewRule(opts ...RuleOption) persistence.TrainingRule {
	idx := atomic.AddUint64(&ruleCounter, 1)
	rule := persistence.TrainingRule{
		ID:        fmt.Sprintf("rule-%03d", idx),
		Name:      fmt.Sprintf("Training %03d", idx),
		DayOfWeek: time.Monday,
		StartTime: occurrence.TimeOfDay{Hour: 18, Minute: 0},
		EndTime:   occurrence.TimeOfDay{Hour: 19, Minute: 30},
		Interval:  recurrence.IntervalWeekly,
		Active:    true,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&rule)
	}
	return rule
}

// WithRuleID overrides the generated rule ID.
func WithRuleID(id string) RuleOption {
	return func(r *persistence.TrainingRule) { r.ID = id }
}

// WithRuleName overrides the generated rule name.
func WithRuleName(name string) RuleOption {
	return func(r *persistence.TrainingRule) { r.Name = name }
}

// WithRuleDay sets the weekday.
func WithRuleDay(day time.Weekday) RuleOption {
	return func(r *persistence.TrainingRule) { r.DayOfWeek = day }
}

// WithRuleTimes sets start and end wall-clock times.
func WithRuleTimes(start, end occurrence.TimeOfDay) RuleOption {
	return func(r *persistence.TrainingRule) {
		r.StartTime = start
		r.EndTime = end
	}
}

// WithRuleInterval sets the recurrence interval.
func WithRuleInterval(interval recurrence.Interval) RuleOption {
	return func(r *persistence.TrainingRule) { r.Interval = interval }
}

// WithRuleValidity bounds the rule's validity window. Zero values leave the
// corresponding edge unbounded.
func WithRuleValidity(from, until time.Time) RuleOption {
	return func(r *persistence.TrainingRule) {
		if !from.IsZero() {
			f := from
			r.ValidFrom = &f
		}
		if !until.IsZero() {
			u := until
			r.ValidUntil = &u
		}
	}
}

// WithRuleActive sets the active flag.
func WithRuleActive(active bool) RuleOption {
	return func(r *persistence.TrainingRule) { r.Active = active }
}

// WithRuleGroups sets the rule's sub-groups.
func WithRuleGroups(groups ...persistence.RuleGroup) RuleOption {
	return func(r *persistence.TrainingRule) {
		r.Groups = append([]persistence.RuleGroup(nil), groups...)
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionOption configures a generated training session.
type SessionOption func(*persistence.TrainingSession)

// NewSession returns a deterministic materialized session with optional
// overrides. The default date is the first Monday after the reference time.
func NewSession(opts ...SessionOption) persistence.TrainingSession {
	idx := atomic.AddUint64(&sessionCounter, 1)
	session := persistence.TrainingSession{
		ID:        fmt.Sprintf("session-%03d", idx),
		RuleID:    fmt.Sprintf("rule-%03d", idx),
		RuleName:  fmt.Sprintf("Training %03d", idx),
		Date:      time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
		DayOfWeek: time.Monday,
		StartTime: occurrence.TimeOfDay{Hour: 18, Minute: 0},
		EndTime:   occurrence.TimeOfDay{Hour: 19, Minute: 30},
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *persistence.TrainingSession) { s.ID = id }
}

// WithSessionRule ties the session to a rule.
func WithSessionRule(ruleID, ruleName string) SessionOption {
	return func(s *persistence.TrainingSession) {
		s.RuleID = ruleID
		s.RuleName = ruleName
	}
}

// WithSessionDate sets the occurrence date and matching weekday.
func WithSessionDate(date time.Time) SessionOption {
	return func(s *persistence.TrainingSession) {
		s.Date = recurrence.Date(date)
		s.DayOfWeek = s.Date.Weekday()
	}
}

// WithSessionTimes sets the frozen start and end times.
func WithSessionTimes(start, end occurrence.TimeOfDay) SessionOption {
	return func(s *persistence.TrainingSession) {
		s.StartTime = start
		s.EndTime = end
	}
}

// WithSessionCancelled marks the session cancelled.
func WithSessionCancelled(reason, by string, at time.Time) SessionOption {
	return func(s *persistence.TrainingSession) {
		s.Cancelled = true
		s.CancelReason = reason
		s.CancelledBy = by
		t := at
		s.CancelledAt = &t
	}
}

// ---------------------------- Member fixtures ----------------------------

// MemberOption configures a generated member.
type MemberOption func(*persistence.Member)

// NewMember returns a deterministic athlete member with optional overrides.
func NewMember(opts ...MemberOption) persistence.Member {
	idx := atomic.AddUint64(&memberCounter, 1)
	member := persistence.Member{
		ID:          fmt.Sprintf("member-%03d", idx),
		DisplayName: fmt.Sprintf("Member %03d", idx),
		Email:       fmt.Sprintf("member-%03d@example.com", idx),
		Role:        persistence.RoleAthlete,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&member)
	}
	return member
}

// WithMemberID overrides the generated member ID.
func WithMemberID(id string) MemberOption {
	return func(m *persistence.Member) { m.ID = id }
}

// WithMemberRole sets the role.
func WithMemberRole(role persistence.MemberRole) MemberOption {
	return func(m *persistence.Member) { m.Role = role }
}

// WithMemberName sets the display name.
func WithMemberName(name string) MemberOption {
	return func(m *persistence.Member) { m.DisplayName = name }
}
