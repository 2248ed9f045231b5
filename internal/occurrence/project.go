package occurrence

import (
	"sort"
	"time"
)

// TemplateRule is the projector's view of a recurring training template.
type TemplateRule struct {
	ID        string
	Name      string
	DayOfWeek time.Weekday
	StartTime TimeOfDay
	EndTime   TimeOfDay
}

// PersistedSession is the projector's view of a materialized session row.
// Day and times are the values frozen at materialization, not the rule's
// current defaults.
type PersistedSession struct {
	ID              string
	RuleID          string
	RuleName        string
	Date            time.Time
	DayOfWeek       time.Weekday
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	Cancelled       bool
	CancelReason    string
	CancelledBy     string
	CancelledAt     *time.Time
	Note            string
	AttendanceCount int
}

// Project merges computed occurrence dates with persisted session rows into
// the canonical session views.
//
// Contract: at most one view per (rule, date) pair. A persisted row always
// wins over the synthesized view for the same pair, and persisted rows whose
// rule no longer projects any dates (deactivated or deleted rules) are still
// surfaced so cancellation history is never erased. Views are ordered by
// date, then effective start time, then rule name.
func Project(rules []TemplateRule, datesByRule map[string][]time.Time, persisted []PersistedSession) []SessionView {
	type pairKey struct {
		ruleID string
		date   string
	}

	views := make([]SessionView, 0, len(persisted))
	taken := make(map[pairKey]bool, len(persisted))

	for _, session := range persisted {
		key := pairKey{ruleID: session.RuleID, date: session.Date.Format(time.DateOnly)}
		if taken[key] {
			continue
		}
		taken[key] = true

		views = append(views, SessionView{
			Ref:             NewRef(session.RuleID, session.Date),
			RuleID:          session.RuleID,
			RuleName:        session.RuleName,
			Date:            session.Date,
			DayOfWeek:       session.DayOfWeek,
			StartTime:       session.StartTime,
			EndTime:         session.EndTime,
			State:           StateMaterialized,
			SessionID:       session.ID,
			Cancelled:       session.Cancelled,
			CancelReason:    session.CancelReason,
			CancelledBy:     session.CancelledBy,
			CancelledAt:     session.CancelledAt,
			Note:            session.Note,
			AttendanceCount: session.AttendanceCount,
		})
	}

	for _, rule := range rules {
		for _, date := range datesByRule[rule.ID] {
			key := pairKey{ruleID: rule.ID, date: date.Format(time.DateOnly)}
			if taken[key] {
				continue
			}
			taken[key] = true

			views = append(views, SessionView{
				Ref:       NewRef(rule.ID, date),
				RuleID:    rule.ID,
				RuleName:  rule.Name,
				Date:      date,
				DayOfWeek: rule.DayOfWeek,
				StartTime: rule.StartTime,
				EndTime:   rule.EndTime,
				State:     StateVirtual,
			})
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].Date.Equal(views[j].Date) {
			return views[i].Date.Before(views[j].Date)
		}
		if views[i].StartTime != views[j].StartTime {
			return views[i].StartTime.Before(views[j].StartTime)
		}
		return views[i].RuleName < views[j].RuleName
	})

	return views
}
