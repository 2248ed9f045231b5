package recurrence

import (
	"errors"
	"time"
)

// Interval represents supported recurrence intervals.
type Interval int

const (
	// IntervalUnspecified indicates the rule interval is not set.
	IntervalUnspecified Interval = iota
	// IntervalOnce emits a single occurrence at the rule's first matching date.
	IntervalOnce
	// IntervalWeekly emits an occurrence every 7 days.
	IntervalWeekly
	// IntervalBiweekly emits an occurrence every 14 days.
	IntervalBiweekly
	// IntervalMonthly emits one occurrence per calendar month, realigned to
	// the rule's weekday.
	IntervalMonthly
)

// String returns the canonical lower-case name of the interval.
func (i Interval) String() string {
	switch i {
	case IntervalOnce:
		return "once"
	case IntervalWeekly:
		return "weekly"
	case IntervalBiweekly:
		return "biweekly"
	case IntervalMonthly:
		return "monthly"
	default:
		return "unspecified"
	}
}

// ParseInterval converts a stored interval name back to its typed value.
func ParseInterval(value string) (Interval, error) {
	switch value {
	case "once":
		return IntervalOnce, nil
	case "weekly":
		return IntervalWeekly, nil
	case "biweekly":
		return IntervalBiweekly, nil
	case "monthly":
		return IntervalMonthly, nil
	default:
		return IntervalUnspecified, ErrInvalidInterval
	}
}

// Rule describes the calendrical part of a recurring training template.
type Rule struct {
	ID         string
	DayOfWeek  time.Weekday
	Interval   Interval
	ValidFrom  *time.Time
	ValidUntil *time.Time
	Active     bool
}

// Window bounds an occurrence query. Both ends are inclusive and are
// normalized to calendar dates before evaluation.
type Window struct {
	From time.Time
	To   time.Time
}

// ErrInvalidInterval indicates the recurrence interval is not supported.
var ErrInvalidInterval = errors.New("recurrence: invalid interval")

// ErrInvalidWindow indicates the query window ends before it starts.
var ErrInvalidWindow = errors.New("recurrence: window end before start")

// Date normalizes an instant to midnight UTC. All occurrence arithmetic
// runs on this single fixed-offset calendar so the produced date set never
// depends on the caller's local timezone.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Expand produces the ordered occurrence dates of a rule within the window.
//
// The engine enforces the following semantics:
//   - Every emitted date falls on the rule's weekday, normalized to
//     midnight UTC.
//   - Dates are clipped to the intersection of the query window and the
//     rule's validity window.
//   - An inactive rule, or a validity window whose lower bound exceeds its
//     upper bound, produces no occurrences.
func Expand(rule Rule, window Window) ([]time.Time, error) {
	from := Date(window.From)
	to := Date(window.To)
	if to.Before(from) {
		return nil, ErrInvalidWindow
	}

	if !rule.Active {
		return nil, nil
	}

	var validFrom, validUntil time.Time
	if rule.ValidFrom != nil {
		validFrom = Date(*rule.ValidFrom)
	}
	if rule.ValidUntil != nil {
		validUntil = Date(*rule.ValidUntil)
	}
	if !validFrom.IsZero() && !validUntil.IsZero() && validFrom.After(validUntil) {
		return nil, nil
	}

	lower := from
	if !validFrom.IsZero() && validFrom.After(lower) {
		lower = validFrom
	}
	upper := to
	if !validUntil.IsZero() && validUntil.Before(upper) {
		upper = validUntil
	}
	if lower.After(upper) {
		return nil, nil
	}

	// The sequence phase is anchored to the rule, not to the query window,
	// so every window observes the same date set. ValidFrom is the anchor
	// when present; unbounded rules fall back to a fixed epoch.
	anchorStart := validFrom
	if anchorStart.IsZero() {
		anchorStart = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	anchor := nextWeekday(anchorStart, rule.DayOfWeek)
	current := nextWeekday(lower, rule.DayOfWeek)

	switch rule.Interval {
	case IntervalOnce:
		if anchor.Before(lower) || anchor.After(upper) {
			return nil, nil
		}
		return []time.Time{anchor}, nil
	case IntervalWeekly, IntervalBiweekly:
		step := 7
		if rule.Interval == IntervalBiweekly {
			step = 14
			if offset := int(current.Sub(anchor)/(24*time.Hour)) % 14; offset != 0 {
				current = current.AddDate(0, 0, 14-offset)
			}
		}
		dates := make([]time.Time, 0)
		for !current.After(upper) {
			dates = append(dates, current)
			current = current.AddDate(0, 0, step)
		}
		return dates, nil
	case IntervalMonthly:
		current = anchor
		for current.Before(lower) {
			current = nextMonthOccurrence(current, rule.DayOfWeek)
		}
		dates := make([]time.Time, 0)
		for !current.After(upper) {
			dates = append(dates, current)
			current = nextMonthOccurrence(current, rule.DayOfWeek)
		}
		return dates, nil
	default:
		return nil, ErrInvalidInterval
	}
}

// OccursOn reports whether the rule produces an occurrence on the given
// calendar date.
func OccursOn(rule Rule, date time.Time) (bool, error) {
	day := Date(date)
	dates, err := Expand(rule, Window{From: day, To: day})
	if err != nil {
		return false, err
	}
	return len(dates) == 1 && dates[0].Equal(day), nil
}

// nextWeekday returns the first date at or after start that falls on the
// requested weekday.
func nextWeekday(start time.Time, day time.Weekday) time.Time {
	offset := (int(day) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}

// nextMonthOccurrence steps one calendar month forward and realigns to the
// target weekday. The naive +1 month candidate is clamped to the target
// month's length, then pushed forward to the next matching weekday; if the
// push would leave the month, the first matching weekday of that month is
// used instead so no calendar month is ever skipped.
func nextMonthOccurrence(current time.Time, day time.Weekday) time.Time {
	first := time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	last := first.AddDate(0, 1, -1)

	candidateDay := current.Day()
	if candidateDay > last.Day() {
		candidateDay = last.Day()
	}
	candidate := nextWeekday(time.Date(first.Year(), first.Month(), candidateDay, 0, 0, 0, 0, time.UTC), day)
	if candidate.Month() != first.Month() {
		candidate = nextWeekday(first, day)
	}
	return candidate
}
