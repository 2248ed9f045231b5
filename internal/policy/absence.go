package policy

import "time"

// AbsenceSettings configures the absence alert policy.
type AbsenceSettings struct {
	Threshold    int
	WindowDays   int
	CooldownDays int
	Enabled      bool
}

// AbsenceInput carries the facts a single evaluation needs: the athlete's
// unexcused absence count within the rolling window and the creation time
// of their most recent alert, if any.
type AbsenceInput struct {
	UnexcusedCount int
	LastAlertAt    *time.Time
}

// AbsenceDecision is the outcome of one policy evaluation. A suppressed
// evaluation is a successful result, not an error.
type AbsenceDecision struct {
	Triggered  bool
	Suppressed SuppressReason
	Count      int
	WindowDays int
}

// SuppressReason explains why an evaluation did not raise an alert.
type SuppressReason string

const (
	// SuppressNone means the evaluation triggered an alert.
	SuppressNone SuppressReason = ""
	// SuppressDisabled means alerting is switched off club-wide.
	SuppressDisabled SuppressReason = "disabled"
	// SuppressBelowThreshold means the absence count has not crossed the threshold.
	SuppressBelowThreshold SuppressReason = "below_threshold"
	// SuppressCooldown means a recent alert still covers this athlete.
	SuppressCooldown SuppressReason = "cooldown"
)

// EvaluateAbsenceAlert applies the rolling-window threshold and cooldown
// rules. The cooldown suppresses repeat alerts only; it does not require
// the absence count to drop before a later alert may fire.
func EvaluateAbsenceAlert(settings AbsenceSettings, input AbsenceInput, now time.Time) (AbsenceDecision, error) {
	if settings.Threshold <= 0 || settings.WindowDays <= 0 || settings.CooldownDays <= 0 {
		return AbsenceDecision{}, ErrInvalidSettings
	}

	decision := AbsenceDecision{Count: input.UnexcusedCount, WindowDays: settings.WindowDays}

	if !settings.Enabled {
		decision.Suppressed = SuppressDisabled
		return decision, nil
	}
	if input.UnexcusedCount < settings.Threshold {
		decision.Suppressed = SuppressBelowThreshold
		return decision, nil
	}
	if input.LastAlertAt != nil {
		cooldown := time.Duration(settings.CooldownDays) * 24 * time.Hour
		if now.Sub(*input.LastAlertAt) < cooldown {
			decision.Suppressed = SuppressCooldown
			return decision, nil
		}
	}

	decision.Triggered = true
	return decision, nil
}
