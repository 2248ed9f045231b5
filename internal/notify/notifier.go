// Package notify delivers absence alerts to club staff. Delivery is
// best-effort: a failed notification never fails the operation that
// produced the alert.
package notify

import (
	"context"
	"log/slog"
	"strings"
)

// Alert is the notification payload for a raised absence alert.
type Alert struct {
	AlertID      string
	AthleteID    string
	AthleteName  string
	AbsenceCount int
	WindowDays   int
}

// Notifier delivers alerts to configured recipients.
type Notifier interface {
	NotifyAbsenceAlert(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. It stands in for a real
// delivery channel in deployments that have none configured.
type LogNotifier struct {
	logger     *slog.Logger
	recipients []string
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger, recipients []string) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, recipients: recipients}
}

// NotifyAbsenceAlert implements Notifier.
func (n *LogNotifier) NotifyAbsenceAlert(ctx context.Context, alert Alert) error {
	n.logger.InfoContext(ctx, "absence alert raised",
		"alert_id", alert.AlertID,
		"athlete_id", alert.AthleteID,
		"athlete_name", alert.AthleteName,
		"absence_count", alert.AbsenceCount,
		"window_days", alert.WindowDays,
		"recipients", strings.Join(n.recipients, ","),
	)
	return nil
}
