package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/club-scheduler/internal/notify"
	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/policy"
)

// AttendanceService records attendance and runs the absence alert policy
// whenever an unexcused absence is booked.
type AttendanceService struct {
	sessions    persistence.SessionRepository
	attendance  persistence.AttendanceRepository
	alerts      persistence.AlertRepository
	members     persistence.MemberRepository
	notifier    notify.Notifier
	settings    policy.AbsenceSettings
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewAttendanceService wires dependencies for attendance operations.
func NewAttendanceService(sessions persistence.SessionRepository, attendance persistence.AttendanceRepository, alerts persistence.AlertRepository, members persistence.MemberRepository, notifier notify.Notifier, settings policy.AbsenceSettings, logger *slog.Logger, idGenerator func() string, now func() time.Time) *AttendanceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		sessions:    sessions,
		attendance:  attendance,
		alerts:      alerts,
		members:     members,
		notifier:    notifier,
		settings:    settings,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// RecordAttendance stores or replaces the athlete's status for a session.
// Booking an unexcused absence triggers one absence alert evaluation; a
// failed evaluation or notification is logged and never fails the booking.
func (s *AttendanceService) RecordAttendance(ctx context.Context, params AttendanceParams) (AttendanceResult, error) {
	logger := serviceLogger(ctx, s.logger, "attendance", "record",
		"session_id", params.SessionID, "athlete_id", params.AthleteID, "status", string(params.Status))

	if err := validateAttendanceParams(params); err != nil {
		logger.WarnContext(ctx, "attendance rejected", "error_kind", ErrorKind(err))
		return AttendanceResult{}, err
	}

	if _, err := s.sessions.GetSession(ctx, params.SessionID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return AttendanceResult{}, ErrNotFound
		}
		return AttendanceResult{}, err
	}

	record := persistence.AttendanceRecord{
		ID:        s.idGenerator(),
		SessionID: params.SessionID,
		AthleteID: params.AthleteID,
		Status:    params.Status,
		MarkedAt:  s.now(),
		MarkedBy:  params.MarkedBy,
	}
	stored, err := s.attendance.UpsertAttendance(ctx, record)
	if err != nil {
		logger.ErrorContext(ctx, "failed to store attendance", "error", err)
		return AttendanceResult{}, err
	}

	result := AttendanceResult{Record: stored}
	if params.Status == persistence.AttendanceAbsentUnexcused {
		result.Alert = s.evaluateAbsence(ctx, logger, params.AthleteID)
	}
	return result, nil
}

// ListAttendance returns all attendance records of a session.
func (s *AttendanceService) ListAttendance(ctx context.Context, sessionID string) ([]persistence.AttendanceRecord, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.attendance.ListAttendanceForSession(ctx, sessionID)
}

// AcknowledgeAlert marks an open absence alert as handled by the actor.
func (s *AttendanceService) AcknowledgeAlert(ctx context.Context, alertID, actorID string) (persistence.AbsenceAlert, error) {
	logger := serviceLogger(ctx, s.logger, "attendance", "acknowledge_alert", "alert_id", alertID)

	if err := validateActor(actorID); err != nil {
		return persistence.AbsenceAlert{}, err
	}

	alert, err := s.alerts.AcknowledgeAlert(ctx, alertID, actorID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			return persistence.AbsenceAlert{}, ErrNotFound
		case errors.Is(err, persistence.ErrDuplicate):
			logger.WarnContext(ctx, "acknowledge rejected", "error_kind", ErrorKind(ErrAlreadyAcknowledged))
			return persistence.AbsenceAlert{}, ErrAlreadyAcknowledged
		}
		logger.ErrorContext(ctx, "failed to acknowledge alert", "error", err)
		return persistence.AbsenceAlert{}, err
	}

	logger.InfoContext(ctx, "alert acknowledged", "athlete_id", alert.AthleteID, "actor_id", actorID)
	return alert, nil
}

// ListOpenAlerts returns unacknowledged alerts, oldest first.
func (s *AttendanceService) ListOpenAlerts(ctx context.Context) ([]persistence.AbsenceAlert, error) {
	return s.alerts.ListOpenAlerts(ctx)
}

// evaluateAbsence runs the alert policy for the athlete and persists and
// delivers an alert when it triggers. All failures are logged only; the
// attendance booking that led here already succeeded.
func (s *AttendanceService) evaluateAbsence(ctx context.Context, logger *slog.Logger, athleteID string) *persistence.AbsenceAlert {
	now := s.now()
	from := now.AddDate(0, 0, -s.settings.WindowDays)

	count, err := s.attendance.CountAttendance(ctx, athleteID, persistence.AttendanceAbsentUnexcused, from, now)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count absences", "error", err)
		return nil
	}

	input := policy.AbsenceInput{UnexcusedCount: count}
	latest, err := s.alerts.LatestAlertForAthlete(ctx, athleteID)
	switch {
	case err == nil:
		input.LastAlertAt = &latest.CreatedAt
	case errors.Is(err, persistence.ErrNotFound):
	default:
		logger.ErrorContext(ctx, "failed to read latest alert", "error", err)
		return nil
	}

	decision, err := policy.EvaluateAbsenceAlert(s.settings, input, now)
	if err != nil {
		logger.ErrorContext(ctx, "absence policy evaluation failed", "error", err)
		return nil
	}
	if !decision.Triggered {
		logger.DebugContext(ctx, "absence alert suppressed", "reason", string(decision.Suppressed), "count", decision.Count)
		return nil
	}

	alert := persistence.AbsenceAlert{
		ID:           s.idGenerator(),
		AthleteID:    athleteID,
		AbsenceCount: decision.Count,
		WindowDays:   decision.WindowDays,
		CreatedAt:    now,
	}
	created, err := s.alerts.CreateAlert(ctx, alert, s.settings.CooldownDays)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			// A concurrent evaluation already raised the alert for this
			// cooldown window.
			logger.DebugContext(ctx, "absence alert suppressed", "reason", "cooldown")
			return nil
		}
		logger.ErrorContext(ctx, "failed to store absence alert", "error", err)
		return nil
	}

	logger.InfoContext(ctx, "absence alert raised", "alert_id", created.ID, "athlete_id", athleteID, "count", decision.Count)
	s.deliverAlert(ctx, logger, created)
	return &created
}

func (s *AttendanceService) deliverAlert(ctx context.Context, logger *slog.Logger, alert persistence.AbsenceAlert) {
	if s.notifier == nil {
		return
	}

	athleteName := ""
	if s.members != nil {
		if member, err := s.members.GetMember(ctx, alert.AthleteID); err == nil {
			athleteName = member.DisplayName
		}
	}

	err := s.notifier.NotifyAbsenceAlert(ctx, notify.Alert{
		AlertID:      alert.ID,
		AthleteID:    alert.AthleteID,
		AthleteName:  athleteName,
		AbsenceCount: alert.AbsenceCount,
		WindowDays:   alert.WindowDays,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to deliver absence alert", "alert_id", alert.ID, "error", err)
	}
}

func validateAttendanceParams(params AttendanceParams) error {
	vErr := &ValidationError{}
	if params.SessionID == "" {
		vErr.add("session_id", "session is required")
	}
	if params.AthleteID == "" {
		vErr.add("athlete_id", "athlete is required")
	}
	if !persistence.ValidAttendanceStatus(params.Status) {
		vErr.add("status", "unknown attendance status")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
