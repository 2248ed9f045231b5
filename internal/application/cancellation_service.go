package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/policy"
)

// SessionMaterializer resolves an occurrence reference to a persisted
// session, creating it first when it is still virtual.
type SessionMaterializer interface {
	Materialize(ctx context.Context, params MaterializeParams) (persistence.TrainingSession, error)
}

// AbsenceRecorder books the unexcused absence a late cancellation implies.
type AbsenceRecorder interface {
	RecordAttendance(ctx context.Context, params AttendanceParams) (AttendanceResult, error)
}

// CancellationService owns the cancellation lifecycle: create, undo,
// re-activate and reason edits, plus the deadline classification attached
// to each transition.
type CancellationService struct {
	materializer  SessionMaterializer
	sessions      persistence.SessionRepository
	cancellations persistence.CancellationRepository
	absences      AbsenceRecorder
	settings      policy.Settings
	logger        *slog.Logger
	idGenerator   func() string
	now           func() time.Time
}

// NewCancellationService wires dependencies for cancellation operations.
func NewCancellationService(materializer SessionMaterializer, sessions persistence.SessionRepository, cancellations persistence.CancellationRepository, absences AbsenceRecorder, settings policy.Settings, logger *slog.Logger, idGenerator func() string, now func() time.Time) *CancellationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CancellationService{
		materializer:  materializer,
		sessions:      sessions,
		cancellations: cancellations,
		absences:      absences,
		settings:      settings,
		logger:        defaultLogger(logger),
		idGenerator:   idGenerator,
		now:           now,
	}
}

// Cancel records a cancellation for the occurrence the ref addresses.
// Virtual occurrences are materialized first. Cancelling after the deadline
// is accepted but flagged late, which books an unexcused absence for the
// actor; cancelling after the session started is rejected.
func (s *CancellationService) Cancel(ctx context.Context, params CancelParams) (CancelResult, error) {
	logger := serviceLogger(ctx, s.logger, "cancellations", "cancel", "ref", params.Ref, "actor_id", params.ActorID)

	if err := validateActor(params.ActorID); err != nil {
		return CancelResult{}, err
	}

	session, err := s.materializer.Materialize(ctx, MaterializeParams{Ref: params.Ref, ActorID: params.ActorID})
	if err != nil {
		return CancelResult{}, err
	}

	late, err := policy.ClassifyCancellation(session.StartTime.On(session.Date), s.settings.CancelDeadlineHours, s.now())
	if err != nil {
		if errors.Is(err, policy.ErrSessionStarted) {
			logger.WarnContext(ctx, "cancel rejected", "error_kind", ErrorKind(ErrSessionStarted))
			return CancelResult{}, ErrSessionStarted
		}
		return CancelResult{}, err
	}

	record := persistence.CancellationRecord{
		ID:        s.idGenerator(),
		SessionID: session.ID,
		ActorID:   params.ActorID,
		Reason:    strings.TrimSpace(params.Reason),
		Late:      late,
	}
	created, err := s.cancellations.CreateCancellation(ctx, record)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			logger.WarnContext(ctx, "cancel rejected", "error_kind", ErrorKind(ErrAlreadyCancelled))
			return CancelResult{}, ErrAlreadyCancelled
		}
		logger.ErrorContext(ctx, "failed to create cancellation", "error", err)
		return CancelResult{}, err
	}

	if late {
		s.bookLateAbsence(ctx, logger, session.ID, params.ActorID)
	}

	updated, err := s.sessions.GetSession(ctx, session.ID)
	if err != nil {
		return CancelResult{}, err
	}

	logger.InfoContext(ctx, "session cancelled", "session_id", session.ID, "cancellation_id", created.ID, "late", late)
	return CancelResult{Record: created, Session: updated}, nil
}

// UndoCancel deactivates an active cancellation. The record is kept as
// history; only future sessions can be undone.
func (s *CancellationService) UndoCancel(ctx context.Context, params UndoCancelParams) (persistence.CancellationRecord, error) {
	logger := serviceLogger(ctx, s.logger, "cancellations", "undo", "cancellation_id", params.CancellationID)

	record, session, err := s.loadRecordAndSession(ctx, params.CancellationID)
	if err != nil {
		return persistence.CancellationRecord{}, err
	}
	if !record.Active {
		return persistence.CancellationRecord{}, ErrNotFound
	}
	if !s.now().Before(session.StartTime.On(session.Date)) {
		logger.WarnContext(ctx, "undo rejected", "error_kind", ErrorKind(ErrSessionStarted))
		return persistence.CancellationRecord{}, ErrSessionStarted
	}

	undoneAt := s.now()
	record.Active = false
	record.UndoneAt = &undoneAt

	updated, err := s.cancellations.UpdateCancellation(ctx, record)
	if err != nil {
		logger.ErrorContext(ctx, "failed to undo cancellation", "error", err)
		return persistence.CancellationRecord{}, err
	}

	logger.InfoContext(ctx, "cancellation undone", "session_id", record.SessionID)
	return updated, nil
}

// ReactivateCancellation re-activates an undone cancellation. Lateness is
// re-evaluated against the current time, so a cancellation undone and
// restored after the deadline becomes late.
func (s *CancellationService) ReactivateCancellation(ctx context.Context, cancellationID, actorID string) (persistence.CancellationRecord, error) {
	logger := serviceLogger(ctx, s.logger, "cancellations", "reactivate", "cancellation_id", cancellationID)

	record, session, err := s.loadRecordAndSession(ctx, cancellationID)
	if err != nil {
		return persistence.CancellationRecord{}, err
	}
	if record.Active {
		return persistence.CancellationRecord{}, ErrAlreadyCancelled
	}

	late, err := policy.ClassifyCancellation(session.StartTime.On(session.Date), s.settings.CancelDeadlineHours, s.now())
	if err != nil {
		if errors.Is(err, policy.ErrSessionStarted) {
			logger.WarnContext(ctx, "reactivate rejected", "error_kind", ErrorKind(ErrSessionStarted))
			return persistence.CancellationRecord{}, ErrSessionStarted
		}
		return persistence.CancellationRecord{}, err
	}

	record.Active = true
	record.UndoneAt = nil
	record.Late = late

	updated, err := s.cancellations.UpdateCancellation(ctx, record)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.CancellationRecord{}, ErrAlreadyCancelled
		}
		logger.ErrorContext(ctx, "failed to reactivate cancellation", "error", err)
		return persistence.CancellationRecord{}, err
	}

	if late {
		s.bookLateAbsence(ctx, logger, record.SessionID, record.ActorID)
	}

	logger.InfoContext(ctx, "cancellation reactivated", "session_id", record.SessionID, "late", late)
	return updated, nil
}

// EditReason replaces the reason of an active cancellation. Edits are only
// allowed while the cancellation deadline has not passed.
func (s *CancellationService) EditReason(ctx context.Context, params EditReasonParams) (persistence.CancellationRecord, error) {
	logger := serviceLogger(ctx, s.logger, "cancellations", "edit_reason", "cancellation_id", params.CancellationID)

	record, session, err := s.loadRecordAndSession(ctx, params.CancellationID)
	if err != nil {
		return persistence.CancellationRecord{}, err
	}
	if !record.Active {
		return persistence.CancellationRecord{}, ErrNotFound
	}

	late, err := policy.ClassifyCancellation(session.StartTime.On(session.Date), s.settings.CancelDeadlineHours, s.now())
	if err != nil {
		if errors.Is(err, policy.ErrSessionStarted) {
			return persistence.CancellationRecord{}, ErrSessionStarted
		}
		return persistence.CancellationRecord{}, err
	}
	if late {
		vErr := &ValidationError{}
		vErr.add("reason", "reason can no longer be edited after the cancellation deadline")
		logger.WarnContext(ctx, "edit rejected", "error_kind", ErrorKind(vErr))
		return persistence.CancellationRecord{}, vErr
	}

	record.Reason = strings.TrimSpace(params.Reason)
	updated, err := s.cancellations.UpdateCancellation(ctx, record)
	if err != nil {
		logger.ErrorContext(ctx, "failed to edit reason", "error", err)
		return persistence.CancellationRecord{}, err
	}
	return updated, nil
}

// ListCancellations returns a session's full cancellation history.
func (s *CancellationService) ListCancellations(ctx context.Context, sessionID string) ([]persistence.CancellationRecord, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.cancellations.ListCancellationsForSession(ctx, sessionID)
}

func (s *CancellationService) loadRecordAndSession(ctx context.Context, cancellationID string) (persistence.CancellationRecord, persistence.TrainingSession, error) {
	record, err := s.cancellations.GetCancellation(ctx, cancellationID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.CancellationRecord{}, persistence.TrainingSession{}, ErrNotFound
		}
		return persistence.CancellationRecord{}, persistence.TrainingSession{}, err
	}
	session, err := s.sessions.GetSession(ctx, record.SessionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.CancellationRecord{}, persistence.TrainingSession{}, ErrNotFound
		}
		return persistence.CancellationRecord{}, persistence.TrainingSession{}, err
	}
	return record, session, nil
}

// bookLateAbsence records the unexcused absence a late cancellation implies.
// A failure here is logged but does not fail the cancellation; the record
// can be corrected through the attendance operations.
func (s *CancellationService) bookLateAbsence(ctx context.Context, logger *slog.Logger, sessionID, athleteID string) {
	if s.absences == nil {
		return
	}
	_, err := s.absences.RecordAttendance(ctx, AttendanceParams{
		SessionID: sessionID,
		AthleteID: athleteID,
		Status:    persistence.AttendanceAbsentUnexcused,
		MarkedBy:  athleteID,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to book late-cancellation absence", "session_id", sessionID, "athlete_id", athleteID, "error", err)
	}
}

func validateActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		vErr := &ValidationError{}
		vErr.add("actor_id", "actor is required")
		return vErr
	}
	return nil
}
