package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/club-scheduler/internal/occurrence"
	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/recurrence"
)

// SessionService projects occurrence calendars and materializes virtual
// sessions into persisted rows.
type SessionService struct {
	rules       persistence.RuleRepository
	sessions    persistence.SessionRepository
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewSessionService wires dependencies for occurrence operations.
func NewSessionService(rules persistence.RuleRepository, sessions persistence.SessionRepository, logger *slog.Logger, idGenerator func() string, now func() time.Time) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		rules:       rules,
		sessions:    sessions,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// ListOccurrences returns the merged calendar for the window: one view per
// (rule, date) pair, materialized rows taking precedence over computed
// virtual occurrences.
func (s *SessionService) ListOccurrences(ctx context.Context, query OccurrenceQuery) ([]occurrence.SessionView, error) {
	logger := serviceLogger(ctx, s.logger, "sessions", "list_occurrences")

	if err := validateQuery(query); err != nil {
		logger.WarnContext(ctx, "occurrence query rejected", "error_kind", ErrorKind(err))
		return nil, err
	}

	from := recurrence.Date(query.From)
	to := recurrence.Date(query.To)

	rules, err := s.rules.ListRules(ctx, from, to, false)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list rules", "error", err)
		return nil, err
	}

	templates := make([]occurrence.TemplateRule, 0, len(rules))
	datesByRule := make(map[string][]time.Time, len(rules))
	window := recurrence.Window{From: from, To: to}
	for _, rule := range rules {
		dates, err := recurrence.Expand(rule.CalendarRule(), window)
		if err != nil {
			logger.ErrorContext(ctx, "failed to expand rule", "rule_id", rule.ID, "error", err)
			return nil, fmt.Errorf("failed to expand rule %s: %w", rule.ID, err)
		}
		templates = append(templates, occurrence.TemplateRule{
			ID:        rule.ID,
			Name:      rule.Name,
			DayOfWeek: rule.DayOfWeek,
			StartTime: rule.StartTime,
			EndTime:   rule.EndTime,
		})
		datesByRule[rule.ID] = dates
	}

	stored, err := s.sessions.ListSessions(ctx, from, to)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list sessions", "error", err)
		return nil, err
	}

	persisted := make([]occurrence.PersistedSession, 0, len(stored))
	for _, session := range stored {
		persisted = append(persisted, toPersistedSession(session))
	}

	views := occurrence.Project(templates, datesByRule, persisted)
	logger.DebugContext(ctx, "occurrences projected", "rules", len(rules), "views", len(views))
	return views, nil
}

// Materialize turns a virtual occurrence into a persisted session. The
// operation is idempotent: if a session for the (rule, date) pair already
// exists it is returned unchanged. A lost creation race is retried with one
// re-read; a second miss reports a conflict.
func (s *SessionService) Materialize(ctx context.Context, params MaterializeParams) (persistence.TrainingSession, error) {
	logger := serviceLogger(ctx, s.logger, "sessions", "materialize", "ref", params.Ref)

	ref, err := occurrence.ParseRef(params.Ref)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("ref", "malformed occurrence reference")
		logger.WarnContext(ctx, "materialize rejected", "error_kind", ErrorKind(vErr))
		return persistence.TrainingSession{}, vErr
	}

	existing, err := s.sessions.GetSessionByRuleAndDate(ctx, ref.RuleID, ref.Date)
	if err == nil {
		logger.DebugContext(ctx, "session already materialized", "session_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.TrainingSession{}, err
	}

	rule, err := s.rules.GetRule(ctx, ref.RuleID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.TrainingSession{}, ErrNotFound
		}
		return persistence.TrainingSession{}, err
	}

	occurs, err := recurrence.OccursOn(rule.CalendarRule(), ref.Date)
	if err != nil {
		return persistence.TrainingSession{}, err
	}
	if !occurs {
		vErr := &ValidationError{}
		vErr.add("ref", "rule does not occur on this date")
		logger.WarnContext(ctx, "materialize rejected", "error_kind", ErrorKind(vErr))
		return persistence.TrainingSession{}, vErr
	}

	session := persistence.TrainingSession{
		ID:        s.idGenerator(),
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Date:      ref.Date,
		DayOfWeek: rule.DayOfWeek,
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
	}
	groups := make([]persistence.SessionGroup, 0, len(rule.Groups))
	for _, group := range rule.Groups {
		groups = append(groups, persistence.SessionGroup{
			ID:        s.idGenerator(),
			SessionID: session.ID,
			GroupID:   group.ID,
			Name:      group.Name,
			Position:  group.Position,
			TrainerID: group.TrainerID,
		})
	}

	created, err := s.sessions.CreateSession(ctx, session, groups)
	if err == nil {
		logger.InfoContext(ctx, "session materialized", "session_id", created.ID, "rule_id", rule.ID)
		return created, nil
	}
	if !errors.Is(err, persistence.ErrDuplicate) {
		logger.ErrorContext(ctx, "failed to create session", "error", err)
		return persistence.TrainingSession{}, err
	}

	// Another request won the insert; its row is the session.
	winner, err := s.sessions.GetSessionByRuleAndDate(ctx, ref.RuleID, ref.Date)
	if err != nil {
		logger.ErrorContext(ctx, "lost materialization race and re-read failed", "error", err)
		return persistence.TrainingSession{}, fmt.Errorf("%w: concurrent materialization", ErrConflict)
	}
	logger.InfoContext(ctx, "lost materialization race, returning winner", "session_id", winner.ID)
	return winner, nil
}

// GetSession retrieves a materialized session by ID.
func (s *SessionService) GetSession(ctx context.Context, id string) (persistence.TrainingSession, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.TrainingSession{}, ErrNotFound
		}
		return persistence.TrainingSession{}, err
	}
	return session, nil
}

// UpdateNote replaces the free-text note of a materialized session.
func (s *SessionService) UpdateNote(ctx context.Context, sessionID, note string) error {
	logger := serviceLogger(ctx, s.logger, "sessions", "update_note", "session_id", sessionID)

	if err := s.sessions.UpdateSessionNote(ctx, sessionID, note); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "failed to update note", "error", err)
		return err
	}
	return nil
}

func validateQuery(query OccurrenceQuery) error {
	vErr := &ValidationError{}
	if query.From.IsZero() {
		vErr.add("from", "from is required")
	}
	if query.To.IsZero() {
		vErr.add("to", "to is required")
	}
	if vErr.HasErrors() {
		return vErr
	}

	from := recurrence.Date(query.From)
	to := recurrence.Date(query.To)
	if to.Before(from) {
		vErr.add("window", "from must not be after to")
		return vErr
	}
	if to.Sub(from) > maxQueryWindowDays*24*time.Hour {
		vErr.add("window", fmt.Sprintf("window must not exceed %d days", maxQueryWindowDays))
		return vErr
	}
	return nil
}

func toPersistedSession(session persistence.TrainingSession) occurrence.PersistedSession {
	return occurrence.PersistedSession{
		ID:              session.ID,
		RuleID:          session.RuleID,
		RuleName:        session.RuleName,
		Date:            session.Date,
		DayOfWeek:       session.DayOfWeek,
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		Cancelled:       session.Cancelled,
		CancelReason:    session.CancelReason,
		CancelledBy:     session.CancelledBy,
		CancelledAt:     session.CancelledAt,
		Note:            session.Note,
		AttendanceCount: session.AttendanceCount,
	}
}
