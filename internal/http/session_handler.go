package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/club-scheduler/internal/application"
	"github.com/example/club-scheduler/internal/occurrence"
	"github.com/example/club-scheduler/internal/persistence"
)

type sessionService interface {
	ListOccurrences(ctx context.Context, query application.OccurrenceQuery) ([]occurrence.SessionView, error)
	Materialize(ctx context.Context, params application.MaterializeParams) (persistence.TrainingSession, error)
	GetSession(ctx context.Context, id string) (persistence.TrainingSession, error)
	UpdateNote(ctx context.Context, sessionID, note string) error
}

type attendanceService interface {
	RecordAttendance(ctx context.Context, params application.AttendanceParams) (application.AttendanceResult, error)
	ListAttendance(ctx context.Context, sessionID string) ([]persistence.AttendanceRecord, error)
}

type cancellationLister interface {
	ListCancellations(ctx context.Context, sessionID string) ([]persistence.CancellationRecord, error)
}

// SessionHandler serves the occurrence calendar and session sub-resources.
type SessionHandler struct {
	service       sessionService
	attendance    attendanceService
	cancellations cancellationLister
	responder     responder
}

func NewSessionHandler(service sessionService, attendance attendanceService, cancellations cancellationLister, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service:       service,
		attendance:    attendance,
		cancellations: cancellations,
		responder:     newResponder(logger),
	}
}

func (h *SessionHandler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := application.OccurrenceQuery{
		From: parseDateParam(r.URL.Query().Get("from")),
		To:   parseDateParam(r.URL.Query().Get("to")),
	}

	views, err := h.service.ListOccurrences(r.Context(), query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listOccurrencesResponse{Occurrences: toOccurrenceDTOs(views)})
}

func (h *SessionHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req materializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.Materialize(r.Context(), application.MaterializeParams{
		Ref:     strings.TrimSpace(req.Ref),
		ActorID: strings.TrimSpace(req.ActorID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := handlerLogger(r.Context(), h.responder.logger, "session", "materialize", "session_id", session.ID)
	logger.InfoContext(r.Context(), "session materialized")

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.service.UpdateNote(r.Context(), sessionID, req.Note); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.attendance == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.attendance.RecordAttendance(r.Context(), application.AttendanceParams{
		SessionID: sessionID,
		AthleteID: strings.TrimSpace(req.AthleteID),
		Status:    persistence.AttendanceStatus(strings.TrimSpace(req.Status)),
		MarkedBy:  strings.TrimSpace(req.MarkedBy),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := attendanceResponse{Record: toAttendanceDTO(result.Record)}
	if result.Alert != nil {
		alert := toAlertDTO(*result.Alert)
		response.Alert = &alert
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *SessionHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.attendance == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	records, err := h.attendance.ListAttendance(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]attendanceDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toAttendanceDTO(record))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAttendanceResponse{Records: out})
}

func (h *SessionHandler) ListCancellations(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.cancellations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	records, err := h.cancellations.ListCancellations(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]cancellationDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toCancellationDTO(record))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCancellationsResponse{Cancellations: out})
}

type materializeRequest struct {
	Ref     string `json:"ref"`
	ActorID string `json:"actor_id"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type attendanceRequest struct {
	AthleteID string `json:"athlete_id"`
	Status    string `json:"status"`
	MarkedBy  string `json:"marked_by"`
}

type listOccurrencesResponse struct {
	Occurrences []occurrenceViewDTO `json:"occurrences"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type attendanceResponse struct {
	Record attendanceDTO `json:"record"`
	Alert  *alertDTO     `json:"alert,omitempty"`
}

type listAttendanceResponse struct {
	Records []attendanceDTO `json:"records"`
}

type listCancellationsResponse struct {
	Cancellations []cancellationDTO `json:"cancellations"`
}

type occurrenceViewDTO struct {
	Ref             string `json:"ref"`
	RuleID          string `json:"rule_id"`
	RuleName        string `json:"rule_name"`
	Date            string `json:"date"`
	DayOfWeek       string `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	State           string `json:"state"`
	SessionID       string `json:"session_id,omitempty"`
	Cancelled       bool   `json:"cancelled"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CancelledBy     string `json:"cancelled_by,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	Note            string `json:"note,omitempty"`
	AttendanceCount int    `json:"attendance_count"`
}

func toOccurrenceDTOs(views []occurrence.SessionView) []occurrenceViewDTO {
	out := make([]occurrenceViewDTO, 0, len(views))
	for _, view := range views {
		dto := occurrenceViewDTO{
			Ref:             view.Ref.Encode(),
			RuleID:          view.RuleID,
			RuleName:        view.RuleName,
			Date:            view.Date.Format(time.DateOnly),
			DayOfWeek:       view.DayOfWeek.String(),
			StartTime:       view.StartTime.String(),
			EndTime:         view.EndTime.String(),
			State:           string(view.State),
			SessionID:       view.SessionID,
			Cancelled:       view.Cancelled,
			CancelReason:    view.CancelReason,
			CancelledBy:     view.CancelledBy,
			Note:            view.Note,
			AttendanceCount: view.AttendanceCount,
		}
		if view.CancelledAt != nil {
			dto.CancelledAt = view.CancelledAt.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, dto)
	}
	return out
}

type sessionDTO struct {
	ID              string `json:"id"`
	RuleID          string `json:"rule_id"`
	RuleName        string `json:"rule_name"`
	Date            string `json:"date"`
	DayOfWeek       string `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Note            string `json:"note,omitempty"`
	Cancelled       bool   `json:"cancelled"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CancelledBy     string `json:"cancelled_by,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	AttendanceCount int    `json:"attendance_count"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toSessionDTO(session persistence.TrainingSession) sessionDTO {
	dto := sessionDTO{
		ID:              session.ID,
		RuleID:          session.RuleID,
		RuleName:        session.RuleName,
		Date:            session.Date.Format(time.DateOnly),
		DayOfWeek:       session.DayOfWeek.String(),
		StartTime:       session.StartTime.String(),
		EndTime:         session.EndTime.String(),
		Note:            session.Note,
		Cancelled:       session.Cancelled,
		CancelReason:    session.CancelReason,
		CancelledBy:     session.CancelledBy,
		AttendanceCount: session.AttendanceCount,
		CreatedAt:       session.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if session.CancelledAt != nil {
		dto.CancelledAt = session.CancelledAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

type attendanceDTO struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	AthleteID string `json:"athlete_id"`
	Status    string `json:"status"`
	MarkedAt  string `json:"marked_at"`
	MarkedBy  string `json:"marked_by,omitempty"`
}

func toAttendanceDTO(record persistence.AttendanceRecord) attendanceDTO {
	return attendanceDTO{
		ID:        record.ID,
		SessionID: record.SessionID,
		AthleteID: record.AthleteID,
		Status:    string(record.Status),
		MarkedAt:  record.MarkedAt.UTC().Format(time.RFC3339Nano),
		MarkedBy:  record.MarkedBy,
	}
}

func parseDateParam(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	ts, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return ts
}
