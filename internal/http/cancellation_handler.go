package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/club-scheduler/internal/application"
	"github.com/example/club-scheduler/internal/persistence"
)

type cancellationService interface {
	Cancel(ctx context.Context, params application.CancelParams) (application.CancelResult, error)
	UndoCancel(ctx context.Context, params application.UndoCancelParams) (persistence.CancellationRecord, error)
	ReactivateCancellation(ctx context.Context, cancellationID, actorID string) (persistence.CancellationRecord, error)
	EditReason(ctx context.Context, params application.EditReasonParams) (persistence.CancellationRecord, error)
}

// CancellationHandler serves the cancellation lifecycle endpoints.
type CancellationHandler struct {
	service   cancellationService
	responder responder
}

func NewCancellationHandler(service cancellationService, logger *slog.Logger) *CancellationHandler {
	return &CancellationHandler{
		service:   service,
		responder: newResponder(logger),
	}
}

func (h *CancellationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.Cancel(r.Context(), application.CancelParams{
		Ref:     strings.TrimSpace(req.Ref),
		ActorID: strings.TrimSpace(req.ActorID),
		Reason:  req.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := handlerLogger(r.Context(), h.responder.logger, "cancellation", "cancel",
		"cancellation_id", result.Record.ID, "session_id", result.Record.SessionID, "late", result.Record.Late)
	logger.InfoContext(r.Context(), "session cancelled")

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, cancelResponse{
		Cancellation: toCancellationDTO(result.Record),
		Session:      toSessionDTO(result.Session),
	})
}

func (h *CancellationHandler) Undo(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cancellationID, ok := CancellationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(cancellationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCancellationID)
		return
	}

	record, err := h.service.UndoCancel(r.Context(), application.UndoCancelParams{
		CancellationID: cancellationID,
		ActorID:        strings.TrimSpace(r.URL.Query().Get("actor_id")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancellationResponse{Cancellation: toCancellationDTO(record)})
}

func (h *CancellationHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cancellationID, ok := CancellationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(cancellationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCancellationID)
		return
	}

	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	record, err := h.service.ReactivateCancellation(r.Context(), cancellationID, strings.TrimSpace(req.ActorID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancellationResponse{Cancellation: toCancellationDTO(record)})
}

func (h *CancellationHandler) EditReason(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cancellationID, ok := CancellationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(cancellationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCancellationID)
		return
	}

	var req editReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	record, err := h.service.EditReason(r.Context(), application.EditReasonParams{
		CancellationID: cancellationID,
		ActorID:        strings.TrimSpace(req.ActorID),
		Reason:         req.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancellationResponse{Cancellation: toCancellationDTO(record)})
}

type cancelRequest struct {
	Ref     string `json:"ref"`
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

type actorRequest struct {
	ActorID string `json:"actor_id"`
}

type editReasonRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

type cancelResponse struct {
	Cancellation cancellationDTO `json:"cancellation"`
	Session      sessionDTO      `json:"session"`
}

type cancellationResponse struct {
	Cancellation cancellationDTO `json:"cancellation"`
}

type cancellationDTO struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	ActorID   string `json:"actor_id"`
	Reason    string `json:"reason,omitempty"`
	Late      bool   `json:"late"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	UndoneAt  string `json:"undone_at,omitempty"`
}

func toCancellationDTO(record persistence.CancellationRecord) cancellationDTO {
	dto := cancellationDTO{
		ID:        record.ID,
		SessionID: record.SessionID,
		ActorID:   record.ActorID,
		Reason:    record.Reason,
		Late:      record.Late,
		Active:    record.Active,
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if record.UndoneAt != nil {
		dto.UndoneAt = record.UndoneAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
