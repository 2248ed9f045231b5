package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
)

type alertService interface {
	ListOpenAlerts(ctx context.Context) ([]persistence.AbsenceAlert, error)
	AcknowledgeAlert(ctx context.Context, alertID, actorID string) (persistence.AbsenceAlert, error)
}

// AlertHandler serves the absence alert endpoints.
type AlertHandler struct {
	service   alertService
	responder responder
}

func NewAlertHandler(service alertService, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		service:   service,
		responder: newResponder(logger),
	}
}

func (h *AlertHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	alerts, err := h.service.ListOpenAlerts(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]alertDTO, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, toAlertDTO(alert))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAlertsResponse{Alerts: out})
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	alertID, ok := AlertIDFromContext(r.Context())
	if !ok || strings.TrimSpace(alertID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAlertID)
		return
	}

	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	alert, err := h.service.AcknowledgeAlert(r.Context(), alertID, strings.TrimSpace(req.ActorID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, alertResponse{Alert: toAlertDTO(alert)})
}

type listAlertsResponse struct {
	Alerts []alertDTO `json:"alerts"`
}

type alertResponse struct {
	Alert alertDTO `json:"alert"`
}

type alertDTO struct {
	ID             string `json:"id"`
	AthleteID      string `json:"athlete_id"`
	AbsenceCount   int    `json:"absence_count"`
	WindowDays     int    `json:"window_days"`
	CreatedAt      string `json:"created_at"`
	Acknowledged   bool   `json:"acknowledged"`
	AcknowledgedBy string `json:"acknowledged_by,omitempty"`
	AcknowledgedAt string `json:"acknowledged_at,omitempty"`
}

func toAlertDTO(alert persistence.AbsenceAlert) alertDTO {
	dto := alertDTO{
		ID:             alert.ID,
		AthleteID:      alert.AthleteID,
		AbsenceCount:   alert.AbsenceCount,
		WindowDays:     alert.WindowDays,
		CreatedAt:      alert.CreatedAt.UTC().Format(time.RFC3339Nano),
		Acknowledged:   alert.Acknowledged,
		AcknowledgedBy: alert.AcknowledgedBy,
	}
	if alert.AcknowledgedAt != nil {
		dto.AcknowledgedAt = alert.AcknowledgedAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
