package alert

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HerbHall/netweave/internal/server"
	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/alerts", Handler: m.handleList},
		{Method: "GET", Path: "/alerts/{alert_id}", Handler: m.handleGet},
		{Method: "POST", Path: "/alerts/{alert_id}/acknowledge", Handler: m.handleAcknowledge},
		{Method: "POST", Path: "/alerts/{alert_id}/resolve", Handler: m.handleResolve},
	}
}

// handleList lists alerts with optional filters.
//
//	@Summary		List alerts
//	@Description	Lists alerts filtered by device, type, severity, or status.
//	@Tags			alert
//	@Produce		json
//	@Success		200 {array} Alert
//	@Router			/alert/alerts [get]
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilter{
		DeviceID: q.Get("device_id"),
		Type:     q.Get("type"),
		Severity: q.Get("severity"),
		Status:   q.Get("status"),
	}
	if f.Severity != "" && !ValidSeverity(f.Severity) {
		server.ValidationFailed(w, "unknown severity filter", r.URL.Path)
		return
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		server.ValidationFailed(w, "unknown status filter", r.URL.Path)
		return
	}

	alerts, err := m.manager.List(r.Context(), f)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleGet returns an alert by ID.
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := m.manager.Get(r.Context(), r.PathValue("alert_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type acknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

// handleAcknowledge acknowledges an active alert.
func (m *Module) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if req.AcknowledgedBy == "" {
		server.ValidationFailed(w, "acknowledged_by must not be empty", r.URL.Path)
		return
	}

	a, err := m.manager.Acknowledge(r.Context(), r.PathValue("alert_id"), req.AcknowledgedBy)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type resolveRequest struct {
	Reason string `json:"reason"`
}

// handleResolve resolves an open alert.
func (m *Module) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if req.Reason == "" {
		req.Reason = "resolved by operator"
	}

	a, err := m.manager.Resolve(r.Context(), r.PathValue("alert_id"), req.Reason)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// writeError maps domain errors to problem responses.
func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ite *InvalidTransitionError
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, "alert not found", r.URL.Path)
	case errors.As(err, &ite):
		server.InvalidTransition(w, ite.Error(), r.URL.Path)
	default:
		m.logger.Error("alert request failed", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "internal error", r.URL.Path)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
