package intent

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
		{Method: "POST", Path: "/intents", Handler: m.handleCreate},
		{Method: "GET", Path: "/intents", Handler: m.handleList},
		{Method: "GET", Path: "/intents/{intent_id}", Handler: m.handleGet},
		{Method: "POST", Path: "/intents/{intent_id}/submit", Handler: m.handleSubmit},
		{Method: "POST", Path: "/intents/{intent_id}/approve", Handler: m.handleApprove},
		{Method: "POST", Path: "/intents/{intent_id}/reject", Handler: m.handleReject},
		{Method: "POST", Path: "/intents/{intent_id}/deploy", Handler: m.handleDeploy},
		{Method: "POST", Path: "/intents/{intent_id}/fail", Handler: m.handleFail},
		{Method: "POST", Path: "/intents/{intent_id}/rollback", Handler: m.handleRollback},
	}
}

// handleCreate creates a draft intent.
//
//	@Summary		Create intent
//	@Description	Creates a configuration intent in draft status.
//	@Tags			intent
//	@Accept			json
//	@Produce		json
//	@Success		201 {object} Intent
//	@Failure		422 {object} server.Problem
//	@Router			/intent/intents [post]
func (m *Module) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}

	it, err := m.service.Create(r.Context(), in)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// handleList lists intents, optionally filtered by status, type, or device.
//
//	@Summary		List intents
//	@Tags			intent
//	@Produce		json
//	@Param			status path string false "Status filter"
//	@Success		200 {array} Intent
//	@Router			/intent/intents [get]
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilter{
		Status:   Status(q.Get("status")),
		Type:     q.Get("type"),
		DeviceID: q.Get("device_id"),
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		server.ValidationFailed(w, "unknown status filter", r.URL.Path)
		return
	}
	if f.Type != "" && !ValidType(f.Type) {
		server.ValidationFailed(w, "unknown intent type filter", r.URL.Path)
		return
	}

	intents, err := m.service.List(r.Context(), f)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	if intents == nil {
		intents = []Intent{}
	}
	writeJSON(w, http.StatusOK, intents)
}

// handleGet returns an intent by ID.
//
//	@Summary		Get intent
//	@Tags			intent
//	@Produce		json
//	@Param			intent_id path string true "Intent ID"
//	@Success		200 {object} Intent
//	@Failure		404 {object} server.Problem
//	@Router			/intent/intents/{intent_id} [get]
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	it, err := m.service.Get(r.Context(), r.PathValue("intent_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handleSubmit moves a draft intent into review.
func (m *Module) handleSubmit(w http.ResponseWriter, r *http.Request) {
	it, err := m.service.Submit(r.Context(), r.PathValue("intent_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by"`
}

// handleApprove approves a pending intent.
func (m *Module) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}

	it, err := m.service.Approve(r.Context(), r.PathValue("intent_id"), req.ApprovedBy)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handleReject rejects a pending intent.
func (m *Module) handleReject(w http.ResponseWriter, r *http.Request) {
	it, err := m.service.Reject(r.Context(), r.PathValue("intent_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handleDeploy deploys an approved intent to its device.
func (m *Module) handleDeploy(w http.ResponseWriter, r *http.Request) {
	it, err := m.service.Deploy(r.Context(), r.PathValue("intent_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handleFail marks a deployed intent as failed.
func (m *Module) handleFail(w http.ResponseWriter, r *http.Request) {
	it, err := m.service.Fail(r.Context(), r.PathValue("intent_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handleRollback marks a deployed intent as rolled back.
func (m *Module) handleRollback(w http.ResponseWriter, r *http.Request) {
	it, err := m.service.Rollback(r.Context(), r.PathValue("intent_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// writeError maps domain errors to problem responses.
func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ite *InvalidTransitionError
		ve  *ValidationError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, "intent not found", r.URL.Path)
	case errors.Is(err, ErrConflict):
		server.Conflict(w, err.Error(), r.URL.Path)
	case errors.As(err, &ite):
		server.InvalidTransition(w, ite.Error(), r.URL.Path)
	case errors.As(err, &ve):
		server.ValidationFailed(w, ve.Error(), r.URL.Path)
	default:
		m.logger.Error("intent request failed", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "internal error", r.URL.Path)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
