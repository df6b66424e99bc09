package snapshot

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/HerbHall/netweave/internal/server"
	"github.com/HerbHall/netweave/pkg/plugin"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/snapshots", Handler: m.handleIngest},
		{Method: "GET", Path: "/devices/{device_id}/snapshots", Handler: m.handleListByDevice},
		{Method: "GET", Path: "/devices/{device_id}/snapshots/latest", Handler: m.handleLatest},
		{Method: "POST", Path: "/devices/{device_id}/recheck", Handler: m.handleRecheck},
	}
}

type ingestRequest struct {
	DeviceID      string `json:"device_id"`
	Configuration string `json:"configuration"`
	Cause         string `json:"cause"`
}

// handleIngest accepts a configuration snapshot and runs drift evaluation.
//
//	@Summary		Ingest snapshot
//	@Description	Appends a configuration snapshot and evaluates drift.
//	@Tags			snapshot
//	@Accept			json
//	@Produce		json
//	@Success		201 {object} Snapshot
//	@Failure		422 {object} server.Problem
//	@Router			/snapshot/snapshots [post]
func (m *Module) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if req.DeviceID == "" {
		server.ValidationFailed(w, "device_id must not be empty", r.URL.Path)
		return
	}
	if req.Cause == "" {
		req.Cause = CauseManual
	}
	if !ValidCause(req.Cause) {
		server.ValidationFailed(w, "unknown capture cause", r.URL.Path)
		return
	}

	snap, err := m.service.Ingest(r.Context(), req.DeviceID, req.Configuration, req.Cause)
	if err != nil {
		m.logger.Error("snapshot ingest failed", zap.String("device_id", req.DeviceID), zap.Error(err))
		server.InternalError(w, "failed to store snapshot", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// handleListByDevice returns recent snapshots for a device, newest first.
func (m *Module) handleListByDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			server.BadRequest(w, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}

	snaps, err := m.service.ListByDevice(r.Context(), deviceID, limit)
	if err != nil {
		m.logger.Error("snapshot list failed", zap.String("device_id", deviceID), zap.Error(err))
		server.InternalError(w, "failed to list snapshots", r.URL.Path)
		return
	}
	if snaps == nil {
		snaps = []Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// handleLatest returns the most recent snapshot for a device.
func (m *Module) handleLatest(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")

	snap, err := m.service.Latest(r.Context(), deviceID)
	if err != nil {
		m.logger.Error("latest snapshot failed", zap.String("device_id", deviceID), zap.Error(err))
		server.InternalError(w, "failed to load snapshot", r.URL.Path)
		return
	}
	if snap == nil {
		server.NotFound(w, "no snapshots for device", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRecheck captures a device's configuration on demand.
func (m *Module) handleRecheck(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")

	snap, err := m.service.Recheck(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, ErrNoFetcher) {
			server.Conflict(w, "no configuration fetcher configured", r.URL.Path)
			return
		}
		m.logger.Error("recheck failed", zap.String("device_id", deviceID), zap.Error(err))
		server.InternalError(w, "failed to recheck device", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
