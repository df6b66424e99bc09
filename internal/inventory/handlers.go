package inventory

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/HerbHall/netweave/internal/server"
	"github.com/HerbHall/netweave/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/devices", Handler: m.handleCreateDevice},
		{Method: "GET", Path: "/devices", Handler: m.handleListDevices},
		{Method: "GET", Path: "/devices/{device_id}", Handler: m.handleGetDevice},
		{Method: "PATCH", Path: "/devices/{device_id}/status", Handler: m.handleUpdateStatus},
	}
}

type createDeviceRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	IPAddress  string  `json:"ip_address"`
	Location   string  `json:"location"`
	Model      string  `json:"model"`
	Vendor     string  `json:"vendor"`
	ExternalID *string `json:"external_id"`
}

// handleCreateDevice registers a new device.
//
//	@Summary		Create device
//	@Description	Registers a network device in the inventory.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Success		201 {object} Device
//	@Failure		400 {object} server.Problem
//	@Failure		422 {object} server.Problem
//	@Router			/inventory/devices [post]
func (m *Module) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if req.Name == "" {
		server.ValidationFailed(w, "name must not be empty", r.URL.Path)
		return
	}
	if !ValidType(req.Type) {
		server.ValidationFailed(w, "unknown device type", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	d := &Device{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Type:       req.Type,
		Status:     StatusUnknown,
		IPAddress:  req.IPAddress,
		Location:   req.Location,
		Model:      req.Model,
		Vendor:     req.Vendor,
		ExternalID: req.ExternalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.InsertDevice(r.Context(), d); err != nil {
		m.logger.Warn("failed to insert device", zap.Error(err))
		server.InternalError(w, "failed to create device", r.URL.Path)
		return
	}

	if m.bus != nil {
		m.bus.PublishAsync(r.Context(), plugin.Event{
			Topic:     TopicDeviceCreated,
			Source:    "inventory",
			Timestamp: now,
			Payload:   d,
		})
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleListDevices returns all registered devices.
//
//	@Summary		List devices
//	@Description	Returns all registered network devices.
//	@Tags			inventory
//	@Produce		json
//	@Success		200 {array} Device
//	@Router			/inventory/devices [get]
func (m *Module) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := m.store.ListDevices(r.Context())
	if err != nil {
		m.logger.Warn("failed to list devices", zap.Error(err))
		server.InternalError(w, "failed to list devices", r.URL.Path)
		return
	}
	if devices == nil {
		devices = []Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device.
//
//	@Summary		Get device
//	@Description	Returns a device by ID.
//	@Tags			inventory
//	@Produce		json
//	@Param			device_id path string true "Device ID"
//	@Success		200 {object} Device
//	@Failure		404 {object} server.Problem
//	@Router			/inventory/devices/{device_id} [get]
func (m *Module) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("device_id")
	d, err := m.store.GetDevice(r.Context(), id)
	if err != nil {
		m.logger.Warn("failed to get device", zap.String("device_id", id), zap.Error(err))
		server.InternalError(w, "failed to get device", r.URL.Path)
		return
	}
	if d == nil {
		server.NotFound(w, "device not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// handleUpdateStatus sets a device's operational status (e.g., maintenance).
//
//	@Summary		Update device status
//	@Description	Sets the operational status of a device.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			device_id path string true "Device ID"
//	@Success		200 {object} Device
//	@Failure		404 {object} server.Problem
//	@Failure		422 {object} server.Problem
//	@Router			/inventory/devices/{device_id}/status [patch]
func (m *Module) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("device_id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if !ValidStatus(req.Status) {
		server.ValidationFailed(w, "unknown device status", r.URL.Path)
		return
	}

	d, err := m.store.GetDevice(r.Context(), id)
	if err != nil {
		m.logger.Warn("failed to get device", zap.String("device_id", id), zap.Error(err))
		server.InternalError(w, "failed to get device", r.URL.Path)
		return
	}
	if d == nil {
		server.NotFound(w, "device not found", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	if _, err := m.store.UpdateDeviceStatus(r.Context(), id, req.Status, now); err != nil {
		m.logger.Warn("failed to update device status", zap.String("device_id", id), zap.Error(err))
		server.InternalError(w, "failed to update status", r.URL.Path)
		return
	}

	m.publishStatusChange(r.Context(), *d, d.Status, req.Status)

	d.Status = req.Status
	d.UpdatedAt = now
	writeJSON(w, http.StatusOK, d)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
