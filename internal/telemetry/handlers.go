package telemetry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/HerbHall/netweave/internal/server"
	"github.com/HerbHall/netweave/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/metrics", Handler: m.handleIngestMetric},
		{Method: "GET", Path: "/devices/{device_id}/metrics", Handler: m.handleListMetrics},
		{Method: "POST", Path: "/thresholds", Handler: m.handleCreateThreshold},
		{Method: "GET", Path: "/thresholds", Handler: m.handleListThresholds},
		{Method: "GET", Path: "/thresholds/{threshold_id}", Handler: m.handleGetThreshold},
		{Method: "PUT", Path: "/thresholds/{threshold_id}", Handler: m.handleUpdateThreshold},
		{Method: "POST", Path: "/thresholds/{threshold_id}/enable", Handler: m.enableHandler(true)},
		{Method: "POST", Path: "/thresholds/{threshold_id}/disable", Handler: m.enableHandler(false)},
	}
}

type ingestMetricRequest struct {
	DeviceID   string  `json:"device_id"`
	MetricType string  `json:"metric_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
}

// handleIngestMetric appends a metric sample and evaluates its thresholds.
//
//	@Summary		Ingest metric
//	@Description	Appends a telemetry sample and evaluates matching thresholds.
//	@Tags			telemetry
//	@Accept			json
//	@Produce		json
//	@Success		201 {object} Metric
//	@Failure		422 {object} server.Problem
//	@Router			/telemetry/metrics [post]
func (m *Module) handleIngestMetric(w http.ResponseWriter, r *http.Request) {
	var req ingestMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if req.DeviceID == "" {
		server.ValidationFailed(w, "device_id must not be empty", r.URL.Path)
		return
	}
	if req.MetricType == "" {
		server.ValidationFailed(w, "metric_type must not be empty", r.URL.Path)
		return
	}

	sample := &Metric{
		ID:         uuid.NewString(),
		DeviceID:   req.DeviceID,
		MetricType: req.MetricType,
		Value:      req.Value,
		Unit:       req.Unit,
		RecordedAt: time.Now().UTC(),
	}
	if err := m.store.InsertMetric(r.Context(), sample); err != nil {
		m.logger.Error("metric insert failed", zap.Error(err))
		server.InternalError(w, "failed to store metric", r.URL.Path)
		return
	}

	if err := m.evaluator.Evaluate(r.Context(), sample); err != nil {
		// The sample is stored; evaluation failure must not fail ingestion.
		m.logger.Warn("threshold evaluation failed",
			zap.String("device_id", sample.DeviceID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusCreated, sample)
}

// handleListMetrics returns recent samples for a device.
func (m *Module) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			server.BadRequest(w, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}

	metrics, err := m.store.ListMetrics(r.Context(), deviceID, q.Get("metric_type"), limit)
	if err != nil {
		m.logger.Error("metric list failed", zap.Error(err))
		server.InternalError(w, "failed to list metrics", r.URL.Path)
		return
	}
	if metrics == nil {
		metrics = []Metric{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

type thresholdRequest struct {
	DeviceID      *string `json:"device_id"`
	MetricType    string  `json:"metric_type"`
	Operator      string  `json:"operator"`
	WarningValue  float64 `json:"warning_value"`
	CriticalValue float64 `json:"critical_value"`
	Enabled       *bool   `json:"enabled"`
	CreatedBy     string  `json:"created_by"`
}

// handleCreateThreshold creates a threshold rule.
func (m *Module) handleCreateThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}
	if req.MetricType == "" {
		server.ValidationFailed(w, "metric_type must not be empty", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	t := &Threshold{
		ID:            uuid.NewString(),
		DeviceID:      req.DeviceID,
		MetricType:    req.MetricType,
		Operator:      req.Operator,
		WarningValue:  req.WarningValue,
		CriticalValue: req.CriticalValue,
		Enabled:       true,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}
	if err := t.ValidateOrdering(); err != nil {
		m.writeError(w, r, err)
		return
	}

	if err := m.store.InsertThreshold(r.Context(), t); err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleListThresholds lists threshold rules.
func (m *Module) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	thresholds, err := m.store.ListThresholds(r.Context(), q.Get("device_id"), q.Get("metric_type"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	if thresholds == nil {
		thresholds = []Threshold{}
	}
	writeJSON(w, http.StatusOK, thresholds)
}

// handleGetThreshold returns a threshold by ID.
func (m *Module) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	t, err := m.store.GetThreshold(r.Context(), r.PathValue("threshold_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateThreshold replaces the mutable fields of a threshold.
func (m *Module) handleUpdateThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid request body", r.URL.Path)
		return
	}

	t, err := m.store.GetThreshold(r.Context(), r.PathValue("threshold_id"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	t.Operator = req.Operator
	t.WarningValue = req.WarningValue
	t.CriticalValue = req.CriticalValue
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}
	t.UpdatedAt = time.Now().UTC()

	if err := t.ValidateOrdering(); err != nil {
		m.writeError(w, r, err)
		return
	}
	if err := m.store.UpdateThreshold(r.Context(), t); err != nil {
		m.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// enableHandler flips the enabled flag of a threshold.
func (m *Module) enableHandler(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("threshold_id")
		if err := m.store.SetThresholdEnabled(r.Context(), id, enabled, time.Now().UTC()); err != nil {
			m.writeError(w, r, err)
			return
		}
		t, err := m.store.GetThreshold(r.Context(), id)
		if err != nil {
			m.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// writeError maps domain errors to problem responses.
func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, "threshold not found", r.URL.Path)
	case errors.As(err, &ve):
		server.ValidationFailed(w, ve.Error(), r.URL.Path)
	default:
		m.logger.Error("telemetry request failed", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "internal error", r.URL.Path)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
