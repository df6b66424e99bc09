package telemetry

// Event topics published by the telemetry module.
const (
	TopicThresholdBreached = "telemetry.threshold.breached"
	TopicThresholdCleared  = "telemetry.threshold.cleared"
)

// Breach severities, in the alerting vocabulary: a warning-level breach
// maps to medium, a critical-level breach to critical.
const (
	BreachSeverityMedium   = "medium"
	BreachSeverityCritical = "critical"
)

// ThresholdEvent is the payload for both threshold topics. Severity and
// ThresholdValue are set only on breach.
type ThresholdEvent struct {
	DeviceID       string  `json:"device_id"`
	MetricType     string  `json:"metric_type"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit,omitempty"`
	Severity       string  `json:"severity,omitempty"`
	Operator       string  `json:"operator,omitempty"`
	ThresholdValue float64 `json:"threshold_value,omitempty"`
	ThresholdID    string  `json:"threshold_id,omitempty"`
}
