package snapshot

// Event topics published by the snapshot module.
const (
	TopicDriftDetected   = "snapshot.drift.detected"
	TopicDriftReconciled = "snapshot.drift.reconciled"
)

// DriftEvent is the payload for both drift topics.
type DriftEvent struct {
	DeviceID     string `json:"device_id"`
	IntentID     string `json:"intent_id"`
	ObservedHash string `json:"observed_hash"`
	ExpectedHash string `json:"expected_hash"`
}
