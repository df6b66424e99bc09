package inventory

// Event topics published by the inventory module.
const (
	TopicDeviceCreated       = "inventory.device.created"
	TopicDeviceStatusChanged = "inventory.device.status_changed"
)

// DeviceStatusEvent is the payload for inventory.device.status_changed.
type DeviceStatusEvent struct {
	DeviceID  string `json:"device_id"`
	Name      string `json:"name"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}
