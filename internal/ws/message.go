package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageAlertCreated      MessageType = "alert.created"
	MessageAlertUpdated      MessageType = "alert.updated"
	MessageAlertAcknowledged MessageType = "alert.acknowledged"
	MessageAlertResolved     MessageType = "alert.resolved"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	AlertID   string      `json:"alert_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}
