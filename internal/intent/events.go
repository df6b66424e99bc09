package intent

import "time"

// TopicDeployed is published when an intent reaches deployed status.
const TopicDeployed = "intent.deployed"

// DeployedEvent is the payload for intent.deployed.
type DeployedEvent struct {
	IntentID          string    `json:"intent_id"`
	DeviceID          string    `json:"device_id"`
	ConfigurationHash string    `json:"configuration_hash"`
	DeployedAt        time.Time `json:"deployed_at"`
}
