package alert

// Event topics published by the alert module. Every lifecycle change is
// announced so the broadcaster can push it to live subscribers.
const (
	TopicCreated      = "alert.created"
	TopicUpdated      = "alert.updated"
	TopicAcknowledged = "alert.acknowledged"
	TopicResolved     = "alert.resolved"
)
