package intent

import "sort"

// Status is the lifecycle state of an intent.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusDeployed   Status = "deployed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// Event is a requested lifecycle transition.
type Event string

const (
	EventSubmit   Event = "submit"
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
	EventDeploy   Event = "deploy"
	EventFail     Event = "fail"
	EventRollback Event = "rollback"
)

// Intent types matching the configuration domains the engine manages.
const (
	TypeVLANConfiguration = "vlan_configuration"
	TypeRoutingPolicy     = "routing_policy"
	TypeAccessControl     = "access_control"
	TypeQoSPolicy         = "qos_policy"
	TypeBackupRestore     = "backup_restore"
)

// ValidType reports whether t is a known intent type.
func ValidType(t string) bool {
	switch t {
	case TypeVLANConfiguration, TypeRoutingPolicy, TypeAccessControl, TypeQoSPolicy, TypeBackupRestore:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected,
		StatusDeployed, StatusFailed, StatusRolledBack:
		return true
	}
	return false
}

// transitions is the allowed-transition table. Absent entries are invalid.
var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventSubmit: StatusPending,
	},
	StatusPending: {
		EventApprove: StatusApproved,
		EventReject:  StatusRejected,
	},
	StatusApproved: {
		EventDeploy: StatusDeployed,
	},
	StatusDeployed: {
		EventFail:     StatusFailed,
		EventRollback: StatusRolledBack,
	},
}

// Next returns the status that event leads to from the given status.
// ok is false when the transition is not allowed.
func Next(from Status, event Event) (to Status, ok bool) {
	to, ok = transitions[from][event]
	return to, ok
}

// AllowedEvents returns the events valid from the given status, sorted.
func AllowedEvents(from Status) []Event {
	row := transitions[from]
	events := make([]Event, 0, len(row))
	for e := range row {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// Terminal reports whether no further transitions are possible from s.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}
