package intent

import "testing"

// TestTransitionTable verifies the allowed lifecycle transitions.
func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name  string
		from  Status
		event Event
		want  Status
		ok    bool
	}{
		{name: "draft submit", from: StatusDraft, event: EventSubmit, want: StatusPending, ok: true},
		{name: "pending approve", from: StatusPending, event: EventApprove, want: StatusApproved, ok: true},
		{name: "pending reject", from: StatusPending, event: EventReject, want: StatusRejected, ok: true},
		{name: "approved deploy", from: StatusApproved, event: EventDeploy, want: StatusDeployed, ok: true},
		{name: "deployed fail", from: StatusDeployed, event: EventFail, want: StatusFailed, ok: true},
		{name: "deployed rollback", from: StatusDeployed, event: EventRollback, want: StatusRolledBack, ok: true},
		{name: "draft approve invalid", from: StatusDraft, event: EventApprove, ok: false},
		{name: "draft deploy invalid", from: StatusDraft, event: EventDeploy, ok: false},
		{name: "pending deploy invalid", from: StatusPending, event: EventDeploy, ok: false},
		{name: "approved submit invalid", from: StatusApproved, event: EventSubmit, ok: false},
		{name: "rejected is terminal", from: StatusRejected, event: EventSubmit, ok: false},
		{name: "failed is terminal", from: StatusFailed, event: EventDeploy, ok: false},
		{name: "rolled back is terminal", from: StatusRolledBack, event: EventDeploy, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.from, tt.event)
			if ok != tt.ok {
				t.Fatalf("Next(%s, %s) ok = %v, want %v", tt.from, tt.event, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Next(%s, %s) = %s, want %s", tt.from, tt.event, got, tt.want)
			}
		})
	}
}

// TestTerminal verifies terminal status detection.
func TestTerminal(t *testing.T) {
	terminal := []Status{StatusRejected, StatusFailed, StatusRolledBack}
	for _, s := range terminal {
		if !Terminal(s) {
			t.Errorf("Terminal(%s) = false, want true", s)
		}
	}

	open := []Status{StatusDraft, StatusPending, StatusApproved, StatusDeployed}
	for _, s := range open {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true, want false", s)
		}
	}
}

// TestAllowedEvents verifies the events reported for error messages.
func TestAllowedEvents(t *testing.T) {
	got := AllowedEvents(StatusPending)
	if len(got) != 2 || got[0] != EventApprove || got[1] != EventReject {
		t.Errorf("AllowedEvents(pending) = %v, want [approve reject]", got)
	}

	if events := AllowedEvents(StatusRejected); len(events) != 0 {
		t.Errorf("AllowedEvents(rejected) = %v, want empty", events)
	}
}
