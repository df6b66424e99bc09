package ws

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestClient() *Client {
	return &Client{
		conn:   nil, // Not needed for hub tests
		send:   make(chan Message, 256),
		logger: testLogger(),
	}
}

func testMessage(msgType MessageType, alertID string) Message {
	return Message{
		Type:      msgType,
		AlertID:   alertID,
		Timestamp: time.Now().UTC(),
	}
}

// TestNewHub verifies that NewHub creates a hub with no clients.
func TestNewHub(t *testing.T) {
	hub := NewHub(testLogger())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("hub.clients map is nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// TestRegister verifies that Register adds a client.
func TestRegister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient()

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

// TestUnregister verifies removal and send channel closure.
func TestUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient()

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// The send channel must be closed after unregister.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel, got a message")
		}
	default:
		t.Error("send channel not closed after unregister")
	}
}

// TestUnregisterTwice verifies that a double disconnect is safe.
func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient()

	hub.Register(client)
	hub.Unregister(client)
	// A second unregister must not panic (the channel is already closed).
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// TestBroadcastDeliversToAllClients verifies fan-out.
func TestBroadcastDeliversToAllClients(t *testing.T) {
	hub := NewHub(testLogger())
	clients := []*Client{newTestClient(), newTestClient(), newTestClient()}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(testMessage(MessageAlertCreated, "alert-1"))

	for i, c := range clients {
		select {
		case msg := <-c.send:
			if msg.Type != MessageAlertCreated || msg.AlertID != "alert-1" {
				t.Errorf("client %d got %+v", i, msg)
			}
		default:
			t.Errorf("client %d received no message", i)
		}
	}
}

// TestBroadcastAfterUnregisterSkipsClient verifies that a departed
// subscriber receives nothing.
func TestBroadcastAfterUnregisterSkipsClient(t *testing.T) {
	hub := NewHub(testLogger())
	stay := newTestClient()
	leave := newTestClient()
	hub.Register(stay)
	hub.Register(leave)

	hub.Unregister(leave)
	hub.Broadcast(testMessage(MessageAlertResolved, "alert-1"))

	select {
	case msg := <-stay.send:
		if msg.AlertID != "alert-1" {
			t.Errorf("unexpected message %+v", msg)
		}
	default:
		t.Error("remaining client received no message")
	}
}

// TestBroadcastDropsOnFullBuffer verifies that a slow client never
// blocks the broadcast.
func TestBroadcastDropsOnFullBuffer(t *testing.T) {
	hub := NewHub(testLogger())
	slow := &Client{
		send:   make(chan Message, 1),
		logger: testLogger(),
	}
	fast := newTestClient()
	hub.Register(slow)
	hub.Register(fast)

	// Fill the slow client's buffer, then broadcast again.
	hub.Broadcast(testMessage(MessageAlertCreated, "alert-1"))
	hub.Broadcast(testMessage(MessageAlertUpdated, "alert-1"))

	if got := len(slow.send); got != 1 {
		t.Errorf("slow client buffer = %d, want 1 (second message dropped)", got)
	}
	if got := len(fast.send); got != 2 {
		t.Errorf("fast client buffer = %d, want 2", got)
	}
}
