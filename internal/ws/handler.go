package ws

import (
	"context"
	"net/http"

	"github.com/HerbHall/netweave/internal/alert"
	"github.com/HerbHall/netweave/pkg/plugin"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Handler provides the WebSocket endpoint for real-time alert updates.
type Handler struct {
	hub    *Hub
	bus    plugin.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to alert events.
func NewHandler(bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/alerts", h.handleAlertStream)
}

// handleAlertStream upgrades the connection and streams alert events.
// Subscribers receive events published after they connect; there is no
// replay of earlier alerts.
func (h *Handler) handleAlertStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents bridges the alert bus topics to connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	forward := func(msgType MessageType) plugin.EventHandler {
		return func(_ context.Context, event plugin.Event) {
			a, ok := event.Payload.(*alert.Alert)
			if !ok {
				return
			}
			h.hub.Broadcast(Message{
				Type:      msgType,
				AlertID:   a.ID,
				Timestamp: event.Timestamp,
				Data:      a,
			})
		}
	}

	h.bus.Subscribe(alert.TopicCreated, forward(MessageAlertCreated))
	h.bus.Subscribe(alert.TopicUpdated, forward(MessageAlertUpdated))
	h.bus.Subscribe(alert.TopicAcknowledged, forward(MessageAlertAcknowledged))
	h.bus.Subscribe(alert.TopicResolved, forward(MessageAlertResolved))

	h.logger.Info("subscribed to alert events for WebSocket broadcasting")
}
