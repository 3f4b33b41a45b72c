// Package stream pushes bus envelopes to WebSocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dronewatch/drone-weather/internal/api/metrics"
	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgSize  = 1 << 12
	clientQueue = 64
)

// frame is the message written to subscribers.
type frame struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type client struct {
	send chan []byte
	once sync.Once
}

func (c *client) close() { c.once.Do(func() { close(c.send) }) }

// Hub fans every envelope out to the connected clients. A client whose
// queue is full is disconnected rather than slowing the bus down.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	snapshot func() domain.Snapshot
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHub creates a Hub. When snapshot is non-nil every new client first
// receives a "state" frame with the current snapshot.
func NewHub(snapshot func() domain.Snapshot, log zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.With().Str("component", "stream").Logger(),
	}
}

// Register subscribes the hub to every bus event.
func (h *Hub) Register(bus ports.EventBus) {
	bus.SubscribeAll(h.Broadcast)
}

// Broadcast queues env for every client. It never fails.
func (h *Hub) Broadcast(_ context.Context, env domain.Envelope) error {
	msg, err := json.Marshal(frame{Type: "event", Data: env})
	if err != nil {
		h.log.Warn().Err(err).Str("event_id", env.ID).Msg("encode frame failed")
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().Msg("client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) add() (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{send: make(chan []byte, clientQueue)}
	h.clients[c] = struct{}{}
	metrics.StreamClients.Inc()
	return c, true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	metrics.StreamClients.Dec()
}

// Handle upgrades GET /v1/stream and writes frames until the client leaves.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade failed")
		return nil
	}
	defer func() { _ = conn.Close() }()

	cl, ok := h.add()
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		return nil
	}
	defer h.remove(cl)

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go readLoop(conn, done)

	if h.snapshot != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame{Type: "state", Data: h.snapshot()}); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case msg, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug().Err(err).Msg("write failed")
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readLoop drains incoming frames so control messages are processed, and
// closes done when the peer goes away.
func readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
