// Package livefeed streams per-turn traces to connected dashboard clients
// over websockets. Delivery is best effort: a slow client is dropped, never
// waited on, so publishing can sit on the turn path.
package livefeed

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

const clientSendBuffer = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is same-origin in production; cross-origin policy is
	// enforced upstream by the router middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	// companyID filters the feed; empty means all companies.
	companyID string
}

// Hub fans completed turn traces out to websocket subscribers. It implements
// the engine trace sink.
type Hub struct {
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

var _ engine.TraceSink = (*Hub)(nil)

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Publish sends the trace to every matching subscriber without blocking.
// Clients whose buffers are full miss the trace.
func (h *Hub) Publish(trace engine.Trace) {
	data, err := json.Marshal(trace)
	if err != nil {
		h.logger.Error("failed to marshal trace for live feed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.companyID != "" && c.companyID != trace.CompanyID {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount reports current subscribers, for health and tests.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles GET /v1/livefeed, upgrading to a websocket. The optional
// company query parameter filters the stream to one company.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:      conn,
		send:      make(chan []byte, clientSendBuffer),
		companyID: r.URL.Query().Get("company"),
	}
	h.add(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("live feed client connected", "company_filter", c.companyID)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// writePump drains the client's buffer onto the socket.
func (h *Hub) writePump(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
}

// readPump discards inbound frames and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
