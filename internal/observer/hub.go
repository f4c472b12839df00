// Package observer publishes account/portfolio/token state to connected
// websocket peers on a best-effort basis: messages to slow peers are dropped
// and disconnected peers are removed, rather than letting either
// back-pressure the scheduler loop.
package observer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Channel names the observer publishes on.
const (
	ChannelAccount   = "account"
	ChannelPortfolio = "portfolio"
	ChannelTokens    = "tokens"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected peers and the latest payload published on each
// channel, for replay to newly-connecting clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	latest  map[string]envelope
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		latest:  make(map[string]envelope),
	}
}

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	TS      time.Time       `json:"ts"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// ServeHTTP upgrades the request to a websocket and registers the peer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("observer upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c] = true
	snapshot := make([][]byte, 0, len(h.latest))
	for _, env := range h.latest {
		if b, err := json.Marshal(env); err == nil {
			snapshot = append(snapshot, b)
		}
	}
	h.mu.Unlock()

	for _, b := range snapshot {
		select {
		case c.send <- b:
		default:
		}
	}

	go h.writePump(c)
	go h.readPump(c)
}

// writePump drains c.send to the socket. Exits (and triggers peer removal)
// on any write error.
func (h *Hub) writePump(c *client) {
	defer h.removeClient(c)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only exists to detect peer disconnects (the observer protocol is
// publish-only; clients never send anything meaningful).
func (h *Hub) readPump(c *client) {
	defer h.removeClient(c)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// Publish hand-crafts a channel envelope and fans it out to every connected
// client. Sends never block (non-blocking channel send): a full send buffer
// silently loses the message for that client, which stays connected — the
// observer is lossy by design.
func (h *Hub) Publish(channel string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Warn("observer publish marshal failed", "channel", channel, "err", err)
		return
	}
	env := envelope{Channel: channel, Data: raw, TS: time.Now().UTC()}
	buf, err := json.Marshal(env)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.latest[channel] = env
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- buf:
		default:
		}
	}
}

// ClientCount returns the number of currently connected peers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
