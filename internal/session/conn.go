// Package session implements the transport layer: WebSocket connection
// wrapping, the live-connection registry, and the read loop that
// decodes client frames and dispatches them into the game. Grounded on
// the teacher's Conn/ConnManager in server/connection.go and on
// server.py's ws_handler coroutine.
package session

import (
	"sync"

	"github.com/gorilla/websocket"

	"snakepit-server/internal/protocol"
)

// Conn wraps one WebSocket connection. It implements player.Conn so a
// Player can hold and address it directly.
type Conn struct {
	ID string

	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// NewConn wraps an already-upgraded WebSocket connection.
func NewConn(id string, ws *websocket.Conn) *Conn {
	return &Conn{ID: id, ws: ws}
}

// Send serializes v (a protocol.Message or protocol.Batch) as JSON and
// writes it as one WebSocket text frame.
func (c *Conn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.ws.WriteJSON(v)
}

// Close closes the underlying socket, after sending a GOING_AWAY close
// frame — matching messaging.py's Messaging._close default code.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "closing connection"),
		deadlineNow(),
	)
	_ = c.ws.Close()
}

// Registry tracks every live Conn, independent of which Player (if
// any) currently owns it — used for the server-wide connection count
// (MAX_PLAYERS-adjacent admission checks are per-player, this is for
// raw socket accounting). The end-of-tick sweep of closed connections
// works on players, not on this registry.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Add registers a connection.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

// Remove unregisters a connection.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Count returns the number of currently registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// DecodeRaw parses one inbound WebSocket text frame into a
// ClientCommand.
func DecodeRaw(raw []byte) (protocol.ClientCommand, error) {
	return protocol.DecodeClientCommand(raw)
}
