// Package player implements the per-player aggregate: identity, the
// connection set backing it, and its delegation to the currently
// active snake. Grounded on player.py (the keymap of arrow-key codes
// and the alive/color/direction delegating properties) and on the
// teacher's Conn/ConnManager connection-set pattern in
// server/connection.go.
package player

import (
	"sync"

	"github.com/google/uuid"

	"snakepit-server/internal/snake"
)

// Arrow-key codes accepted from the client, matching player.py's keymap.
const (
	KeyLeft  = 37
	KeyUp    = 38
	KeyRight = 39
	KeyDown  = 40
)

var keymap = map[int]snake.Direction{
	KeyLeft:  snake.Left,
	KeyUp:    snake.Up,
	KeyRight: snake.Right,
	KeyDown:  snake.Down,
}

// Conn is the minimal surface a transport connection must provide for
// a Player to own it; internal/session's Conn implements this.
type Conn interface {
	Send(v any) error
	Close()
}

// Player is one participant: a stable id, a display name, zero or more
// live connections (a reconnect adds its connection to the set without
// resetting score or snake), a running score and the Snake currently
// controlling the player's body in the world, if any.
type Player struct {
	ID    string
	Name  string
	Score int
	Snake *snake.Snake

	mu       sync.Mutex
	conns    map[Conn]struct{}
	hadConns bool
}

// New allocates a Player. If id is empty a fresh id is minted via
// google/uuid, matching the teacher's NewConn id allocation; an id is
// supplied explicitly on reconnect so the player keeps their identity.
func New(id, name string) *Player {
	if id == "" {
		id = uuid.New().String()
	}
	return &Player{
		ID:    id,
		Name:  name,
		conns: make(map[Conn]struct{}),
	}
}

// AddConnection registers a live connection for this player. A player
// may have more than one connection briefly during a reconnect race;
// Send fans out to all of them.
func (p *Player) AddConnection(c Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[c] = struct{}{}
	p.hadConns = true
}

// RemoveConnection unregisters a connection, e.g. once its read loop
// observes a close.
func (p *Player) RemoveConnection(c Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, c)
}

// Shutdown closes every connection this player holds.
func (p *Player) Shutdown() {
	p.mu.Lock()
	conns := make([]Conn, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.conns = make(map[Conn]struct{})
	p.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// AnyClosed reports whether this player has held at least one
// connection and has none left — used by the clock loop's end-of-tick
// sweep and by the session handler to decide when to disconnect and
// remove the player. A player that never held a connection (a bot) is
// never reported closed.
func (p *Player) AnyClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hadConns && len(p.conns) == 0
}

// Send delivers one wire value to every connection this player
// currently holds, ignoring individual write errors (a send failure is
// observed by that connection's own read loop instead).
func (p *Player) Send(v any) {
	p.mu.Lock()
	conns := make([]Conn, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	for _, c := range conns {
		_ = c.Send(v)
	}
}

// NewSnake assigns a freshly created snake to this player, replacing
// any previous one (a fresh life after game-over).
func (p *Player) NewSnake(s *snake.Snake) {
	p.Snake = s
}

// Keypress applies the direction-reversal policy to an incoming arrow
// key code, matching player.py's keypress — a no-op once the player's
// snake is dead, and a no-op for any code absent from the keymap.
func (p *Player) Keypress(code int) {
	if !p.Alive() {
		return
	}
	d, ok := keymap[code]
	if !ok {
		return
	}
	p.Snake.SetDirection(d)
}

// Alive reports whether the player's current snake is alive; a player
// with no snake yet is not alive.
func (p *Player) Alive() bool {
	if p.Snake == nil {
		return false
	}
	return p.Snake.Alive
}

// Color returns the player's current snake color, or 0 if the player
// has no snake.
func (p *Player) Color() int {
	if p.Snake == nil {
		return 0
	}
	return p.Snake.Color
}
