package session

import (
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"snakepit-server/internal/game"
	"snakepit-server/internal/player"
	"snakepit-server/internal/protocol"
)

// Handler ties one WebSocket connection to the shared Game: it runs
// the handshake sequence on first contact and then dispatches decoded
// client frames, grounded on server.py's ws_handler and the teacher's
// Conn.ReadLoop dispatch switch.
type Handler struct {
	game     *game.Game
	registry *Registry
	logger   log.Logger
}

// NewHandler builds a Handler bound to the shared Game and connection
// registry.
func NewHandler(g *game.Game, registry *Registry, logger log.Logger) *Handler {
	return &Handler{game: g, registry: registry, logger: logger}
}

// Serve drives one connection until it disconnects. It blocks; callers
// run it in its own goroutine per accepted socket.
func (h *Handler) Serve(ws *websocket.Conn) {
	id := uuid.NewString()
	conn := NewConn(id, ws)
	h.registry.Add(conn)
	defer h.registry.Remove(id)

	var p *player.Player

	defer func() {
		conn.Close()
		if p != nil {
			p.RemoveConnection(conn)
			if msgs := h.game.Disconnect(p); msgs != nil {
				h.broadcastAll(msgs)
			}
			if p.AnyClosed() {
				h.game.RemovePlayer(p.ID)
			}
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		cmd, err := DecodeRaw(raw)
		if err != nil {
			_ = conn.Send(protocol.Error("malformed message"))
			continue
		}

		switch {
		case cmd.HasKey:
			if p != nil {
				h.game.Keypress(p.ID, cmd.KeyCode)
			}

		case cmd.Tag == protocol.TagNewPlayer:
			if p != nil {
				_ = conn.Send(protocol.Error("already joined"))
				continue
			}
			np, err := h.handleNewPlayer(conn, cmd)
			if err != nil {
				_ = conn.Send(protocol.Error(err.Error()))
				conn.Close()
				return
			}
			p = np

		case cmd.Tag == protocol.TagJoin:
			if p == nil {
				_ = conn.Send(protocol.Error("must send new_player before join"))
				continue
			}
			msgs := h.game.Join(p)
			h.routeJoinMessages(p, msgs)

		case cmd.Tag == protocol.TagPing:
			_ = conn.Send(protocol.Pong(cmd.PingArgs...))

		default:
			level.Debug(h.logger).Log("msg", "unknown client tag", "tag", cmd.Tag)
		}
	}
}

// handleNewPlayer validates the name/id pair and either attaches conn
// to an existing player (reconnect) or mints a fresh one, then runs
// the handshake reply sequence of spec.md §4.G.
func (h *Handler) handleNewPlayer(conn *Conn, cmd protocol.ClientCommand) (*player.Player, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" || len(name) > 15 {
		return nil, errInvalidName
	}
	if cmd.ID != "" && len(cmd.ID) > 36 {
		return nil, errInvalidID
	}

	var p *player.Player
	if cmd.ID != "" {
		if existing, ok := h.game.PlayerByID(cmd.ID); ok {
			p = existing
		}
	}
	if p == nil {
		p = player.New(cmd.ID, name)
		h.game.AddPlayer(p)
	}
	p.AddConnection(conn)

	h.sendHandshake(conn, p)
	return p, nil
}

func (h *Handler) sendHandshake(conn *Conn, p *player.Player) {
	cfg := h.game.Config()
	settings := map[string]any{
		"speed": h.game.Speed(),
		"frame": h.game.Frame(),
		"field_size_x": cfg.FieldSizeX,
		"field_size_y": cfg.FieldSizeY,
	}
	_ = conn.Send(protocol.Handshake(p.Name, p.ID, settings))
	_ = conn.Send(protocol.Sync(h.game.Frame(), h.game.Speed()))
	_ = conn.Send(protocol.World(h.game.WorldSnapshot()))
	_ = conn.Send(protocol.TopScores(h.game.TopScoresPayload()))

	for _, alive := range h.game.AlivePlayers() {
		_ = conn.Send(protocol.PJoined(alive.ID, alive.Name, alive.Color(), alive.Score))
	}
}

// routeJoinMessages sends a Join response to the right audience: an
// `error` tag goes only to the requester, anything else (P_JOINED) is
// broadcast to every connected player.
func (h *Handler) routeJoinMessages(p *player.Player, msgs []protocol.Message) {
	if len(msgs) == 0 {
		return
	}
	if tag, ok := msgs[0][0].(string); ok && tag == protocol.TagError {
		p.Send(protocol.Batch(msgs))
		return
	}
	h.broadcastAll(msgs)
}

func (h *Handler) broadcastAll(msgs []protocol.Message) {
	batch := protocol.Batch(msgs)
	for _, p := range h.allPlayers() {
		p.Send(batch)
	}
}

func (h *Handler) allPlayers() []*player.Player {
	// Broadcasts (P_JOINED on join, P_GAMEOVER/TOP_SCORES on
	// disconnect) must reach every registered player, not just the
	// currently-alive ones, so spectV-joined-but-dead connections stay
	// in sync too.
	return h.game.AllPlayers()
}

var (
	errInvalidName = protoError("invalid player name")
	errInvalidID   = protoError("invalid player id")
)

type protoError string

func (e protoError) Error() string { return string(e) }
