// Package protocol defines the wire message tags and payload shapes
// exchanged over the game's WebSocket connections, grounded on
// messaging.py's MSG_* tag constants and on the teacher's
// server/protocol.go typed-payload convention — here array-tagged
// (`[tag, ...args]`) rather than single-char object keys, per spec.md
// §6.
package protocol

import "encoding/json"

// Message tags, matching messaging.py's MSG_* constants one for one.
const (
	TagHandshake  = "handshake"
	TagWorld      = "world"
	TagResetWorld = "reset_world"
	TagRender     = "render"
	TagSync       = "sync"
	TagPJoined    = "p_joined"
	TagPGameover  = "p_gameover"
	TagPScore     = "p_score"
	TagTopScores  = "top_scores"
	TagJoin       = "join"
	TagNewPlayer  = "new_player"
	TagPing       = "ping"
	TagPong       = "pong"
	TagError      = "error"
)

// Message is one `[tag, ...args]` wire value. It marshals as a JSON
// array whose first element is the tag string.
type Message []any

// Sync announces the current frame number and tick speed.
func Sync(frame int, speed float64) Message {
	return Message{TagSync, frame, speed}
}

// Render announces a single committed cell change.
func Render(x, y int, char byte, color int) Message {
	return Message{TagRender, x, y, string(char), color}
}

// Handshake is the first message sent to a newly joined connection.
func Handshake(name, id string, settings any) Message {
	return Message{TagHandshake, name, id, settings}
}

// Cell is the wire shape of one world grid cell: [char, color].
type Cell [2]any

// World announces the full grid as nested rows of cells.
func World(grid [][]Cell) Message {
	return Message{TagWorld, grid}
}

// ResetWorld tells clients to clear their local world copy.
func ResetWorld() Message {
	return Message{TagResetWorld}
}

// PJoined announces a newly placed player.
func PJoined(id, name string, color, score int) Message {
	return Message{TagPJoined, id, name, color, score}
}

// PScore announces a player's updated score.
func PScore(id string, score int) Message {
	return Message{TagPScore, id, score}
}

// PGameover announces a player's death.
func PGameover(id string) Message {
	return Message{TagPGameover, id}
}

// TopScoresEntry is one row of the `top_scores` payload.
type TopScoresEntry [3]any // [name, score, colorHint]

// TopScores announces the current top-scores table.
func TopScores(entries []TopScoresEntry) Message {
	return Message{TagTopScores, entries}
}

// Error reports a protocol-level failure to one connection.
func Error(message string) Message {
	return Message{TagError, message}
}

// Pong replies to a client ping, echoing any extra arguments back.
func Pong(args ...any) Message {
	m := Message{TagPong}
	return append(m, args...)
}

// Batch is a server→client frame carrying more than one message at
// once: `[[tag, args…], …]`.
type Batch []Message

// ClientCommand is one decoded client→server frame: either a tagged
// message (new_player, join, ping) or a bare integer key code.
type ClientCommand struct {
	KeyCode  int
	HasKey   bool
	Tag      string
	Name     string // new_player
	ID       string // new_player, optional reconnect id
	PingArgs []any  // ping
}

// DecodeClientCommand parses one raw client frame. A frame is either a
// bare JSON number (a key code) or a `[tag, ...]` array.
func DecodeClientCommand(raw []byte) (ClientCommand, error) {
	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return ClientCommand{KeyCode: asInt, HasKey: true}, nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return ClientCommand{}, err
	}
	if len(arr) == 0 {
		return ClientCommand{}, errInvalidCommand
	}

	var tag string
	if err := json.Unmarshal(arr[0], &tag); err != nil {
		return ClientCommand{}, err
	}

	cmd := ClientCommand{Tag: tag}
	switch tag {
	case TagNewPlayer:
		if len(arr) > 1 {
			_ = json.Unmarshal(arr[1], &cmd.Name)
		}
		if len(arr) > 2 {
			_ = json.Unmarshal(arr[2], &cmd.ID)
		}
	case TagJoin:
		// no arguments
	case TagPing:
		for _, raw := range arr[1:] {
			var v any
			_ = json.Unmarshal(raw, &v)
			cmd.PingArgs = append(cmd.PingArgs, v)
		}
	}
	return cmd, nil
}

var errInvalidCommand = jsonError("protocol: empty client command")

type jsonError string

func (e jsonError) Error() string { return string(e) }
