// Package snake implements the per-player Snake: its body, its direction
// policy and its per-tick movement, grounded on the teacher's Snake type
// in server/snake.go (there continuous segments; here a discrete grid
// body per spec.md §3/§4.B) and on snake.py's deque-based body.
package snake

import (
	"errors"
	"math/rand"

	"snakepit-server/internal/render"
	"snakepit-server/internal/world"
)

// Direction is one of the four unit vectors a snake can travel in.
type Direction struct {
	DX, DY int
}

var (
	Up    = Direction{0, -1}
	Down  = Direction{0, 1}
	Left  = Direction{-1, 0}
	Right = Direction{1, 0}
)

var all = [4]Direction{Up, Down, Left, Right}

// All returns the four cardinal directions, in the order the original
// game's DIRECTIONS tuple lists them (UP, DOWN, LEFT, RIGHT).
func All() [4]Direction { return all }

func (d Direction) isReverseOf(o Direction) bool {
	return d.DX == -o.DX && d.DY == -o.DY
}

// Equal reports whether two directions are the same vector.
func (d Direction) Equal(o Direction) bool { return d.DX == o.DX && d.DY == o.DY }

// Glyphs used in the world grid (spec.md §3).
const (
	CharHead byte = '@'
	CharBody byte = '*'
	CharTail byte = '$'

	CharDeadHead byte = 'x'
	CharDeadBody byte = '*'
	CharDeadTail byte = '+'
)

// ErrNoPlacement is returned by Create when every retry failed to find
// room for a new snake.
var ErrNoPlacement = errors.New("snake: no placement available in this world")

// errPlacementBlocked is the internal per-attempt failure; Create
// retries on it and only surfaces ErrNoPlacement once retries run out.
var errPlacementBlocked = errors.New("snake: placement attempt blocked")

// Snake is one player's body, direction state and grow counter.
// Body is ordered head-first, tail-last (spec.md §3).
type Snake struct {
	Color            int
	Body             []world.Position
	Direction        Direction // requested direction for the next move
	CurrentDirection Direction // direction actually taken on the last move
	hasMoved         bool
	Grow             int
	Grew             bool
	Alive            bool
}

// New returns a Snake with no body yet (the "newborn" state of
// spec.md §4.F step 3, rendered in via Create/Place).
func New(color int) *Snake {
	return &Snake{Color: color, Alive: true}
}

// HasBody reports whether the snake has been placed in the world yet.
func (s *Snake) HasBody() bool {
	return len(s.Body) > 0
}

// Head returns the snake's head position. Caller must check HasBody.
func (s *Snake) Head() world.Position {
	return s.Body[0]
}

// Len returns the current body length.
func (s *Snake) Len() int {
	return len(s.Body)
}

// NextPosition returns head + direction, the cell the snake is about to
// enter on its next move.
func (s *Snake) NextPosition() world.Position {
	h := s.Body[0]
	return world.Position{X: h.X + s.Direction.DX, Y: h.Y + s.Direction.DY}
}

// SetDirection applies the direction-reversal policy of spec.md §4.B:
// a requested direction is accepted only once the snake has moved at
// least once, and only if it is not the exact reverse of the direction
// actually taken on the last move.
func (s *Snake) SetDirection(d Direction) {
	if !s.hasMoved {
		return
	}
	if d.isReverseOf(s.CurrentDirection) {
		return
	}
	s.Direction = d
}

// Create attempts to lay down initLength cells from tail to head at a
// random interior position and random direction, retrying up to
// retries times on collision with a non-void cell (spec.md §4.B).
// On success it returns the Snake and the Draw list that paints it.
func Create(w *world.World, color, minDistanceFromBorder, initLength, retries int) (*Snake, []render.Draw, error) {
	s := New(color)
	draws, err := s.Place(w, minDistanceFromBorder, initLength, retries)
	if err != nil {
		return nil, nil, err
	}
	return s, draws, nil
}

// Place lays down initLength cells for a snake that already exists
// (color already assigned at join time), retrying as Create does. It
// is the §4.F step 7 "renderNew" operation for a newborn player.
func (s *Snake) Place(w *world.World, minDistanceFromBorder, initLength, retries int) ([]render.Draw, error) {
	for attempt := 0; attempt < retries; attempt++ {
		draws, err := s.attemptPlace(w, minDistanceFromBorder, initLength)
		if err == nil {
			return draws, nil
		}
		s.reset()
	}
	return nil, ErrNoPlacement
}

// HasMoved reports whether the snake has completed at least one move,
// matching robot_snake.py's next_direction(initial=...) gate.
func (s *Snake) HasMoved() bool { return s.hasMoved }

func (s *Snake) reset() {
	s.Grow = 0
	s.Body = nil
	s.Direction = Direction{}
	s.CurrentDirection = Direction{}
	s.hasMoved = false
}

func (s *Snake) attemptPlace(w *world.World, minDistanceFromBorder, initLength int) ([]render.Draw, error) {
	distance := initLength + minDistanceFromBorder
	x := distance + rand.Intn(w.SizeX-2*distance+1)
	y := distance + rand.Intn(w.SizeY-2*distance+1)
	dir := all[rand.Intn(len(all))]
	s.Direction = dir
	s.CurrentDirection = dir

	draws := make([]render.Draw, 0, initLength)
	pos := world.Position{X: x, Y: y}
	body := make([]world.Position, 0, initLength)

	for i := 0; i < initLength; i++ {
		if w.IsInvalid(pos) {
			return nil, errPlacementBlocked
		}
		cell := w.Get(pos.X, pos.Y)
		if cell.Char != world.CharVoid {
			return nil, errPlacementBlocked
		}

		var ch byte
		switch {
		case i == 0:
			ch = CharTail
		case i == initLength-1:
			ch = CharHead
		default:
			ch = CharBody
		}

		body = append([]world.Position{pos}, body...)
		draws = append(draws, render.Draw{X: pos.X, Y: pos.Y, Char: ch, Color: s.Color})
		pos = world.Position{X: pos.X + dir.DX, Y: pos.Y + dir.DY}
	}

	s.Body = body
	return draws, nil
}

// Move advances the snake one tick: it paints a new head, converts the
// old head to body, and either holds the tail in place (while Grow is
// positive) or pops and repaints it — unless ignoreTail is set, which
// is used for the own-tail-chase case (spec.md §4.F) where the same
// snake is about to re-occupy the cell its own tail is vacating, so the
// intermediate VOID repaint must be skipped.
func (s *Snake) Move(ignoreTail bool) []render.Draw {
	newHead := s.NextPosition()
	oldHead := s.Body[0]
	s.Body = append([]world.Position{newHead}, s.Body...)

	draws := make([]render.Draw, 0, 4)
	draws = append(draws, render.Draw{X: newHead.X, Y: newHead.Y, Char: CharHead, Color: s.Color})
	draws = append(draws, render.Draw{X: oldHead.X, Y: oldHead.Y, Char: CharBody, Color: s.Color})

	s.CurrentDirection = s.Direction
	s.hasMoved = true

	if s.Grow > 0 {
		s.Grow--
		s.Grew = true
	} else {
		s.Grew = false
		oldTail := s.Body[len(s.Body)-1]
		s.Body = s.Body[:len(s.Body)-1]
		if !ignoreTail {
			draws = append(draws, render.Draw{X: oldTail.X, Y: oldTail.Y, Char: world.CharVoid, Color: world.ColorNone})
		}
		newTail := s.Body[len(s.Body)-1]
		draws = append(draws, render.Draw{X: newTail.X, Y: newTail.Y, Char: CharTail, Color: s.Color})
	}

	return draws
}

// RenderGameOver paints every body position as its dead glyph variant.
func (s *Snake) RenderGameOver() []render.Draw {
	draws := make([]render.Draw, 0, len(s.Body))
	for i, p := range s.Body {
		var ch byte
		switch {
		case i == 0:
			ch = CharDeadHead
		case i == len(s.Body)-1:
			ch = CharDeadTail
		default:
			ch = CharDeadBody
		}
		draws = append(draws, render.Draw{X: p.X, Y: p.Y, Char: ch, Color: world.ColorNone})
	}
	return draws
}
