// Package spawner randomizes placement of food digits and stone
// obstacles, grounded on the teacher's food.go (there continuous food
// items with levels; here the single-cell digit/stone overlay of
// spec.md §4.E) and on game.py's spawn_digit/spawn_stone.
package spawner

import (
	"math/rand"

	"snakepit-server/internal/render"
	"snakepit-server/internal/world"
)

// Spawner picks random empty cells to drop digits and stones into.
type Spawner struct {
	World          *world.World
	DigitMin       int
	DigitMax       int
	NumColors      int
	DigitSpawnRate int // percent, 0..100 (0 never spawns unforced)
	StoneSpawnRate int // percent, 0..100 (0 never spawns unforced)
}

// New builds a Spawner bound to a world and the digit/spawn-rate
// settings from config.
func New(w *world.World, digitMin, digitMax, numColors, digitSpawnRate, stoneSpawnRate int) *Spawner {
	return &Spawner{
		World:          w,
		DigitMin:       digitMin,
		DigitMax:       digitMax,
		NumColors:      numColors,
		DigitSpawnRate: digitSpawnRate,
		StoneSpawnRate: stoneSpawnRate,
	}
}

// pickEmptyCell tries up to two random positions and returns the first
// void one found. The original Python implementation treated x==0 or
// y==0 as "no cell found" because of a truthiness check on the
// coordinates (spec.md §9 Open Questions); that is a latent bug and is
// not reproduced here — (0, *) and (*, 0) are valid returned positions.
func (s *Spawner) pickEmptyCell() (world.Position, bool) {
	for i := 0; i < 2; i++ {
		x := rand.Intn(s.World.SizeX)
		y := rand.Intn(s.World.SizeY)
		if s.World.Get(x, y).Char == world.CharVoid {
			return world.Position{X: x, Y: y}, true
		}
	}
	return world.Position{}, false
}

// SpawnDigit paints a random digit in DigitMin..DigitMax, in a random
// palette color, into one empty cell — with probability
// DigitSpawnRate% unless forced is set. Returns nil if the roll failed
// or no empty cell was found.
func (s *Spawner) SpawnDigit(forced bool) []render.Draw {
	if !forced && !rollPercent(s.DigitSpawnRate) {
		return nil
	}
	pos, ok := s.pickEmptyCell()
	if !ok {
		return nil
	}
	digit := byte('0' + s.DigitMin + rand.Intn(s.DigitMax-s.DigitMin+1))
	color := pickRandomColor(s.NumColors)
	return []render.Draw{{X: pos.X, Y: pos.Y, Char: digit, Color: color}}
}

// SpawnStone paints a stone obstacle into one empty cell — with
// probability StoneSpawnRate% unless forced is set.
func (s *Spawner) SpawnStone(forced bool) []render.Draw {
	if !forced && !rollPercent(s.StoneSpawnRate) {
		return nil
	}
	pos, ok := s.pickEmptyCell()
	if !ok {
		return nil
	}
	return []render.Draw{{X: pos.X, Y: pos.Y, Char: world.CharStone, Color: world.ColorNone}}
}

func rollPercent(pct int) bool {
	return rand.Intn(100)+1 <= pct
}

// pickRandomColor returns a random color in 1..numColors (color 0 is
// reserved for neutral/interface/stones).
func pickRandomColor(numColors int) int {
	return 1 + rand.Intn(numColors)
}

// IsDigit reports whether a world cell char is a food digit.
func IsDigit(ch byte) bool {
	return ch >= '1' && ch <= '9'
}

// DigitValue returns the numeric value of a digit glyph.
func DigitValue(ch byte) int {
	return int(ch - '0')
}
