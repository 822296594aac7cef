// Package render implements the per-frame write-once cell overlay used
// by the tick engine, grounded on datatypes.py's Render(OrderedDict) —
// later writes to the same position overwrite earlier ones, and
// iteration order does not matter because only the final value per
// cell is ever applied.
package render

import "snakepit-server/internal/world"

// Draw schedules a single cell update within the current frame.
type Draw struct {
	X, Y  int
	Char  byte
	Color int
}

func (d Draw) pos() world.Position { return world.Position{X: d.X, Y: d.Y} }

// Buffer is the mapping from Position to the latest scheduled Draw.
// It tracks insertion order so a deterministic replay (flush order)
// is possible even though correctness never depends on it.
type Buffer struct {
	byPos map[world.Position]Draw
	order []world.Position
}

// New returns an empty render buffer.
func New() *Buffer {
	return &Buffer{byPos: make(map[world.Position]Draw)}
}

// Append schedules one Draw, overwriting any prior Draw for the same cell.
func (b *Buffer) Append(d Draw) {
	p := d.pos()
	if _, exists := b.byPos[p]; !exists {
		b.order = append(b.order, p)
	}
	b.byPos[p] = d
}

// Get returns the pending Draw scheduled for position (x, y) this
// frame, if any — used by the tick engine's pre-render consultation.
func (b *Buffer) Get(x, y int) (Draw, bool) {
	d, ok := b.byPos[world.Position{X: x, Y: y}]
	return d, ok
}

// Extend appends every Draw in ds, in order.
func (b *Buffer) Extend(ds []Draw) {
	for _, d := range ds {
		b.Append(d)
	}
}

// Draws returns the final Draw for every distinct cell touched this
// frame, in first-touched order.
func (b *Buffer) Draws() []Draw {
	out := make([]Draw, 0, len(b.order))
	for _, p := range b.order {
		out = append(out, b.byPos[p])
	}
	return out
}

// Len reports how many distinct cells have a pending Draw.
func (b *Buffer) Len() int {
	return len(b.order)
}

// Clear empties the buffer for reuse on the next frame.
func (b *Buffer) Clear() {
	b.byPos = make(map[world.Position]Draw)
	b.order = nil
}
