package spawner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snakepit-server/internal/world"
)

func TestSpawnDigitForcedAlwaysPaints(t *testing.T) {
	w := world.New(5, 5)
	s := New(w, 1, 9, 4, 0, 0)
	draws := s.SpawnDigit(true)
	require.Len(t, draws, 1)
	assert.True(t, IsDigit(draws[0].Char))
	assert.GreaterOrEqual(t, draws[0].Color, 1)
	assert.LessOrEqual(t, draws[0].Color, 4)
}

func TestSpawnDigitUnforcedNeverRollsAtZeroPercent(t *testing.T) {
	w := world.New(5, 5)
	s := New(w, 1, 9, 4, 0, 0)
	for i := 0; i < 50; i++ {
		if draws := s.SpawnDigit(false); draws != nil {
			t.Fatal("0% spawn rate must never produce a draw")
		}
	}
}

func TestSpawnStoneForcedAlwaysPaints(t *testing.T) {
	w := world.New(5, 5)
	s := New(w, 1, 9, 4, 0, 0)
	draws := s.SpawnStone(true)
	require.Len(t, draws, 1)
	assert.Equal(t, world.CharStone, draws[0].Char)
	assert.Equal(t, world.ColorNone, draws[0].Color)
}

func TestSpawnFailsWhenWorldIsFull(t *testing.T) {
	w := world.New(2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			w.Set(x, y, world.Stone)
		}
	}
	s := New(w, 1, 9, 4, 0, 0)
	if draws := s.SpawnDigit(true); draws != nil {
		t.Fatalf("expected no draw on a full world, got %+v", draws)
	}
}

func TestDigitValue(t *testing.T) {
	assert.Equal(t, 7, DigitValue('7'))
	assert.True(t, IsDigit('1'))
	assert.False(t, IsDigit('0'))
	assert.False(t, IsDigit('a'))
}
