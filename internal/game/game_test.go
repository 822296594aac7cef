package game

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snakepit-server/internal/config"
	"snakepit-server/internal/logging"
	"snakepit-server/internal/player"
	"snakepit-server/internal/protocol"
	"snakepit-server/internal/scores"
	"snakepit-server/internal/snake"
	"snakepit-server/internal/world"
)

func testConfig() config.Config {
	c := config.Default()
	c.FieldSizeX = 10
	c.FieldSizeY = 5
	c.MaxPlayers = 4
	c.NumColors = 4
	c.DigitSpawnRate = 0
	c.StoneSpawnRate = 0
	c.StonesEnabled = false
	c.InitLength = 3
	c.InitMinDistanceBorder = 1
	c.InitRetries = 5
	c.KillPoints = 1000
	return c
}

func newTestGame(t *testing.T, cfg config.Config) *Game {
	t.Helper()
	topScores, err := scores.Load(filepath.Join(t.TempDir(), "scores.json"), cfg.MaxTopScores)
	require.NoError(t, err)
	g := New(cfg, logging.New(false), topScores)
	g.running = true
	return g
}

// paintSnake writes body head-first into the world and returns a Snake
// wired up to match it exactly, so Tick()'s committed-world reads stay
// consistent with the body the test set up.
func paintSnake(w *world.World, body []world.Position, color int, dir snake.Direction) *snake.Snake {
	s := snake.New(color)
	s.Body = body
	s.Direction = dir
	s.CurrentDirection = dir
	for i, p := range body {
		var ch byte
		switch {
		case i == 0:
			ch = snake.CharHead
		case i == len(body)-1:
			ch = snake.CharTail
		default:
			ch = snake.CharBody
		}
		w.Set(p.X, p.Y, world.Cell{Char: ch, Color: color})
	}
	return s
}

func addPlayer(g *Game, id string, s *snake.Snake) *player.Player {
	p := player.New(id, id)
	p.NewSnake(s)
	g.players[id] = p
	g.order = append(g.order, id)
	return p
}

func tagsOf(batch []protocol.Message) []string {
	out := make([]string, len(batch))
	for i, m := range batch {
		out[i], _ = m[0].(string)
	}
	return out
}

func hasTag(batch []protocol.Message, tag string) bool {
	for _, t := range tagsOf(batch) {
		if t == tag {
			return true
		}
	}
	return false
}

func TestSoloFoodGrowsOverSubsequentTicks(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)

	s := paintSnake(g.world, []world.Position{{X: 5, Y: 2}, {X: 4, Y: 2}, {X: 3, Y: 2}}, 1, snake.Right)
	p := addPlayer(g, "a", s)
	g.world.Set(6, 2, world.Cell{Char: '3', Color: 2})

	batch := g.Tick()
	assert.Equal(t, world.Position{X: 6, Y: 2}, p.Snake.Head())
	assert.Equal(t, 3, p.Score)
	assert.Equal(t, 3, p.Snake.Grow)
	assert.Len(t, p.Snake.Body, 3, "the tick that eats the digit still pops the tail")
	assert.True(t, hasTag(batch, protocol.TagPScore))

	for i := 0; i < 3; i++ {
		g.Tick()
	}
	assert.Len(t, p.Snake.Body, 6, "three held-tail ticks must grow the body by three")
	assert.Equal(t, 0, p.Snake.Grow)
}

func TestWallDeathOnSecondTick(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)

	s := paintSnake(g.world, []world.Position{{X: 2, Y: 1}, {X: 2, Y: 2}, {X: 2, Y: 3}}, 1, snake.Up)
	p := addPlayer(g, "a", s)

	batch := g.Tick()
	assert.True(t, p.Alive(), "moving into (2,0) is still inside the grid")
	assert.False(t, hasTag(batch, protocol.TagPGameover))

	batch = g.Tick()
	assert.False(t, p.Alive(), "moving into (2,-1) is off-grid")
	assert.True(t, hasTag(batch, protocol.TagPGameover))
}

func TestMutualFrontalCrashKillsBothWithNoCredit(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)

	a := paintSnake(g.world, []world.Position{{X: 4, Y: 2}, {X: 3, Y: 2}, {X: 2, Y: 2}}, 1, snake.Right)
	b := paintSnake(g.world, []world.Position{{X: 5, Y: 2}, {X: 5, Y: 1}, {X: 5, Y: 0}}, 2, snake.Down)
	pa := addPlayer(g, "a", a)
	pb := addPlayer(g, "b", b)

	batch := g.Tick()
	assert.False(t, pa.Alive())
	assert.False(t, pb.Alive())
	assert.Equal(t, 0, pa.Score)
	assert.Equal(t, 0, pb.Score, "a frontal crash awards no kill credit")
	assert.False(t, hasTag(batch, protocol.TagPScore))
}

func TestKillByBodyCreditsTheSurvivor(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)

	b := paintSnake(g.world, []world.Position{{X: 8, Y: 2}, {X: 7, Y: 2}, {X: 6, Y: 2}}, 2, snake.Right)
	a := paintSnake(g.world, []world.Position{{X: 4, Y: 2}, {X: 3, Y: 2}, {X: 2, Y: 2}}, 1, snake.Right)
	// (5,2) is committed as a body cell belonging to B before this tick,
	// independent of B's own three painted segments above.
	g.world.Set(5, 2, world.Cell{Char: snake.CharBody, Color: 2})

	pb := addPlayer(g, "b", b)
	pa := addPlayer(g, "a", a)

	batch := g.Tick()
	assert.False(t, pa.Alive(), "A's head enters B's already-committed body")
	assert.True(t, pb.Alive())
	assert.Equal(t, cfg.KillPoints, pb.Score)
	assert.True(t, hasTag(batch, protocol.TagPGameover))
	assert.True(t, hasTag(batch, protocol.TagPScore))
}

func TestTailChaseSucceedsAfterPostponement(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)

	a := paintSnake(g.world, []world.Position{{X: 4, Y: 2}, {X: 3, Y: 2}, {X: 2, Y: 2}}, 1, snake.Right)
	b := paintSnake(g.world, []world.Position{{X: 7, Y: 2}, {X: 6, Y: 2}, {X: 5, Y: 2}}, 2, snake.Right)
	pa := addPlayer(g, "a", a)
	pb := addPlayer(g, "b", b)

	g.Tick()
	assert.True(t, pa.Alive(), "A must survive the exact tail-chase")
	assert.True(t, pb.Alive())
	assert.Equal(t, world.Position{X: 5, Y: 2}, pa.Snake.Head())
	assert.Equal(t, snake.CharHead, g.world.Get(5, 2).Char, "A's head draw must win the shared cell")
}

func TestJoinAllocatesColorAndRejectsAtCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlayers = 1
	g := newTestGame(t, cfg)

	p1 := player.New("p1", "alice")
	g.AddPlayer(p1)
	msgs := g.Join(p1)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TagPJoined, msgs[0][0])
	assert.True(t, p1.Alive())

	p2 := player.New("p2", "bob")
	g.AddPlayer(p2)
	msgs = g.Join(p2)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.TagError, msgs[0][0], "a second join beyond MAX_PLAYERS must be rejected")
}

func TestJoinIsNoopForAnAlreadyAlivePlayer(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)
	p := player.New("p1", "alice")
	g.AddPlayer(p)
	g.Join(p)
	assert.Nil(t, g.Join(p))
}

func TestDisconnectForcesGameOverAndReleasesColor(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)
	p := player.New("p1", "alice")
	g.AddPlayer(p)
	g.Join(p)
	color := p.Color()

	msgs := g.Disconnect(p)
	assert.True(t, hasTag(msgs, protocol.TagPGameover))
	assert.False(t, p.Alive())

	allocated, ok := g.palette.allocate()
	require.True(t, ok)
	assert.Equal(t, color, allocated, "the released color must be the next one allocated")
}

func TestDisconnectOfDeadPlayerIsNoop(t *testing.T) {
	cfg := testConfig()
	g := newTestGame(t, cfg)
	p := player.New("p1", "alice")
	g.AddPlayer(p)
	assert.Nil(t, g.Disconnect(p))
}
