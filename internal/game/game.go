// Package game implements the tick engine: the per-frame world
// resolution algorithm, join/disconnect handling, and the game-over
// sub-procedure, grounded on game.py's GameLoop/Game class and the
// teacher's GameLoop.tick in server/game_loop.go (there a continuous
// collision sweep over a spatial grid; here the discrete, order-
// dependent postponement resolution this grid game requires).
package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"snakepit-server/internal/botai"
	"snakepit-server/internal/config"
	"snakepit-server/internal/player"
	"snakepit-server/internal/protocol"
	"snakepit-server/internal/render"
	"snakepit-server/internal/scores"
	"snakepit-server/internal/snake"
	"snakepit-server/internal/spawner"
	"snakepit-server/internal/world"
)

// Game is the process-wide, single-writer state described in spec.md
// §4: the World, the player table (insertion-ordered), the color
// palette, the top-scores table, the frame counter and current speed.
// Unlike the asyncio original, Go's session handlers run one goroutine
// per connection while the tick loop runs in its own, so every exported
// method takes mu before touching state, matching the teacher's
// RWMutex-guarded World and mutex-guarded ConnManager
// (server/world.go, server/connection.go). Unexported helpers never
// lock themselves — they assume the caller's exported entry point
// already holds mu.
type Game struct {
	mu sync.Mutex

	cfg     config.Config
	logger  log.Logger
	world   *world.World
	spawner *spawner.Spawner
	scores  *scores.Table
	palette *palette

	players map[string]*player.Player
	order   []string
	bots    map[string]botai.Bot

	frame   int
	speed   float64
	running bool

	framesMaxHit bool
}

// New builds a Game bound to cfg, with an empty world and the given
// top-scores table (normally loaded once at process start).
func New(cfg config.Config, logger log.Logger, topScores *scores.Table) *Game {
	w := world.New(cfg.FieldSizeX, cfg.FieldSizeY)
	return &Game{
		cfg:     cfg,
		logger:  logger,
		world:   w,
		spawner: spawner.New(w, cfg.DigitMin, cfg.DigitMax, cfg.NumColors, cfg.DigitSpawnRate, cfg.StoneSpawnRate),
		scores:  topScores,
		palette: newPalette(cfg.NumColors),
		players: make(map[string]*player.Player),
		bots:    make(map[string]botai.Bot),
		speed:   cfg.GameSpeed,
	}
}

// Reset clears the world and frame counter for a fresh game cycle —
// called the moment the first player joins after every snake has
// died (spec.md §4.G MSG_JOIN).
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

func (g *Game) reset() {
	g.world.Reset()
	g.frame = 0
	g.speed = g.cfg.GameSpeed
	g.running = true
	g.framesMaxHit = false
}

// IsRunning reports whether the tick loop should currently be
// stepping this game.
func (g *Game) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Frame returns the current frame counter.
func (g *Game) Frame() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frame
}

// Speed returns the current ticks-per-second rate.
func (g *Game) Speed() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speed
}

// Config exposes the game's settings, e.g. for the session layer's
// handshake payload.
func (g *Game) Config() config.Config { return g.cfg }

// WorldSnapshot returns the full grid as wire-shaped cells, for the
// "world" handshake message.
func (g *Game) WorldSnapshot() [][]protocol.Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	rows := g.world.Snapshot()
	out := make([][]protocol.Cell, len(rows))
	for y, row := range rows {
		wireRow := make([]protocol.Cell, len(row))
		for x, c := range row {
			wireRow[x] = protocol.Cell{string(c.Char), c.Color}
		}
		out[y] = wireRow
	}
	return out
}

// TopScoresPayload returns the current top-scores table in wire shape.
func (g *Game) TopScoresPayload() []protocol.TopScoresEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.topScoresPayload()
}

func (g *Game) topScoresPayload() []protocol.TopScoresEntry {
	entries := g.scores.WithColorHint(g.cfg.NumColors)
	out := make([]protocol.TopScoresEntry, len(entries))
	for i, e := range entries {
		out[i] = protocol.TopScoresEntry(e)
	}
	return out
}

// AlivePlayers returns every currently-alive player, insertion order.
func (g *Game) AlivePlayers() []*player.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.alivePlayers()
}

func (g *Game) alivePlayers() []*player.Player {
	out := make([]*player.Player, 0, len(g.order))
	for _, id := range g.order {
		if p := g.players[id]; p != nil && p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

// AllPlayers returns every registered player, alive or not, insertion
// order — used to fan out join/disconnect broadcasts to every
// connected viewer.
func (g *Game) AllPlayers() []*player.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*player.Player, 0, len(g.order))
	for _, id := range g.order {
		if p := g.players[id]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// AliveCount returns the number of currently-alive players.
func (g *Game) AliveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aliveCount()
}

func (g *Game) aliveCount() int {
	n := 0
	for _, id := range g.order {
		if p := g.players[id]; p != nil && p.Alive() {
			n++
		}
	}
	return n
}

// PlayerByID looks up a registered player.
func (g *Game) PlayerByID(id string) (*player.Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[id]
	return p, ok
}

// AddPlayer registers a brand-new player into the table.
func (g *Game) AddPlayer(p *player.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.players[p.ID]; exists {
		return
	}
	g.players[p.ID] = p
	g.order = append(g.order, p.ID)
}

// RemovePlayer drops bookkeeping for a player whose connection set has
// gone empty (spec.md §4.G "when the player's connection set is empty,
// remove the Player").
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.players, id)
	delete(g.bots, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// SetBot attaches an AI controller to a player; the tick engine will
// steer that player's snake through the bot instead of expecting
// keypress input.
func (g *Game) SetBot(id string, b botai.Bot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bots[id] = b
}

// Join applies the MSG_JOIN rule of spec.md §4.G. The returned
// messages must be broadcast to every player unless the first message
// is a `error` tag, in which case it is meant only for the requesting
// player. A fresh game cycle additionally prepends a reset_world
// message so every already-connected viewer drops the previous game's
// cells before the new one is rendered.
func (g *Game) Join(p *player.Player) []protocol.Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	didReset := false
	if !g.running {
		g.reset()
		didReset = true
	}
	if p.Alive() {
		return nil
	}
	if g.aliveCount() >= g.cfg.MaxPlayers {
		return []protocol.Message{protocol.Error("Maximum players reached")}
	}
	color, ok := g.palette.allocate()
	if !ok {
		return []protocol.Message{protocol.Error("Maximum players reached")}
	}
	p.NewSnake(snake.New(color))
	msgs := []protocol.Message{protocol.PJoined(p.ID, p.Name, color, p.Score)}
	if didReset {
		msgs = append([]protocol.Message{protocol.ResetWorld()}, msgs...)
	}
	return msgs
}

// Disconnect applies the forced game-over half of spec.md §4.G's
// playerDisconnected: if the player was alive, kill their snake now so
// the world stays consistent before the connection bookkeeping is torn
// down by the caller.
func (g *Game) Disconnect(p *player.Player) []protocol.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !p.Alive() {
		return nil
	}
	colorOwner := g.colorOwnerMap()
	msgs, draws := g.gameOver(colorOwner, p, nil, false)
	g.flushDraws(&msgs, draws)
	return msgs
}

// Keypress applies an incoming arrow-key code to the named player's
// snake direction. Routed through Game (rather than called directly on
// the Player by the session handler) so it serializes against Tick's
// concurrent reads of the same Snake's direction.
func (g *Game) Keypress(id string, code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.players[id]; ok {
		p.Keypress(code)
	}
}

// ShutdownRequested reports whether GAME_FRAMES_MAX was reached with
// GAME_SHUTDOWN_ON_FRAMES_MAX set, signalling the clock loop to stop
// the whole process rather than just the current game.
func (g *Game) ShutdownRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.framesMaxHit && g.cfg.GameShutdownOnFramesMax
}

func (g *Game) colorOwnerMap() map[int]*player.Player {
	m := make(map[int]*player.Player)
	for _, id := range g.order {
		p := g.players[id]
		if p != nil && p.Snake != nil && p.Snake.HasBody() && p.Alive() {
			m[p.Snake.Color] = p
		}
	}
	return m
}

func (g *Game) flushDraws(batch *[]protocol.Message, draws []render.Draw) {
	R := render.New()
	R.Extend(draws)
	for _, d := range R.Draws() {
		g.world.Set(d.X, d.Y, world.Cell{Char: d.Char, Color: d.Color})
		*batch = append(*batch, protocol.Render(d.X, d.Y, d.Char, d.Color))
	}
}

// Tick advances the world by one frame, implementing the algorithm of
// spec.md §4.F in full: pre-render consultation, postponement,
// frontal-crash resolution, digit/stone spawning and newborn
// placement. It returns the full outgoing message batch for this
// frame (sync first, as required by spec.md §5's ordering guarantee).
func (g *Game) Tick() []protocol.Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.frame++
	batch := []protocol.Message{protocol.Sync(g.frame, g.speed)}

	g.driveBots()

	R := render.New()
	moves := make(map[string]int)
	frontalCrashers := make(map[string]struct{})
	headOwnerAt := make(map[world.Position]string)
	var newBorn []*player.Player

	colorOwner := g.colorOwnerMap()

	pending := make([]*player.Player, 0, len(g.order))
	for _, id := range g.order {
		if p := g.players[id]; p != nil && p.Alive() {
			pending = append(pending, p)
		}
	}

	for idx := 0; idx < len(pending); idx++ {
		p := pending[idx]

		if !p.Snake.HasBody() {
			newBorn = append(newBorn, p)
			continue
		}

		np := p.Snake.NextPosition()
		if g.world.IsInvalid(np) {
			msgs, draws := g.gameOver(colorOwner, p, nil, false)
			batch = append(batch, msgs...)
			R.Extend(draws)
			continue
		}

		cur := g.world.Get(np.X, np.Y)
		pre, hasPre := R.Get(np.X, np.Y)

		firstVisit := false
		if _, seen := moves[p.ID]; !seen {
			firstVisit = true
			moves[p.ID] = 0
		}

		var (
			grow          int
			snakeCrash    bool
			tailChase     bool
			tailCrash     bool
			ownTailChaser bool
			frontalViaPre bool
		)

		if hasPre {
			switch {
			case isDeadGlyph(pre):
				// permitted: will be overwritten this frame.
			case pre.Char == snake.CharHead && (cur.Char == world.CharVoid || spawner.IsDigit(cur.Char)):
				frontalViaPre = true
			case pre.Char == snake.CharTail && cur.Char == snake.CharTail:
				tailCrash = true
			case pre.Char == world.CharVoid && cur.Char == snake.CharTail:
				tailChase = true
			case pre.Char == snake.CharBody:
				snakeCrash = true
			}
		}

		if tailCrash {
			msgs, draws := g.gameOver(colorOwner, p, nil, false)
			batch = append(batch, msgs...)
			R.Extend(draws)
			continue
		}
		if frontalViaPre {
			frontalCrashers[p.ID] = struct{}{}
			if ownerID, ok := headOwnerAt[np]; ok {
				frontalCrashers[ownerID] = struct{}{}
			}
			continue
		}

		postponed := false
		died := false
		var killerCell *world.Cell

		switch {
		case spawner.IsDigit(cur.Char):
			grow = spawner.DigitValue(cur.Char)
			p.Score += grow
			batch = append(batch, protocol.PScore(p.ID, p.Score))

		case cur.Char == snake.CharTail:
			if cur.Color == p.Snake.Color {
				ownTailChaser = true
			} else {
				q := colorOwner[cur.Color]
				otherMoved := moves[q.ID] > 0
				tailWontMove := (!otherMoved && q.Snake.Grow > 0) || (otherMoved && q.Snake.Grew)
				if tailWontMove {
					cell := cur
					killerCell = &cell
					died = true
					break
				}
			}
			if !ownTailChaser && !tailChase {
				if !firstVisit {
					level.Warn(g.logger).Log("msg", "tail postponement on repeat visit, forcing death to avoid livelock", "player", p.ID)
					cell := cur
					killerCell = &cell
					died = true
					break
				}
				pending = append(pending, p)
				postponed = true
			}

		default:
			if cur.Char != world.CharVoid && !tailChase {
				if cur.Char == snake.CharBody {
					if owner, ok := colorOwner[cur.Color]; ok {
						if _, started := moves[owner.ID]; !started && firstVisit {
							pending = append(pending, p)
							postponed = true
							break
						}
					}
				}
				if !postponed {
					if owner, ok := colorOwner[cur.Color]; ok && cur.Char == snake.CharHead && owner.Alive() && !snakeCrash {
						frontalCrashers[p.ID] = struct{}{}
						frontalCrashers[owner.ID] = struct{}{}
						postponed = true // reuse flag to skip the move below
						break
					}
					cell := cur
					killerCell = &cell
					died = true
				}
			}
		}

		if died {
			msgs, draws := g.gameOver(colorOwner, p, killerCell, false)
			batch = append(batch, msgs...)
			R.Extend(draws)
			continue
		}
		if postponed {
			continue
		}

		draws := p.Snake.Move(ownTailChaser)
		R.Extend(draws)
		for _, d := range draws {
			if d.Char == snake.CharHead {
				headOwnerAt[world.Position{X: d.X, Y: d.Y}] = p.ID
			}
		}
		p.Snake.Grow += grow
		moves[p.ID]++
	}

	for id := range frontalCrashers {
		p, ok := g.players[id]
		if !ok || !p.Alive() {
			continue
		}
		msgs, draws := g.gameOver(colorOwner, p, nil, true)
		batch = append(batch, msgs...)
		R.Extend(draws)
	}

	g.flush(&batch, R)

	for i := 0; i < g.aliveCount(); i++ {
		R.Extend(g.spawner.SpawnDigit(false))
	}

	for _, p := range newBorn {
		draws, err := p.Snake.Place(g.world, g.cfg.InitMinDistanceBorder, g.cfg.InitLength, g.cfg.InitRetries)
		if err != nil {
			p.Send(protocol.Error(fmt.Sprintf("could not place snake: %v", err)))
			msgs, deathDraws := g.gameOver(colorOwner, p, nil, false)
			batch = append(batch, msgs...)
			R.Extend(deathDraws)
			continue
		}
		R.Extend(draws)
		R.Extend(g.spawner.SpawnDigit(true))
	}

	g.flush(&batch, R)

	if g.cfg.StonesEnabled {
		R.Extend(g.spawner.SpawnStone(false))
		g.flush(&batch, R)
	}

	g.applySpeedRamp()
	g.checkFramesMax(&batch, colorOwner)

	return batch
}

func (g *Game) flush(batch *[]protocol.Message, R *render.Buffer) {
	for _, d := range R.Draws() {
		g.world.Set(d.X, d.Y, world.Cell{Char: d.Char, Color: d.Color})
		*batch = append(*batch, protocol.Render(d.X, d.Y, d.Char, d.Color))
	}
	R.Clear()
}

func (g *Game) driveBots() {
	for id, bot := range g.bots {
		p, ok := g.players[id]
		if !ok || !p.Alive() {
			continue
		}
		initial := !p.Snake.HasMoved()
		if d, ok := bot.NextDirection(g.world, p.Snake, initial); ok {
			p.Snake.SetDirection(d)
		}
	}
}

func (g *Game) applySpeedRamp() {
	if g.cfg.GameSpeedIncrease <= 0 || g.frame < g.cfg.GameSpeedIncrease {
		return
	}
	capped := g.cfg.GameSpeedMax > 0
	if capped && g.speed >= g.cfg.GameSpeedMax {
		return
	}
	g.speed *= 1 + g.cfg.GameSpeedIncreaseRate
	if capped && g.speed > g.cfg.GameSpeedMax {
		g.speed = g.cfg.GameSpeedMax
	}
}

func (g *Game) checkFramesMax(batch *[]protocol.Message, colorOwner map[int]*player.Player) {
	if g.framesMaxHit || g.cfg.GameFramesMax <= 0 || g.frame < g.cfg.GameFramesMax {
		return
	}
	g.framesMaxHit = true
	for _, p := range g.alivePlayers() {
		msgs, draws := g.gameOver(colorOwner, p, nil, false)
		*batch = append(*batch, msgs...)
		g.flushDraws(batch, draws)
	}
	level.Info(g.logger).Log("msg", "frame cap reached, ending game", "frame", g.frame)
}

// gameOver implements spec.md §4.F.2: it kills P's snake, announces it,
// credits a kill to chHit's owner when applicable, releases P's color,
// recomputes top scores, and — if no snakes remain alive — paints the
// game-over banner and persists the top-scores file. frontalCrash
// suppresses kill credit: a head-on collision has no survivor to credit.
func (g *Game) gameOver(colorOwner map[int]*player.Player, p *player.Player, chHit *world.Cell, frontalCrash bool) ([]protocol.Message, []render.Draw) {
	draws := p.Snake.RenderGameOver()
	color := p.Snake.Color
	p.Snake.Alive = false

	msgs := []protocol.Message{protocol.PGameover(p.ID)}

	if !frontalCrash && chHit != nil {
		if owner, ok := colorOwner[chHit.Color]; ok && owner.Alive() && owner.Snake.Color != color {
			owner.Score += g.cfg.KillPoints
			msgs = append(msgs, protocol.PScore(owner.ID, owner.Score))
		}
	}

	g.palette.release(color)
	g.scores.Update(p.Name, p.Score)

	if g.aliveCount() == 0 {
		draws = append(draws, g.renderGameOverBanner()...)
		if err := g.scores.Save(); err != nil {
			level.Error(g.logger).Log("msg", "failed to persist top scores", "err", err)
		}
		g.running = false
	}

	msgs = append(msgs, protocol.TopScores(g.topScoresPayload()))

	return msgs, draws
}

func (g *Game) renderGameOverBanner() []render.Draw {
	text := config.GameOverText
	y := g.world.SizeY / 2
	x := (g.world.SizeX - len(text)) / 2
	if x < 0 {
		x = 0
	}
	color := 1 + rand.Intn(g.cfg.NumColors)
	draws := make([]render.Draw, 0, len(text))
	for i := 0; i < len(text) && x+i < g.world.SizeX; i++ {
		draws = append(draws, render.Draw{X: x + i, Y: y, Char: text[i], Color: color})
	}
	return draws
}

func isDeadGlyph(d render.Draw) bool {
	if d.Char == snake.CharDeadHead || d.Char == snake.CharDeadTail {
		return true
	}
	return d.Char == snake.CharBody && d.Color == world.ColorNone
}
