// Package clock drives the fixed-step tick loop described in spec.md
// §4.I: before each tick it steps the game, broadcasts the resulting
// message batch, then sweeps players whose connection set has gone
// empty. Grounded on the teacher's GameLoop.Run ticker in
// server/game_loop.go and on server.py's cooperative game_loop
// coroutine.
package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"snakepit-server/internal/game"
	"snakepit-server/internal/protocol"
)

// idlePoll is how often the loop checks whether a new game has
// started while no snakes are alive. The cooperative model in
// spec.md §4.I expects the loop to simply stop ticking between games
// rather than spin a ticker at a stale speed.
const idlePoll = 200 * time.Millisecond

// Loop owns the fixed-timestep driver for one Game.
type Loop struct {
	game       *game.Game
	logger     log.Logger
	onShutdown func()
}

// New builds a Loop bound to g. onShutdown is invoked once if
// GAME_FRAMES_MAX is reached with GAME_SHUTDOWN_ON_FRAMES_MAX set.
func New(g *game.Game, logger log.Logger, onShutdown func()) *Loop {
	return &Loop{game: g, logger: logger, onShutdown: onShutdown}
}

// Run blocks, stepping the game at its current speed until ctx is
// canceled. It is meant to be run inside an errgroup alongside the
// HTTP listener.
func (l *Loop) Run(ctx context.Context) error {
	level.Info(l.logger).Log("msg", "tick loop started")
	defer func() {
		if r := recover(); r != nil {
			level.Error(l.logger).Log("msg", "internal error in tick loop", "err", r)
			l.broadcast([]protocol.Message{protocol.Error(fmt.Sprintf("Internal server error: %v", r))})
			panic(r)
		}
	}()
	for {
		if ctx.Err() != nil {
			return nil
		}

		if !l.game.IsRunning() || l.game.AliveCount() == 0 {
			if !sleep(ctx, idlePoll) {
				return nil
			}
			continue
		}

		batch := l.game.Tick()
		l.broadcast(batch)
		l.sweepClosed()

		if l.game.ShutdownRequested() {
			level.Info(l.logger).Log("msg", "game frame cap reached, shutting down")
			if l.onShutdown != nil {
				l.onShutdown()
			}
			return nil
		}

		interval := time.Duration(float64(time.Second) / l.game.Speed())
		if !sleep(ctx, interval) {
			return nil
		}
	}
}

// sweepClosed disconnects any player whose connection set went empty
// between ticks, matching spec.md §4.I's end-of-tick sweep.
func (l *Loop) sweepClosed() {
	for _, p := range l.game.AllPlayers() {
		if !p.AnyClosed() {
			continue
		}
		if msgs := l.game.Disconnect(p); msgs != nil {
			l.broadcast(msgs)
		}
		l.game.RemovePlayer(p.ID)
	}
}

func (l *Loop) broadcast(batch []protocol.Message) {
	players := l.game.AllPlayers()
	wire := protocol.Batch(batch)
	for _, p := range players {
		p.Send(wire)
	}
}

// sleep waits for d or ctx cancellation, reporting which happened
// first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
