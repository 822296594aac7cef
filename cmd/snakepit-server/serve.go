package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"snakepit-server/internal/botai"
	"snakepit-server/internal/clock"
	"snakepit-server/internal/config"
	"snakepit-server/internal/game"
	"snakepit-server/internal/logging"
	"snakepit-server/internal/player"
	"snakepit-server/internal/scores"
	"snakepit-server/internal/session"
)

const webSocketPath = "/ws"

var serveBotCount int

// ServeCmd starts the WebSocket server and its tick loop, grounded on
// the teacher's main() wiring in server/main.go.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the snakepit game server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	ServeCmd.Flags().IntVar(&serveBotCount, "bots", 0, "Number of AI-controlled snakes to join at startup")
}

func runServe() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.Debug)

	topScores, err := scores.Load(cfg.TopScoresFile, cfg.MaxTopScores)
	if err != nil {
		return err
	}

	g := game.New(cfg, logger, topScores)
	registry := session.NewRegistry()
	handler := session.NewHandler(g, registry, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grp, grpCtx := errgroup.WithContext(ctx)

	loop := clock.New(g, logger, stop)
	grp.Go(func() error {
		return loop.Run(grpCtx)
	})

	seedBots(g, cfg, serveBotCount)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc(webSocketPath, func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			level.Warn(logger).Log("msg", "ws upgrade failed", "err", err)
			return
		}
		go handler.Serve(ws)
	})

	srv := &http.Server{Addr: cfg.Host + ":" + cfg.Port, Handler: mux}

	grp.Go(func() error {
		level.Info(logger).Log("msg", "listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	grp.Go(func() error {
		<-grpCtx.Done()
		return srv.Shutdown(context.Background())
	})

	return grp.Wait()
}

// seedBots joins n AI-controlled snakes to the arena once, at startup,
// grounded on the teacher's BotManager pre-population in
// server/game_loop.NewGameLoop. A bot whose snake dies does not rejoin.
func seedBots(g *game.Game, cfg config.Config, n int) {
	for i := 0; i < n; i++ {
		p := newBotPlayer(i)
		g.AddPlayer(p)
		g.SetBot(p.ID, botai.NewWallGrinder(cfg.InitMinDistanceBorder))
		g.Join(p)
	}
}

func newBotPlayer(i int) *player.Player {
	return player.New("", fmt.Sprintf("Bot-%d", i+1))
}
