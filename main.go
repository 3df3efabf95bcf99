package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"set-game-server/ai"
	"set-game-server/api"
	"set-game-server/config"
	"set-game-server/game"
	"set-game-server/input"
	"set-game-server/loghandler"
	"set-game-server/ruleset"
	"set-game-server/ui"
	"set-game-server/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using environment variables", "tag", "main")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, cfg.SlogLevel())))
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "tag", "main", "err", err)
		os.Exit(1)
	}

	slog.Info("configuration", "tag", "main",
		"table", fmt.Sprintf("%dx%d", cfg.Rows, cfg.Columns), "deck", cfg.DeckSize(),
		"humans", cfg.HumanPlayers, "computers", cfg.ComputerPlayers,
		"turn_timeout_ms", cfg.TurnTimeoutMS, "http_port", cfg.HTTPPort)

	a, err := newApp(cfg)
	if err != nil {
		slog.Error("failed to set up game", "tag", "main", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.run(ctx, fmt.Sprintf(":%d", cfg.HTTPPort), os.Stdin)
	if err != nil {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
	slog.Info("game over", "tag", "main", "game", a.dealer.ID, "winners", res.Winners, "scores", res.Scores)
}

// app is one game together with the servers that expose it.
type app struct {
	cfg     *config.Config
	dealer  *game.Dealer
	players []*game.Player
	hub     *ws.Hub
	mux     *http.ServeMux
	keymap  input.Keymap
}

func newApp(cfg *config.Config) (*app, error) {
	keymap, err := input.NewKeymap(cfg.PlayerKeys[:cfg.HumanPlayers])
	if err != nil {
		return nil, err
	}

	rules := ruleset.New(cfg.FeatureSize, cfg.FeatureCount)
	hub := ws.NewHub()
	sink := ui.Fanout{ui.NewLogSink(cfg.PlayerName), hub}
	table := game.NewTable(cfg, rules, sink)

	// Humans take the lowest ids.
	players := make([]*game.Player, cfg.Players())
	for id := range players {
		var pilot game.Autopilot
		if id >= cfg.HumanPlayers {
			pilot = ai.New(cfg.AIProfile(id-cfg.HumanPlayers), cfg.TableSize(), table, rules)
		}
		players[id] = game.NewPlayer(id, cfg.PlayerName(id), cfg, table, sink, pilot)
	}

	dealer := game.NewDealer(uuid.NewString(), cfg, table, players, rules, sink)
	hub.Source = dealer

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	api.NewHandler(dealer).Register(mux)

	return &app{
		cfg:     cfg,
		dealer:  dealer,
		players: players,
		hub:     hub,
		mux:     mux,
		keymap:  keymap,
	}, nil
}

// run plays the game while serving spectators and the API on addr. It returns
// when the game ends or ctx is cancelled; keys are read from stdin when there
// are human players.
func (a *app) run(ctx context.Context, addr string, stdin io.Reader) (game.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	srv := &http.Server{Addr: addr, Handler: a.mux}
	g.Go(func() error {
		slog.Info("set game server listening", "tag", "main", "addr", addr, "game", a.dealer.ID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})

	if stdin != nil && a.cfg.HumanPlayers > 0 {
		pads := make([]game.Keypad, a.cfg.HumanPlayers)
		for i := range pads {
			pads[i] = a.players[i]
		}
		g.Go(func() error {
			return input.Run(gctx, stdin, a.keymap, pads)
		})
	}

	var res game.Result
	g.Go(func() error {
		res = a.dealer.Run(gctx)
		// The game is over; take the servers down with it.
		cancel()
		return nil
	})

	err := g.Wait()
	return res, err
}
