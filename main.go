package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/game"
	"github.com/pthm-cable/forage/server"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without the websocket server")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster runs)")
	addr := flag.String("addr", "", "Listen address (empty = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	g, err := game.NewGameWithOptions(game.Options{
		Seed:           rngSeed,
		Config:         cfg,
		LogStats:       *logStats,
		OutputDir:      *outputDir,
		StepsPerUpdate: *stepsPerUpdate,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer g.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *headless {
		logger.Info("starting headless simulation",
			"seed", rngSeed,
			"max_ticks", *maxTicks,
			"steps_per_update", *stepsPerUpdate,
		)
		runHeadless(ctx, logger, g, *maxTicks, *stepsPerUpdate)
		return
	}

	listen := cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}
	if err := serve(ctx, logger, g, listen, cfg.Server.TickRate, *maxTicks, *stepsPerUpdate); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// runHeadless steps the simulation as fast as possible.
func runHeadless(ctx context.Context, logger *slog.Logger, g *game.Game, maxTicks, stepsPerUpdate int) {
	g.Start()
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted", "tick", g.Tick())
			return
		default:
		}

		g.SetStepsPerUpdate(updateSteps(g.Tick(), maxTicks, stepsPerUpdate))
		g.Update()

		if maxTicks > 0 && g.Tick() >= maxTicks {
			logger.Info("max ticks reached", "tick", g.Tick())
			return
		}
		if g.AliveCount() == 0 {
			logger.Info("population extinct", "tick", g.Tick())
			return
		}
	}
}

// serve drives the frame clock and streams snapshots to websocket clients.
// The simulation starts paused until a client sends "start".
func serve(ctx context.Context, logger *slog.Logger, g *game.Game, addr string, tickRate float64, maxTicks, stepsPerUpdate int) error {
	srv := server.New(g, logger)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if tickRate <= 0 {
		tickRate = 10
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / tickRate))
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-errCh:
			return err
		case <-ticker.C:
			g.SetStepsPerUpdate(updateSteps(g.Tick(), maxTicks, stepsPerUpdate))
			if g.Update() {
				srv.Broadcast()
			}
			if maxTicks > 0 && g.Tick() >= maxTicks {
				logger.Info("max ticks reached", "tick", g.Tick())
				break loop
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// updateSteps returns how many ticks the next update may run so that a
// max-ticks limit is never overshot. maxTicks <= 0 means unlimited.
func updateSteps(tick, maxTicks, stepsPerUpdate int) int {
	if stepsPerUpdate < 1 {
		stepsPerUpdate = 1
	}
	if maxTicks <= 0 {
		return stepsPerUpdate
	}
	if remaining := maxTicks - tick; remaining < stepsPerUpdate {
		return max(remaining, 1)
	}
	return stepsPerUpdate
}
