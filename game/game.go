// Package game owns the world state and the tick loop of the foraging simulation.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/grid"
	"github.com/pthm-cable/forage/systems"
	"github.com/pthm-cable/forage/telemetry"
)

// Game holds the complete simulation state. All exported methods are safe
// for concurrent use; ticks, controls and snapshots are serialized.
type Game struct {
	mu sync.Mutex

	cfg    *config.Config
	params systems.Params
	rng    *rand.Rand
	logger *slog.Logger

	world *ecs.World
	grid  *grid.Grid

	// Agent components, one entity per agent
	agentMap *ecs.Map4[
		components.Position,
		components.Energy,
		components.Forager,
		components.Brain,
	]

	// Population order; agents step in this order every tick
	order []ecs.Entity

	// State
	tick           int
	running        bool
	paused         bool
	nextID         uint32
	aliveCount     int
	stepsPerUpdate int

	// Telemetry
	collector       *telemetry.Collector
	perfCollector   *telemetry.PerfCollector
	lifetimeTracker *telemetry.LifetimeTracker
	bookmarks       *telemetry.BookmarkDetector
	outputManager   *telemetry.OutputManager
	logStats        bool
	statsCallback   func(telemetry.WindowStats)
}

// NewGameWithOptions creates a game and populates its first world.
// The game starts stopped; call Start before Update advances it.
func NewGameWithOptions(opts Options) (*Game, error) {
	opts = opts.withDefaults()

	g := &Game{
		logger:         opts.Logger,
		stepsPerUpdate: opts.StepsPerUpdate,
		logStats:       opts.LogStats,
		statsCallback:  opts.StatsCallback,
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.outputManager = om

	if err := g.reset(opts.Config.Clone(), rand.New(rand.NewSource(opts.Seed))); err != nil {
		om.Close()
		return nil, err
	}

	if err := om.WriteConfig(g.cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return g, nil
}

// Close flushes and closes any output files.
func (g *Game) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outputManager.Close()
}

// Tick returns the number of completed ticks since the last reset.
func (g *Game) Tick() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

// AliveCount returns the number of living agents.
func (g *Game) AliveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aliveCount
}

// Config returns a copy of the active configuration.
func (g *Game) Config() *config.Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Clone()
}

// SetStepsPerUpdate changes how many ticks each Update advances.
func (g *Game) SetStepsPerUpdate(n int) {
	if n < 1 {
		n = 1
	}
	g.mu.Lock()
	g.stepsPerUpdate = n
	g.mu.Unlock()
}
