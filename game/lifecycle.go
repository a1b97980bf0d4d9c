package game

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/grid"
	"github.com/pthm-cable/forage/neural"
	"github.com/pthm-cable/forage/systems"
	"github.com/pthm-cable/forage/telemetry"
)

// reset discards the grid, the ECS world and every agent, then rebuilds
// them from cfg. On error the previous state is left untouched.
func (g *Game) reset(cfg *config.Config, rng *rand.Rand) error {
	if err := cfg.Refresh(); err != nil {
		return err
	}
	gr, err := grid.New(cfg.Grid.Size)
	if err != nil {
		return err
	}

	world := ecs.NewWorld()
	next := &Game{
		cfg:    cfg,
		params: systems.ParamsFromConfig(cfg),
		rng:    rng,
		logger: g.logger,
		world:  world,
		grid:   gr,
		agentMap: ecs.NewMap4[
			components.Position,
			components.Energy,
			components.Forager,
			components.Brain,
		](world),
		lifetimeTracker: telemetry.NewLifetimeTracker(),
	}

	next.scatterInitial()
	for i := 0; i < cfg.Population.Agents; i++ {
		if _, err := next.spawnAgent(); err != nil {
			return fmt.Errorf("spawning agent %d: %w", i, err)
		}
	}

	g.cfg = next.cfg
	g.rng = next.rng
	g.params = next.params
	g.world = next.world
	g.grid = next.grid
	g.agentMap = next.agentMap
	g.order = next.order
	g.nextID = next.nextID
	g.aliveCount = next.aliveCount
	g.lifetimeTracker = next.lifetimeTracker
	g.tick = 0
	g.running = false
	g.paused = false
	g.collector = telemetry.NewCollector(cfg.Telemetry.StatsWindow)
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	g.bookmarks = telemetry.NewBookmarkDetector(bookmarkHistory)

	g.logger.Debug("world reset",
		"size", cfg.Grid.Size,
		"agents", g.aliveCount,
		"trees", g.grid.Count(grid.Tree),
		"rocks", g.grid.Count(grid.Rock),
		"food", g.grid.Count(grid.Food),
	)
	return nil
}

// scatterInitial places the starting trees, rocks and food.
func (g *Game) scatterInitial() {
	res := g.cfg.Resources
	g.scatter(grid.Tree, res.Trees)
	g.scatter(grid.Rock, res.Rocks)
	g.scatter(grid.Food, res.Food)
}

// scatter places up to count cells of kind and returns how many were placed.
// Falling short is not an error.
func (g *Game) scatter(kind grid.Kind, count int) int {
	placed := g.grid.Scatter(g.rng, kind, count, g.cfg.Resources.ScatterAttemptFactor)
	if placed < count {
		g.logger.Debug("scatter fell short", "kind", kind.String(), "requested", count, "placed", placed)
	}
	return placed
}

// spawnAgent creates a new agent with a fresh network on a random vacant cell.
func (g *Game) spawnAgent() (ecs.Entity, error) {
	cfg := g.cfg

	net, err := neural.NewQNet(g.rng, cfg.Derived.Layers, cfg.Learning.LearningRate)
	if err != nil {
		return ecs.Entity{}, err
	}

	pos := g.spawnPosition()
	id := g.nextID
	g.nextID++

	energy := components.Energy{
		Value: cfg.Energy.InitialMin + g.rng.Float64()*(cfg.Energy.InitialMax-cfg.Energy.InitialMin),
		Alive: true,
	}
	forager := components.Forager{ID: id, DiedAt: -1}
	brain := components.Brain{Net: net}

	entity := g.agentMap.NewEntity(&pos, &energy, &forager, &brain)
	g.order = append(g.order, entity)
	g.aliveCount++

	g.lifetimeTracker.Register(id, g.tick, energy.Value)
	return entity, nil
}

// spawnPosition picks an Empty cell no living agent stands on, falling back
// to any random cell once the retry budget is spent.
func (g *Game) spawnPosition() components.Position {
	attempts := g.cfg.Derived.Cells * g.cfg.Resources.ScatterAttemptFactor
	x, y, ok := g.grid.RandomVacant(g.rng, attempts, g.occupied)
	if !ok {
		n := g.grid.Size()
		x, y = g.rng.Intn(n), g.rng.Intn(n)
	}
	return components.Position{X: x, Y: y}
}

// occupied reports whether a living agent stands on (x, y).
func (g *Game) occupied(x, y int) bool {
	for _, e := range g.order {
		pos, energy, _, _ := g.agentMap.Get(e)
		if energy.Alive && pos.X == x && pos.Y == y {
			return true
		}
	}
	return false
}

// recordDeath marks forager dead at the current tick. Dead agents stay in
// the population and in snapshots but never step again.
func (g *Game) recordDeath(forager *components.Forager) {
	forager.DiedAt = g.tick
	g.aliveCount--
	g.collector.RecordDeath()

	stats := g.lifetimeTracker.Finish(forager.ID, g.tick, forager.Food)
	if stats == nil {
		return
	}
	g.logger.Debug("agent died", "lifetime", *stats)
	if err := g.outputManager.WriteLifetime(*stats); err != nil {
		g.logger.Error("failed to write lifetime", "error", err)
	}
}

// respawnIfLow adds one fresh agent when the population has fallen below
// the configured threshold. Disabled when RespawnInterval is 0.
func (g *Game) respawnIfLow() {
	pop := g.cfg.Population
	if pop.RespawnInterval <= 0 || g.tick == 0 || g.tick%pop.RespawnInterval != 0 {
		return
	}
	if g.aliveCount >= pop.RespawnBelow {
		return
	}
	if _, err := g.spawnAgent(); err != nil {
		g.logger.Warn("respawn failed", "tick", g.tick, "error", err)
		return
	}
	g.collector.RecordRespawn()
}
