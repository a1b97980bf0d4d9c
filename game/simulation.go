package game

import (
	"github.com/pthm-cable/forage/grid"
	"github.com/pthm-cable/forage/systems"
	"github.com/pthm-cable/forage/telemetry"
)

// Update is called by the external frame clock. It advances StepsPerUpdate
// ticks when the game is started and not paused, and reports whether any
// tick ran.
func (g *Game) Update() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.perfCollector.RecordFrame()
	if !g.running || g.paused {
		return false
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.step()
	}
	return true
}

// Step runs exactly one tick regardless of the running and paused flags.
func (g *Game) Step() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.step()
}

// step runs one tick: every living agent steps once in population order,
// then resources regenerate and the population is topped up.
func (g *Game) step() {
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseAgents)
	g.stepAgents()

	g.perfCollector.StartPhase(telemetry.PhaseRegen)
	g.regenerate()

	g.perfCollector.StartPhase(telemetry.PhaseRespawn)
	g.respawnIfLow()

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// stepAgents runs the observe-decide-act-learn cycle for every living agent.
// A failing agent is logged and skipped; the others still step.
func (g *Game) stepAgents() {
	for _, e := range g.order {
		pos, energy, forager, brain := g.agentMap.Get(e)
		if !energy.Alive {
			continue
		}

		res, err := systems.StepAgent(g.grid, systems.Agent{
			Pos:     pos,
			Energy:  energy,
			Forager: forager,
			Brain:   brain,
		}, g.params, g.rng)
		if err != nil {
			g.logger.Warn("agent step skipped", "agent", forager.ID, "tick", g.tick, "error", err)
			g.collector.RecordSkipped()
		} else {
			g.collector.RecordStep(res)
			g.lifetimeTracker.RecordStep(forager.ID, res, energy.Value)
		}

		if res.Died {
			g.recordDeath(forager)
		}
	}
}

// regenerate scatters the regrowth quotas every RegenInterval ticks.
// Tick 0 never regenerates.
func (g *Game) regenerate() {
	res := g.cfg.Resources
	if res.RegenInterval <= 0 || g.tick == 0 || g.tick%res.RegenInterval != 0 {
		return
	}
	g.scatter(grid.Tree, res.RegenTrees)
	g.scatter(grid.Food, res.RegenFood)
}
