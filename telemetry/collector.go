package telemetry

import (
	"github.com/pthm-cable/forage/grid"
	"github.com/pthm-cable/forage/systems"
)

// PopulationSample is the world state sampled when a window is flushed.
type PopulationSample struct {
	Alive    int
	Dead     int
	Energies []float64 // living agents only
	Foods    []float64 // every agent, living or dead
	Cells    [grid.NumKinds]int
}

// Collector accumulates step events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks     int
	windowStartTick int

	steps     int
	skipped   int
	deaths    int
	respawns  int
	outcomes  [systems.NumOutcomes]int
	updates   int
	lossSum   float64
	rewardSum float64
}

// NewCollector creates a collector that flushes every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// RecordStep records the result of one successful agent step.
func (c *Collector) RecordStep(res systems.StepResult) {
	c.steps++
	if int(res.Outcome) < len(c.outcomes) {
		c.outcomes[res.Outcome]++
	}
	c.rewardSum += res.Reward
	if res.Learned {
		c.updates++
		c.lossSum += res.Loss
	}
}

// RecordDeath records an agent death.
func (c *Collector) RecordDeath() {
	c.deaths++
}

// RecordSkipped records an agent step that failed and was skipped.
func (c *Collector) RecordSkipped() {
	c.skipped++
}

// RecordRespawn records a fresh agent added by low-population respawn.
func (c *Collector) RecordRespawn() {
	c.respawns++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int, pop PopulationSample) WindowStats {
	var meanLoss, meanReward float64
	if c.updates > 0 {
		meanLoss = c.lossSum / float64(c.updates)
	}
	if c.steps > 0 {
		meanReward = c.rewardSum / float64(c.steps)
	}

	energyMean, p10, p50, p90 := ComputeEnergyStats(pop.Energies)
	foodMean, foodStd := ComputeFoodStats(pop.Foods)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Alive: pop.Alive,
		Dead:  pop.Dead,

		Deaths:       c.deaths,
		Respawns:     c.respawns,
		Steps:        c.steps,
		SkippedSteps: c.skipped,

		EmptyMoves: c.outcomes[systems.OutcomeEmpty],
		TreesEaten: c.outcomes[systems.OutcomeTree],
		RockSteps:  c.outcomes[systems.OutcomeRock],
		FoodEaten:  c.outcomes[systems.OutcomeFood],
		WallBumps:  c.outcomes[systems.OutcomeWall],

		Updates:    c.updates,
		MeanLoss:   meanLoss,
		MeanReward: meanReward,

		EnergyMean: energyMean,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,

		FoodMean: foodMean,
		FoodStd:  foodStd,

		GridTrees: pop.Cells[grid.Tree],
		GridRocks: pop.Cells[grid.Rock],
		GridFood:  pop.Cells[grid.Food],
	}

	c.Reset(currentTick)
	return stats
}

// Reset clears all counters and starts a new window at tick.
func (c *Collector) Reset(tick int) {
	*c = Collector{windowTicks: c.windowTicks, windowStartTick: tick}
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int {
	return c.windowTicks
}
