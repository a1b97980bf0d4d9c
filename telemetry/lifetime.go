package telemetry

import (
	"log/slog"

	"github.com/pthm-cable/forage/systems"
)

// LifetimeStats tracks one agent's statistics over its lifetime.
type LifetimeStats struct {
	AgentID    uint32  `csv:"agent_id"`
	BirthTick  int     `csv:"birth_tick"`
	DeathTick  int     `csv:"death_tick"`
	Steps      int     `csv:"steps"`
	TreesEaten int     `csv:"trees_eaten"`
	FoodEaten  int     `csv:"food_eaten"`
	RockSteps  int     `csv:"rock_steps"`
	WallBumps  int     `csv:"wall_bumps"`
	PeakEnergy float64 `csv:"peak_energy"`
	Food       int     `csv:"food"` // lifetime food counter at death
}

// LogValue implements slog.LogValuer for structured logging.
func (s LifetimeStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("agent", int(s.AgentID)),
		slog.Int("birth_tick", s.BirthTick),
		slog.Int("death_tick", s.DeathTick),
		slog.Int("steps", s.Steps),
		slog.Int("trees_eaten", s.TreesEaten),
		slog.Int("food_eaten", s.FoodEaten),
		slog.Int("wall_bumps", s.WallBumps),
		slog.Float64("peak_energy", s.PeakEnergy),
		slog.Int("food", s.Food),
	)
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register starts tracking a newly spawned agent.
func (lt *LifetimeTracker) Register(agentID uint32, birthTick int, energy float64) {
	lt.stats[agentID] = &LifetimeStats{
		AgentID:    agentID,
		BirthTick:  birthTick,
		DeathTick:  -1,
		PeakEnergy: energy,
	}
}

// Get returns the lifetime stats for an agent, or nil if not tracked.
func (lt *LifetimeTracker) Get(agentID uint32) *LifetimeStats {
	return lt.stats[agentID]
}

// RecordStep folds one step result and the agent's energy after it into its stats.
func (lt *LifetimeTracker) RecordStep(agentID uint32, res systems.StepResult, energy float64) {
	s := lt.stats[agentID]
	if s == nil {
		return
	}
	s.Steps++
	switch res.Outcome {
	case systems.OutcomeTree:
		s.TreesEaten++
	case systems.OutcomeFood:
		s.FoodEaten++
	case systems.OutcomeRock:
		s.RockSteps++
	case systems.OutcomeWall:
		s.WallBumps++
	}
	if energy > s.PeakEnergy {
		s.PeakEnergy = energy
	}
}

// Finish removes an agent that died at tick and returns its final stats.
func (lt *LifetimeTracker) Finish(agentID uint32, tick, food int) *LifetimeStats {
	s := lt.stats[agentID]
	if s == nil {
		return nil
	}
	delete(lt.stats, agentID)
	s.DeathTick = tick
	s.Food = food
	return s
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
