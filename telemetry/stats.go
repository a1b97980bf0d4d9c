// Package telemetry aggregates per-window simulation statistics and writes
// them as structured logs and CSV files.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int `csv:"-"`
	WindowEndTick   int `csv:"window_end"`

	// Population at window end
	Alive int `csv:"alive"`
	Dead  int `csv:"dead"`

	// Events during window
	Deaths       int `csv:"deaths"`
	Respawns     int `csv:"respawns"`
	Steps        int `csv:"steps"`
	SkippedSteps int `csv:"skipped_steps"`

	// Step outcomes during window
	EmptyMoves int `csv:"empty_moves"`
	TreesEaten int `csv:"trees_eaten"`
	RockSteps  int `csv:"rock_steps"`
	FoodEaten  int `csv:"food_eaten"`
	WallBumps  int `csv:"wall_bumps"`

	// Learning
	Updates    int     `csv:"updates"`
	MeanLoss   float64 `csv:"mean_loss"`
	MeanReward float64 `csv:"mean_reward"`

	// Energy distribution of living agents (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Lifetime food of all agents
	FoodMean float64 `csv:"food_mean"`
	FoodStd  float64 `csv:"food_std"`

	// Grid contents at window end
	GridTrees int `csv:"grid_trees"`
	GridRocks int `csv:"grid_rocks"`
	GridFood  int `csv:"grid_food"`
}

// ComputeEnergyStats returns the mean and empirical 10th, 50th and 90th
// percentiles of values. All zero for an empty slice.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// ComputeFoodStats returns the mean and population standard deviation of values.
func ComputeFoodStats(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean = stat.Mean(values, nil)
	std = stat.PopStdDev(values, nil)
	return mean, std
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartTick),
		slog.Int("window_end", s.WindowEndTick),
		slog.Int("alive", s.Alive),
		slog.Int("dead", s.Dead),
		slog.Int("deaths", s.Deaths),
		slog.Int("respawns", s.Respawns),
		slog.Int("steps", s.Steps),
		slog.Int("skipped_steps", s.SkippedSteps),
		slog.Int("empty_moves", s.EmptyMoves),
		slog.Int("trees_eaten", s.TreesEaten),
		slog.Int("rock_steps", s.RockSteps),
		slog.Int("food_eaten", s.FoodEaten),
		slog.Int("wall_bumps", s.WallBumps),
		slog.Int("updates", s.Updates),
		slog.Float64("mean_loss", s.MeanLoss),
		slog.Float64("mean_reward", s.MeanReward),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("food_mean", s.FoodMean),
		slog.Float64("food_std", s.FoodStd),
		slog.Int("grid_trees", s.GridTrees),
		slog.Int("grid_rocks", s.GridRocks),
		slog.Int("grid_food", s.GridFood),
	)
}

// LogStats logs the window stats. A nil logger uses slog.Default.
func (s WindowStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stats", "window", s)
}
