package main

import (
	"io"
	"log/slog"
	"sync"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/game"
)

// survivalWeight scales the surviving fraction against food per agent.
const survivalWeight = 5.0

// FitnessResult holds the outcome of evaluating one parameter vector.
type FitnessResult struct {
	Fitness  float64 // Negative score (lower is better for CMA-ES)
	MeanFood float64 // Food collected per agent, averaged across seeds
	Survival float64 // Fraction of agents alive at the end, averaged across seeds
	Ticks    int     // Ticks simulated, averaged across seeds
}

// FitnessEvaluator runs headless simulations to score parameter vectors.
type FitnessEvaluator struct {
	baseConfig *config.Config
	params     *ParamVector
	maxTicks   int
	seeds      []int64
}

// NewFitnessEvaluator creates an evaluator over the given seeds.
func NewFitnessEvaluator(baseConfig *config.Config, params *ParamVector, maxTicks int, seeds []int64) *FitnessEvaluator {
	return &FitnessEvaluator{
		baseConfig: baseConfig,
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
	}
}

// Evaluate runs every seed in parallel and averages the results.
func (fe *FitnessEvaluator) Evaluate(values []float64) FitnessResult {
	results := make([]runResult, len(fe.seeds))

	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(values, s)
		}(i, seed)
	}
	wg.Wait()

	var out FitnessResult
	for _, r := range results {
		out.MeanFood += r.meanFood
		out.Survival += r.survival
		out.Ticks += r.ticks
	}
	n := float64(len(results))
	out.MeanFood /= n
	out.Survival /= n
	out.Ticks = int(float64(out.Ticks) / n)
	out.Fitness = score(out.MeanFood, out.Survival)
	return out
}

// score is the value minimized by the optimizer.
func score(meanFood, survival float64) float64 {
	return -(meanFood + survivalWeight*survival)
}

type runResult struct {
	meanFood float64
	survival float64
	ticks    int
}

func (fe *FitnessEvaluator) runSimulation(values []float64, seed int64) runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, values)

	g, err := game.NewGameWithOptions(game.Options{
		Seed:   seed,
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		// An invalid point scores as a total loss.
		return runResult{}
	}
	defer g.Close()

	for g.Tick() < fe.maxTicks {
		g.Step()
		if g.AliveCount() == 0 {
			break
		}
	}

	snap := g.Snapshot()
	agents := len(snap.Agents)
	if agents == 0 {
		return runResult{ticks: snap.Tick}
	}

	var food int
	for _, a := range snap.Agents {
		food += a.Food
	}
	return runResult{
		meanFood: float64(food) / float64(agents),
		survival: float64(snap.Stats.Alive) / float64(agents),
		ticks:    snap.Tick,
	}
}
