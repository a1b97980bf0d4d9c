// Package main tunes the learning hyper-parameters with CMA-ES so that
// foragers collect more food and survive longer.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/forage/config"
)

// EvalRecord is one row of tune_log.csv.
type EvalRecord struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	MeanFood     float64 `csv:"mean_food"`
	Survival     float64 `csv:"survival"`
	Ticks        int     `csv:"ticks"`
	Epsilon      float64 `csv:"epsilon"`
	Discount     float64 `csv:"discount"`
	LearningRate float64 `csv:"learning_rate"`
	StepReward   float64 `csv:"step_reward"`
}

func newEvalRecord(eval int, res FitnessResult, values []float64) EvalRecord {
	return EvalRecord{
		Eval:         eval,
		Fitness:      res.Fitness,
		MeanFood:     res.MeanFood,
		Survival:     res.Survival,
		Ticks:        res.Ticks,
		Epsilon:      values[0],
		Discount:     values[1],
		LearningRate: values[2],
		StepReward:   values[3],
	}
}

// formatDuration formats a duration as HhMMmSSs or MmSSs for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 5000, "Ticks per simulation run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger, *configPath, *outputDir, *maxTicks, *seeds, *maxEvals, *population); err != nil {
		logger.Error("tune failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, outputDir string, maxTicks, seeds, maxEvals, population int) error {
	if outputDir == "" {
		return fmt.Errorf("-output is required")
	}
	if seeds < 1 {
		return fmt.Errorf("-seeds must be >= 1, got %d", seeds)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params := NewParamVector()

	evalSeeds := make([]int64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(baseCfg, params, maxTicks, evalSeeds)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	popSize := population
	if popSize == 0 {
		popSize = autoPopulation(dim)
	}

	logFile, err := os.Create(filepath.Join(outputDir, "tune_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values := params.Clamp(params.Denormalize(x))
			res := evaluator.Evaluate(values)
			evalCount++

			if res.Fitness < bestFitness {
				bestFitness = res.Fitness
				bestParams = values
			}

			rec := []EvalRecord{newEvalRecord(evalCount, res, values)}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(rec, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(rec, logFile)
			}
			if werr != nil {
				logger.Error("failed to write eval log", "error", werr)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			logger.Info("eval",
				"n", evalCount,
				"of", maxEvals,
				"fitness", res.Fitness,
				"mean_food", res.MeanFood,
				"survival", res.Survival,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return res.Fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0,
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logger.Info("starting CMA-ES",
		"params", dim,
		"population", popSize,
		"max_evals", maxEvals,
		"seeds", seeds,
		"max_ticks", maxTicks,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		logger.Warn("optimization ended", "error", err)
	}
	if bestParams == nil {
		if result == nil {
			return fmt.Errorf("no evaluations completed")
		}
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	logger.Info("optimization complete",
		"evals", evalCount,
		"duration", formatDuration(time.Since(startTime)),
		"best_fitness", bestFitness,
	)
	for i, spec := range params.Specs {
		logger.Info("best parameter", "name", spec.Name, "path", spec.Path, "value", bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)
	if err := bestCfg.Refresh(); err != nil {
		return fmt.Errorf("best config invalid: %w", err)
	}
	outPath := filepath.Join(outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(outPath); err != nil {
		return err
	}
	logger.Info("best config saved", "path", outPath)
	return nil
}

// autoPopulation is the standard CMA-ES default 4 + floor(3 ln n).
func autoPopulation(dim int) int {
	n := 4
	if dim > 1 {
		n += int(3 * math.Log(float64(dim)))
	}
	return n
}
