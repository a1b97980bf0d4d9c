// Package systems implements the per-agent observe, decide, act and learn cycle.
package systems

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/grid"
	"github.com/pthm-cable/forage/neural"
)

// ErrNoBrain is returned when an agent has no value network.
var ErrNoBrain = errors.New("agent has no brain")

// Outcome classifies what happened on a step.
type Outcome uint8

const (
	OutcomeEmpty Outcome = iota // moved onto an empty cell
	OutcomeTree                 // ate a tree
	OutcomeRock                 // stumbled onto a rock
	OutcomeFood                 // ate food
	OutcomeWall                 // tried to leave the grid
	NumOutcomes
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeTree:
		return "tree"
	case OutcomeRock:
		return "rock"
	case OutcomeFood:
		return "food"
	case OutcomeWall:
		return "wall"
	}
	return "unknown"
}

// Params holds the constants of one agent step.
type Params struct {
	Epsilon        float64
	Discount       float64
	MaxEnergy      float64
	WallPenalty    float64
	FoodNormalizer float64

	TreeReward float64
	RockReward float64
	FoodReward float64
	StepReward float64
	TreeYield  int
	FoodYield  int
}

// ParamsFromConfig extracts step parameters from cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Epsilon:        cfg.Learning.Epsilon,
		Discount:       cfg.Learning.Discount,
		MaxEnergy:      cfg.Energy.Max,
		WallPenalty:    cfg.Energy.WallPenalty,
		FoodNormalizer: cfg.Learning.FoodNormalizer,
		TreeReward:     cfg.Rewards.Tree,
		RockReward:     cfg.Rewards.Rock,
		FoodReward:     cfg.Rewards.Food,
		StepReward:     cfg.Rewards.Step,
		TreeYield:      cfg.Rewards.TreeYield,
		FoodYield:      cfg.Rewards.FoodYield,
	}
}

// StepResult reports what one agent step did.
type StepResult struct {
	Action  int
	Outcome Outcome
	Reward  float64 // zero for wall bumps, which carry no reward
	Learned bool    // a TD update was applied
	Loss    float64 // squared error before the update
	Died    bool
}

// Agent bundles the components one step reads and writes.
type Agent struct {
	Pos     *components.Position
	Energy  *components.Energy
	Forager *components.Forager
	Brain   *components.Brain
}

// StepAgent runs one observe-decide-act-learn cycle for a living agent.
//
// A wall bump costs WallPenalty energy and skips learning. Any other move
// consumes the destination cell, applies its reward to energy and trains the
// network on the pre-move observation toward reward + discount*max(next values).
// On error the agent and grid are left as they were before the call.
func StepAgent(g *grid.Grid, a Agent, p Params, rng *rand.Rand) (StepResult, error) {
	var res StepResult
	if a.Brain == nil || a.Brain.Net == nil {
		return res, ErrNoBrain
	}
	net := a.Brain.Net

	obs := EncodeObservation(g, *a.Pos, *a.Energy, *a.Forager, p, rng)
	input := obs.AsSlice()
	values, err := net.Predict(input)
	if err != nil {
		return res, fmt.Errorf("predicting action values: %w", err)
	}
	if len(values) != config.NumActions {
		return res, fmt.Errorf("%w: got %d action values, want %d", neural.ErrTargetSize, len(values), config.NumActions)
	}

	res.Action = SelectAction(values, p.Epsilon, rng)
	dx, dy := ActionDelta(res.Action)
	dest := a.Pos.Offset(dx, dy)

	if !g.InBounds(dest.X, dest.Y) {
		a.Forager.Age++
		res.Outcome = OutcomeWall
		a.Energy.Value = clampEnergy(a.Energy.Value-p.WallPenalty, p.MaxEnergy)
		res.Died = checkDeath(a.Energy)
		return res, nil
	}

	// Restored when learning fails.
	saved := savedState{pos: *a.Pos, energy: *a.Energy, forager: *a.Forager, cell: g.At(dest.X, dest.Y)}
	a.Forager.Age++

	res.Outcome, res.Reward = collect(g, dest, a.Forager, p)
	*a.Pos = dest
	a.Energy.Value = clampEnergy(a.Energy.Value+res.Reward, p.MaxEnergy)

	next := EncodeObservation(g, *a.Pos, *a.Energy, *a.Forager, p, rng)
	nextValues, err := net.Predict(next.AsSlice())
	if err != nil {
		saved.restore(g, dest, a)
		return StepResult{}, fmt.Errorf("predicting next action values: %w", err)
	}

	target := make([]float64, len(values))
	copy(target, values)
	target[res.Action] = res.Reward + p.Discount*MaxValue(nextValues)

	res.Loss, err = net.Update(input, target)
	if err != nil {
		saved.restore(g, dest, a)
		return StepResult{}, fmt.Errorf("updating action values: %w", err)
	}
	res.Learned = true
	res.Died = checkDeath(a.Energy)

	return res, nil
}

// savedState is an agent and its destination cell before a move.
type savedState struct {
	pos     components.Position
	energy  components.Energy
	forager components.Forager
	cell    grid.Kind
}

func (s savedState) restore(g *grid.Grid, dest components.Position, a Agent) {
	g.Set(dest.X, dest.Y, s.cell)
	*a.Pos = s.pos
	*a.Energy = s.energy
	*a.Forager = s.forager
}

// collect consumes the destination cell and returns the outcome and reward.
func collect(g *grid.Grid, dest components.Position, f *components.Forager, p Params) (Outcome, float64) {
	kind, ok := g.Consume(dest.X, dest.Y)
	if ok {
		switch kind {
		case grid.Tree:
			f.Food += p.TreeYield
			return OutcomeTree, p.TreeReward
		case grid.Food:
			f.Food += p.FoodYield
			return OutcomeFood, p.FoodReward
		}
	}
	if kind == grid.Rock {
		return OutcomeRock, p.RockReward
	}
	return OutcomeEmpty, p.StepReward
}

// clampEnergy bounds energy to [0, max].
func clampEnergy(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

// checkDeath marks the agent dead once its energy is exhausted.
func checkDeath(e *components.Energy) bool {
	if e.Alive && e.Value <= 0 {
		e.Alive = false
		return true
	}
	return false
}
