package systems

import "math/rand"

// Action indices.
const (
	ActionStay = iota
	ActionNorth
	ActionSouth
	ActionWest
	ActionEast
)

// actionDeltas maps an action to its grid displacement. North is y-1.
var actionDeltas = [...][2]int{
	ActionStay:  {0, 0},
	ActionNorth: {0, -1},
	ActionSouth: {0, 1},
	ActionWest:  {-1, 0},
	ActionEast:  {1, 0},
}

// ActionDelta returns the (dx, dy) displacement of action.
func ActionDelta(action int) (dx, dy int) {
	d := actionDeltas[action]
	return d[0], d[1]
}

// SelectAction picks an action epsilon-greedily: with probability epsilon a
// uniformly random index, otherwise the arg-max of values.
func SelectAction(values []float64, epsilon float64, rng *rand.Rand) int {
	if rng.Float64() < epsilon {
		return rng.Intn(len(values))
	}
	return ArgMax(values)
}

// ArgMax returns the index of the largest value. Ties go to the lowest index.
func ArgMax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// MaxValue returns the largest value, or 0 for an empty slice.
func MaxValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[ArgMax(values)]
}
