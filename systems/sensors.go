package systems

import (
	"math/rand"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/grid"
)

// NumCross is the number of cells in the cross observation.
const NumCross = 5

// WallCode is the reading for a cross cell outside the grid.
const WallCode = -1.0

// crossOffsets are the cross sample points: center, north, south, west, east.
var crossOffsets = [NumCross][2]int{{0, 0}, {0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// Observation holds the encoded surroundings and internal state of one agent.
// Total: 5 cross readings + energy + food + noise = 9 floats.
type Observation struct {
	Cross  [NumCross]float64 // cell kind codes, WallCode off-grid
	Energy float64           // energy / max energy
	Food   float64           // food / food normalizer
	Noise  float64           // uniform [0,1) exploration noise
}

// AsSlice returns the observation as a flat slice for the network.
func (o *Observation) AsSlice() []float64 {
	result := make([]float64, 0, NumCross+3)
	result = append(result, o.Cross[:]...)
	return append(result, o.Energy, o.Food, o.Noise)
}

// EncodeObservation reads the cross around pos and the agent's state.
// A fresh noise value is drawn from rng on every call.
func EncodeObservation(
	g *grid.Grid,
	pos components.Position,
	energy components.Energy,
	forager components.Forager,
	p Params,
	rng *rand.Rand,
) Observation {
	var obs Observation

	for i, off := range crossOffsets {
		x, y := pos.X+off[0], pos.Y+off[1]
		if !g.InBounds(x, y) {
			obs.Cross[i] = WallCode
			continue
		}
		obs.Cross[i] = float64(g.At(x, y))
	}

	obs.Energy = energy.Value / p.MaxEnergy
	obs.Food = float64(forager.Food) / p.FoodNormalizer
	obs.Noise = rng.Float64()

	return obs
}
