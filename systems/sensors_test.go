package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/grid"
)

func testParams() Params {
	return ParamsFromConfig(config.Default())
}

func testGrid(t *testing.T, n int) *grid.Grid {
	t.Helper()
	g, err := grid.New(n)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestObservationAsSlice(t *testing.T) {
	obs := Observation{
		Cross:  [NumCross]float64{0, 1, 2, 3, WallCode},
		Energy: 0.5,
		Food:   0.2,
		Noise:  0.7,
	}

	slice := obs.AsSlice()

	if len(slice) != config.NumInputs {
		t.Fatalf("AsSlice wrong length: got %d, want %d", len(slice), config.NumInputs)
	}
	for i := 0; i < NumCross; i++ {
		if slice[i] != obs.Cross[i] {
			t.Errorf("Cross[%d] mismatch: got %f, want %f", i, slice[i], obs.Cross[i])
		}
	}
	if slice[5] != 0.5 || slice[6] != 0.2 || slice[7] != 0.7 {
		t.Errorf("state tail mismatch: got %v", slice[5:])
	}
}

func TestEncodeObservationCorner(t *testing.T) {
	g := testGrid(t, 4)
	g.Set(0, 1, grid.Food)
	g.Set(1, 0, grid.Rock)
	p := testParams()
	rng := rand.New(rand.NewSource(1))

	obs := EncodeObservation(g, components.Position{X: 0, Y: 0},
		components.Energy{Value: 10, Alive: true}, components.Forager{Food: 3}, p, rng)

	want := [NumCross]float64{
		float64(grid.Empty), // center
		WallCode,            // north
		float64(grid.Food),  // south
		WallCode,            // west
		float64(grid.Rock),  // east
	}
	if obs.Cross != want {
		t.Errorf("Cross = %v, want %v", obs.Cross, want)
	}
	if obs.Energy != 10/p.MaxEnergy {
		t.Errorf("Energy = %f, want %f", obs.Energy, 10/p.MaxEnergy)
	}
	if obs.Food != 3/p.FoodNormalizer {
		t.Errorf("Food = %f, want %f", obs.Food, 3/p.FoodNormalizer)
	}
}

func TestEncodeObservationOppositeCorner(t *testing.T) {
	g := testGrid(t, 3)
	g.Set(2, 2, grid.Tree)
	rng := rand.New(rand.NewSource(1))

	obs := EncodeObservation(g, components.Position{X: 2, Y: 2},
		components.Energy{Value: 1, Alive: true}, components.Forager{}, testParams(), rng)

	if obs.Cross[0] != float64(grid.Tree) {
		t.Errorf("center = %f, want tree", obs.Cross[0])
	}
	if obs.Cross[2] != WallCode || obs.Cross[4] != WallCode {
		t.Errorf("south and east should be walls: %v", obs.Cross)
	}
	if obs.Cross[1] == WallCode || obs.Cross[3] == WallCode {
		t.Errorf("north and west should be on the grid: %v", obs.Cross)
	}
}

func TestEncodeObservationFreshNoise(t *testing.T) {
	g := testGrid(t, 3)
	rng := rand.New(rand.NewSource(9))
	pos := components.Position{X: 1, Y: 1}
	e := components.Energy{Value: 5, Alive: true}

	seen := make(map[float64]bool)
	for i := 0; i < 50; i++ {
		obs := EncodeObservation(g, pos, e, components.Forager{}, testParams(), rng)
		if obs.Noise < 0 || obs.Noise >= 1 {
			t.Fatalf("noise %f outside [0,1)", obs.Noise)
		}
		seen[obs.Noise] = true
	}
	if len(seen) < 45 {
		t.Errorf("noise repeated too often: %d distinct of 50", len(seen))
	}
}
