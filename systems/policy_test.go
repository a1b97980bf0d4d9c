package systems

import (
	"math/rand"
	"testing"
)

func TestArgMax(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   int
	}{
		{"first", []float64{3, 1, 2, 0, -1}, 0},
		{"last", []float64{0, 1, 2, 3, 4}, 4},
		{"negative", []float64{-5, -2, -3, -4, -9}, 1},
		{"tie goes low", []float64{1, 7, 2, 7, 7}, 1},
		{"all equal", []float64{0, 0, 0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArgMax(tt.values); got != tt.want {
				t.Errorf("ArgMax(%v) = %d, want %d", tt.values, got, tt.want)
			}
		})
	}
}

func TestMaxValue(t *testing.T) {
	if got := MaxValue([]float64{-1, 4, 2}); got != 4 {
		t.Errorf("MaxValue = %f, want 4", got)
	}
	if got := MaxValue(nil); got != 0 {
		t.Errorf("MaxValue(nil) = %f, want 0", got)
	}
}

func TestSelectActionGreedy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []float64{0.1, 0.2, 0.9, 0.3, 0.9}

	for i := 0; i < 100; i++ {
		if got := SelectAction(values, 0, rng); got != 2 {
			t.Fatalf("greedy selection = %d, want 2", got)
		}
	}
}

func TestSelectActionUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []float64{10, 0, 0, 0, 0}
	const trials = 10000

	var counts [5]int
	for i := 0; i < trials; i++ {
		counts[SelectAction(values, 1, rng)]++
	}

	// Each action should get roughly 2000 picks.
	for a, c := range counts {
		if c < 1700 || c > 2300 {
			t.Errorf("action %d chosen %d times out of %d", a, c, trials)
		}
	}
}

func TestActionDelta(t *testing.T) {
	cases := []struct {
		action int
		dx, dy int
	}{
		{ActionStay, 0, 0},
		{ActionNorth, 0, -1},
		{ActionSouth, 0, 1},
		{ActionWest, -1, 0},
		{ActionEast, 1, 0},
	}
	for _, c := range cases {
		dx, dy := ActionDelta(c.action)
		if dx != c.dx || dy != c.dy {
			t.Errorf("ActionDelta(%d) = (%d, %d), want (%d, %d)", c.action, dx, dy, c.dx, c.dy)
		}
	}
}
