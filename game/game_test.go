package game

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/grid"
	"github.com/pthm-cable/forage/neural"
	"github.com/pthm-cable/forage/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGame builds a game from the embedded defaults after applying mutate.
func newTestGame(t *testing.T, seed int64, mutate func(*config.Config)) *Game {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	g, err := NewGameWithOptions(Options{
		Seed:   seed,
		Config: cfg,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewGameWithOptions failed: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

// barren removes every resource so agents only lose energy.
func barren(cfg *config.Config) {
	cfg.Resources.Trees = 0
	cfg.Resources.Rocks = 0
	cfg.Resources.Food = 0
	cfg.Resources.RegenInterval = 0
}

func TestNewGameInitialState(t *testing.T) {
	g := newTestGame(t, 42, nil)
	cfg := config.Default()
	snap := g.Snapshot()

	if snap.Tick != 0 || snap.Running || snap.Paused {
		t.Errorf("unexpected flags: tick %d, running %v, paused %v", snap.Tick, snap.Running, snap.Paused)
	}
	if snap.Size != cfg.Grid.Size || len(snap.Cells) != cfg.Grid.Size*cfg.Grid.Size {
		t.Fatalf("grid is %d cells for size %d", len(snap.Cells), snap.Size)
	}
	if len(snap.Agents) != cfg.Population.Agents || snap.Stats.Alive != cfg.Population.Agents {
		t.Errorf("agents = %d (alive %d), want %d", len(snap.Agents), snap.Stats.Alive, cfg.Population.Agents)
	}
	if snap.Stats.Trees > cfg.Resources.Trees || snap.Stats.Rocks > cfg.Resources.Rocks || snap.Stats.Food > cfg.Resources.Food {
		t.Errorf("resource counts exceed quotas: %+v", snap.Stats)
	}
	if snap.Stats.Trees == 0 || snap.Stats.Rocks == 0 || snap.Stats.Food == 0 {
		t.Errorf("expected every resource kind to be scattered: %+v", snap.Stats)
	}

	seen := make(map[[2]int]bool)
	for _, a := range snap.Agents {
		if !a.Alive || a.Food != 0 || a.Age != 0 {
			t.Errorf("agent %d not fresh: %+v", a.ID, a)
		}
		if a.Energy < cfg.Energy.InitialMin || a.Energy > cfg.Energy.InitialMax {
			t.Errorf("agent %d energy %f outside initial range", a.ID, a.Energy)
		}
		if k := snap.Cells[a.Y*snap.Size+a.X]; k != grid.Empty {
			t.Errorf("agent %d spawned on %v", a.ID, k)
		}
		cell := [2]int{a.X, a.Y}
		if seen[cell] {
			t.Errorf("two agents spawned on (%d, %d)", a.X, a.Y)
		}
		seen[cell] = true
	}
}

func TestEnergyStaysInRange(t *testing.T) {
	g := newTestGame(t, 7, nil)
	max := config.Default().Energy.Max

	for i := 0; i < 400; i++ {
		g.Step()
		for _, a := range g.Snapshot().Agents {
			if a.Energy < 0 || a.Energy > max {
				t.Fatalf("tick %d: agent %d energy %f outside [0, %f]", i, a.ID, a.Energy, max)
			}
			if a.Alive != (a.Energy > 0) {
				t.Fatalf("tick %d: agent %d alive=%v with energy %f", i, a.ID, a.Alive, a.Energy)
			}
		}
	}
}

func TestCellsStayValid(t *testing.T) {
	g := newTestGame(t, 3, nil)
	for i := 0; i < 200; i++ {
		g.Step()
	}
	for i, k := range g.Snapshot().Cells {
		if !k.Valid() {
			t.Fatalf("cell %d has invalid kind %d", i, k)
		}
	}
}

func TestDeadAgentsAreInert(t *testing.T) {
	g := newTestGame(t, 42, func(cfg *config.Config) {
		barren(cfg)
		cfg.Energy.InitialMin = 0.5
		cfg.Energy.InitialMax = 0.6
	})

	// Every step costs at least 0.04, so nobody outlives 15 ticks.
	for i := 0; i < 20; i++ {
		g.Step()
	}
	before := g.Snapshot()
	if before.Stats.Alive != 0 {
		t.Fatalf("expected extinction, %d alive", before.Stats.Alive)
	}

	for i := 0; i < 10; i++ {
		g.Step()
	}
	after := g.Snapshot()

	if after.Tick != before.Tick+10 {
		t.Errorf("tick = %d, want %d after extinction", after.Tick, before.Tick+10)
	}
	if !reflect.DeepEqual(before.Agents, after.Agents) {
		t.Error("dead agents changed after death")
	}
	for _, a := range after.Agents {
		if a.Energy != 0 {
			t.Errorf("dead agent %d has energy %f", a.ID, a.Energy)
		}
	}
	if g.AliveCount() != 0 {
		t.Errorf("AliveCount() = %d, want 0", g.AliveCount())
	}
}

func TestRegenerationInterval(t *testing.T) {
	g := newTestGame(t, 42, func(cfg *config.Config) {
		barren(cfg)
		cfg.Population.Agents = 0
		cfg.Resources.RegenInterval = 5
		cfg.Resources.RegenTrees = 3
		cfg.Resources.RegenFood = 2
	})

	// Ticks 0..4 run; tick 0 never regenerates.
	for i := 0; i < 5; i++ {
		g.Step()
	}
	if s := g.Snapshot().Stats; s.Trees != 0 || s.Food != 0 {
		t.Fatalf("regenerated before the interval: %+v", s)
	}

	g.Step() // tick 5
	if s := g.Snapshot().Stats; s.Trees != 3 || s.Food != 2 {
		t.Errorf("after tick 5: trees %d food %d, want 3 and 2", s.Trees, s.Food)
	}

	for i := 0; i < 5; i++ {
		g.Step() // ticks 6..10
	}
	if s := g.Snapshot().Stats; s.Trees != 6 || s.Food != 4 {
		t.Errorf("after tick 10: trees %d food %d, want 6 and 4", s.Trees, s.Food)
	}
}

func TestUpdateRespectsControls(t *testing.T) {
	g := newTestGame(t, 42, nil)
	g.SetStepsPerUpdate(3)

	if g.Update() || g.Tick() != 0 {
		t.Fatal("Update advanced a game that was never started")
	}

	g.Start()
	if !g.Update() || g.Tick() != 3 {
		t.Fatalf("tick = %d after one update, want 3", g.Tick())
	}

	g.Pause()
	if g.Update() || g.Tick() != 3 {
		t.Errorf("paused game advanced to tick %d", g.Tick())
	}
	if g.Running() {
		t.Error("Running() should be false while paused")
	}

	g.Resume()
	g.Update()
	if g.Tick() != 6 {
		t.Errorf("tick = %d after resume, want 6", g.Tick())
	}
}

func TestPauseBeforeStartIsNoop(t *testing.T) {
	g := newTestGame(t, 42, nil)
	g.Pause()
	if g.Snapshot().Paused {
		t.Error("pause before start should not set paused")
	}
}

func TestResetDiscardsAgents(t *testing.T) {
	g := newTestGame(t, 42, nil)
	oldNet := func() any {
		_, _, _, brain := g.agentMap.Get(g.order[0])
		return brain.Net
	}()

	g.Start()
	for i := 0; i < 50; i++ {
		g.Step()
	}

	if err := g.Reset(nil); err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()

	if snap.Tick != 0 || snap.Running {
		t.Errorf("reset left tick %d, running %v", snap.Tick, snap.Running)
	}
	if snap.Stats.Alive != len(snap.Agents) {
		t.Errorf("not every agent is alive after reset: %+v", snap.Stats)
	}
	for _, a := range snap.Agents {
		if a.Age != 0 || a.Food != 0 {
			t.Errorf("agent %d carried state over reset: %+v", a.ID, a)
		}
	}
	_, _, _, brain := g.agentMap.Get(g.order[0])
	if brain.Net == oldNet {
		t.Error("reset reused a network")
	}
}

func TestResetWithNewConfig(t *testing.T) {
	g := newTestGame(t, 42, nil)

	cfg := config.Default()
	cfg.Grid.Size = 8
	cfg.Population.Agents = 3
	cfg.Resources.Trees = 5
	if err := g.Reset(cfg); err != nil {
		t.Fatal(err)
	}

	snap := g.Snapshot()
	if snap.Size != 8 || len(snap.Agents) != 3 {
		t.Errorf("reset to size %d with %d agents, want 8 and 3", snap.Size, len(snap.Agents))
	}
	if g.Config().Grid.Size != 8 {
		t.Error("Config() does not reflect the new config")
	}
}

func TestResetRejectsInvalidConfig(t *testing.T) {
	g := newTestGame(t, 42, nil)
	g.Step()

	cfg := config.Default()
	cfg.Energy.Max = -1
	err := g.Reset(cfg)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if g.Tick() != 1 {
		t.Error("failed reset should leave the world untouched")
	}
}

func TestSameSeedSameRun(t *testing.T) {
	a := newTestGame(t, 99, nil)
	b := newTestGame(t, 99, nil)

	for i := 0; i < 100; i++ {
		a.Step()
		b.Step()
	}

	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Error("games with the same seed diverged")
	}
}

func TestResetSeedReproduces(t *testing.T) {
	g := newTestGame(t, 5, nil)
	first := g.Snapshot()

	for i := 0; i < 10; i++ {
		g.Step()
	}
	if err := g.ResetSeed(nil, 5); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, g.Snapshot()) {
		t.Error("reset with the original seed should rebuild the same world")
	}
}

func TestSpawnResource(t *testing.T) {
	g := newTestGame(t, 42, func(cfg *config.Config) {
		barren(cfg)
		cfg.Population.Agents = 0
	})

	placed, err := g.SpawnResource(grid.Food, 5)
	if err != nil || placed != 5 {
		t.Fatalf("SpawnResource = %d, %v; want 5, nil", placed, err)
	}
	if g.Snapshot().Stats.Food != 5 {
		t.Errorf("grid has %d food, want 5", g.Snapshot().Stats.Food)
	}

	if _, err := g.SpawnResource(grid.Empty, 1); !errors.Is(err, ErrBadSpawn) {
		t.Errorf("spawning empty: expected ErrBadSpawn, got %v", err)
	}
	if _, err := g.SpawnResource(grid.Tree, -1); !errors.Is(err, ErrBadSpawn) {
		t.Errorf("negative count: expected ErrBadSpawn, got %v", err)
	}
}

func TestRespawnWhenLow(t *testing.T) {
	g := newTestGame(t, 42, func(cfg *config.Config) {
		barren(cfg)
		cfg.Population.Agents = 2
		cfg.Population.RespawnInterval = 10
		cfg.Population.RespawnBelow = 1
		cfg.Energy.InitialMin = 0.5
		cfg.Energy.InitialMax = 0.6
	})

	for i := 0; i < 40; i++ {
		g.Step()
	}

	snap := g.Snapshot()
	if len(snap.Agents) < 3 {
		t.Errorf("expected a respawned agent, population is %d", len(snap.Agents))
	}
	ids := make(map[uint32]bool)
	for _, a := range snap.Agents {
		if ids[a.ID] {
			t.Errorf("duplicate agent id %d", a.ID)
		}
		ids[a.ID] = true
	}
}

func TestStatsCallback(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.StatsWindow = 10

	var windows []telemetry.WindowStats
	g, err := NewGameWithOptions(Options{
		Seed:          42,
		Config:        cfg,
		Logger:        quietLogger(),
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	for i := 0; i < 25; i++ {
		g.Step()
	}

	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	w := windows[0]
	if w.WindowEndTick != 10 {
		t.Errorf("first window ends at %d, want 10", w.WindowEndTick)
	}
	if w.Steps+w.SkippedSteps == 0 {
		t.Error("window recorded no steps")
	}
	if w.Alive+w.Dead != cfg.Population.Agents {
		t.Errorf("window population %d+%d, want %d", w.Alive, w.Dead, cfg.Population.Agents)
	}
}

func TestOutputDirWritesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Telemetry.StatsWindow = 5

	g, err := NewGameWithOptions(Options{Seed: 1, Config: cfg, Logger: quietLogger(), OutputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		g.Step()
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(dir + "/config.yaml"); err != nil {
		t.Errorf("config.yaml not loadable: %v", err)
	}
}

// failingUpdate predicts like the wrapped network but never learns.
type failingUpdate struct {
	neural.ValueApproximator
}

var errLearn = errors.New("learning failed")

func (failingUpdate) Update(obs, target []float64) (float64, error) {
	return 0, errLearn
}

func TestFailingAgentIsSkipped(t *testing.T) {
	cfg := config.Default()
	cfg.Grid.Size = 6
	cfg.Population.Agents = 2
	barren(cfg)
	cfg.Telemetry.StatsWindow = 1
	cfg.Learning.Epsilon = 1

	var windows []telemetry.WindowStats
	g, err := NewGameWithOptions(Options{
		Seed:          42,
		Config:        cfg,
		Logger:        quietLogger(),
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	// The failing agent is surrounded by food; the healthy one by empty cells.
	first, second := g.order[0], g.order[1]
	pos, energy, forager, brain := g.agentMap.Get(first)
	*pos = components.Position{X: 1, Y: 1}
	brain.Net = failingUpdate{brain.Net}
	for _, off := range [][2]int{{0, 0}, {0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
		g.grid.Set(1+off[0], 1+off[1], grid.Food)
	}
	otherPos, _, _, _ := g.agentMap.Get(second)
	*otherPos = components.Position{X: 4, Y: 4}

	beforePos, beforeEnergy, beforeForager := *pos, *energy, *forager

	g.Step()

	if g.Tick() != 1 {
		t.Fatalf("tick = %d, want 1", g.Tick())
	}
	pos, energy, forager, _ = g.agentMap.Get(first)
	if *pos != beforePos || *energy != beforeEnergy || *forager != beforeForager {
		t.Errorf("failing agent changed: %+v %+v %+v", *pos, *energy, *forager)
	}
	if got := g.grid.Count(grid.Food); got != 5 {
		t.Errorf("food cells = %d, want 5 untouched", got)
	}

	_, _, other, _ := g.agentMap.Get(second)
	if other.Age != 1 {
		t.Errorf("second agent age = %d, want 1", other.Age)
	}

	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	w := windows[0]
	if w.Steps != 1 || w.SkippedSteps != 1 {
		t.Errorf("steps = %d, skipped = %d; want 1 and 1", w.Steps, w.SkippedSteps)
	}
	if w.EmptyMoves != 1 || w.FoodEaten != 0 {
		t.Errorf("only the healthy agent's empty move should count: %+v", w)
	}
}

func TestFailedResetSeedKeepsRNG(t *testing.T) {
	a := newTestGame(t, 11, nil)
	b := newTestGame(t, 11, nil)

	bad := config.Default()
	bad.Energy.Max = -1
	if err := a.ResetSeed(bad, 99); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	if err := a.Reset(nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Reset(nil); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Error("rejected ResetSeed changed the world RNG")
	}
}
