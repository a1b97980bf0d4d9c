package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/grid"
)

// ErrBadSpawn is returned for a resource spawn request that cannot be honored.
var ErrBadSpawn = errors.New("invalid resource spawn")

// Start marks the game running. Update advances ticks from now on.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = true
	g.paused = false
}

// Pause suspends ticking. Has no effect before Start.
func (g *Game) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		g.paused = true
	}
}

// Resume continues a paused game.
func (g *Game) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = false
}

// Running reports whether the game is started and not paused.
func (g *Game) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running && !g.paused
}

// Reset rebuilds the world from cfg, or from the current config when cfg is
// nil. Every agent and its network is discarded. The game is left stopped.
func (g *Game) Reset(cfg *config.Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resetLocked(cfg, g.rng)
}

// ResetSeed resets like Reset with a world RNG seeded from seed. The new RNG
// replaces the old one only when the reset succeeds.
func (g *Game) ResetSeed(cfg *config.Config, seed int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resetLocked(cfg, rand.New(rand.NewSource(seed)))
}

func (g *Game) resetLocked(cfg *config.Config, rng *rand.Rand) error {
	if cfg == nil {
		cfg = g.cfg
	}
	if err := g.reset(cfg.Clone(), rng); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// SpawnResource scatters count cells of kind onto empty cells and returns
// how many were placed.
func (g *Game) SpawnResource(kind grid.Kind, count int) (int, error) {
	if kind == grid.Empty || !kind.Valid() {
		return 0, fmt.Errorf("%w: kind %v", ErrBadSpawn, kind)
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrBadSpawn, count)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scatter(kind, count), nil
}
