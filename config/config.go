// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// NumActions is the size of the action set: stay, north, south, west, east.
const NumActions = 5

// NumInputs is the observation length: 5 cross readings, energy, food, noise.
const NumInputs = 9

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Grid       GridConfig       `yaml:"grid"`
	Population PopulationConfig `yaml:"population"`
	Resources  ResourcesConfig  `yaml:"resources"`
	Energy     EnergyConfig     `yaml:"energy"`
	Rewards    RewardsConfig    `yaml:"rewards"`
	Learning   LearningConfig   `yaml:"learning"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Server     ServerConfig     `yaml:"server"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds world dimensions.
type GridConfig struct {
	Size   int `yaml:"size"`    // Side length N of the square grid
	TilePx int `yaml:"tile_px"` // Pixel size of one tile (presentation only)
}

// PopulationConfig holds population parameters.
type PopulationConfig struct {
	Agents          int `yaml:"agents"`
	RespawnInterval int `yaml:"respawn_interval"` // Ticks between low-population checks (0 disables)
	RespawnBelow    int `yaml:"respawn_below"`    // Spawn one fresh agent when alive count is below this
}

// ResourcesConfig holds initial placement and regeneration parameters.
type ResourcesConfig struct {
	Trees                int `yaml:"trees"`
	Rocks                int `yaml:"rocks"`
	Food                 int `yaml:"food"`
	ScatterAttemptFactor int `yaml:"scatter_attempt_factor"` // Attempts per requested cell
	RegenInterval        int `yaml:"regen_interval"`         // Ticks between regeneration (0 disables)
	RegenTrees           int `yaml:"regen_trees"`
	RegenFood            int `yaml:"regen_food"`
}

// EnergyConfig holds the agent energy budget.
type EnergyConfig struct {
	Max         float64 `yaml:"max"`
	InitialMin  float64 `yaml:"initial_min"`
	InitialMax  float64 `yaml:"initial_max"`
	WallPenalty float64 `yaml:"wall_penalty"` // Energy lost when bumping the grid edge
}

// RewardsConfig holds the reward schedule per destination cell.
type RewardsConfig struct {
	Tree      float64 `yaml:"tree"`
	Rock      float64 `yaml:"rock"`
	Food      float64 `yaml:"food"`
	Step      float64 `yaml:"step"` // Base cost of a move onto an empty cell
	TreeYield int     `yaml:"tree_yield"`
	FoodYield int     `yaml:"food_yield"`
}

// LearningConfig holds per-agent learner parameters.
type LearningConfig struct {
	Epsilon        float64 `yaml:"epsilon"`
	Discount       float64 `yaml:"discount"`
	LearningRate   float64 `yaml:"learning_rate"`
	HiddenLayers   []int   `yaml:"hidden_layers"` // Sizes of hidden layers, e.g. [16] or [16, 8]
	FoodNormalizer float64 `yaml:"food_normalizer"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // Ticks per stats window
	PerfWindow  int `yaml:"perf_window"`  // Ticks averaged by the perf collector
}

// ServerConfig holds the presentation server parameters.
type ServerConfig struct {
	Addr     string  `yaml:"addr"`
	TickRate float64 `yaml:"tick_rate"` // Frame clock rate in updates per second
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Cells     int // Grid.Size squared
	NumInputs int
	Layers    []int // Full layer sizes: inputs, hidden..., outputs
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate reports the first out-of-range parameter.
func (c *Config) Validate() error {
	switch {
	case c.Grid.Size < 1:
		return fmt.Errorf("%w: grid.size must be >= 1, got %d", ErrInvalid, c.Grid.Size)
	case c.Population.Agents < 0:
		return fmt.Errorf("%w: population.agents must be >= 0, got %d", ErrInvalid, c.Population.Agents)
	case c.Resources.Trees < 0 || c.Resources.Rocks < 0 || c.Resources.Food < 0:
		return fmt.Errorf("%w: resource counts must be >= 0", ErrInvalid)
	case c.Resources.RegenInterval < 0 || c.Resources.RegenTrees < 0 || c.Resources.RegenFood < 0:
		return fmt.Errorf("%w: regeneration settings must be >= 0", ErrInvalid)
	case c.Energy.Max <= 0:
		return fmt.Errorf("%w: energy.max must be > 0, got %g", ErrInvalid, c.Energy.Max)
	case c.Energy.InitialMin <= 0 || c.Energy.InitialMin > c.Energy.InitialMax || c.Energy.InitialMax > c.Energy.Max:
		return fmt.Errorf("%w: need 0 < energy.initial_min <= energy.initial_max <= energy.max", ErrInvalid)
	case c.Learning.Epsilon < 0 || c.Learning.Epsilon > 1:
		return fmt.Errorf("%w: learning.epsilon must be in [0,1], got %g", ErrInvalid, c.Learning.Epsilon)
	case c.Learning.Discount < 0 || c.Learning.Discount > 1:
		return fmt.Errorf("%w: learning.discount must be in [0,1], got %g", ErrInvalid, c.Learning.Discount)
	case c.Learning.LearningRate <= 0:
		return fmt.Errorf("%w: learning.learning_rate must be > 0", ErrInvalid)
	case c.Learning.FoodNormalizer <= 0:
		return fmt.Errorf("%w: learning.food_normalizer must be > 0", ErrInvalid)
	case len(c.Learning.HiddenLayers) == 0:
		return fmt.Errorf("%w: learning.hidden_layers needs at least one layer", ErrInvalid)
	}
	for i, n := range c.Learning.HiddenLayers {
		if n < 1 {
			return fmt.Errorf("%w: learning.hidden_layers[%d] must be >= 1, got %d", ErrInvalid, i, n)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Cells = c.Grid.Size * c.Grid.Size
	c.Derived.NumInputs = NumInputs

	c.Derived.Layers = make([]int, 0, len(c.Learning.HiddenLayers)+2)
	c.Derived.Layers = append(c.Derived.Layers, NumInputs)
	c.Derived.Layers = append(c.Derived.Layers, c.Learning.HiddenLayers...)
	c.Derived.Layers = append(c.Derived.Layers, NumActions)

	// Scatter needs at least one attempt per requested cell
	if c.Resources.ScatterAttemptFactor < 1 {
		c.Resources.ScatterAttemptFactor = 1
	}
	if c.Telemetry.StatsWindow < 1 {
		c.Telemetry.StatsWindow = 300
	}
	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = 60
	}
}

// Clone returns a deep copy that can be modified independently.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Learning.HiddenLayers = append([]int(nil), c.Learning.HiddenLayers...)
	clone.Derived.Layers = append([]int(nil), c.Derived.Layers...)
	return &clone
}

// Refresh validates the config and recomputes derived values after in-place edits.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
