package main

import (
	"github.com/pthm-cable/forage/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Column name in the log
	Path    string  // Config path
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{
				Name: "epsilon", Path: "learning.epsilon", Min: 0.01, Max: 0.5, Default: 0.18,
				get: func(c *config.Config) float64 { return c.Learning.Epsilon },
				set: func(c *config.Config, v float64) { c.Learning.Epsilon = v },
			},
			{
				Name: "discount", Path: "learning.discount", Min: 0.5, Max: 0.99, Default: 0.85,
				get: func(c *config.Config) float64 { return c.Learning.Discount },
				set: func(c *config.Config, v float64) { c.Learning.Discount = v },
			},
			{
				Name: "learning_rate", Path: "learning.learning_rate", Min: 0.001, Max: 0.1, Default: 0.01,
				get: func(c *config.Config) float64 { return c.Learning.LearningRate },
				set: func(c *config.Config, v float64) { c.Learning.LearningRate = v },
			},
			{
				Name: "step_reward", Path: "rewards.step", Min: -0.2, Max: 0, Default: -0.04,
				get: func(c *config.Config) float64 { return c.Rewards.Step },
				set: func(c *config.Config, v float64) { c.Rewards.Step = v },
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(cfg)
	}
	return v
}
