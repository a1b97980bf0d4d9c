package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/forage/config"
)

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()

	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-12 {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, back[i], raw[i])
		}
	}
}

func TestDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Default())
	want := pv.DefaultVector()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("%s: config has %v, default vector has %v", pv.Specs[i].Name, got[i], want[i])
		}
	}
}

func TestClamp(t *testing.T) {
	pv := NewParamVector()
	low := make([]float64, pv.Dim())
	high := make([]float64, pv.Dim())
	for i := range low {
		low[i] = -100
		high[i] = 100
	}

	for i, v := range pv.Clamp(low) {
		if v != pv.Specs[i].Min {
			t.Errorf("%s: clamp low got %v, want %v", pv.Specs[i].Name, v, pv.Specs[i].Min)
		}
	}
	for i, v := range pv.Clamp(high) {
		if v != pv.Specs[i].Max {
			t.Errorf("%s: clamp high got %v, want %v", pv.Specs[i].Name, v, pv.Specs[i].Max)
		}
	}
}

func TestApplyToConfig(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	pv.ApplyToConfig(cfg, []float64{0.3, 0.9, 0.05, -0.1})
	if cfg.Learning.Epsilon != 0.3 {
		t.Errorf("epsilon = %v, want 0.3", cfg.Learning.Epsilon)
	}
	if cfg.Learning.Discount != 0.9 {
		t.Errorf("discount = %v, want 0.9", cfg.Learning.Discount)
	}
	if cfg.Learning.LearningRate != 0.05 {
		t.Errorf("learning_rate = %v, want 0.05", cfg.Learning.LearningRate)
	}
	if cfg.Rewards.Step != -0.1 {
		t.Errorf("step reward = %v, want -0.1", cfg.Rewards.Step)
	}
	if err := cfg.Refresh(); err != nil {
		t.Errorf("applied config invalid: %v", err)
	}
}

func TestApplyToConfigClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	pv.ApplyToConfig(cfg, []float64{2, 2, 2, 2})
	if cfg.Learning.Epsilon != 0.5 || cfg.Learning.Discount != 0.99 {
		t.Errorf("values not clamped: epsilon=%v discount=%v", cfg.Learning.Epsilon, cfg.Learning.Discount)
	}
}

func TestAutoPopulation(t *testing.T) {
	tests := []struct {
		dim, want int
	}{
		{1, 4},
		{4, 8},
		{10, 10},
	}
	for _, tt := range tests {
		if got := autoPopulation(tt.dim); got != tt.want {
			t.Errorf("autoPopulation(%d) = %d, want %d", tt.dim, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(75e9); got != "1m15s" {
		t.Errorf("got %q, want 1m15s", got)
	}
	if got := formatDuration(3725e9); got != "1h02m05s" {
		t.Errorf("got %q, want 1h02m05s", got)
	}
}
