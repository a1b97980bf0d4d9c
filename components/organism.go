package components

import "github.com/pthm-cable/forage/neural"

// Energy tracks an agent's energy budget.
// Value stays within [0, max energy]; an agent whose Value reaches 0 is dead.
type Energy struct {
	Value float64
	Alive bool
}

// Forager holds identity and lifetime counters.
type Forager struct {
	ID     uint32
	Food   int // resources gathered over the agent's lifetime, never decreases
	Age    int // steps taken
	DiedAt int // tick of death, -1 while alive
}

// Brain owns the agent's action-value network. Each agent holds its own
// instance; brains are never shared between agents.
type Brain struct {
	Net neural.ValueApproximator
}
