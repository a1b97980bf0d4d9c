// Package components defines ECS components for foraging agents.
package components

// Position is an agent's grid cell. Always within [0, N) on both axes.
type Position struct {
	X, Y int
}

// Offset returns the position moved by (dx, dy). The result may be off-grid.
func (p Position) Offset(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}
