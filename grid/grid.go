// Package grid provides the square resource grid agents forage on.
package grid

import (
	"fmt"
	"math/rand"
)

// Kind is the content of one grid cell.
type Kind int8

const (
	Empty Kind = iota
	Tree
	Rock
	Food
)

// NumKinds is the number of valid cell kinds.
const NumKinds = 4

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Tree:
		return "tree"
	case Rock:
		return "rock"
	case Food:
		return "food"
	}
	return fmt.Sprintf("kind(%d)", int8(k))
}

// Valid reports whether k is one of the four cell kinds.
func (k Kind) Valid() bool {
	return k >= Empty && k <= Food
}

// Consumable reports whether consuming a cell of this kind yields a resource.
func (k Kind) Consumable() bool {
	return k == Tree || k == Food
}

// ParseKind parses a kind name as produced by String.
func ParseKind(s string) (Kind, error) {
	for k := Empty; k <= Food; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return Empty, fmt.Errorf("unknown cell kind %q", s)
}

// Grid is an N×N array of cells stored row-major.
// It is not safe for concurrent use; callers serialize access.
type Grid struct {
	n     int
	cells []Kind
}

// New allocates an n×n grid with every cell Empty.
func New(n int) (*Grid, error) {
	if n < 1 {
		return nil, fmt.Errorf("grid size must be >= 1, got %d", n)
	}
	g := &Grid{}
	g.Reset(n)
	return g, nil
}

// Reset reallocates the grid as n×n with every cell Empty.
func (g *Grid) Reset(n int) {
	g.n = n
	g.cells = make([]Kind, n*n)
}

// Size returns the side length N.
func (g *Grid) Size() int { return g.n }

// InBounds reports whether (x, y) lies inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.n && y >= 0 && y < g.n
}

// At returns the kind of cell (x, y). Out-of-range coordinates panic;
// callers that may be off-grid check InBounds first.
func (g *Grid) At(x, y int) Kind {
	if !g.InBounds(x, y) {
		panic(fmt.Sprintf("grid: At(%d, %d) outside %dx%d grid", x, y, g.n, g.n))
	}
	return g.cells[y*g.n+x]
}

// Set overwrites cell (x, y). Out-of-range coordinates panic.
func (g *Grid) Set(x, y int, k Kind) {
	if !g.InBounds(x, y) {
		panic(fmt.Sprintf("grid: Set(%d, %d) outside %dx%d grid", x, y, g.n, g.n))
	}
	if !k.Valid() {
		panic(fmt.Sprintf("grid: Set with invalid kind %d", k))
	}
	g.cells[y*g.n+x] = k
}

// Consume takes the resource at (x, y). Trees and food become Empty and
// are returned with ok=true. Rocks and empty cells are left untouched and
// returned with ok=false.
func (g *Grid) Consume(x, y int) (Kind, bool) {
	k := g.At(x, y)
	if !k.Consumable() {
		return k, false
	}
	g.cells[y*g.n+x] = Empty
	return k, true
}

// Scatter places up to count cells of kind on distinct Empty cells chosen
// uniformly at random, giving up after attemptFactor*count draws.
// Returns the number of cells placed.
func (g *Grid) Scatter(rng *rand.Rand, kind Kind, count, attemptFactor int) int {
	if count <= 0 || kind == Empty || !kind.Valid() {
		return 0
	}
	if attemptFactor < 1 {
		attemptFactor = 1
	}

	placed := 0
	budget := count * attemptFactor
	for attempt := 0; attempt < budget && placed < count; attempt++ {
		i := rng.Intn(len(g.cells))
		if g.cells[i] != Empty {
			continue
		}
		g.cells[i] = kind
		placed++
	}
	return placed
}

// RandomVacant draws up to attempts random cells and returns the first one
// that is Empty and not reported as occupied. ok is false when the budget ran out.
func (g *Grid) RandomVacant(rng *rand.Rand, attempts int, occupied func(x, y int) bool) (x, y int, ok bool) {
	for i := 0; i < attempts; i++ {
		x, y = rng.Intn(g.n), rng.Intn(g.n)
		if g.cells[y*g.n+x] != Empty {
			continue
		}
		if occupied != nil && occupied(x, y) {
			continue
		}
		return x, y, true
	}
	return 0, 0, false
}

// Count returns the number of cells of the given kind.
func (g *Grid) Count(k Kind) int {
	n := 0
	for _, c := range g.cells {
		if c == k {
			n++
		}
	}
	return n
}

// Counts returns the number of cells of each kind, indexed by Kind.
func (g *Grid) Counts() [NumKinds]int {
	var counts [NumKinds]int
	for _, c := range g.cells {
		counts[c]++
	}
	return counts
}

// Kinds returns a row-major copy of all cells.
func (g *Grid) Kinds() []Kind {
	out := make([]Kind, len(g.cells))
	copy(out, g.cells)
	return out
}
