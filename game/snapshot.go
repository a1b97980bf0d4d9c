package game

import "github.com/pthm-cable/forage/grid"

// AgentView is the presentation view of one agent.
type AgentView struct {
	ID     uint32  `json:"id"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Energy float64 `json:"energy"`
	Food   int     `json:"food"`
	Age    int     `json:"age"`
	Alive  bool    `json:"alive"`
}

// Stats aggregates the population and grid for status displays.
// Averages are over living agents and zero when none are alive.
type Stats struct {
	Alive     int     `json:"alive"`
	Dead      int     `json:"dead"`
	AvgEnergy float64 `json:"avg_energy"`
	AvgFood   float64 `json:"avg_food"`
	AvgAge    float64 `json:"avg_age"`
	Empty     int     `json:"empty"`
	Trees     int     `json:"trees"`
	Rocks     int     `json:"rocks"`
	Food      int     `json:"food"`
}

// Snapshot is a self-contained copy of the world for rendering.
type Snapshot struct {
	Tick    int         `json:"tick"`
	Running bool        `json:"running"`
	Paused  bool        `json:"paused"`
	Size    int         `json:"size"`
	Cells   []grid.Kind `json:"cells"` // row-major, index y*size+x
	Agents  []AgentView `json:"agents"`
	Stats   Stats       `json:"stats"`
}

// Snapshot copies the current world state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		Tick:    g.tick,
		Running: g.running,
		Paused:  g.paused,
		Size:    g.grid.Size(),
		Cells:   g.grid.Kinds(),
		Agents:  make([]AgentView, 0, len(g.order)),
	}

	var energySum, foodSum, ageSum float64
	for _, e := range g.order {
		pos, energy, forager, _ := g.agentMap.Get(e)
		snap.Agents = append(snap.Agents, AgentView{
			ID:     forager.ID,
			X:      pos.X,
			Y:      pos.Y,
			Energy: energy.Value,
			Food:   forager.Food,
			Age:    forager.Age,
			Alive:  energy.Alive,
		})
		if !energy.Alive {
			snap.Stats.Dead++
			continue
		}
		snap.Stats.Alive++
		energySum += energy.Value
		foodSum += float64(forager.Food)
		ageSum += float64(forager.Age)
	}

	if n := float64(snap.Stats.Alive); n > 0 {
		snap.Stats.AvgEnergy = energySum / n
		snap.Stats.AvgFood = foodSum / n
		snap.Stats.AvgAge = ageSum / n
	}

	counts := g.grid.Counts()
	snap.Stats.Empty = counts[grid.Empty]
	snap.Stats.Trees = counts[grid.Tree]
	snap.Stats.Rocks = counts[grid.Rock]
	snap.Stats.Food = counts[grid.Food]

	return snap
}
