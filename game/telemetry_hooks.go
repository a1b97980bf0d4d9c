package game

import (
	"github.com/pthm-cable/forage/telemetry"
)

// bookmarkHistory is the number of past windows bookmarks are judged against.
const bookmarkHistory = 10

// flushTelemetry closes the stats window once it is full.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.samplePopulation())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats(g.logger)
		perfStats.LogStats(g.logger)
	}

	bookmarks := g.bookmarks.Check(stats)
	for _, b := range bookmarks {
		b.LogBookmark(g.logger)
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		g.logger.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
	if err := g.outputManager.WriteBookmarks(bookmarks); err != nil {
		g.logger.Error("failed to write bookmarks", "error", err)
	}
}

// samplePopulation collects energy and food distributions and grid counts.
func (g *Game) samplePopulation() telemetry.PopulationSample {
	sample := telemetry.PopulationSample{
		Foods: make([]float64, 0, len(g.order)),
		Cells: g.grid.Counts(),
	}

	for _, e := range g.order {
		_, energy, forager, _ := g.agentMap.Get(e)
		sample.Foods = append(sample.Foods, float64(forager.Food))
		if !energy.Alive {
			sample.Dead++
			continue
		}
		sample.Alive++
		sample.Energies = append(sample.Energies, energy.Value)
	}

	return sample
}
