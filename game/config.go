package game

import (
	"log/slog"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/telemetry"
)

// Options configures game creation.
type Options struct {
	Seed           int64
	Config         *config.Config // nil uses config.Cfg()
	LogStats       bool           // log window and perf stats on every flush
	OutputDir      string         // CSV and config output, empty disables
	StepsPerUpdate int            // ticks advanced per Update call, < 1 means 1
	StatsCallback  func(telemetry.WindowStats)
	Logger         *slog.Logger // nil uses slog.Default()
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.Cfg()
	}
	if o.StepsPerUpdate < 1 {
		o.StepsPerUpdate = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
