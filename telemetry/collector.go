package telemetry

import "github.com/fungiform/mycel/components"

// Collector accumulates events within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks uint64
	dt                  float32

	windowStartTick uint64

	// Event counters for the current window
	births            int
	deaths            int
	starvations       int
	senescences       int
	collapses         int
	fusions           int
	connectionsFormed int
	connectionsPruned int
	sporesReleased    int
	germinations      int
	fruitingSpawns    int
}

// NewCollector creates a stats collector. windowDurationSec is the
// window length in simulation seconds; dt converts ticks to time.
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := uint64(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordBirth records a tip spawn (branch, germination, or external).
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records a tip death by cause. Fusion absorption is not
// counted as a death.
func (c *Collector) RecordDeath(cause components.DeathCause) {
	switch cause {
	case components.CauseFusion:
		return
	case components.CauseStarvation:
		c.starvations++
	case components.CauseSenescence:
		c.senescences++
	case components.CauseCollapse:
		c.collapses++
	}
	c.deaths++
}

// RecordFusion records a tip merge.
func (c *Collector) RecordFusion() {
	c.fusions++
}

// RecordConnection records a new anastomosis edge.
func (c *Collector) RecordConnection() {
	c.connectionsFormed++
}

// RecordPruned records n edges removed by pruning.
func (c *Collector) RecordPruned(n int) {
	c.connectionsPruned += n
}

// RecordSpore records a spore release.
func (c *Collector) RecordSpore() {
	c.sporesReleased++
}

// RecordGermination records a spore germinating into a tip.
func (c *Collector) RecordGermination() {
	c.germinations++
}

// RecordFruiting records a fruiting body spawn.
func (c *Collector) RecordFruiting() {
	c.fruitingSpawns++
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// WindowState carries the instantaneous values sampled at window end.
type WindowState struct {
	Alive       int
	Connections int
	Spores      int
	Fruiting    int
	Segments    int

	Energies    []float64
	TotalEnergy float64
	FieldSugar  float64
	FieldNitro  float64

	Temperature float64
	Humidity    float64
	Rain        float64
}

// Flush produces a WindowStats and resets counters for the next
// window.
func (c *Collector) Flush(currentTick uint64, state WindowState) WindowStats {
	mean, std, p10, p50, p90 := ComputeEnergyStats(state.Energies)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Alive:       state.Alive,
		Connections: state.Connections,
		Spores:      state.Spores,
		Fruiting:    state.Fruiting,
		Segments:    state.Segments,

		Births:            c.births,
		Deaths:            c.deaths,
		Starvations:       c.starvations,
		Senescences:       c.senescences,
		Collapses:         c.collapses,
		Fusions:           c.fusions,
		ConnectionsFormed: c.connectionsFormed,
		ConnectionsPruned: c.connectionsPruned,
		SporesReleased:    c.sporesReleased,
		Germinations:      c.germinations,
		FruitingSpawns:    c.fruitingSpawns,

		EnergyMean: mean,
		EnergyStd:  std,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,

		TotalEnergy:   state.TotalEnergy,
		FieldSugar:    state.FieldSugar,
		FieldNitrogen: state.FieldNitro,

		Temperature: state.Temperature,
		Humidity:    state.Humidity,
		Rain:        state.Rain,
	}

	// Reset for the next window.
	c.windowStartTick = currentTick
	c.births = 0
	c.deaths = 0
	c.starvations = 0
	c.senescences = 0
	c.collapses = 0
	c.fusions = 0
	c.connectionsFormed = 0
	c.connectionsPruned = 0
	c.sporesReleased = 0
	c.germinations = 0
	c.fruitingSpawns = 0

	return stats
}
