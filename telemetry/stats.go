// Package telemetry aggregates per-window simulation statistics and
// writes them to structured logs and CSV files.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	Alive       int `csv:"alive"`
	Connections int `csv:"connections"`
	Spores      int `csv:"spores"`
	Fruiting    int `csv:"fruiting"`
	Segments    int `csv:"segments"`

	// Events during window
	Births            int `csv:"births"`
	Deaths            int `csv:"deaths"`
	Starvations       int `csv:"starvations"`
	Senescences       int `csv:"senescences"`
	Collapses         int `csv:"collapses"`
	Fusions           int `csv:"fusions"`
	ConnectionsFormed int `csv:"connections_formed"`
	ConnectionsPruned int `csv:"connections_pruned"`
	SporesReleased    int `csv:"spores_released"`
	Germinations      int `csv:"germinations"`
	FruitingSpawns    int `csv:"fruiting_spawns"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Mass pools (for conservation tracking)
	TotalEnergy   float64 `csv:"total_energy"`
	FieldSugar    float64 `csv:"field_sugar"`
	FieldNitrogen float64 `csv:"field_nitrogen"`

	// Environment at window end
	Temperature float64 `csv:"temperature"`
	Humidity    float64 `csv:"humidity"`
	Rain        float64 `csv:"rain"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("alive", s.Alive),
		slog.Int("connections", s.Connections),
		slog.Int("spores", s.Spores),
		slog.Int("fruiting", s.Fruiting),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("starvations", s.Starvations),
		slog.Int("senescences", s.Senescences),
		slog.Int("collapses", s.Collapses),
		slog.Int("fusions", s.Fusions),
		slog.Int("connections_formed", s.ConnectionsFormed),
		slog.Int("connections_pruned", s.ConnectionsPruned),
		slog.Int("germinations", s.Germinations),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("total_energy", s.TotalEnergy),
		slog.Float64("field_sugar", s.FieldSugar),
		slog.Float64("temperature", s.Temperature),
		slog.Float64("rain", s.Rain),
	)
}

// ComputeEnergyStats calculates mean, standard deviation, and
// percentiles from reserve totals. Empty input yields zeros.
func ComputeEnergyStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	if n > 1 {
		std = stat.StdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, std, p10, p50, p90
}

// Percentile calculates the p-th percentile of a sorted slice by
// linear interpolation. p should be in [0, 1]. Returns 0 if the slice
// is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
