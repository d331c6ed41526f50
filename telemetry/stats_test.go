package telemetry

import (
	"math"
	"testing"

	"github.com/fungiform/mycel/components"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeEnergyStats(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	mean, std, p10, p50, p90 := ComputeEnergyStats(values)

	if math.Abs(mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", mean)
	}
	if std <= 0 {
		t.Errorf("std = %v, want positive", std)
	}
	if math.Abs(p10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", p10)
	}
	if math.Abs(p50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", p50)
	}
	if math.Abs(p90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", p90)
	}
}

func TestComputeEnergyStatsEmpty(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeEnergyStats(nil)
	if mean != 0 || std != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty input should yield all zeros")
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(1.0, 0.1) // 10 ticks per window

	if c.ShouldFlush(5) {
		t.Error("window should not flush mid-way")
	}
	if !c.ShouldFlush(10) {
		t.Error("window should flush at the boundary")
	}

	c.RecordBirth()
	c.RecordBirth()
	c.RecordDeath(components.CauseStarvation)
	c.RecordDeath(components.CauseSenescence)
	c.RecordDeath(components.CauseCollapse)
	c.RecordDeath(components.CauseFusion) // not a death
	c.RecordFusion()
	c.RecordConnection()
	c.RecordPruned(3)
	c.RecordGermination()

	stats := c.Flush(10, WindowState{
		Alive:       7,
		Energies:    []float64{0.5, 0.7},
		TotalEnergy: 1.2,
	})

	if stats.Births != 2 {
		t.Errorf("births = %d, want 2", stats.Births)
	}
	if stats.Deaths != 3 {
		t.Errorf("deaths = %d, want 3 (fusion not counted)", stats.Deaths)
	}
	if stats.Starvations != 1 || stats.Senescences != 1 || stats.Collapses != 1 {
		t.Error("death causes not tallied")
	}
	if stats.Fusions != 1 || stats.ConnectionsFormed != 1 || stats.ConnectionsPruned != 3 {
		t.Error("graph events not tallied")
	}
	if stats.Alive != 7 {
		t.Errorf("alive = %d, want 7", stats.Alive)
	}
	if math.Abs(stats.EnergyMean-0.6) > 1e-9 {
		t.Errorf("energy mean = %v, want 0.6", stats.EnergyMean)
	}

	// Counters reset after flush.
	next := c.Flush(20, WindowState{})
	if next.Births != 0 || next.Deaths != 0 {
		t.Error("counters should reset between windows")
	}
	if next.WindowStartTick != 10 {
		t.Errorf("next window start = %d, want 10", next.WindowStartTick)
	}
}
