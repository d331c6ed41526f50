package systems

import (
	"testing"

	"github.com/fungiform/mycel/config"
)

func TestMemoryRecordAndDecay(t *testing.T) {
	cfg := config.MemoryConfig{Enabled: true, DecayRate: 0.9, UpdateStrength: 0.5}
	m := NewMemoryGrid(16, 1, cfg)

	m.Record(5.5, 5.5)
	v1 := m.At(5.5, 5.5)
	if v1 != 0.5 {
		t.Errorf("first record = %g, want 0.5", v1)
	}

	// Repeated records approach but never exceed 1.
	for i := 0; i < 100; i++ {
		m.Record(5.5, 5.5)
	}
	if v := m.At(5.5, 5.5); v > 1 {
		t.Errorf("memory exceeded 1: %g", v)
	}

	before := m.At(5.5, 5.5)
	m.Decay()
	after := m.At(5.5, 5.5)
	if after >= before {
		t.Errorf("decay did not fade memory: %g -> %g", before, after)
	}
}

func TestMemoryDisabled(t *testing.T) {
	m := NewMemoryGrid(16, 1, config.MemoryConfig{Enabled: false})
	m.Record(5, 5)
	if m.At(5, 5) != 0 {
		t.Error("disabled memory should stay zero")
	}
}

func TestMemoryGradient(t *testing.T) {
	cfg := config.MemoryConfig{Enabled: true, DecayRate: 0.99, UpdateStrength: 1.0}
	m := NewMemoryGrid(16, 1, cfg)
	m.Record(9.5, 8.5)

	gx, _ := m.Gradient(8.5, 8.5)
	if gx <= 0 {
		t.Errorf("gradient gx = %g, want positive toward the recorded cell", gx)
	}
}

func TestMemoryClampsOutOfBounds(t *testing.T) {
	m := NewMemoryGrid(8, 1, config.MemoryConfig{Enabled: true, DecayRate: 0.99, UpdateStrength: 0.5})
	m.Record(-5, -5)
	if m.At(0, 0) != 0.5 {
		t.Errorf("out-of-bounds record should clamp to the edge cell, got %g", m.At(0, 0))
	}
}
