package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/fungiform/mycel/config"
)

func testField(t *testing.T, size int) *NutrientField {
	t.Helper()
	cfg := config.Default().Nutrients
	return NewNutrientField(size, 1, cfg, rand.New(rand.NewSource(1)))
}

func TestConsumeBoundedByAvailability(t *testing.T) {
	f := testField(t, 16)
	f.Sugar[f.Idx(8, 8)] = 0.1

	removed := f.Consume(f.Sugar, 8, 8, 1.0, 1)
	if removed > 0.1+1e-6 {
		t.Errorf("removed %g, more than available 0.1", removed)
	}
	if removed <= 0 {
		t.Error("expected some sugar removed")
	}
	for i, v := range f.Sugar {
		if v < 0 {
			t.Fatalf("cell %d went negative: %g", i, v)
		}
	}
}

func TestConsumeConservation(t *testing.T) {
	f := testField(t, 16)
	for i := range f.Sugar {
		f.Sugar[i] = 0.5
	}
	before := f.TotalSugar()
	removed := f.Consume(f.Sugar, 8, 8, 0.05, 1)
	after := f.TotalSugar()

	if math.Abs(before-after-float64(removed)) > 1e-4 {
		t.Errorf("mass mismatch: before=%g after=%g removed=%g", before, after, removed)
	}
}

func TestConsumeEdgeClamped(t *testing.T) {
	f := testField(t, 16)
	f.Sugar[f.Idx(0, 0)] = 0.5
	// A corner query must not panic or index out of bounds.
	removed := f.Consume(f.Sugar, 0, 0, 0.1, 2)
	if removed <= 0 {
		t.Error("expected corner consumption to remove sugar")
	}
}

func TestDiffuseConservesMass(t *testing.T) {
	f := testField(t, 32)
	rng := rand.New(rand.NewSource(7))
	for i := range f.Sugar {
		f.Sugar[i] = rng.Float32()
	}
	before := f.TotalSugar()
	for i := 0; i < 50; i++ {
		f.Diffuse(1.0, rng) // full rain exercises the anisotropic term
	}
	after := f.TotalSugar()
	if math.Abs(before-after) > 0.05 {
		t.Errorf("diffusion changed total mass: before=%g after=%g", before, after)
	}
	for i, v := range f.Sugar {
		if v < 0 || v > 1 || math.IsNaN(float64(v)) {
			t.Fatalf("cell %d invalid after diffusion: %g", i, v)
		}
	}
}

// A saturated grid leaves the advective term nowhere to push; every flux
// must be cut to the receiver's headroom or cells climb past the cap.
func TestDiffuseRespectsCellCap(t *testing.T) {
	f := testField(t, 16)
	for i := range f.Sugar {
		f.Sugar[i] = 1.0
	}
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 20; i++ {
		f.Diffuse(1.0, rng)
	}
	for i, v := range f.Sugar {
		if v > 1 {
			t.Fatalf("cell %d exceeded cap after diffusion: %g", i, v)
		}
	}
}

func TestDiffuseSpreads(t *testing.T) {
	f := testField(t, 16)
	center := f.Idx(8, 8)
	f.Sugar[center] = 1.0

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		f.Diffuse(0, rng)
	}
	if f.Sugar[center] >= 1.0 {
		t.Error("center cell should lose sugar to neighbors")
	}
	if f.Sugar[f.Idx(9, 8)] <= 0 {
		t.Error("east neighbor should gain sugar")
	}
}

func TestObstacleBlocksDiffusionAndConsumption(t *testing.T) {
	f := testField(t, 16)
	f.SetObstacle(9, 8)
	f.Sugar[f.Idx(8, 8)] = 1.0

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		f.Diffuse(0, rng)
	}
	if f.Sugar[f.Idx(9, 8)] != 0 {
		t.Errorf("obstacle cell accumulated sugar: %g", f.Sugar[f.Idx(9, 8)])
	}
	if got := f.SugarAt(9.5, 8.5); got != 0 {
		t.Errorf("obstacle cell reads %g, want 0", got)
	}
}

func TestGradientPointsUphill(t *testing.T) {
	f := testField(t, 16)
	// Ramp increasing along +x.
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			f.Sugar[f.Idx(x, y)] = float32(x) / 16
		}
	}
	gx, gy := f.Gradient(f.Sugar, 8, 8)
	if gx <= 0 {
		t.Errorf("gx = %g, want positive toward increasing sugar", gx)
	}
	if math.Abs(float64(gy)) > 1e-5 {
		t.Errorf("gy = %g, want ~0 on a pure x ramp", gy)
	}
}

func TestRegenOnlyBelowFloor(t *testing.T) {
	cfg := config.Default().Nutrients
	cfg.RegenSamples = 4096 // oversample so every cell gets hit
	f := NewNutrientField(8, 1, cfg, rand.New(rand.NewSource(1)))
	rich := f.Idx(2, 2)
	f.Sugar[rich] = 0.9

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		f.Regen(rng)
	}
	if f.Sugar[rich] != 0.9 {
		t.Errorf("cell above floor changed: %g", f.Sugar[rich])
	}
	poor := f.Idx(5, 5)
	if f.Sugar[poor] <= 0 {
		t.Error("depleted cell should regenerate")
	}
	if f.Sugar[poor] > float32(cfg.RegenFloor)+1e-6 {
		t.Errorf("regen overshot floor: %g > %g", f.Sugar[poor], cfg.RegenFloor)
	}
}

func TestDepositReturnsOverflow(t *testing.T) {
	f := testField(t, 8)
	f.Sugar[f.Idx(3, 3)] = 0.8
	overflow := f.Deposit(f.Sugar, 3.5, 3.5, 0.5)
	if math.Abs(float64(overflow)-0.3) > 1e-5 {
		t.Errorf("overflow = %g, want 0.3", overflow)
	}
	if f.Sugar[f.Idx(3, 3)] != 1.0 {
		t.Errorf("cell = %g, want capped at 1.0", f.Sugar[f.Idx(3, 3)])
	}
}

func TestAddPatchStaysInBounds(t *testing.T) {
	f := testField(t, 16)
	// Patch centered outside the grid must clamp, not panic.
	f.AddPatch(f.Sugar, -3, -3, 5, 1.0)
	f.AddPatch(f.Sugar, 20, 20, 5, 1.0)
	for i, v := range f.Sugar {
		if v < 0 || v > 1 {
			t.Fatalf("cell %d out of range: %g", i, v)
		}
	}
}
