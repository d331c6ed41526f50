package systems

import (
	"math"
	"math/rand"
	"testing"
)

func TestBlendHeadingFollowsGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	// Heading east, strong pull north.
	h := BlendHeading(0, []SteerTerm{{DX: 0, DY: 1, Weight: 5}}, 0, rng)
	if h <= 0.5 || h >= math.Pi {
		t.Errorf("heading %g should turn toward +y", h)
	}
}

func TestBlendHeadingIgnoresZeroVectors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := BlendHeading(1.2, []SteerTerm{{DX: 0, DY: 0, Weight: 10}}, 0, rng)
	if h != 1.2 {
		t.Errorf("zero-vector term changed heading: %g", h)
	}
}

func TestBlendHeadingWanderBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		h := BlendHeading(0, nil, 0.05, rng)
		if math.Abs(float64(h)) > 0.05 {
			t.Fatalf("wander exceeded range: %g", h)
		}
	}
}

func TestReflectBoundary(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tests := []struct {
		name string
		x, y float32
		h    float32
	}{
		{"west wall", -0.5, 50, math.Pi},
		{"east wall", 100.5, 50, 0},
		{"north wall", 50, -0.5, -math.Pi / 2},
		{"south wall", 50, 100.5, math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nx, ny, nh, reflected := ReflectBoundary(tt.x, tt.y, tt.h, 100, rng)
			if !reflected {
				t.Fatal("expected reflection")
			}
			if nx < 0 || nx >= 100 || ny < 0 || ny >= 100 {
				t.Errorf("position (%g, %g) still out of bounds", nx, ny)
			}
			// The reflected heading must point back into the world.
			vx := math.Cos(float64(nh))
			vy := math.Sin(float64(nh))
			switch tt.name {
			case "west wall":
				if vx <= 0 {
					t.Errorf("heading should point east, vx = %g", vx)
				}
			case "east wall":
				if vx >= 0 {
					t.Errorf("heading should point west, vx = %g", vx)
				}
			case "north wall":
				if vy <= 0 {
					t.Errorf("heading should point south, vy = %g", vy)
				}
			case "south wall":
				if vy >= 0 {
					t.Errorf("heading should point north, vy = %g", vy)
				}
			}
		})
	}
}

func TestReflectBoundaryInBoundsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	nx, ny, nh, reflected := ReflectBoundary(50, 50, 1.0, 100, rng)
	if reflected || nx != 50 || ny != 50 || nh != 1.0 {
		t.Error("in-bounds position should pass through unchanged")
	}
}

func TestDeflectObstacle(t *testing.T) {
	f := testField(t, 16)
	f.SetObstacle(9, 8)
	rng := rand.New(rand.NewSource(4))

	// Moving east from (8.5, 8.5) into the blocked cell (9, 8).
	nx, ny, nh, deflected := DeflectObstacle(f, 8.5, 8.5, 9.2, 8.5, 0, rng)
	if !deflected {
		t.Fatal("expected deflection into obstacle")
	}
	if nx != 8.5 || ny != 8.5 {
		t.Errorf("tip should stay put, got (%g, %g)", nx, ny)
	}
	if math.Cos(float64(nh)) >= 0 {
		t.Errorf("heading should flip west, got %g", nh)
	}

	// A clear cell passes through.
	nx, ny, _, deflected = DeflectObstacle(f, 8.5, 8.5, 8.5, 9.2, 0, rng)
	if deflected {
		t.Error("unexpected deflection on clear cell")
	}
	if nx != 8.5 || ny != 9.2 {
		t.Errorf("clear move altered: (%g, %g)", nx, ny)
	}
}
