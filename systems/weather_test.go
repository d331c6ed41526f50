package systems

import (
	"math/rand"
	"testing"

	"github.com/fungiform/mycel/config"
)

func TestWeatherDisabledIsNeutral(t *testing.T) {
	cfg := config.WeatherConfig{Enabled: false}
	w := NewWeather(cfg)
	rng := rand.New(rand.NewSource(1))

	before := *w
	for i := 0; i < 100; i++ {
		w.Step(uint64(i), rng)
	}
	if *w != before {
		t.Error("disabled weather should not change state")
	}
	if w.GrowthMultiplier() != 1 || w.DecayMultiplier() != 1 || w.Extremity() != 0 {
		t.Error("disabled weather should yield neutral multipliers")
	}
	if w.GerminationModifier() != 1 {
		t.Error("disabled weather should not shift germination")
	}
}

func TestWeatherStaysBounded(t *testing.T) {
	w := NewWeather(config.Default().Weather)
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 100000; i++ {
		w.Step(uint64(i), rng)
		if w.Humidity < 0 || w.Humidity > 1 {
			t.Fatalf("humidity out of range at tick %d: %g", i, w.Humidity)
		}
		if w.Rain < 0 || w.Rain > 1 {
			t.Fatalf("rain out of range at tick %d: %g", i, w.Rain)
		}
		if w.Temperature < -40 || w.Temperature > 60 {
			t.Fatalf("temperature diverged at tick %d: %g", i, w.Temperature)
		}
	}
}

func TestWeatherMultiplierRanges(t *testing.T) {
	w := NewWeather(config.Default().Weather)
	rng := rand.New(rand.NewSource(23))

	for i := 0; i < 50000; i++ {
		w.Step(uint64(i), rng)
		if g := w.GrowthMultiplier(); g < 0 || g > 1 {
			t.Fatalf("growth multiplier out of [0,1]: %g", g)
		}
		if d := w.DecayMultiplier(); d < 1 || d > 2 {
			t.Fatalf("decay multiplier out of [1,2]: %g", d)
		}
		if e := w.Extremity(); e < 0 || e > 1 {
			t.Fatalf("extremity out of [0,1]: %g", e)
		}
	}
}

func TestWeatherDeterministic(t *testing.T) {
	a := NewWeather(config.Default().Weather)
	b := NewWeather(config.Default().Weather)
	rngA := rand.New(rand.NewSource(99))
	rngB := rand.New(rand.NewSource(99))

	for i := 0; i < 10000; i++ {
		a.Step(uint64(i), rngA)
		b.Step(uint64(i), rngB)
	}
	if *a != *b {
		t.Error("same seed produced diverging weather")
	}
}
