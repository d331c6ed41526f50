package systems

import (
	"math"
	"math/rand"

	"github.com/fungiform/mycel/config"
)

// Weather is a small Markovian environment process. Temperature,
// humidity, and rain each drift within bounds under random
// perturbation; no history beyond the current values is kept. The
// derived multipliers feed field diffusion, reserve decay, senescence,
// and spore germination.
type Weather struct {
	Temperature float32 // degrees C
	Humidity    float32 // [0,1]
	Rain        float32 // [0,1]
	Season      float32 // [0,1), fraction of the seasonal cycle

	cfg config.WeatherConfig
}

// Seasonal cycle length in ticks. One in-sim year.
const seasonTicks = 36000

// NewWeather creates a weather process at mild starting conditions.
func NewWeather(cfg config.WeatherConfig) *Weather {
	return &Weather{
		Temperature: 18,
		Humidity:    0.6,
		Rain:        0,
		cfg:         cfg,
	}
}

// Step advances the process one tick.
func (w *Weather) Step(tick uint64, rng *rand.Rand) {
	if !w.cfg.Enabled {
		return
	}

	// Seasonal baseline the random walk is pulled toward.
	baseTemp := float32(18.0)
	baseHumidity := float32(0.6)
	if w.cfg.SeasonalCycle {
		w.Season = float32(tick%seasonTicks) / seasonTicks
		phase := float64(w.Season) * 2 * math.Pi
		baseTemp = 14 + 12*float32(math.Sin(phase))
		baseHumidity = 0.6 - 0.2*float32(math.Sin(phase))
	}

	w.Temperature += (baseTemp-w.Temperature)*0.002 + (rng.Float32()*2-1)*0.1
	w.Humidity += (baseHumidity-w.Humidity)*0.002 + (rng.Float32()*2-1)*0.01
	w.Humidity = clamp01(w.Humidity)

	// Rain starts and stops in bursts: humid air makes onset likelier,
	// and active rain decays slowly toward dry.
	if w.Rain <= 0 {
		if rng.Float32() < 0.002*w.Humidity {
			w.Rain = 0.3 + rng.Float32()*0.7
		}
	} else {
		w.Rain += (rng.Float32()*2 - 1) * 0.02
		w.Rain -= 0.0005
		if w.Rain < 0 {
			w.Rain = 0
		} else if w.Rain > 1 {
			w.Rain = 1
		}
	}
}

// GrowthMultiplier scales step length and branching. Peaks in mild,
// humid conditions and falls toward zero in frost or extreme heat.
func (w *Weather) GrowthMultiplier() float32 {
	if !w.cfg.Enabled || !w.cfg.AffectsGrowth {
		return 1
	}
	t := thermalComfort(w.Temperature)
	return t * (0.6 + 0.4*w.Humidity)
}

// DecayMultiplier scales passive reserve decay. Values above 1 mean
// reserves drain faster. Heat burns energy; cold preserves it but
// also stalls growth via GrowthMultiplier.
func (w *Weather) DecayMultiplier() float32 {
	if !w.cfg.Enabled || !w.cfg.AffectsEnergy {
		return 1
	}
	excess := (w.Temperature - 22) / 15
	if excess < 0 {
		excess = -excess * 0.3
	}
	m := 1 + excess*0.5
	if m > 2 {
		m = 2
	}
	return m
}

// Extremity returns how far conditions sit from the comfortable band,
// in [0,1]. Senescence reads this against its weather threshold.
func (w *Weather) Extremity() float32 {
	if !w.cfg.Enabled {
		return 0
	}
	return 1 - thermalComfort(w.Temperature)
}

// GerminationModifier shifts the spore germination threshold. Wet,
// humid conditions lower the bar; dry conditions raise it.
func (w *Weather) GerminationModifier() float32 {
	if !w.cfg.Enabled {
		return 1
	}
	return 1.3 - 0.3*w.Humidity - 0.2*w.Rain
}

// thermalComfort maps temperature to [0,1], peaking around 20C with a
// broad Gaussian shoulder.
func thermalComfort(temp float32) float32 {
	d := float64(temp-20) / 14
	return float32(math.Exp(-d * d))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
