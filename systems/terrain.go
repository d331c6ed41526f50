package systems

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/fungiform/mycel/config"
)

// GenerateTerrain fills a fresh nutrient field with its starting
// substrate: a low-amplitude noise background, a handful of rich
// patches of each nutrient, and scattered obstacle cells. Everything
// draws from the supplied RNG so a seed reproduces the same world.
func GenerateTerrain(field *NutrientField, cfg config.TerrainConfig, rng *rand.Rand) {
	noise := opensimplex.NewNormalized(rng.Int63())
	size := field.Size
	worldSize := field.WorldSize()

	// Background: gentle noise so empty ground is not uniformly zero.
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			nx := float64(x) * cfg.NoiseScale
			ny := float64(y) * cfg.NoiseScale
			i := field.Idx(x, y)
			field.Sugar[i] = float32(noise.Eval2(nx, ny)) * 0.15
			field.Nitrogen[i] = float32(noise.Eval2(nx+1000, ny+1000)) * 0.08
		}
	}

	patchRadius := func(min, max float64) float32 {
		return float32(min + rng.Float64()*(max-min))
	}
	for p := 0; p < cfg.SugarPatches; p++ {
		cx := rng.Float32() * worldSize
		cy := rng.Float32() * worldSize
		r := patchRadius(cfg.SugarPatchRadiusMin, cfg.SugarPatchRadiusMax)
		field.AddPatch(field.Sugar, cx, cy, r, 0.6+rng.Float32()*0.4)
	}
	for p := 0; p < cfg.NitrogenPatches; p++ {
		cx := rng.Float32() * worldSize
		cy := rng.Float32() * worldSize
		r := patchRadius(cfg.NitrogenPatchRadiusMin, cfg.NitrogenPatchRadiusMax)
		field.AddPatch(field.Nitrogen, cx, cy, r, 0.5+rng.Float32()*0.3)
	}

	// Obstacles go in last so they clear any nutrient already placed.
	for o := 0; o < cfg.ObstacleCount; o++ {
		field.SetObstacle(rng.Intn(size), rng.Intn(size))
	}
}
