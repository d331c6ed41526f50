// Package config provides configuration loading and validation for the engine.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation parameters. A Config is plain data: engines
// receive their own copy at construction, so independent instances never
// share mutable configuration state.
type Config struct {
	Tick       TickConfig       `yaml:"tick"`
	Grid       GridConfig       `yaml:"grid"`
	Spatial    SpatialConfig    `yaml:"spatial"`
	Terrain    TerrainConfig    `yaml:"terrain"`
	Growth     GrowthConfig     `yaml:"growth"`
	Energy     EnergyConfig     `yaml:"energy"`
	Nutrients  NutrientsConfig  `yaml:"nutrients"`
	Memory     MemoryConfig     `yaml:"memory"`
	Network    NetworkConfig    `yaml:"network"`
	Fusion     FusionConfig     `yaml:"fusion"`
	Signals    SignalsConfig    `yaml:"signals"`
	Senescence SenescenceConfig `yaml:"senescence"`
	Weather    WeatherConfig    `yaml:"weather"`
	Fruiting   FruitingConfig   `yaml:"fruiting"`
	Spores     SporesConfig     `yaml:"spores"`
	Segments   SegmentsConfig   `yaml:"segments"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// TickConfig holds the fixed simulation timestep.
type TickConfig struct {
	DT float64 `yaml:"dt"` // seconds of sim time per tick
}

// GridConfig holds field dimensions.
type GridConfig struct {
	Size     int     `yaml:"size"`      // cells per side
	CellSize float64 `yaml:"cell_size"` // world units per cell
}

// SpatialConfig holds spatial index parameters.
type SpatialConfig struct {
	BucketSize float64 `yaml:"bucket_size"` // bucket edge in grid units
}

// TerrainConfig holds initial nutrient distribution parameters.
type TerrainConfig struct {
	SugarPatches           int     `yaml:"sugar_patches"`
	NitrogenPatches        int     `yaml:"nitrogen_patches"`
	SugarPatchRadiusMin    float64 `yaml:"sugar_patch_radius_min"`
	SugarPatchRadiusMax    float64 `yaml:"sugar_patch_radius_max"`
	NitrogenPatchRadiusMin float64 `yaml:"nitrogen_patch_radius_min"`
	NitrogenPatchRadiusMax float64 `yaml:"nitrogen_patch_radius_max"`
	NoiseScale             float64 `yaml:"noise_scale"`
	ObstacleCount          int     `yaml:"obstacle_count"`
}

// GrowthConfig holds tip steering and branching parameters.
type GrowthConfig struct {
	InitialTips          int     `yaml:"initial_tips"`
	StepSize             float64 `yaml:"step_size"`
	BranchProbability    float64 `yaml:"branch_probability"`
	BranchEnergyFraction float64 `yaml:"branch_energy_fraction"` // fraction of parent reserves transferred
	BranchOffset         float64 `yaml:"branch_offset"`          // child spawn distance from parent
	BranchAngleSpread    float64 `yaml:"branch_angle_spread"`    // radians around parent heading
	GradientWeight       float64 `yaml:"gradient_weight"`        // chemotaxis steering weight
	MemoryWeight         float64 `yaml:"memory_weight"`          // memory gradient steering weight
	TropismAngle         float64 `yaml:"tropism_angle"`
	TropismStrength      float64 `yaml:"tropism_strength"`
	WanderRange          float64 `yaml:"wander_range"` // radians of random wander per tick
	AvoidanceDistance    float64 `yaml:"avoidance_distance"`
	AvoidanceWeight      float64 `yaml:"avoidance_weight"`
	MaxTips              int     `yaml:"max_tips"`           // hard population cap
	BranchSuppressAt     int     `yaml:"branch_suppress_at"` // stop branching above this count
}

// EnergyConfig holds reserve and feeding parameters.
type EnergyConfig struct {
	InitialCarbon     float64 `yaml:"initial_carbon"`
	InitialNitrogen   float64 `yaml:"initial_nitrogen"`
	MaxReserve        float64 `yaml:"max_reserve"`
	UptakeRate        float64 `yaml:"uptake_rate"`   // per-tick cap on consumption
	UptakeRadius      int     `yaml:"uptake_radius"` // kernel radius in cells
	DecayRate         float64 `yaml:"decay_rate"`    // multiplicative reserve decay per tick
	MinToLive         float64 `yaml:"min_to_live"`
	OptimalCNRatio    float64 `yaml:"optimal_cn_ratio"`
	RatioPenaltySigma float64 `yaml:"ratio_penalty_sigma"` // width of the smooth C:N penalty (log space)
}

// NutrientsConfig holds field dynamics parameters.
type NutrientsConfig struct {
	DiffusionRate           float64 `yaml:"diffusion_rate"`
	NitrogenDiffusionFactor float64 `yaml:"nitrogen_diffusion_factor"`
	RegenRate               float64 `yaml:"regen_rate"`
	RegenFloor              float64 `yaml:"regen_floor"`
	RegenSamples            int     `yaml:"regen_samples"`
	FlowBias                float64 `yaml:"flow_bias"`  // anisotropy strength at full rain
	FlowDrift               float64 `yaml:"flow_drift"` // max flow direction drift per tick, radians
}

// MemoryConfig holds discovery-memory grid parameters.
type MemoryConfig struct {
	Enabled        bool    `yaml:"enabled"`
	DecayRate      float64 `yaml:"decay_rate"`
	UpdateStrength float64 `yaml:"update_strength"`
}

// NetworkConfig holds anastomosis and reinforcement parameters.
type NetworkConfig struct {
	AnastomosisDistance float64 `yaml:"anastomosis_distance"`
	InitialStrength     float64 `yaml:"initial_strength"`
	MinStrength         float64 `yaml:"min_strength"`
	BalanceFraction     float64 `yaml:"balance_fraction"` // one-time reserve balancing on a new edge
	FlowRate            float64 `yaml:"flow_rate"`
	MaxFlow             float64 `yaml:"max_flow"` // per-tick clamp on transferred reserve
	StrengthenRate      float64 `yaml:"strengthen_rate"`
	StrengthDecay       float64 `yaml:"strength_decay"`
	PruningThreshold    float64 `yaml:"pruning_threshold"`
	HubDegree           int     `yaml:"hub_degree"` // degree at which a node counts as a hub
}

// FusionConfig holds tip merge parameters.
type FusionConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Distance float64 `yaml:"distance"`
	MinAge   float64 `yaml:"min_age"`
}

// SignalsConfig holds nutrient-discovery signal propagation parameters.
type SignalsConfig struct {
	Enabled           bool    `yaml:"enabled"`
	DecayRate         float64 `yaml:"decay_rate"`
	TriggerThreshold  float64 `yaml:"trigger_threshold"`
	StrengthThreshold float64 `yaml:"strength_threshold"`
	SteerBias         float64 `yaml:"steer_bias"`
}

// SenescenceConfig holds aging-death parameters.
type SenescenceConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MinAge            float64 `yaml:"min_age"`
	BaseProbability   float64 `yaml:"base_probability"`
	FlowThreshold     float64 `yaml:"flow_threshold"`
	FlowFactor        float64 `yaml:"flow_factor"`
	DistanceThreshold float64 `yaml:"distance_threshold"`
	CollapseDistance  float64 `yaml:"collapse_distance"`
	DistanceFactor    float64 `yaml:"distance_factor"`
	WeatherThreshold  float64 `yaml:"weather_threshold"`
	WeatherFactor     float64 `yaml:"weather_factor"`
}

// WeatherConfig holds environment toggles.
type WeatherConfig struct {
	Enabled       bool `yaml:"enabled"`
	SeasonalCycle bool `yaml:"seasonal_cycle"`
	AffectsGrowth bool `yaml:"affects_growth"`
	AffectsEnergy bool `yaml:"affects_energy"`
}

// FruitingConfig holds fruiting body lifecycle parameters.
type FruitingConfig struct {
	MinTips                      int     `yaml:"min_tips"`
	MinTotalEnergy               float64 `yaml:"min_total_energy"`
	Cooldown                     float64 `yaml:"cooldown"` // sim seconds between spawns
	LifespanMin                  float64 `yaml:"lifespan_min"`
	LifespanMax                  float64 `yaml:"lifespan_max"`
	SporeReleaseFraction         float64 `yaml:"spore_release_fraction"` // of lifespan before first release
	SporeReleaseInterval         float64 `yaml:"spore_release_interval"` // of lifespan between releases
	SporeCount                   int     `yaml:"spore_count"`
	SporeRadius                  float64 `yaml:"spore_radius"`
	SporeDrift                   float64 `yaml:"spore_drift"`
	SpawnNutrientThreshold       float64 `yaml:"spawn_nutrient_threshold"`
	FallbackThreshold            float64 `yaml:"fallback_threshold"`
	FailedAttemptsBeforeFallback int     `yaml:"failed_attempts_before_fallback"`
	NutrientReturnFraction       float64 `yaml:"nutrient_return_fraction"`
	TransferRadius               float64 `yaml:"transfer_radius"`
}

// SporesConfig holds spore lifecycle parameters.
type SporesConfig struct {
	GerminationThreshold float64 `yaml:"germination_threshold"`
	MaxAge               float64 `yaml:"max_age"`
}

// SegmentsConfig holds trail segment lifecycle parameters.
type SegmentsConfig struct {
	MaxAge       float64 `yaml:"max_age"`
	AgeIncrement float64 `yaml:"age_increment"`
}

// TelemetryConfig holds stats collection parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // sim seconds per stats window
}

// Default returns the embedded default configuration.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load parses the embedded defaults, merges an optional user YAML file over
// them, and validates the result. An empty path loads defaults only.
func Load(path string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct: only fields present in the file
		// overwrite the defaults.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations no engine state should ever be built from.
func (c *Config) Validate() error {
	if c.Grid.Size <= 2 {
		return fmt.Errorf("config: grid.size must be > 2, got %d", c.Grid.Size)
	}
	if c.Grid.CellSize <= 0 {
		return fmt.Errorf("config: grid.cell_size must be positive, got %g", c.Grid.CellSize)
	}
	if c.Spatial.BucketSize <= 0 {
		return fmt.Errorf("config: spatial.bucket_size must be positive, got %g", c.Spatial.BucketSize)
	}
	if c.Tick.DT <= 0 {
		return fmt.Errorf("config: tick.dt must be positive, got %g", c.Tick.DT)
	}
	if c.Growth.StepSize <= 0 {
		return fmt.Errorf("config: growth.step_size must be positive, got %g", c.Growth.StepSize)
	}
	if c.Growth.MaxTips <= 0 {
		return fmt.Errorf("config: growth.max_tips must be positive, got %d", c.Growth.MaxTips)
	}
	if c.Growth.InitialTips < 0 || c.Growth.InitialTips > c.Growth.MaxTips {
		return fmt.Errorf("config: growth.initial_tips %d outside [0, max_tips=%d]",
			c.Growth.InitialTips, c.Growth.MaxTips)
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"growth.branch_probability", c.Growth.BranchProbability},
		{"growth.branch_energy_fraction", c.Growth.BranchEnergyFraction},
		{"energy.decay_rate", c.Energy.DecayRate},
		{"memory.decay_rate", c.Memory.DecayRate},
		{"network.initial_strength", c.Network.InitialStrength},
		{"network.min_strength", c.Network.MinStrength},
		{"network.strength_decay", c.Network.StrengthDecay},
		{"network.pruning_threshold", c.Network.PruningThreshold},
		{"signals.decay_rate", c.Signals.DecayRate},
		{"fruiting.spore_release_fraction", c.Fruiting.SporeReleaseFraction},
		{"fruiting.nutrient_return_fraction", c.Fruiting.NutrientReturnFraction},
	} {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("config: %s must be in [0,1], got %g", p.name, p.value)
		}
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"energy.max_reserve", c.Energy.MaxReserve},
		{"energy.uptake_rate", c.Energy.UptakeRate},
		{"energy.optimal_cn_ratio", c.Energy.OptimalCNRatio},
		{"energy.ratio_penalty_sigma", c.Energy.RatioPenaltySigma},
		{"network.anastomosis_distance", c.Network.AnastomosisDistance},
	} {
		if p.value <= 0 {
			return fmt.Errorf("config: %s must be positive, got %g", p.name, p.value)
		}
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"nutrients.diffusion_rate", c.Nutrients.DiffusionRate},
		{"nutrients.regen_rate", c.Nutrients.RegenRate},
		{"energy.min_to_live", c.Energy.MinToLive},
		{"network.flow_rate", c.Network.FlowRate},
		{"network.max_flow", c.Network.MaxFlow},
		{"growth.wander_range", c.Growth.WanderRange},
		{"growth.avoidance_distance", c.Growth.AvoidanceDistance},
		{"fusion.distance", c.Fusion.Distance},
		{"spores.max_age", c.Spores.MaxAge},
		{"segments.max_age", c.Segments.MaxAge},
		{"telemetry.stats_window", c.Telemetry.StatsWindow},
	} {
		if p.value < 0 || math.IsNaN(p.value) {
			return fmt.Errorf("config: %s must be non-negative, got %g", p.name, p.value)
		}
	}
	if c.Fruiting.LifespanMax < c.Fruiting.LifespanMin {
		return fmt.Errorf("config: fruiting.lifespan_max %g < lifespan_min %g",
			c.Fruiting.LifespanMax, c.Fruiting.LifespanMin)
	}
	if c.Energy.UptakeRadius < 0 {
		return fmt.Errorf("config: energy.uptake_radius must be non-negative, got %d", c.Energy.UptakeRadius)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
