// Package engine implements the mycelium growth simulation: filament
// tips steering through a diffusing nutrient field, fusing and linking
// into a connection network, reproducing via fruiting bodies and
// spores, all advanced one deterministic tick at a time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/fungiform/mycel/components"
	"github.com/fungiform/mycel/config"
	"github.com/fungiform/mycel/network"
	"github.com/fungiform/mycel/systems"
	"github.com/fungiform/mycel/telemetry"
)

// NutrientKind selects which substrate grid an external perturbation
// targets.
type NutrientKind uint8

const (
	Sugar NutrientKind = iota
	Nitrogen
)

// Segment is a trail mark left behind by a moving tip. Segments feed
// no decision logic; the engine only ages and culls them.
type Segment struct {
	X1, Y1 float32
	X2, Y2 float32
	Age    float32
}

// Spore is an inert propagule drifting until it germinates or expires.
type Spore struct {
	X, Y   float32
	DX, DY float32 // drift velocity per tick
	Age    float32
	Energy float32
	Alive  bool
}

// FruitingBody is a reproductive structure that emits spores on a
// schedule and expires after its lifespan.
type FruitingBody struct {
	X, Y         float32
	Age          float32
	Lifespan     float32
	Energy       float32
	NextEmission float32 // age at which the next spore batch releases
	Emitted      int
	Alive        bool
}

// Engine is one simulation instance. All mutable state hangs off this
// struct; nothing is package-global, so independent instances never
// interfere. Every public method serializes through one mutex: a tick
// is atomic, and snapshots never observe a half-applied tick.
type Engine struct {
	mu  sync.Mutex
	cfg config.Config

	seed   int64
	rng    *rand.Rand
	logger *slog.Logger

	world  *ecs.World
	mapper *ecs.Map4[components.Position, components.Heading, components.Reserves, components.Tip]
	filter *ecs.Filter4[components.Position, components.Heading, components.Reserves, components.Tip]
	posMap *ecs.Map1[components.Position]
	tipMap *ecs.Map1[components.Tip]

	field   *systems.NutrientField
	memory  *systems.MemoryGrid
	weather *systems.Weather
	spatial *systems.SpatialGrid
	graph   *network.Graph

	tick    uint64
	simTime float64
	nextID  uint32
	paused  bool

	segments []Segment
	spores   []Spore
	fruiting []FruitingBody

	lastFruitingTime float64
	failedSpawns     int

	collector *telemetry.Collector
	output    *telemetry.OutputManager

	// Scratch buffers reused across ticks.
	neighbors []systems.Neighbor
	nodes     map[uint32]*components.Reserves
	entities  map[uint32]ecs.Entity
	hubXs     []float32
	hubYs     []float32
}

// New builds an engine from a seed and a validated configuration.
// Invalid configurations are rejected before any state exists.
func New(seed int64, cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		seed:   seed,
		logger: slog.Default(),
	}
	e.initState()
	return e, nil
}

// initState builds every grid, pool, and graph from scratch. Used by
// New and Reset: state is replaced wholesale, never patched.
func (e *Engine) initState() {
	cfg := e.cfg
	e.rng = rand.New(rand.NewSource(e.seed))

	world := ecs.NewWorld()
	e.world = world
	e.mapper = ecs.NewMap4[components.Position, components.Heading, components.Reserves, components.Tip](world)
	e.filter = ecs.NewFilter4[components.Position, components.Heading, components.Reserves, components.Tip](world)
	e.posMap = ecs.NewMap1[components.Position](world)
	e.tipMap = ecs.NewMap1[components.Tip](world)

	e.field = systems.NewNutrientField(cfg.Grid.Size, cfg.Grid.CellSize, cfg.Nutrients, e.rng)
	e.memory = systems.NewMemoryGrid(cfg.Grid.Size, cfg.Grid.CellSize, cfg.Memory)
	e.weather = systems.NewWeather(cfg.Weather)
	worldSize := e.field.WorldSize()
	e.spatial = systems.NewSpatialGrid(worldSize, worldSize, float32(cfg.Spatial.BucketSize))
	e.graph = network.NewGraph(cfg.Network, cfg.Signals)
	e.collector = telemetry.NewCollector(cfg.Telemetry.StatsWindow, float32(cfg.Tick.DT))

	e.tick = 0
	e.simTime = 0
	e.nextID = 1
	e.segments = nil
	e.spores = nil
	e.fruiting = nil
	// Cooldown spaces successive bodies; the first one is not delayed.
	e.lastFruitingTime = -cfg.Fruiting.Cooldown
	e.failedSpawns = 0
	e.nodes = make(map[uint32]*components.Reserves)
	e.entities = make(map[uint32]ecs.Entity)

	systems.GenerateTerrain(e.field, cfg.Terrain, e.rng)

	// Initial colony: tips clustered near the center with random
	// headings.
	center := worldSize / 2
	for i := 0; i < cfg.Growth.InitialTips; i++ {
		x := center + (e.rng.Float32()*2-1)*worldSize*0.02
		y := center + (e.rng.Float32()*2-1)*worldSize*0.02
		e.spawnTip(x, y, e.rng.Float32()*2*math.Pi,
			float32(cfg.Energy.InitialCarbon), float32(cfg.Energy.InitialNitrogen), 0, false)
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = l
}

// SetOutput attaches a CSV output manager for window stats.
func (e *Engine) SetOutput(om *telemetry.OutputManager) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output = om
}

// Config returns the active configuration.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Tick returns the current tick index.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Step advances exactly one tick. The RNG stream advances with it.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepLocked()
}

// StepN advances n ticks. Manual stepping works while paused: the
// pause flag gates only the automatic loop.
func (e *Engine) StepN(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < n; i++ {
		e.stepLocked()
	}
}

// Pause stops the automatic loop from ticking. Manual StepN calls
// still proceed.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// Resume lets the automatic loop tick again.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

// TogglePause flips the pause flag and reports the new state.
func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = !e.paused
	return e.paused
}

// Paused reports whether the automatic loop is paused.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Reset replaces every grid, pool, and graph with fresh state built
// from the given configuration and the original seed.
func (e *Engine) Reset(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.initState()
	return nil
}

// Run drives the automatic real-time loop: one tick per configured dt
// of wall time, skipping ticks while paused, until the context is
// cancelled. A slow tick delays the next one rather than overlapping
// it.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	interval := time.Duration(e.cfg.Tick.DT * float64(time.Second))
	e.mu.Unlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			if !e.paused {
				e.stepLocked()
			}
			e.mu.Unlock()
		}
	}
}

// stepLocked runs one full tick. Caller holds e.mu.
func (e *Engine) stepLocked() {
	dt := float32(e.cfg.Tick.DT)

	e.weather.Step(e.tick, e.rng)
	e.field.Diffuse(e.weather.Rain, e.rng)
	e.field.Regen(e.rng)

	e.rebuildSpatial()
	e.stepAgents(dt)
	e.rebuildNodes()
	e.stepFusion()
	e.stepAnastomosis()

	// Zero the per-node flow aggregates now: senescence already read
	// last tick's values, and the graph writes this tick's next.
	for _, r := range e.nodes {
		r.Flow = 0
	}
	e.graph.Step(e.nodes, dt, float32(e.cfg.Energy.MaxReserve))
	e.graph.Propagate(e.nodes)
	e.collector.RecordPruned(e.graph.Prune())

	e.reapDead()
	e.stepReproduction(dt)

	e.memory.Decay()
	e.ageSegments()

	e.tick++
	e.simTime += float64(dt)
	e.flushStats()
}

// rebuildSpatial reindexes all live tips. Runs before movement, so
// proximity passes later in the tick see positions at most one step
// stale; the exact-distance filter uses live positions.
func (e *Engine) rebuildSpatial() {
	e.spatial.Clear()
	query := e.filter.Query()
	for query.Next() {
		pos, _, res, _ := query.Get()
		if res.Alive && !res.Dying {
			e.spatial.Insert(query.Entity(), pos.X, pos.Y)
		}
	}
}

// rebuildNodes refreshes the id-to-reserves and id-to-entity maps.
// Must run after any structural world change and before graph
// operations, since entity removal can relocate component storage.
func (e *Engine) rebuildNodes() {
	clear(e.nodes)
	clear(e.entities)
	query := e.filter.Query()
	for query.Next() {
		_, _, res, tip := query.Get()
		if !res.Alive || res.Dying {
			continue
		}
		if _, dup := e.nodes[tip.ID]; dup {
			panic(fmt.Sprintf("engine: tip id %d reused before reap", tip.ID))
		}
		e.nodes[tip.ID] = res
		e.entities[tip.ID] = query.Entity()
	}
}

// aliveCount counts live tips.
func (e *Engine) aliveCount() int {
	return len(e.nodes)
}

// spawnTip creates one tip entity. Returns the new tip's id.
func (e *Engine) spawnTip(x, y, heading, carbon, nitrogen float32, parent uint32, hasParent bool) uint32 {
	id := e.nextID
	e.nextID++

	pos := components.Position{X: x, Y: y}
	head := components.Heading{Angle: heading, PrevX: x, PrevY: y}
	res := components.Reserves{
		Carbon:   carbon,
		Nitrogen: nitrogen,
		Strength: 1,
		Alive:    true,
	}
	tip := components.Tip{ID: id, Parent: parent, HasParent: hasParent}
	e.mapper.NewEntity(&pos, &head, &res, &tip)
	e.collector.RecordBirth()
	return id
}

// AddNutrientPatch deposits a radial nutrient patch centered at a
// world position. Out-of-range positions clamp; this never fails.
func (e *Engine) AddNutrientPatch(x, y, radius float64, kind NutrientKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	grid := e.field.Sugar
	if kind == Nitrogen {
		grid = e.field.Nitrogen
	}
	e.field.AddPatch(grid, float32(x), float32(y), float32(radius), 0.8)
}

// AddNutrientCell tops up the single cell at a world position.
func (e *Engine) AddNutrientCell(x, y float64, kind NutrientKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	grid := e.field.Sugar
	if kind == Nitrogen {
		grid = e.field.Nitrogen
	}
	e.field.Deposit(grid, float32(x), float32(y), 1)
}

// SpawnAgent places a new tip at a world position with the configured
// starting reserves. The position clamps into bounds; the spawn is
// refused (returning false) only when the population cap is reached.
func (e *Engine) SpawnAgent(x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.countAlive() >= e.cfg.Growth.MaxTips {
		return false
	}
	worldSize := e.field.WorldSize()
	fx := clampF(float32(x), 0, worldSize-1e-3)
	fy := clampF(float32(y), 0, worldSize-1e-3)
	e.spawnTip(fx, fy, e.rng.Float32()*2*math.Pi,
		float32(e.cfg.Energy.InitialCarbon), float32(e.cfg.Energy.InitialNitrogen), 0, false)
	return true
}

// countAlive counts live tips with a fresh query, for use outside the
// tick pipeline where e.nodes may be stale.
func (e *Engine) countAlive() int {
	n := 0
	query := e.filter.Query()
	for query.Next() {
		_, _, res, _ := query.Get()
		if res.Alive && !res.Dying {
			n++
		}
	}
	return n
}

// flushStats emits a telemetry window when due.
func (e *Engine) flushStats() {
	if !e.collector.ShouldFlush(e.tick) {
		return
	}

	var energies []float64
	var totalEnergy float64
	query := e.filter.Query()
	for query.Next() {
		_, _, res, _ := query.Get()
		if !res.Alive {
			continue
		}
		sum := float64(res.Carbon + res.Nitrogen)
		energies = append(energies, sum)
		totalEnergy += sum
	}

	stats := e.collector.Flush(e.tick, telemetry.WindowState{
		Alive:       len(energies),
		Connections: e.graph.Count(),
		Spores:      len(e.spores),
		Fruiting:    len(e.fruiting),
		Segments:    len(e.segments),
		Energies:    energies,
		TotalEnergy: totalEnergy,
		FieldSugar:  e.field.TotalSugar(),
		FieldNitro:  e.field.TotalNitrogen(),
		Temperature: float64(e.weather.Temperature),
		Humidity:    float64(e.weather.Humidity),
		Rain:        float64(e.weather.Rain),
	})

	e.logger.Info("window_stats", "stats", stats)
	if e.output != nil {
		if err := e.output.WriteStats(stats); err != nil {
			e.logger.Error("failed to write stats", "error", err)
		}
	}
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
