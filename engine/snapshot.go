package engine

// Snapshot is an immutable copy of the full simulation state, taken
// atomically with respect to Step. Rendering and query collaborators
// read snapshots; they never touch live state.
type Snapshot struct {
	Tick    uint64
	SimTime float64

	Agents         []AgentView
	Connections    []ConnectionView
	Segments       []Segment
	Spores         []Spore
	FruitingBodies []FruitingBody

	Field   FieldView
	Weather WeatherView

	Aggregates Aggregates
}

// AgentView is the read-only projection of one live tip.
type AgentView struct {
	ID         uint32
	X, Y       float32
	Heading    float32
	Carbon     float32
	Nitrogen   float32
	Age        float32
	Strength   float32
	Senescence float32
	Signal     float32
}

// ConnectionView is the read-only projection of one graph edge.
type ConnectionView struct {
	A, B     uint32
	Strength float32
	Flow     float32
	Age      float32
}

// FieldView copies the substrate grids and obstacle mask.
type FieldView struct {
	Size     int
	CellSize float32
	Sugar    []float32
	Nitrogen []float32
	Memory   []float32
	Obstacle []bool
}

// WeatherView copies the environment state.
type WeatherView struct {
	Temperature float32
	Humidity    float32
	Rain        float32
	Season      float32
}

// Aggregates holds the headline counters for quick display.
type Aggregates struct {
	AliveCount      int
	SporeCount      int
	ConnectionCount int
	FruitingCount   int
	SegmentCount    int
	TotalEnergy     float64
	AverageEnergy   float64
}

// Snapshot deep-copies the current state. Safe to call concurrently
// with Step from any goroutine; the copy serializes behind the same
// mutex as the tick.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Tick:    e.tick,
		SimTime: e.simTime,
		Weather: WeatherView{
			Temperature: e.weather.Temperature,
			Humidity:    e.weather.Humidity,
			Rain:        e.weather.Rain,
			Season:      e.weather.Season,
		},
	}

	var totalEnergy float64
	query := e.filter.Query()
	for query.Next() {
		pos, head, res, tip := query.Get()
		if !res.Alive || res.Dying {
			continue
		}
		snap.Agents = append(snap.Agents, AgentView{
			ID:         tip.ID,
			X:          pos.X,
			Y:          pos.Y,
			Heading:    head.Angle,
			Carbon:     res.Carbon,
			Nitrogen:   res.Nitrogen,
			Age:        res.Age,
			Strength:   res.Strength,
			Senescence: res.Senescence,
			Signal:     res.Signal,
		})
		totalEnergy += float64(res.Carbon + res.Nitrogen)
	}

	conns := e.graph.Connections()
	snap.Connections = make([]ConnectionView, len(conns))
	for i, c := range conns {
		snap.Connections[i] = ConnectionView{
			A: c.A, B: c.B, Strength: c.Strength, Flow: c.Flow, Age: c.Age,
		}
	}

	snap.Segments = append([]Segment(nil), e.segments...)
	snap.Spores = append([]Spore(nil), e.spores...)
	snap.FruitingBodies = append([]FruitingBody(nil), e.fruiting...)

	snap.Field = FieldView{
		Size:     e.field.Size,
		CellSize: e.field.CellSize,
		Sugar:    append([]float32(nil), e.field.Sugar...),
		Nitrogen: append([]float32(nil), e.field.Nitrogen...),
		Memory:   append([]float32(nil), e.memory.Values...),
		Obstacle: append([]bool(nil), e.field.Obstacle...),
	}

	snap.Aggregates = Aggregates{
		AliveCount:      len(snap.Agents),
		SporeCount:      len(snap.Spores),
		ConnectionCount: len(snap.Connections),
		FruitingCount:   len(snap.FruitingBodies),
		SegmentCount:    len(snap.Segments),
		TotalEnergy:     totalEnergy,
	}
	if len(snap.Agents) > 0 {
		snap.Aggregates.AverageEnergy = totalEnergy / float64(len(snap.Agents))
	}
	return snap
}
