// Package components defines ECS components for the simulation.
package components

// Position represents an entity's world position in grid units.
type Position struct {
	X, Y float32
}

// Heading holds a tip's direction of travel and last position. PrevX/PrevY
// are used for trail segments and boundary reflection.
type Heading struct {
	Angle float32 // radians
	PrevX float32
	PrevY float32
}

// Reserves holds a filament tip's internal state: two nutrient pools,
// the age/death bookkeeping, and the transient signal level.
type Reserves struct {
	Carbon     float32
	Nitrogen   float32
	Age        float32
	Strength   float32 // structural strength, raised by fusion
	Senescence float32 // accumulated aging stress in [0,1]
	Alive      bool
	Dying      bool // marked dead this tick, reaped at end of tick
	Cause      DeathCause
	Signal     float32 // nutrient-discovery signal, decays each tick
	Flow       float32 // reserve volume moved through this tip's edges last tick
}

// DeathCause records why a tip died, for telemetry.
type DeathCause uint8

const (
	CauseNone DeathCause = iota
	CauseStarvation
	CauseSenescence
	CauseCollapse
	CauseFusion // merged into another tip, not a true death
)

// Tip carries growth bookkeeping for a filament tip.
type Tip struct {
	ID        uint32 // stable identifier, unique over the engine's lifetime
	Parent    uint32 // ID of the tip this one branched from
	HasParent bool
	LastFindX float32 // position of the most recent rich nutrient discovery
	LastFindY float32
	HasFind   bool
	Fused     bool // absorbed by fusion; kept until cleanup
}
