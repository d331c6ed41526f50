package engine

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/fungiform/mycel/components"
)

// reapDead removes every tip marked dying this tick, in one batch so
// ids stay stable within the tick. Non-fused tips return their
// remaining reserves to the field where they died; fused tips already
// handed theirs to the survivor. Stale graph edges drop in the same
// pass.
func (e *Engine) reapDead() {
	// First pass: collect. Iteration must finish before any removal.
	type deadInfo struct {
		entity   ecs.Entity
		x, y     float32
		carbon   float32
		nitrogen float32
		cause    components.DeathCause
	}
	var toRemove []deadInfo

	query := e.filter.Query()
	for query.Next() {
		pos, _, res, _ := query.Get()
		if !res.Dying {
			continue
		}
		toRemove = append(toRemove, deadInfo{
			entity:   query.Entity(),
			x:        pos.X,
			y:        pos.Y,
			carbon:   res.Carbon,
			nitrogen: res.Nitrogen,
			cause:    res.Cause,
		})
	}
	if len(toRemove) == 0 {
		return
	}

	// Second pass: deposit remains and remove.
	for _, dead := range toRemove {
		if dead.cause != components.CauseFusion {
			e.depositRemains(e.field.Sugar, dead.x, dead.y, dead.carbon)
			e.depositRemains(e.field.Nitrogen, dead.x, dead.y, dead.nitrogen)
		}
		e.collector.RecordDeath(dead.cause)
		e.mapper.Remove(dead.entity)
	}

	// Removal relocates component storage; the node maps must be
	// rebuilt before the graph checks endpoint liveness.
	e.rebuildNodes()
	e.graph.DropDeadEndpoints(e.nodes)
}

// depositRemains returns a dead tip's reserve to the field, spilling
// overflow into the four neighboring cells. What no cell can hold
// dissipates.
func (e *Engine) depositRemains(grid []float32, x, y, amount float32) {
	if amount <= 0 {
		return
	}
	left := e.field.Deposit(grid, x, y, amount)
	if left <= 0 {
		return
	}
	cell := e.field.CellSize
	for _, d := range [4][2]float32{{cell, 0}, {-cell, 0}, {0, cell}, {0, -cell}} {
		left = e.field.Deposit(grid, x+d[0], y+d[1], left)
		if left <= 0 {
			return
		}
	}
}

// ageSegments ages trail segments and culls the expired. Segments are
// inert bookkeeping for external renderers; nothing reads them here.
func (e *Engine) ageSegments() {
	inc := float32(e.cfg.Segments.AgeIncrement)
	maxAge := float32(e.cfg.Segments.MaxAge)

	kept := e.segments[:0]
	for i := range e.segments {
		s := e.segments[i]
		s.Age += inc
		if s.Age >= maxAge {
			continue
		}
		kept = append(kept, s)
	}
	e.segments = kept
}
