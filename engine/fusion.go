package engine

import (
	"github.com/fungiform/mycel/components"
)

// stepFusion merges pairs of mature tips that drew within the fusion
// distance. Fusion runs before anastomosis, so a pair close enough for
// both merges instead of linking. The survivor moves to the midpoint,
// absorbs the other's reserves (overflow returns to the field), and
// keeps the higher strength; the absorbed tip's edges rewire onto the
// survivor.
func (e *Engine) stepFusion() {
	fcfg := e.cfg.Fusion
	if !fcfg.Enabled {
		return
	}
	minAge := float32(fcfg.MinAge)
	maxReserve := float32(e.cfg.Energy.MaxReserve)

	query := e.filter.Query()
	for query.Next() {
		pos, _, res, tip := query.Get()
		if !res.Alive || res.Dying || tip.Fused || res.Age < minAge {
			continue
		}
		entity := query.Entity()

		e.neighbors = e.spatial.QueryRadiusInto(e.neighbors[:0],
			pos.X, pos.Y, float32(fcfg.Distance), entity, e.posMap)

		for _, n := range e.neighbors {
			other := e.tipMap.Get(n.E)
			if other == nil {
				continue
			}
			otherRes, ok := e.nodes[other.ID]
			if !ok || other.Fused || otherRes.Dying || otherRes.Age < minAge {
				continue
			}
			// Each pair resolves once: the lower id survives.
			if other.ID < tip.ID {
				continue
			}

			otherPos := e.posMap.Get(n.E)
			pos.X = (pos.X + otherPos.X) / 2
			pos.Y = (pos.Y + otherPos.Y) / 2

			res.Carbon += otherRes.Carbon
			if res.Carbon > maxReserve {
				e.depositRemains(e.field.Sugar, pos.X, pos.Y, res.Carbon-maxReserve)
				res.Carbon = maxReserve
			}
			res.Nitrogen += otherRes.Nitrogen
			if res.Nitrogen > maxReserve {
				e.depositRemains(e.field.Nitrogen, pos.X, pos.Y, res.Nitrogen-maxReserve)
				res.Nitrogen = maxReserve
			}
			otherRes.Carbon = 0
			otherRes.Nitrogen = 0

			if otherRes.Strength > res.Strength {
				res.Strength = otherRes.Strength
			}

			other.Fused = true
			otherRes.Alive = false
			otherRes.Dying = true
			otherRes.Cause = components.CauseFusion
			delete(e.nodes, other.ID)

			e.graph.RetargetNode(other.ID, tip.ID)
			e.collector.RecordFusion()

			// One fusion per tip per tick.
			break
		}
	}
}

// stepAnastomosis links unconnected live pairs within the anastomosis
// distance. Pairs resolved by fusion this tick are skipped; a new edge
// performs its one-time reserve balancing inside Connect.
func (e *Engine) stepAnastomosis() {
	dist := float32(e.cfg.Network.AnastomosisDistance)

	query := e.filter.Query()
	for query.Next() {
		pos, _, res, tip := query.Get()
		if !res.Alive || res.Dying || tip.Fused {
			continue
		}
		entity := query.Entity()

		e.neighbors = e.spatial.QueryRadiusInto(e.neighbors[:0],
			pos.X, pos.Y, dist, entity, e.posMap)

		for _, n := range e.neighbors {
			other := e.tipMap.Get(n.E)
			if other == nil || other.Fused || other.ID <= tip.ID {
				continue
			}
			otherRes, ok := e.nodes[other.ID]
			if !ok || otherRes.Dying {
				continue
			}
			if e.graph.Connect(tip.ID, other.ID, res, otherRes) {
				e.collector.RecordConnection()
			}
		}
	}
}
