package engine

import (
	"math"

	"github.com/fungiform/mycel/components"
	"github.com/fungiform/mycel/systems"
)

// agePerTick is the fixed age increment per simulation tick.
const agePerTick = 0.01

// spawnReq is a deferred branch: entities are only created after the
// iteration finishes, so component pointers stay valid throughout the
// pass.
type spawnReq struct {
	x, y     float32
	heading  float32
	carbon   float32
	nitrogen float32
	parent   uint32
}

// stepAgents runs the per-tip growth pipeline: sense, steer, avoid,
// move, feed, decay, senesce, starve, branch. Fusion runs as its own
// pass afterwards.
func (e *Engine) stepAgents(dt float32) {
	gcfg := e.cfg.Growth
	ecfg := e.cfg.Energy

	growthMul := e.weather.GrowthMultiplier()
	decayMul := e.weather.DecayMultiplier()
	extremity := e.weather.Extremity()
	worldSize := e.field.WorldSize()

	alive := e.collectHubs()

	maxReserve := float32(ecfg.MaxReserve)
	stepLen := float32(gcfg.StepSize) * growthMul
	signalDecay := float32(e.cfg.Signals.DecayRate)
	// Weather scales the gap to 1, not the factor itself: decay 0.999
	// at multiplier 2 becomes 0.998.
	decayFactor := 1 - (1-float32(ecfg.DecayRate))*decayMul

	var spawns []spawnReq

	query := e.filter.Query()
	for query.Next() {
		pos, head, res, tip := query.Get()
		if !res.Alive || res.Dying {
			continue
		}
		entity := query.Entity()

		res.Age += agePerTick
		res.Signal *= signalDecay

		// Sense and steer.
		heading := e.steer(pos, head, res, tip)

		// Local avoidance: turn away from the nearest neighbor.
		e.neighbors = e.spatial.QueryRadiusInto(e.neighbors[:0],
			pos.X, pos.Y, float32(gcfg.AvoidanceDistance), entity, e.posMap)
		if len(e.neighbors) > 0 {
			nearest := e.neighbors[0]
			for _, n := range e.neighbors[1:] {
				if n.DistSq < nearest.DistSq {
					nearest = n
				}
			}
			rep := systems.Repulsion(nearest.DX, nearest.DY, float32(gcfg.AvoidanceWeight))
			heading = systems.BlendHeading(heading, []systems.SteerTerm{rep}, 0, e.rng)
		}

		// Commit the move, reflecting at boundaries and obstacles.
		nx := pos.X + float32(math.Cos(float64(heading)))*stepLen
		ny := pos.Y + float32(math.Sin(float64(heading)))*stepLen
		nx, ny, heading, _ = systems.ReflectBoundary(nx, ny, heading, worldSize, e.rng)
		nx, ny, heading, _ = systems.DeflectObstacle(e.field, pos.X, pos.Y, nx, ny, heading, e.rng)

		head.PrevX, head.PrevY = pos.X, pos.Y
		head.Angle = heading
		if nx != pos.X || ny != pos.Y {
			e.segments = append(e.segments, Segment{X1: pos.X, Y1: pos.Y, X2: nx, Y2: ny})
		}
		pos.X, pos.Y = nx, ny

		// Feed.
		e.feed(pos, res, tip, maxReserve)

		// Passive decay, weather-modulated.
		res.Carbon *= decayFactor
		res.Nitrogen *= decayFactor

		// Death checks: starvation dominates senescence.
		if res.Carbon+res.Nitrogen <= float32(ecfg.MinToLive) {
			e.kill(res, components.CauseStarvation)
			continue
		}
		if cause, dead := e.senesce(pos, res, extremity, alive); dead {
			e.kill(res, cause)
			continue
		}

		// Branching, gated by the population cap and the suppression
		// threshold. The child receives a real transfer of reserves.
		if alive.count+len(spawns) < gcfg.MaxTips &&
			alive.count < gcfg.BranchSuppressAt &&
			e.rng.Float64() < gcfg.BranchProbability*float64(growthMul) {

			frac := float32(gcfg.BranchEnergyFraction)
			childC := res.Carbon * frac
			childN := res.Nitrogen * frac
			res.Carbon -= childC
			res.Nitrogen -= childN

			angle := heading + (e.rng.Float32()*2-1)*float32(gcfg.BranchAngleSpread)
			offset := float32(gcfg.BranchOffset)
			bx := clampF(pos.X+float32(math.Cos(float64(angle)))*offset, 0, worldSize-1e-3)
			by := clampF(pos.Y+float32(math.Sin(float64(angle)))*offset, 0, worldSize-1e-3)

			spawns = append(spawns, spawnReq{
				x: bx, y: by, heading: angle,
				carbon: childC, nitrogen: childN, parent: tip.ID,
			})
			e.segments = append(e.segments, Segment{X1: pos.X, Y1: pos.Y, X2: bx, Y2: by})
		}
	}

	for _, s := range spawns {
		e.spawnTip(s.x, s.y, s.heading, s.carbon, s.nitrogen, s.parent, true)
	}
}

// steer blends the tip's heading with the nutrient gradient, the
// memory gradient, the global tropism bias, any active discovery
// signal, and bounded wander.
func (e *Engine) steer(pos *components.Position, head *components.Heading, res *components.Reserves, tip *components.Tip) float32 {
	gcfg := e.cfg.Growth
	scfg := e.cfg.Signals

	terms := make([]systems.SteerTerm, 0, 4)

	gx, gy := e.field.Gradient(e.field.Sugar, pos.X, pos.Y)
	ngx, ngy := e.field.Gradient(e.field.Nitrogen, pos.X, pos.Y)
	terms = append(terms, systems.SteerTerm{
		DX: gx + ngx, DY: gy + ngy, Weight: float32(gcfg.GradientWeight),
	})

	if e.cfg.Memory.Enabled {
		mx, my := e.memory.Gradient(pos.X, pos.Y)
		terms = append(terms, systems.SteerTerm{
			DX: mx, DY: my, Weight: float32(gcfg.MemoryWeight),
		})
	}

	if gcfg.TropismStrength > 0 {
		terms = append(terms, systems.SteerTerm{
			DX:     float32(math.Cos(gcfg.TropismAngle)),
			DY:     float32(math.Sin(gcfg.TropismAngle)),
			Weight: float32(gcfg.TropismStrength),
		})
	}

	// Accumulated network signal pulls the tip toward its last find.
	if scfg.Enabled && res.Signal > float32(scfg.StrengthThreshold) && tip.HasFind {
		terms = append(terms, systems.SteerTerm{
			DX:     tip.LastFindX - pos.X,
			DY:     tip.LastFindY - pos.Y,
			Weight: float32(scfg.SteerBias) * res.Signal,
		})
	}

	return systems.BlendHeading(head.Angle, terms, float32(gcfg.WanderRange), e.rng)
}

// feed consumes nutrients at the tip's position. Uptake efficiency
// falls off smoothly as the carbon:nitrogen ratio drifts from the
// optimum, applied to the requested amount rather than the stored one
// so nothing consumed is silently discarded. Overflow above the
// reserve cap returns to the field.
func (e *Engine) feed(pos *components.Position, res *components.Reserves, tip *components.Tip, maxReserve float32) {
	ecfg := e.cfg.Energy
	scfg := e.cfg.Signals

	penalty := ratioPenalty(res.Carbon, res.Nitrogen,
		float32(ecfg.OptimalCNRatio), float32(ecfg.RatioPenaltySigma))
	want := float32(ecfg.UptakeRate) * penalty

	gotC := e.field.Consume(e.field.Sugar, pos.X, pos.Y, want, ecfg.UptakeRadius)
	gotN := e.field.Consume(e.field.Nitrogen, pos.X, pos.Y, want, ecfg.UptakeRadius)

	res.Carbon += gotC
	if res.Carbon > maxReserve {
		e.field.Deposit(e.field.Sugar, pos.X, pos.Y, res.Carbon-maxReserve)
		res.Carbon = maxReserve
	}
	res.Nitrogen += gotN
	if res.Nitrogen > maxReserve {
		e.field.Deposit(e.field.Nitrogen, pos.X, pos.Y, res.Nitrogen-maxReserve)
		res.Nitrogen = maxReserve
	}

	if gotC+gotN > 0 {
		e.memory.Record(pos.X, pos.Y)
	}

	// A rich local cell marks a find and can seed a network signal.
	local := e.field.SugarAt(pos.X, pos.Y) + e.field.NitrogenAt(pos.X, pos.Y)
	if scfg.Enabled && local > float32(scfg.TriggerThreshold) {
		tip.LastFindX, tip.LastFindY = pos.X, pos.Y
		tip.HasFind = true
		if local > res.Signal {
			res.Signal = local
			if res.Signal > 1 {
				res.Signal = 1
			}
		}
	}
}

// ratioPenalty is the smooth growth-efficiency penalty around the
// optimal carbon:nitrogen ratio: a Gaussian in log-ratio space, 1 at
// the optimum, never a hard cutoff.
func ratioPenalty(carbon, nitrogen, optimal, sigma float32) float32 {
	const eps = 1e-4
	ratio := (carbon + eps) / (nitrogen + eps)
	d := float32(math.Log(float64(ratio/optimal))) / sigma
	return float32(math.Exp(float64(-d * d)))
}

// hubInfo carries the per-tick hub positions (or the colony centroid
// when no node qualifies) plus the live count, gathered in one
// pre-pass.
type hubInfo struct {
	xs, ys []float32
	count  int
}

// collectHubs finds well-connected nodes for the senescence distance
// term. With no hubs, the colony centroid stands in so isolated
// colonies do not collapse instantly.
func (e *Engine) collectHubs() hubInfo {
	deg := e.graph.Degrees()
	minDeg := e.cfg.Network.HubDegree

	e.hubXs = e.hubXs[:0]
	e.hubYs = e.hubYs[:0]
	var sumX, sumY float64
	count := 0

	query := e.filter.Query()
	for query.Next() {
		pos, _, res, tip := query.Get()
		if !res.Alive || res.Dying {
			continue
		}
		count++
		sumX += float64(pos.X)
		sumY += float64(pos.Y)
		if deg[tip.ID] >= minDeg {
			e.hubXs = append(e.hubXs, pos.X)
			e.hubYs = append(e.hubYs, pos.Y)
		}
	}

	if len(e.hubXs) == 0 && count > 0 {
		e.hubXs = append(e.hubXs, float32(sumX/float64(count)))
		e.hubYs = append(e.hubYs, float32(sumY/float64(count)))
	}
	return hubInfo{xs: e.hubXs, ys: e.hubYs, count: count}
}

// senesce evaluates the aging death roll: a base probability plus
// terms for weak connection flow, distance from the nearest hub, and
// weather extremity. Tips beyond the collapse distance die outright.
// Young tips are exempt.
func (e *Engine) senesce(pos *components.Position, res *components.Reserves, extremity float32, alive hubInfo) (components.DeathCause, bool) {
	scfg := e.cfg.Senescence
	if !scfg.Enabled || res.Age < float32(scfg.MinAge) {
		return components.CauseNone, false
	}

	p := float32(scfg.BaseProbability)
	if res.Flow < float32(scfg.FlowThreshold) {
		p += float32(scfg.FlowFactor)
	}

	dist := nearestDist(pos.X, pos.Y, alive.xs, alive.ys)
	if dist > float32(scfg.CollapseDistance) {
		return components.CauseCollapse, true
	}
	if dist > float32(scfg.DistanceThreshold) {
		p += float32(scfg.DistanceFactor) * (dist - float32(scfg.DistanceThreshold))
	}

	if extremity > float32(scfg.WeatherThreshold) {
		p += float32(scfg.WeatherFactor)
	}

	res.Senescence += p
	if res.Senescence > 1 {
		res.Senescence = 1
	}

	if e.rng.Float32() < p {
		return components.CauseSenescence, true
	}
	return components.CauseNone, false
}

// nearestDist returns the distance from (x, y) to the closest point in
// the hub set. An empty set means infinite distance.
func nearestDist(x, y float32, xs, ys []float32) float32 {
	best := float32(math.MaxFloat32)
	for i := range xs {
		dx := xs[i] - x
		dy := ys[i] - y
		d := dx*dx + dy*dy
		if d < best {
			best = d
		}
	}
	if best == math.MaxFloat32 {
		return best
	}
	return float32(math.Sqrt(float64(best)))
}

// kill marks a tip dead. The entity stays in place until the batched
// reap at the end of the tick so ids remain valid within it.
func (e *Engine) kill(res *components.Reserves, cause components.DeathCause) {
	res.Alive = false
	res.Dying = true
	res.Cause = cause
}
