package engine

import (
	"math"
)

// Fraction of its reserves each nearby tip contributes when a fruiting
// body forms.
const fruitingContribution = 0.1

// Per-tick energy retention of a fruiting body; the remainder is spent
// maintaining the structure.
const fruitingMetabolism = 0.9998

// stepReproduction ages fruiting bodies and spores, emits and
// germinates, and evaluates the fruiting trigger.
func (e *Engine) stepReproduction(dt float32) {
	e.stepFruitingBodies(dt)
	e.stepSpores(dt)
	e.maybeFruit()
}

// stepFruitingBodies advances every fruiting body: spores release on
// the emission schedule, and an expired body returns a fraction of its
// remaining energy to the field.
func (e *Engine) stepFruitingBodies(dt float32) {
	fcfg := e.cfg.Fruiting

	kept := e.fruiting[:0]
	for i := range e.fruiting {
		fb := e.fruiting[i]
		fb.Age += dt
		fb.Energy *= fruitingMetabolism

		for fb.Emitted < fcfg.SporeCount && fb.Age >= fb.NextEmission {
			e.emitSpore(&fb)
			fb.Emitted++
			fb.NextEmission += float32(fcfg.SporeReleaseInterval) * fb.Lifespan
		}

		if fb.Age >= fb.Lifespan {
			returned := fb.Energy * float32(fcfg.NutrientReturnFraction)
			e.field.Deposit(e.field.Sugar, fb.X, fb.Y, returned)
			continue
		}
		kept = append(kept, fb)
	}
	e.fruiting = kept
}

// emitSpore releases one spore near the fruiting body with a small
// random drift velocity. The spore carries a share of the body's
// remaining energy, which is deducted from the body.
func (e *Engine) emitSpore(fb *FruitingBody) {
	fcfg := e.cfg.Fruiting

	angle := e.rng.Float32() * 2 * math.Pi
	r := e.rng.Float32() * float32(fcfg.SporeRadius)
	drift := float32(fcfg.SporeDrift)

	share := fb.Energy / float32(fcfg.SporeCount)
	fb.Energy -= share
	e.spores = append(e.spores, Spore{
		X:      fb.X + float32(math.Cos(float64(angle)))*r,
		Y:      fb.Y + float32(math.Sin(float64(angle)))*r,
		DX:     (e.rng.Float32()*2 - 1) * drift,
		DY:     (e.rng.Float32()*2 - 1) * drift,
		Energy: share,
		Alive:  true,
	})
	e.collector.RecordSpore()
}

// stepSpores drifts and ages spores. A spore germinates into a new tip
// when local nutrient clears the weather-modulated threshold and the
// population cap allows it; otherwise it dies at its maximum age.
func (e *Engine) stepSpores(dt float32) {
	scfg := e.cfg.Spores
	worldSize := e.field.WorldSize()
	threshold := float32(scfg.GerminationThreshold) * e.weather.GerminationModifier()
	aliveTips := e.aliveCount()

	kept := e.spores[:0]
	for i := range e.spores {
		s := e.spores[i]
		s.Age += dt
		s.X = clampF(s.X+s.DX, 0, worldSize-1e-3)
		s.Y = clampF(s.Y+s.DY, 0, worldSize-1e-3)

		local := e.field.SugarAt(s.X, s.Y) + e.field.NitrogenAt(s.X, s.Y)
		if local >= threshold && aliveTips < e.cfg.Growth.MaxTips {
			// Germinate: the spore's energy becomes the new tip's
			// reserves at the optimal ratio.
			ratio := float32(e.cfg.Energy.OptimalCNRatio)
			carbon := s.Energy * ratio / (ratio + 1)
			nitrogen := s.Energy / (ratio + 1)
			e.spawnTip(s.X, s.Y, e.rng.Float32()*2*math.Pi, carbon, nitrogen, 0, false)
			e.collector.RecordGermination()
			aliveTips++
			continue
		}
		if s.Age >= float32(scfg.MaxAge) {
			continue
		}
		kept = append(kept, s)
	}
	e.spores = kept
}

// maybeFruit evaluates the fruiting trigger: enough live tips, enough
// aggregate energy, and cooldown elapsed. The body spawns at the
// highest-degree node, or the colony centroid when the graph is empty,
// provided local nutrient supports it. Repeated failures relax the
// nutrient requirement to the fallback threshold.
func (e *Engine) maybeFruit() {
	fcfg := e.cfg.Fruiting

	if e.simTime-e.lastFruitingTime < fcfg.Cooldown {
		return
	}
	if e.aliveCount() < fcfg.MinTips {
		return
	}

	var totalEnergy float64
	query := e.filter.Query()
	for query.Next() {
		_, _, res, _ := query.Get()
		if res.Alive {
			totalEnergy += float64(res.Carbon + res.Nitrogen)
		}
	}
	if totalEnergy < fcfg.MinTotalEnergy {
		return
	}

	sx, sy, ok := e.fruitingSite()
	if !ok {
		return
	}
	sx, sy = e.richestCellNear(sx, sy, 3)

	threshold := float32(fcfg.SpawnNutrientThreshold)
	if e.failedSpawns >= fcfg.FailedAttemptsBeforeFallback {
		threshold = float32(fcfg.FallbackThreshold)
	}
	if e.field.SugarAt(sx, sy) < threshold {
		e.failedSpawns++
		return
	}

	// Nearby tips each contribute a fraction of their reserves.
	var energy float32
	radius := float32(fcfg.TransferRadius)
	q := e.filter.Query()
	for q.Next() {
		pos, _, res, _ := q.Get()
		if !res.Alive || res.Dying {
			continue
		}
		dx := pos.X - sx
		dy := pos.Y - sy
		if dx*dx+dy*dy > radius*radius {
			continue
		}
		takeC := res.Carbon * fruitingContribution
		takeN := res.Nitrogen * fruitingContribution
		res.Carbon -= takeC
		res.Nitrogen -= takeN
		energy += takeC + takeN
	}

	lifespan := float32(fcfg.LifespanMin) +
		e.rng.Float32()*float32(fcfg.LifespanMax-fcfg.LifespanMin)
	e.fruiting = append(e.fruiting, FruitingBody{
		X:            sx,
		Y:            sy,
		Lifespan:     lifespan,
		Energy:       energy,
		NextEmission: lifespan * float32(fcfg.SporeReleaseFraction),
		Alive:        true,
	})
	e.lastFruitingTime = e.simTime
	e.failedSpawns = 0
	e.collector.RecordFruiting()

	e.logger.Debug("fruiting_body_spawned",
		"x", sx, "y", sy, "energy", energy, "lifespan", lifespan)
}

// richestCellNear shifts a candidate site to the center of the richest
// sugar cell within radiusCells, skipping obstacles. Scan order is
// fixed, so ties resolve the same way every run.
func (e *Engine) richestCellNear(x, y float32, radiusCells int) (float32, float32) {
	cx, cy := e.field.CellOf(x, y)
	bestX, bestY := x, y
	best := float32(-1)

	for dy := -radiusCells; dy <= radiusCells; dy++ {
		for dx := -radiusCells; dx <= radiusCells; dx++ {
			gx, gy := cx+dx, cy+dy
			if !e.field.InBounds(gx, gy) {
				continue
			}
			i := e.field.Idx(gx, gy)
			if e.field.Obstacle[i] {
				continue
			}
			if v := e.field.Sugar[i]; v > best {
				best = v
				bestX = (float32(gx) + 0.5) * e.field.CellSize
				bestY = (float32(gy) + 0.5) * e.field.CellSize
			}
		}
	}
	return bestX, bestY
}

// fruitingSite picks the highest-degree live node, falling back to the
// colony centroid. Ties break on lower tip id so the choice is
// deterministic.
func (e *Engine) fruitingSite() (x, y float32, ok bool) {
	deg := e.graph.Degrees()

	bestDeg := 0
	var bestID uint32
	var bestX, bestY float32
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
		d := deg[tip.ID]
		if d > bestDeg || (d == bestDeg && d > 0 && tip.ID < bestID) {
			bestDeg = d
			bestID = tip.ID
			bestX, bestY = pos.X, pos.Y
		}
	}

	if count == 0 {
		return 0, 0, false
	}
	if bestDeg > 0 {
		return bestX, bestY, true
	}
	return float32(sumX / float64(count)), float32(sumY / float64(count)), true
}
