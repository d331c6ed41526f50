package systems

import (
	"math"
	"math/rand"
)

// SteerTerm is one directional influence on a tip's heading: a vector
// plus a blend weight. Zero vectors contribute nothing regardless of
// weight.
type SteerTerm struct {
	DX, DY float32
	Weight float32
}

// BlendHeading combines the current heading with the given steering
// terms as a weighted sum of unit vectors, plus bounded random wander.
// The current heading always participates with weight 1, so no single
// term can snap a tip around instantly.
func BlendHeading(heading float32, terms []SteerTerm, wanderRange float32, rng *rand.Rand) float32 {
	vx := float32(math.Cos(float64(heading)))
	vy := float32(math.Sin(float64(heading)))

	for _, t := range terms {
		mag := float32(math.Sqrt(float64(t.DX*t.DX + t.DY*t.DY)))
		if mag < 1e-8 {
			continue
		}
		vx += t.DX / mag * t.Weight
		vy += t.DY / mag * t.Weight
	}

	angle := heading
	if vx*vx+vy*vy > 1e-12 {
		angle = float32(math.Atan2(float64(vy), float64(vx)))
	}
	if wanderRange > 0 {
		angle += (rng.Float32()*2 - 1) * wanderRange
	}
	return angle
}

// Repulsion returns a steering term pointing away from the nearest
// neighbor. dx, dy is the delta from the tip to the neighbor.
func Repulsion(dx, dy, weight float32) SteerTerm {
	return SteerTerm{DX: -dx, DY: -dy, Weight: weight}
}

// ReflectBoundary checks a proposed position against the world bounds
// [0, size). If a bound is crossed, the violated axis component of the
// heading flips sign, the position clamps inside, and a small jitter is
// added so a tip cannot ping-pong against the wall forever. Tips never
// leave the world and never die at a boundary.
func ReflectBoundary(x, y, heading, size float32, rng *rand.Rand) (nx, ny, nh float32, reflected bool) {
	const margin = 1e-3

	nx, ny, nh = x, y, heading
	vx := float32(math.Cos(float64(heading)))
	vy := float32(math.Sin(float64(heading)))

	if x < 0 {
		nx = margin
		vx = -vx
		reflected = true
	} else if x >= size {
		nx = size - margin
		vx = -vx
		reflected = true
	}
	if y < 0 {
		ny = margin
		vy = -vy
		reflected = true
	} else if y >= size {
		ny = size - margin
		vy = -vy
		reflected = true
	}

	if reflected {
		nh = float32(math.Atan2(float64(vy), float64(vx)))
		nh += (rng.Float32()*2 - 1) * 0.1
	}
	return nx, ny, nh, reflected
}

// DeflectObstacle checks a proposed move into an obstacle cell. If the
// target cell is blocked, the move is rejected: the tip stays at
// (fromX, fromY) and its heading reflects off the surface normal,
// approximated per axis from which coordinate crossed into the blocked
// cell, plus jitter.
func DeflectObstacle(field *NutrientField, fromX, fromY, toX, toY, heading float32, rng *rand.Rand) (nx, ny, nh float32, deflected bool) {
	cx, cy := field.CellOf(toX, toY)
	if !field.Obstacle[cy*field.Size+cx] {
		return toX, toY, heading, false
	}

	vx := float32(math.Cos(float64(heading)))
	vy := float32(math.Sin(float64(heading)))

	// Flip whichever axis moved the tip into the blocked cell.
	fx, fy := field.CellOf(fromX, fromY)
	if fx != cx {
		vx = -vx
	}
	if fy != cy {
		vy = -vy
	}

	nh = float32(math.Atan2(float64(vy), float64(vx)))
	nh += (rng.Float32()*2 - 1) * 0.1
	return fromX, fromY, nh, true
}
