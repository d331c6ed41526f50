// Package systems provides the field, weather, and spatial subsystems
// underlying the simulation engine.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/fungiform/mycel/components"
)

// Neighbor holds a nearby entity with precomputed spatial data, so
// callers never recompute deltas or distances in the hot path.
type Neighbor struct {
	E      ecs.Entity
	DX, DY float32 // delta from query origin
	DistSq float32 // squared distance
}

// SpatialGrid provides O(1) neighbor lookups using a bucket grid.
// The world is bounded: buckets never wrap, and queries clamp at the
// edges.
type SpatialGrid struct {
	bucketSize float32
	cols       int
	rows       int
	width      float32
	height     float32
	buckets    [][]ecs.Entity
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, bucketSize float32) *SpatialGrid {
	cols := int(width/bucketSize) + 1
	rows := int(height/bucketSize) + 1

	buckets := make([][]ecs.Entity, cols*rows)
	for i := range buckets {
		buckets[i] = make([]ecs.Entity, 0, 8)
	}

	return &SpatialGrid{
		bucketSize: bucketSize,
		cols:       cols,
		rows:       rows,
		width:      width,
		height:     height,
		buckets:    buckets,
	}
}

// Clear removes all entities from the grid. Bucket capacity is kept so
// the per-tick rebuild does not reallocate.
func (g *SpatialGrid) Clear() {
	for i := range g.buckets {
		g.buckets[i] = g.buckets[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) {
	idx := g.bucketIndex(x, y)
	g.buckets[idx] = append(g.buckets[idx], e)
}

// QueryRadiusInto finds entities within radius of (x, y) and appends
// them to dst. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float32, exclude ecs.Entity, posMap *ecs.Map1[components.Position]) []Neighbor {
	bucketRadius := int(radius/g.bucketSize) + 1

	centerCol := clampInt(int(x/g.bucketSize), 0, g.cols-1)
	centerRow := clampInt(int(y/g.bucketSize), 0, g.rows-1)

	minCol := clampInt(centerCol-bucketRadius, 0, g.cols-1)
	maxCol := clampInt(centerCol+bucketRadius, 0, g.cols-1)
	minRow := clampInt(centerRow-bucketRadius, 0, g.rows-1)
	maxRow := clampInt(centerRow+bucketRadius, 0, g.rows-1)

	radiusSq := radius * radius

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, e := range g.buckets[row*g.cols+col] {
				if e == exclude {
					continue
				}
				pos := posMap.Get(e)
				if pos == nil {
					continue
				}
				dx := pos.X - x
				dy := pos.Y - y
				distSq := dx*dx + dy*dy
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, DX: dx, DY: dy, DistSq: distSq})
				}
			}
		}
	}
	return dst
}

// bucketIndex returns the flat index for a world position, clamped to
// the grid bounds.
func (g *SpatialGrid) bucketIndex(x, y float32) int {
	col := clampInt(int(x/g.bucketSize), 0, g.cols-1)
	row := clampInt(int(y/g.bucketSize), 0, g.rows-1)
	return row*g.cols + col
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
