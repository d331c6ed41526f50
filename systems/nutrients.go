package systems

import (
	"math"
	"math/rand"

	"github.com/fungiform/mycel/config"
)

// NutrientField holds the two diffusing substrate grids (sugar and
// nitrogen) plus the obstacle mask. World position (x, y) maps onto
// cell (int(x/CellSize), int(y/CellSize)). The grid is bounded, not
// toroidal: nothing diffuses across edges.
type NutrientField struct {
	Size     int
	CellSize float32
	Sugar    []float32
	Nitrogen []float32
	Obstacle []bool

	// Flow direction for anisotropic diffusion. Drifts slowly so wet
	// ticks wash nutrients in a coherent, slowly changing direction.
	FlowAngle float32

	cfg config.NutrientsConfig

	// Double buffers, swapped every diffusion pass.
	sugarBuf []float32
	nitroBuf []float32
}

// NewNutrientField allocates an empty field of size x size cells, each
// cellSize world units across.
func NewNutrientField(size int, cellSize float64, cfg config.NutrientsConfig, rng *rand.Rand) *NutrientField {
	n := size * size
	return &NutrientField{
		Size:      size,
		CellSize:  float32(cellSize),
		Sugar:     make([]float32, n),
		Nitrogen:  make([]float32, n),
		Obstacle:  make([]bool, n),
		FlowAngle: rng.Float32() * 2 * math.Pi,
		cfg:       cfg,
		sugarBuf:  make([]float32, n),
		nitroBuf:  make([]float32, n),
	}
}

// WorldSize returns the world-unit extent of the field along each axis.
func (f *NutrientField) WorldSize() float32 {
	return float32(f.Size) * f.CellSize
}

// CellOf maps a world position to clamped cell coordinates.
func (f *NutrientField) CellOf(x, y float32) (cx, cy int) {
	cx = clampInt(int(x/f.CellSize), 0, f.Size-1)
	cy = clampInt(int(y/f.CellSize), 0, f.Size-1)
	return cx, cy
}

// InBounds reports whether (x, y) lies inside the grid.
func (f *NutrientField) InBounds(x, y int) bool {
	return x >= 0 && x < f.Size && y >= 0 && y < f.Size
}

// Idx returns the flat index for cell (x, y). Callers must bounds-check.
func (f *NutrientField) Idx(x, y int) int {
	return y*f.Size + x
}

// SugarAt returns the sugar level at a world position, clamped to the
// grid. Obstacle cells read as zero.
func (f *NutrientField) SugarAt(x, y float32) float32 {
	return f.at(f.Sugar, x, y)
}

// NitrogenAt returns the nitrogen level at a world position.
func (f *NutrientField) NitrogenAt(x, y float32) float32 {
	return f.at(f.Nitrogen, x, y)
}

func (f *NutrientField) at(grid []float32, x, y float32) float32 {
	cx, cy := f.CellOf(x, y)
	i := cy*f.Size + cx
	if f.Obstacle[i] {
		return 0
	}
	return grid[i]
}

// SetObstacle marks a cell impassable and clears any nutrient stored
// there.
func (f *NutrientField) SetObstacle(x, y int) {
	if !f.InBounds(x, y) {
		return
	}
	i := f.Idx(x, y)
	f.Obstacle[i] = true
	f.Sugar[i] = 0
	f.Nitrogen[i] = 0
}

// Deposit adds amount to the given grid at a world position, clamped
// per cell to [0,1]. Any overflow above the cap is returned so callers
// can account for it.
func (f *NutrientField) Deposit(grid []float32, x, y, amount float32) float32 {
	cx, cy := f.CellOf(x, y)
	i := cy*f.Size + cx
	if f.Obstacle[i] {
		return amount
	}
	room := 1 - grid[i]
	if amount <= room {
		grid[i] += amount
		return 0
	}
	grid[i] = 1
	return amount - room
}

// AddPatch deposits a radial patch of nutrient centered at world
// position (wx, wy), with a linear falloff from peak at the center to
// zero at radius (world units).
func (f *NutrientField) AddPatch(grid []float32, wx, wy, radius, peak float32) {
	radius /= f.CellSize
	if radius < 1 {
		radius = 1
	}
	r := int(radius) + 1
	icx, icy := int(wx/f.CellSize), int(wy/f.CellSize)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x, y := icx+dx, icy+dy
			if !f.InBounds(x, y) {
				continue
			}
			i := f.Idx(x, y)
			if f.Obstacle[i] {
				continue
			}
			d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
			if d > radius {
				continue
			}
			v := grid[i] + peak*(1-d/radius)
			if v > 1 {
				v = 1
			}
			grid[i] = v
		}
	}
}

// Consume removes up to want from the grid around a world position
// using a tent-weighted kernel, and returns the amount actually
// removed. Cells nearer the center give up more; empty or obstacle
// cells give nothing, so the return value may be less than want.
func (f *NutrientField) Consume(grid []float32, x, y, want float32, radiusCells int) float32 {
	if want <= 0 {
		return 0
	}
	cx, cy := f.CellOf(x, y)

	// Tent weights: center gets radius+1, falling off by Manhattan
	// distance.
	var wsum float32
	for oy := -radiusCells; oy <= radiusCells; oy++ {
		for ox := -radiusCells; ox <= radiusCells; ox++ {
			w := float32(radiusCells+1) - float32(absInt(ox)+absInt(oy))
			if w > 0 {
				wsum += w
			}
		}
	}
	if wsum <= 0 {
		return 0
	}

	var removed float32
	for oy := -radiusCells; oy <= radiusCells; oy++ {
		yy := cy + oy
		if yy < 0 || yy >= f.Size {
			continue
		}
		for ox := -radiusCells; ox <= radiusCells; ox++ {
			xx := cx + ox
			if xx < 0 || xx >= f.Size {
				continue
			}
			w := float32(radiusCells+1) - float32(absInt(ox)+absInt(oy))
			if w <= 0 {
				continue
			}
			i := yy*f.Size + xx
			if f.Obstacle[i] {
				continue
			}
			take := want * (w / wsum)
			if take > grid[i] {
				take = grid[i]
			}
			grid[i] -= take
			removed += take
		}
	}
	return removed
}

// Gradient returns the Sobel gradient of the grid at a world position,
// pointing toward increasing nutrient. Edge cells clamp.
func (f *NutrientField) Gradient(grid []float32, x, y float32) (gx, gy float32) {
	cx, cy := f.CellOf(x, y)

	sample := func(dx, dy int) float32 {
		xx := clampInt(cx+dx, 0, f.Size-1)
		yy := clampInt(cy+dy, 0, f.Size-1)
		i := yy*f.Size + xx
		if f.Obstacle[i] {
			return 0
		}
		return grid[i]
	}

	gx = sample(1, -1) + 2*sample(1, 0) + sample(1, 1) -
		sample(-1, -1) - 2*sample(-1, 0) - sample(-1, 1)
	gy = sample(-1, 1) + 2*sample(0, 1) + sample(1, 1) -
		sample(-1, -1) - 2*sample(0, -1) - sample(1, -1)
	return gx, gy
}

// Diffuse advances both grids one diffusion step. Rain scales the
// anisotropic component: at full rain, nutrients wash along the flow
// direction, which itself drifts a little each tick.
func (f *NutrientField) Diffuse(rain float32, rng *rand.Rand) {
	f.FlowAngle += (rng.Float32()*2 - 1) * float32(f.cfg.FlowDrift)

	bias := float32(f.cfg.FlowBias) * rain
	fx := float32(math.Cos(float64(f.FlowAngle))) * bias
	fy := float32(math.Sin(float64(f.FlowAngle))) * bias

	f.diffuseGrid(f.Sugar, f.sugarBuf, float32(f.cfg.DiffusionRate), fx, fy)
	nitroRate := float32(f.cfg.DiffusionRate * f.cfg.NitrogenDiffusionFactor)
	f.diffuseGrid(f.Nitrogen, f.nitroBuf, nitroRate, fx, fy)
}

// diffuseGrid applies one flux-form diffusion-advection step. Working
// in flux form keeps total mass exactly conserved: every unit leaving
// a cell arrives in its neighbor, and obstacle or boundary pairs simply
// exchange nothing.
func (f *NutrientField) diffuseGrid(grid, buf []float32, rate, fx, fy float32) {
	if rate > 0.2 {
		rate = 0.2 // explicit-scheme stability
	}
	copy(buf, grid)
	size := f.Size

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*size + x
			if f.Obstacle[i] {
				continue
			}
			// East pair.
			if x+1 < size && !f.Obstacle[i+1] {
				flux := rate*(grid[i]-grid[i+1]) + fx*rate*(grid[i]+grid[i+1])*0.5
				flux = clampFlux(flux, buf[i], buf[i+1])
				buf[i] -= flux
				buf[i+1] += flux
			}
			// South pair.
			if y+1 < size && !f.Obstacle[i+size] {
				flux := rate*(grid[i]-grid[i+size]) + fy*rate*(grid[i]+grid[i+size])*0.5
				flux = clampFlux(flux, buf[i], buf[i+size])
				buf[i] -= flux
				buf[i+size] += flux
			}
		}
	}
	copy(grid, buf)
}

// clampFlux limits a pair flux so neither endpoint can go negative or
// exceed the cell cap. The endpoints are the buffered values, so a cell
// receiving from both its west and north pairs still stays within [0,1].
func clampFlux(flux, from, to float32) float32 {
	if flux > 0 {
		if limit := from * 0.25; flux > limit {
			flux = limit
		}
		if room := 1 - to; flux > room {
			flux = room
		}
	} else if flux < 0 {
		if limit := -to * 0.25; flux < limit {
			flux = limit
		}
		if room := from - 1; flux < room {
			flux = room
		}
	}
	return flux
}

// Regen tops up randomly sampled depleted cells toward the regeneration
// floor. Sampling a fixed number of cells per tick keeps the cost flat
// regardless of grid size.
func (f *NutrientField) Regen(rng *rand.Rand) {
	floor := float32(f.cfg.RegenFloor)
	rate := float32(f.cfg.RegenRate)
	for s := 0; s < f.cfg.RegenSamples; s++ {
		i := rng.Intn(len(f.Sugar))
		if f.Obstacle[i] {
			continue
		}
		if f.Sugar[i] < floor {
			f.Sugar[i] += rate
			if f.Sugar[i] > floor {
				f.Sugar[i] = floor
			}
		}
		if f.Nitrogen[i] < floor {
			f.Nitrogen[i] += rate * float32(f.cfg.NitrogenDiffusionFactor)
			if f.Nitrogen[i] > floor {
				f.Nitrogen[i] = floor
			}
		}
	}
}

// TotalSugar sums the sugar grid.
func (f *NutrientField) TotalSugar() float64 {
	var sum float64
	for _, v := range f.Sugar {
		sum += float64(v)
	}
	return sum
}

// TotalNitrogen sums the nitrogen grid.
func (f *NutrientField) TotalNitrogen() float64 {
	var sum float64
	for _, v := range f.Nitrogen {
		sum += float64(v)
	}
	return sum
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
