package systems

import "github.com/fungiform/mycel/config"

// MemoryGrid records where the colony has found nutrients. Values decay
// multiplicatively each tick, so old discoveries fade unless revisited.
// Tips steer up the memory gradient when the live nutrient gradient is
// weak.
type MemoryGrid struct {
	Size     int
	CellSize float32
	Values   []float32
	cfg      config.MemoryConfig
}

// NewMemoryGrid allocates a zeroed memory grid co-located with the
// nutrient field.
func NewMemoryGrid(size int, cellSize float64, cfg config.MemoryConfig) *MemoryGrid {
	return &MemoryGrid{
		Size:     size,
		CellSize: float32(cellSize),
		Values:   make([]float32, size*size),
		cfg:      cfg,
	}
}

func (m *MemoryGrid) cellOf(x, y float32) (cx, cy int) {
	cx = clampInt(int(x/m.CellSize), 0, m.Size-1)
	cy = clampInt(int(y/m.CellSize), 0, m.Size-1)
	return cx, cy
}

// Decay fades every cell by the configured rate.
func (m *MemoryGrid) Decay() {
	if !m.cfg.Enabled {
		return
	}
	rate := float32(m.cfg.DecayRate)
	for i, v := range m.Values {
		if v > 0 {
			m.Values[i] = v * rate
		}
	}
}

// Record marks a nutrient discovery at a world position. The cell moves
// toward full strength by the configured update fraction, so repeated
// finds saturate rather than overflow.
func (m *MemoryGrid) Record(x, y float32) {
	if !m.cfg.Enabled {
		return
	}
	cx, cy := m.cellOf(x, y)
	i := cy*m.Size + cx
	m.Values[i] += (1 - m.Values[i]) * float32(m.cfg.UpdateStrength)
}

// At returns the memory level at a world position.
func (m *MemoryGrid) At(x, y float32) float32 {
	cx, cy := m.cellOf(x, y)
	return m.Values[cy*m.Size+cx]
}

// Gradient returns the Sobel gradient of the memory grid at a world
// position.
func (m *MemoryGrid) Gradient(x, y float32) (gx, gy float32) {
	cx, cy := m.cellOf(x, y)

	sample := func(dx, dy int) float32 {
		xx := clampInt(cx+dx, 0, m.Size-1)
		yy := clampInt(cy+dy, 0, m.Size-1)
		return m.Values[yy*m.Size+xx]
	}

	gx = sample(1, -1) + 2*sample(1, 0) + sample(1, 1) -
		sample(-1, -1) - 2*sample(-1, 0) - sample(-1, 1)
	gy = sample(-1, 1) + 2*sample(0, 1) + sample(1, 1) -
		sample(-1, -1) - 2*sample(0, -1) - sample(1, -1)
	return gx, gy
}
