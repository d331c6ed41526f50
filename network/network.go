// Package network maintains the weighted connection graph formed by
// anastomosis: edge formation, diffusive reserve flow, reinforcement,
// pruning, and signal propagation.
package network

import (
	"github.com/fungiform/mycel/components"
	"github.com/fungiform/mycel/config"
)

// Connection is an undirected weighted edge between two tip IDs.
type Connection struct {
	A, B     uint32
	Strength float32
	Flow     float32 // cumulative reserve volume moved over this edge
	Age      float32
}

type pairKey struct {
	lo, hi uint32
}

func keyFor(a, b uint32) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Graph holds all connections. Edges live in a slice so per-tick
// iteration order is deterministic; the pair map exists only for O(1)
// duplicate checks. Endpoints are stored as tip IDs, never entity
// references: a dead endpoint invalidates the edge rather than
// dangling.
type Graph struct {
	conns   []Connection
	pairs   map[pairKey]int
	cfg     config.NetworkConfig
	signals config.SignalsConfig
}

// NewGraph creates an empty connection graph.
func NewGraph(cfg config.NetworkConfig, signals config.SignalsConfig) *Graph {
	return &Graph{
		pairs:   make(map[pairKey]int),
		cfg:     cfg,
		signals: signals,
	}
}

// Count returns the number of live connections.
func (g *Graph) Count() int {
	return len(g.conns)
}

// Connections returns the underlying edge slice. Callers must not
// mutate it; snapshots copy.
func (g *Graph) Connections() []Connection {
	return g.conns
}

// Connected reports whether an edge already joins a and b.
func (g *Graph) Connected(a, b uint32) bool {
	_, ok := g.pairs[keyFor(a, b)]
	return ok
}

// Connect forms a new edge between a and b at initial strength and
// performs the one-time reserve balancing across it: a fraction of the
// difference in each pool moves from the richer side to the poorer.
// Returns false if the edge already exists.
func (g *Graph) Connect(a, b uint32, ra, rb *components.Reserves) bool {
	key := keyFor(a, b)
	if _, ok := g.pairs[key]; ok {
		return false
	}
	g.pairs[key] = len(g.conns)
	g.conns = append(g.conns, Connection{
		A:        a,
		B:        b,
		Strength: float32(g.cfg.InitialStrength),
	})

	frac := float32(g.cfg.BalanceFraction)
	ra.Carbon, rb.Carbon = balance(ra.Carbon, rb.Carbon, frac)
	ra.Nitrogen, rb.Nitrogen = balance(ra.Nitrogen, rb.Nitrogen, frac)
	return true
}

// balance moves frac of the difference from the richer to the poorer
// pool. Total is preserved exactly.
func balance(a, b, frac float32) (float32, float32) {
	move := (a - b) * frac
	return a - move, b + move
}

// Step runs one tick of flow, reinforcement, and aging over every
// edge, in insertion order. nodes maps live tip IDs to their reserves;
// an edge whose endpoint is missing from nodes carries no flow this
// tick and is expected to be removed by DropDeadEndpoints in the same
// tick. maxReserve caps the receiving side of every transfer.
func (g *Graph) Step(nodes map[uint32]*components.Reserves, dt, maxReserve float32) {
	flowRate := float32(g.cfg.FlowRate)
	maxFlow := float32(g.cfg.MaxFlow)
	strengthen := float32(g.cfg.StrengthenRate)
	decay := float32(g.cfg.StrengthDecay)
	minStrength := float32(g.cfg.MinStrength)

	for i := range g.conns {
		c := &g.conns[i]
		c.Age += dt

		ra, okA := nodes[c.A]
		rb, okB := nodes[c.B]

		var moved float32
		if okA && okB {
			moved = transfer(&ra.Carbon, &rb.Carbon, flowRate*c.Strength, maxFlow, maxReserve)
			moved += transfer(&ra.Nitrogen, &rb.Nitrogen, flowRate*c.Strength, maxFlow, maxReserve)
			c.Flow += moved
			ra.Flow += moved
			rb.Flow += moved
		}

		// Reinforcement: recent flow strengthens, everything decays.
		// Edges that carried flow this tick are floored at the minimum;
		// idle edges decay through it and get pruned.
		c.Strength += strengthen * moved
		c.Strength *= decay
		if moved > 0 && c.Strength < minStrength {
			c.Strength = minStrength
		}
		if c.Strength > 1 {
			c.Strength = 1
		}
	}
}

// transfer moves reserve from the higher pool to the lower, bounded by
// rate, the per-tick cap, availability, and the receiver's headroom.
// Returns the absolute amount moved. Equal or zero pools move nothing,
// so degenerate inputs never produce a non-finite result.
func transfer(a, b *float32, rate, maxFlow, maxReserve float32) float32 {
	diff := *a - *b
	if diff == 0 {
		return 0
	}
	from, to := a, b
	if diff < 0 {
		from, to = b, a
		diff = -diff
	}
	amount := diff * rate
	if amount > maxFlow {
		amount = maxFlow
	}
	if amount > *from {
		amount = *from
	}
	if room := maxReserve - *to; amount > room {
		amount = room
	}
	if amount <= 0 {
		return 0
	}
	*from -= amount
	*to += amount
	return amount
}

// Propagate pushes discovery signals one hop along every edge. A node
// whose signal exceeds the trigger threshold passes a decayed copy to
// its neighbor; repeated hops over successive ticks give per-hop
// decay.
func (g *Graph) Propagate(nodes map[uint32]*components.Reserves) {
	if !g.signals.Enabled {
		return
	}
	trigger := float32(g.signals.TriggerThreshold)
	hop := float32(g.signals.DecayRate)

	for i := range g.conns {
		c := &g.conns[i]
		ra, okA := nodes[c.A]
		rb, okB := nodes[c.B]
		if !okA || !okB {
			continue
		}
		if ra.Signal > trigger {
			rb.Signal += ra.Signal * hop * c.Strength
			if rb.Signal > 1 {
				rb.Signal = 1
			}
		}
		if rb.Signal > trigger {
			ra.Signal += rb.Signal * hop * c.Strength
			if ra.Signal > 1 {
				ra.Signal = 1
			}
		}
	}
}

// Prune removes every edge whose strength has fallen below the pruning
// threshold and returns how many were removed. Endpoints are
// unaffected.
func (g *Graph) Prune() int {
	threshold := float32(g.cfg.PruningThreshold)
	return g.filter(func(c *Connection) bool {
		return c.Strength >= threshold
	})
}

// DropDeadEndpoints removes every edge with at least one endpoint
// absent from the live set, the same tick the endpoint died. Returns
// how many edges were dropped.
func (g *Graph) DropDeadEndpoints(alive map[uint32]*components.Reserves) int {
	return g.filter(func(c *Connection) bool {
		_, okA := alive[c.A]
		_, okB := alive[c.B]
		return okA && okB
	})
}

// filter keeps edges passing the predicate, preserving order, and
// rebuilds the pair index. Returns the number removed.
func (g *Graph) filter(keep func(*Connection) bool) int {
	kept := g.conns[:0]
	for i := range g.conns {
		if keep(&g.conns[i]) {
			kept = append(kept, g.conns[i])
		}
	}
	removed := len(g.conns) - len(kept)
	if removed > 0 {
		g.conns = kept
		g.reindex()
	}
	return removed
}

func (g *Graph) reindex() {
	clear(g.pairs)
	for i := range g.conns {
		g.pairs[keyFor(g.conns[i].A, g.conns[i].B)] = i
	}
}

// RetargetNode rewires every edge of oldID onto newID, used when
// fusion merges oldID into newID. Edges that would loop onto newID, or
// duplicate one of its existing edges, are dropped; the first edge for
// a pair wins.
func (g *Graph) RetargetNode(oldID, newID uint32) {
	kept := g.conns[:0]
	seen := make(map[pairKey]struct{}, len(g.conns))
	for i := range g.conns {
		c := g.conns[i]
		if c.A == oldID {
			c.A = newID
		}
		if c.B == oldID {
			c.B = newID
		}
		if c.A == c.B {
			continue
		}
		k := keyFor(c.A, c.B)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, c)
	}
	g.conns = kept
	g.reindex()
}

// Degrees returns the connection count per node, in a freshly built
// map.
func (g *Graph) Degrees() map[uint32]int {
	deg := make(map[uint32]int, len(g.conns))
	for i := range g.conns {
		deg[g.conns[i].A]++
		deg[g.conns[i].B]++
	}
	return deg
}
