package network

import (
	"math"
	"testing"

	"github.com/fungiform/mycel/components"
	"github.com/fungiform/mycel/config"
)

func testGraph() *Graph {
	cfg := config.Default()
	return NewGraph(cfg.Network, cfg.Signals)
}

func TestConnectBalancesReserves(t *testing.T) {
	g := testGraph()
	ra := &components.Reserves{Carbon: 0.8, Nitrogen: 0.2}
	rb := &components.Reserves{Carbon: 0.2, Nitrogen: 0.2}

	if !g.Connect(1, 2, ra, rb) {
		t.Fatal("first connect should succeed")
	}
	if g.Connect(2, 1, ra, rb) {
		t.Error("duplicate connect (reversed order) should be rejected")
	}
	if g.Count() != 1 {
		t.Fatalf("count = %d, want 1", g.Count())
	}

	// One-time balancing moved some carbon from rich to poor, total
	// conserved.
	if ra.Carbon >= 0.8 {
		t.Errorf("rich side unchanged: %g", ra.Carbon)
	}
	if rb.Carbon <= 0.2 {
		t.Errorf("poor side unchanged: %g", rb.Carbon)
	}
	total := float64(ra.Carbon + rb.Carbon)
	if math.Abs(total-1.0) > 1e-6 {
		t.Errorf("carbon not conserved: %g", total)
	}
}

func TestStepFlowsDownhill(t *testing.T) {
	g := testGraph()
	ra := &components.Reserves{Carbon: 0.9}
	rb := &components.Reserves{Carbon: 0.1}
	g.Connect(1, 2, ra, rb)
	nodes := map[uint32]*components.Reserves{1: ra, 2: rb}

	before := float64(ra.Carbon + rb.Carbon)
	carbonA := ra.Carbon
	g.Step(nodes, 0.016, 1.0)

	if ra.Carbon >= carbonA {
		t.Error("flow should drain the richer side")
	}
	if rb.Carbon <= 0.1 {
		t.Error("flow should fill the poorer side")
	}
	after := float64(ra.Carbon + rb.Carbon)
	if math.Abs(before-after) > 1e-6 {
		t.Errorf("flow lost mass: %g -> %g", before, after)
	}
	if ra.Flow <= 0 || rb.Flow <= 0 {
		t.Error("per-node flow aggregate not updated")
	}
}

func TestStepFlowBounded(t *testing.T) {
	cfg := config.Default()
	g := NewGraph(cfg.Network, cfg.Signals)
	ra := &components.Reserves{Carbon: 1.0}
	rb := &components.Reserves{Carbon: 0.0}
	g.Connect(1, 2, ra, rb)
	nodes := map[uint32]*components.Reserves{1: ra, 2: rb}

	g.Step(nodes, 0.016, 1.0)
	moved := 1.0 - ra.Carbon
	if float64(moved) > cfg.Network.MaxFlow+1e-6 {
		t.Errorf("transfer %g exceeded max_flow %g", moved, cfg.Network.MaxFlow)
	}
}

func TestStepZeroReservesNoFlow(t *testing.T) {
	g := testGraph()
	ra := &components.Reserves{}
	rb := &components.Reserves{}
	g.Connect(1, 2, ra, rb)
	nodes := map[uint32]*components.Reserves{1: ra, 2: rb}

	g.Step(nodes, 0.016, 1.0)
	if ra.Carbon != 0 || rb.Carbon != 0 {
		t.Error("zero reserves should yield no flow")
	}
	if math.IsNaN(float64(ra.Carbon)) || math.IsNaN(float64(rb.Carbon)) {
		t.Error("degenerate flow produced NaN")
	}
}

func TestReinforcementAndPruning(t *testing.T) {
	g := testGraph()
	ra := &components.Reserves{Carbon: 0.9}
	rb := &components.Reserves{Carbon: 0.1}
	g.Connect(1, 2, ra, rb)
	nodes := map[uint32]*components.Reserves{1: ra, 2: rb}

	// Active edge: flow keeps strength at or above the floor.
	for i := 0; i < 50; i++ {
		ra.Carbon = 0.9
		rb.Carbon = 0.1
		g.Step(nodes, 0.016, 1.0)
	}
	cfg := config.Default().Network
	s := g.Connections()[0].Strength
	if s < float32(cfg.MinStrength) || s > 1 {
		t.Errorf("active strength %g outside [%g, 1]", s, cfg.MinStrength)
	}

	// Idle edge: equalize reserves so no flow occurs, strength decays
	// below the pruning threshold and the edge goes away.
	ra.Carbon, rb.Carbon = 0.5, 0.5
	for i := 0; i < 5000 && g.Count() > 0; i++ {
		g.Step(nodes, 0.016, 1.0)
		g.Prune()
	}
	if g.Count() != 0 {
		t.Errorf("idle edge never pruned, strength %g", g.Connections()[0].Strength)
	}
}

func TestDropDeadEndpoints(t *testing.T) {
	g := testGraph()
	ra := &components.Reserves{Carbon: 0.5}
	rb := &components.Reserves{Carbon: 0.5}
	rc := &components.Reserves{Carbon: 0.5}
	g.Connect(1, 2, ra, rb)
	g.Connect(2, 3, rb, rc)

	// Node 1 dies: only its edge goes.
	alive := map[uint32]*components.Reserves{2: rb, 3: rc}
	dropped := g.DropDeadEndpoints(alive)
	if dropped != 1 {
		t.Fatalf("dropped %d edges, want 1", dropped)
	}
	if g.Count() != 1 || g.Connected(1, 2) {
		t.Error("stale edge survived endpoint death")
	}
	if !g.Connected(2, 3) {
		t.Error("live edge was dropped")
	}
}

func TestRetargetNode(t *testing.T) {
	g := testGraph()
	r := &components.Reserves{Carbon: 0.5}
	g.Connect(1, 2, r, r)
	g.Connect(2, 3, r, r)
	g.Connect(1, 3, r, r)

	// Fuse node 3 into node 2: edge 2-3 becomes a self-loop (dropped),
	// edge 1-3 becomes 1-2 (duplicate of existing, dropped).
	g.RetargetNode(3, 2)
	if g.Count() != 1 {
		t.Fatalf("count = %d, want 1", g.Count())
	}
	if !g.Connected(1, 2) {
		t.Error("surviving edge missing")
	}
}

func TestPropagateSignals(t *testing.T) {
	cfg := config.Default()
	g := NewGraph(cfg.Network, cfg.Signals)
	ra := &components.Reserves{Signal: 0.9}
	rb := &components.Reserves{}
	g.Connect(1, 2, ra, rb)
	nodes := map[uint32]*components.Reserves{1: ra, 2: rb}

	g.Propagate(nodes)
	if rb.Signal <= 0 {
		t.Error("signal did not propagate across edge")
	}
	if rb.Signal > 1 || ra.Signal > 1 {
		t.Error("signal exceeded 1")
	}
}

func TestDegrees(t *testing.T) {
	g := testGraph()
	r := &components.Reserves{}
	g.Connect(1, 2, r, r)
	g.Connect(1, 3, r, r)

	deg := g.Degrees()
	if deg[1] != 2 || deg[2] != 1 || deg[3] != 1 {
		t.Errorf("degrees = %v", deg)
	}
}
