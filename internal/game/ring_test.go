package game

import (
	"math"
	"testing"
)

// TestReassignRingUniqueSlots verifies every nearby enemy gets its own slot
// at the ring radius.
func TestReassignRingUniqueSlots(t *testing.T) {
	r := newTestRoom(t, 8)
	p := joinTestPlayer(r, "p1")
	enterBareLevel(r, r.modes.Get("test"))
	movePlayerTo(r, p, 0, 0)
	p.AimAngle = 0

	var pack []*Enemy
	for i := 0; i < 10; i++ {
		a := float64(i) * 2 * math.Pi / 10
		e := r.spawnEnemy(EnemyBasic, math.Cos(a)*300, math.Sin(a)*300)
		pack = append(pack, e)
	}

	ring := &playerRing{}
	r.rings[p.ID] = ring
	r.reassignRing(p, ring)

	owners := make(map[int]string)
	for _, e := range pack {
		if e.ai.RingSlot < 0 {
			t.Fatalf("Enemy %s got no slot", e.ID)
		}
		if prev, taken := owners[e.ai.RingSlot]; taken {
			t.Fatalf("Slot %d claimed by both %s and %s", e.ai.RingSlot, prev, e.ID)
		}
		owners[e.ai.RingSlot] = e.ID
		if e.ai.RingRadius != ringRadius {
			t.Errorf("Expected ring radius %f, got %f", ringRadius, e.ai.RingRadius)
		}
	}
}

// TestReassignRingWindow verifies enemies beyond the window lose their slot.
func TestReassignRingWindow(t *testing.T) {
	r := newTestRoom(t, 8)
	p := joinTestPlayer(r, "p1")
	enterBareLevel(r, r.modes.Get("test"))
	movePlayerTo(r, p, 0, 0)

	far := r.spawnEnemy(EnemyBasic, ringWindow+10, 0)
	far.ai.RingSlot = 5

	ring := &playerRing{}
	r.rings[p.ID] = ring
	r.reassignRing(p, ring)

	if far.ai.RingSlot != -1 {
		t.Errorf("Expected the out-of-window enemy unslotted, got %d", far.ai.RingSlot)
	}
}

// TestArcBias verifies the distance ramp of the approach-arc pull.
func TestArcBias(t *testing.T) {
	tests := []struct {
		name string
		dist float64
		want float64
	}{
		{"inside start", 100, 0},
		{"at start", arcBiasStart, 0},
		{"midway", (arcBiasStart + arcBiasFull) / 2, 0.5},
		{"at full", arcBiasFull, 1},
		{"beyond full", 5000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := arcBias(tt.dist); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected bias %f at %f, got %f", tt.want, tt.dist, got)
			}
		})
	}
}

// TestPickApproachArcs verifies arc count and determinism.
func TestPickApproachArcs(t *testing.T) {
	a := pickApproachArcs(0.5, NewSeqRand(10))
	b := pickApproachArcs(0.5, NewSeqRand(10))
	if len(a) < 2 || len(a) > 3 {
		t.Fatalf("Expected 2-3 arcs, got %d", len(a))
	}
	if len(a) != len(b) {
		t.Fatalf("Expected identical seeds to give identical arc counts")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Arc %d differs: %f vs %f", i, a[i], b[i])
		}
	}
}

// TestNormalizeAngle verifies wrapping into (-pi, pi].
func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"wrap positive", 3 * math.Pi, math.Pi},
		{"wrap negative", -2.5 * math.Pi, -0.5 * math.Pi},
		{"already normal", 1.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.want, got)
			}
		})
	}
}

// TestAngleDiff verifies the shortest signed rotation.
func TestAngleDiff(t *testing.T) {
	if got := angleDiff(0.1, -0.1); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Expected 0.2, got %f", got)
	}
	// Across the wrap: from just below +pi to just above -pi is a small step.
	got := angleDiff(-math.Pi+0.05, math.Pi-0.05)
	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("Expected 0.1 across the wrap, got %f", got)
	}
}
