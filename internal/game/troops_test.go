package game

import "testing"

// TestBarracksFillAndLock verifies the initial spawn phase fills the barracks
// to cap and then locks.
func TestBarracksFillAndLock(t *testing.T) {
	r := newTestRoom(t, 3)
	enterBareLevel(r, r.modes.Get("test"))
	r.initBarracks()

	if len(r.barracksList) != 1 {
		t.Fatalf("Expected 1 barracks, got %d", len(r.barracksList))
	}
	b := r.barracksList[0]
	if b.Cap != 4 {
		t.Fatalf("Expected cap 4, got %d", b.Cap)
	}

	for i := 0; i < 500; i++ {
		r.tickBarracks(0.1)
	}

	if b.Alive != 4 {
		t.Errorf("Expected 4 troops alive, got %d", b.Alive)
	}
	if len(r.troops) != 4 {
		t.Errorf("Expected 4 troops in the room, got %d", len(r.troops))
	}
	if r.troopPhase != troopPhaseLocked {
		t.Errorf("Expected locked phase after the initial fill, got %d", r.troopPhase)
	}

	// Locked means no further spawns, headcount or not.
	b.Alive = 2
	for i := 0; i < 100; i++ {
		r.tickBarracks(0.1)
	}
	if b.Alive != 2 {
		t.Errorf("Expected no spawns while locked, alive %d", b.Alive)
	}
}

// TestUnlockTroopRefillPhaseGate verifies the unlock only moves the machine
// out of the locked phase.
func TestUnlockTroopRefillPhaseGate(t *testing.T) {
	tests := []struct {
		name string
		from int
		want int
	}{
		{"initial stays", troopPhaseInitial, troopPhaseInitial},
		{"locked opens", troopPhaseLocked, troopPhaseRefill},
		{"refill stays", troopPhaseRefill, troopPhaseRefill},
		{"done stays", troopPhaseDone, troopPhaseDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t, 3)
			r.troopPhase = tt.from
			r.unlockTroopRefill()
			if r.troopPhase != tt.want {
				t.Errorf("Expected phase %d, got %d", tt.want, r.troopPhase)
			}
		})
	}
}

// TestRefillPhaseTopsUpAndLocksForever verifies the one-shot refill wave.
func TestRefillPhaseTopsUpAndLocksForever(t *testing.T) {
	r := newTestRoom(t, 3)
	enterBareLevel(r, r.modes.Get("test"))
	r.initBarracks()
	for i := 0; i < 500; i++ {
		r.tickBarracks(0.1)
	}
	b := r.barracksList[0]

	// Two losses, then the carrier reaches the refill zone.
	b.Alive = 2
	r.unlockTroopRefill()
	if r.troopPhase != troopPhaseRefill {
		t.Fatalf("Expected refill phase, got %d", r.troopPhase)
	}

	for i := 0; i < 500; i++ {
		r.tickBarracks(0.1)
	}
	if b.Alive != 4 {
		t.Errorf("Expected refilled to 4, got %d", b.Alive)
	}
	if r.troopPhase != troopPhaseDone {
		t.Errorf("Expected done phase after the refill, got %d", r.troopPhase)
	}

	// Done is permanent.
	b.Alive = 0
	r.unlockTroopRefill()
	for i := 0; i < 100; i++ {
		r.tickBarracks(0.1)
	}
	if b.Alive != 0 {
		t.Errorf("Expected no spawns after done, alive %d", b.Alive)
	}
}

// TestDamageTroopDeath verifies death cleans up the grid, the map and the
// barracks headcount.
func TestDamageTroopDeath(t *testing.T) {
	r := newTestRoom(t, 3)
	enterBareLevel(r, r.modes.Get("test"))
	r.initBarracks()
	b := r.barracksList[0]
	tr := r.spawnTroop(TroopMelee, b)
	if tr == nil {
		t.Fatal("Expected a troop placed")
	}
	b.Alive = 1
	drainEvents(r)

	if r.damageTroop(tr, 10) {
		t.Fatal("Expected the troop to survive 10 damage")
	}
	if len(eventsOfName(drainEvents(r), "troopDamaged")) != 1 {
		t.Error("Expected a troopDamaged event")
	}

	if !r.damageTroop(tr, 1000) {
		t.Fatal("Expected lethal damage to kill")
	}
	if _, ok := r.troops[tr.ID]; ok {
		t.Error("Expected the troop removed from the map")
	}
	if b.Alive != 0 {
		t.Errorf("Expected barracks headcount 0, got %d", b.Alive)
	}
	if len(eventsOfName(drainEvents(r), "troopDeath")) != 1 {
		t.Error("Expected a troopDeath event")
	}
}

// TestTroopSpawnSpacing verifies the spiral placement keeps troops apart.
func TestTroopSpawnSpacing(t *testing.T) {
	r := newTestRoom(t, 3)
	enterBareLevel(r, r.modes.Get("test"))
	r.initBarracks()
	b := r.barracksList[0]

	var placed []*Troop
	for i := 0; i < 4; i++ {
		tr := r.spawnTroop(TroopMelee, b)
		if tr == nil {
			t.Fatalf("Expected placement %d to succeed", i)
		}
		placed = append(placed, tr)
	}
	for i := 0; i < len(placed); i++ {
		for j := i + 1; j < len(placed); j++ {
			dx := placed[i].X - placed[j].X
			dy := placed[i].Y - placed[j].Y
			if dx*dx+dy*dy < troopSpawnSpacing*troopSpawnSpacing {
				t.Errorf("Troops %d and %d closer than the spacing floor", i, j)
			}
		}
	}
}

// TestWallContactPromotesStuckZone verifies the yellow zone appears on the
// wall-contact rising edge and turns red after sustained occupancy.
func TestWallContactPromotesStuckZone(t *testing.T) {
	r := newTestRoom(t, 3)
	enterBareLevel(r, r.modes.Get("test"))

	tr := &Troop{ID: "troop_1", Radius: 18, occupiedZone: -1, goalX: 1000}
	r.troops[tr.ID] = tr

	// Rising edge: pushing +x into a wall drops a yellow zone ahead.
	r.updateTroopStuckState(tr, 1, 0, true, 0.1)
	if len(r.stuckZones) != 1 {
		t.Fatalf("Expected 1 stuck zone, got %d", len(r.stuckZones))
	}
	var z *StuckZone
	for _, sz := range r.stuckZones {
		z = sz
	}
	if z.Kind != ZoneWallHit {
		t.Fatalf("Expected a yellow zone, got %q", z.Kind)
	}
	if z.X != wallContactOffset || z.Y != 0 {
		t.Errorf("Expected zone offset toward the wall at (%f,0), got (%f,%f)",
			wallContactOffset, z.X, z.Y)
	}

	// Sustained contact must not stack more yellows.
	r.updateTroopStuckState(tr, 1, 0, true, 0.1)
	if len(r.stuckZones) != 1 {
		t.Errorf("Expected no duplicate zones, got %d", len(r.stuckZones))
	}

	// Camp the zone until it promotes.
	for i := 0; i < 25; i++ {
		r.updateTroopStuckState(tr, 1, 0, true, 0.1)
		if z.Kind == ZoneStuck {
			break
		}
	}
	if z.Kind != ZoneStuck {
		t.Fatal("Expected promotion to a red zone")
	}
	if !z.HasExit {
		t.Error("Expected the red zone to carry an exit suggestion")
	}
	if z.TTL != redTTL {
		t.Errorf("Expected TTL reset to %f, got %f", redTTL, z.TTL)
	}
}
