package game

import (
	"testing"

	"trenchline/internal/data"
)

// TestDestroyHazardRenormalizesBoxIndices verifies that removing a breakable
// keeps every surviving hazard pointing at its own collision box.
func TestDestroyHazardRenormalizesBoxIndices(t *testing.T) {
	r := newTestRoom(t, 5)
	enterBareLevel(r, r.modes.Get("test"))

	cfg := data.HazardKindConfig{Health: 240}
	first := r.spawnHazard(HazardSandbag, cfg, -200, 0, 0)
	middle := r.spawnHazard(HazardSandbag, cfg, 0, 0, 0.4)
	last := r.spawnHazard(HazardSandbag, cfg, 200, 0, 0.8)

	r.damageHazard(middle.ID, 500)

	if _, ok := r.hazards[middle.ID]; ok {
		t.Fatal("Expected the middle sandbag removed")
	}
	if len(r.hazards) != 2 {
		t.Fatalf("Expected 2 survivors, got %d", len(r.hazards))
	}
	if r.env.OrientedBoxCount() != 2 {
		t.Fatalf("Expected 2 collision boxes, got %d", r.env.OrientedBoxCount())
	}
	for _, h := range []*Hazard{first, last} {
		if h.BoxIndex < 0 || h.BoxIndex >= r.env.OrientedBoxCount() {
			t.Fatalf("Hazard %s has box index %d out of range", h.ID, h.BoxIndex)
		}
		if got := r.env.OrientedBoxAt(h.BoxIndex).HazardID; got != h.ID {
			t.Errorf("Hazard %s points at box owned by %q", h.ID, got)
		}
	}
}

// TestDamageHazardChipsBeforeBreaking verifies partial damage emits a hit and
// keeps the box registered.
func TestDamageHazardChipsBeforeBreaking(t *testing.T) {
	r := newTestRoom(t, 5)
	enterBareLevel(r, r.modes.Get("test"))

	h := r.spawnHazard(HazardSandbag, data.HazardKindConfig{Health: 240}, 0, 0, 0)
	drainEvents(r)

	r.damageHazard(h.ID, 100)

	if h.Health != 140 {
		t.Errorf("Expected 140 health, got %f", h.Health)
	}
	if r.env.OrientedBoxCount() != 1 {
		t.Error("Expected the collision box still registered")
	}
	evs := drainEvents(r)
	if len(eventsOfName(evs, "hazardHit")) != 1 {
		t.Error("Expected a hazardHit event")
	}
	if len(eventsOfName(evs, "hazardRemoved")) != 0 {
		t.Error("Expected no removal event")
	}
}

// TestBarrelExplosionFalloff verifies full damage inside the inner radius and
// the 40% floor at the rim.
func TestBarrelExplosionFalloff(t *testing.T) {
	r := newTestRoom(t, 5)
	near := joinTestPlayer(r, "near")
	far := joinTestPlayer(r, "far")
	enterBareLevel(r, r.modes.Get("test"))

	cfg := data.HazardKindConfig{Health: 60, ExplosionRadius: 150, ExplosionDamage: 60}
	barrel := r.spawnHazard(HazardBarrel, cfg, 0, 0, 0)

	movePlayerTo(r, near, 10, 0)
	movePlayerTo(r, far, 150, 0)

	r.damageHazard(barrel.ID, 100)

	if near.Health != near.HealthMax-60 {
		t.Errorf("Expected inner-radius player to take 60, health %f", near.Health)
	}
	if far.Health != far.HealthMax-24 {
		t.Errorf("Expected rim player to take 24, health %f", far.Health)
	}
	if _, ok := r.hazards[barrel.ID]; ok {
		t.Error("Expected the barrel removed")
	}
	removed := eventsOfName(drainEvents(r), "hazardRemoved")
	if len(removed) != 1 {
		t.Fatalf("Expected 1 removal event, got %d", len(removed))
	}
	if !removed[0].(HazardRemoved).Exploded {
		t.Error("Expected the removal flagged as an explosion")
	}
}

// TestPukePoolExpires verifies the pool damages standers and disappears after
// its lifetime.
func TestPukePoolExpires(t *testing.T) {
	r := newTestRoom(t, 5)
	p := joinTestPlayer(r, "p1")
	enterBareLevel(r, r.modes.Get("test"))
	movePlayerTo(r, p, 30, 0)

	pool := r.spawnPukePool(0, 0)
	r.tickHazards(0.5)

	if len(p.Dots) == 0 {
		t.Fatal("Expected a puke DOT on the standing player")
	}

	for i := 0; i < 30; i++ {
		r.tickHazards(0.5)
	}
	if _, ok := r.hazards[pool.ID]; ok {
		t.Fatal("Expected the pool expired")
	}
	removed := eventsOfName(drainEvents(r), "hazardRemoved")
	if len(removed) != 1 {
		t.Errorf("Expected 1 removal event, got %d", len(removed))
	}
}

// TestFirePoolIgnitesPlayers verifies the fire pool applies the burn DOT and
// raises the visible burning state exactly once.
func TestFirePoolIgnitesPlayers(t *testing.T) {
	r := newTestRoom(t, 5)
	p := joinTestPlayer(r, "p1")
	enterBareLevel(r, r.modes.Get("test"))
	movePlayerTo(r, p, 0, 0)

	r.hazards["fire"] = &Hazard{ID: "fire", Kind: HazardFirePool, Radius: 120, BoxIndex: -1}
	r.tickHazards(0.1)
	r.tickHazards(0.1)

	if !p.Burning {
		t.Fatal("Expected the player burning")
	}
	if len(p.Dots) != 1 {
		t.Fatalf("Expected 1 DOT stack, got %d", len(p.Dots))
	}
	changes := eventsOfName(drainEvents(r), "burnStateChanged")
	if len(changes) != 1 {
		t.Errorf("Expected 1 burn-state event, got %d", len(changes))
	}

	// Out of the pool the DOT sticks around briefly, then the state clears.
	movePlayerTo(r, p, 2000, 2000)
	for i := 0; i < 40; i++ {
		r.Tick(0.1)
	}
	if p.Burning {
		t.Error("Expected burn state cleared after the stick time")
	}
}

// TestBoomerDeathChain verifies a boomer kill explodes, drops a puke pool and
// blasts nearby players.
func TestBoomerDeathChain(t *testing.T) {
	r := newTestRoom(t, 5)
	p := joinTestPlayer(r, "p1")
	enterBareLevel(r, r.modes.Get("trenchraid"))
	movePlayerTo(r, p, 10, 0)

	e := r.spawnEnemy(EnemyBoomer, 0, 0)
	drainEvents(r)

	if !r.damageEnemy(e, e.Health+1, 400, 0) {
		t.Fatal("Expected lethal damage to kill the boomer")
	}

	if _, ok := r.enemies[e.ID]; ok {
		t.Error("Expected the boomer removed")
	}
	evs := drainEvents(r)
	if len(eventsOfName(evs, "boomerExploded")) != 1 {
		t.Error("Expected a boomerExploded event")
	}
	if len(eventsOfName(evs, "enemy_dead")) != 1 {
		t.Error("Expected an enemy_dead event")
	}

	pool := false
	for _, h := range r.hazards {
		if h.Kind == HazardPukePool {
			pool = true
		}
	}
	if !pool {
		t.Error("Expected a puke pool at the corpse")
	}
	// Inside the inner blast ring: full 45 damage.
	if p.Health != p.HealthMax-45 {
		t.Errorf("Expected blast damage 45, health %f", p.Health)
	}
}

// TestWallguyFrontalShield verifies the shield soaks frontal hits and leaves
// rear hits untouched.
func TestWallguyFrontalShield(t *testing.T) {
	r := newTestRoom(t, 5)
	enterBareLevel(r, r.modes.Get("trenchraid"))

	e := r.spawnEnemy(EnemyWallguy, 0, 0)
	e.ShieldAngle = 0 // facing +x
	start := e.Health

	// Shot arriving from the front of the shield.
	r.damageEnemy(e, 10, 500, 0)
	if got := start - e.Health; got != 2 {
		t.Errorf("Expected frontal damage reduced to 2, got %f", got)
	}

	// Shot from behind takes full damage.
	before := e.Health
	r.damageEnemy(e, 10, -500, 0)
	if got := before - e.Health; got != 10 {
		t.Errorf("Expected rear damage 10, got %f", got)
	}
}

// TestMudPoolSlowsEntities verifies the mud slow tag is applied and lingers.
func TestMudPoolSlowsEntities(t *testing.T) {
	r := newTestRoom(t, 5)
	p := joinTestPlayer(r, "p1")
	enterBareLevel(r, r.modes.Get("test"))
	movePlayerTo(r, p, 0, 0)

	r.hazards["mud"] = &Hazard{ID: "mud", Kind: HazardMudPool, Radius: 150, BoxIndex: -1}
	r.tickHazards(0.1)

	if p.MudSlow <= 0 {
		t.Error("Expected the mud slow applied")
	}
}

// TestBoomerBlastSparesOutOfReach verifies players past the blast reach take
// no damage even when they share a broad-phase cell with the explosion.
func TestBoomerBlastSparesOutOfReach(t *testing.T) {
	r := newTestRoom(t, 5)
	p := joinTestPlayer(r, "p1")
	enterBareLevel(r, r.modes.Get("test"))
	// Diagonal offset: the coarse grid query still returns the player, but at
	// ~170 units they are well past the 124-unit reach.
	movePlayerTo(r, p, 120, 120)

	e := r.spawnEnemy(EnemyBoomer, 0, 0)
	r.damageEnemy(e, e.Health+1, 400, 0)

	if p.Health != p.HealthMax {
		t.Errorf("Expected no blast damage out of reach, health %f", p.Health)
	}
}
