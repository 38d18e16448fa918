package game

import (
	"math"

	"trenchline/internal/game/world"
)

// Friendly emplacements: defensive turrets and artillery guns spawned at
// level start. They ride the enemy table with a friendly faction tag so the
// replication path and grid handling stay uniform.

const (
	NPCTurret    = "turret"
	NPCArtillery = "artillery"

	turretRange    = 800.0
	turretDamage   = 7.0
	turretCooldown = 0.5

	artilleryRange    = 2200.0
	artilleryCooldown = 5.0
	artilleryFlight   = 2.0
	artilleryRadius   = 120.0
	artilleryDamage   = 30.0
	artilleryEdgeDmg  = 10.0
)

// spawnEmplacements places the mode's NPC guns.
func (r *Room) spawnEmplacements() {
	for _, npc := range r.mode.NPCs {
		e := &Enemy{
			ID:        r.enemyIDs.Next(),
			Type:      npc.Type,
			Faction:   FactionFriendly,
			X:         npc.X,
			Y:         npc.Y,
			Radius:    30,
			SpeedMul:  0,
			Health:    300,
			HealthMax: 300,
			Alive:     true,
		}
		e.ai.RingSlot = -1
		r.enemies[e.ID] = e
		r.enemyGrid.Insert(e.ID, e.X, e.Y)
	}
}

// tickEmplacement runs one friendly gun. Emplacements never move; they only
// track and fire.
func (r *Room) tickEmplacement(e *Enemy, dt float64) {
	if len(e.Dots) > 0 {
		dmg, _ := tickDots(&e.Dots, dt)
		if e.Burning && !hasDotSource(e.Dots, dotSourceFire) {
			e.Burning = false
			r.bus.Emit(BurnStateChanged{EntityID: e.ID, Burning: false})
		}
		if dmg > 0 {
			e.Health -= dmg
			if e.Health <= 0 {
				e.Alive = false
				r.enemyGrid.Remove(e.ID)
				r.bus.Emit(EntityDead{ID: e.ID, X: e.X, Y: e.Y})
				delete(r.enemies, e.ID)
				return
			}
		}
	}
	if e.AttackTimer > 0 {
		e.AttackTimer -= dt
		return
	}
	switch e.Type {
	case NPCTurret:
		r.turretFire(e)
	case NPCArtillery:
		r.artilleryFire(e)
	}
}

func (r *Room) turretFire(e *Enemy) {
	var best *Enemy
	bestD := turretRange
	for _, id := range r.enemyGrid.QueryCircle(e.X, e.Y, turretRange) {
		o := r.enemies[id]
		if o == nil || !o.Alive || o.Faction != FactionEnemy {
			continue
		}
		d := math.Hypot(o.X-e.X, o.Y-e.Y)
		if d < bestD && !r.env.LineHitsAny(e.X, e.Y, o.X, o.Y, world.FilterIgnoreBreakable) {
			best = o
			bestD = d
		}
	}
	if best == nil {
		return
	}
	e.AttackTimer = turretCooldown
	e.ShieldAngle = math.Atan2(best.Y-e.Y, best.X-e.X) // reused as barrel angle
	r.bus.Emit(VFXEvent{Kind: "turretShot", X: e.X, Y: e.Y, Angle: e.ShieldAngle})
	r.damageEnemy(best, turretDamage, e.X, e.Y)
}

// artilleryFire lobs a shell at the densest enemy cluster in range. The shell
// reuses the grenade scheduler; damage lands after the flight time.
func (r *Room) artilleryFire(e *Enemy) {
	var best *Enemy
	bestScore := 0
	for _, id := range r.enemyGrid.QueryCircle(e.X, e.Y, artilleryRange) {
		o := r.enemies[id]
		if o == nil || !o.Alive || o.Faction != FactionEnemy {
			continue
		}
		if math.Hypot(o.X-e.X, o.Y-e.Y) > artilleryRange {
			continue
		}
		score := len(r.enemyNeighbors(o, artilleryRadius))
		if best == nil || score > bestScore {
			best = o
			bestScore = score
		}
	}
	if best == nil {
		return
	}
	e.AttackTimer = artilleryCooldown
	r.grenades = append(r.grenades, Grenade{
		X: best.X, Y: best.Y,
		Fuse:    artilleryFlight,
		Radius:  artilleryRadius,
		Damage:  artilleryDamage,
		MinDmg:  artilleryEdgeDmg,
		OwnerID: e.ID,
	})
	r.bus.Emit(VFXEvent{Kind: "artilleryShot", X: e.X, Y: e.Y,
		Angle: math.Atan2(best.Y-e.Y, best.X-e.X)})
}

// applyNPCDot tags a friendly emplacement with a client-originated DOT. The
// dps and duration are clamped server-side; the client only nominates the
// target.
func (r *Room) applyNPCDot(npcID string, dps, duration float64) {
	e := r.enemies[npcID]
	if e == nil || !e.Alive || e.Faction != FactionFriendly {
		return
	}
	dps = math.Min(dps, 25)
	duration = math.Min(duration, 8)
	r.applyEntityDot(&e.Dots, &e.Burning, e.ID, dotSourceFire, dps, duration)
}
