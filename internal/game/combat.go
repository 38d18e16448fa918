package game

import (
	"math"

	"trenchline/internal/game/world"
)

// Player weapon fire: hitscan along the aim angle through the weapon
// progression table. Breakable cover soaks shots before they reach enemies,
// same as troop rifles.

const (
	weaponRange   = 900.0
	weaponHitPad  = 6.0 // aim forgiveness added to the target radius
	meleeFallback = 8.0 // damage when the weapon table has no entry
)

// playerFire advances the fire cooldown and resolves one shot when the
// trigger is held and the weapon is ready.
func (r *Room) playerFire(p *Player, in PlayerInput, dt float64) {
	if p.fireTimer > 0 {
		p.fireTimer -= dt
	}
	if p.Dead || !in.MouseDown || r.scene != SceneLevel || r.missionEnded {
		return
	}
	if p.fireTimer > 0 {
		return
	}

	w := r.weapons.ByIndex(p.WeaponIndex)
	interval := 0.5
	dmg := meleeFallback
	if w != nil {
		interval = w.FireInterval
		dmg = r.weapons.Damage(w.Name, p.LootLevel)
	}
	interval /= 1 + p.statPercent("fireRate")/100
	if interval < 0.05 {
		interval = 0.05
	}
	dmg *= 1 + p.statPercent("damage")/100
	p.fireTimer = interval

	dirX := math.Cos(p.AimAngle)
	dirY := math.Sin(p.AimAngle)
	endX := p.X + dirX*weaponRange
	endY := p.Y + dirY*weaponRange
	r.bus.Emit(VFXEvent{Kind: "playerShot", X: p.X, Y: p.Y, Angle: p.AimAngle})

	target := r.pickFireTarget(p, dirX, dirY)
	if target != nil {
		endX, endY = target.X, target.Y
	}

	// Breakable cover between the muzzle and the impact point eats the shot.
	if idx := r.env.LineHitsBreakable(p.X, p.Y, endX, endY); idx >= 0 {
		box := r.env.OrientedBoxAt(idx)
		r.damageHazard(box.HazardID, dmg)
		return
	}
	if target == nil {
		return
	}
	if r.damageEnemy(target, dmg, p.X, p.Y) {
		return
	}
	r.bus.Emit(DamageText{X: target.X, Y: target.Y, Amount: dmg})
}

// pickFireTarget finds the nearest living enemy close enough to the aim ray,
// with solid walls blocking.
func (r *Room) pickFireTarget(p *Player, dirX, dirY float64) *Enemy {
	var best *Enemy
	bestD := weaponRange
	for _, id := range r.enemyGrid.QueryCircle(p.X, p.Y, weaponRange) {
		e := r.enemies[id]
		if e == nil || !e.Alive || e.Faction != FactionEnemy {
			continue
		}
		ox := e.X - p.X
		oy := e.Y - p.Y
		along := ox*dirX + oy*dirY
		if along <= 0 || along > weaponRange {
			continue
		}
		perp := math.Abs(ox*dirY - oy*dirX)
		if perp > e.Radius+weaponHitPad {
			continue
		}
		if along < bestD &&
			!r.env.LineHitsAny(p.X, p.Y, e.X, e.Y, world.FilterIgnoreBreakable) {
			best = e
			bestD = along
		}
	}
	return best
}
