package game

import (
	"math"

	"go.uber.org/zap"

	"trenchline/internal/game/world"
)

// Troop controller: barracks spawning in two capped phases, zone-progression
// pushing, LOS-gated combat, sandbag breaking and the stuck-avoidance
// behaviors. Troops always test walls with FilterIgnoreBreakable: a sandbag
// is an obstacle they can break, not a permanent wall.

const (
	troopSpawnSpacing = 60.0
	troopSpiralStep   = 35.0
	troopSpiralTries  = 40

	meleeDamageMin   = 5.0
	meleeDamageMax   = 7.0
	meleeCooldownMin = 0.3
	meleeCooldownMax = 0.5

	rangedCooldownMin = 0.45
	rangedCooldownMax = 0.65
	rangedDamage      = 6.0

	grenadeFuse        = 3.6
	grenadeRadius      = 50.0
	grenadeDamageIn    = 15.0
	grenadeDamageEdge  = 5.0
	grenadierCooldMin  = 1.0
	grenadierCooldMax  = 1.3

	troopEnemyNearby = 800.0

	meleeRingPoints = 16
	meleeRingMax    = 260.0

	sandbagBreakHold   = 2.0
	sandbagBreakRange  = 120.0
	sandbagBreakDamage = 120.0
	anchorSlack        = 5.0

	wallContactOffset = 18.0

	escapeHoldTrigger  = 3.0
	redDwellTrigger    = 0.35
	escapeResampleSec  = 0.2
	zoneEscapeRepick   = 0.6
	zoneEscapeFollow   = 1.0
	zoneEscapeProbes   = 14
	zoneEscapeDist     = 300.0
	escapeClearLatch   = 0.35
	fireDetourDuration = 0.75

	troopSepRadius = 70.0
)

// barracks is one troop spawner's runtime state.
type barracks struct {
	ID        int
	X, Y      float64
	Cap       int
	NextSpawn float64
	NextType  int
	Alive     int
}

// troopPhase values for the two-phase spawn gate.
const (
	troopPhaseInitial = iota // filling up to cap at level start
	troopPhaseLocked         // filled once, waiting for the refill unlock
	troopPhaseRefill         // artifact carrier reached the refill zone
	troopPhaseDone           // refilled, locked permanently
)

var troopSpawnOrder = []string{TroopGrenadier, TroopRanged, TroopMelee}

type troopStats struct {
	Health float64
	Range  float64
	Speed  float64
}

var troopBaseStats = map[string]troopStats{
	TroopMelee:     {Health: 60, Range: 55, Speed: 170},
	TroopRanged:    {Health: 45, Range: 520, Speed: 160},
	TroopGrenadier: {Health: 50, Range: 420, Speed: 150},
}

// initBarracks builds the barracks set from the mode config at level start.
func (r *Room) initBarracks() {
	r.barracksList = r.barracksList[:0]
	r.troopPhase = troopPhaseInitial
	for i, b := range r.mode.Troops.Barracks {
		r.barracksList = append(r.barracksList, &barracks{
			ID:  i,
			X:   b.X,
			Y:   b.Y,
			Cap: b.Cap,
		})
	}
}

// unlockTroopRefill opens phase 1. The zone tracker calls this exactly once,
// on the artifact carrier's first entry into the refill zone.
func (r *Room) unlockTroopRefill() {
	if r.troopPhase == troopPhaseLocked {
		r.troopPhase = troopPhaseRefill
		r.log.Info("troop refill wave unlocked", zap.String("room", r.ID))
	}
}

// tickBarracks runs the spawn timers for whatever phase is active.
func (r *Room) tickBarracks(dt float64) {
	if r.troopPhase == troopPhaseLocked || r.troopPhase == troopPhaseDone {
		return
	}
	interval := r.mode.Troops.SpawnInterval
	if interval <= 0 {
		interval = 3.0
	}

	allFull := true
	for _, b := range r.barracksList {
		if b.Alive >= b.Cap {
			continue
		}
		allFull = false
		b.NextSpawn -= dt
		if b.NextSpawn > 0 {
			continue
		}
		b.NextSpawn = interval * r.jitter.Range(0.8, 1.2)
		typ := troopSpawnOrder[b.NextType%len(troopSpawnOrder)]
		b.NextType++
		if t := r.spawnTroop(typ, b); t != nil {
			b.Alive++
		}
	}

	if allFull {
		switch r.troopPhase {
		case troopPhaseInitial:
			r.troopPhase = troopPhaseLocked
		case troopPhaseRefill:
			r.troopPhase = troopPhaseDone
		}
	}
}

// spawnTroop places a troop on an outward spiral from the barracks anchor,
// requiring clearance and spacing from other troops. Gives up after the try
// budget; the spawn is skipped, not fatal.
func (r *Room) spawnTroop(typ string, b *barracks) *Troop {
	stats := troopBaseStats[typ]
	for try := 0; try < troopSpiralTries; try++ {
		a := float64(try) * 2.399963 // golden-angle spiral
		rad := troopSpiralStep * math.Sqrt(float64(try+1))
		x := b.X + math.Cos(a)*rad
		y := b.Y + math.Sin(a)*rad
		if r.env.CircleHitsAny(x, y, 18, world.FilterIgnoreBreakable) ||
			!r.env.IsInsideBounds(x, y, 18) {
			continue
		}
		tooClose := false
		for _, id := range r.troopGrid.QueryCircle(x, y, troopSpawnSpacing) {
			o := r.troops[id]
			if o != nil && math.Hypot(o.X-x, o.Y-y) < troopSpawnSpacing {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		t := &Troop{
			ID:           r.troopIDs.Next(),
			Type:         typ,
			Faction:      FactionFriendly,
			X:            x,
			Y:            y,
			Radius:       18,
			Health:       stats.Health,
			HealthMax:    stats.Health,
			AttackRange:  stats.Range,
			BarracksID:   b.ID,
			occupiedZone: -1,
			anchorX:      x,
			anchorY:      y,
		}
		r.troops[t.ID] = t
		r.troopGrid.Insert(t.ID, x, y)
		return t
	}
	r.log.Warn("troop spawn rejected after max placement attempts",
		zap.String("room", r.ID), zap.Int("barracks", b.ID))
	return nil
}

// tickTroops runs the per-troop control loop and the scheduled grenades.
func (r *Room) tickTroops(dt float64) {
	for _, t := range r.troops {
		r.tickTroop(t, dt)
	}
	r.tickGrenades(dt)
}

func (r *Room) tickTroop(t *Troop, dt float64) {
	// DOT and death check first.
	if len(t.Dots) > 0 {
		dmg, _ := tickDots(&t.Dots, dt)
		if t.Burning && !hasDotSource(t.Dots, dotSourceFire) {
			t.Burning = false
			r.bus.Emit(BurnStateChanged{EntityID: t.ID, Burning: false})
		}
		if dmg > 0 && r.damageTroop(t, dmg) {
			return
		}
	}
	if t.AttackCooldown > 0 {
		t.AttackCooldown -= dt
	}
	if t.MudSlow > 0 {
		t.MudSlow -= dt
	}

	target := r.acquireTroopTarget(t)
	if target != nil {
		t.TargetEnemyID = target.ID
		t.BarrelAngle = math.Atan2(target.Y-t.Y, target.X-t.X)
		if t.AttackCooldown <= 0 {
			r.troopAttackTarget(t, target)
		}
	} else {
		t.TargetEnemyID = ""
	}

	r.moveTroop(t, target, dt)
}

// acquireTroopTarget finds the nearest live enemy in attack range. Melee
// additionally requires line of sight through non-breakable geometry; a
// blocked target is rejected outright.
func (r *Room) acquireTroopTarget(t *Troop) *Enemy {
	var best *Enemy
	bestD := math.MaxFloat64
	for _, id := range r.enemyGrid.QueryCircle(t.X, t.Y, t.AttackRange) {
		e := r.enemies[id]
		if e == nil || !e.Alive || e.Faction != FactionEnemy {
			continue
		}
		d := math.Hypot(e.X-t.X, e.Y-t.Y)
		if d > t.AttackRange || d >= bestD {
			continue
		}
		if t.Type == TroopMelee &&
			r.env.LineHitsAny(t.X, t.Y, e.X, e.Y, world.FilterIgnoreBreakable) {
			continue
		}
		best = e
		bestD = d
	}
	return best
}

// troopAttackTarget dispatches the type-specific attack.
func (r *Room) troopAttackTarget(t *Troop, e *Enemy) {
	switch t.Type {
	case TroopMelee:
		t.AttackCooldown = r.jitter.Range(meleeCooldownMin, meleeCooldownMax)
		dmg := r.jitter.Range(meleeDamageMin, meleeDamageMax)
		r.bus.Emit(TroopAttack{ID: t.ID, Type: TroopMelee, TargetID: e.ID})
		r.damageEnemy(e, dmg, t.X, t.Y)

	case TroopRanged:
		t.AttackCooldown = r.jitter.Range(rangedCooldownMin, rangedCooldownMax)
		shot := TroopHitscan{ID: t.ID, X1: t.X, Y1: t.Y, X2: e.X, Y2: e.Y}
		// A sandbag or barrel in the way soaks the shot; a permanent wall
		// blocks it entirely. The tracer event goes out either way.
		if idx := r.env.LineHitsBreakable(t.X, t.Y, e.X, e.Y); idx >= 0 {
			box := r.env.OrientedBoxAt(idx)
			shot.Blocked = true
			shot.HitHazard = box.HazardID
			r.bus.Emit(shot)
			r.damageHazard(box.HazardID, rangedDamage)
			return
		}
		if r.env.LineHitsAny(t.X, t.Y, e.X, e.Y, world.FilterIgnoreBreakable) {
			shot.Blocked = true
			r.bus.Emit(shot)
			return
		}
		r.bus.Emit(shot)
		r.damageEnemy(e, rangedDamage, t.X, t.Y)

	case TroopGrenadier:
		t.AttackCooldown = r.jitter.Range(grenadierCooldMin, grenadierCooldMax)
		r.grenades = append(r.grenades, Grenade{
			X: e.X, Y: e.Y,
			Fuse:    grenadeFuse,
			Radius:  grenadeRadius,
			Damage:  grenadeDamageIn,
			MinDmg:  grenadeDamageEdge,
			OwnerID: t.ID,
		})
		r.bus.Emit(TroopGrenade{ID: t.ID, X: e.X, Y: e.Y, FuseSec: grenadeFuse})
	}
}

// tickGrenades detonates fused grenades; damage lands at the scheduled time,
// not at throw time. Pending grenades are simply dropped on room shutdown.
func (r *Room) tickGrenades(dt float64) {
	n := 0
	for i := range r.grenades {
		g := &r.grenades[i]
		g.Fuse -= dt
		if g.Fuse > 0 {
			r.grenades[n] = *g
			n++
			continue
		}
		r.bus.Emit(VFXEvent{Kind: "grenadeExplosion", X: g.X, Y: g.Y, Scale: g.Radius})
		r.forEnemiesIn(g.X, g.Y, g.Radius, func(e *Enemy) {
			d := math.Hypot(e.X-g.X, e.Y-g.Y)
			frac := 1 - math.Min(1, d/g.Radius)
			dmg := g.MinDmg + (g.Damage-g.MinDmg)*frac
			r.damageEnemy(e, dmg, g.X, g.Y)
		})
	}
	r.grenades = r.grenades[:n]
}

// troopGoal computes the zone-progression waypoint: the center of the next
// zone ahead on the x axis, or the extraction anchor past the last zone.
func (r *Room) troopGoal(t *Troop) (float64, float64) {
	zones := r.mode.ZoneSpawning.Zones
	for _, z := range zones {
		if t.X < z.Rect.MaxX {
			return (z.Rect.MinX + z.Rect.MaxX) / 2, (z.Rect.MinY + z.Rect.MaxY) / 2
		}
	}
	return r.mode.Extraction.X, r.mode.Extraction.Y
}

// moveTroop runs goal selection, avoidance and movement for one troop.
func (r *Room) moveTroop(t *Troop, target *Enemy, dt float64) {
	gx, gy := r.troopGoal(t)
	t.goalX, t.goalY = gx, gy

	// An enemy becomes the movement target only if it lies between the troop
	// and the waypoint or is close enough to matter.
	tx, ty := gx, gy
	if target != nil {
		d := math.Hypot(target.X-t.X, target.Y-t.Y)
		between := (target.X-t.X)*(gx-t.X)+(target.Y-t.Y)*(gy-t.Y) > 0
		if between || d < troopEnemyNearby {
			tx, ty = target.X, target.Y
			// Hold position inside attack range.
			if d < t.AttackRange*0.85 {
				r.updateTroopStuckState(t, 0, 0, false, dt)
				return
			}
		}
	}

	dx, dy := tx-t.X, ty-t.Y
	if l := math.Hypot(dx, dy); l > 0 {
		dx /= l
		dy /= l
	}

	// Melee pathing around blockers: if the direct line is blocked, sample a
	// ring and take the best-scoring reachable point.
	if t.Type == TroopMelee &&
		r.env.LineHitsAny(t.X, t.Y, tx, ty, world.FilterIgnoreBreakable) {
		if px, py, ok := r.meleeDetour(t, tx, ty); ok {
			dx, dy = px-t.X, py-t.Y
			if l := math.Hypot(dx, dy); l > 0 {
				dx /= l
				dy /= l
			}
		}
	}

	// Feelers, ignoring sandbags (they get broken, not avoided).
	heading := math.Atan2(dy, dx)
	fx, fy := feelerSteer(r.env, t.X, t.Y, heading, world.FilterIgnoreBreakable, false, false)
	dx += fx
	dy += fy

	// Separation from other troops.
	nbs := r.troopNeighbors(t, troopSepRadius)
	sx, sy, _ := separation(t.X, t.Y, t.Radius, nbs)
	sepW := 0.3
	if t.stuckHold > 1.0 || len(nbs) > 3 {
		sepW = 0.7
	}
	dx += sx * sepW
	dy += sy * sepW

	// Avoidance phases may override the blend entirely.
	dx, dy = r.troopAvoidance(t, dx, dy, dt)

	if l := math.Hypot(dx, dy); l > 0 {
		dx /= l
		dy /= l
	} else {
		r.updateTroopStuckState(t, 0, 0, false, dt)
		return
	}

	speed := troopBaseStats[t.Type].Speed
	if t.MudSlow > 0 {
		speed *= mudSpeedMul
	}
	step := speed * dt

	res := r.env.ResolveCircleMove(t.X, t.Y, t.Radius, dx*step, dy*step, world.FilterIgnoreBreakable)
	progress := math.Hypot(res.X-t.X, res.Y-t.Y)

	// Poor forward progress: try perpendicular slides and keep the best.
	if progress < step*0.2 {
		bestX, bestY, bestProg := res.X, res.Y, progress
		for _, side := range []float64{1, -1} {
			alt := r.env.ResolveCircleMove(t.X, t.Y, t.Radius,
				-dy*side*step, dx*side*step, world.FilterIgnoreBreakable)
			prog := math.Hypot(alt.X-t.X, alt.Y-t.Y)
			if prog > bestProg {
				bestX, bestY, bestProg = alt.X, alt.Y, prog
			}
		}
		if bestProg > progress {
			res.X, res.Y = bestX, bestY
			progress = bestProg
		} else if t.avoid.Phase == "" {
			t.avoid.Phase = "reverse"
			t.avoid.Timer = r.jitter.Range(0.15, 0.35)
			t.avoid.Side = r.probeSide(t.X, t.Y, t.Radius, dx, dy)
		}
	}

	if t.avoid.Phase == "zoneEscape" {
		t.avoid.Moved += progress
	}
	t.lastMoveX, t.lastMoveY = dx, dy
	t.X, t.Y = res.X, res.Y
	r.troopGrid.Move(t.ID, t.X, t.Y)

	r.updateTroopStuckState(t, dx, dy, res.HitWall, dt)
	r.maybeBreakSandbag(t, target)
}

// meleeDetour samples a ring of candidate points and scores by progress
// toward the target, LOS bonus and angular deviation.
func (r *Room) meleeDetour(t *Troop, tx, ty float64) (float64, float64, bool) {
	dist := math.Hypot(tx-t.X, ty-t.Y)
	radius := math.Min(meleeRingMax, dist*0.45)
	direct := math.Atan2(ty-t.Y, tx-t.X)

	bestScore := math.Inf(-1)
	var bx, by float64
	found := false
	for i := 0; i < meleeRingPoints; i++ {
		a := float64(i) * 2 * math.Pi / meleeRingPoints
		px := t.X + math.Cos(a)*radius
		py := t.Y + math.Sin(a)*radius
		if r.env.CircleHitsAny(px, py, t.Radius, world.FilterIgnoreBreakable) ||
			r.env.LineHitsAny(t.X, t.Y, px, py, world.FilterIgnoreBreakable) {
			continue
		}
		score := -math.Hypot(tx-px, ty-py) / math.Max(dist, 1)
		if !r.env.LineHitsAny(px, py, tx, ty, world.FilterIgnoreBreakable) {
			score += 0.8
		}
		score -= math.Abs(angleDiff(a, direct)) * 0.15
		if score > bestScore {
			bestScore = score
			bx, by = px, py
			found = true
		}
	}
	return bx, by, found
}

// updateTroopStuckState maintains the wall-contact rising edge, the stuck
// anchor hold, yellow zone occupancy and promotion.
func (r *Room) updateTroopStuckState(t *Troop, dx, dy float64, hitWall bool, dt float64) {
	// Anchor: how long has the troop stayed within anchorSlack of a spot.
	if math.Hypot(t.X-t.anchorX, t.Y-t.anchorY) > anchorSlack {
		t.anchorX, t.anchorY = t.X, t.Y
		t.stuckHold = 0
	} else {
		t.stuckHold += dt
	}

	// Yellow zone on the wall-contact rising edge, offset toward the wall.
	if hitWall && !t.wallContact {
		theta := math.Atan2(dy, dx)
		zx := t.X + wallContactOffset*math.Cos(theta)
		zy := t.Y + wallContactOffset*math.Sin(theta)
		r.addStuckZone(ZoneWallHit, zx, zy, yellowRadius, yellowTTL)
	}
	t.wallContact = hitWall

	// Occupancy: continuous time inside one yellow zone drives promotion.
	z := r.zoneAt(ZoneWallHit, t.X, t.Y)
	if z != nil && z.ID == t.occupiedZone {
		t.occupiedFor += dt
		if t.occupiedFor >= redPromoteAfter {
			r.promoteStuckZone(z, t.goalX, t.goalY)
		}
	} else if z != nil {
		t.occupiedZone = z.ID
		t.occupiedFor = dt
	} else {
		t.occupiedZone = -1
		t.occupiedFor = 0
	}

	// Red zones stay alive while occupied.
	if rz := r.zoneAt(ZoneStuck, t.X, t.Y); rz != nil {
		rz.TTL = redTTL
		rz.Occupied += dt
	}
}

// maybeBreakSandbag attacks the nearest sandbag when the troop has been
// parked for a while with no enemy engaged.
func (r *Room) maybeBreakSandbag(t *Troop, target *Enemy) {
	if target != nil || t.stuckHold < sandbagBreakHold || t.AttackCooldown > 0 {
		return
	}
	var best *Hazard
	bestD := sandbagBreakRange
	for _, h := range r.hazards {
		if h.Kind != HazardSandbag {
			continue
		}
		d := math.Hypot(h.X-t.X, h.Y-t.Y)
		if d < bestD {
			best = h
			bestD = d
		}
	}
	if best == nil {
		return
	}
	t.AttackCooldown = r.jitter.Range(meleeCooldownMin, meleeCooldownMax)
	r.bus.Emit(TroopAttack{ID: t.ID, Type: t.Type, TargetID: best.ID})
	r.damageHazard(best.ID, sandbagBreakDamage)
}

// troopAvoidance runs the mutually exclusive avoidance phases.
func (r *Room) troopAvoidance(t *Troop, dx, dy, dt float64) (float64, float64) {
	av := &t.avoid

	switch av.Phase {
	case "reverse":
		av.Timer -= dt
		if av.Timer <= 0 {
			av.Phase = "sidestep"
			av.Timer = r.jitter.Range(0.45, 1.05)
		}
		return -dx, -dy

	case "sidestep":
		av.Timer -= dt
		if av.Timer <= 0 {
			av.Phase = ""
		}
		return -dy * av.Side, dx * av.Side

	case "escape":
		av.Timer -= dt
		av.RepickIn -= dt
		if av.RepickIn <= 0 {
			av.RepickIn = escapeResampleSec
			av.EscapeAngle = r.bestEscapeAngle(t.X, t.Y, t.Radius, av.EscapeAngle)
		}
		if av.Timer <= 0 {
			av.Phase = ""
		}
		// Escape never blends with the goal direction.
		return math.Cos(av.EscapeAngle), math.Sin(av.EscapeAngle)

	case "zoneEscape":
		return r.troopZoneEscape(t, dt)

	case "fireDetour":
		av.Timer -= dt
		if av.Timer <= 0 {
			av.Phase = ""
		}
		return av.DetourX, av.DetourY
	}

	// Phase entry checks, in priority order.
	if fz := r.zoneAt(ZoneFireDeath, t.X, t.Y); fz != nil && fz.HasExit {
		av.Phase = "fireDetour"
		av.Timer = fireDetourDuration
		av.DetourX = math.Cos(fz.ExitAngle)
		av.DetourY = math.Sin(fz.ExitAngle)
		return av.DetourX, av.DetourY
	}

	if rz := r.zoneAt(ZoneStuck, t.X, t.Y); rz != nil {
		av.ClearT += dt
		if av.ClearT >= redDwellTrigger {
			r.enterZoneEscape(t, rz)
			return r.troopZoneEscape(t, 0)
		}
	} else {
		av.ClearT = 0
	}

	if t.wallContact && t.stuckHold >= escapeHoldTrigger {
		av.Phase = "escape"
		av.Timer = r.jitter.Range(0.8, 1.4)
		av.RepickIn = escapeResampleSec
		av.EscapeAngle = r.bestEscapeAngle(t.X, t.Y, t.Radius, math.Atan2(dy, dx))
		t.stuckHold = 0
		return math.Cos(av.EscapeAngle), math.Sin(av.EscapeAngle)
	}

	return dx, dy
}

// enterZoneEscape picks an escape target outside all red zones, line-clear
// and with maximal red-zone clearance plus a mild goal-progress bias. When
// the zone carries its own exit arrow, candidates along it score higher and
// re-picks slow down.
func (r *Room) enterZoneEscape(t *Troop, z *StuckZone) {
	av := &t.avoid
	av.Phase = "zoneEscape"
	av.Moved = 0
	av.MovedNeed = r.jitter.Range(110, 270)
	av.ClearT = 0
	av.FollowZone = z.HasExit
	av.RepickIn = 0
	r.pickZoneEscapeTarget(t, z)
}

func (r *Room) pickZoneEscapeTarget(t *Troop, z *StuckZone) {
	av := &t.avoid
	goal := math.Atan2(t.goalY-t.Y, t.goalX-t.X)
	base := goal
	if av.FollowZone && z != nil {
		base = z.ExitAngle
	}

	bestScore := math.Inf(-1)
	found := false
	for i := 0; i < zoneEscapeProbes; i++ {
		a := base + float64(i)*2*math.Pi/zoneEscapeProbes
		px := t.X + math.Cos(a)*zoneEscapeDist
		py := t.Y + math.Sin(a)*zoneEscapeDist
		if r.insideRedZone(px, py) {
			continue
		}
		if r.env.LineHitsAny(t.X, t.Y, px, py, world.FilterIgnoreBreakable) {
			continue
		}
		score := r.redZoneClearance(px, py) * 0.01
		score -= math.Abs(angleDiff(a, goal)) * 0.2
		if av.FollowZone {
			score -= math.Abs(angleDiff(a, base)) * 0.5
		}
		if score > bestScore {
			bestScore = score
			av.EscapeTX, av.EscapeTY = px, py
			found = true
		}
	}
	if !found {
		// Everything blocked: fall back to the raw exit/goal bearing.
		av.EscapeTX = t.X + math.Cos(base)*zoneEscapeDist
		av.EscapeTY = t.Y + math.Sin(base)*zoneEscapeDist
	}
}

func (r *Room) troopZoneEscape(t *Troop, dt float64) (float64, float64) {
	av := &t.avoid

	inRed := r.insideRedZone(t.X, t.Y)
	if inRed {
		av.ClearT = 0
	} else {
		av.ClearT += dt
	}

	// Exit latch: enough distance covered AND enough continuous clear time.
	if av.Moved >= av.MovedNeed && av.ClearT >= escapeClearLatch {
		av.Phase = ""
		return t.goalX - t.X, t.goalY - t.Y
	}

	av.RepickIn -= dt
	if av.RepickIn <= 0 {
		repick := zoneEscapeRepick
		if av.FollowZone {
			repick = zoneEscapeFollow
		}
		av.RepickIn = repick
		r.pickZoneEscapeTarget(t, r.zoneAt(ZoneStuck, t.X, t.Y))
	}

	return av.EscapeTX - t.X, av.EscapeTY - t.Y
}

// troopNeighbors collects nearby troops for separation.
func (r *Room) troopNeighbors(t *Troop, radius float64) []neighbor {
	var nbs []neighbor
	for _, id := range r.troopGrid.QueryCircle(t.X, t.Y, radius) {
		if id == t.ID {
			continue
		}
		o := r.troops[id]
		if o == nil {
			continue
		}
		if math.Hypot(o.X-t.X, o.Y-t.Y) > radius {
			continue
		}
		nbs = append(nbs, neighbor{o.X, o.Y, o.Radius})
	}
	return nbs
}

// damageTroop applies damage and handles death: barracks headcount drops, a
// fire death leaves a detour zone for the troops behind. Returns true when
// the troop died.
func (r *Room) damageTroop(t *Troop, dmg float64) bool {
	if t == nil || r.missionEnded {
		return false
	}
	t.Health -= dmg
	if t.Health > 0 {
		r.bus.Emit(TroopDamaged{ID: t.ID, Health: t.Health})
		return false
	}
	t.Health = 0
	r.bus.Emit(TroopDeath{ID: t.ID, X: t.X, Y: t.Y})
	if t.inFirePool {
		r.spawnFireDeathZone(t.X, t.Y, t.lastMoveX, t.lastMoveY)
	}
	if t.BarracksID >= 0 && t.BarracksID < len(r.barracksList) {
		r.barracksList[t.BarracksID].Alive--
	}
	r.troopGrid.Remove(t.ID)
	delete(r.troops, t.ID)
	return true
}
