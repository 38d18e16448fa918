package game

import (
	"math"

	"trenchline/internal/game/world"
)

// Enemy director: per-enemy steering toward ring slots, approach arcs and
// flank targets, with feeler pre-steer, separation and the reverse/sidestep/
// escape avoid machine. Runs only for enemies near a player; the far field
// stays dormant.

const (
	directorActiveRadius = 1400.0

	enemyTurnRate    = 4.0 // rad/s
	contactSlowRange = 30.0

	leadDistMin = 100.0
	leadDistMax = 800.0
	leadTimeMax = 0.6

	arriveWeight = 0.95
	orbitWeight  = 0.8

	stuckEnterTime  = 0.28
	escapeProbes    = 12
	escapeProbeDist = 140.0

	enemyContactCooldown = 0.8

	projectileFireRange    = 700.0
	projectileFireCooldown = 1.6
	projectileStandoff     = 420.0

	bigboyDashInterval = 6.0
	bigboyDashDuration = 0.6
	bigboyDashSpeedMul = 2.5

	wallguyShieldArc     = 60.0 * math.Pi / 180
	wallguyShieldFactor  = 0.2

	boomerExplodeRadius  = 100.0
	boomerExplodeInner   = 20.0
	boomerDamageAtInner  = 45.0
	boomerDamageAtEdge   = 20.0
)

// Director modes.
const (
	DirectorHunt    = "hunt"
	DirectorScatter = "scatter"
	DirectorPanic   = "panic"
	DirectorAmbush  = "ambush"
)

// directorProfile is the room-level mode: a speed multiplier plus clearance
// padding added to each enemy's radius during movement.
type directorProfile struct {
	SpeedMul     float64
	ClearancePad float64
}

var directorProfiles = map[string]directorProfile{
	DirectorHunt:    {1.0, 14},
	DirectorScatter: {0.85, 10},
	DirectorPanic:   {1.35, 8},
	DirectorAmbush:  {1.1, 16},
}

// SetDirectorMode switches the room-level AI mode. Unknown modes are dropped.
func (r *Room) SetDirectorMode(mode string) {
	if _, ok := directorProfiles[mode]; ok {
		r.directorMode = mode
	}
}

// spawnEnemy creates an enemy of the given type from the mode's stat table
// and registers it in the grid.
func (r *Room) spawnEnemy(typ string, x, y float64) *Enemy {
	stats := r.mode.Enemies.Stats[typ]
	if stats.Health == 0 {
		stats.Health = 50
	}
	if stats.Radius == 0 {
		stats.Radius = 20
	}
	if stats.Speed == 0 {
		stats.Speed = 150
	}
	if stats.SpeedMul == 0 {
		stats.SpeedMul = 1
	}
	e := &Enemy{
		ID:        r.enemyIDs.Next(),
		Type:      typ,
		Faction:   FactionEnemy,
		X:         x,
		Y:         y,
		Radius:    stats.Radius,
		SpeedMul:  stats.SpeedMul,
		Health:    stats.Health,
		HealthMax: stats.Health,
		Alive:     true,
	}
	e.ai.RingSlot = -1
	switch typ {
	case EnemyBasic, EnemyLicker, EnemyBoomer, EnemyBigboy:
		e.PreferContact = typ == EnemyLicker || typ == EnemyBoomer
	case EnemyProjectile:
		e.Standoff = projectileStandoff
		if r.jitter.Float() < 0.5 {
			e.Tactic = "kite"
		} else {
			e.Tactic = "strafe"
		}
	case EnemyWallguy:
		e.ShieldAngle = r.jitter.Range(-math.Pi, math.Pi)
	}
	r.enemies[e.ID] = e
	r.enemyGrid.Insert(e.ID, x, y)
	return e
}

// tickDirector advances every active enemy.
func (r *Room) tickDirector(dt float64) {
	prof := directorProfiles[r.directorMode]
	for _, e := range r.enemies {
		if !e.Alive {
			continue
		}
		if e.Faction == FactionFriendly {
			r.tickEmplacement(e, dt)
			continue
		}
		r.tickEnemy(e, prof, dt)
	}
}

func (r *Room) tickEnemy(e *Enemy, prof directorProfile, dt float64) {
	if e.MudSlow > 0 {
		e.MudSlow -= dt
	}

	// DOT damage first; an enemy can burn down before it ever reaches anyone.
	if len(e.Dots) > 0 {
		dmg, _ := tickDots(&e.Dots, dt)
		if e.Burning && !hasDotSource(e.Dots, dotSourceFire) {
			e.Burning = false
			r.bus.Emit(BurnStateChanged{EntityID: e.ID, Burning: false})
		}
		if dmg > 0 && r.damageEnemy(e, dmg, e.X, e.Y) {
			return
		}
	}

	p := r.nearestAlivePlayer(e.X, e.Y)
	if p == nil {
		return
	}
	dist := math.Hypot(p.X-e.X, p.Y-e.Y)
	if dist > directorActiveRadius {
		e.ai.RingSlot = -1
		return
	}

	if e.AttackTimer > 0 {
		e.AttackTimer -= dt
	}
	r.enemyAttack(e, p, dist)

	if e.Type == EnemyWallguy {
		e.ShieldAngle = math.Atan2(p.Y-e.Y, p.X-e.X)
	}

	// Flank style re-pick on its own cadence.
	e.ai.NextReeval -= dt
	if e.ai.NextReeval <= 0 || e.ai.Style == "" {
		repickFlankStyle(e, dist, r.jitter)
	}

	dx, dy := r.desiredDirection(e, p, dist)

	// Feeler pre-steer.
	heading := math.Atan2(dy, dx)
	aggressive := e.Type == EnemyBigboy || e.Type == EnemyLicker
	fx, fy := feelerSteer(r.env, e.X, e.Y, heading, world.FilterAll, aggressive, true)
	dx += fx
	dy += fy

	// Separation from other enemies.
	nbs := r.enemyNeighbors(e, 100)
	sx, sy, overlap := separation(e.X, e.Y, e.Radius, nbs)
	sepW := overlap / separationCap * 0.45
	if e.ai.StuckTimer > stuckEnterTime || len(nbs) > 4 {
		sepW = 0.7
	}
	dx += sx * sepW
	dy += sy * sepW

	// Avoid machine can override everything.
	dx, dy = r.enemyAvoid(e, dx, dy, dt)

	if l := math.Hypot(dx, dy); l > 0 {
		dx /= l
		dy /= l
	} else {
		return
	}

	// Heading smoothing keeps turns under the rate cap.
	want := math.Atan2(dy, dx)
	if e.ai.HasHeading {
		want = smoothHeading(e.ai.Heading, want, enemyTurnRate, dt)
	}
	e.ai.Heading = want
	e.ai.HasHeading = true
	dx, dy = math.Cos(want), math.Sin(want)

	speed := r.enemySpeed(e, prof)
	// preferContact units decelerate near the player to keep visible contact
	// instead of orbiting through them.
	if e.PreferContact && dist < contactSlowRange+e.Radius+playerRadius {
		speed *= math.Max(0.25, dist/(contactSlowRange+e.Radius+playerRadius))
	}

	step := speed * dt
	res := r.env.ResolveCircleMove(e.X, e.Y, e.Radius+prof.ClearancePad, dx*step, dy*step, world.FilterAll)
	moved := math.Hypot(res.X-e.X, res.Y-e.Y)
	e.X, e.Y = res.X, res.Y
	r.enemyGrid.Move(e.ID, e.X, e.Y)

	if res.HitWall || moved < step*0.25 {
		e.ai.StuckTimer += dt
	} else {
		e.ai.StuckTimer = 0
	}
}

func (r *Room) enemySpeed(e *Enemy, prof directorProfile) float64 {
	stats := r.mode.Enemies.Stats[e.Type]
	base := stats.Speed
	if base == 0 {
		base = 150
	}
	speed := base * e.SpeedMul * prof.SpeedMul
	if e.MudSlow > 0 {
		speed *= mudSpeedMul
	}
	if e.DashTimer > bigboyDashInterval-bigboyDashDuration {
		speed *= bigboyDashSpeedMul
	}
	return speed
}

// desiredDirection resolves the composite targeting rule: direct rush for
// contact types, then ring slot, then approach-arc bias, then flank target,
// with the arrive/orbit blend applied on top. Projectile tactics override
// the lot.
func (r *Room) desiredDirection(e *Enemy, p *Player, dist float64) (float64, float64) {
	if e.Type == EnemyBigboy {
		e.DashTimer += 1.0 / float64(r.tickRate)
		if e.DashTimer >= bigboyDashInterval {
			e.DashTimer = 0
		}
	}

	// Kiting shooters hold a standoff band and strafe tangentially.
	if e.Type == EnemyProjectile && e.Tactic != "" {
		toP := math.Atan2(p.Y-e.Y, p.X-e.X)
		tangent := toP + math.Pi/2
		radial := 0.0
		if dist > e.Standoff*1.15 {
			radial = 1
		} else if dist < e.Standoff*0.85 {
			radial = -1
		}
		tw := 1.0
		if e.Tactic == "kite" {
			tw = 0.6
		}
		dx := math.Cos(toP)*radial + math.Cos(tangent)*tw
		dy := math.Sin(toP)*radial + math.Sin(tangent)*tw
		return dx, dy
	}

	if e.PreferContact && e.ai.Style == "direct" {
		return p.X - e.X, p.Y - e.Y
	}

	// Target point: ring slot wins when assigned, else arc bias when far,
	// else the flank target.
	var tx, ty float64
	switch {
	case e.ai.RingSlot >= 0:
		tx = p.X + math.Cos(e.ai.RingAngle)*e.ai.RingRadius
		ty = p.Y + math.Sin(e.ai.RingAngle)*e.ai.RingRadius
	default:
		tx, ty = flankTarget(e, p)
		if b := arcBias(dist); b > 0 {
			bearing := math.Atan2(e.Y-p.Y, e.X-p.X)
			if arc, ok := nearestArc(r.rings[p.ID], bearing); ok {
				ax := p.X + math.Cos(arc)*dist*0.8
				ay := p.Y + math.Sin(arc)*dist*0.8
				tx = tx*(1-b) + ax*b
				ty = ty*(1-b) + ay*b
			}
		}
	}

	// Arrive toward the target point.
	adx, ady := tx-e.X, ty-e.Y
	if l := math.Hypot(adx, ady); l > 0 {
		adx /= l
		ady /= l
	}

	// Orbit tangentially around the predicted player position.
	lead := 0.0
	if dist > leadDistMin {
		lead = leadTimeMax * math.Min(1, (dist-leadDistMin)/(leadDistMax-leadDistMin))
	}
	px := p.X + p.VX*lead
	py := p.Y + p.VY*lead
	orbit := math.Atan2(e.Y-py, e.X-px) + math.Pi/2
	odx, ody := math.Cos(orbit), math.Sin(orbit)

	return adx*arriveWeight + odx*orbitWeight, ady*arriveWeight + ody*orbitWeight
}

// enemyAvoid runs the reverse → sidestep → escape machine. Returns the
// (possibly overridden) direction.
func (r *Room) enemyAvoid(e *Enemy, dx, dy, dt float64) (float64, float64) {
	av := &e.ai.Avoid
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
		if av.Timer <= 0 {
			av.Phase = ""
		}
		return math.Cos(av.EscapeAngle), math.Sin(av.EscapeAngle)
	}

	if e.ai.StuckTimer > stuckEnterTime {
		if e.ai.StuckTimer > 1.2 {
			// Long stuck: probe a fan and take the clearest angle.
			av.Phase = "escape"
			av.Timer = r.jitter.Range(0.6, 1.0)
			av.EscapeAngle = r.bestEscapeAngle(e.X, e.Y, e.Radius, math.Atan2(dy, dx))
		} else {
			av.Phase = "reverse"
			av.Timer = r.jitter.Range(0.15, 0.35)
			av.Side = r.probeSide(e.X, e.Y, e.Radius, dx, dy)
		}
		e.ai.StuckTimer = 0
	}
	return dx, dy
}

// probeSide checks both perpendiculars and returns the clearer side.
func (r *Room) probeSide(x, y, rad, dx, dy float64) float64 {
	leftX, leftY := x-dy*60, y+dx*60
	rightX, rightY := x+dy*60, y-dx*60
	leftHit := r.env.CircleHitsAny(leftX, leftY, rad, world.FilterAll)
	rightHit := r.env.CircleHitsAny(rightX, rightY, rad, world.FilterAll)
	if leftHit && !rightHit {
		return -1
	}
	if rightHit && !leftHit {
		return 1
	}
	if r.jitter.Float() < 0.5 {
		return -1
	}
	return 1
}

// bestEscapeAngle scores a probe fan, preferring no-contact directions that
// stay close to the original intent.
func (r *Room) bestEscapeAngle(x, y, rad, intent float64) float64 {
	best := intent + math.Pi
	bestScore := math.Inf(-1)
	for i := 0; i < escapeProbes; i++ {
		a := intent + float64(i)*2*math.Pi/escapeProbes
		ex := x + math.Cos(a)*escapeProbeDist
		ey := y + math.Sin(a)*escapeProbeDist
		score := 0.0
		if !r.env.LineHitsAny(x, y, ex, ey, world.FilterAll) &&
			!r.env.CircleHitsAny(ex, ey, rad, world.FilterAll) {
			score += 2
		}
		score -= math.Abs(angleDiff(a, intent)) * 0.2
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	return best
}

// enemyAttack runs the per-type attack when cooldowns allow.
func (r *Room) enemyAttack(e *Enemy, p *Player, dist float64) {
	if e.AttackTimer > 0 || r.missionEnded {
		return
	}
	stats := r.mode.Enemies.Stats[e.Type]
	dmg := stats.Damage
	if dmg == 0 {
		dmg = 8
	}

	switch e.Type {
	case EnemyProjectile:
		if dist > projectileFireRange {
			return
		}
		if r.env.LineHitsAny(e.X, e.Y, p.X, p.Y, world.FilterAll) {
			return
		}
		e.AttackTimer = projectileFireCooldown
		r.bus.Emit(VFXEvent{Kind: "enemyShot", X: e.X, Y: e.Y,
			Angle: math.Atan2(p.Y-e.Y, p.X-e.X)})
		r.damagePlayer(p, dmg)
		r.bus.Emit(DamageText{X: p.X, Y: p.Y, Amount: dmg})
	default:
		if dist > e.Radius+p.Radius+4 {
			return
		}
		e.AttackTimer = enemyContactCooldown
		r.damagePlayer(p, dmg)
		r.bus.Emit(DamageText{X: p.X, Y: p.Y, Amount: dmg})
		// Boomers detonate on contact as well as on death.
		if e.Type == EnemyBoomer {
			r.killEnemy(e, e.X, e.Y)
		}
	}
}

// damageEnemy applies damage with the wallguy frontal shield check. Returns
// true when the enemy died. Damage to dead enemies is dropped.
func (r *Room) damageEnemy(e *Enemy, dmg, fromX, fromY float64) bool {
	if e == nil || !e.Alive || r.missionEnded {
		return false
	}
	if e.Type == EnemyWallguy {
		incoming := math.Atan2(fromY-e.Y, fromX-e.X)
		if math.Abs(angleDiff(incoming, e.ShieldAngle)) < wallguyShieldArc {
			dmg *= wallguyShieldFactor
		}
	}
	e.Health -= dmg
	if e.Health > 0 {
		r.bus.Emit(EnemyHealthUpdate{ID: e.ID, Health: e.Health})
		return false
	}
	r.killEnemy(e, fromX, fromY)
	return true
}

// killEnemy is the one-way death transition: drops roll exactly once, the
// corpse leaves the grid, and type-specific death effects fire.
func (r *Room) killEnemy(e *Enemy, fromX, fromY float64) {
	if !e.Alive {
		return
	}
	e.Alive = false
	e.Health = 0
	e.ai.RingSlot = -1
	r.enemyGrid.Remove(e.ID)

	ducats, markers := 0, 0
	if !e.DropsRolled {
		e.DropsRolled = true
		ducats, markers = r.rollEnemyDrops(e)
	}
	r.bus.Emit(EnemyDead{ID: e.ID, Type: e.Type, X: e.X, Y: e.Y,
		Ducats: ducats, Markers: markers})

	if e.Type == EnemyBoomer {
		r.bus.Emit(BoomerExploded{ID: e.ID, X: e.X, Y: e.Y})
		r.spawnPukePool(e.X, e.Y)
		r.boomerBlast(e.X, e.Y)
	}
	delete(r.enemies, e.ID)
}

// boomerBlast damages players in the pool radius: full at the inner ring,
// linear down to the edge value.
func (r *Room) boomerBlast(x, y float64) {
	r.forPlayersIn(x, y, boomerExplodeRadius+playerRadius, func(p *Player) {
		d := math.Hypot(p.X-x, p.Y-y)
		dmg := boomerDamageAtInner
		if d > boomerExplodeInner {
			t := math.Min(1, (d-boomerExplodeInner)/(boomerExplodeRadius-boomerExplodeInner))
			dmg = boomerDamageAtInner - t*(boomerDamageAtInner-boomerDamageAtEdge)
		}
		r.damagePlayer(p, dmg)
		r.bus.Emit(DamageText{X: p.X, Y: p.Y, Amount: dmg})
	})
}

// enemyNeighbors collects nearby live enemies for separation.
func (r *Room) enemyNeighbors(e *Enemy, radius float64) []neighbor {
	var nbs []neighbor
	for _, id := range r.enemyGrid.QueryCircle(e.X, e.Y, radius) {
		if id == e.ID {
			continue
		}
		o := r.enemies[id]
		if o == nil || !o.Alive {
			continue
		}
		if math.Hypot(o.X-e.X, o.Y-e.Y) > radius {
			continue
		}
		nbs = append(nbs, neighbor{o.X, o.Y, o.Radius})
	}
	return nbs
}
