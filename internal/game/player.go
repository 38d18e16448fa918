package game

import (
	"math"

	"go.uber.org/zap"

	"trenchline/internal/game/world"
)

// Player movement tuning.
const (
	playerRadius    = 24.0
	playerBaseSpeed = 260.0
	playerBaseHP    = 100.0

	sprintMultiplier = 1.45
	sprintDrainPS    = 22.0
	staminaRegenPS   = 14.0
	staminaRegenWait = 0.8
	staminaBase      = 100.0
	// Exhaustion latches at empty and releases once stamina refills to 30%.
	exhaustionExitFrac = 0.3

	dashSpeedMul = 3.2
	dashDuration = 0.18
	dashCooldown = 1.2
	dashCost     = 25.0

	mudSpeedMul = 0.5
)

// PlayerInput is one client input sample. The room applies the most recent
// sample each tick; stale sequence numbers are dropped.
type PlayerInput struct {
	Seq                uint64  `json:"seq"`
	W, A, S, D         bool    `json:"-"`
	Shift              bool    `json:"-"`
	AimAngle           float64 `json:"aimAngle"`
	MouseDown          bool    `json:"mouseDown"`
	WeaponIndex        int     `json:"weaponIndex"`
	SecondaryRequested bool    `json:"secondaryRequested"`
	TimestampMs        int64   `json:"timestampMs"`
}

// NewPlayer creates a player record at the lobby origin.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Radius:     playerRadius,
		Health:     playerBaseHP,
		HealthMax:  playerBaseHP,
		Stamina:    staminaBase,
		StaminaMax: staminaBase,
	}
}

// RecomputeStats rebuilds derived stats from base values plus equipped
// inventory. Flat bonuses apply before percent bonuses.
func (p *Player) RecomputeStats() {
	flat := 0.0
	pct := 0.0
	stamFlat := 0.0
	for _, it := range p.Inventory {
		if it.Stat == "health" {
			if it.IsPercent {
				pct += it.Value
			} else {
				flat += it.Value
			}
		}
		if it.Stat == "stamina" && !it.IsPercent {
			stamFlat += it.Value
		}
	}
	newMax := (playerBaseHP + flat) * (1 + pct/100)
	if newMax < 1 {
		newMax = 1
	}
	// Keep the same missing-health fraction across the max change.
	frac := 1.0
	if p.HealthMax > 0 {
		frac = p.Health / p.HealthMax
	}
	p.HealthMax = newMax
	p.Health = math.Min(newMax, newMax*frac)

	p.StaminaMax = staminaBase + stamFlat
	if p.Stamina > p.StaminaMax {
		p.Stamina = p.StaminaMax
	}

	// Loot level drives weapon progression: flat lootLuck, clamped to the
	// weapon table's tier range.
	luck := 0.0
	for _, it := range p.Inventory {
		if it.Stat == "lootLuck" && !it.IsPercent {
			luck += it.Value
		}
	}
	p.LootLevel = int(math.Min(luck, 6))
}

// statPercent sums equipped percent bonuses for one stat.
func (p *Player) statPercent(stat string) float64 {
	pct := 0.0
	for _, it := range p.Inventory {
		if it.Stat == stat && it.IsPercent {
			pct += it.Value
		}
	}
	return pct
}

// moveSpeedStat sums equipped flat move-speed bonuses.
func (p *Player) moveSpeedStat() float64 {
	bonus := 0.0
	for _, it := range p.Inventory {
		if it.Stat == "moveSpeed" {
			if it.IsPercent {
				bonus += playerBaseSpeed * it.Value / 100
			} else {
				bonus += it.Value
			}
		}
	}
	return playerBaseSpeed + bonus
}

// integratePlayer applies one input sample for one tick: sprint/stamina
// accounting, dash, movement through the environment resolver. Returns the
// applied displacement so callers can update velocity estimates.
func (r *Room) integratePlayer(p *Player, in PlayerInput, dt float64) {
	if p.Dead {
		return
	}
	if in.Seq > p.LastInputSeq {
		p.LastInputSeq = in.Seq
	}
	p.AimAngle = in.AimAngle
	if in.WeaponIndex >= 0 {
		p.WeaponIndex = in.WeaponIndex
	}

	dx, dy := 0.0, 0.0
	if in.W {
		dy -= 1
	}
	if in.S {
		dy += 1
	}
	if in.A {
		dx -= 1
	}
	if in.D {
		dx += 1
	}
	moving := dx != 0 || dy != 0
	if moving {
		l := math.Hypot(dx, dy)
		dx /= l
		dy /= l
	}

	// Sprint drains stamina; hitting empty latches exhaustion until the bar
	// refills past the exit threshold.
	wantSprint := in.Shift && moving && !p.Exhausted
	if wantSprint {
		p.Stamina -= sprintDrainPS * dt
		if p.Stamina <= 0 {
			p.Stamina = 0
			p.Exhausted = true
			wantSprint = false
		}
	} else {
		p.Stamina = math.Min(p.StaminaMax, p.Stamina+staminaRegenPS*dt)
		if p.Exhausted && p.Stamina >= p.StaminaMax*exhaustionExitFrac {
			p.Exhausted = false
		}
	}
	p.Sprinting = wantSprint

	// Dash: short burst along the current move direction.
	if in.SecondaryRequested && !p.Dash.Active && p.Dash.Cooldown <= 0 &&
		moving && p.Stamina >= dashCost {
		p.Dash.Active = true
		p.Dash.Duration = dashDuration
		p.Dash.Cooldown = dashCooldown
		p.Dash.DirX = dx
		p.Dash.DirY = dy
		p.Stamina -= dashCost
	}
	if p.Dash.Cooldown > 0 {
		p.Dash.Cooldown -= dt
	}

	speed := p.moveSpeedStat()
	if p.Sprinting {
		speed *= sprintMultiplier
	}
	if p.MudSlow > 0 {
		speed *= mudSpeedMul
		p.MudSlow -= dt
	}

	if p.Dash.Active {
		p.Dash.Duration -= dt
		if p.Dash.Duration <= 0 {
			p.Dash.Active = false
		} else {
			dx, dy = p.Dash.DirX, p.Dash.DirY
			speed = p.moveSpeedStat() * dashSpeedMul
			moving = true
		}
	}
	// A dashing player drops off enemy targeting for the burst.
	p.Invisible = p.Dash.Active

	if !moving {
		p.VX, p.VY = 0, 0
		return
	}

	stepX := dx * speed * dt
	stepY := dy * speed * dt
	res := r.env.ResolveCircleMove(p.X, p.Y, p.Radius, stepX, stepY, world.FilterAll)
	if dt > 0 {
		p.VX = (res.X - p.X) / dt
		p.VY = (res.Y - p.Y) / dt
	}
	p.X, p.Y = res.X, res.Y
	r.playerGrid.Move(p.ID, p.X, p.Y)

	// Carried artifact follows the carrier.
	if p.CarryingChest != "" {
		if c := r.chests[p.CarryingChest]; c != nil {
			c.ArtifactX, c.ArtifactY = p.X, p.Y
		}
	}
}

// tickPlayerDots applies DOT damage and emits burn edges. Returns true if the
// player died this tick.
func (r *Room) tickPlayerDots(p *Player, dt float64) bool {
	if len(p.Dots) == 0 {
		return false
	}
	dmg, _ := tickDots(&p.Dots, dt)
	if p.Burning && !hasDotSource(p.Dots, dotSourceFire) {
		p.Burning = false
		r.bus.Emit(BurnStateChanged{EntityID: p.ID, Burning: false})
	}
	if dmg > 0 {
		return r.damagePlayer(p, dmg)
	}
	return false
}

// damagePlayer applies damage and handles the death transition. Damage to a
// dead player is dropped; the mission-ended freeze also suppresses damage.
func (r *Room) damagePlayer(p *Player, dmg float64) bool {
	if p.Dead || r.missionEnded {
		return false
	}
	p.Health -= dmg
	if p.Health > 0 {
		return false
	}
	p.Health = 0
	p.Dead = true
	r.log.Info("player died",
		zap.String("room", r.ID),
		zap.String("player", p.ID))
	// A dying artifact carrier drops it where they fell.
	if p.CarryingChest != "" {
		r.dropArtifact(p)
	}
	return true
}
