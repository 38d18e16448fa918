package game

import (
	"math"

	"go.uber.org/zap"

	"trenchline/internal/data"
	"trenchline/internal/game/world"
)

// Zone spawner and horde director: tracks which players are in which
// battlefield zone, fires per-zone hordes on forward or return cadence, and
// drives the extraction wave schedule.

const (
	zoneReentryCooldown = 8.0

	hordeSpawnTries     = 20
	hordeSpawnBaseR     = 150.0
	hordeSpawnStepR     = 30.0
	hordePlayerClear    = 700.0
	defaultCheckSec     = 1.0
	defaultPreSpawnDist = 900.0
)

// zoneState is the runtime record for one configured zone.
type zoneState struct {
	cfg        data.ZoneConfig
	inside     map[string]bool    // player ids currently inside
	exitAt     map[string]float64 // room time of each player's last exit
	spawnTimer float64
	armed      bool // a horde timer is running
}

// initZones builds zone state from the mode config at level start.
func (r *Room) initZones() {
	r.zones = r.zones[:0]
	for _, zc := range r.mode.ZoneSpawning.Zones {
		r.zones = append(r.zones, &zoneState{
			cfg:    zc,
			inside: make(map[string]bool),
			exitAt: make(map[string]float64),
		})
	}
	r.zoneCheckTimer = 0
	r.refillUnlocked = false
}

// artifactCarried reports whether any gold chest's artifact is currently on
// a player. This is the forward/return switch for horde difficulty.
func (r *Room) artifactCarried() bool {
	for _, c := range r.chests {
		if c.Variant == ChestGold && c.ArtifactCarriedBy != "" {
			return true
		}
	}
	return false
}

// tickZones runs the ~1 Hz membership check and per-zone horde timers.
func (r *Room) tickZones(dt float64) {
	check := r.mode.ZoneSpawning.CheckInterval
	if check <= 0 {
		check = defaultCheckSec
	}
	r.zoneCheckTimer -= dt
	if r.zoneCheckTimer <= 0 {
		r.zoneCheckTimer = check
		r.checkZoneMembership()
	}

	returning := r.artifactCarried()
	for _, z := range r.zones {
		if len(z.inside) == 0 {
			continue
		}
		if !z.armed {
			z.armed = true
			z.spawnTimer = r.hordeInterval(z, returning)
			continue
		}
		z.spawnTimer -= dt
		if z.spawnTimer <= 0 {
			z.spawnTimer = r.hordeInterval(z, returning)
			diff := z.cfg.Horde.ForwardDiff
			if returning {
				diff = z.cfg.Horde.ReturnDiff
			}
			r.spawnZoneHorde(z, diff, returning)
		}
	}
}

func (r *Room) hordeInterval(z *zoneState, returning bool) float64 {
	iv := z.cfg.Horde.ForwardInterval
	if returning {
		iv = z.cfg.Horde.ReturnInterval
	}
	if iv[1] <= iv[0] {
		return math.Max(iv[0], 1)
	}
	return r.jitter.Range(iv[0], iv[1])
}

// checkZoneMembership recomputes who is in which zone, firing entry handlers
// on rising edges outside the re-entry cooldown window.
func (r *Room) checkZoneMembership() {
	for _, z := range r.zones {
		rect := z.cfg.Rect
		for _, p := range r.players {
			in := !p.Dead &&
				p.X >= rect.MinX && p.X < rect.MaxX &&
				p.Y >= rect.MinY && p.Y < rect.MaxY
			was := z.inside[p.ID]
			switch {
			case in && !was:
				z.inside[p.ID] = true
				// Boundary oscillation is suppressed: a re-entry inside the
				// cooldown window does not count as a fresh entry.
				if r.now-z.exitAt[p.ID] >= zoneReentryCooldown {
					r.onZoneEntry(z, p)
				}
			case !in && was:
				delete(z.inside, p.ID)
				z.exitAt[p.ID] = r.now
			}
		}
		// Drop departed players.
		for id := range z.inside {
			if _, ok := r.players[id]; !ok {
				delete(z.inside, id)
			}
		}
		if len(z.inside) == 0 {
			z.armed = false
		}
	}
}

// onZoneEntry handles a fresh (non-oscillation) zone entry.
func (r *Room) onZoneEntry(z *zoneState, p *Player) {
	r.log.Debug("zone entry",
		zap.String("room", r.ID),
		zap.String("zone", z.cfg.Name),
		zap.String("player", p.ID))

	// Artifact carrier reaching the refill zone unlocks the troop refill
	// wave exactly once per level, oscillation or not.
	if !r.refillUnlocked &&
		z.cfg.Name == r.mode.Troops.RefillZone &&
		p.CarryingChest != "" {
		r.refillUnlocked = true
		r.unlockTroopRefill()
	}
}

// spawnZoneHorde places one horde for the zone at the given difficulty.
func (r *Room) spawnZoneHorde(z *zoneState, diff int, returning bool) {
	preset, ok := r.mode.ZoneSpawning.Presets[diff]
	if !ok || preset.Size <= 0 {
		return
	}

	// Target: a player inside the zone, else anyone alive.
	var target *Player
	for id := range z.inside {
		if p := r.players[id]; p != nil && !p.Dead {
			target = p
			break
		}
	}
	if target == nil {
		target = r.anyAlivePlayer()
	}
	if target == nil {
		return
	}

	spawned := r.spawnHorde(target, preset, returning)
	if spawned > 0 {
		r.bus.Emit(HordeSpawned{Zone: z.cfg.Name, Diff: diff, Count: spawned, Return: returning})
		r.log.Info("horde spawned",
			zap.String("room", r.ID),
			zap.String("zone", z.cfg.Name),
			zap.Int("diff", diff),
			zap.Int("count", spawned),
			zap.Bool("return", returning))
	}
}

// spawnHorde materializes preset.Size enemies off-screen from the target
// player. Forward hordes come from +x, return hordes from -x, and the anchor
// never crosses into the safe band below SafeMinX.
func (r *Room) spawnHorde(target *Player, preset data.DifficultyPreset, returning bool) int {
	dist := r.mode.ZoneSpawning.PreSpawnDistance
	if dist <= 0 {
		dist = defaultPreSpawnDist
	}
	dir := 1.0
	if returning {
		dir = -1
	}
	anchorX := target.X + dir*dist
	anchorY := target.Y
	if safe := r.mode.ZoneSpawning.SafeMinX; safe != 0 && anchorX < safe {
		anchorX = safe
	}
	if anchorX < r.env.Boundary.MinX+100 {
		anchorX = r.env.Boundary.MinX + 100
	}
	if anchorX > r.env.Boundary.MaxX-100 {
		anchorX = r.env.Boundary.MaxX - 100
	}

	rng := r.rng.Fork("horde")
	spawned := 0
	for i := 0; i < preset.Size; i++ {
		typ := weightedType(preset.TypeRatios, rng)
		if x, y, ok := r.findHordeSpot(anchorX, anchorY, rng); ok {
			r.spawnEnemy(typ, x, y)
			spawned++
		}
	}
	return spawned
}

// findHordeSpot tries up to hordeSpawnTries placements in a widening radius,
// rejecting out-of-bounds, colliding or player-adjacent spots. Rejection
// after the try budget skips the spawn; it is not fatal.
func (r *Room) findHordeSpot(ax, ay float64, rng *SeqRand) (float64, float64, bool) {
	for try := 0; try < hordeSpawnTries; try++ {
		radius := hordeSpawnBaseR + float64(try)*hordeSpawnStepR
		a := rng.Range(0, 2*math.Pi)
		x := ax + math.Cos(a)*radius
		y := ay + math.Sin(a)*radius
		if safe := r.mode.ZoneSpawning.SafeMinX; safe != 0 && x < safe {
			continue
		}
		if !r.env.IsInsideBounds(x, y, 24) {
			continue
		}
		if r.env.CircleHitsAny(x, y, 24, world.FilterAll) {
			continue
		}
		near := false
		for _, p := range r.players {
			if !p.Dead && math.Hypot(p.X-x, p.Y-y) < hordePlayerClear {
				near = true
				break
			}
		}
		if near {
			continue
		}
		return x, y, true
	}
	return 0, 0, false
}

// weightedType samples an enemy type from the preset's ratio table.
func weightedType(ratios map[string]float64, rng *SeqRand) string {
	total := 0.0
	for _, w := range ratios {
		total += w
	}
	if total <= 0 {
		return EnemyBasic
	}
	// Stable order so identical seeds give identical draws.
	order := []string{EnemyBasic, EnemyProjectile, EnemyLicker, EnemyBoomer, EnemyBigboy, EnemyWallguy}
	roll := rng.Float() * total
	for _, typ := range order {
		w := ratios[typ]
		if w <= 0 {
			continue
		}
		if roll < w {
			return typ
		}
		roll -= w
	}
	return EnemyBasic
}

// ── Extraction wave schedule ──

// Wave phase names.
const (
	phaseSearch = "search"
	phaseGuard  = "guard"
	phaseWaves  = "waves"
)

// pendingBurst is one scheduled extraction-start horde.
type pendingBurst struct {
	delay float64
	diff  int
	count int
}

// startExtractionBursts schedules the fixed hordes fired when the extraction
// timer starts. Heretic extraction skips them when the config is flagged
// normal-only.
func (r *Room) startExtractionBursts(kind string) {
	ph := r.mode.Phases
	if ph.NormalOnly && kind == "heretic" {
		return
	}
	for _, b := range ph.Bursts {
		r.bursts = append(r.bursts, pendingBurst{
			delay: b.DelayMs / 1000,
			diff:  b.Diff,
			count: b.Count,
		})
	}
}

// tickWavePhases advances the search → guard → waves machine and fires
// scheduled bursts and eligible wave hordes.
func (r *Room) tickWavePhases(dt float64) {
	// Scheduled bursts.
	n := 0
	for i := range r.bursts {
		b := &r.bursts[i]
		b.delay -= dt
		if b.delay > 0 {
			r.bursts[n] = *b
			n++
			continue
		}
		preset, ok := r.mode.ZoneSpawning.Presets[b.diff]
		if ok {
			for c := 0; c < b.count; c++ {
				if target := r.anyAlivePlayer(); target != nil {
					if spawned := r.spawnHorde(target, preset, false); spawned > 0 {
						r.bus.Emit(HordeSpawned{Diff: b.diff, Count: spawned})
					}
				}
			}
		}
	}
	r.bursts = r.bursts[:n]

	ph := r.mode.Phases
	if len(ph.Waves) == 0 {
		return
	}

	r.phaseTime += dt
	switch r.wavePhase {
	case phaseSearch:
		if ph.GuardAfter > 0 && r.phaseTime >= ph.GuardAfter {
			r.wavePhase = phaseGuard
			r.phaseTime = 0
		}
	case phaseGuard:
		if r.extraction.Running {
			r.wavePhase = phaseWaves
			r.waveIndex = 0
			r.phaseTime = 0
			r.waveTimer = 0
		}
	case phaseWaves:
		if r.waveIndex >= len(ph.Waves) {
			return
		}
		w := ph.Waves[r.waveIndex]
		r.waveTimer -= dt
		if r.waveTimer > 0 {
			return
		}
		r.waveTimer = r.jitter.Range(w.IntervalMin, w.IntervalMax)
		// Only top up while the live count is under the wave's target.
		if r.aliveEnemyCount() >= w.TargetCount {
			return
		}
		preset, ok := r.mode.ZoneSpawning.Presets[w.Diff]
		if !ok {
			return
		}
		if target := r.anyAlivePlayer(); target != nil {
			if spawned := r.spawnHorde(target, preset, false); spawned > 0 {
				r.bus.Emit(HordeSpawned{Diff: w.Diff, Count: spawned})
			}
		}
		// Waves advance on a simple cadence once their target is sustained.
		if r.phaseTime > (r.waveTimer+1)*4 {
			r.waveIndex++
			r.phaseTime = 0
		}
	}
}

func (r *Room) aliveEnemyCount() int {
	n := 0
	for _, e := range r.enemies {
		if e.Alive && e.Faction == FactionEnemy {
			n++
		}
	}
	return n
}
