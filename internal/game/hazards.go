package game

import (
	"math"

	"go.uber.org/zap"

	"trenchline/internal/data"
	"trenchline/internal/game/world"
)

// Hazard field: placement, zone effects, breakable damage and explosions.
// Sandbags and barrels register oriented boxes into the Environment; a
// hazard's BoxIndex always equals its box position, and removals renormalize
// the surviving indices.

const (
	sandbagW = 90.0
	sandbagH = 30.0
	barrelW  = 44.0

	mudLinger  = 0.7
	wireDPS    = 6.0
	fireDPS    = 10.0
	fireStick  = 2.5 // seconds of burn after leaving the pool
	pukeDPS    = 6.0
	pukeStick  = 1.0
	pukeRadius = 100.0
	pukeTTL    = 12.0

	dotSourceFire = "hazard_fire"
	dotSourcePuke = "hazard_puke"

	// Explosions deal full damage inside this radius and fall off linearly to
	// 40% at the outer edge.
	explosionInnerRadius = 20.0
	explosionEdgeFrac    = 0.4

	hazardPlacementTries = 12
)

// placeHazards builds the hazard set for a level from its layout table,
// seeded so the same world seed reproduces the same battlefield.
func (r *Room) placeHazards(layout *data.HazardLayout) {
	if layout == nil {
		return
	}
	rng := r.rng.Fork("hazards")

	for _, kind := range []string{
		HazardSandbag, HazardBarbedWire, HazardMudPool,
		HazardFirePool, HazardGas, HazardBarrel,
	} {
		cfg, ok := layout.Kinds[kind]
		if !ok || !cfg.Enabled {
			continue
		}
		switch cfg.Strategy {
		case "grid":
			r.placeHazardGrid(kind, cfg, layout, rng)
		default:
			r.placeHazardScattered(kind, cfg, layout, rng)
		}
	}

	// Carve clear zones after placement so doorways stay passable.
	for _, cz := range layout.ClearZones {
		for id, h := range r.hazards {
			if h.X >= cz.MinX && h.X < cz.MaxX && h.Y >= cz.MinY && h.Y < cz.MaxY {
				r.destroyHazard(id, false)
			}
		}
	}
}

func (r *Room) placeHazardScattered(kind string, cfg data.HazardKindConfig, layout *data.HazardLayout, rng *SeqRand) {
	sc := cfg.Scattered
	if sc == nil {
		return
	}
	for g := 0; g < sc.Groups; g++ {
		cx, cy, ok := r.pickHazardSpot(sc.Band, layout.SafeZones, rng)
		if !ok {
			continue
		}
		// A group may legitimately end up empty when every orientation roll
		// fails; the layout tolerates it.
		for p := 0; p < sc.PerGroup; p++ {
			if rng.Float() >= sc.OrientChance {
				continue
			}
			px := cx + rng.Range(-sc.GroupSpread, sc.GroupSpread)
			py := cy + rng.Range(-sc.GroupSpread, sc.GroupSpread)
			if !r.env.Boundary.Contains(px, py) || insideAnyRect(px, py, layout.SafeZones) {
				continue
			}
			r.spawnHazard(kind, cfg, px, py, rng.Range(0, math.Pi))
		}
	}
}

func (r *Room) placeHazardGrid(kind string, cfg data.HazardKindConfig, layout *data.HazardLayout, rng *SeqRand) {
	gp := cfg.Grid
	if gp == nil || gp.StepX <= 0 || gp.StepY <= 0 {
		return
	}
	for x := gp.Band.MinX; x < gp.Band.MaxX; x += gp.StepX {
		for y := gp.Band.MinY; y < gp.Band.MaxY; y += gp.StepY {
			px := x + rng.Range(-gp.JitterXY, gp.JitterXY)
			py := y + rng.Range(-gp.JitterXY, gp.JitterXY)
			if insideAnyRect(px, py, layout.SafeZones) {
				continue
			}
			r.spawnHazard(kind, cfg, px, py, 0)
		}
	}
}

func (r *Room) pickHazardSpot(band data.Rect, safe []data.Rect, rng *SeqRand) (float64, float64, bool) {
	for try := 0; try < hazardPlacementTries; try++ {
		x := rng.Range(band.MinX, band.MaxX)
		y := rng.Range(band.MinY, band.MaxY)
		if insideAnyRect(x, y, safe) {
			continue
		}
		return x, y, true
	}
	return 0, 0, false
}

func insideAnyRect(x, y float64, rects []data.Rect) bool {
	for _, rc := range rects {
		if x >= rc.MinX && x < rc.MaxX && y >= rc.MinY && y < rc.MaxY {
			return true
		}
	}
	return false
}

// spawnHazard creates the record and, for breakables, registers its collision
// box.
func (r *Room) spawnHazard(kind string, cfg data.HazardKindConfig, x, y, angle float64) *Hazard {
	h := &Hazard{
		ID:       r.hazardIDs.Next(),
		Kind:     kind,
		X:        x,
		Y:        y,
		Radius:   cfg.Radius,
		Health:   cfg.Health,
		BoxIndex: -1,

		ExplosionRadius: cfg.ExplosionRadius,
		ExplosionDamage: cfg.ExplosionDamage,
	}
	switch kind {
	case HazardSandbag:
		h.W, h.H, h.Angle = sandbagW, sandbagH, angle
	case HazardBarrel:
		h.W, h.H, h.Angle = barrelW, barrelW, angle
	}
	if h.Breakable() {
		h.BoxIndex = r.env.AddOrientedBox(world.OrientedBox{
			X: x, Y: y, W: h.W, H: h.H, Angle: h.Angle,
			Breakable: true, HazardID: h.ID,
		})
	}
	r.hazards[h.ID] = h
	return h
}

// spawnPukePool drops a boomer puke pool that expires on its own.
func (r *Room) spawnPukePool(x, y float64) *Hazard {
	h := &Hazard{
		ID:       r.hazardIDs.Next(),
		Kind:     HazardPukePool,
		X:        x,
		Y:        y,
		Radius:   pukeRadius,
		TTL:      pukeTTL,
		BoxIndex: -1,
	}
	r.hazards[h.ID] = h
	r.hazardsDirty = true
	return h
}

// tickHazards applies zone effects to entities inside each hazard's radius
// and expires timed pools.
func (r *Room) tickHazards(dt float64) {
	// Fire-pool membership is recomputed every pass; a troop dying to its
	// burn next tick still reads the last known membership.
	for _, t := range r.troops {
		t.inFirePool = false
	}
	for id, h := range r.hazards {
		switch h.Kind {
		case HazardMudPool:
			r.forPlayersIn(h.X, h.Y, h.Radius, func(p *Player) {
				p.MudSlow = mudLinger
			})
			r.forTroopsIn(h.X, h.Y, h.Radius, func(t *Troop) {
				t.MudSlow = mudLinger
			})
			r.forEnemiesIn(h.X, h.Y, h.Radius, func(e *Enemy) {
				e.MudSlow = mudLinger
			})

		case HazardBarbedWire:
			r.forPlayersIn(h.X, h.Y, h.Radius, func(p *Player) {
				r.damagePlayer(p, wireDPS*dt)
			})
			r.forTroopsIn(h.X, h.Y, h.Radius, func(t *Troop) {
				r.damageTroop(t, wireDPS*dt)
			})

		case HazardFirePool:
			r.forPlayersIn(h.X, h.Y, h.Radius, func(p *Player) {
				r.applyEntityDot(&p.Dots, &p.Burning, p.ID, dotSourceFire, fireDPS, fireStick)
			})
			r.forTroopsIn(h.X, h.Y, h.Radius, func(t *Troop) {
				r.applyEntityDot(&t.Dots, &t.Burning, t.ID, dotSourceFire, fireDPS, fireStick)
				t.inFirePool = true
			})
			r.forEnemiesIn(h.X, h.Y, h.Radius, func(e *Enemy) {
				r.applyEntityDot(&e.Dots, &e.Burning, e.ID, dotSourceFire, fireDPS, fireStick)
			})

		case HazardGas:
			r.forPlayersIn(h.X, h.Y, h.Radius, func(p *Player) {
				p.Gassed = true
				p.gasLinger = mudLinger
			})

		case HazardPukePool:
			h.TTL -= dt
			if h.TTL <= 0 {
				delete(r.hazards, id)
				r.bus.Emit(HazardRemoved{ID: id, Kind: h.Kind})
				r.hazardsDirty = true
				continue
			}
			r.forPlayersIn(h.X, h.Y, h.Radius, func(p *Player) {
				r.applyEntityDot(&p.Dots, &p.Burning, p.ID, dotSourcePuke, pukeDPS, pukeStick)
			})
			r.forTroopsIn(h.X, h.Y, h.Radius, func(t *Troop) {
				r.applyEntityDot(&t.Dots, &t.Burning, t.ID, dotSourcePuke, pukeDPS, pukeStick)
			})
		}
	}
}

// applyEntityDot wraps applyDot with the burn-state edge. Only the fire
// source toggles the visible burning flag.
func (r *Room) applyEntityDot(stacks *[]DotStack, burning *bool, entityID, source string, dps, duration float64) bool {
	first := applyDot(stacks, source, dps, duration)
	if source == dotSourceFire && first && !*burning {
		*burning = true
		r.bus.Emit(BurnStateChanged{EntityID: entityID, Burning: true})
	}
	return first
}

// damageHazard chips a breakable hazard. Damage to zone hazards or already
// dead records is dropped; server state is authoritative.
func (r *Room) damageHazard(id string, dmg float64) {
	h := r.hazards[id]
	if h == nil || !h.Breakable() {
		return
	}
	h.Health -= dmg
	if h.Health > 0 {
		r.bus.Emit(HazardHit{ID: id, Kind: h.Kind, Health: h.Health})
		r.hazardsDirty = true
		return
	}
	exploded := h.Kind == HazardBarrel
	r.destroyHazard(id, exploded)
	if exploded {
		r.explode(h.X, h.Y, h.ExplosionRadius, h.ExplosionDamage)
		r.bus.Emit(VFXEvent{Kind: "barrelExplosion", X: h.X, Y: h.Y, Scale: h.ExplosionRadius})
	}
}

// destroyHazard removes the record and, for breakables, its collision box,
// renormalizing every surviving hazard's BoxIndex.
func (r *Room) destroyHazard(id string, exploded bool) {
	h := r.hazards[id]
	if h == nil {
		return
	}
	if h.BoxIndex >= 0 {
		if h.BoxIndex < r.env.OrientedBoxCount() &&
			r.env.OrientedBoxAt(h.BoxIndex).HazardID == h.ID {
			r.env.RemoveOrientedBoxAt(h.BoxIndex)
			for _, other := range r.hazards {
				if other.BoxIndex > h.BoxIndex {
					other.BoxIndex--
				}
			}
		} else {
			// Index drifted from the box list; skip the removal rather than
			// delete someone else's wall.
			r.log.Error("hazard box index out of sync",
				zap.String("room", r.ID),
				zap.String("hazard", h.ID),
				zap.Int("boxIndex", h.BoxIndex))
		}
	}
	delete(r.hazards, id)
	r.bus.Emit(HazardRemoved{ID: id, Kind: h.Kind, Exploded: exploded})
	r.hazardsDirty = true
}

// explode applies radial damage: full inside explosionInnerRadius, linear to
// explosionEdgeFrac at the rim. Target radius extends the reach.
func (r *Room) explode(x, y, radius, damage float64) {
	falloff := func(d float64) float64 {
		if d <= explosionInnerRadius {
			return damage
		}
		t := (d - explosionInnerRadius) / (radius - explosionInnerRadius)
		if t > 1 {
			t = 1
		}
		return damage * (1 - t*(1-explosionEdgeFrac))
	}
	r.forPlayersIn(x, y, radius+playerRadius, func(p *Player) {
		r.damagePlayer(p, falloff(math.Hypot(p.X-x, p.Y-y)))
	})
	r.forTroopsIn(x, y, radius+playerRadius, func(t *Troop) {
		r.damageTroop(t, falloff(math.Hypot(t.X-x, t.Y-y)))
	})
}
