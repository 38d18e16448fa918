package game

import (
	"math"
	"sort"
)

// Ring reservation and approach arcs. Both exist to stop enemies piling into
// a single head-on column: the ring hands out angular slots around a player,
// the arcs bias distant enemies toward flank and rear approaches.

const (
	ringEpoch      = 0.25  // seconds between global reassignments
	ringWindow     = 600.0 // enemies beyond this lose their slot
	ringRadius     = 200.0
	ringSlotArc    = 60.0 // world units of circumference per slot
	ringSlotsMin   = 4
	ringSlotsMax   = 24

	arcReevalMin   = 8.0
	arcReevalMax   = 10.0
	arcHalfWidth   = 0.45
	arcBiasStart   = 380.0
	arcBiasFull    = 1200.0

	flankReevalMin = 4.0
	flankReevalMax = 9.0
)

// ringSlot is one reserved angular position around a player.
type ringSlot struct {
	angle float64
	owner string // enemy id, "" when free
}

// playerRing tracks reservations and approach arcs for one player.
type playerRing struct {
	slots     []ringSlot
	arcs      []float64 // arc center angles, world frame
	arcReeval float64
}

// tickRings runs the reservation epoch and arc re-picks. Called every tick;
// reassignment itself happens at most every ringEpoch seconds.
func (r *Room) tickRings(dt float64) {
	r.ringTimer -= dt
	reassign := r.ringTimer <= 0
	if reassign {
		r.ringTimer = ringEpoch
	}

	for _, p := range r.players {
		if p.Dead {
			continue
		}
		ring := r.rings[p.ID]
		if ring == nil {
			ring = &playerRing{}
			r.rings[p.ID] = ring
		}
		ring.arcReeval -= dt
		if ring.arcReeval <= 0 || len(ring.arcs) == 0 {
			ring.arcReeval = r.jitter.Range(arcReevalMin, arcReevalMax)
			ring.arcs = pickApproachArcs(p.AimAngle, r.jitter)
		}
		if reassign {
			r.reassignRing(p, ring)
		}
	}

	// Drop rings of departed players.
	for id := range r.rings {
		if _, ok := r.players[id]; !ok {
			delete(r.rings, id)
		}
	}
}

// reassignRing rebuilds the slot set around a player and lets nearby enemies
// claim slots nearest to their current bearing. Assignments persist between
// epochs; an enemy keeps its slot until reassignment or until it leaves the
// window.
func (r *Room) reassignRing(p *Player, ring *playerRing) {
	circumference := 2 * math.Pi * ringRadius
	slotCount := int(circumference / ringSlotArc)
	if slotCount < ringSlotsMin {
		slotCount = ringSlotsMin
	}
	if slotCount > ringSlotsMax {
		slotCount = ringSlotsMax
	}

	// Anchor slot 0 opposite the player's forward direction so the rear and
	// flanks fill first.
	anchor := p.AimAngle + math.Pi
	if len(ring.slots) != slotCount {
		ring.slots = make([]ringSlot, slotCount)
	}
	for i := range ring.slots {
		ring.slots[i].angle = normalizeAngle(anchor + float64(i)*2*math.Pi/float64(slotCount))
		ring.slots[i].owner = ""
	}

	type candidate struct {
		e    *Enemy
		dist float64
	}
	var cands []candidate
	for _, id := range r.enemyGrid.QueryCircle(p.X, p.Y, ringWindow) {
		e := r.enemies[id]
		if e == nil || !e.Alive || e.Faction != FactionEnemy {
			continue
		}
		d := math.Hypot(e.X-p.X, e.Y-p.Y)
		if d > ringWindow {
			e.ai.RingSlot = -1
			continue
		}
		cands = append(cands, candidate{e, d})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	for _, c := range cands {
		bearing := math.Atan2(c.e.Y-p.Y, c.e.X-p.X)
		best := -1
		bestDiff := math.MaxFloat64
		for i := range ring.slots {
			if ring.slots[i].owner != "" {
				continue
			}
			diff := math.Abs(angleDiff(ring.slots[i].angle, bearing))
			if diff < bestDiff {
				bestDiff = diff
				best = i
			}
		}
		if best < 0 {
			c.e.ai.RingSlot = -1
			continue
		}
		ring.slots[best].owner = c.e.ID
		c.e.ai.RingSlot = best
		c.e.ai.RingAngle = ring.slots[best].angle
		c.e.ai.RingRadius = ringRadius
	}
}

// pickApproachArcs chooses 2-3 arc centers relative to the player's forward,
// preferring laterals and the rear.
func pickApproachArcs(forward float64, rng *SeqRand) []float64 {
	// Candidate bearings relative to forward, laterals and rear first.
	offsets := []float64{
		math.Pi / 2, -math.Pi / 2, math.Pi,
		3 * math.Pi / 4, -3 * math.Pi / 4,
	}
	n := 2 + rng.Intn(2)
	arcs := make([]float64, 0, n)
	for _, off := range offsets {
		if len(arcs) >= n {
			break
		}
		jit := rng.Range(-0.2, 0.2)
		arcs = append(arcs, normalizeAngle(forward+off+jit))
	}
	return arcs
}

// nearestArc returns the arc center closest in bearing to the enemy's current
// position, or false when the player has no arcs.
func nearestArc(ring *playerRing, bearing float64) (float64, bool) {
	if ring == nil || len(ring.arcs) == 0 {
		return 0, false
	}
	best := ring.arcs[0]
	bestDiff := math.Abs(angleDiff(best, bearing))
	for _, a := range ring.arcs[1:] {
		if d := math.Abs(angleDiff(a, bearing)); d < bestDiff {
			bestDiff = d
			best = a
		}
	}
	return best, true
}

// arcBias returns how strongly the arc target should pull, ramping from zero
// at arcBiasStart to full at arcBiasFull.
func arcBias(dist float64) float64 {
	if dist <= arcBiasStart {
		return 0
	}
	t := (dist - arcBiasStart) / (arcBiasFull - arcBiasStart)
	if t > 1 {
		t = 1
	}
	return t
}

// repickFlankStyle chooses an approach style with distance-dependent weights:
// far enemies may rush direct, near ones are forced to the sides and rear so
// they stop piling head-on.
func repickFlankStyle(e *Enemy, dist float64, rng *SeqRand) {
	var direct float64
	if dist > 700 {
		direct = 0.35
	} else if dist > 300 {
		direct = 0.15
	}
	roll := rng.Float()
	switch {
	case roll < direct:
		e.ai.Style = "direct"
	case roll < direct+(1-direct)*0.4:
		e.ai.Style = "flank_left"
	case roll < direct+(1-direct)*0.8:
		e.ai.Style = "flank_right"
	default:
		e.ai.Style = "rear"
	}
	e.ai.FlankRadius = rng.Range(160, 320)
	e.ai.NextReeval = rng.Range(flankReevalMin, flankReevalMax)
}

// flankTarget converts the enemy's style into a world-space point near the
// player.
func flankTarget(e *Enemy, p *Player) (float64, float64) {
	var off float64
	switch e.ai.Style {
	case "flank_left":
		off = math.Pi / 2
	case "flank_right":
		off = -math.Pi / 2
	case "rear":
		off = math.Pi
	default: // direct
		return p.X, p.Y
	}
	a := p.AimAngle + off
	return p.X + math.Cos(a)*e.ai.FlankRadius, p.Y + math.Sin(a)*e.ai.FlankRadius
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// angleDiff returns the signed shortest rotation from b to a.
func angleDiff(a, b float64) float64 {
	return normalizeAngle(a - b)
}
