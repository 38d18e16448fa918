package game

import (
	"math"

	"trenchline/internal/game/world"
)

// Stuck-avoid zones: short-lived circles marking spots where troops jammed
// against geometry. Yellow zones appear on wall-contact rising edges, promote
// to red after sustained occupancy, and red zones publish a suggested exit
// direction so followers stop funneling into the same wedge.

const (
	stuckZoneCap = 48

	yellowTTL    = 2.5
	yellowRadius = 70.0
	yellowMerge  = 50.0

	redPromoteAfter = 2.0
	redTTL          = 5.0

	exitProbeCount = 16
	exitProbeDist  = 220.0
	exitResample   = 1.2
	exitConeDeg    = 15.0

	fireDeathTTL    = 6.0
	fireDeathRadius = 90.0
)

// addStuckZone creates a zone, merging into an existing one of the same kind
// within the merge distance instead of stacking duplicates. The cap drops new
// zones rather than evicting old ones.
func (r *Room) addStuckZone(kind string, x, y, radius, ttl float64) *StuckZone {
	for _, z := range r.stuckZones {
		if z.Kind == kind && math.Hypot(z.X-x, z.Y-y) < yellowMerge {
			if ttl > z.TTL {
				z.TTL = ttl
			}
			return z
		}
	}
	if len(r.stuckZones) >= stuckZoneCap {
		return nil
	}
	r.stuckZoneSeq++
	z := &StuckZone{
		ID:   r.stuckZoneSeq,
		Kind: kind,
		X:    x,
		Y:    y,
		R:    radius,
		TTL:  ttl,
	}
	r.stuckZones[z.ID] = z
	return z
}

// tickStuckZones expires zones and periodically resamples red-zone exit
// directions inside a cone of the base angle, so a bad deterministic pick
// does not trap troops forever.
func (r *Room) tickStuckZones(dt float64) {
	for id, z := range r.stuckZones {
		z.TTL -= dt
		if z.TTL <= 0 {
			delete(r.stuckZones, id)
			continue
		}
		if z.Kind == ZoneStuck && z.HasExit {
			z.resampleIn -= dt
			if z.resampleIn <= 0 {
				z.resampleIn = exitResample
				cone := exitConeDeg * math.Pi / 180
				z.ExitAngle = normalizeAngle(z.exitBase + r.jitter.Range(-cone, cone))
			}
		}
	}
}

// promoteStuckZone turns a yellow zone red and computes its exit suggestion.
func (r *Room) promoteStuckZone(z *StuckZone, goalX, goalY float64) {
	z.Kind = ZoneStuck
	z.TTL = redTTL
	z.exitBase = r.bestExitDirection(z.X, z.Y, goalX, goalY)
	z.ExitAngle = z.exitBase
	z.HasExit = true
	z.resampleIn = exitResample
}

// bestExitDirection samples probe rays and scores clearance plus alignment
// with the goal direction.
func (r *Room) bestExitDirection(x, y, goalX, goalY float64) float64 {
	goal := math.Atan2(goalY-y, goalX-x)
	best := goal
	bestScore := math.Inf(-1)
	for i := 0; i < exitProbeCount; i++ {
		a := float64(i) * 2 * math.Pi / exitProbeCount
		ex := x + math.Cos(a)*exitProbeDist
		ey := y + math.Sin(a)*exitProbeDist
		score := 0.0
		// Sandbags count as walls here: the exit must route around them too.
		if !r.env.LineHitsAny(x, y, ex, ey, world.FilterAll) {
			score += 2
		}
		score -= math.Abs(angleDiff(a, goal)) * 0.35
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	return best
}

// zoneAt returns a zone of the given kind containing the point, or nil.
func (r *Room) zoneAt(kind string, x, y float64) *StuckZone {
	for _, z := range r.stuckZones {
		if z.Kind == kind && math.Hypot(z.X-x, z.Y-y) < z.R {
			return z
		}
	}
	return nil
}

// insideRedZone reports whether a point lies in any red zone.
func (r *Room) insideRedZone(x, y float64) bool {
	return r.zoneAt(ZoneStuck, x, y) != nil
}

// redZoneClearance returns the distance from the point to the nearest red
// zone edge; large values mean well clear.
func (r *Room) redZoneClearance(x, y float64) float64 {
	best := math.MaxFloat64
	for _, z := range r.stuckZones {
		if z.Kind != ZoneStuck {
			continue
		}
		d := math.Hypot(z.X-x, z.Y-y) - z.R
		if d < best {
			best = d
		}
	}
	return best
}

// spawnFireDeathZone marks where a troop burned to death so followers detour
// instead of lemming into the same pool. The stored exit is a perpendicular
// of the victim's entry vector, random side.
func (r *Room) spawnFireDeathZone(x, y, entryX, entryY float64) {
	z := r.addStuckZone(ZoneFireDeath, x, y, fireDeathRadius, fireDeathTTL)
	if z == nil {
		return
	}
	a := math.Atan2(entryY, entryX) + math.Pi/2
	if r.jitter.Float() < 0.5 {
		a += math.Pi
	}
	z.exitBase = normalizeAngle(a)
	z.ExitAngle = z.exitBase
	z.HasExit = true
}

// stuckZoneList returns a capped snapshot for replication.
func (r *Room) stuckZoneList() []*StuckZone {
	out := make([]*StuckZone, 0, len(r.stuckZones))
	for _, z := range r.stuckZones {
		out = append(out, z)
	}
	return out
}
