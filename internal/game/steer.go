package game

import (
	"math"

	"trenchline/internal/game/world"
)

// Shared steering helpers: feeler pre-steer and pairwise separation. Both the
// enemy director and the troop controller blend these into their headings.

const (
	feelerLength     = 50.0
	feelerSideAngle  = 25.0 * math.Pi / 180
	feelerLengthAggr = 90.0
	feelerSideAggr   = 35.0 * math.Pi / 180

	separationPad = 10.0
	separationCap = 1.2
)

// feelerSteer casts three whiskers along the heading and returns a lateral
// bias (unit-scale) away from obstructions. aggressive lengthens the probes
// for fast movers. openBias nudges toward open space when both sides clear.
func feelerSteer(env *world.Environment, x, y, heading float64, f world.Filter, aggressive, openBias bool) (bx, by float64) {
	length := feelerLength
	side := feelerSideAngle
	if aggressive {
		length = feelerLengthAggr
		side = feelerSideAggr
	}

	cast := func(a float64) bool {
		ex := x + math.Cos(a)*length
		ey := y + math.Sin(a)*length
		return env.LineHitsAny(x, y, ex, ey, f)
	}

	fwd := cast(heading)
	left := cast(heading + side)
	right := cast(heading - side)

	perpX := -math.Sin(heading)
	perpY := math.Cos(heading)

	switch {
	case fwd:
		// Bias toward the clearer side; severity-scaled when both side
		// probes also hit.
		w := 0.8
		if left && right {
			w = 1.2
		}
		dir := 1.0
		if left && !right {
			dir = -1
		}
		bx, by = perpX*w*dir, perpY*w*dir
	case left && !right:
		bx, by = -perpX*0.35, -perpY*0.35
	case right && !left:
		bx, by = perpX*0.35, perpY*0.35
	case openBias && !left && !right:
		// Gentle preference for open space straight ahead.
		bx, by = math.Cos(heading)*0.1, math.Sin(heading)*0.1
	}
	return bx, by
}

// neighbor is the minimal view separation needs.
type neighbor struct {
	x, y, r float64
}

// separation accumulates weighted repulsion from neighbors so pairs keep
// rA + rB + separationPad apart. Returns the repulsion vector and the summed
// overlap, capped at separationCap, which callers use to scale the blend
// weight.
func separation(x, y, r float64, neighbors []neighbor) (sx, sy, overlap float64) {
	for _, n := range neighbors {
		dx := x - n.x
		dy := y - n.y
		d := math.Hypot(dx, dy)
		want := r + n.r + separationPad
		if d >= want || d == 0 {
			continue
		}
		push := (want - d) / want
		sx += dx / d * push
		sy += dy / d * push
		overlap += push
	}
	if overlap > separationCap {
		overlap = separationCap
	}
	if l := math.Hypot(sx, sy); l > 0 {
		sx /= l
		sy /= l
	}
	return sx, sy, overlap
}

// smoothHeading turns the current heading toward the desired one at the turn
// rate limit and returns the new heading.
func smoothHeading(current, desired, maxTurnRate, dt float64) float64 {
	diff := angleDiff(desired, current)
	maxStep := maxTurnRate * dt
	if diff > maxStep {
		diff = maxStep
	} else if diff < -maxStep {
		diff = -maxStep
	}
	return normalizeAngle(current + diff)
}
