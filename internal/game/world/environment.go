// Package world holds the static collision substrate for a room: axis-aligned
// obstacles, oriented boxes (shields, trench walls, sandbags), the outer
// boundary and the spawn-safe area. All geometry is mutated only by the
// owning room's worker.
package world

import (
	"math"
)

// AABB is an axis-aligned rectangle. Min edges are inclusive, max exclusive.
type AABB struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the AABB's horizontal extent.
func (b AABB) Width() float64 { return b.MaxX - b.MinX }

// Height returns the AABB's vertical extent.
func (b AABB) Height() float64 { return b.MaxY - b.MinY }

// Contains reports whether the point lies inside the rectangle.
func (b AABB) Contains(x, y float64) bool {
	return x >= b.MinX && x < b.MaxX && y >= b.MinY && y < b.MaxY
}

// Intersects reports whether two rectangles overlap.
func (b AABB) Intersects(o AABB) bool {
	return b.MinX < o.MaxX && b.MaxX > o.MinX && b.MinY < o.MaxY && b.MaxY > o.MinY
}

// OrientedBox is a rotated rectangle centered at (X, Y) with half-extents
// derived from W, H and rotation Angle (radians).
type OrientedBox struct {
	X, Y, W, H float64
	Angle      float64

	// Breakable marks boxes registered by destructible hazards (sandbags,
	// barrels). Troop line-of-sight ignores them.
	Breakable bool
	// HazardID back-references the owning hazard so expiry can remove the box.
	HazardID string
}

// Circle is a center plus radius.
type Circle struct {
	X, Y, R float64
}

// Filter selects which geometry a query considers.
type Filter uint8

const (
	// FilterAll considers every registered shape.
	FilterAll Filter = iota
	// FilterIgnoreBreakable skips boxes owned by breakable hazards. Used by
	// troops for LOS and wall-contact tests: a sandbag is not a permanent wall.
	FilterIgnoreBreakable
)

// Movement resolution limits. Sub-stepping keeps fast movers from tunneling
// through thin trench walls.
const (
	maxSubStep  = 12.0
	maxSubSteps = 8
)

// Environment is the static obstacle set for one room.
type Environment struct {
	Boundary  AABB
	SpawnSafe *Circle

	obstacles []AABB
	oriented  []OrientedBox
}

// NewEnvironment creates an environment bounded by the given half-extent
// (the world spans [-bound, bound] on both axes).
func NewEnvironment(bound float64) *Environment {
	return &Environment{
		Boundary: AABB{MinX: -bound, MinY: -bound, MaxX: bound, MaxY: bound},
	}
}

// AddObstacle registers an axis-aligned obstacle.
func (e *Environment) AddObstacle(b AABB) {
	e.obstacles = append(e.obstacles, b)
}

// AddOrientedBox registers a rotated box and returns its index. Indices are
// stable until a removal; RemoveOrientedBoxAt shifts later indices down by
// one, and hazard bookkeeping renormalizes accordingly.
func (e *Environment) AddOrientedBox(b OrientedBox) int {
	e.oriented = append(e.oriented, b)
	return len(e.oriented) - 1
}

// RemoveOrientedBoxAt deletes the box at index i, preserving the order of the
// remaining boxes. Returns false if i is out of range.
func (e *Environment) RemoveOrientedBoxAt(i int) bool {
	if i < 0 || i >= len(e.oriented) {
		return false
	}
	e.oriented = append(e.oriented[:i], e.oriented[i+1:]...)
	return true
}

// OrientedBoxCount returns the number of registered oriented boxes.
func (e *Environment) OrientedBoxCount() int { return len(e.oriented) }

// OrientedBoxAt returns the box at index i.
func (e *Environment) OrientedBoxAt(i int) OrientedBox { return e.oriented[i] }

// OrientedBoxes returns the live slice of oriented boxes for replication.
// Callers must not mutate it.
func (e *Environment) OrientedBoxes() []OrientedBox { return e.oriented }

// Obstacles returns the live slice of axis-aligned obstacles for replication.
func (e *Environment) Obstacles() []AABB { return e.obstacles }

// ClearGapAreas deletes obstacles intersecting any of the listed gap
// rectangles. Used to carve doorways before defensive walls go in.
func (e *Environment) ClearGapAreas(gaps []AABB) {
	n := 0
	for _, ob := range e.obstacles {
		keep := true
		for _, gap := range gaps {
			if ob.Intersects(gap) {
				keep = false
				break
			}
		}
		if keep {
			e.obstacles[n] = ob
			n++
		}
	}
	e.obstacles = e.obstacles[:n]
}

// IsInsideBounds reports whether a circle fits fully inside the boundary.
func (e *Environment) IsInsideBounds(x, y, r float64) bool {
	return x-r >= e.Boundary.MinX && x+r <= e.Boundary.MaxX &&
		y-r >= e.Boundary.MinY && y+r <= e.Boundary.MaxY
}

// CircleHitsAny reports whether a circle overlaps any obstacle or oriented
// box under the given filter.
func (e *Environment) CircleHitsAny(x, y, r float64, f Filter) bool {
	for _, ob := range e.obstacles {
		if circleIntersectsAABB(x, y, r, ob) {
			return true
		}
	}
	for i := range e.oriented {
		if f == FilterIgnoreBreakable && e.oriented[i].Breakable {
			continue
		}
		if circleIntersectsOBB(x, y, r, &e.oriented[i]) {
			return true
		}
	}
	return false
}

// LineHitsAny reports whether the segment (x1,y1)-(x2,y2) crosses any
// obstacle or oriented box under the given filter.
func (e *Environment) LineHitsAny(x1, y1, x2, y2 float64, f Filter) bool {
	for _, ob := range e.obstacles {
		if segmentIntersectsAABB(x1, y1, x2, y2, ob) {
			return true
		}
	}
	for i := range e.oriented {
		if f == FilterIgnoreBreakable && e.oriented[i].Breakable {
			continue
		}
		if segmentIntersectsOBB(x1, y1, x2, y2, &e.oriented[i]) {
			return true
		}
	}
	return false
}

// LineHitsBreakable returns the index of the nearest breakable oriented box
// along the segment, or -1. The segment is clipped at the first solid wall
// first, so cover behind a wall cannot soak a shot the wall already blocks.
// Hitscan shots damage the sandbag/barrel they strike instead of the enemy
// behind it.
func (e *Environment) LineHitsBreakable(x1, y1, x2, y2 float64) int {
	limit := 1.0
	for _, ob := range e.obstacles {
		if t, ok := segmentEntryAABB(x1, y1, x2, y2, ob); ok && t < limit {
			limit = t
		}
	}
	for i := range e.oriented {
		if e.oriented[i].Breakable {
			continue
		}
		if t, ok := segmentEntryOBB(x1, y1, x2, y2, &e.oriented[i]); ok && t < limit {
			limit = t
		}
	}

	best := -1
	bestT := limit
	for i := range e.oriented {
		if !e.oriented[i].Breakable {
			continue
		}
		if t, ok := segmentEntryOBB(x1, y1, x2, y2, &e.oriented[i]); ok && t < bestT {
			best = i
			bestT = t
		}
	}
	return best
}

// MoveResult reports the outcome of a resolved circle move.
type MoveResult struct {
	X, Y    float64
	HitWall bool
}

// ResolveCircleMove integrates a single movement step with slide-along-wall
// resolution. The returned pose is penetration-free if the input pose was.
// Long steps are divided into sub-steps of at most maxSubStep units.
func (e *Environment) ResolveCircleMove(x, y, r, dx, dy float64, f Filter) MoveResult {
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return MoveResult{X: x, Y: y}
	}

	steps := int(math.Ceil(dist / maxSubStep))
	if steps < 1 {
		steps = 1
	}
	if steps > maxSubSteps {
		steps = maxSubSteps
	}
	sx := dx / float64(steps)
	sy := dy / float64(steps)

	res := MoveResult{X: x, Y: y}
	for i := 0; i < steps; i++ {
		nx, ny, hit := e.stepCircle(res.X, res.Y, r, sx, sy, f)
		res.X, res.Y = nx, ny
		if hit {
			res.HitWall = true
		}
	}
	return res
}

// stepCircle moves one sub-step, sliding along walls on contact by resolving
// each axis independently.
func (e *Environment) stepCircle(x, y, r, dx, dy float64, f Filter) (float64, float64, bool) {
	nx, ny := x+dx, y+dy
	nx, ny = e.clampToBoundary(nx, ny, r)
	if !e.CircleHitsAny(nx, ny, r, f) {
		return nx, ny, false
	}

	// Blocked. Slide: try the X component alone, then the Y component from
	// wherever X landed.
	hit := true
	cx, cy := x, y
	tx, _ := e.clampToBoundary(x+dx, y, r)
	if !e.CircleHitsAny(tx, y, r, f) {
		cx = tx
	}
	_, ty := e.clampToBoundary(cx, y+dy, r)
	if !e.CircleHitsAny(cx, ty, r, f) {
		cy = ty
	}
	return cx, cy, hit
}

func (e *Environment) clampToBoundary(x, y, r float64) (float64, float64) {
	if x-r < e.Boundary.MinX {
		x = e.Boundary.MinX + r
	}
	if x+r > e.Boundary.MaxX {
		x = e.Boundary.MaxX - r
	}
	if y-r < e.Boundary.MinY {
		y = e.Boundary.MinY + r
	}
	if y+r > e.Boundary.MaxY {
		y = e.Boundary.MaxY - r
	}
	return x, y
}

// ── Geometry primitives ──

func circleIntersectsAABB(cx, cy, r float64, b AABB) bool {
	nx := math.Max(b.MinX, math.Min(cx, b.MaxX))
	ny := math.Max(b.MinY, math.Min(cy, b.MaxY))
	dx := cx - nx
	dy := cy - ny
	return dx*dx+dy*dy < r*r
}

// circleIntersectsOBB transforms the circle into the box's local frame and
// runs the AABB test there.
func circleIntersectsOBB(cx, cy, r float64, b *OrientedBox) bool {
	lx, ly := toLocal(cx, cy, b)
	hw, hh := b.W/2, b.H/2
	nx := math.Max(-hw, math.Min(lx, hw))
	ny := math.Max(-hh, math.Min(ly, hh))
	dx := lx - nx
	dy := ly - ny
	return dx*dx+dy*dy < r*r
}

func toLocal(px, py float64, b *OrientedBox) (float64, float64) {
	sin, cos := math.Sincos(-b.Angle)
	dx := px - b.X
	dy := py - b.Y
	return dx*cos - dy*sin, dx*sin + dy*cos
}

// segmentEntryAABB runs the slab method and returns the parameter t in [0,1]
// at which the segment enters the rectangle. A segment that starts inside
// enters at t=0.
func segmentEntryAABB(x1, y1, x2, y2 float64, b AABB) (float64, bool) {
	dx := x2 - x1
	dy := y2 - y1
	tmin, tmax := 0.0, 1.0

	for _, axis := range [2][3]float64{{dx, x1, 0}, {dy, y1, 1}} {
		d, o := axis[0], axis[1]
		var lo, hi float64
		if axis[2] == 0 {
			lo, hi = b.MinX, b.MaxX
		} else {
			lo, hi = b.MinY, b.MaxY
		}
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

func segmentEntryOBB(x1, y1, x2, y2 float64, b *OrientedBox) (float64, bool) {
	lx1, ly1 := toLocal(x1, y1, b)
	lx2, ly2 := toLocal(x2, y2, b)
	local := AABB{MinX: -b.W / 2, MinY: -b.H / 2, MaxX: b.W / 2, MaxY: b.H / 2}
	return segmentEntryAABB(lx1, ly1, lx2, ly2, local)
}

func segmentIntersectsAABB(x1, y1, x2, y2 float64, b AABB) bool {
	_, ok := segmentEntryAABB(x1, y1, x2, y2, b)
	return ok
}

func segmentIntersectsOBB(x1, y1, x2, y2 float64, b *OrientedBox) bool {
	_, ok := segmentEntryOBB(x1, y1, x2, y2, b)
	return ok
}
