// Package spatial provides cache-friendly spatial data structures for
// broad-phase collision detection and neighbor queries.
//
// The grid is sparse (hash-backed) because the battlefield spans tens of
// thousands of world units; a dense cell array would waste memory on the
// mostly-empty interior.
package spatial

import (
	"math"
)

// DefaultCellSize matches the largest common query radius used by the
// simulation (separation, attack-range scans).
const DefaultCellSize = 128.0

// Grid buckets entity IDs into uniform square cells. All operations are
// total: inserts clamp nothing, removes of unknown IDs are no-ops.
//
// Boundary tie-breaking is inclusive on min edges and exclusive on max
// edges: a point exactly on a cell's right/bottom border belongs to the
// neighboring cell.
type Grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]string
	positions   map[string]cellKey // current cell per entity, for Move/Remove
	scratch     []string           // reusable query buffer
}

type cellKey struct {
	cx, cy int32
}

// NewGrid creates an empty sparse grid with the given cell size.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]string, 256),
		positions:   make(map[string]cellKey, 256),
		scratch:     make([]string, 0, 64),
	}
}

func (g *Grid) keyFor(x, y float64) cellKey {
	return cellKey{
		cx: int32(math.Floor(x * g.invCellSize)),
		cy: int32(math.Floor(y * g.invCellSize)),
	}
}

// Insert registers an entity at (x, y). Inserting an already-present ID
// relocates it.
func (g *Grid) Insert(id string, x, y float64) {
	key := g.keyFor(x, y)
	if prev, ok := g.positions[id]; ok {
		if prev == key {
			return
		}
		g.removeFromCell(id, prev)
	}
	g.cells[key] = append(g.cells[key], id)
	g.positions[id] = key
}

// Move updates an entity's cell membership after a position change.
// Cell membership updates atomically: the entity is never in two cells.
func (g *Grid) Move(id string, newX, newY float64) {
	g.Insert(id, newX, newY)
}

// Remove deletes an entity from the grid. Unknown IDs are ignored.
func (g *Grid) Remove(id string) {
	key, ok := g.positions[id]
	if !ok {
		return
	}
	g.removeFromCell(id, key)
	delete(g.positions, id)
}

func (g *Grid) removeFromCell(id string, key cellKey) {
	bucket := g.cells[key]
	for i, other := range bucket {
		if other == id {
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
	}
	if len(bucket) == 0 {
		delete(g.cells, key)
	} else {
		g.cells[key] = bucket
	}
}

// Contains reports whether the entity is registered.
func (g *Grid) Contains(id string) bool {
	_, ok := g.positions[id]
	return ok
}

// Len returns the number of registered entities.
func (g *Grid) Len() int {
	return len(g.positions)
}

// Clear drops all entities while keeping allocated buckets.
func (g *Grid) Clear() {
	for k := range g.cells {
		delete(g.cells, k)
	}
	for k := range g.positions {
		delete(g.positions, k)
	}
}

// QueryCircle returns all entity IDs whose cells intersect the circle at
// (cx, cy) with the given radius.
//
// IMPORTANT: the returned slice is reused on subsequent calls; copy it if
// you need to persist results. Candidates may lie outside the radius — the
// caller performs the precise (narrow-phase) distance check.
func (g *Grid) QueryCircle(cx, cy, radius float64) []string {
	return g.QueryAABB(cx-radius, cy-radius, cx+radius, cy+radius)
}

// QueryAABB returns all entity IDs in cells overlapping the rectangle
// [minX, maxX) x [minY, maxY). The scratch-buffer caveat of QueryCircle
// applies.
func (g *Grid) QueryAABB(minX, minY, maxX, maxY float64) []string {
	g.scratch = g.scratch[:0]

	lo := g.keyFor(minX, minY)
	hi := g.keyFor(maxX, maxY)
	for cy := lo.cy; cy <= hi.cy; cy++ {
		for cx := lo.cx; cx <= hi.cx; cx++ {
			if bucket, ok := g.cells[cellKey{cx, cy}]; ok {
				g.scratch = append(g.scratch, bucket...)
			}
		}
	}
	return g.scratch
}

// Stats returns grid occupancy statistics for debugging/profiling.
func (g *Grid) Stats() GridStats {
	var maxInCell int
	for _, bucket := range g.cells {
		if len(bucket) > maxInCell {
			maxInCell = len(bucket)
		}
	}
	return GridStats{
		NonEmptyCells: len(g.cells),
		TotalEntities: len(g.positions),
		MaxInCell:     maxInCell,
	}
}

// GridStats contains grid occupancy statistics.
type GridStats struct {
	NonEmptyCells int
	TotalEntities int
	MaxInCell     int
}
