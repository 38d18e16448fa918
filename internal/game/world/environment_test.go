package world

import (
	"math"
	"testing"
)

func TestCircleHitsAABB(t *testing.T) {
	e := NewEnvironment(1000)
	e.AddObstacle(AABB{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100})

	tests := []struct {
		name    string
		x, y, r float64
		want    bool
	}{
		{"inside", 50, 50, 10, true},
		{"touching edge from outside", 110, 50, 15, true},
		{"clear of edge", 130, 50, 15, false},
		{"corner graze", 110, 110, 20, true},
		{"corner miss", 115, 115, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.CircleHitsAny(tt.x, tt.y, tt.r, FilterAll); got != tt.want {
				t.Errorf("CircleHitsAny(%v,%v,%v) = %v, want %v", tt.x, tt.y, tt.r, got, tt.want)
			}
		})
	}
}

func TestOrientedBoxRotation(t *testing.T) {
	e := NewEnvironment(1000)
	// A long thin wall rotated 45 degrees.
	e.AddOrientedBox(OrientedBox{X: 0, Y: 0, W: 200, H: 20, Angle: math.Pi / 4})

	// Along the rotated long axis the wall reaches out ~70 units.
	if !e.CircleHitsAny(60, 60, 10, FilterAll) {
		t.Error("expected hit along rotated long axis")
	}
	// Perpendicular to the wall at the same distance it is thin.
	if e.CircleHitsAny(60, -60, 10, FilterAll) {
		t.Error("expected miss perpendicular to rotated wall")
	}
}

func TestLineHitsAnyAndBreakableFilter(t *testing.T) {
	e := NewEnvironment(1000)
	e.AddOrientedBox(OrientedBox{X: 100, Y: 0, W: 40, H: 40, Breakable: true, HazardID: "sandbag_1"})
	e.AddObstacle(AABB{MinX: 300, MinY: -20, MaxX: 320, MaxY: 20})

	// Line through the sandbag only.
	if !e.LineHitsAny(0, 0, 200, 0, FilterAll) {
		t.Error("line should hit the sandbag box")
	}
	if e.LineHitsAny(0, 0, 200, 0, FilterIgnoreBreakable) {
		t.Error("filtered line should pass through the sandbag")
	}
	// The permanent wall blocks either way.
	if !e.LineHitsAny(0, 0, 400, 0, FilterIgnoreBreakable) {
		t.Error("filtered line should still hit the permanent wall")
	}

	if idx := e.LineHitsBreakable(0, 0, 200, 0); idx != 0 {
		t.Errorf("expected breakable index 0, got %d", idx)
	}
	if idx := e.LineHitsBreakable(0, 50, 200, 50); idx != -1 {
		t.Errorf("expected no breakable hit, got %d", idx)
	}
}

func TestLineHitsBreakableNearestFirst(t *testing.T) {
	e := NewEnvironment(1000)
	// The far box registers first; registration order must not decide which
	// cover soaks the shot.
	e.AddOrientedBox(OrientedBox{X: 400, Y: 0, W: 40, H: 40, Breakable: true, HazardID: "far"})
	near := e.AddOrientedBox(OrientedBox{X: 100, Y: 0, W: 40, H: 40, Breakable: true, HazardID: "near"})

	if idx := e.LineHitsBreakable(0, 0, 600, 0); idx != near {
		t.Errorf("expected nearest breakable %d, got %d", near, idx)
	}
}

func TestLineHitsBreakableWallOcclusion(t *testing.T) {
	e := NewEnvironment(1000)
	e.AddOrientedBox(OrientedBox{X: 300, Y: 0, W: 40, H: 40, Breakable: true, HazardID: "behind"})
	e.AddObstacle(AABB{MinX: 150, MinY: -50, MaxX: 170, MaxY: 50})

	// A permanent wall between the shooter and the sandbag blocks the shot
	// before it can reach the sandbag.
	if idx := e.LineHitsBreakable(0, 0, 600, 0); idx != -1 {
		t.Errorf("expected the wall to occlude the breakable, got %d", idx)
	}

	// Cover in front of the wall still soaks.
	front := e.AddOrientedBox(OrientedBox{X: 80, Y: 0, W: 40, H: 40, Breakable: true, HazardID: "front"})
	if idx := e.LineHitsBreakable(0, 0, 600, 0); idx != front {
		t.Errorf("expected the breakable in front of the wall, got %d", idx)
	}

	// A rotated solid wall occludes the same way.
	e2 := NewEnvironment(1000)
	e2.AddOrientedBox(OrientedBox{X: 300, Y: 0, W: 40, H: 40, Breakable: true, HazardID: "behind"})
	e2.AddOrientedBox(OrientedBox{X: 150, Y: 0, W: 120, H: 20, Angle: math.Pi / 2})
	if idx := e2.LineHitsBreakable(0, 0, 600, 0); idx != -1 {
		t.Errorf("expected the rotated wall to occlude the breakable, got %d", idx)
	}
}

func TestResolveCircleMoveSlide(t *testing.T) {
	e := NewEnvironment(1000)
	// Vertical wall at x=100.
	e.AddObstacle(AABB{MinX: 100, MinY: -500, MaxX: 120, MaxY: 500})

	// Move diagonally into the wall: X is blocked, Y should slide.
	res := e.ResolveCircleMove(80, 0, 15, 40, 40, FilterAll)
	if !res.HitWall {
		t.Error("expected wall contact")
	}
	if res.Y <= 0 {
		t.Errorf("expected slide along wall in Y, got y=%v", res.Y)
	}
	if e.CircleHitsAny(res.X, res.Y, 15, FilterAll) {
		t.Errorf("resolved pose penetrates wall at (%v,%v)", res.X, res.Y)
	}
}

func TestResolveCircleMoveSubStepping(t *testing.T) {
	e := NewEnvironment(1000)
	// Thin wall that a 100-unit jump would tunnel through without sub-steps.
	e.AddObstacle(AABB{MinX: 50, MinY: -500, MaxX: 56, MaxY: 500})

	res := e.ResolveCircleMove(0, 0, 10, 96, 0, FilterAll)
	if !res.HitWall {
		t.Error("expected wall contact on sub-stepped move")
	}
	if res.X >= 50 {
		t.Errorf("mover tunneled through thin wall, x=%v", res.X)
	}
}

func TestClearGapAreas(t *testing.T) {
	e := NewEnvironment(1000)
	e.AddObstacle(AABB{MinX: 0, MinY: 0, MaxX: 50, MaxY: 50})
	e.AddObstacle(AABB{MinX: 200, MinY: 0, MaxX: 250, MaxY: 50})

	e.ClearGapAreas([]AABB{{MinX: -10, MinY: -10, MaxX: 60, MaxY: 60}})

	if len(e.Obstacles()) != 1 {
		t.Fatalf("expected 1 obstacle after gap carve, got %d", len(e.Obstacles()))
	}
	if e.Obstacles()[0].MinX != 200 {
		t.Error("wrong obstacle removed by gap carve")
	}
}

func TestBoundaryClamp(t *testing.T) {
	e := NewEnvironment(500)

	res := e.ResolveCircleMove(480, 0, 15, 100, 0, FilterAll)
	if res.X+15 > 500 {
		t.Errorf("mover escaped boundary, x=%v", res.X)
	}
	if !e.IsInsideBounds(res.X, res.Y, 15) {
		t.Error("resolved pose outside bounds")
	}
}

func TestRemoveOrientedBoxShiftsIndices(t *testing.T) {
	e := NewEnvironment(1000)
	a := e.AddOrientedBox(OrientedBox{X: 0, Y: 0, W: 10, H: 10, HazardID: "a"})
	e.AddOrientedBox(OrientedBox{X: 50, Y: 0, W: 10, H: 10, HazardID: "b"})
	c := e.AddOrientedBox(OrientedBox{X: 100, Y: 0, W: 10, H: 10, HazardID: "c"})

	if !e.RemoveOrientedBoxAt(a) {
		t.Fatal("remove failed")
	}
	if e.OrientedBoxCount() != 2 {
		t.Fatalf("expected 2 boxes, got %d", e.OrientedBoxCount())
	}
	// c shifted down by one.
	if got := e.OrientedBoxAt(c - 1).HazardID; got != "c" {
		t.Errorf("expected box 'c' at shifted index, got %q", got)
	}
	if e.RemoveOrientedBoxAt(99) {
		t.Error("out-of-range removal should return false")
	}
}
