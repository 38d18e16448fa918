package spatial

import (
	"fmt"
	"testing"
)

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func TestInsertAndQueryCircle(t *testing.T) {
	g := NewGrid(128)

	g.Insert("a", 100, 100)
	g.Insert("b", 500, 500)
	g.Insert("c", -300, 100)

	got := g.QueryCircle(100, 100, 64)
	if !contains(got, "a") {
		t.Errorf("expected 'a' near (100,100), got %v", got)
	}
	if contains(got, "b") {
		t.Errorf("did not expect 'b' near (100,100), got %v", got)
	}

	// Negative coordinates must bucket correctly too.
	got = g.QueryCircle(-300, 100, 64)
	if !contains(got, "c") {
		t.Errorf("expected 'c' near (-300,100), got %v", got)
	}
}

func TestMoveUpdatesCellAtomically(t *testing.T) {
	g := NewGrid(128)
	g.Insert("e", 10, 10)

	g.Move("e", 1000, 1000)

	if contains(g.QueryCircle(10, 10, 64), "e") {
		t.Error("entity still present in old cell after Move")
	}
	if !contains(g.QueryCircle(1000, 1000, 64), "e") {
		t.Error("entity missing from new cell after Move")
	}
	if g.Len() != 1 {
		t.Errorf("expected 1 registered entity, got %d", g.Len())
	}
}

func TestRemove(t *testing.T) {
	g := NewGrid(128)
	g.Insert("x", 0, 0)
	g.Remove("x")

	if g.Contains("x") {
		t.Error("entity still registered after Remove")
	}
	if contains(g.QueryCircle(0, 0, 200), "x") {
		t.Error("entity still queryable after Remove")
	}

	// Removing an unknown ID must be a no-op.
	g.Remove("never-inserted")
}

func TestBoundaryTieBreaking(t *testing.T) {
	g := NewGrid(128)

	// A point exactly on a max edge belongs to the next cell.
	g.Insert("edge", 128, 0)
	lo := g.keyFor(128, 0)
	if lo.cx != 1 {
		t.Errorf("point on max edge should map to cell 1, got %d", lo.cx)
	}

	// Min edge is inclusive.
	if k := g.keyFor(0, 0); k.cx != 0 || k.cy != 0 {
		t.Errorf("origin should map to cell (0,0), got (%d,%d)", k.cx, k.cy)
	}
	if k := g.keyFor(-1, -1); k.cx != -1 || k.cy != -1 {
		t.Errorf("(-1,-1) should map to cell (-1,-1), got (%d,%d)", k.cx, k.cy)
	}
}

func TestQueryAABB(t *testing.T) {
	g := NewGrid(128)
	for i := 0; i < 10; i++ {
		g.Insert(fmt.Sprintf("row%d", i), float64(i)*200, 0)
	}

	got := g.QueryAABB(0, -64, 450, 64)
	for _, want := range []string{"row0", "row1", "row2"} {
		if !contains(got, want) {
			t.Errorf("expected %s in AABB query, got %v", want, got)
		}
	}
	if contains(got, "row9") {
		t.Errorf("row9 should be outside AABB, got %v", got)
	}
}

func TestClearKeepsNothing(t *testing.T) {
	g := NewGrid(128)
	g.Insert("a", 0, 0)
	g.Insert("b", 300, 300)
	g.Clear()

	if g.Len() != 0 {
		t.Errorf("expected empty grid after Clear, got %d entities", g.Len())
	}
	if s := g.Stats(); s.NonEmptyCells != 0 {
		t.Errorf("expected 0 non-empty cells, got %d", s.NonEmptyCells)
	}
}

func BenchmarkQueryCircle(b *testing.B) {
	g := NewGrid(128)
	for i := 0; i < 2000; i++ {
		g.Insert(fmt.Sprintf("e%d", i), float64(i%50)*100, float64(i/50)*100)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.QueryCircle(2500, 2000, 500)
	}
}
