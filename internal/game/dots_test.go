package game

import (
	"math"
	"testing"
)

// TestApplyDotRefresh verifies re-applying a source keeps the strongest dps,
// resets the remaining time and never stacks duplicates.
func TestApplyDotRefresh(t *testing.T) {
	var stacks []DotStack

	if !applyDot(&stacks, "hazard_fire", 10, 2.5) {
		t.Fatal("Expected the first stack to report a rising edge")
	}
	tickDots(&stacks, 1.0)

	// Weaker reapplication: time resets, dps stays.
	if applyDot(&stacks, "hazard_fire", 4, 2.5) {
		t.Error("Expected no rising edge on refresh")
	}
	if len(stacks) != 1 {
		t.Fatalf("Expected 1 stack, got %d", len(stacks))
	}
	if stacks[0].DPS != 10 {
		t.Errorf("Expected the stronger dps kept, got %f", stacks[0].DPS)
	}
	if stacks[0].TimeLeft != 2.5 {
		t.Errorf("Expected the time reset to 2.5, got %f", stacks[0].TimeLeft)
	}

	// Stronger reapplication upgrades.
	applyDot(&stacks, "hazard_fire", 15, 2.5)
	if stacks[0].DPS != 15 {
		t.Errorf("Expected the dps upgraded to 15, got %f", stacks[0].DPS)
	}

	// A different source is its own stack.
	if !applyDot(&stacks, "hazard_puke", 6, 1.0) {
		t.Error("Expected a rising edge for the new source")
	}
	if len(stacks) != 2 {
		t.Errorf("Expected 2 stacks, got %d", len(stacks))
	}
}

// TestTickDots verifies damage summation and in-place expiry filtering.
func TestTickDots(t *testing.T) {
	stacks := []DotStack{
		{Source: "a", DPS: 10, TimeLeft: 0.05},
		{Source: "b", DPS: 4, TimeLeft: 5},
	}

	dmg, expired := tickDots(&stacks, 0.1)

	if math.Abs(dmg-1.4) > 1e-9 {
		t.Errorf("Expected 1.4 damage this tick, got %f", dmg)
	}
	if !expired {
		t.Error("Expected the short stack reported expired")
	}
	if len(stacks) != 1 || stacks[0].Source != "b" {
		t.Fatalf("Expected only the long stack to survive, got %+v", stacks)
	}

	dmg, expired = tickDots(&stacks, 0.1)
	if math.Abs(dmg-0.4) > 1e-9 {
		t.Errorf("Expected 0.4 damage, got %f", dmg)
	}
	if expired {
		t.Error("Expected no expiry")
	}
}

// TestHasDotSource verifies the source lookup.
func TestHasDotSource(t *testing.T) {
	stacks := []DotStack{{Source: "hazard_fire", DPS: 10, TimeLeft: 1}}
	if !hasDotSource(stacks, "hazard_fire") {
		t.Error("Expected the active source found")
	}
	if hasDotSource(stacks, "hazard_puke") {
		t.Error("Expected the absent source missed")
	}
	if hasDotSource(nil, "hazard_fire") {
		t.Error("Expected no source on an empty list")
	}
}
