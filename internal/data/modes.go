// Package data loads static game data tables from YAML: game-mode configs,
// hazard layouts and the weapon progression table. Defaults are embedded so
// the server runs without external data files; explicit paths override them.
package data

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed modes.yaml
var defaultModesYAML []byte

// EnemyStats holds per-type combat numbers.
type EnemyStats struct {
	Health   float64 `yaml:"health"`
	Speed    float64 `yaml:"speed"`
	Radius   float64 `yaml:"radius"`
	Damage   float64 `yaml:"damage"`
	SpeedMul float64 `yaml:"speed_mul"`
}

// DropRates gives currency drop chance and ranges for one enemy type.
type DropRates struct {
	Chance     float64 `yaml:"chance"`
	DucatsMin  int     `yaml:"ducats_min"`
	DucatsMax  int     `yaml:"ducats_max"`
	MarkersMin int     `yaml:"markers_min"`
	MarkersMax int     `yaml:"markers_max"`
}

// EnemiesConfig describes the baseline enemy population of a mode.
type EnemiesConfig struct {
	TotalCount int                   `yaml:"total_count"`
	TypeRatios map[string]float64    `yaml:"type_ratios"`
	Stats      map[string]EnemyStats `yaml:"stats"`
	DropRates  map[string]DropRates  `yaml:"drop_rates"`
}

// Rect is a YAML-friendly axis-aligned rectangle (min inclusive, max
// exclusive).
type Rect struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

// HordeConfig sets forward/return difficulty and spawn cadence for one zone.
type HordeConfig struct {
	ForwardDiff     int       `yaml:"forward_diff"`
	ReturnDiff      int       `yaml:"return_diff"`
	ForwardInterval [2]float64 `yaml:"forward_interval"` // seconds [min,max]
	ReturnInterval  [2]float64 `yaml:"return_interval"`
}

// ZoneConfig names a battlefield zone and its horde behavior.
type ZoneConfig struct {
	Name  string      `yaml:"name"`
	Rect  Rect        `yaml:"rect"`
	Horde HordeConfig `yaml:"horde"`
}

// DifficultyPreset gives horde size and type mix for tiers 1..7.
type DifficultyPreset struct {
	Size       int                `yaml:"size"`
	TypeRatios map[string]float64 `yaml:"type_ratios"`
}

// ZoneSpawningConfig gathers zone-driven horde spawning parameters.
type ZoneSpawningConfig struct {
	Zones            []ZoneConfig             `yaml:"zones"`
	Presets          map[int]DifficultyPreset `yaml:"difficulty_presets"`
	PreSpawnDistance float64                  `yaml:"pre_spawn_distance"`
	CheckInterval    float64                  `yaml:"check_interval"` // seconds
	SafeMinX         float64                  `yaml:"safe_min_x"`     // spawns never placed below this x
}

// BarracksConfig anchors one troop spawner.
type BarracksConfig struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Cap int     `yaml:"cap"`
}

// TroopsConfig describes allied troop spawning for a mode.
type TroopsConfig struct {
	Barracks      []BarracksConfig `yaml:"barracks"`
	SpawnInterval float64          `yaml:"spawn_interval"` // seconds, jittered ±20%
	RefillZone    string           `yaml:"refill_zone"`    // artifact carrier entering this zone unlocks phase 1
}

// LootConfig seeds chest placement for a mode.
type LootConfig struct {
	Clearance       float64 `yaml:"clearance"`
	GoldChest       Rect    `yaml:"gold_chest"`
	BrownChest      Rect    `yaml:"brown_chest"`
	BrownChestCount int     `yaml:"brown_chest_count"`
}

// NPCConfig places friendly emplacements (turrets, artillery).
type NPCConfig struct {
	Type string  `yaml:"type"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// TimersConfig holds countdown lengths in seconds.
type TimersConfig struct {
	Ready          float64 `yaml:"ready"`
	Extraction     float64 `yaml:"extraction"`
	ExtractionZone float64 `yaml:"extraction_zone"` // radius
}

// PointConfig is a spawn/extraction anchor.
type PointConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius"`
}

// WaveConfig schedules one extraction defense wave.
type WaveConfig struct {
	IntervalMin float64 `yaml:"interval_min"`
	IntervalMax float64 `yaml:"interval_max"`
	TargetCount int     `yaml:"target_count"`
	Diff        int     `yaml:"diff"`
}

// BurstConfig is a fixed horde fired when the extraction timer starts.
type BurstConfig struct {
	Diff    int     `yaml:"diff"`
	Count   int     `yaml:"count"`
	DelayMs float64 `yaml:"delay_ms"`
}

// PhasesConfig drives the search → guard → waves progression.
type PhasesConfig struct {
	GuardAfter float64       `yaml:"guard_after"` // seconds in search before guard
	Waves      []WaveConfig  `yaml:"waves"`
	Bursts     []BurstConfig `yaml:"bursts"`
	NormalOnly bool          `yaml:"normal_only"` // bursts skipped for heretic extraction
}

// GameMode is the full configuration of one level type.
type GameMode struct {
	Name         string             `yaml:"name"`
	Boundary     float64            `yaml:"boundary"` // half-extent of the square world
	Enemies      EnemiesConfig      `yaml:"enemies"`
	ZoneSpawning ZoneSpawningConfig `yaml:"zone_spawning"`
	Troops       TroopsConfig       `yaml:"troops"`
	Loot         LootConfig         `yaml:"loot"`
	NPCs         []NPCConfig        `yaml:"npcs"`
	Timers       TimersConfig       `yaml:"timers"`
	Spawn        PointConfig        `yaml:"spawn"`
	Extraction   PointConfig        `yaml:"extraction"`
	Phases       PhasesConfig       `yaml:"phases"`
}

type modesFile struct {
	Modes []GameMode `yaml:"modes"`
}

// ModeTable holds all game modes indexed by name.
type ModeTable struct {
	modes map[string]*GameMode
}

// LoadModeTable loads game modes from a YAML file, or from the embedded
// defaults when path is empty.
func LoadModeTable(path string) (*ModeTable, error) {
	raw := defaultModesYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read modes: %w", err)
		}
		raw = data
	}
	var f modesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse modes: %w", err)
	}
	t := &ModeTable{modes: make(map[string]*GameMode, len(f.Modes))}
	for i := range f.Modes {
		m := &f.Modes[i]
		t.modes[m.Name] = m
	}
	return t, nil
}

// Get returns the mode with the given name, or nil.
func (t *ModeTable) Get(name string) *GameMode {
	return t.modes[name]
}

// Names lists the available mode names.
func (t *ModeTable) Names() []string {
	names := make([]string, 0, len(t.modes))
	for n := range t.modes {
		names = append(names, n)
	}
	return names
}
