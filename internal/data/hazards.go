package data

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed hazards.yaml
var defaultHazardsYAML []byte

// ScatteredParams places hazard groups at random within a band.
type ScatteredParams struct {
	Groups       int     `yaml:"groups"`
	PerGroup     int     `yaml:"per_group"`
	GroupSpread  float64 `yaml:"group_spread"`
	Band         Rect    `yaml:"band"`
	OrientChance float64 `yaml:"orient_chance"` // chance each piece is placed at all
}

// GridParams places hazards on a regular lattice.
type GridParams struct {
	Band     Rect    `yaml:"band"`
	StepX    float64 `yaml:"step_x"`
	StepY    float64 `yaml:"step_y"`
	JitterXY float64 `yaml:"jitter"`
}

// HazardKindConfig configures one hazard type for a level.
type HazardKindConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Strategy  string           `yaml:"strategy"` // "scattered" or "grid"
	Scattered *ScatteredParams `yaml:"scattered"`
	Grid      *GridParams      `yaml:"grid"`

	Health          float64 `yaml:"health"`           // breakables only
	Radius          float64 `yaml:"radius"`           // zone hazards only
	ExplosionRadius float64 `yaml:"explosion_radius"` // barrels only
	ExplosionDamage float64 `yaml:"explosion_damage"`
}

// HazardLayout is the hazard plan for one level type.
type HazardLayout struct {
	LevelType  string                      `yaml:"level_type"`
	Kinds      map[string]HazardKindConfig `yaml:"kinds"`
	SafeZones  []Rect                      `yaml:"safe_zones"`  // nothing placed inside
	ClearZones []Rect                      `yaml:"clear_zones"` // carved after placement
}

type hazardsFile struct {
	Layouts []HazardLayout `yaml:"layouts"`
}

// HazardTable holds hazard layouts indexed by level type.
type HazardTable struct {
	layouts map[string]*HazardLayout
}

// LoadHazardTable loads hazard layouts from a YAML file, or from the
// embedded defaults when path is empty.
func LoadHazardTable(path string) (*HazardTable, error) {
	raw := defaultHazardsYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read hazards: %w", err)
		}
		raw = data
	}
	var f hazardsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse hazards: %w", err)
	}
	t := &HazardTable{layouts: make(map[string]*HazardLayout, len(f.Layouts))}
	for i := range f.Layouts {
		l := &f.Layouts[i]
		t.layouts[l.LevelType] = l
	}
	return t, nil
}

// Get returns the layout for a level type, or nil.
func (t *HazardTable) Get(levelType string) *HazardLayout {
	return t.layouts[levelType]
}
