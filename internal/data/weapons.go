package data

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed weapons.yaml
var defaultWeaponsYAML []byte

// LootLevels is the number of loot tiers a weapon progresses through (0..6).
const LootLevels = 7

// WeaponProgression defines one weapon's damage scaling across loot levels.
type WeaponProgression struct {
	Name         string             `yaml:"name"`
	BaseDamage   float64            `yaml:"base_damage"`
	FireInterval float64            `yaml:"fire_interval"` // seconds between shots
	Primary      [LootLevels]float64 `yaml:"primary"`       // damage multiplier per loot level
	Secondary    [LootLevels]float64 `yaml:"secondary"`
}

type weaponsFile struct {
	Weapons []WeaponProgression `yaml:"weapons"`
}

// WeaponTable holds the full 8-weapon progression table.
type WeaponTable struct {
	weapons map[string]*WeaponProgression
	order   []string
}

// LoadWeaponTable loads the weapon progression table from a YAML file, or
// from the embedded defaults when path is empty.
func LoadWeaponTable(path string) (*WeaponTable, error) {
	raw := defaultWeaponsYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read weapons: %w", err)
		}
		raw = data
	}
	var f weaponsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse weapons: %w", err)
	}
	t := &WeaponTable{weapons: make(map[string]*WeaponProgression, len(f.Weapons))}
	for i := range f.Weapons {
		w := &f.Weapons[i]
		t.weapons[w.Name] = w
		t.order = append(t.order, w.Name)
	}
	return t, nil
}

// Get returns a weapon by name, or nil.
func (t *WeaponTable) Get(name string) *WeaponProgression {
	return t.weapons[name]
}

// ByIndex returns the weapon at slot i (client weaponIndex), or nil.
func (t *WeaponTable) ByIndex(i int) *WeaponProgression {
	if i < 0 || i >= len(t.order) {
		return nil
	}
	return t.weapons[t.order[i]]
}

// Count returns the number of weapons in the table.
func (t *WeaponTable) Count() int { return len(t.order) }

// Damage returns the effective primary damage for a weapon at a loot level.
// Loot levels outside [0, LootLevels) clamp.
func (t *WeaponTable) Damage(name string, lootLevel int) float64 {
	w := t.weapons[name]
	if w == nil {
		return 0
	}
	if lootLevel < 0 {
		lootLevel = 0
	}
	if lootLevel >= LootLevels {
		lootLevel = LootLevels - 1
	}
	return w.BaseDamage * w.Primary[lootLevel]
}
