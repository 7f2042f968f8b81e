package encounter

import (
	"fmt"
	"math"
	"strings"

	"github.com/cory-johannsen/combot/internal/game/combat"
)

// EnemySpec is one enemy as described by the enemy-creation step.
type EnemySpec struct {
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Weapon       string         `json:"weapon"`
	ArmorType    string         `json:"armorType,omitempty"`
	ActionPoints float64        `json:"actionPoints"`
	Skills       map[string]int `json:"skills,omitempty"`
	HitLocations map[string]int `json:"hitLocations,omitempty"`
}

// CreateEnemiesInput is the structured result of the enemy-creation step.
type CreateEnemiesInput struct {
	Enemies []EnemySpec `json:"enemies"`
}

// FallbackEnemies is used when enemy creation fails: three stormtrooper mooks.
func FallbackEnemies() CreateEnemiesInput {
	in := CreateEnemiesInput{}
	for i := 1; i <= 3; i++ {
		in.Enemies = append(in.Enemies, EnemySpec{
			Name:         fmt.Sprintf("Stormtrooper %d", i),
			Type:         string(Mook),
			Weapon:       "blaster_rifle",
			ActionPoints: 2,
		})
	}
	return in
}

// SkillBaseline returns the default skill table for an enemy tier.
//
// Postcondition: parry, endurance, willpower, and perception equal the tier
// base (MOOK 50, COMBATANT 60, BOSS 75); evade is base-10; athletics is base-5.
func SkillBaseline(t EnemyType) map[string]int {
	base := 50
	switch t {
	case Combatant:
		base = 60
	case Boss:
		base = 75
	}
	return map[string]int{
		"parry":      base,
		"evade":      base - 10,
		"endurance":  base,
		"willpower":  base,
		"perception": base,
		"athletics":  base - 5,
	}
}

// DefaultHitLocations builds the seven hit locations at their table maximums,
// armored for armorType. overrides replaces a location's max HP when positive.
//
// Postcondition: every location is undisabled with CurrentHP == MaxHP.
func DefaultHitLocations(tables *combat.Tables, armorType string, overrides map[string]int) map[string]*HitLocation {
	armor := tables.ArmorFor(armorType)
	out := make(map[string]*HitLocation, len(tables.HitLocations))
	for _, def := range tables.HitLocations {
		hp := def.MaxHP
		if v := overrides[def.Key]; v > 0 {
			hp = v
		}
		out[def.Key] = &HitLocation{
			MaxHP:       hp,
			CurrentHP:   hp,
			ArmorPoints: armor.ForRegion(def.Region),
		}
	}
	return out
}

// BuildEnemies converts enemy specs into a fresh roster with ids enemy_<index>.
//
// Action points are rounded to the nearest whole number with a floor of 1.
// Missing skills come from SkillBaseline. COMBATANT and BOSS enemies always
// track hit locations; a MOOK does only when locations are supplied.
func BuildEnemies(tables *combat.Tables, in CreateEnemiesInput) []*Enemy {
	enemies := make([]*Enemy, 0, len(in.Enemies))
	for i, spec := range in.Enemies {
		t := ParseEnemyType(spec.Type)
		ap := int(math.Round(spec.ActionPoints))
		if spec.ActionPoints == 0 || math.IsNaN(spec.ActionPoints) {
			ap = 2
		}
		if ap < 1 {
			ap = 1
		}
		armor := strings.ToLower(strings.TrimSpace(spec.ArmorType))
		if armor == "" {
			armor = "none"
		}
		skills := SkillBaseline(t)
		for k, v := range spec.Skills {
			skills[strings.ToLower(k)] = v
		}
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			name = fmt.Sprintf("Enemy %d", i+1)
		}
		en := &Enemy{
			ID:              fmt.Sprintf("enemy_%d", i),
			Name:            name,
			Type:            t,
			Weapon:          spec.Weapon,
			WeaponSize:      tables.WeaponSize(spec.Weapon),
			ArmorType:       armor,
			ActionPoints:    ap,
			MaxActionPoints: ap,
			Afflictions:     []string{},
			Engaged:         []string{},
			Alive:           true,
			Skills:          skills,
		}
		if t != Mook || len(spec.HitLocations) > 0 {
			en.HitLocations = DefaultHitLocations(tables, armor, spec.HitLocations)
		}
		enemies = append(enemies, en)
	}
	return enemies
}
