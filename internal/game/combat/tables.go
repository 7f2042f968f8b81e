package combat

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// WeaponSize is the Mythras weapon size class used for parry comparisons.
type WeaponSize string

const (
	SizeSmall      WeaponSize = "S"
	SizeMedium     WeaponSize = "M"
	SizeLarge      WeaponSize = "L"
	SizeExtraLarge WeaponSize = "XL"
)

// Rank returns the ordinal of s (S=0 … XL=3), or -1 when s is not a known size.
func (s WeaponSize) Rank() int {
	switch s {
	case SizeSmall:
		return 0
	case SizeMedium:
		return 1
	case SizeLarge:
		return 2
	case SizeExtraLarge:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of S, M, L, XL.
func (s WeaponSize) Valid() bool { return s.Rank() >= 0 }

// Region groups hit locations for armor lookup.
type Region string

const (
	RegionHead  Region = "head"
	RegionTorso Region = "torso"
	RegionLimbs Region = "limbs"
)

// WeaponDef is one row of the weapon table.
type WeaponDef struct {
	Size   WeaponSize `yaml:"size"`
	Damage string     `yaml:"damage"`
}

// ArmorValues holds armor points per body region for one armor category.
type ArmorValues struct {
	Head  int `yaml:"head"`
	Torso int `yaml:"torso"`
	Limbs int `yaml:"limbs"`
}

// ForRegion returns the armor points protecting region.
func (a ArmorValues) ForRegion(r Region) int {
	switch r {
	case RegionHead:
		return a.Head
	case RegionTorso:
		return a.Torso
	default:
		return a.Limbs
	}
}

// HitLocationDef is one row of the d20 hit-location table.
type HitLocationDef struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Min    int    `yaml:"min"`
	Max    int    `yaml:"max"`
	MaxHP  int    `yaml:"max_hp"`
	Region Region `yaml:"region"`
	Vital  bool   `yaml:"vital"`
}

// Tables is the static weapon, armor, and hit-location data consulted by the
// resolver and the encounter applier. A Tables value is read-only after load.
type Tables struct {
	DefaultWeapon WeaponDef              `yaml:"default_weapon"`
	Weapons       map[string]WeaponDef   `yaml:"weapons"`
	Armor         map[string]ArmorValues `yaml:"armor"`
	HitLocations  []HitLocationDef       `yaml:"hit_locations"`
}

// LoadTables parses and validates table data.
//
// Postcondition: Returns valid Tables or a non-nil error naming every violation.
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing combat tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTablesFile reads table data from path.
//
// Precondition: path must name a readable YAML file.
func LoadTablesFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading combat tables %q: %w", path, err)
	}
	return LoadTables(data)
}

// DefaultTables returns the tables compiled into the binary.
//
// Postcondition: Returns non-nil Tables; panics if the embedded data is invalid.
func DefaultTables() *Tables {
	t, err := LoadTables(defaultTablesYAML)
	if err != nil {
		panic("combat: embedded tables invalid: " + err.Error())
	}
	return t
}

// Validate checks the table invariants: a sized default weapon, valid weapon
// sizes, and hit-location ranges that cover 1..20 without gaps or overlap.
//
// Postcondition: Returns nil iff all invariants hold.
func (t *Tables) Validate() error {
	var errs []error
	if !t.DefaultWeapon.Size.Valid() {
		errs = append(errs, fmt.Errorf("default weapon size %q invalid", t.DefaultWeapon.Size))
	}
	if t.DefaultWeapon.Damage == "" {
		errs = append(errs, errors.New("default weapon damage must not be empty"))
	}
	for name, w := range t.Weapons {
		if !w.Size.Valid() {
			errs = append(errs, fmt.Errorf("weapon %q size %q invalid", name, w.Size))
		}
	}
	if _, ok := t.Armor["none"]; !ok {
		errs = append(errs, errors.New("armor table must define \"none\""))
	}
	next := 1
	for _, loc := range t.HitLocations {
		if loc.Key == "" {
			errs = append(errs, errors.New("hit location key must not be empty"))
		}
		if loc.Min != next || loc.Max < loc.Min {
			errs = append(errs, fmt.Errorf("hit location %q range %d-%d does not continue at %d", loc.Key, loc.Min, loc.Max, next))
		}
		if loc.MaxHP <= 0 {
			errs = append(errs, fmt.Errorf("hit location %q max_hp must be > 0", loc.Key))
		}
		next = loc.Max + 1
	}
	if next != 21 {
		errs = append(errs, fmt.Errorf("hit locations must cover 1-20, ended at %d", next-1))
	}
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("combat tables validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// weaponKey normalises a weapon name for table lookup ("Blaster Rifle" → "blaster_rifle").
func weaponKey(name string) string {
	k := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

// WeaponSize returns the size class of weapon, or the default weapon size if unknown.
func (t *Tables) WeaponSize(weapon string) WeaponSize {
	if w, ok := t.Weapons[weaponKey(weapon)]; ok {
		return w.Size
	}
	return t.DefaultWeapon.Size
}

// DamageDice returns the suggested damage dice for weapon, falling back to the
// default weapon damage when the weapon is unknown or has no listed dice.
func (t *Tables) DamageDice(weapon string) string {
	if w, ok := t.Weapons[weaponKey(weapon)]; ok && w.Damage != "" {
		return w.Damage
	}
	return t.DefaultWeapon.Damage
}

// ArmorFor returns the armor values for armorType; unknown or empty types have no armor.
func (t *Tables) ArmorFor(armorType string) ArmorValues {
	if a, ok := t.Armor[strings.ToLower(strings.TrimSpace(armorType))]; ok {
		return a
	}
	return t.Armor["none"]
}

// HitLocation maps a d20 roll to a location. Rolls outside the table land on the chest.
func (t *Tables) HitLocation(roll int) HitLocationDef {
	for _, loc := range t.HitLocations {
		if roll >= loc.Min && roll <= loc.Max {
			return loc
		}
	}
	return t.Location("chest")
}

// Location returns the location definition for key, or a zero value when unknown.
func (t *Tables) Location(key string) HitLocationDef {
	for _, loc := range t.HitLocations {
		if loc.Key == key {
			return loc
		}
	}
	return HitLocationDef{}
}

// LocationKeys returns the hit-location keys in table order.
func (t *Tables) LocationKeys() []string {
	keys := make([]string, len(t.HitLocations))
	for i, loc := range t.HitLocations {
		keys[i] = loc.Key
	}
	return keys
}
