// Package condition catalogs the special effects an opposed roll can award
// and canonicalises the names players use for them.
package condition

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Side is the party of an opposed roll an effect is available to.
type Side string

const (
	Offensive Side = "offensive"
	Defensive Side = "defensive"
)

// EffectDef is the static definition of a special effect, loaded from YAML.
type EffectDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Side        Side   `yaml:"side"`
	// Lasting effects stay on the target as afflictions; the rest resolve
	// immediately.
	Lasting bool `yaml:"lasting"`
	// Aliases are extra spellings that resolve to this effect.
	Aliases []string `yaml:"aliases"`
}

//go:embed effects.yaml
var defaultCatalog []byte

// Registry holds all known EffectDefs keyed by ID.
type Registry struct {
	defs  map[string]*EffectDef
	index map[string]*EffectDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*EffectDef), index: make(map[string]*EffectDef)}
}

func key(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(s, "_", " "))), " ")
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *EffectDef) {
	r.defs[def.ID] = def
	for _, k := range append([]string{def.ID, def.Name}, def.Aliases...) {
		if k = key(k); k != "" {
			r.index[k] = def
		}
	}
}

// Get returns the EffectDef whose id, name, or alias matches ref
// case-insensitively, or (nil, false) if not found.
func (r *Registry) Get(ref string) (*EffectDef, bool) {
	d, ok := r.index[key(ref)]
	return d, ok
}

// All returns a snapshot slice of all registered EffectDefs ordered by ID.
func (r *Registry) All() []*EffectDef {
	out := make([]*EffectDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Names returns the display names of the effects available to side, sorted.
func (r *Registry) Names(side Side) []string {
	var out []string
	for _, d := range r.All() {
		if d.Side == side {
			out = append(out, d.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Canonical returns the catalog name for ref, or ref trimmed when the
// catalog does not know it.
func (r *Registry) Canonical(ref string) string {
	if d, ok := r.Get(ref); ok {
		return d.Name
	}
	return strings.TrimSpace(ref)
}

// Default returns the built-in Mythras special-effect catalog.
//
// Postcondition: Returns a non-empty Registry.
func Default() *Registry {
	reg, err := LoadCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("condition: embedded catalog is invalid: %v", err))
	}
	return reg
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	reg, err := LoadCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return reg, nil
}

// LoadCatalog parses a YAML document of the form {effects: [...]}.
//
// Postcondition: Returns an error if any effect lacks an id or name, or
// has a side other than offensive or defensive.
func LoadCatalog(data []byte) (*Registry, error) {
	var doc struct {
		Effects []EffectDef `yaml:"effects"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding effect catalog: %w", err)
	}
	reg := NewRegistry()
	for i := range doc.Effects {
		def := &doc.Effects[i]
		if def.ID == "" || def.Name == "" {
			return nil, fmt.Errorf("effect %d: id and name are required", i)
		}
		if def.Side != Offensive && def.Side != Defensive {
			return nil, fmt.Errorf("effect %q: unknown side %q", def.ID, def.Side)
		}
		reg.Register(def)
	}
	return reg, nil
}
