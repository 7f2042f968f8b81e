// Package character defines the character-sheet data combot reads: a display
// name, named skill percentages, and characteristics.
package character

import (
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/combot/internal/game/combat"
)

// Skill is a named skill percentage from a character sheet.
type Skill struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Data is the subset of a character sheet used in combat. Unknown sheet
// fields are ignored.
type Data struct {
	ID              string         `json:"id,omitempty"`
	Name            string         `json:"name,omitempty"`
	Skills          []Skill        `json:"skills,omitempty"`
	Characteristics map[string]int `json:"characteristics,omitempty"`
}

// SkillValue looks up a skill by case-insensitive name and returns its
// normalised percentage.
//
// Postcondition: Returns (value, true) on a match, or (0, false).
func (d *Data) SkillValue(name string) (int, bool) {
	if d == nil {
		return 0, false
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range d.Skills {
		if strings.ToLower(strings.TrimSpace(s.Name)) == want {
			return combat.NormalizePercent(s.Value, 0), true
		}
	}
	return 0, false
}

// Intelligence returns the INT characteristic, or combat.DefaultIntelligence when absent.
func (d *Data) Intelligence() int {
	if d == nil {
		return combat.DefaultIntelligence
	}
	for k, v := range d.Characteristics {
		switch strings.ToLower(k) {
		case "int", "intelligence":
			if v > 0 {
				return v
			}
		}
	}
	return combat.DefaultIntelligence
}

// DisplayName returns the sheet name, or fallback when the sheet has none.
func (d *Data) DisplayName(fallback string) string {
	if d == nil || strings.TrimSpace(d.Name) == "" {
		return fallback
	}
	return d.Name
}

// SkillSummary renders the skill list as "Name: NN%" lines for extraction prompts.
func (d *Data) SkillSummary() string {
	if d == nil || len(d.Skills) == 0 {
		return "(no character sheet)"
	}
	lines := make([]string, 0, len(d.Skills))
	for _, s := range d.Skills {
		lines = append(lines, fmt.Sprintf("%s: %d%%", s.Name, combat.NormalizePercent(s.Value, 0)))
	}
	return strings.Join(lines, "\n")
}

// Link associates a user in a channel with their character sheet URL.
type Link struct {
	UserID    string
	ChannelID string
	SheetURL  string
	UpdatedAt time.Time
}
