// Package combat implements the Mythras attack rules for combot: percentile
// degree classification, opposed-roll comparison, weapon and armor tables,
// and the attack resolver that turns a structured action into per-target
// resolutions.
package combat

import (
	"fmt"
	"math"
)

// Degree is the Mythras 4-tier result of a percentile skill test.
// Values are ordered so that a higher Degree is a better result.
type Degree int

const (
	Fumble Degree = iota
	Failure
	Success
	Critical
)

// String returns the lower-case degree label used in logs and persisted snapshots.
func (d Degree) String() string {
	switch d {
	case Fumble:
		return "fumble"
	case Failure:
		return "failure"
	case Success:
		return "success"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Succeeded reports whether d is a success or a critical.
func (d Degree) Succeeded() bool { return d == Success || d == Critical }

// MarshalText encodes the degree as its label.
func (d Degree) MarshalText() ([]byte, error) {
	if d < Fumble || d > Critical {
		return nil, fmt.Errorf("combat: invalid degree %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a degree label.
func (d *Degree) UnmarshalText(text []byte) error {
	switch string(text) {
	case "fumble":
		*d = Fumble
	case "failure":
		*d = Failure
	case "success":
		*d = Success
	case "critical":
		*d = Critical
	default:
		return fmt.Errorf("combat: unknown degree %q", string(text))
	}
	return nil
}

// CriticalThreshold returns the highest roll that counts as a critical for skill.
//
// Postcondition: Returns max(1, ceil(skill/10)).
func CriticalThreshold(skill int) int {
	t := int(math.Ceil(float64(skill) / 10))
	if t < 1 {
		return 1
	}
	return t
}

// ClassifyRoll determines the degree of success of a d100 roll against skill.
//
// Check order is significant: a skill above 100 fumbles only on exactly 100;
// otherwise 99 and 100 fumble; then critical, success, failure.
//
// Precondition: roll in [1, 100].
// Postcondition: Returns exactly one of Critical, Success, Failure, Fumble.
func ClassifyRoll(roll, skill int) Degree {
	switch {
	case roll == 100 && skill > 100:
		return Fumble
	case roll >= 99 && skill <= 100:
		return Fumble
	case roll <= CriticalThreshold(skill):
		return Critical
	case roll <= skill:
		return Success
	default:
		return Failure
	}
}

// Side identifies which party of an opposed roll is awarded special effects.
type Side string

const (
	SideNone     Side = ""
	SideAttacker Side = "attacker"
	SideDefender Side = "defender"
)

// LevelsOfSuccess returns the number of special effects the winner of an
// opposed roll may choose.
//
// Postcondition: Returns 0 when attack is Failure or Fumble; otherwise
// max(0, attack-defense).
func LevelsOfSuccess(attack, defense Degree) int {
	if !attack.Succeeded() {
		return 0
	}
	if diff := int(attack - defense); diff > 0 {
		return diff
	}
	return 0
}

// Award determines who wins an opposed roll and by how many levels.
// A failed attack awards nobody.
//
// Postcondition: levels == 0 iff side == SideNone.
func Award(attack, defense Degree) (Side, int) {
	if !attack.Succeeded() {
		return SideNone, 0
	}
	switch {
	case attack > defense:
		return SideAttacker, int(attack - defense)
	case defense > attack:
		return SideDefender, int(defense - attack)
	default:
		return SideNone, 0
	}
}

// NormalizePercent coerces an externally supplied percentage into a whole
// number. Fractions in (0, 1] are scaled by 100.
//
// Postcondition: NaN or v <= 0 yields fallback; v > 1 yields round(v);
// otherwise round(v*100).
func NormalizePercent(v float64, fallback int) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return fallback
	case v > 1:
		return int(math.Round(v))
	default:
		return int(math.Round(v * 100))
	}
}
