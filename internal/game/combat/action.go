package combat

import "strings"

// DefenseType identifies how a defender opposes an attack.
type DefenseType string

const (
	DefenseParry DefenseType = "parry"
	DefenseEvade DefenseType = "evade"
)

// PendingChoice describes what the attacker still owes after a resolution.
type PendingChoice string

const (
	ChoiceNone          PendingChoice = "none"
	ChoiceDamage        PendingChoice = "damage"
	ChoiceSpecialEffect PendingChoice = "special_effect"
)

// EffectProne is the immediate effect inflicted on a defender who evades.
const EffectProne = "prone"

// ParsedAction is the structured form of a freeform attack description as
// produced by the extraction step. Skill values may arrive as fractions and are
// normalised before use.
type ParsedAction struct {
	AttackerSkillName  string         `json:"attackerSkillName"`
	AttackerSkillValue float64        `json:"attackerSkillValue"`
	WeaponUsed         string         `json:"weaponUsed"`
	WeaponSize         WeaponSize     `json:"weaponSize"`
	IsRanged           bool           `json:"isRanged"`
	IsEnergy           bool           `json:"isEnergy"`
	TargetIDs          []string       `json:"targetIds"`
	IsAoE              bool           `json:"isAoE"`
	PlayerRoll         *int           `json:"playerRoll,omitempty"`
	EnemyDefenses      []EnemyDefense `json:"enemyDefenses"`
}

// HasTargets reports whether the action names at least one non-blank target.
func (a ParsedAction) HasTargets() bool {
	for _, id := range a.TargetIDs {
		if strings.TrimSpace(id) != "" {
			return true
		}
	}
	return false
}

// SuppliedRoll returns the d100 roll the player reported, if it is in [1, 100].
func (a ParsedAction) SuppliedRoll() (int, bool) {
	if a.PlayerRoll == nil || *a.PlayerRoll < 1 || *a.PlayerRoll > 100 {
		return 0, false
	}
	return *a.PlayerRoll, true
}

// EnemyDefense describes one target's ability to oppose the attack.
type EnemyDefense struct {
	EnemyID         string         `json:"enemyId"`
	CanParry        bool           `json:"canParry"`
	MustEvade       bool           `json:"mustEvade"`
	WeaponSize      WeaponSize     `json:"weaponSize,omitempty"`
	ParrySkill      float64        `json:"parrySkill"`
	EvadeSkill      float64        `json:"evadeSkill"`
	ArmorByLocation map[string]int `json:"armorByLocation,omitempty"`
}

// Rolls carries the fresh dice for one attack: the attacker's d100 and one
// d100 per defense, index-aligned with ParsedAction.EnemyDefenses.
type Rolls struct {
	Attack  int
	Defense []int
}

// AttackResolution is the transient outcome of one attack against one target.
// Damage fields stay zero until a damage value is supplied downstream.
type AttackResolution struct {
	AttackerID       string        `json:"attackerId"`
	TargetID         string        `json:"targetId"`
	AttackRoll       int           `json:"attackRoll"`
	AttackSkill      int           `json:"attackSkill"`
	AttackDegree     Degree        `json:"attackDegree"`
	DefenseRoll      int           `json:"defenseRoll"`
	DefenseSkill     int           `json:"defenseSkill"`
	DefenseType      DefenseType   `json:"defenseType"`
	DefenseDegree    Degree        `json:"defenseDegree"`
	LevelsOfSuccess  int           `json:"levelsOfSuccess"`
	EffectsAwardedTo Side          `json:"effectsAwardedTo,omitempty"`
	BaseDamage       int           `json:"baseDamage"`
	DamageBlocked    int           `json:"damageBlocked"`
	FinalDamage      int           `json:"finalDamage"`
	NeedsDamageRoll  bool          `json:"needsDamageRoll"`
	HitLocation      string        `json:"hitLocation,omitempty"`
	LocationRoll     int           `json:"locationRoll,omitempty"`
	Effects          []string      `json:"effects"`
	WeaponSize       WeaponSize    `json:"weaponSize"`
	EnemyWeaponSize  WeaponSize    `json:"enemyWeaponSize"`
	PendingChoice    PendingChoice `json:"pendingChoice"`
	SuggestedDamage  string        `json:"suggestedDamage"`
}

// HasEffect reports whether effect is among the resolution's immediate effects.
func (r AttackResolution) HasEffect(effect string) bool {
	for _, e := range r.Effects {
		if e == effect {
			return true
		}
	}
	return false
}

// DefenseSucceeded reports whether the defender's roll was a success or critical.
func (r AttackResolution) DefenseSucceeded() bool { return r.DefenseDegree.Succeeded() }

// ParryFullyBlocked reports whether a successful parry left nothing to roll for.
func (r AttackResolution) ParryFullyBlocked() bool {
	return r.DefenseType == DefenseParry && r.DefenseSucceeded() && !r.NeedsDamageRoll
}

// ParryReduces reports whether a successful parry still lets damage through,
// in which case ParryDamageReduction applies once the damage value is known.
func (r AttackResolution) ParryReduces() bool {
	return r.DefenseType == DefenseParry && r.DefenseSucceeded() && r.NeedsDamageRoll
}
