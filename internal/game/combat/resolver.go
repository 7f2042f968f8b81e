package combat

import (
	"strings"

	"go.uber.org/zap"
)

// defaultPercent is used when an upstream skill percentage is missing or non-positive.
const defaultPercent = 50

// Defender is the view of an enemy the resolver needs: identity for target
// matching and an action-point pool that defending draws from.
type Defender interface {
	DefenderID() string
	DefenderName() string
	RemainingAP() int
	SpendActionPoint()
}

// MatchTarget finds the item referenced by ref: an exact id match first, then
// the first item whose name or id contains ref case-insensitively.
//
// Postcondition: Returns (item, true) on a match, or (zero, false).
func MatchTarget[T any](items []T, ref string, id, name func(T) string) (T, bool) {
	var zero T
	for _, it := range items {
		if id(it) == ref {
			return it, true
		}
	}
	needle := strings.ToLower(ref)
	if needle == "" {
		return zero, false
	}
	for _, it := range items {
		if strings.Contains(strings.ToLower(name(it)), needle) || strings.Contains(strings.ToLower(id(it)), needle) {
			return it, true
		}
	}
	return zero, false
}

// ParryDamageReduction returns the damage that gets past a successful parry.
//
// Postcondition: defender size >= attacker size yields 0; one size smaller
// yields floor(base/2); two or more sizes smaller yields base. Unknown sizes yield base.
func ParryDamageReduction(attacker, defender WeaponSize, base int) int {
	a, d := attacker.Rank(), defender.Rank()
	if a < 0 || d < 0 {
		return base
	}
	switch diff := d - a; {
	case diff >= 0:
		return 0
	case diff == -1:
		return base / 2
	default:
		return base
	}
}

// Resolver evaluates attacks against the weapon tables.
type Resolver struct {
	tables *Tables
	logger *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: tables and logger must be non-nil.
func NewResolver(tables *Tables, logger *zap.Logger) *Resolver {
	return &Resolver{tables: tables, logger: logger}
}

// Tables returns the lookup tables the resolver consults.
func (r *Resolver) Tables() *Tables { return r.tables }

// Resolve computes one AttackResolution per defended target.
//
// Non-AoE actions process only the first defense. The attack roll is the
// player's reported roll when present, else rolls.Attack. Defenders whose
// reference matches no enemy are skipped. Defending spends one of the
// defender's action points; a defender with none defends at skill 0.
// Damage is never rolled here.
//
// Precondition: rolls.Attack in [1, 100]; rolls.Defense index-aligned with action.EnemyDefenses.
// Postcondition: len(result) <= len(action.EnemyDefenses); each TargetID is the matched enemy's exact id.
func (r *Resolver) Resolve(action ParsedAction, attackerID string, defenders []Defender, rolls Rolls) []AttackResolution {
	attackSkill := NormalizePercent(action.AttackerSkillValue, defaultPercent)
	attackRoll := rolls.Attack
	if supplied, ok := action.SuppliedRoll(); ok {
		attackRoll = supplied
	}
	attackDegree := ClassifyRoll(attackRoll, attackSkill)

	attackerSize := action.WeaponSize
	if !attackerSize.Valid() {
		attackerSize = r.tables.WeaponSize(action.WeaponUsed)
	}
	suggested := r.tables.DamageDice(action.WeaponUsed)

	defenses := action.EnemyDefenses
	if !action.IsAoE && len(defenses) > 1 {
		defenses = defenses[:1]
	}

	r.logger.Debug("resolving attack",
		zap.String("attacker", attackerID),
		zap.String("weapon", action.WeaponUsed),
		zap.Int("skill", attackSkill),
		zap.Int("roll", attackRoll),
		zap.Stringer("degree", attackDegree),
		zap.Int("defenses", len(defenses)),
	)

	results := make([]AttackResolution, 0, len(defenses))
	for i, def := range defenses {
		enemy, ok := MatchTarget(defenders, def.EnemyID, Defender.DefenderID, Defender.DefenderName)
		if !ok {
			r.logger.Info("attack target not found", zap.String("target", def.EnemyID))
			continue
		}

		defenseRoll := 100
		if i < len(rolls.Defense) {
			defenseRoll = rolls.Defense[i]
		}
		defenseType := DefenseParry
		rawSkill := def.ParrySkill
		if def.MustEvade {
			defenseType = DefenseEvade
			rawSkill = def.EvadeSkill
		}
		defenseSkill := NormalizePercent(rawSkill, defaultPercent)
		if enemy.RemainingAP() <= 0 {
			defenseSkill = 0
		}
		defenseDegree := ClassifyRoll(defenseRoll, defenseSkill)
		if enemy.RemainingAP() > 0 {
			enemy.SpendActionPoint()
		}

		defenderSize := def.WeaponSize
		if !defenderSize.Valid() {
			defenderSize = SizeMedium
		}

		side, levels := Award(attackDegree, defenseDegree)
		needsDamage := needsDamageRoll(attackDegree, defenseType, defenseDegree, attackerSize, defenderSize)

		effects := []string{}
		if defenseType == DefenseEvade {
			effects = append(effects, EffectProne)
		}

		choice := ChoiceNone
		switch {
		case needsDamage:
			choice = ChoiceDamage
		case levels > 0:
			choice = ChoiceSpecialEffect
		}

		res := AttackResolution{
			AttackerID:       attackerID,
			TargetID:         enemy.DefenderID(),
			AttackRoll:       attackRoll,
			AttackSkill:      attackSkill,
			AttackDegree:     attackDegree,
			DefenseRoll:      defenseRoll,
			DefenseSkill:     defenseSkill,
			DefenseType:      defenseType,
			DefenseDegree:    defenseDegree,
			LevelsOfSuccess:  levels,
			EffectsAwardedTo: side,
			NeedsDamageRoll:  needsDamage,
			Effects:          effects,
			WeaponSize:       attackerSize,
			EnemyWeaponSize:  defenderSize,
			PendingChoice:    choice,
			SuggestedDamage:  suggested,
		}
		r.logger.Debug("attack resolved",
			zap.String("target", res.TargetID),
			zap.Int("defense_roll", defenseRoll),
			zap.Int("defense_skill", defenseSkill),
			zap.String("defense_type", string(defenseType)),
			zap.Stringer("defense_degree", defenseDegree),
			zap.Int("levels", levels),
			zap.Bool("needs_damage", needsDamage),
		)
		results = append(results, res)
	}
	return results
}

// needsDamageRoll applies the hit decision table.
func needsDamageRoll(attack Degree, defenseType DefenseType, defense Degree, attacker, defender WeaponSize) bool {
	if !attack.Succeeded() {
		return false
	}
	if !defense.Succeeded() {
		return true
	}
	if defenseType == DefenseEvade {
		return false
	}
	if attack == Critical {
		return false
	}
	return defender.Rank() < attacker.Rank()
}
