package encounter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/game/combat"
	"github.com/cory-johannsen/combot/internal/game/dice"
)

// ResolutionPayload is a reply to a pending action.
type ResolutionPayload struct {
	Damage             *int     `json:"damage,omitempty"`
	LastingAfflictions []string `json:"lastingAfflictions,omitempty"`
	ExtraDamage        *int     `json:"extraDamage,omitempty"`
	BypassArmor        bool     `json:"bypassArmor,omitempty"`
}

// Empty reports whether the payload supplies no damage, afflictions, or extra damage.
func (p ResolutionPayload) Empty() bool {
	return p.Damage == nil && p.ExtraDamage == nil && len(p.afflictions()) == 0
}

func (p ResolutionPayload) afflictions() []string {
	var out []string
	for _, a := range p.LastingAfflictions {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Outcome reports the result of applying a pending-action reply.
type Outcome struct {
	// Valid is false when nothing was applied and the pending action remains.
	Valid bool
	// Message is the human-readable summary appended to the combat log when Valid.
	Message string
	// Reason explains an invalid outcome.
	Reason string
}

// Applier mutates encounters with attack resolutions and pending replies.
type Applier struct {
	tables     *combat.Tables
	roller     *dice.Roller
	logger     *zap.Logger
	pendingTTL time.Duration
	now        func() time.Time
}

// NewApplier creates an Applier. A positive pendingTTL stamps every created
// pending action with an expiry.
//
// Precondition: tables, roller, and logger must be non-nil.
func NewApplier(tables *combat.Tables, roller *dice.Roller, logger *zap.Logger, pendingTTL time.Duration) *Applier {
	return &Applier{tables: tables, roller: roller, logger: logger, pendingTTL: pendingTTL, now: time.Now}
}

// WithClock replaces the time source used for expiry stamps.
func (a *Applier) WithClock(now func() time.Time) *Applier {
	a.now = now
	return a
}

// ApplyResolutions applies resolutions made by userID to enc and registers the
// pending actions they demand.
//
// Any damage already carried by a resolution is applied, immediate effects
// become afflictions, and the acting participant spends one action point. When
// that empties their pool the turn passes to the next participant. Special
// effects won by the defender become a choose_special_effect action owned by
// RefereeID and aimed at the attacker; any damage leg stays with the attacker.
//
// Postcondition: Returns the pending actions registered, in resolution order.
func (a *Applier) ApplyResolutions(enc *Encounter, resolutions []combat.AttackResolution, userID string) []*PendingAction {
	for _, r := range resolutions {
		enemy, ok := enc.FindEnemy(r.TargetID)
		if !ok {
			a.logger.Info("resolution target missing", zap.String("encounter", enc.ID), zap.String("target", r.TargetID))
			continue
		}
		if r.FinalDamage > 0 {
			a.damageEnemy(enemy, r.FinalDamage, false, r.HitLocation)
		}
		for _, eff := range r.Effects {
			enemy.AddAffliction(eff)
		}
	}

	if p := enc.Participant(userID); p != nil {
		if p.ActionPoints > 0 {
			p.ActionPoints--
		}
		if p.ActionPoints == 0 {
			enc.CurrentTurn = (enc.CurrentTurn + 1) % len(enc.Initiative)
		}
	}

	var created []*PendingAction
	register := func(pa *PendingAction) {
		if a.pendingTTL > 0 {
			exp := a.now().Add(a.pendingTTL)
			pa.ExpiresAt = &exp
		}
		enc.AddPending(pa)
		created = append(created, pa)
	}
	for _, r := range resolutions {
		target := r.TargetID
		if enemy, ok := enc.FindEnemy(r.TargetID); ok {
			target = enemy.ID
		}
		defenderWon := r.EffectsAwardedTo == combat.SideDefender && r.LevelsOfSuccess > 0
		attackerEffects := r.LevelsOfSuccess
		if defenderWon {
			attackerEffects = 0
		}

		if r.NeedsDamageRoll || attackerEffects > 0 {
			awarded := r.EffectsAwardedTo
			if attackerEffects == 0 {
				awarded = ""
			}
			register(NewAttackResult(userID, target, AttackResultRequest{
				EffectCount:       attackerEffects,
				EffectsAwardedTo:  awarded,
				WeaponDamage:      r.SuggestedDamage,
				AttackRoll:        r.AttackRoll,
				AttackDegree:      r.AttackDegree,
				DefenseRoll:       r.DefenseRoll,
				DefenseType:       r.DefenseType,
				DefenseDegree:     r.DefenseDegree,
				WeaponSize:        r.WeaponSize,
				EnemyWeaponSize:   r.EnemyWeaponSize,
				ParryFullyBlocked: r.ParryFullyBlocked(),
				ParryReduces:      r.ParryReduces(),
				WantDamage:        r.NeedsDamageRoll,
			}))
		}
		// Effects won by the defender are picked by the referee and land on the attacker.
		if defenderWon {
			register(NewEffectChoice(RefereeID, userID, EffectChoice{
				Count:             r.LevelsOfSuccess,
				AwardedTo:         combat.SideDefender,
				DefenseType:       r.DefenseType,
				DefenseDegree:     r.DefenseDegree,
				ParryFullyBlocked: r.ParryFullyBlocked(),
			}))
		}
	}
	return created
}

// ResolvePending applies payload to pending and removes it from enc.
//
// Main damage is reduced by a partial parry when the originating attack was
// partially parried. Extra damage is applied unreduced. An empty payload, or
// one with nothing the pending kind accepts, yields an invalid Outcome and
// leaves enc untouched.
//
// Postcondition: when Outcome.Valid, pending is no longer registered and the
// message has been appended to the log.
func (a *Applier) ResolvePending(enc *Encounter, pending *PendingAction, payload ResolutionPayload) Outcome {
	if payload.Empty() {
		return Outcome{Reason: "no damage or afflictions were supplied"}
	}
	var parts []string
	switch pending.Kind {
	case KindAttackResult:
		parts = a.applyPayload(enc, pending, payload, true)
	case KindRollDamage:
		if payload.Damage == nil {
			return Outcome{Reason: "a damage amount is required"}
		}
		parts = a.applyPayload(enc, pending, ResolutionPayload{Damage: payload.Damage, BypassArmor: payload.BypassArmor}, false)
	case KindChooseEffect:
		if payload.ExtraDamage == nil && len(payload.afflictions()) == 0 {
			return Outcome{Reason: "special effects or extra damage are required"}
		}
		parts = a.applyPayload(enc, pending, ResolutionPayload{
			LastingAfflictions: payload.LastingAfflictions,
			ExtraDamage:        payload.ExtraDamage,
			BypassArmor:        payload.BypassArmor,
		}, false)
	default:
		return Outcome{Reason: fmt.Sprintf("unsupported pending action %q", pending.Kind)}
	}
	enc.ResolvePending(pending.ID)
	msg := strings.Join(parts, " \n")
	enc.AppendLog(msg)
	a.logger.Info("pending action resolved",
		zap.String("encounter", enc.ID),
		zap.String("pending", pending.ID),
		zap.String("kind", string(pending.Kind)),
		zap.String("target", pending.TargetID),
	)
	return Outcome{Valid: true, Message: msg}
}

// ResolveCombined applies one reply to a roll_damage and a
// choose_special_effect pending action held by the same user: damage goes to
// the first, afflictions and extra damage to the second.
//
// Postcondition: Valid iff at least one of the two was resolved.
func (a *Applier) ResolveCombined(enc *Encounter, damage, effect *PendingAction, payload ResolutionPayload) Outcome {
	var msgs []string
	if payload.Damage != nil {
		if out := a.ResolvePending(enc, damage, ResolutionPayload{Damage: payload.Damage, BypassArmor: payload.BypassArmor}); out.Valid {
			msgs = append(msgs, out.Message)
		}
	}
	if payload.ExtraDamage != nil || len(payload.afflictions()) > 0 {
		if out := a.ResolvePending(enc, effect, ResolutionPayload{
			LastingAfflictions: payload.LastingAfflictions,
			ExtraDamage:        payload.ExtraDamage,
			BypassArmor:        payload.BypassArmor,
		}); out.Valid {
			msgs = append(msgs, out.Message)
		}
	}
	if len(msgs) == 0 {
		return Outcome{Reason: "could not extract damage or effects from the reply"}
	}
	return Outcome{Valid: true, Message: strings.Join(msgs, "\n")}
}

func (a *Applier) applyPayload(enc *Encounter, pending *PendingAction, payload ResolutionPayload, parry bool) []string {
	if pending.Effect != nil && pending.Effect.AwardedTo == combat.SideDefender {
		return a.afflictAttacker(enc, pending, payload)
	}
	var parts []string
	enemy, ok := enc.FindEnemy(pending.TargetID)
	if !ok || pending.TargetID == "" {
		a.logger.Info("pending target missing", zap.String("encounter", enc.ID), zap.String("target", pending.TargetID))
		return parts
	}
	if payload.Damage != nil {
		amount := *payload.Damage
		if ar := pending.AttackResult; parry && ar != nil && ar.ParryReduces {
			amount = combat.ParryDamageReduction(ar.WeaponSize, ar.EnemyWeaponSize, amount)
		}
		if line := a.damageEnemy(enemy, amount, payload.BypassArmor, ""); line != "" {
			parts = append(parts, line)
		}
	}
	if payload.ExtraDamage != nil {
		if line := a.damageEnemy(enemy, *payload.ExtraDamage, payload.BypassArmor, ""); line != "" {
			parts = append(parts, line)
		}
	}
	if affl := payload.afflictions(); len(affl) > 0 {
		for _, name := range affl {
			enemy.AddAffliction(name)
		}
		parts = append(parts, "+ "+strings.Join(affl, ", "))
	}
	return parts
}

// afflictAttacker applies defender-won effects to the participant named by
// pending.TargetID. Extra damage is added to their running total unreduced.
func (a *Applier) afflictAttacker(enc *Encounter, pending *PendingAction, payload ResolutionPayload) []string {
	victim := enc.Participant(pending.TargetID)
	if victim == nil {
		a.logger.Info("defensive effect target missing", zap.String("encounter", enc.ID), zap.String("target", pending.TargetID))
		return nil
	}
	var parts []string
	if payload.ExtraDamage != nil && *payload.ExtraDamage > 0 {
		victim.Damage += *payload.ExtraDamage
		parts = append(parts, fmt.Sprintf("%d damage to %s", *payload.ExtraDamage, victim.Name))
	}
	if affl := payload.afflictions(); len(affl) > 0 {
		for _, name := range affl {
			if !slices.Contains(victim.Afflictions, name) {
				victim.Afflictions = append(victim.Afflictions, name)
			}
		}
		parts = append(parts, "+ "+strings.Join(affl, ", ")+" on "+victim.Name)
	}
	return parts
}

// damageEnemy applies amount to enemy and returns the log line describing it.
// Location-tracked enemies take the hit at location (rolled when empty),
// reduced by that location's armor unless bypass is set.
func (a *Applier) damageEnemy(enemy *Enemy, amount int, bypass bool, location string) string {
	if amount <= 0 {
		return ""
	}
	final := amount
	armorReduced := false
	locName := ""

	if enemy.TracksLocations() {
		def := a.tables.Location(location)
		if def.Key == "" {
			def = a.tables.HitLocation(a.roller.D20("hit location"))
		}
		locName = def.Name
		if seg, ok := enemy.HitLocations[def.Key]; ok {
			if !bypass && seg.ArmorPoints > 0 {
				final = max(0, final-seg.ArmorPoints)
				armorReduced = final != amount
			}
			seg.CurrentHP -= final
			if seg.CurrentHP <= 0 && !seg.Disabled {
				seg.Disabled = true
				switch {
				case enemy.Type != Boss:
					enemy.Alive = false
				case def.Vital:
					enemy.Unconscious = true
					enemy.Alive = false
				}
			}
		}
	}
	enemy.Damage += final
	if enemy.Type == Mook && final > 0 {
		enemy.Alive = false
	}

	line := fmt.Sprintf("%d damage", final)
	if locName != "" {
		line += " " + strings.ToLower(locName)
	}
	line += " to " + enemy.Name
	if armorReduced {
		line += " (armor)"
	}
	if !enemy.Alive {
		line += ", defeated"
	}
	a.logger.Debug("enemy damaged",
		zap.String("enemy", enemy.ID),
		zap.Int("amount", amount),
		zap.Int("final", final),
		zap.String("location", locName),
		zap.Bool("alive", enemy.Alive),
	)
	return line
}
