package encounter

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/combot/internal/game/combat"
)

// RefereeID is the owner sentinel for pending actions the referee must resolve.
const RefereeID = "__GM__"

// PendingKind identifies what a pending action asks for.
type PendingKind string

const (
	KindRollDamage   PendingKind = "roll_damage"
	KindChooseEffect PendingKind = "choose_special_effect"
	KindAttackResult PendingKind = "attack_result"
)

// DamageRequest asks the owner for a damage amount.
type DamageRequest struct {
	WeaponDamage string `json:"weaponDamage,omitempty"`
}

// EffectChoice asks the owner to pick special effects. AwardedTo is
// SideDefender when the referee picks effects that land on the attacker.
type EffectChoice struct {
	Count             int                `json:"count"`
	AwardedTo         combat.Side        `json:"awardedTo,omitempty"`
	DefenseType       combat.DefenseType `json:"defenseType,omitempty"`
	DefenseDegree     combat.Degree      `json:"defenseDegree"`
	ParryFullyBlocked bool               `json:"parryFullyBlocked"`
}

// AttackResultRequest asks for damage and effect picks in one reply. It
// carries the rolls that produced it so the reply can be applied without
// re-rolling.
type AttackResultRequest struct {
	EffectCount       int                `json:"effectCount"`
	EffectsAwardedTo  combat.Side        `json:"effectsAwardedTo,omitempty"`
	WeaponDamage      string             `json:"weaponDamage"`
	AttackRoll        int                `json:"attackRoll"`
	AttackDegree      combat.Degree      `json:"attackDegree"`
	DefenseRoll       int                `json:"defenseRoll"`
	DefenseType       combat.DefenseType `json:"defenseType"`
	DefenseDegree     combat.Degree      `json:"defenseDegree"`
	WeaponSize        combat.WeaponSize  `json:"weaponSize"`
	EnemyWeaponSize   combat.WeaponSize  `json:"enemyWeaponSize"`
	ParryFullyBlocked bool               `json:"parryFullyBlocked"`
	ParryReduces      bool               `json:"parryReduces"`
	WantDamage        bool               `json:"wantDamage"`
}

// PendingAction is a follow-up a user (or the referee) still owes. Exactly
// one payload matching Kind is set. A pending action is never mutated after
// registration; resolving it removes it.
type PendingAction struct {
	ID           string               `json:"id"`
	Kind         PendingKind          `json:"kind"`
	UserID       string               `json:"userId"`
	TargetID     string               `json:"targetId,omitempty"`
	ExpiresAt    *time.Time           `json:"expiresAt,omitempty"`
	Damage       *DamageRequest       `json:"damage,omitempty"`
	Effect       *EffectChoice        `json:"effect,omitempty"`
	AttackResult *AttackResultRequest `json:"attackResult,omitempty"`
}

// NewDamageRequest builds a roll_damage pending action.
func NewDamageRequest(userID, targetID string, req DamageRequest) *PendingAction {
	return &PendingAction{ID: uuid.NewString(), Kind: KindRollDamage, UserID: userID, TargetID: targetID, Damage: &req}
}

// NewEffectChoice builds a choose_special_effect pending action.
func NewEffectChoice(userID, targetID string, req EffectChoice) *PendingAction {
	return &PendingAction{ID: uuid.NewString(), Kind: KindChooseEffect, UserID: userID, TargetID: targetID, Effect: &req}
}

// NewAttackResult builds an attack_result pending action.
func NewAttackResult(userID, targetID string, req AttackResultRequest) *PendingAction {
	return &PendingAction{ID: uuid.NewString(), Kind: KindAttackResult, UserID: userID, TargetID: targetID, AttackResult: &req}
}

// Validate checks that exactly the payload matching Kind is present.
//
// Postcondition: Returns nil iff p is well formed.
func (p *PendingAction) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if p.UserID == "" {
		errs = append(errs, errors.New("owner must not be empty"))
	}
	set := 0
	for _, ok := range []bool{p.Damage != nil, p.Effect != nil, p.AttackResult != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		errs = append(errs, fmt.Errorf("expected exactly one payload, found %d", set))
	}
	switch p.Kind {
	case KindRollDamage:
		if p.Damage == nil {
			errs = append(errs, errors.New("roll_damage requires a damage payload"))
		}
	case KindChooseEffect:
		if p.Effect == nil {
			errs = append(errs, errors.New("choose_special_effect requires an effect payload"))
		}
	case KindAttackResult:
		if p.AttackResult == nil {
			errs = append(errs, errors.New("attack_result requires an attack result payload"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", p.Kind))
	}
	if len(errs) > 0 {
		return fmt.Errorf("pending action invalid: %v", errs)
	}
	return nil
}

// Expired reports whether p carries an expiry at or before now.
func (p *PendingAction) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// HasPending returns the pending action attached to userID's participant, else
// the first queued action owned by userID, else nil.
func (e *Encounter) HasPending(userID string) *PendingAction {
	if p := e.Participant(userID); p != nil && p.Pending != nil {
		return p.Pending
	}
	for _, a := range e.PendingActions {
		if a.UserID == userID {
			return a
		}
	}
	return nil
}

// PendingFor returns every pending action owned by userID: the attached one
// first, then queued ones in registration order.
func (e *Encounter) PendingFor(userID string) []*PendingAction {
	var out []*PendingAction
	if p := e.Participant(userID); p != nil && p.Pending != nil {
		out = append(out, p.Pending)
	}
	for _, a := range e.PendingActions {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// AllPending returns queued actions followed by participant-attached ones.
func (e *Encounter) AllPending() []*PendingAction {
	out := append([]*PendingAction(nil), e.PendingActions...)
	for _, p := range e.Initiative {
		if p.Pending != nil {
			out = append(out, p.Pending)
		}
	}
	return out
}

// AddPending registers a. It attaches to the owning participant's empty slot,
// otherwise it joins the encounter's overflow queue.
//
// Postcondition: a is reachable through HasPending or PendingFor for a.UserID.
func (e *Encounter) AddPending(a *PendingAction) {
	if p := e.Participant(a.UserID); p != nil && p.Pending == nil {
		p.Pending = a
		return
	}
	e.PendingActions = append(e.PendingActions, a)
}

// ResolvePending removes the pending action with id from wherever it is held.
//
// Postcondition: Returns true iff an action was removed; no reference to it remains.
func (e *Encounter) ResolvePending(id string) bool {
	for _, p := range e.Initiative {
		if p.Pending != nil && p.Pending.ID == id {
			p.Pending = nil
			return true
		}
	}
	for i, a := range e.PendingActions {
		if a.ID == id {
			e.PendingActions = append(e.PendingActions[:i], e.PendingActions[i+1:]...)
			return true
		}
	}
	return false
}

// DropExpiredPending removes every pending action whose expiry has passed.
//
// Postcondition: Returns the removed actions; none remain registered.
func (e *Encounter) DropExpiredPending(now time.Time) []*PendingAction {
	var dropped []*PendingAction
	for _, a := range e.AllPending() {
		if a.Expired(now) {
			e.ResolvePending(a.ID)
			dropped = append(dropped, a)
		}
	}
	return dropped
}
