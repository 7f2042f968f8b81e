// Package encounter owns the mutable state of one combat encounter: the
// initiative roster, the enemy roster with per-location hit points, the
// combat log, and the two-tier registry of pending actions. It also applies
// attack resolutions and pending-action replies to that state.
package encounter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/combot/internal/game/combat"
)

// ErrAlreadyInInitiative is returned when a user joins an initiative order twice.
var ErrAlreadyInInitiative = errors.New("already in the initiative order")

// EnemyType is the enemy tier. It selects the default skill baseline and
// whether hit locations are tracked.
type EnemyType string

const (
	Mook      EnemyType = "MOOK"
	Combatant EnemyType = "COMBATANT"
	Boss      EnemyType = "BOSS"
)

// ParseEnemyType normalises s to a known tier; unknown values become Mook.
func ParseEnemyType(s string) EnemyType {
	switch EnemyType(strings.ToUpper(strings.TrimSpace(s))) {
	case Combatant:
		return Combatant
	case Boss:
		return Boss
	default:
		return Mook
	}
}

// HitLocation tracks one body location of a location-tracked enemy.
// Invariant: once Disabled is true it is never cleared.
type HitLocation struct {
	MaxHP       int  `json:"maxHP"`
	CurrentHP   int  `json:"currentHP"`
	ArmorPoints int  `json:"armorPoints"`
	Disabled    bool `json:"disabled"`
}

// Enemy is one hostile combatant controlled by the referee.
type Enemy struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Type            EnemyType               `json:"type"`
	Weapon          string                  `json:"weapon"`
	WeaponSize      combat.WeaponSize       `json:"weaponSize"`
	ArmorType       string                  `json:"armorType"`
	ActionPoints    int                     `json:"actionPoints"`
	MaxActionPoints int                     `json:"maxActionPoints"`
	Damage          int                     `json:"damage"`
	HitLocations    map[string]*HitLocation `json:"hitLocations,omitempty"`
	Afflictions     []string                `json:"afflictions"`
	Engaged         []string                `json:"engaged"`
	Alive           bool                    `json:"alive"`
	Unconscious     bool                    `json:"unconscious,omitempty"`
	Skills          map[string]int          `json:"skills"`
}

// DefenderID implements combat.Defender.
func (e *Enemy) DefenderID() string { return e.ID }

// DefenderName implements combat.Defender.
func (e *Enemy) DefenderName() string { return e.Name }

// RemainingAP implements combat.Defender.
func (e *Enemy) RemainingAP() int { return e.ActionPoints }

// SpendActionPoint implements combat.Defender.
//
// Postcondition: ActionPoints >= 0.
func (e *Enemy) SpendActionPoint() {
	if e.ActionPoints > 0 {
		e.ActionPoints--
	}
}

// TracksLocations reports whether damage is applied per hit location.
func (e *Enemy) TracksLocations() bool { return len(e.HitLocations) > 0 }

// AddAffliction appends name unless already present.
//
// Postcondition: Returns true iff the affliction list grew.
func (e *Enemy) AddAffliction(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, a := range e.Afflictions {
		if a == name {
			return false
		}
	}
	e.Afflictions = append(e.Afflictions, name)
	return true
}

// DisabledLocations lists disabled location keys in the order given by keys.
func (e *Enemy) DisabledLocations(keys []string) []string {
	var out []string
	for _, k := range keys {
		if loc, ok := e.HitLocations[k]; ok && loc.Disabled {
			out = append(out, k)
		}
	}
	return out
}

// Participant is a player character in the initiative order.
type Participant struct {
	UserID          string         `json:"userId"`
	Name            string         `json:"name"`
	Roll            int            `json:"roll"`
	ActionPoints    int            `json:"actionPoints"`
	MaxActionPoints int            `json:"maxActionPoints"`
	Damage          int            `json:"damage,omitempty"`
	Afflictions     []string       `json:"afflictions,omitempty"`
	LastAction      string         `json:"lastAction,omitempty"`
	Pending         *PendingAction `json:"pendingAction,omitempty"`
}

// Checkpoint is the encounter state captured immediately before a user's
// most recent act, used to unwind that act.
type Checkpoint struct {
	UserID   string          `json:"userId"`
	LogIndex int             `json:"logIndex"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// Encounter is the full, persisted state of one channel's combat.
type Encounter struct {
	ID             string           `json:"id"`
	ChannelID      string           `json:"channelId"`
	MessageID      string           `json:"messageId,omitempty"`
	Version        int64            `json:"version"`
	Round          int              `json:"round"`
	CurrentTurn    int              `json:"currentTurn"`
	Initiative     []*Participant   `json:"initiative"`
	Enemies        []*Enemy         `json:"enemies"`
	Log            []string         `json:"log"`
	PendingActions []*PendingAction `json:"pendingActions"`
	LastAct        *Checkpoint      `json:"lastAct,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Participant returns the initiative entry for userID, or nil.
func (e *Encounter) Participant(userID string) *Participant {
	for _, p := range e.Initiative {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// CurrentParticipant returns the participant whose turn it is, or nil when
// the initiative order is empty.
func (e *Encounter) CurrentParticipant() *Participant {
	if e.CurrentTurn < 0 || e.CurrentTurn >= len(e.Initiative) {
		return nil
	}
	return e.Initiative[e.CurrentTurn]
}

// FindEnemy resolves ref by exact id, then by case-insensitive substring of name or id.
func (e *Encounter) FindEnemy(ref string) (*Enemy, bool) {
	return combat.MatchTarget(e.Enemies, ref,
		func(en *Enemy) string { return en.ID },
		func(en *Enemy) string { return en.Name })
}

// Defenders returns the enemy roster as resolver defenders.
func (e *Encounter) Defenders() []combat.Defender {
	out := make([]combat.Defender, len(e.Enemies))
	for i, en := range e.Enemies {
		out[i] = en
	}
	return out
}

// LivingEnemies returns enemies with Alive set, in roster order.
func (e *Encounter) LivingEnemies() []*Enemy {
	var out []*Enemy
	for _, en := range e.Enemies {
		if en.Alive {
			out = append(out, en)
		}
	}
	return out
}

// AppendLog appends non-empty lines to the combat log.
func (e *Encounter) AppendLog(lines ...string) {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			e.Log = append(e.Log, l)
		}
	}
}

// Clone returns a deep copy of e.
//
// Postcondition: mutating the copy never affects e.
func (e *Encounter) Clone() (*Encounter, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("cloning encounter %s: %w", e.ID, err)
	}
	var out Encounter
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cloning encounter %s: %w", e.ID, err)
	}
	return &out, nil
}
