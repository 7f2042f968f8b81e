package encounter

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/combot/internal/game/combat"
)

// ErrNoPreviousAction is returned when there is no act that can be unwound.
var ErrNoPreviousAction = errors.New("no previous action found to edit")

// New creates an encounter for channelID with enemies built from in.
//
// Postcondition: Round == 1, CurrentTurn == 0, empty initiative, log, and pending queue.
func New(channelID string, tables *combat.Tables, in CreateEnemiesInput, now time.Time) *Encounter {
	return &Encounter{
		ID:             uuid.NewString(),
		ChannelID:      channelID,
		Round:          1,
		Initiative:     []*Participant{},
		Enemies:        BuildEnemies(tables, in),
		Log:            []string{},
		PendingActions: []*PendingAction{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewRound advances the round counter and refreshes action points.
// Damage, afflictions, and pending actions carry over.
//
// Postcondition: Round incremented by 1; every participant and enemy has
// ActionPoints == MaxActionPoints; CurrentTurn == 0; no act can be unwound.
func (e *Encounter) NewRound() {
	e.Round++
	for _, p := range e.Initiative {
		p.ActionPoints = p.MaxActionPoints
	}
	for _, en := range e.Enemies {
		en.ActionPoints = en.MaxActionPoints
	}
	e.CurrentTurn = 0
	e.LastAct = nil
}

// JoinInitiative adds a participant with the given initiative roll and
// re-sorts the order by roll, highest first. Ties keep insertion order.
//
// Precondition: maxAP >= 1.
// Postcondition: Returns ErrAlreadyInInitiative if userID already joined.
func (e *Encounter) JoinInitiative(userID, name string, roll, maxAP int) (*Participant, error) {
	if e.Participant(userID) != nil {
		return nil, ErrAlreadyInInitiative
	}
	p := &Participant{
		UserID:          userID,
		Name:            name,
		Roll:            roll,
		ActionPoints:    maxAP,
		MaxActionPoints: maxAP,
	}
	e.Initiative = append(e.Initiative, p)
	sort.SliceStable(e.Initiative, func(i, j int) bool {
		return e.Initiative[i].Roll > e.Initiative[j].Roll
	})
	return p, nil
}

// MarkAct records the state before userID's act so it can be unwound.
//
// Postcondition: LastAct holds a snapshot of e without any earlier checkpoint.
func (e *Encounter) MarkAct(userID string) error {
	prev := e.LastAct
	e.LastAct = nil
	data, err := json.Marshal(e)
	e.LastAct = prev
	if err != nil {
		return fmt.Errorf("checkpointing encounter %s: %w", e.ID, err)
	}
	e.LastAct = &Checkpoint{UserID: userID, LogIndex: len(e.Log), Snapshot: data}
	return nil
}

// Unwind restores the snapshot taken before userID's most recent act.
//
// The returned encounter keeps the identity fields and Version of e so that
// persistence treats it as the next revision. The log index returned is
// where the unwound act's entries began.
//
// Postcondition: Returns ErrNoPreviousAction when the latest act in the
// encounter was not made by userID or nothing was recorded.
func (e *Encounter) Unwind(userID string) (*Encounter, int, error) {
	cp := e.LastAct
	if cp == nil || cp.UserID != userID {
		return nil, 0, ErrNoPreviousAction
	}
	var restored Encounter
	if err := json.Unmarshal(cp.Snapshot, &restored); err != nil {
		return nil, 0, fmt.Errorf("restoring encounter %s: %w", e.ID, err)
	}
	restored.ID = e.ID
	restored.ChannelID = e.ChannelID
	restored.MessageID = e.MessageID
	restored.Version = e.Version
	restored.UpdatedAt = e.UpdatedAt
	restored.LastAct = nil
	return &restored, cp.LogIndex, nil
}

// Reverted describes what unwinding from e to restored gives back.
func Reverted(e, restored *Encounter) []string {
	var out []string
	for _, before := range restored.Enemies {
		now, ok := e.FindEnemy(before.ID)
		if !ok {
			continue
		}
		if now.Damage > before.Damage {
			out = append(out, fmt.Sprintf("Restored %d HP to %s", now.Damage-before.Damage, before.Name))
		}
		if !now.Alive && before.Alive {
			out = append(out, "Resurrected "+before.Name)
		}
	}
	for _, before := range restored.Initiative {
		now := e.Participant(before.UserID)
		if now != nil && before.ActionPoints > now.ActionPoints {
			out = append(out, fmt.Sprintf("Restored %d action point to %s", before.ActionPoints-now.ActionPoints, before.Name))
		}
	}
	return out
}
