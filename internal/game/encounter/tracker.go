package encounter

import (
	"fmt"
	"strings"
)

// recentLogLines bounds the log excerpt carried by a tracker.
const recentLogLines = 10

// TrackerParticipant is one row of the initiative section.
type TrackerParticipant struct {
	UserID          string `json:"userId"`
	Name            string `json:"name"`
	Current         bool   `json:"current"`
	ActionPoints    int    `json:"actionPoints"`
	MaxActionPoints int    `json:"maxActionPoints"`
	Damage          int    `json:"damage"`
	HasPending      bool   `json:"hasPending"`
}

// TrackerEnemy is one row of the living-enemy section.
type TrackerEnemy struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	Weapon            string   `json:"weapon"`
	ActionPoints      int      `json:"actionPoints"`
	MaxActionPoints   int      `json:"maxActionPoints"`
	ArmorType         string   `json:"armorType"`
	Damage            int      `json:"damage"`
	Afflictions       []string `json:"afflictions"`
	DisabledLocations []string `json:"disabledLocations,omitempty"`
}

// TrackerPending is one outstanding prompt.
type TrackerPending struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Prompt string `json:"prompt"`
}

// Tracker is the renderable summary of an encounter.
type Tracker struct {
	EncounterID string               `json:"encounterId"`
	ChannelID   string               `json:"channelId"`
	Round       int                  `json:"round"`
	Initiative  []TrackerParticipant `json:"initiative"`
	Enemies     []TrackerEnemy       `json:"enemies"`
	RecentLog   []string             `json:"recentLog"`
	Pending     []TrackerPending     `json:"pending"`
	CurrentTurn string               `json:"currentTurn"`
	Mention     string               `json:"mention"`
}

// BuildTracker summarises enc for display. locationOrder fixes the order of
// disabled-location lists.
func BuildTracker(enc *Encounter, locationOrder []string) Tracker {
	t := Tracker{
		EncounterID: enc.ID,
		ChannelID:   enc.ChannelID,
		Round:       enc.Round,
		Initiative:  []TrackerParticipant{},
		Enemies:     []TrackerEnemy{},
		Pending:     []TrackerPending{},
	}
	for i, p := range enc.Initiative {
		t.Initiative = append(t.Initiative, TrackerParticipant{
			UserID:          p.UserID,
			Name:            p.Name,
			Current:         i == enc.CurrentTurn,
			ActionPoints:    p.ActionPoints,
			MaxActionPoints: p.MaxActionPoints,
			Damage:          p.Damage,
			HasPending:      p.Pending != nil,
		})
	}
	for _, en := range enc.LivingEnemies() {
		t.Enemies = append(t.Enemies, TrackerEnemy{
			ID:                en.ID,
			Name:              en.Name,
			Type:              string(en.Type),
			Weapon:            en.Weapon,
			ActionPoints:      en.ActionPoints,
			MaxActionPoints:   en.MaxActionPoints,
			ArmorType:         en.ArmorType,
			Damage:            en.Damage,
			Afflictions:       append([]string(nil), en.Afflictions...),
			DisabledLocations: en.DisabledLocations(locationOrder),
		})
	}
	start := max(0, len(enc.Log)-recentLogLines)
	t.RecentLog = append([]string{}, enc.Log[start:]...)

	gmPending := false
	for _, p := range enc.AllPending() {
		if p.UserID == RefereeID {
			gmPending = true
		}
		t.Pending = append(t.Pending, TrackerPending{ID: p.ID, Owner: enc.OwnerName(p), Prompt: FormatPending(p)})
	}

	if cur := enc.CurrentParticipant(); cur != nil {
		t.CurrentTurn = cur.Name
		if cur.Pending != nil {
			t.Mention = fmt.Sprintf("<@%s> complete your pending action!", cur.UserID)
		} else {
			t.Mention = fmt.Sprintf("<@%s> it's your turn!", cur.UserID)
		}
	} else if len(enc.Initiative) == 0 {
		t.Mention = "⚔️ **Combat Started!** Roll initiative to join the fight!"
	}
	if gmPending {
		if t.Mention != "" {
			t.Mention += " • @GM choose special effects"
		} else {
			t.Mention = "@GM choose special effects"
		}
	}
	return t
}

// Text renders the tracker as plain chat text.
func (t Tracker) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚔️ **Combat Round %d**\n", t.Round)
	b.WriteString("\n📊 **Initiative Order**\n")
	if len(t.Initiative) == 0 {
		b.WriteString("⚔️ **Combat Ready** - Players: Use `/combot initiative` to join!\n")
	}
	for _, p := range t.Initiative {
		marker := "　"
		if p.Current {
			marker = "➤"
		}
		fmt.Fprintf(&b, "%s **%s** - %d/%d AP", marker, p.Name, p.ActionPoints, p.MaxActionPoints)
		if p.Damage > 0 {
			fmt.Fprintf(&b, " [%d dmg]", p.Damage)
		}
		if p.HasPending {
			b.WriteString(" ⏳")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n👾 **Enemies**\n")
	if len(t.Enemies) == 0 {
		b.WriteString("*None*\n")
	}
	for _, e := range t.Enemies {
		fmt.Fprintf(&b, "**%s** (%s) - %s %d/%d AP", e.Name, e.Type, e.Weapon, e.ActionPoints, e.MaxActionPoints)
		if e.ArmorType != "" && e.ArmorType != "none" {
			fmt.Fprintf(&b, " [%s]", e.ArmorType)
		}
		if e.Damage > 0 {
			fmt.Fprintf(&b, " -%d HP", e.Damage)
		}
		if len(e.Afflictions) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(e.Afflictions, ", "))
		}
		if len(e.DisabledLocations) > 0 {
			fmt.Fprintf(&b, " [Disabled: %s]", strings.Join(e.DisabledLocations, ", "))
		}
		b.WriteString("\n")
	}

	if len(t.RecentLog) > 0 {
		b.WriteString("\n📝 **Recent Actions**\n")
		b.WriteString(strings.Join(t.RecentLog, "\n"))
		b.WriteString("\n")
	}
	if len(t.Pending) > 0 {
		b.WriteString("\n⏳ **Pending Actions**\n")
		rows := make([]string, len(t.Pending))
		for i, p := range t.Pending {
			rows[i] = fmt.Sprintf("**%s**: %s", p.Owner, p.Prompt)
		}
		b.WriteString(strings.Join(rows, "\n\n"))
		b.WriteString("\n")
	}
	if t.CurrentTurn != "" {
		fmt.Fprintf(&b, "\nCurrent Turn: %s", t.CurrentTurn)
	} else {
		b.WriteString("\nWaiting for players to join")
	}
	if t.Mention != "" {
		b.WriteString("\n" + t.Mention)
	}
	return b.String()
}
