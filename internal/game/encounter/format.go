package encounter

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/combot/internal/game/combat"
)

// FormatPending renders the prompt shown to the owner of a pending action.
func FormatPending(p *PendingAction) string {
	switch p.Kind {
	case KindAttackResult:
		var b strings.Builder
		b.WriteString("⚔️ Resolve attack")
		if ar := p.AttackResult; ar != nil {
			if ar.WantDamage {
				b.WriteString("\n   Roll damage (e.g., \"8 damage\")")
			}
			if ar.EffectCount > 0 {
				fmt.Fprintf(&b, "\n   Choose %d special effect(s) (e.g., \"bleed, impale\")", ar.EffectCount)
			}
		}
		b.WriteString("\n   You can reply in one message (e.g., \"8 damage, bleed\")")
		return b.String()
	case KindRollDamage:
		dmg := "weapon damage"
		if p.Damage != nil && p.Damage.WeaponDamage != "" {
			dmg = p.Damage.WeaponDamage
		}
		return "⚔️ **Roll damage**: " + dmg + "\n   Use: `/combot act [damage]` (e.g., \"/combot act 8 damage\")"
	case KindChooseEffect:
		var b strings.Builder
		count := 0
		if p.Effect != nil {
			count = p.Effect.Count
		}
		fmt.Fprintf(&b, "✨ **Choose %d special effect(s)**", count)
		if p.Effect != nil && p.Effect.AwardedTo == combat.SideDefender {
			b.WriteString("\n   The defender won: effects apply to the attacker")
		}
		if ef := p.Effect; ef != nil && ef.DefenseType == combat.DefenseParry && ef.DefenseDegree.Succeeded() {
			outcome := "partial block"
			if ef.ParryFullyBlocked {
				outcome = "fully blocked"
			}
			b.WriteString("\n   Parry outcome: " + outcome)
		}
		b.WriteString("\n   Describe the effects and any extra damage (e.g., \"Trip and 2 extra damage\")")
		return b.String()
	default:
		return "❓ Pending action"
	}
}

// FormatResolutions renders one summary line per resolution:
// "A vs D (degree vs degree)" plus the damage or hit marker and prone.
func FormatResolutions(resolutions []combat.AttackResolution) string {
	if len(resolutions) == 0 {
		return "⚔️ Action processed"
	}
	lines := make([]string, 0, len(resolutions))
	for _, r := range resolutions {
		line := fmt.Sprintf("%d vs %d (%s vs %s)", r.AttackRoll, r.DefenseRoll, r.AttackDegree, r.DefenseDegree)
		switch {
		case r.FinalDamage > 0:
			line += fmt.Sprintf(", %d damage to %s", r.FinalDamage, r.TargetID)
		case r.PendingChoice == combat.ChoiceDamage:
			line += ", hit"
		}
		if r.HasEffect(combat.EffectProne) {
			line += ", prone"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// OwnerName returns the display name of a pending action's owner.
func (e *Encounter) OwnerName(p *PendingAction) string {
	if p.UserID == RefereeID {
		return "GM"
	}
	if part := e.Participant(p.UserID); part != nil {
		return part.Name
	}
	return "Unknown"
}
