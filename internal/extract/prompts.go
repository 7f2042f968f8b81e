package extract

const actionSystemPrompt = `You are a combat action parser. Your ONLY job is to parse and structure text into the provided JSON schema. Do not evaluate rules or apply game mechanics. Never invent values when the schema expects values present in the provided context; prefer null/omission over invention. Return strictly valid JSON conforming to the schema.`

const actionDomainPrompt = `Parse this combat action into structured data. You are ONLY parsing, not evaluating rules.

Extract:
- What skill is being used (match to character's actual skill name)
- Which enemies are targeted (by name)
- Weapon being used and its size category
- Defense determination:
  * Battle Droids with blaster_rifles CANNOT parry energy attacks - they must EVADE
  * Only lightsaber-wielding enemies OR Beskar weapons can PARRY melee energy attacks. Only lightsabers can parry blasters.
  * All other enemies MUST EVADE energy attacks
- Enemy defense skills are INTEGERS: MOOK: 50%, COMBATANT: 60%, BOSS: 75%
- Do NOT use decimal values like 1.23 for skills - use proper percentages

Critical playerRoll extraction rules (d100):
- Extract the exact dice roll digits from text like "99 to hit", "01 to hit", "00".
- Preserve all digits; do NOT drop leading zeros. "01" => 1, "09" => 9, "99" => 99.
- Treat "00" as 100.
- Never convert the roll into a percentage; do not normalize it.
- Set this value in playerRoll and do not compute success/failure.

Targeting rules:
- If the action is NOT AoE, select exactly ONE target, even if the name matches multiple enemies. Use the best single match.`

const enemySystemPrompt = `You design enemies for a Star Wars tabletop encounter using Mythras rules. Return strictly valid JSON conforming to the schema.`

const enemyDomainPrompt = `Create enemies for this Star Wars encounter. For each enemy specify:
- Name and type (MOOK/COMBATANT/BOSS)
- Weapon (determines size: lightsaber=L, blaster=M, etc)
- Armor type if any (none/common/durasteel/beskar)
- Action Points (turns per round): MUST be whole numbers (1, 2, 3, etc.)
  * MOOKs: typically 1-2 action points
  * COMBATANTs: typically 2 action points
  * BOSSes: typically 3+ action points
- Skills based on type and specifics:
  * MOOK: Basic 40-60% skills
  * COMBATANT: Competent 50-70% skills
  * BOSS: Elite 60-90% skills
  * Adjust based on description (elite stormtrooper > regular)
- Hit points for BOSS locations (if BOSS)

NOTE: Action Points = turns per round. NOT armor points (which reduce damage).`

const (
	damageSystemPrompt   = "You extract integer damage values and nothing else."
	effectSystemPrompt   = "You select effects/afflictions based on context and return them as an array, with any additional damage as extraDamage."
	combinedSystemPrompt = "You extract both a damage integer and a list of lasting afflictions in one pass. Do not infer values not present."
)

type object = map[string]any

func prop(typ, description string) object {
	p := object{"type": typ}
	if description != "" {
		p["description"] = description
	}
	return p
}

func sizeEnum() object {
	return object{"type": "string", "enum": []string{"S", "M", "L", "XL"}}
}

func locationProps(description string) object {
	props := object{}
	for _, key := range []string{"head", "chest", "abdomen", "rightArm", "leftArm", "rightLeg", "leftLeg"} {
		props[key] = prop("number", description)
	}
	return props
}

func actionSchema() object {
	return object{
		"type": "object",
		"properties": object{
			"attackerSkillName":  prop("string", "EXACT skill name from character sheet - DO NOT INVENT"),
			"attackerSkillValue": prop("number", "Skill value from CHARACTER SHEET NOT from action text (e.g., 99 not 9)"),
			"weaponUsed":         prop("string", "Weapon name (lightsaber, blaster_rifle, etc.)"),
			"weaponSize":         sizeEnum(),
			"isRanged":           prop("boolean", ""),
			"isEnergy":           prop("boolean", ""),
			"targetIds":          object{"type": "array", "items": prop("string", "")},
			"isAoE":              prop("boolean", ""),
			"playerRoll":         prop("number", "The dice roll from action text (e.g., 9 from '09 to hit') - NOT the skill value"),
			"enemyDefenses": object{
				"type": "array",
				"items": object{
					"type": "object",
					"properties": object{
						"enemyId":         prop("string", ""),
						"canParry":        prop("boolean", "Can they parry this attack?"),
						"mustEvade":       prop("boolean", "Must they evade (no AP, can't parry ranged, etc)?"),
						"weaponSize":      sizeEnum(),
						"parrySkill":      prop("number", "Integer percentage (50, 60, 75, etc. NOT decimals)"),
						"evadeSkill":      prop("number", "Integer percentage (50, 60, 75, etc. NOT decimals)"),
						"armorByLocation": object{"type": "object", "properties": locationProps("")},
					},
				},
			},
		},
		"required": []string{"attackerSkillName", "attackerSkillValue", "weaponUsed", "weaponSize", "isRanged", "isEnergy", "targetIds", "enemyDefenses"},
	}
}

func enemySchema() object {
	return object{
		"type": "object",
		"properties": object{
			"enemies": object{
				"type": "array",
				"items": object{
					"type": "object",
					"properties": object{
						"name":         prop("string", ""),
						"type":         object{"type": "string", "enum": []string{"MOOK", "COMBATANT", "BOSS"}},
						"weapon":       prop("string", "Weapon name (lightsaber, blaster_rifle, vibroblade, etc)"),
						"armorType":    object{"type": "string", "enum": []string{"none", "common", "durasteel", "beskar"}},
						"actionPoints": prop("number", "Action Points = turns per round (MUST be whole number: 1, 2, 3, etc. No fractions!)"),
						"skills": object{
							"type":        "object",
							"description": "Skill percentages for this enemy",
							"properties": object{
								"parry":     prop("number", "Parry skill % (melee defense)"),
								"evade":     prop("number", "Evade skill % (dodge attacks)"),
								"combat":    prop("number", "Primary combat skill %"),
								"endurance": prop("number", "Endurance % (resist wounds)"),
								"willpower": prop("number", "Willpower % (mental resistance)"),
							},
							"required": []string{"parry", "evade", "combat"},
						},
						"hitLocations": object{
							"type":        "object",
							"description": "Hit location HP (Hit Points, not Action/Armor Points) for BOSS enemies only",
							"properties":  locationProps("Hit Points for this location"),
						},
					},
					"required": []string{"name", "type", "weapon", "actionPoints", "skills"},
				},
			},
		},
		"required": []string{"enemies"},
	}
}

func damageSchema() object {
	return object{
		"type":       "object",
		"properties": object{"damage": prop("integer", "The damage value the player rolled")},
		"required":   []string{"damage"},
	}
}

func effectSchema() object {
	return object{
		"type": "object",
		"properties": object{
			"lastingAfflictions": object{
				"type":        "array",
				"items":       prop("string", ""),
				"description": "Lasting afflictions only (bleed, poison, impale, stunned, etc.)",
			},
			"instantEffects": object{
				"type":        "array",
				"items":       prop("string", ""),
				"description": "One-time/instant effects (bypass parry, choose location, knockback)",
			},
			"extraDamage": prop("integer", "Any additional damage from the chosen effects"),
			"bypassArmor": prop("boolean", "true only if the chosen effects include 'bypass armor'"),
		},
		"required": []string{"lastingAfflictions"},
	}
}

func combinedSchema() object {
	return object{
		"type": "object",
		"properties": object{
			"damage":             prop("integer", ""),
			"lastingAfflictions": object{"type": "array", "items": prop("string", "")},
			"extraDamage":        prop("integer", ""),
			"bypassArmor":        prop("boolean", ""),
		},
	}
}
