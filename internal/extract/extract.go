// Package extract turns freeform player and referee text into the structured
// inputs the combat engine consumes. The text-understanding itself is
// delegated to a Completer; this package owns prompts, schemas, and the
// validation of whatever comes back.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/game/character"
	"github.com/cory-johannsen/combot/internal/game/combat"
	"github.com/cory-johannsen/combot/internal/game/condition"
	"github.com/cory-johannsen/combot/internal/game/encounter"
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("extract: completion contained no JSON object")

// Completer answers a prompt with a JSON document conforming to schema.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, schema map[string]any) ([]byte, error)
}

// Result is a validated extraction: either a usable Value or a Reason it is unusable.
type Result[T any] struct {
	Value  T
	Reason string
	ok     bool
}

// Valid wraps a usable value.
func Valid[T any](v T) Result[T] { return Result[T]{Value: v, ok: true} }

// Invalid records why no usable value could be extracted.
func Invalid[T any](reason string) Result[T] { return Result[T]{Reason: reason} }

// OK reports whether the result carries a usable value.
func (r Result[T]) OK() bool { return r.ok }

// Extractor is the text-understanding boundary of the combat engine.
type Extractor interface {
	// ParseAction turns an attack description into a ParsedAction.
	ParseAction(ctx context.Context, text string, enemies []*encounter.Enemy, sheet *character.Data) Result[combat.ParsedAction]
	// CreateEnemies describes the enemies of a new encounter. It never
	// fails; unusable answers fall back to encounter.FallbackEnemies.
	CreateEnemies(ctx context.Context, text string) encounter.CreateEnemiesInput
	// ParseResolution extracts the reply to a single pending action.
	ParseResolution(ctx context.Context, pending *encounter.PendingAction, text string) Result[encounter.ResolutionPayload]
	// ParseCombined extracts damage and up to effectCount afflictions from one reply.
	ParseCombined(ctx context.Context, text string, effectCount int) Result[encounter.ResolutionPayload]
}

// Service implements Extractor on top of a Completer.
type Service struct {
	llm     Completer
	logger  *zap.Logger
	effects *condition.Registry
}

// NewService creates a Service.
//
// Precondition: llm and logger must be non-nil.
func NewService(llm Completer, logger *zap.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// WithEffects lists the catalog's special effects in effect prompts and
// canonicalises extracted affliction names against it.
func (s *Service) WithEffects(reg *condition.Registry) *Service {
	s.effects = reg
	return s
}

// effectsNote names the effects available to side, if a catalog is set.
func (s *Service) effectsNote(side condition.Side) string {
	if s.effects == nil {
		return ""
	}
	names := s.effects.Names(side)
	if len(names) == 0 {
		return ""
	}
	return " Known special effects: " + strings.Join(names, ", ") + "."
}

// payload converts w, canonicalising afflictions when a catalog is set.
func (s *Service) payload(w wirePayload) encounter.ResolutionPayload {
	p := w.toPayload()
	if s.effects != nil {
		for i, a := range p.LastingAfflictions {
			p.LastingAfflictions[i] = s.effects.Canonical(a)
		}
	}
	return p
}

func sideFor(awarded combat.Side) condition.Side {
	if awarded == combat.SideDefender {
		return condition.Defensive
	}
	return condition.Offensive
}

type wireDefense struct {
	EnemyID         string              `json:"enemyId"`
	CanParry        bool                `json:"canParry"`
	MustEvade       bool                `json:"mustEvade"`
	WeaponSize      string              `json:"weaponSize"`
	ParrySkill      float64             `json:"parrySkill"`
	EvadeSkill      float64             `json:"evadeSkill"`
	ArmorByLocation map[string]*float64 `json:"armorByLocation"`
}

type wireAction struct {
	AttackerSkillName  string        `json:"attackerSkillName"`
	AttackerSkillValue float64       `json:"attackerSkillValue"`
	WeaponUsed         string        `json:"weaponUsed"`
	WeaponSize         string        `json:"weaponSize"`
	IsRanged           bool          `json:"isRanged"`
	IsEnergy           bool          `json:"isEnergy"`
	TargetIDs          []string      `json:"targetIds"`
	IsAoE              bool          `json:"isAoE"`
	PlayerRoll         *float64      `json:"playerRoll"`
	EnemyDefenses      []wireDefense `json:"enemyDefenses"`
}

// ParseAction implements Extractor.
//
// Postcondition: skill values are whole percentages, and a non-AoE action
// names exactly one target when any was named.
func (s *Service) ParseAction(ctx context.Context, text string, enemies []*encounter.Enemy, sheet *character.Data) Result[combat.ParsedAction] {
	prompt := fmt.Sprintf("Parse this combat action into the schema:\n%q\n\n%s\n\nCurrent enemies:\n%s\n\nCharacter skills:\n%s",
		text, actionDomainPrompt, enemyBlock(enemies), skillBlock(sheet))

	var w wireAction
	if err := s.complete(ctx, actionSystemPrompt, prompt, actionSchema(), &w); err != nil {
		s.logger.Warn("action extraction failed", zap.Error(err))
		return Invalid[combat.ParsedAction](err.Error())
	}
	action := w.toAction()
	if !action.IsAoE {
		restrictToSingleTarget(&action, enemies)
	}
	if !action.HasTargets() {
		return Invalid[combat.ParsedAction]("no target named")
	}
	return Valid(action)
}

func (w wireAction) toAction() combat.ParsedAction {
	a := combat.ParsedAction{
		AttackerSkillName:  w.AttackerSkillName,
		AttackerSkillValue: float64(combat.NormalizePercent(w.AttackerSkillValue, 0)),
		WeaponUsed:         w.WeaponUsed,
		WeaponSize:         combat.WeaponSize(strings.ToUpper(strings.TrimSpace(w.WeaponSize))),
		IsRanged:           w.IsRanged,
		IsEnergy:           w.IsEnergy,
		TargetIDs:          w.TargetIDs,
		IsAoE:              w.IsAoE,
	}
	if w.PlayerRoll != nil && !math.IsNaN(*w.PlayerRoll) {
		roll := int(math.Round(*w.PlayerRoll))
		a.PlayerRoll = &roll
	}
	for _, d := range w.EnemyDefenses {
		def := combat.EnemyDefense{
			EnemyID:    d.EnemyID,
			CanParry:   d.CanParry,
			MustEvade:  d.MustEvade,
			WeaponSize: combat.WeaponSize(strings.ToUpper(strings.TrimSpace(d.WeaponSize))),
			ParrySkill: float64(combat.NormalizePercent(d.ParrySkill, 0)),
			EvadeSkill: float64(combat.NormalizePercent(d.EvadeSkill, 0)),
		}
		for loc, v := range d.ArmorByLocation {
			if v == nil {
				continue
			}
			if def.ArmorByLocation == nil {
				def.ArmorByLocation = map[string]int{}
			}
			def.ArmorByLocation[loc] = int(math.Round(*v))
		}
		a.EnemyDefenses = append(a.EnemyDefenses, def)
	}
	return a
}

// restrictToSingleTarget keeps one target: the first enemy whose name
// contains any named target, else the first named target. Defenses are
// filtered to that name, keeping the first defense if none match.
func restrictToSingleTarget(a *combat.ParsedAction, enemies []*encounter.Enemy) {
	var chosen string
	for _, e := range enemies {
		name := strings.ToLower(e.Name)
		for _, t := range a.TargetIDs {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" && strings.Contains(name, t) {
				chosen = e.Name
				break
			}
		}
		if chosen != "" {
			break
		}
	}
	if chosen == "" {
		for _, t := range a.TargetIDs {
			if strings.TrimSpace(t) != "" {
				chosen = t
				break
			}
		}
	}
	if chosen == "" {
		return
	}
	a.TargetIDs = []string{chosen}

	want := strings.ToLower(chosen)
	var kept []combat.EnemyDefense
	for _, d := range a.EnemyDefenses {
		if strings.Contains(strings.ToLower(d.EnemyID), want) {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 && len(a.EnemyDefenses) > 0 {
		kept = a.EnemyDefenses[:1]
	}
	a.EnemyDefenses = kept
}

type wireEnemy struct {
	Name         string             `json:"name"`
	Type         string             `json:"type"`
	Weapon       string             `json:"weapon"`
	ArmorType    *string            `json:"armorType"`
	ActionPoints float64            `json:"actionPoints"`
	Skills       map[string]float64 `json:"skills"`
	HitLocations map[string]float64 `json:"hitLocations"`
}

// CreateEnemies implements Extractor.
func (s *Service) CreateEnemies(ctx context.Context, text string) encounter.CreateEnemiesInput {
	prompt := fmt.Sprintf("Create encounter: %q\n%s", text, enemyDomainPrompt)

	var w struct {
		Enemies []wireEnemy `json:"enemies"`
	}
	if err := s.complete(ctx, enemySystemPrompt, prompt, enemySchema(), &w); err != nil {
		s.logger.Warn("enemy creation failed, using fallback enemies", zap.Error(err))
		return encounter.FallbackEnemies()
	}
	var in encounter.CreateEnemiesInput
	for _, e := range w.Enemies {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		spec := encounter.EnemySpec{
			Name:         strings.TrimSpace(e.Name),
			Type:         e.Type,
			Weapon:       e.Weapon,
			ActionPoints: e.ActionPoints,
			Skills:       map[string]int{},
		}
		if e.ArmorType != nil {
			spec.ArmorType = *e.ArmorType
		}
		for k, v := range e.Skills {
			spec.Skills[k] = combat.NormalizePercent(v, 0)
		}
		for k, v := range e.HitLocations {
			if v > 0 {
				if spec.HitLocations == nil {
					spec.HitLocations = map[string]int{}
				}
				spec.HitLocations[k] = int(math.Round(v))
			}
		}
		in.Enemies = append(in.Enemies, spec)
	}
	if len(in.Enemies) == 0 {
		s.logger.Warn("enemy creation returned no enemies, using fallback enemies")
		return encounter.FallbackEnemies()
	}
	return in
}

type wirePayload struct {
	Damage             *float64 `json:"damage"`
	LastingAfflictions []string `json:"lastingAfflictions"`
	ExtraDamage        *float64 `json:"extraDamage"`
	BypassArmor        *bool    `json:"bypassArmor"`
}

func (w wirePayload) toPayload() encounter.ResolutionPayload {
	p := encounter.ResolutionPayload{LastingAfflictions: w.LastingAfflictions}
	p.Damage = roundPtr(w.Damage)
	p.ExtraDamage = roundPtr(w.ExtraDamage)
	if w.BypassArmor != nil {
		p.BypassArmor = *w.BypassArmor
	}
	return p
}

func roundPtr(v *float64) *int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}

// ParseResolution implements Extractor.
func (s *Service) ParseResolution(ctx context.Context, pending *encounter.PendingAction, text string) Result[encounter.ResolutionPayload] {
	switch pending.Kind {
	case encounter.KindRollDamage:
		var w wirePayload
		if err := s.complete(ctx, damageSystemPrompt, fmt.Sprintf("Extract just the damage value from: %q", text), damageSchema(), &w); err != nil {
			s.logger.Warn("damage extraction failed", zap.Error(err))
			return Invalid[encounter.ResolutionPayload](err.Error())
		}
		p := encounter.ResolutionPayload{Damage: roundPtr(w.Damage)}
		if p.Damage == nil {
			return Invalid[encounter.ResolutionPayload]("no damage value found")
		}
		return Valid(p)

	case encounter.KindChooseEffect:
		count := 1
		var parry string
		side := condition.Offensive
		if pending.Effect != nil {
			count = max(pending.Effect.Count, 1)
			parry = parryNote(pending.Effect.DefenseType, pending.Effect.ParryFullyBlocked)
			side = sideFor(pending.Effect.AwardedTo)
		}
		prompt := fmt.Sprintf("Choose up to %d appropriate special effects for this situation and extract them from: %q.%s%s If extra damage applies from effects, include it as extraDamage. Set bypassArmor=true ONLY if 'bypass armor' is among the chosen effects.",
			count, text, parry, s.effectsNote(side))
		var w wirePayload
		if err := s.complete(ctx, effectSystemPrompt, prompt, effectSchema(), &w); err != nil {
			s.logger.Warn("effect extraction failed", zap.Error(err))
			return Invalid[encounter.ResolutionPayload](err.Error())
		}
		p := s.payload(w)
		p.Damage = nil
		if len(p.LastingAfflictions) == 0 && p.ExtraDamage == nil {
			return Invalid[encounter.ResolutionPayload]("no special effects found")
		}
		return Valid(p)

	case encounter.KindAttackResult:
		var count int
		var parry string
		side := condition.Offensive
		if ar := pending.AttackResult; ar != nil {
			count = ar.EffectCount
			parry = parryNote(ar.DefenseType, ar.ParryFullyBlocked)
			side = sideFor(ar.EffectsAwardedTo)
		}
		return s.combined(ctx, text, count, parry+s.effectsNote(side))
	}
	return Invalid[encounter.ResolutionPayload](fmt.Sprintf("unsupported pending action %q", pending.Kind))
}

// ParseCombined implements Extractor.
func (s *Service) ParseCombined(ctx context.Context, text string, effectCount int) Result[encounter.ResolutionPayload] {
	return s.combined(ctx, text, effectCount, s.effectsNote(condition.Offensive))
}

func (s *Service) combined(ctx context.Context, text string, count int, parry string) Result[encounter.ResolutionPayload] {
	prompt := fmt.Sprintf("Extract both damage (if provided) and up to %d lasting afflictions from: %q.%s Set bypassArmor=true ONLY if 'bypass armor' is stated.",
		count, text, parry)
	var w wirePayload
	if err := s.complete(ctx, combinedSystemPrompt, prompt, combinedSchema(), &w); err != nil {
		s.logger.Warn("combined extraction failed", zap.Error(err))
		return Invalid[encounter.ResolutionPayload](err.Error())
	}
	p := s.payload(w)
	if p.Empty() {
		return Invalid[encounter.ResolutionPayload]("no damage or afflictions found")
	}
	return Valid(p)
}

func parryNote(t combat.DefenseType, fullyBlocked bool) string {
	if t != combat.DefenseParry {
		return ""
	}
	if fullyBlocked {
		return " Parry outcome: fully blocked."
	}
	return " Parry outcome: partial block."
}

// complete asks the Completer and decodes the first JSON object in its answer.
func (s *Service) complete(ctx context.Context, system, prompt string, schema map[string]any, out any) error {
	raw, err := s.llm.Complete(ctx, system, prompt, schema)
	if err != nil {
		return fmt.Errorf("completing prompt: %w", err)
	}
	doc, err := jsonObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return fmt.Errorf("decoding completion: %w", err)
	}
	return nil
}

// jsonObject trims prose and code fences around the outermost JSON object.
func jsonObject(raw []byte) ([]byte, error) {
	s := string(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return []byte(s[start : end+1]), nil
}

func enemyBlock(enemies []*encounter.Enemy) string {
	var lines []string
	for _, e := range enemies {
		if !e.Alive {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): weapon=%s, AP=%d, skills: parry=%d%%, evade=%d%%",
			e.Name, e.Type, e.Weapon, e.ActionPoints, e.Skills["parry"], e.Skills["evade"]))
	}
	if len(lines) == 0 {
		return "(none)"
	}
	return strings.Join(lines, "\n")
}

func skillBlock(sheet *character.Data) string {
	if sheet == nil || len(sheet.Skills) == 0 {
		return "No skills available"
	}
	return sheet.SkillSummary()
}

// Disabled is an Extractor used when no text-understanding provider is
// configured. It rejects every parse and creates the fallback enemies.
type Disabled struct{}

const disabledReason = "text extraction is disabled"

// ParseAction implements Extractor.
func (Disabled) ParseAction(context.Context, string, []*encounter.Enemy, *character.Data) Result[combat.ParsedAction] {
	return Invalid[combat.ParsedAction](disabledReason)
}

// CreateEnemies implements Extractor.
func (Disabled) CreateEnemies(context.Context, string) encounter.CreateEnemiesInput {
	return encounter.FallbackEnemies()
}

// ParseResolution implements Extractor.
func (Disabled) ParseResolution(context.Context, *encounter.PendingAction, string) Result[encounter.ResolutionPayload] {
	return Invalid[encounter.ResolutionPayload](disabledReason)
}

// ParseCombined implements Extractor.
func (Disabled) ParseCombined(context.Context, string, int) Result[encounter.ResolutionPayload] {
	return Invalid[encounter.ResolutionPayload](disabledReason)
}
