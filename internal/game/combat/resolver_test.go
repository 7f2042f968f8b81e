package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combot/internal/game/combat"
)

type fakeEnemy struct {
	id, name string
	ap       int
}

func (f *fakeEnemy) DefenderID() string   { return f.id }
func (f *fakeEnemy) DefenderName() string { return f.name }
func (f *fakeEnemy) RemainingAP() int     { return f.ap }
func (f *fakeEnemy) SpendActionPoint()    { f.ap-- }

func newResolver() *combat.Resolver {
	return combat.NewResolver(combat.DefaultTables(), zap.NewNop())
}

func defenders(es ...*fakeEnemy) []combat.Defender {
	out := make([]combat.Defender, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

func singleTarget(skill float64, weapon string, size combat.WeaponSize, def combat.EnemyDefense) combat.ParsedAction {
	return combat.ParsedAction{
		AttackerSkillName:  "Combat Style",
		AttackerSkillValue: skill,
		WeaponUsed:         weapon,
		WeaponSize:         size,
		TargetIDs:          []string{def.EnemyID},
		EnemyDefenses:      []combat.EnemyDefense{def},
	}
}

func TestResolve_DefenseFailureNeedsDamage(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Trooper", ap: 2}
	action := singleTarget(80, "lightsaber", combat.SizeLarge, combat.EnemyDefense{
		EnemyID: "enemy_0", CanParry: true, ParrySkill: 50, EvadeSkill: 50,
	})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 45, Defense: []int{90}})
	require.Len(t, res, 1)
	r := res[0]
	assert.Equal(t, combat.Success, r.AttackDegree)
	assert.Equal(t, combat.Failure, r.DefenseDegree)
	assert.True(t, r.NeedsDamageRoll)
	assert.Equal(t, combat.ChoiceDamage, r.PendingChoice)
	assert.Equal(t, "1d10", r.SuggestedDamage)
	assert.Equal(t, 1, enemy.ap)
}

func TestResolve_DefenseFumbleAttackFailureDoesNothing(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Trooper", ap: 1}
	action := singleTarget(40, "blaster_rifle", combat.SizeMedium, combat.EnemyDefense{
		EnemyID: "enemy_0", ParrySkill: 50, EvadeSkill: 40,
	})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 95, Defense: []int{99}})
	require.Len(t, res, 1)
	r := res[0]
	assert.Equal(t, combat.Failure, r.AttackDegree)
	assert.Equal(t, combat.Fumble, r.DefenseDegree)
	assert.Equal(t, 0, r.LevelsOfSuccess)
	assert.Equal(t, combat.SideNone, r.EffectsAwardedTo)
	assert.False(t, r.NeedsDamageRoll)
	assert.Equal(t, combat.ChoiceNone, r.PendingChoice)
}

func TestResolve_SuccessfulEvadeLeavesProne(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Scout", ap: 2}
	action := singleTarget(70, "blaster_pistol", combat.SizeMedium, combat.EnemyDefense{
		EnemyID: "enemy_0", MustEvade: true, ParrySkill: 60, EvadeSkill: 60,
	})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 20, Defense: []int{30}})
	require.Len(t, res, 1)
	r := res[0]
	assert.Equal(t, combat.DefenseEvade, r.DefenseType)
	assert.True(t, r.HasEffect(combat.EffectProne))
	assert.False(t, r.NeedsDamageRoll)
}

func TestResolve_FailedEvadeStillProne(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Scout", ap: 2}
	action := singleTarget(70, "blaster_pistol", combat.SizeMedium, combat.EnemyDefense{
		EnemyID: "enemy_0", MustEvade: true, EvadeSkill: 40,
	})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 20, Defense: []int{80}})
	require.Len(t, res, 1)
	assert.True(t, res[0].HasEffect(combat.EffectProne))
	assert.True(t, res[0].NeedsDamageRoll)
}

func TestResolve_EqualSizeParryBlocksEverything(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Guard", ap: 2}
	action := singleTarget(80, "vibro-sword", combat.SizeMedium, combat.EnemyDefense{
		EnemyID: "enemy_0", CanParry: true, WeaponSize: combat.SizeMedium, ParrySkill: 70,
	})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 60, Defense: []int{65}})
	require.Len(t, res, 1)
	r := res[0]
	assert.Equal(t, combat.Success, r.AttackDegree)
	assert.Equal(t, combat.Success, r.DefenseDegree)
	assert.False(t, r.NeedsDamageRoll)
	assert.Equal(t, 0, r.LevelsOfSuccess)
	assert.Equal(t, combat.ChoiceNone, r.PendingChoice)
	assert.True(t, r.ParryFullyBlocked())
}

func TestResolve_SmallerParryingWeaponLetsDamageThrough(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Thug", ap: 1}
	action := singleTarget(80, "lightsaber", combat.SizeLarge, combat.EnemyDefense{
		EnemyID: "enemy_0", CanParry: true, WeaponSize: combat.SizeMedium, ParrySkill: 70,
	})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 60, Defense: []int{65}})
	require.Len(t, res, 1)
	assert.True(t, res[0].NeedsDamageRoll)
	assert.True(t, res[0].ParryReduces())
}

func TestResolve_CriticalAgainstParryOnlyAwardsEffects(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Thug", ap: 1}
	action := singleTarget(80, "lightsaber", combat.SizeLarge, combat.EnemyDefense{
		EnemyID: "enemy_0", CanParry: true, WeaponSize: combat.SizeSmall, ParrySkill: 70,
	})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 3, Defense: []int{50}})
	require.Len(t, res, 1)
	r := res[0]
	assert.Equal(t, combat.Critical, r.AttackDegree)
	assert.False(t, r.NeedsDamageRoll)
	assert.Equal(t, 1, r.LevelsOfSuccess)
	assert.Equal(t, combat.SideAttacker, r.EffectsAwardedTo)
	assert.Equal(t, combat.ChoiceSpecialEffect, r.PendingChoice)
}

func TestResolve_ZeroAPDefenderCannotDefend(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Tired", ap: 0}
	action := singleTarget(60, "knife", "", combat.EnemyDefense{EnemyID: "enemy_0", ParrySkill: 90})
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 30, Defense: []int{5}})
	require.Len(t, res, 1)
	assert.Equal(t, 0, res[0].DefenseSkill)
	assert.Equal(t, combat.Failure, res[0].DefenseDegree)
	assert.True(t, res[0].NeedsDamageRoll)
	assert.Equal(t, 0, enemy.ap)
	assert.Equal(t, combat.SizeSmall, res[0].WeaponSize)
}

func TestResolve_FuzzyTargetMatch(t *testing.T) {
	a := &fakeEnemy{id: "enemy_0", name: "Stormtrooper 1", ap: 1}
	b := &fakeEnemy{id: "enemy_1", name: "Kinrath Matriarch", ap: 1}
	action := singleTarget(60, "pike", combat.SizeLarge, combat.EnemyDefense{EnemyID: "KINRATH", ParrySkill: 40})
	res := newResolver().Resolve(action, "u1", defenders(a, b), combat.Rolls{Attack: 30, Defense: []int{70}})
	require.Len(t, res, 1)
	assert.Equal(t, "enemy_1", res[0].TargetID)
}

func TestResolve_UnknownTargetIsSkipped(t *testing.T) {
	a := &fakeEnemy{id: "enemy_0", name: "Stormtrooper 1", ap: 1}
	action := singleTarget(60, "pike", combat.SizeLarge, combat.EnemyDefense{EnemyID: "wampa", ParrySkill: 40})
	res := newResolver().Resolve(action, "u1", defenders(a), combat.Rolls{Attack: 30, Defense: []int{70}})
	assert.Empty(t, res)
	assert.Equal(t, 1, a.ap)
}

func TestResolve_NonAoEOnlyFirstDefense(t *testing.T) {
	a := &fakeEnemy{id: "enemy_0", name: "A", ap: 1}
	b := &fakeEnemy{id: "enemy_1", name: "B", ap: 1}
	action := combat.ParsedAction{
		AttackerSkillValue: 60,
		WeaponUsed:         "blaster_rifle",
		WeaponSize:         combat.SizeMedium,
		TargetIDs:          []string{"enemy_0", "enemy_1"},
		EnemyDefenses: []combat.EnemyDefense{
			{EnemyID: "enemy_0", ParrySkill: 40},
			{EnemyID: "enemy_1", ParrySkill: 40},
		},
	}
	rolls := combat.Rolls{Attack: 30, Defense: []int{70, 70}}
	res := newResolver().Resolve(action, "u1", defenders(a, b), rolls)
	require.Len(t, res, 1)
	assert.Equal(t, 1, b.ap)

	action.IsAoE = true
	res = newResolver().Resolve(action, "u1", defenders(a, b), rolls)
	assert.Len(t, res, 2)
}

func TestResolve_PlayerRollOverridesDice(t *testing.T) {
	enemy := &fakeEnemy{id: "enemy_0", name: "Trooper", ap: 1}
	roll := 99
	action := singleTarget(0.8, "lightsaber", combat.SizeLarge, combat.EnemyDefense{EnemyID: "enemy_0", ParrySkill: 0.5})
	action.PlayerRoll = &roll
	res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: 10, Defense: []int{60}})
	require.Len(t, res, 1)
	assert.Equal(t, 99, res[0].AttackRoll)
	assert.Equal(t, 80, res[0].AttackSkill)
	assert.Equal(t, 50, res[0].DefenseSkill)
	assert.Equal(t, combat.Fumble, res[0].AttackDegree)
}

func TestResolve_Property_FailedAttackNeverNeedsDamage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		skill := rapid.IntRange(1, 100).Draw(rt, "skill")
		attack := rapid.IntRange(1, 100).Draw(rt, "attack")
		defense := rapid.IntRange(1, 100).Draw(rt, "defense")
		evade := rapid.Bool().Draw(rt, "evade")
		enemy := &fakeEnemy{id: "enemy_0", name: "X", ap: rapid.IntRange(0, 3).Draw(rt, "ap")}
		action := singleTarget(float64(skill), "lightsaber", combat.SizeLarge, combat.EnemyDefense{
			EnemyID: "enemy_0", MustEvade: evade, ParrySkill: 60, EvadeSkill: 50,
		})
		res := newResolver().Resolve(action, "u1", defenders(enemy), combat.Rolls{Attack: attack, Defense: []int{defense}})
		require.Len(rt, res, 1)
		r := res[0]
		if !r.AttackDegree.Succeeded() {
			assert.False(rt, r.NeedsDamageRoll)
			assert.Equal(rt, 0, r.LevelsOfSuccess)
		}
		assert.GreaterOrEqual(rt, enemy.ap, 0)
	})
}

func TestParryDamageReduction(t *testing.T) {
	assert.Equal(t, 10, combat.ParryDamageReduction(combat.SizeLarge, combat.SizeSmall, 10))
	assert.Equal(t, 5, combat.ParryDamageReduction(combat.SizeLarge, combat.SizeMedium, 10))
	assert.Equal(t, 3, combat.ParryDamageReduction(combat.SizeMedium, combat.SizeSmall, 7))
	assert.Equal(t, 0, combat.ParryDamageReduction(combat.SizeMedium, combat.SizeMedium, 10))
	assert.Equal(t, 0, combat.ParryDamageReduction(combat.SizeSmall, combat.SizeExtraLarge, 10))
	assert.Equal(t, 10, combat.ParryDamageReduction("?", combat.SizeSmall, 10))
}

func TestMatchTarget(t *testing.T) {
	items := []string{"alpha", "beta"}
	id := func(s string) string { return s }
	got, ok := combat.MatchTarget(items, "ET", id, id)
	require.True(t, ok)
	assert.Equal(t, "beta", got)
	_, ok = combat.MatchTarget(items, "", id, id)
	assert.False(t, ok)
}
