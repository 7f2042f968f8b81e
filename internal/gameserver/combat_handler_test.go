package gameserver_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/config"
	"github.com/cory-johannsen/combot/internal/extract"
	"github.com/cory-johannsen/combot/internal/game/character"
	"github.com/cory-johannsen/combot/internal/game/combat"
	"github.com/cory-johannsen/combot/internal/game/dice"
	"github.com/cory-johannsen/combot/internal/game/encounter"
	"github.com/cory-johannsen/combot/internal/gameserver"
	"github.com/cory-johannsen/combot/internal/storage"
	"github.com/cory-johannsen/combot/internal/storage/sqlite"
)

const channel = "chan-1"

var fixedNow = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

// fakeExtractor returns canned extraction results.
type fakeExtractor struct {
	mu         sync.Mutex
	enemies    encounter.CreateEnemiesInput
	action     extract.Result[combat.ParsedAction]
	resolution extract.Result[encounter.ResolutionPayload]
	combined   extract.Result[encounter.ResolutionPayload]
	texts      []string
}

func (f *fakeExtractor) ParseAction(_ context.Context, text string, _ []*encounter.Enemy, _ *character.Data) extract.Result[combat.ParsedAction] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.action
}

func (f *fakeExtractor) CreateEnemies(context.Context, string) encounter.CreateEnemiesInput {
	return f.enemies
}

func (f *fakeExtractor) ParseResolution(_ context.Context, _ *encounter.PendingAction, text string) extract.Result[encounter.ResolutionPayload] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.resolution
}

func (f *fakeExtractor) ParseCombined(context.Context, string, int) extract.Result[encounter.ResolutionPayload] {
	return f.combined
}

// fakeSheets serves character sheets by URL.
type fakeSheets map[string]*character.Data

func (f fakeSheets) Fetch(_ context.Context, url string) *character.Data { return f[url] }

// conflictStore fails every encounter update with a version conflict.
type conflictStore struct{ *sqlite.Store }

func (conflictStore) UpdateEncounter(context.Context, *encounter.Encounter) error {
	return storage.ErrVersionConflict
}

type harness struct {
	h         *gameserver.CombatHandler
	store     *sqlite.Store
	extractor *fakeExtractor
	sheets    fakeSheets

	mu        sync.Mutex
	broadcast []encounter.Tracker
}

func troopers() encounter.CreateEnemiesInput {
	return encounter.CreateEnemiesInput{Enemies: []encounter.EnemySpec{
		{Name: "Trooper", Type: "MOOK", Weapon: "blaster_rifle", ActionPoints: 2},
		{Name: "Hunter", Type: "COMBATANT", Weapon: "blaster_pistol", ActionPoints: 2},
	}}
}

// shootTrooper evades with 30% and is attacked at 60%.
func shootTrooper() combat.ParsedAction {
	return combat.ParsedAction{
		AttackerSkillName:  "Ranged",
		AttackerSkillValue: 60,
		WeaponUsed:         "blaster_rifle",
		TargetIDs:          []string{"enemy_0"},
		EnemyDefenses: []combat.EnemyDefense{
			{EnemyID: "enemy_0", MustEvade: true, EvadeSkill: 30},
		},
	}
}

func newHarness(t *testing.T, cfg config.CombatConfig, faces ...int) *harness {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "combot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newHarnessWithStore(t, store, store, cfg, faces...)
}

func newHarnessWithStore(t *testing.T, raw *sqlite.Store, store gameserver.Store, cfg config.CombatConfig, faces ...int) *harness {
	t.Helper()
	if cfg.MaxActionPoints == 0 {
		cfg.MaxActionPoints = 2
	}
	hs := &harness{
		store: raw,
		extractor: &fakeExtractor{
			enemies: troopers(),
			action:  extract.Valid(shootTrooper()),
		},
		sheets: fakeSheets{},
	}
	roller := dice.NewLoggedRoller(dice.NewScriptedSource(faces...), zap.NewNop())
	hs.h = gameserver.NewCombatHandler(store, hs.extractor, hs.sheets, combat.DefaultTables(), roller, cfg, zap.NewNop(),
		func(_ string, tr encounter.Tracker) {
			hs.mu.Lock()
			defer hs.mu.Unlock()
			hs.broadcast = append(hs.broadcast, tr)
		},
	).WithClock(func() time.Time { return fixedNow })
	return hs
}

func (hs *harness) encounter(t *testing.T) *encounter.Encounter {
	t.Helper()
	enc, err := hs.store.GetEncounter(context.Background(), channel)
	require.NoError(t, err)
	return enc
}

// started begins combat and seats u1 ("Rey") with a d10 of 7.
func (hs *harness) started(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := hs.h.StartCombat(ctx, channel, "gm", "two troopers")
	require.NoError(t, err)
	_, err = hs.h.JoinInitiative(ctx, channel, "u1", "Rey")
	require.NoError(t, err)
}

func TestIdentify_StoresCleanedURL(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{})
	reply, err := hs.h.Identify(context.Background(), channel, "u1", "Rey", " https://sheets.example/c/42/#skills ")
	require.NoError(t, err)
	assert.Equal(t, "✅ Character sheet linked for Rey!\nStored URL: https://sheets.example/c/42", reply.Message)

	link, err := hs.store.CharacterLink(context.Background(), "u1", channel)
	require.NoError(t, err)
	assert.Equal(t, "https://sheets.example/c/42", link.SheetURL)
}

func TestIdentify_RejectsBadURL(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{})
	reply, err := hs.h.Identify(context.Background(), channel, "u1", "Rey", "")
	assert.ErrorIs(t, err, gameserver.ErrInvalidSheetURL)
	assert.Equal(t, "❌ Please provide a character sheet URL!", reply.Message)

	reply, err = hs.h.Identify(context.Background(), channel, "u1", "Rey", "ftp://sheets.example/c/42")
	assert.ErrorIs(t, err, gameserver.ErrInvalidSheetURL)
	assert.True(t, reply.IsError)
	assert.Contains(t, reply.Message, "http:// or https://")
}

func TestStartCombat_CreatesEncounterAndBroadcasts(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{})
	reply, err := hs.h.StartCombat(context.Background(), channel, "gm", "two troopers")
	require.NoError(t, err)
	require.NotNil(t, reply.Tracker)
	assert.Equal(t, 1, reply.Tracker.Round)
	assert.Len(t, reply.Tracker.Enemies, 2)
	assert.Contains(t, reply.Message, "Combat Ready")

	enc := hs.encounter(t)
	assert.Equal(t, int64(1), enc.Version)
	assert.Len(t, hs.broadcast, 1)
}

func TestStartCombat_RefereeOnly(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{RefereeUserID: "gm"})
	reply, err := hs.h.StartCombat(context.Background(), channel, "u1", "troopers")
	assert.ErrorIs(t, err, gameserver.ErrNotReferee)
	assert.Equal(t, "❌ Only the GM can start combat!", reply.Message)

	_, err = hs.h.StartCombat(context.Background(), channel, "gm", "troopers")
	assert.NoError(t, err)
}

func TestJoinInitiative_UsesSheet(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7)
	ctx := context.Background()
	hs.sheets["https://sheets.example/c/42"] = &character.Data{
		Name:            "Rey Skywalker",
		Characteristics: map[string]int{"INT": 24},
	}
	_, err := hs.h.Identify(ctx, channel, "u1", "rey", "https://sheets.example/c/42")
	require.NoError(t, err)
	_, err = hs.h.StartCombat(ctx, channel, "gm", "troopers")
	require.NoError(t, err)

	reply, err := hs.h.JoinInitiative(ctx, channel, "u1", "rey")
	require.NoError(t, err)
	assert.Equal(t, "🎲 Rey Skywalker rolled **9** for initiative! (7 + 2)", reply.Message)

	enc := hs.encounter(t)
	require.Len(t, enc.Initiative, 1)
	assert.Equal(t, 9, enc.Initiative[0].Roll)
	assert.Equal(t, 2, enc.Initiative[0].ActionPoints)
	assert.Contains(t, enc.Log, reply.Message)
}

func TestJoinInitiative_Errors(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7, 7)
	ctx := context.Background()

	reply, err := hs.h.JoinInitiative(ctx, channel, "u1", "Rey")
	assert.ErrorIs(t, err, gameserver.ErrNoEncounter)
	assert.Equal(t, "❌ No active combat in this channel!", reply.Message)

	hs.started(t)
	reply, err = hs.h.JoinInitiative(ctx, channel, "u1", "Rey")
	assert.ErrorIs(t, err, encounter.ErrAlreadyInInitiative)
	assert.Equal(t, "You're already in the initiative order!", reply.Message)
}

func TestAct_RequiresEncounterAndInitiative(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7)
	ctx := context.Background()

	reply, err := hs.h.Act(ctx, channel, "u1", "Rey", "shoot")
	assert.ErrorIs(t, err, gameserver.ErrNoEncounter)
	assert.Equal(t, "❌ No active combat!", reply.Message)

	hs.started(t)
	reply, err = hs.h.Act(ctx, channel, "u2", "Finn", "shoot")
	assert.ErrorIs(t, err, gameserver.ErrNotInInitiative)
	assert.Equal(t, "❌ You need to roll initiative first! Use `/combot initiative`", reply.Message)
}

func TestAct_UnparseableAction(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7)
	hs.started(t)
	hs.extractor.action = extract.Invalid[combat.ParsedAction]("no target")

	reply, err := hs.h.Act(context.Background(), channel, "u1", "Rey", "hmm")
	assert.ErrorIs(t, err, gameserver.ErrUnparseableAction)
	assert.True(t, reply.IsError)
	assert.True(t, strings.HasPrefix(reply.Message, "❌ Could not understand that action."))

	enc := hs.encounter(t)
	assert.Equal(t, 2, enc.Initiative[0].ActionPoints)
	assert.Nil(t, enc.LastAct)
}

func TestAct_HitCreatesPendingThenDamageKillsMook(t *testing.T) {
	// d10 7 for initiative, d100 20 attack, d100 90 defense.
	hs := newHarness(t, config.CombatConfig{}, 7, 20, 90)
	hs.started(t)
	ctx := context.Background()

	reply, err := hs.h.Act(ctx, channel, "u1", "Rey", "I shoot the trooper")
	require.NoError(t, err)
	assert.True(t, reply.NeedsFollowUp)
	assert.True(t, strings.HasPrefix(reply.Message, "20 vs 90 (success vs failure), hit, prone"))
	assert.Contains(t, reply.Message, "**⏳ Action Required:**")
	assert.Contains(t, reply.Message, "*Reply with your choice to continue*")

	enc := hs.encounter(t)
	rey := enc.Participant("u1")
	require.NotNil(t, rey)
	assert.Equal(t, 1, rey.ActionPoints)
	assert.Equal(t, "I shoot the trooper", rey.LastAction)
	require.NotNil(t, enc.HasPending("u1"))
	assert.Equal(t, encounter.KindAttackResult, enc.HasPending("u1").Kind)
	trooper, _ := enc.FindEnemy("enemy_0")
	assert.Equal(t, 1, trooper.ActionPoints)
	assert.Contains(t, trooper.Afflictions, combat.EffectProne)
	assert.Contains(t, enc.Log, "**Rey**: I shoot the trooper")

	hs.extractor.resolution = extract.Valid(encounter.ResolutionPayload{Damage: intp(8)})
	reply, err = hs.h.Act(ctx, channel, "u1", "Rey", "8 damage")
	require.NoError(t, err)
	assert.False(t, reply.NeedsFollowUp)
	assert.Equal(t, "8 damage to Trooper, defeated", reply.Message)

	enc = hs.encounter(t)
	assert.Nil(t, enc.HasPending("u1"))
	trooper, _ = enc.FindEnemy("enemy_0")
	assert.False(t, trooper.Alive)
	n := len(enc.Log)
	assert.Equal(t, []string{"**Rey**: 8 damage", "8 damage to Trooper, defeated"}, enc.Log[n-2:])
}

func TestAct_UnknownTargetSpendsNothing(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7, 20, 90)
	hs.started(t)
	action := shootTrooper()
	action.TargetIDs = []string{"ghost"}
	action.EnemyDefenses[0].EnemyID = "ghost"
	hs.extractor.action = extract.Valid(action)
	logLen := len(hs.encounter(t).Log)

	reply, err := hs.h.Act(context.Background(), channel, "u1", "Rey", "shoot the ghost")
	require.NoError(t, err)
	assert.Equal(t, "⚔️ Action processed", reply.Message)
	assert.False(t, reply.NeedsFollowUp)

	enc := hs.encounter(t)
	assert.Equal(t, 2, enc.Participant("u1").ActionPoints)
	assert.Nil(t, enc.LastAct)
	assert.Len(t, enc.Log, logLen)
	assert.NotContains(t, enc.Log, "**Rey**: shoot the ghost")
	trooper, _ := enc.FindEnemy("enemy_0")
	assert.Equal(t, 2, trooper.ActionPoints)
}

func TestAct_DefenderWonEffectsWaitForReferee(t *testing.T) {
	// Attack 20 succeeds at 60%; evade 1 is a critical at 30%.
	hs := newHarness(t, config.CombatConfig{RefereeUserID: "gm"}, 7, 20, 1)
	hs.started(t)
	ctx := context.Background()

	reply, err := hs.h.Act(ctx, channel, "u1", "Rey", "shoot the trooper")
	require.NoError(t, err)
	assert.False(t, reply.NeedsFollowUp)
	assert.NotContains(t, reply.Message, "**⏳ Action Required:**")
	assert.Contains(t, reply.Message, "the GM will choose them")

	enc := hs.encounter(t)
	assert.Empty(t, enc.PendingFor("u1"))
	gm := enc.PendingFor(encounter.RefereeID)
	require.Len(t, gm, 1)
	assert.Equal(t, encounter.KindChooseEffect, gm[0].Kind)
	assert.Equal(t, "u1", gm[0].TargetID)

	hs.extractor.resolution = extract.Valid(encounter.ResolutionPayload{LastingAfflictions: []string{"Withdraw"}})
	reply, err = hs.h.Act(ctx, channel, "gm", "GM", "withdraw")
	require.NoError(t, err)
	assert.Equal(t, "+ Withdraw on Rey", reply.Message)

	enc = hs.encounter(t)
	assert.Empty(t, enc.PendingFor(encounter.RefereeID))
	assert.Equal(t, []string{"Withdraw"}, enc.Participant("u1").Afflictions)
	trooper, _ := enc.FindEnemy("enemy_0")
	assert.NotContains(t, trooper.Afflictions, "Withdraw")
}

func TestAct_SheetSkillOverridesExtractedSkill(t *testing.T) {
	// An attack roll of 70 fails at the extracted 60% but succeeds at the sheet's 75%.
	hs := newHarness(t, config.CombatConfig{}, 7, 70, 90)
	ctx := context.Background()
	hs.sheets["https://sheets.example/c/42"] = &character.Data{
		Name:   "Rey",
		Skills: []character.Skill{{Name: "ranged", Value: 0.75}},
	}
	_, err := hs.h.Identify(ctx, channel, "u1", "Rey", "https://sheets.example/c/42")
	require.NoError(t, err)
	hs.started(t)

	reply, err := hs.h.Act(ctx, channel, "u1", "Rey", "shoot")
	require.NoError(t, err)
	assert.True(t, reply.NeedsFollowUp)
	assert.True(t, strings.HasPrefix(reply.Message, "70 vs 90 (success vs failure)"))
}

func TestAct_InvalidResolutionKeepsPending(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7, 20, 90)
	hs.started(t)
	ctx := context.Background()
	_, err := hs.h.Act(ctx, channel, "u1", "Rey", "shoot")
	require.NoError(t, err)

	hs.extractor.resolution = extract.Invalid[encounter.ResolutionPayload]("nothing")
	reply, err := hs.h.Act(ctx, channel, "u1", "Rey", "uh")
	assert.ErrorIs(t, err, gameserver.ErrInvalidResolution)
	assert.True(t, reply.NeedsFollowUp)
	assert.True(t, strings.HasPrefix(reply.Message, "❌ Invalid response for pending action.\n⚔️ Resolve attack"))
	assert.NotNil(t, hs.encounter(t).HasPending("u1"))
}

func TestAct_CombinedReplyResolvesBothLegacyPendings(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7)
	hs.started(t)
	ctx := context.Background()

	// Seed a roll_damage and a choose_special_effect prompt directly.
	enc := hs.encounter(t)
	enc.AddPending(encounter.NewDamageRequest("u1", "enemy_1", encounter.DamageRequest{WeaponDamage: "1d8"}))
	enc.AddPending(encounter.NewEffectChoice("u1", "enemy_1", encounter.EffectChoice{Count: 1}))
	require.NoError(t, hs.store.UpdateEncounter(ctx, enc))

	hs.extractor.combined = extract.Valid(encounter.ResolutionPayload{
		Damage:             intp(3),
		LastingAfflictions: []string{"bleed"},
		BypassArmor:        true,
	})
	reply, err := hs.h.Act(ctx, channel, "u1", "Rey", "3 damage and bleed")
	require.NoError(t, err)
	assert.False(t, reply.NeedsFollowUp)
	assert.Contains(t, reply.Message, "+ bleed")

	enc = hs.encounter(t)
	assert.Empty(t, enc.PendingFor("u1"))
	hunter, _ := enc.FindEnemy("enemy_1")
	assert.Equal(t, 3, hunter.Damage)
	assert.Contains(t, hunter.Afflictions, "bleed")
}

func TestAct_CombinedReplyFailure(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7)
	hs.started(t)
	ctx := context.Background()
	enc := hs.encounter(t)
	enc.AddPending(encounter.NewDamageRequest("u1", "enemy_1", encounter.DamageRequest{}))
	enc.AddPending(encounter.NewEffectChoice("u1", "enemy_1", encounter.EffectChoice{Count: 1}))
	require.NoError(t, hs.store.UpdateEncounter(ctx, enc))

	hs.extractor.combined = extract.Invalid[encounter.ResolutionPayload]("nothing")
	reply, err := hs.h.Act(ctx, channel, "u1", "Rey", "?")
	assert.ErrorIs(t, err, gameserver.ErrInvalidResolution)
	assert.Equal(t, "❌ Could not extract damage/effects from your response.", reply.Message)
	assert.Len(t, hs.encounter(t).PendingFor("u1"), 2)
}

func TestAct_RefereeAnswersRefereePending(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{RefereeUserID: "gm"}, 7)
	hs.started(t)
	ctx := context.Background()
	enc := hs.encounter(t)
	enc.AddPending(encounter.NewDamageRequest(encounter.RefereeID, "enemy_1", encounter.DamageRequest{}))
	require.NoError(t, hs.store.UpdateEncounter(ctx, enc))

	hs.extractor.resolution = extract.Valid(encounter.ResolutionPayload{Damage: intp(2), BypassArmor: true})
	reply, err := hs.h.Act(ctx, channel, "gm", "GM", "2 damage")
	require.NoError(t, err)
	assert.Contains(t, reply.Message, "to Hunter")
	assert.Empty(t, hs.encounter(t).PendingFor(encounter.RefereeID))
}

func TestAct_VersionConflictIsReported(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "combot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	hs := newHarnessWithStore(t, store, conflictStore{store}, config.CombatConfig{}, 7)
	ctx := context.Background()
	_, err = hs.h.StartCombat(ctx, channel, "gm", "troopers")
	require.NoError(t, err)

	reply, err := hs.h.JoinInitiative(ctx, channel, "u1", "Rey")
	assert.ErrorIs(t, err, gameserver.ErrVersionConflict)
	assert.True(t, reply.IsError)
	assert.Empty(t, hs.encounter(t).Initiative)
}

func TestEditAct_UnwindsAndReplaces(t *testing.T) {
	// Initiative 7; first act 20/90; replacement act 95/10.
	hs := newHarness(t, config.CombatConfig{}, 7, 20, 90, 95, 10)
	hs.started(t)
	ctx := context.Background()
	_, err := hs.h.Act(ctx, channel, "u1", "Rey", "shoot the trooper")
	require.NoError(t, err)

	reply, err := hs.h.EditAct(ctx, channel, "u1", "Rey", "shoot the trooper again")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply.Message,
		"✏️ **Previous action unwound**\n🔄 Reverted: Restored 1 action point to Rey\n\n95 vs 10"))

	enc := hs.encounter(t)
	assert.Nil(t, enc.HasPending("u1"))
	assert.Equal(t, 1, enc.Initiative[0].ActionPoints)
	assert.NotContains(t, enc.Log, "**Rey**: shoot the trooper")
	assert.Contains(t, enc.Log, "📝 *Action edited by Rey*")
	assert.Contains(t, enc.Log, "**Rey**: shoot the trooper again")
}

func TestEditAct_OnlyLatestActor(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7, 5, 20, 90, 30, 90)
	hs.started(t)
	ctx := context.Background()
	_, err := hs.h.JoinInitiative(ctx, channel, "u2", "Finn")
	require.NoError(t, err)

	_, err = hs.h.Act(ctx, channel, "u1", "Rey", "shoot")
	require.NoError(t, err)
	hs.extractor.action = extract.Valid(shootTrooper())
	_, err = hs.h.Act(ctx, channel, "u2", "Finn", "shoot")
	require.NoError(t, err)

	reply, err := hs.h.EditAct(ctx, channel, "u1", "Rey", "something else")
	assert.ErrorIs(t, err, encounter.ErrNoPreviousAction)
	assert.Equal(t, "❌ No previous action found to edit.", reply.Message)
}

func TestNewRound_ResetsActionPoints(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7, 20, 90)
	hs.started(t)
	ctx := context.Background()
	_, err := hs.h.Act(ctx, channel, "u1", "Rey", "shoot")
	require.NoError(t, err)

	reply, err := hs.h.NewRound(ctx, channel, "gm")
	require.NoError(t, err)
	assert.Equal(t, "🔄 **Round 2 begins!**", reply.Message)

	enc := hs.encounter(t)
	assert.Equal(t, 2, enc.Round)
	assert.Equal(t, 2, enc.Initiative[0].ActionPoints)
	assert.Nil(t, enc.LastAct)
	assert.NotNil(t, enc.HasPending("u1"))

	_, err = hs.h.EditAct(ctx, channel, "u1", "Rey", "x")
	assert.ErrorIs(t, err, encounter.ErrNoPreviousAction)
}

func TestEndCombat(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7)
	hs.started(t)
	ctx := context.Background()

	reply, err := hs.h.EndCombat(ctx, channel, "gm")
	require.NoError(t, err)
	assert.Equal(t, "🏁 **Combat ended!**", reply.Message)

	_, err = hs.h.Tracker(ctx, channel)
	assert.ErrorIs(t, err, gameserver.ErrNoEncounter)

	_, err = hs.h.EndCombat(ctx, channel, "gm")
	assert.ErrorIs(t, err, gameserver.ErrNoEncounter)

	_, err = hs.h.StartCombat(ctx, channel, "gm", "again")
	require.NoError(t, err)
	_, err = hs.h.Tracker(ctx, channel)
	assert.NoError(t, err)
}

func TestSetTrackerMessage(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{}, 7)
	hs.started(t)
	require.NoError(t, hs.h.SetTrackerMessage(context.Background(), channel, "msg-9"))
	assert.Equal(t, "msg-9", hs.encounter(t).MessageID)
}

func TestSweepExpired_DropsStalePending(t *testing.T) {
	hs := newHarness(t, config.CombatConfig{PendingExpiry: time.Minute}, 7, 20, 90)
	hs.started(t)
	ctx := context.Background()
	_, err := hs.h.Act(ctx, channel, "u1", "Rey", "shoot")
	require.NoError(t, err)

	n, err := hs.h.SweepExpired(ctx, fixedNow.Add(30*time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = hs.h.SweepExpired(ctx, fixedNow.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	enc := hs.encounter(t)
	assert.Nil(t, enc.HasPending("u1"))
	assert.Contains(t, enc.Log, "⌛ Pending action for Rey expired")
}
