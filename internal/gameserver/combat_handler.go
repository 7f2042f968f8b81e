package gameserver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/config"
	"github.com/cory-johannsen/combot/internal/extract"
	"github.com/cory-johannsen/combot/internal/game/character"
	"github.com/cory-johannsen/combot/internal/game/combat"
	"github.com/cory-johannsen/combot/internal/game/dice"
	"github.com/cory-johannsen/combot/internal/game/encounter"
	"github.com/cory-johannsen/combot/internal/observability"
	"github.com/cory-johannsen/combot/internal/sheet"
	"github.com/cory-johannsen/combot/internal/storage"
)

var (
	// ErrNoEncounter is returned when the channel has no active combat.
	ErrNoEncounter = errors.New("no active combat in this channel")
	// ErrNotInInitiative is returned when an actor has not joined initiative.
	ErrNotInInitiative = errors.New("user has not rolled initiative")
	// ErrUnparseableAction is returned when an action could not be understood.
	ErrUnparseableAction = errors.New("could not understand action")
	// ErrInvalidResolution is returned when a pending-action reply supplied nothing usable.
	ErrInvalidResolution = errors.New("invalid response for pending action")
	// ErrNotReferee is returned when a referee-only command is issued by someone else.
	ErrNotReferee = errors.New("only the referee may do that")
	// ErrInvalidSheetURL is returned when Identify is given an unusable URL.
	ErrInvalidSheetURL = errors.New("invalid character sheet URL")
	// ErrVersionConflict is returned when the encounter changed underneath a command.
	ErrVersionConflict = storage.ErrVersionConflict
)

const (
	msgNoCombat       = "❌ No active combat in this channel!"
	msgNoCombatAct    = "❌ No active combat!"
	msgNeedInitiative = "❌ You need to roll initiative first! Use `/combot initiative`"
	msgAlreadyJoined  = "You're already in the initiative order!"
	msgNotReferee     = "❌ Only the GM can %s!"
	msgStorageFailure = "❌ Failed to save combat state. Please try again."
	msgNoPrevious     = "❌ No previous action found to edit."
	msgCombinedFailed = "❌ Could not extract damage/effects from your response."
)

// Store is the persistence the CombatHandler needs.
type Store interface {
	storage.EncounterStore
	storage.CharacterLinkStore
}

// Reply is the user-facing outcome of one command.
type Reply struct {
	Message string `json:"message"`
	IsError bool   `json:"isError"`
	// NeedsFollowUp is set while the acting user still owes a pending action.
	NeedsFollowUp bool `json:"needsFollowUp"`
	// Tracker is the encounter summary after the command, when it changed.
	Tracker *encounter.Tracker `json:"tracker,omitempty"`
}

func errorReply(msg string) Reply { return Reply{Message: msg, IsError: true} }

// CombatHandler runs combot's combat commands against persisted encounters.
//
// Commands for one channel are serialised by a per-channel mutex; writes use
// the store's version check so concurrent hosts cannot silently overwrite
// each other.
type CombatHandler struct {
	store       Store
	extractor   extract.Extractor
	sheets      sheet.Fetcher
	tables      *combat.Tables
	roller      *dice.Roller
	resolver    *combat.Resolver
	applier     *encounter.Applier
	cfg         config.CombatConfig
	logger      *zap.Logger
	broadcastFn func(channelID string, tracker encounter.Tracker)
	now         func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewCombatHandler creates a CombatHandler.
//
// Precondition: all arguments except broadcastFn must be non-nil;
// cfg.MaxActionPoints must be >= 1. broadcastFn, when non-nil, receives the
// tracker after every successful mutation.
// Postcondition: Returns a non-nil CombatHandler.
func NewCombatHandler(
	store Store,
	extractor extract.Extractor,
	sheets sheet.Fetcher,
	tables *combat.Tables,
	roller *dice.Roller,
	cfg config.CombatConfig,
	logger *zap.Logger,
	broadcastFn func(channelID string, tracker encounter.Tracker),
) *CombatHandler {
	return &CombatHandler{
		store:       store,
		extractor:   extractor,
		sheets:      sheets,
		tables:      tables,
		roller:      roller,
		resolver:    combat.NewResolver(tables, logger),
		applier:     encounter.NewApplier(tables, roller, logger, cfg.PendingExpiry),
		cfg:         cfg,
		logger:      logger,
		broadcastFn: broadcastFn,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// WithClock replaces the handler's time source.
func (h *CombatHandler) WithClock(now func() time.Time) *CombatHandler {
	h.now = now
	h.applier.WithClock(now)
	return h
}

func (h *CombatHandler) lock(channelID string) func() {
	h.locksMu.Lock()
	mu, ok := h.locks[channelID]
	if !ok {
		mu = &sync.Mutex{}
		h.locks[channelID] = mu
	}
	h.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// forget drops channelID's lock. The caller holds it; anyone already waiting
// on it still gets it and finds no encounter.
func (h *CombatHandler) forget(channelID string) {
	h.locksMu.Lock()
	delete(h.locks, channelID)
	h.locksMu.Unlock()
}

func (h *CombatHandler) isReferee(userID string) bool {
	return h.cfg.RefereeUserID != "" && userID == h.cfg.RefereeUserID
}

func (h *CombatHandler) requireReferee(userID, what string) (Reply, error) {
	if h.cfg.RefereeUserID == "" || h.isReferee(userID) {
		return Reply{}, nil
	}
	return errorReply(fmt.Sprintf(msgNotReferee, what)), ErrNotReferee
}

// storageFailure logs err and converts it to the generic retry reply.
func (h *CombatHandler) storageFailure(op, channelID string, err error) (Reply, error) {
	h.logger.Error("combat storage failure",
		zap.String("op", op),
		zap.String("channel_id", channelID),
		zap.Error(err),
	)
	return errorReply(msgStorageFailure), fmt.Errorf("%s: %w", op, err)
}

// load fetches the channel's encounter, mapping a missing one to ErrNoEncounter.
func (h *CombatHandler) load(ctx context.Context, channelID string) (*encounter.Encounter, error) {
	enc, err := h.store.GetEncounter(ctx, channelID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoEncounter
	}
	if err != nil {
		return nil, fmt.Errorf("loading encounter: %w", err)
	}
	return enc, nil
}

// save writes enc with a version check and publishes its tracker.
func (h *CombatHandler) save(ctx context.Context, enc *encounter.Encounter) (*encounter.Tracker, error) {
	enc.UpdatedAt = h.now()
	if err := h.store.UpdateEncounter(ctx, enc); err != nil {
		return nil, fmt.Errorf("saving encounter: %w", err)
	}
	return h.publish(enc), nil
}

func (h *CombatHandler) publish(enc *encounter.Encounter) *encounter.Tracker {
	t := encounter.BuildTracker(enc, h.tables.LocationKeys())
	if h.broadcastFn != nil {
		h.broadcastFn(enc.ChannelID, t)
	}
	return &t
}

// touch forgets the unwind checkpoint when someone other than its owner
// changes the encounter.
func touch(enc *encounter.Encounter, userID string) {
	if enc.LastAct != nil && enc.LastAct.UserID != userID {
		enc.LastAct = nil
	}
}

// Identify links userID's character sheet for channelID.
//
// Precondition: rawURL must be an http or https URL.
// Postcondition: the cleaned URL (no fragment or trailing slashes) is stored.
func (h *CombatHandler) Identify(ctx context.Context, channelID, userID, username, rawURL string) (Reply, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return errorReply("❌ Please provide a character sheet URL!"), ErrInvalidSheetURL
	}
	url, _, _ = strings.Cut(url, "#")
	url = strings.TrimRight(url, "/")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errorReply("❌ Please provide a valid URL starting with http:// or https://"), ErrInvalidSheetURL
	}

	link := character.Link{UserID: userID, ChannelID: channelID, SheetURL: url, UpdatedAt: h.now()}
	if err := h.store.SetCharacterLink(ctx, link); err != nil {
		return h.storageFailure("identify", channelID, err)
	}
	h.logger.Info("character sheet linked",
		zap.String("channel_id", channelID),
		zap.String("user_id", userID),
	)
	return Reply{Message: fmt.Sprintf("✅ Character sheet linked for %s!\nStored URL: %s", username, url)}, nil
}

// sheetFor returns the linked sheet for userID, or nil when none is linked
// or it cannot be fetched.
func (h *CombatHandler) sheetFor(ctx context.Context, channelID, userID string) *character.Data {
	link, err := h.store.CharacterLink(ctx, userID, channelID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Warn("loading character link", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return h.sheets.Fetch(ctx, link.SheetURL)
}

// StartCombat creates a new encounter in channelID from a description of the
// enemies, replacing any encounter already there.
//
// Postcondition: the stored encounter is at round 1 with an empty initiative.
func (h *CombatHandler) StartCombat(ctx context.Context, channelID, userID, description string) (reply Reply, err error) {
	ctx, span := observability.StartSpan(ctx, "combat.start", attribute.String("channel_id", channelID))
	defer func() { observability.EndSpan(span, err) }()

	if r, err := h.requireReferee(userID, "start combat"); err != nil {
		return r, err
	}
	defer h.lock(channelID)()

	in := h.extractor.CreateEnemies(ctx, description)
	enc := encounter.New(channelID, h.tables, in, h.now())
	if err := h.store.CreateEncounter(ctx, enc); err != nil {
		return h.storageFailure("start combat", channelID, err)
	}
	observability.ChannelLogger(h.logger, channelID, enc.ID).Info("combat started",
		zap.Int("enemies", len(enc.Enemies)),
	)
	t := h.publish(enc)
	return Reply{Message: t.Text(), Tracker: t}, nil
}

// JoinInitiative rolls initiative for userID and adds them to the order.
//
// Initiative is 1d10 + floor(INT/10) with INT from the linked sheet
// (default 10); the display name is the sheet name or username.
func (h *CombatHandler) JoinInitiative(ctx context.Context, channelID, userID, username string) (reply Reply, err error) {
	ctx, span := observability.StartSpan(ctx, "combat.initiative", attribute.String("channel_id", channelID))
	defer func() { observability.EndSpan(span, err) }()
	defer h.lock(channelID)()

	enc, err := h.load(ctx, channelID)
	if errors.Is(err, ErrNoEncounter) {
		return errorReply(msgNoCombat), err
	}
	if err != nil {
		return h.storageFailure("join initiative", channelID, err)
	}
	if enc.Participant(userID) != nil {
		return errorReply(msgAlreadyJoined), encounter.ErrAlreadyInInitiative
	}

	data := h.sheetFor(ctx, channelID, userID)
	name := data.DisplayName(username)
	roll := h.roller.D10("initiative")
	bonus := combat.InitiativeBonus(data.Intelligence())
	total := roll + bonus

	if _, err := enc.JoinInitiative(userID, name, total, h.cfg.MaxActionPoints); err != nil {
		return errorReply(msgAlreadyJoined), err
	}
	touch(enc, userID)
	line := fmt.Sprintf("🎲 %s rolled **%d** for initiative! (%d + %d)", name, total, roll, bonus)
	enc.AppendLog(line)

	t, err := h.save(ctx, enc)
	if err != nil {
		return h.storageFailure("join initiative", channelID, err)
	}
	return Reply{Message: line, Tracker: t}, nil
}

// NewRound starts the next round: action points refresh and the turn returns
// to the top of the order.
func (h *CombatHandler) NewRound(ctx context.Context, channelID, userID string) (reply Reply, err error) {
	ctx, span := observability.StartSpan(ctx, "combat.new_round", attribute.String("channel_id", channelID))
	defer func() { observability.EndSpan(span, err) }()

	if r, err := h.requireReferee(userID, "start a new round"); err != nil {
		return r, err
	}
	defer h.lock(channelID)()

	enc, err := h.load(ctx, channelID)
	if errors.Is(err, ErrNoEncounter) {
		return errorReply(msgNoCombat), err
	}
	if err != nil {
		return h.storageFailure("new round", channelID, err)
	}
	enc.NewRound()
	t, err := h.save(ctx, enc)
	if err != nil {
		return h.storageFailure("new round", channelID, err)
	}
	return Reply{Message: fmt.Sprintf("🔄 **Round %d begins!**", enc.Round), Tracker: t}, nil
}

// EndCombat removes the channel's encounter.
func (h *CombatHandler) EndCombat(ctx context.Context, channelID, userID string) (reply Reply, err error) {
	ctx, span := observability.StartSpan(ctx, "combat.end", attribute.String("channel_id", channelID))
	defer func() { observability.EndSpan(span, err) }()

	if r, err := h.requireReferee(userID, "end combat"); err != nil {
		return r, err
	}
	defer h.lock(channelID)()

	if _, err := h.load(ctx, channelID); err != nil {
		if errors.Is(err, ErrNoEncounter) {
			return errorReply(msgNoCombat), err
		}
		return h.storageFailure("end combat", channelID, err)
	}
	if err := h.store.DeleteEncounter(ctx, channelID); err != nil {
		return h.storageFailure("end combat", channelID, err)
	}
	h.forget(channelID)
	h.logger.Info("combat ended", zap.String("channel_id", channelID))
	return Reply{Message: "🏁 **Combat ended!**"}, nil
}

// Tracker returns the current summary of the channel's encounter.
func (h *CombatHandler) Tracker(ctx context.Context, channelID string) (encounter.Tracker, error) {
	enc, err := h.load(ctx, channelID)
	if err != nil {
		return encounter.Tracker{}, err
	}
	return encounter.BuildTracker(enc, h.tables.LocationKeys()), nil
}

// SetTrackerMessage records the transport message that displays the tracker.
func (h *CombatHandler) SetTrackerMessage(ctx context.Context, channelID, messageID string) error {
	defer h.lock(channelID)()
	enc, err := h.load(ctx, channelID)
	if err != nil {
		return err
	}
	enc.MessageID = messageID
	enc.UpdatedAt = h.now()
	if err := h.store.UpdateEncounter(ctx, enc); err != nil {
		return fmt.Errorf("saving tracker message: %w", err)
	}
	return nil
}

// Act interprets text from userID as either a reply to their oldest pending
// action or a new attack, applies it, and persists the encounter.
//
// Precondition: userID has joined initiative, or is the configured referee
// answering a referee-owned pending action.
// Postcondition: on success the acting user's previous state is checkpointed
// so EditAct can unwind it.
func (h *CombatHandler) Act(ctx context.Context, channelID, userID, username, text string) (reply Reply, err error) {
	ctx, span := observability.StartSpan(ctx, "combat.act", attribute.String("channel_id", channelID))
	defer func() { observability.EndSpan(span, err) }()
	defer h.lock(channelID)()

	enc, err := h.load(ctx, channelID)
	if errors.Is(err, ErrNoEncounter) {
		return errorReply(msgNoCombatAct), err
	}
	if err != nil {
		return h.storageFailure("act", channelID, err)
	}
	return h.act(ctx, enc, userID, username, text)
}

// owed returns the pending actions userID may answer, oldest first.
func (h *CombatHandler) owed(enc *encounter.Encounter, userID string) []*encounter.PendingAction {
	out := enc.PendingFor(userID)
	if h.isReferee(userID) {
		out = append(out, enc.PendingFor(encounter.RefereeID)...)
	}
	return out
}

func (h *CombatHandler) act(ctx context.Context, enc *encounter.Encounter, userID, username, text string) (Reply, error) {
	participant := enc.Participant(userID)
	owed := h.owed(enc, userID)
	if participant == nil && len(owed) == 0 {
		return errorReply(msgNeedInitiative), ErrNotInInitiative
	}
	if len(owed) > 0 {
		return h.answerPending(ctx, enc, owed, userID, username, text)
	}

	data := h.sheetFor(ctx, enc.ChannelID, userID)
	parsed := h.extractor.ParseAction(ctx, text, enc.LivingEnemies(), data)
	if !parsed.OK() || !parsed.Value.HasTargets() {
		h.logger.Info("action not understood",
			zap.String("channel_id", enc.ChannelID),
			zap.String("user_id", userID),
			zap.String("reason", parsed.Reason),
		)
		return errorReply("❌ Could not understand that action. Try something like:\n• `attack [enemy name]`"), ErrUnparseableAction
	}
	action := parsed.Value
	if v, ok := data.SkillValue(action.AttackerSkillName); ok {
		action.AttackerSkillValue = float64(v)
	}

	if err := enc.MarkAct(userID); err != nil {
		return h.storageFailure("act", enc.ChannelID, err)
	}
	rolls := combat.Rolls{Defense: make([]int, len(action.EnemyDefenses))}
	if roll, ok := action.SuppliedRoll(); ok {
		rolls.Attack = roll
	} else {
		rolls.Attack = h.roller.Percentile("attack")
	}
	for i := range rolls.Defense {
		rolls.Defense[i] = h.roller.Percentile("defense")
	}

	resolutions := h.resolver.Resolve(action, userID, enc.Defenders(), rolls)
	if len(resolutions) == 0 {
		// Nothing was hit: the loaded encounter is dropped unsaved, so no AP is spent.
		h.logger.Info("action matched no enemy",
			zap.String("channel_id", enc.ChannelID),
			zap.String("user_id", userID),
		)
		return Reply{Message: encounter.FormatResolutions(resolutions)}, nil
	}
	created := h.applier.ApplyResolutions(enc, resolutions, userID)
	mine := ownedBy(created, userID)

	enc.AppendLog(fmt.Sprintf("**%s**: %s", username, text))
	enc.AppendLog(encounter.FormatResolutions(resolutions))
	if participant != nil {
		participant.LastAction = text
	}

	t, err := h.save(ctx, enc)
	if err != nil {
		return h.storageFailure("act", enc.ChannelID, err)
	}
	observability.ChannelLogger(h.logger, enc.ChannelID, enc.ID).Info("action resolved",
		zap.String("user_id", userID),
		zap.Int("resolutions", len(resolutions)),
		zap.Int("pending", len(created)),
	)
	msg := encounter.FormatResolutions(resolutions) + actionRequired(mine)
	if len(mine) < len(created) {
		msg += "\n\n🎲 The defender won special effects; the GM will choose them."
	}
	return Reply{
		Message:       msg,
		NeedsFollowUp: len(mine) > 0,
		Tracker:       t,
	}, nil
}

// ownedBy filters pending to the actions userID must answer.
func ownedBy(pending []*encounter.PendingAction, userID string) []*encounter.PendingAction {
	var out []*encounter.PendingAction
	for _, p := range pending {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func actionRequired(pending []*encounter.PendingAction) string {
	if len(pending) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n**⏳ Action Required:**\n")
	for _, p := range pending {
		b.WriteString(encounter.FormatPending(p))
		b.WriteString("\n")
	}
	b.WriteString("\n*Reply with your choice to continue*")
	return b.String()
}

// pair finds a roll_damage and a choose_special_effect action among owed.
func pair(owed []*encounter.PendingAction) (damage, effect *encounter.PendingAction) {
	for _, p := range owed {
		switch {
		case p.Kind == encounter.KindRollDamage && damage == nil:
			damage = p
		case p.Kind == encounter.KindChooseEffect && effect == nil:
			effect = p
		}
	}
	return damage, effect
}

func (h *CombatHandler) answerPending(
	ctx context.Context,
	enc *encounter.Encounter,
	owed []*encounter.PendingAction,
	userID, username, text string,
) (Reply, error) {
	first := owed[0]
	invalid := func() (Reply, error) {
		return Reply{
			Message:       "❌ Invalid response for pending action.\n" + encounter.FormatPending(first),
			IsError:       true,
			NeedsFollowUp: true,
		}, ErrInvalidResolution
	}

	if err := enc.MarkAct(userID); err != nil {
		return h.storageFailure("act", enc.ChannelID, err)
	}

	mark := len(enc.Log)
	var outcome encounter.Outcome
	damage, effect := pair(ownedBy(owed, first.UserID))
	if first.Kind != encounter.KindAttackResult && damage != nil && effect != nil {
		count := 0
		if effect.Effect != nil {
			count = effect.Effect.Count
		}
		res := h.extractor.ParseCombined(ctx, text, count)
		if !res.OK() {
			return Reply{Message: msgCombinedFailed, IsError: true, NeedsFollowUp: true}, ErrInvalidResolution
		}
		outcome = h.applier.ResolveCombined(enc, damage, effect, res.Value)
		if !outcome.Valid {
			return Reply{Message: msgCombinedFailed, IsError: true, NeedsFollowUp: true}, ErrInvalidResolution
		}
	} else {
		res := h.extractor.ParseResolution(ctx, first, text)
		if !res.OK() {
			return invalid()
		}
		outcome = h.applier.ResolvePending(enc, first, res.Value)
		if !outcome.Valid {
			return invalid()
		}
	}

	// The applier logged the outcome; the user's words go in front of it.
	enc.Log = slices.Insert(enc.Log, mark, fmt.Sprintf("**%s**: %s", username, text))

	t, err := h.save(ctx, enc)
	if err != nil {
		return h.storageFailure("act", enc.ChannelID, err)
	}
	remaining := h.owed(enc, userID)
	return Reply{
		Message:       outcome.Message + actionRequired(remaining),
		NeedsFollowUp: len(remaining) > 0,
		Tracker:       t,
	}, nil
}

// EditAct unwinds userID's most recent act and performs text in its place.
//
// Postcondition: the unwound state is persisted even when text itself cannot
// be applied.
func (h *CombatHandler) EditAct(ctx context.Context, channelID, userID, username, text string) (reply Reply, err error) {
	ctx, span := observability.StartSpan(ctx, "combat.edit", attribute.String("channel_id", channelID))
	defer func() { observability.EndSpan(span, err) }()
	defer h.lock(channelID)()

	enc, err := h.load(ctx, channelID)
	if errors.Is(err, ErrNoEncounter) {
		return errorReply(msgNoCombatAct), err
	}
	if err != nil {
		return h.storageFailure("edit", channelID, err)
	}
	restored, logIndex, err := enc.Unwind(userID)
	if errors.Is(err, encounter.ErrNoPreviousAction) {
		return errorReply(msgNoPrevious), err
	}
	if err != nil {
		return h.storageFailure("edit", channelID, err)
	}

	reverted := encounter.Reverted(enc, restored)
	if logIndex <= len(restored.Log) {
		restored.Log = restored.Log[:logIndex]
	}
	restored.AppendLog(fmt.Sprintf("📝 *Action edited by %s*", username))
	if _, err := h.save(ctx, restored); err != nil {
		return h.storageFailure("edit", channelID, err)
	}
	h.logger.Info("action unwound",
		zap.String("channel_id", channelID),
		zap.String("user_id", userID),
		zap.Strings("reverted", reverted),
	)

	header := "✏️ **Previous action unwound**"
	if len(reverted) > 0 {
		header += "\n🔄 Reverted: " + strings.Join(reverted, ", ")
	}
	next, err := h.act(ctx, restored, userID, username, text)
	next.Message = header + "\n\n" + next.Message
	return next, err
}

// SweepExpired drops every pending action whose expiry is at or before now,
// across all channels.
//
// Postcondition: Returns the number of pending actions dropped.
func (h *CombatHandler) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	channels, err := h.store.ListChannels(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing channels: %w", err)
	}
	total := 0
	var errs []error
	for _, channelID := range channels {
		n, err := h.sweepChannel(ctx, channelID, now)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", channelID, err))
		}
	}
	return total, errors.Join(errs...)
}

func (h *CombatHandler) sweepChannel(ctx context.Context, channelID string, now time.Time) (int, error) {
	defer h.lock(channelID)()
	enc, err := h.load(ctx, channelID)
	if errors.Is(err, ErrNoEncounter) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	dropped := enc.DropExpiredPending(now)
	if len(dropped) == 0 {
		return 0, nil
	}
	for _, p := range dropped {
		enc.AppendLog(fmt.Sprintf("⌛ Pending action for %s expired", enc.OwnerName(p)))
	}
	if _, err := h.save(ctx, enc); err != nil {
		return 0, err
	}
	h.logger.Info("expired pending actions dropped",
		zap.String("channel_id", channelID),
		zap.Int("count", len(dropped)),
	)
	return len(dropped), nil
}
