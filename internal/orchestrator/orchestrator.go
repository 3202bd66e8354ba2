// Package orchestrator drives a story session: each turn it either
// traverses the authored scene graph or delegates to the generation
// client, absorbs the result, applies scripted events, and persists
// state. It reconciles the two narrative sources under a hard turn
// budget; a bad generation degrades to a safe fallback scene, never to
// a corrupted session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tatianab/ironskeleton/internal/events"
	"github.com/tatianab/ironskeleton/internal/generate"
	"github.com/tatianab/ironskeleton/internal/history"
	"github.com/tatianab/ironskeleton/internal/models"
	"github.com/tatianab/ironskeleton/internal/theme"
)

// TakeoverPrefix marks authored scenes that hand the story over to
// generation on entry. Authors route the static graph into dynamic
// content by naming a scene takeover_<anything>.
const TakeoverPrefix = "takeover_"

// FallbackSceneID is the id of the safe scene substituted whenever a
// generation call fails.
const FallbackSceneID = "fallback"

var (
	// ErrInvalidOption reports a numeric choice that does not exist in
	// the current scene. State is left unchanged.
	ErrInvalidOption = errors.New("no such option in the current scene")
	// ErrGameOver reports a turn attempted after the session ended.
	ErrGameOver = errors.New("the session has ended")
)

// NotifyFunc observes stat changes: one call per non-zero delta, with
// the stat name and the signed delta. It must not affect control flow.
type NotifyFunc func(stat string, delta int)

// Config collects the orchestrator's collaborators and limits,
// constructed once and passed by reference. Client and Rng are
// substitutable with deterministic fakes in tests.
type Config struct {
	MaxTurns   int
	Client     generate.Client
	Rng        events.Rand
	Logger     zerolog.Logger
	Notify     NotifyFunc
	GenTimeout time.Duration
	SessionLog *history.SessionLog
}

// Orchestrator is the per-session state machine. It is not safe for
// concurrent turns: callers serialize RunTurn per session.
type Orchestrator struct {
	theme  *theme.Theme
	world  *models.WorldState
	events *events.Engine
	store  *history.Store
	cfg    Config

	mode       models.Mode
	anchorID   string
	anchorText string
	turnCount  int

	freeText map[models.Mode]func(context.Context, string) (string, []string, error)
}

// New builds a session over a loaded theme. The history store owns the
// interaction window and the durable snapshot.
func New(t *theme.Theme, store *history.Store, cfg Config) *Orchestrator {
	o := &Orchestrator{
		theme: t,
		world: &models.WorldState{
			Scenes: t.Graph.Clone(),
			Player: t.NewPlayer(),
		},
		events: events.NewEngine(t.Triggers, cfg.Rng),
		store:  store,
		cfg:    cfg,
		mode:   models.ModeScripted,
	}
	o.freeText = map[models.Mode]func(context.Context, string) (string, []string, error){
		models.ModeScripted:  o.scriptedFreeText,
		models.ModeGenerated: o.generatedFreeText,
	}
	return o
}

// Mode reports the current session mode.
func (o *Orchestrator) Mode() models.Mode { return o.mode }

// TurnCount reports the monotonic session turn counter.
func (o *Orchestrator) TurnCount() int { return o.turnCount }

// MaxTurns reports the configured turn budget.
func (o *Orchestrator) MaxTurns() int { return o.cfg.MaxTurns }

// GetCurrentScene returns the scene the player is in.
func (o *Orchestrator) GetCurrentScene() *models.Scene {
	scene, ok := o.world.Scene(o.world.Player.LocationID)
	if !ok {
		// Unreachable on a validated graph; keep the session alive anyway.
		return fallbackScene()
	}
	return scene
}

// Hud returns a snapshot of the player stats for presentation.
func (o *Orchestrator) Hud() models.Player {
	return *o.world.Player
}

// CheckGameOver reports whether the session ended, and why. Running
// out of hp ends the session regardless of the scene.
func (o *Orchestrator) CheckGameOver() (string, bool) {
	if o.world.Player.HP <= 0 {
		return "Your wounds overcome you. The story ends here.", true
	}
	scene := o.GetCurrentScene()
	if scene.IsEnd {
		if scene.EndingTitle != "" {
			return scene.EndingTitle, true
		}
		return "The End", true
	}
	return "", false
}

// RunTurn advances the session by one player input and returns the
// narrative text plus descriptions of any fired events.
//
// Dispatch: a valid option index traverses the graph; free-form text
// in Scripted mode records the anchor and hands over to generation;
// Generated mode delegates everything unmatched. An empty input
// re-renders the current scene without consuming a turn, and an
// invalid choice in Scripted mode leaves state untouched.
func (o *Orchestrator) RunTurn(ctx context.Context, input string) (string, []string, error) {
	if _, over := o.CheckGameOver(); over {
		return "", nil, ErrGameOver
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return o.GetCurrentScene().Text, nil, nil
	}

	if id, err := strconv.Atoi(trimmed); err == nil {
		scene := o.GetCurrentScene()
		opt, ok := scene.Option(id)
		if !ok {
			if o.mode == models.ModeGenerated {
				return o.generatedFreeText(ctx, trimmed)
			}
			return "", nil, ErrInvalidOption
		}
		if _, exists := o.world.Scene(opt.NextSceneID); !exists {
			// Open-ended generated options point at a placeholder id;
			// following one is another generation delegation.
			if o.mode == models.ModeGenerated {
				return o.delegate(ctx, opt.Text)
			}
			return "", nil, ErrInvalidOption
		}
		return o.traverse(ctx, opt, trimmed)
	}

	return o.freeText[o.mode](ctx, trimmed)
}

// SelectOption advances the session by a numeric choice. An unknown id
// fails without mutating the player, the history window or the
// snapshot.
func (o *Orchestrator) SelectOption(ctx context.Context, choiceID int) (string, []string, error) {
	return o.RunTurn(ctx, strconv.Itoa(choiceID))
}

// ResetGame discards the whole world state and starts the theme over.
// The scene arena, including every generated scene, is dropped and
// rebuilt from the authored graph.
func (o *Orchestrator) ResetGame() {
	o.world = &models.WorldState{
		Scenes: o.theme.Graph.Clone(),
		Player: o.theme.NewPlayer(),
	}
	o.mode = models.ModeScripted
	o.anchorID = ""
	o.anchorText = ""
	o.turnCount = 0
	if err := o.store.Reset(); err != nil {
		o.cfg.Logger.Error().Err(err).Msg("resetting history store")
	}
}

// Resume restores player, turn counter and history window from the
// durable snapshot. Only sessions parked on an authored scene can be
// resumed; a generated detour does not survive a restart.
func (o *Orchestrator) Resume() error {
	snap, err := o.store.Load()
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if _, ok := o.world.Scene(snap.CurrentLocation); !ok {
		return fmt.Errorf("snapshot location %q is not an authored scene", snap.CurrentLocation)
	}
	player := snap.Player
	o.world.Player = &player
	o.world.Player.LocationID = snap.CurrentLocation
	o.turnCount = snap.TurnCount
	o.store.Restore(snap.RecentHistory)
	o.mode = models.ModeScripted
	o.anchorID = ""
	o.anchorText = ""
	return nil
}

// traverse follows an authored (or generated, re-anchored) edge. The
// mode is unchanged unless the entered scene is a takeover scene or
// the turn budget fires.
func (o *Orchestrator) traverse(ctx context.Context, opt models.Option, rawInput string) (string, []string, error) {
	o.turnCount++

	target, _ := o.world.Scene(opt.NextSceneID)

	if strings.HasPrefix(target.ID, TakeoverPrefix) {
		o.setAnchor(target)
		o.mode = models.ModeGenerated
		return o.generateTurn(ctx, opt.Text)
	}

	if o.turnCount >= o.cfg.MaxTurns && !target.IsEnd {
		if o.anchorID == "" {
			o.setAnchor(o.GetCurrentScene())
		}
		o.mode = models.ModeGenerated
		return o.generateTurn(ctx, opt.Text)
	}

	o.world.Player.LocationID = target.ID
	descriptions := o.fireEvents(target.ID)

	o.store.AddInteraction(rawInput, opt.Text)
	o.logTranscript(rawInput, target.Text)
	o.persist()

	return target.Text, descriptions, nil
}

// scriptedFreeText leaves the authored graph: the current scene
// becomes the anchor generation is steered back to.
func (o *Orchestrator) scriptedFreeText(ctx context.Context, input string) (string, []string, error) {
	o.setAnchor(o.GetCurrentScene())
	o.mode = models.ModeGenerated
	return o.delegate(ctx, input)
}

func (o *Orchestrator) generatedFreeText(ctx context.Context, input string) (string, []string, error) {
	return o.delegate(ctx, input)
}

func (o *Orchestrator) delegate(ctx context.Context, input string) (string, []string, error) {
	o.turnCount++
	return o.generateTurn(ctx, input)
}

// generateTurn invokes the generation client and absorbs the result.
// This is the single point where generation failure is converted to
// the fallback scene.
func (o *Orchestrator) generateTurn(ctx context.Context, input string) (string, []string, error) {
	conclude := o.turnCount >= o.cfg.MaxTurns

	req := generate.Request{
		WorldSummary:  o.theme.Manifest.Intro,
		HistoryWindow: o.store.Window(),
		Stats:         *o.world.Player,
		LastInput:     input,
		TurnCount:     o.turnCount,
		MaxTurns:      o.cfg.MaxTurns,
		AnchorID:      o.anchorID,
		AnchorText:    o.anchorText,
		Conclude:      conclude,
	}

	result, err := o.callClient(ctx, req)

	var scene *models.Scene
	if err != nil {
		o.cfg.Logger.Warn().Err(err).Int("turn", o.turnCount).Msg("generation failed, using fallback scene")
		scene = fallbackScene()
	} else {
		if _, exists := o.world.Scene(result.ID); exists {
			result.ID = "generated_" + uuid.NewString()
		}
		o.applyEffect(result.StatDelta)
		scene = result.Scene()
		if result.ReachedTargetAnchor && o.anchorID != "" && !conclude {
			for i := range scene.Options {
				scene.Options[i].NextSceneID = o.anchorID
			}
			o.mode = models.ModeScripted
			o.anchorID = ""
			o.anchorText = ""
		}
	}

	// Budget enforcement overrides whatever came back, fallback included.
	if conclude {
		scene.IsEnd = true
		scene.Options = nil
	}

	o.world.Scenes[scene.ID] = scene
	o.world.Player.LocationID = scene.ID
	descriptions := o.fireEvents(scene.ID)

	o.store.AddInteraction(input, scene.Text)
	o.logTranscript(input, scene.Text)
	o.persist()

	return scene.Text, descriptions, nil
}

// callClient shields the session from a misbehaving client: panics
// and timeouts surface as ordinary generation failures.
func (o *Orchestrator) callClient(ctx context.Context, req generate.Request) (result *models.GenerationResult, err error) {
	if o.cfg.GenTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.GenTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: panic in generation client: %v", generate.ErrGenerationFailed, r)
		}
	}()
	return o.cfg.Client.Generate(ctx, req)
}

// applyEffect adds each stat delta to the player and clamps the
// result. The notification hook fires once per non-zero delta.
func (o *Orchestrator) applyEffect(effect map[string]int) {
	if len(effect) == 0 {
		return
	}
	for _, name := range []string{models.StatHP, models.StatMana, models.StatBullets, models.StatCredits} {
		delta, ok := effect[name]
		if !ok || delta == 0 {
			continue
		}
		current, _ := o.world.Player.Stat(name)
		o.world.Player.SetStat(name, models.ClampStat(name, current+delta))
		if o.cfg.Notify != nil {
			o.cfg.Notify(name, delta)
		}
	}
}

// fireEvents checks the trigger table for the entered location and
// applies every fired effect in trigger-table order.
func (o *Orchestrator) fireEvents(locationID string) []string {
	fired := o.events.CheckTriggers(locationID)
	if len(fired) == 0 {
		return nil
	}
	descriptions := make([]string, 0, len(fired))
	for _, f := range fired {
		o.applyEffect(f.Effect)
		descriptions = append(descriptions, f.Narrative)
	}
	return descriptions
}

// persist writes the durable snapshot. A write failure never aborts
// the turn; it is reported to the operator channel instead.
func (o *Orchestrator) persist() {
	if err := o.store.Snapshot(o.world.Player, o.world.Player.LocationID, o.turnCount); err != nil {
		o.cfg.Logger.Error().Err(err).Msg("snapshot write failed")
	}
}

func (o *Orchestrator) logTranscript(input, output string) {
	if o.cfg.SessionLog == nil {
		return
	}
	if err := o.cfg.SessionLog.Append("player", input); err != nil {
		o.cfg.Logger.Warn().Err(err).Msg("session log write failed")
		return
	}
	if err := o.cfg.SessionLog.Append("game", output); err != nil {
		o.cfg.Logger.Warn().Err(err).Msg("session log write failed")
	}
}

func (o *Orchestrator) setAnchor(scene *models.Scene) {
	o.anchorID = scene.ID
	o.anchorText = scene.Text
}

// fallbackScene is the fixed safe scene substituted for a failed
// generation: two looping options, never an end state.
func fallbackScene() *models.Scene {
	return &models.Scene{
		ID:   FallbackSceneID,
		Text: "The world flickers for a moment, as if the story lost its thread. You steady yourself; the scene settles back into focus.",
		Options: []models.Option{
			{ID: 1, Text: "Take a breath and look around.", NextSceneID: FallbackSceneID},
			{ID: 2, Text: "Press on carefully.", NextSceneID: FallbackSceneID},
		},
	}
}
