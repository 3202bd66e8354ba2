package models

import "time"

// Mode selects how the next turn resolves: by walking the authored
// scene graph or by delegating to the generation client. It is a
// session-level flag, not a per-scene one.
type Mode int

const (
	ModeScripted Mode = iota
	ModeGenerated
)

func (m Mode) String() string {
	switch m {
	case ModeScripted:
		return "scripted"
	case ModeGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// Option is a labeled edge from one scene to another.
type Option struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	NextSceneID string `json:"nextSceneId"`
}

// Scene is a single narrative node with text and outgoing options.
// Authored scenes come from the theme's scene graph; generated scenes
// are synthesized per turn and inserted into the same keyed collection.
type Scene struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	IsEnd       bool     `json:"isEnd"`
	EndingTitle string   `json:"endingTitle,omitempty"`
	Options     []Option `json:"options"`
}

// Option returns the option with the given id, if present.
func (s *Scene) Option(id int) (Option, bool) {
	for _, opt := range s.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Item is something the player carries.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Stat names recognized in trigger effects and generation stat deltas.
const (
	StatHP      = "hp"
	StatMana    = "mana"
	StatBullets = "bullets"
	StatCredits = "credits"
)

// MaxHP is the upper clamp for the hp stat. The other stats have no
// configured upper bound.
const MaxHP = 100

// Player is the mutable player entity. It is owned by a WorldState and
// mutated only by the orchestrator's effect-application step.
type Player struct {
	LocationID string `json:"locationId"`
	HP         int    `json:"hp"`
	Mana       int    `json:"mana"`
	Bullets    int    `json:"bullets"`
	Credits    int    `json:"credits"`
	Inventory  []Item `json:"inventory,omitempty"`
}

// Stat returns the current value of a named stat.
func (p *Player) Stat(name string) (int, bool) {
	switch name {
	case StatHP:
		return p.HP, true
	case StatMana:
		return p.Mana, true
	case StatBullets:
		return p.Bullets, true
	case StatCredits:
		return p.Credits, true
	default:
		return 0, false
	}
}

// SetStat overwrites a named stat. Unknown names are ignored.
func (p *Player) SetStat(name string, value int) {
	switch name {
	case StatHP:
		p.HP = value
	case StatMana:
		p.Mana = value
	case StatBullets:
		p.Bullets = value
	case StatCredits:
		p.Credits = value
	}
}

// ClampStat bounds a stat value: hp to [0, MaxHP], everything else to
// [0, +inf).
func ClampStat(name string, value int) int {
	if value < 0 {
		return 0
	}
	if name == StatHP && value > MaxHP {
		return MaxHP
	}
	return value
}

// WorldState is the single mutable aggregate for a session: the scene
// arena (authored plus generated entries) and the player. It is
// discarded wholesale and recreated on reset.
type WorldState struct {
	Scenes map[string]*Scene
	Player *Player
}

// Scene returns the scene with the given id, if present.
func (w *WorldState) Scene(id string) (*Scene, bool) {
	s, ok := w.Scenes[id]
	return s, ok
}

// ConditionLocationEnter fires a trigger when the player enters the
// trigger's target location.
const ConditionLocationEnter = "location_enter"

// Trigger defines a probabilistic scripted event. The trigger set is
// loaded once per theme and immutable for the session.
type Trigger struct {
	EventID       string         `json:"eventId"`
	ConditionType string         `json:"conditionType"`
	TargetID      string         `json:"targetId"`
	Probability   float64        `json:"probability"`
	Narrative     string         `json:"narrativeDescription"`
	Effect        map[string]int `json:"result"`
}

// HistoryEntry is a single player interaction: what they did and what
// the engine answered.
type HistoryEntry struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Snapshot is the durable projection of a session, written after every
// turn and readable by out-of-process tooling.
type Snapshot struct {
	Player          Player         `json:"player_state"`
	CurrentLocation string         `json:"current_location"`
	RecentHistory   []HistoryEntry `json:"recent_history"`
	TurnCount       int            `json:"turn_count"`
	Timestamp       time.Time      `json:"timestamp"`
}

// GenerationResult is the validated shape a generation call must
// produce; anything else is treated as a failed call.
type GenerationResult struct {
	ID                  string         `json:"id"`
	Text                string         `json:"text"`
	IsEnd               bool           `json:"isEnd"`
	Options             []Option       `json:"options"`
	ReachedTargetAnchor bool           `json:"reachedTargetAnchor"`
	StatDelta           map[string]int `json:"statDelta,omitempty"`
}

// Scene converts the result into a scene ready for insertion into the
// world's scene collection.
func (r *GenerationResult) Scene() *Scene {
	opts := make([]Option, len(r.Options))
	copy(opts, r.Options)
	return &Scene{
		ID:      r.ID,
		Text:    r.Text,
		IsEnd:   r.IsEnd,
		Options: opts,
	}
}
