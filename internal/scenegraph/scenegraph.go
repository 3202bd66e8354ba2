// Package scenegraph loads and validates the authored branching story
// graph. A graph that fails validation is never exposed, even
// partially; traversal code may therefore assume every authored edge
// resolves.
package scenegraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tatianab/ironskeleton/internal/models"
)

// ValidationError describes a structural problem in a scene graph
// config, naming the offending scene (and option, where relevant).
type ValidationError struct {
	SceneID  string
	OptionID int
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.SceneID == "" {
		return fmt.Sprintf("scene graph: %s", e.Reason)
	}
	if e.OptionID != 0 {
		return fmt.Sprintf("scene %q, option %d: %s", e.SceneID, e.OptionID, e.Reason)
	}
	return fmt.Sprintf("scene %q: %s", e.SceneID, e.Reason)
}

// Graph is a validated, authored scene graph. The scene map is shared
// into a session's WorldState at start; Clone gives each session its
// own arena so generated scenes never leak between sessions.
type Graph struct {
	Scenes         map[string]*models.Scene
	InitialSceneID string
}

type graphConfig struct {
	InitialSceneID string                 `json:"initialSceneId"`
	Scenes         map[string]sceneConfig `json:"scenes"`
}

type sceneConfig struct {
	Text        string          `json:"text"`
	IsEnd       bool            `json:"isEnd"`
	EndingTitle string          `json:"endingTitle"`
	Options     []models.Option `json:"options"`
}

// Load parses and validates a scene graph config. Any violation fails
// the whole load with an error identifying the offending scene or
// option.
func Load(r io.Reader) (*Graph, error) {
	var cfg graphConfig
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing scene graph: %w", err)
	}

	if len(cfg.Scenes) == 0 {
		return nil, &ValidationError{Reason: "no scenes defined"}
	}

	scenes := make(map[string]*models.Scene, len(cfg.Scenes))
	for id, sc := range cfg.Scenes {
		scenes[id] = &models.Scene{
			ID:          id,
			Text:        sc.Text,
			IsEnd:       sc.IsEnd,
			EndingTitle: sc.EndingTitle,
			Options:     sc.Options,
		}
	}

	if err := validate(scenes, cfg.InitialSceneID); err != nil {
		return nil, err
	}

	return &Graph{Scenes: scenes, InitialSceneID: cfg.InitialSceneID}, nil
}

// LoadFile loads a scene graph from a file on disk.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scene graph: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func validate(scenes map[string]*models.Scene, initialID string) error {
	if initialID == "" {
		return &ValidationError{Reason: "missing initialSceneId"}
	}
	if _, ok := scenes[initialID]; !ok {
		return &ValidationError{Reason: fmt.Sprintf("initialSceneId %q does not exist", initialID)}
	}

	for id, scene := range scenes {
		seen := make(map[int]bool, len(scene.Options))
		for _, opt := range scene.Options {
			if seen[opt.ID] {
				return &ValidationError{SceneID: id, OptionID: opt.ID, Reason: "duplicate option id"}
			}
			seen[opt.ID] = true
			if _, ok := scenes[opt.NextSceneID]; !ok {
				return &ValidationError{
					SceneID:  id,
					OptionID: opt.ID,
					Reason:   fmt.Sprintf("nextSceneId %q does not exist", opt.NextSceneID),
				}
			}
		}
	}
	return nil
}

// Clone returns a fresh scene map seeded with the authored scenes.
// Scenes are copied so a session may rewrite generated options without
// touching the loaded graph.
func (g *Graph) Clone() map[string]*models.Scene {
	out := make(map[string]*models.Scene, len(g.Scenes))
	for id, s := range g.Scenes {
		cp := *s
		cp.Options = make([]models.Option, len(s.Options))
		copy(cp.Options, s.Options)
		out[id] = &cp
	}
	return out
}
