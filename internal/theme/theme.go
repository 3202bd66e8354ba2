// Package theme loads a complete story theme from a directory:
// scenes.json (the authored graph), events.json (the trigger table)
// and theme.yaml (title, intro and starting player stats).
package theme

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/ironskeleton/internal/events"
	"github.com/tatianab/ironskeleton/internal/models"
	"github.com/tatianab/ironskeleton/internal/scenegraph"
)

// Manifest describes a theme: presentation metadata plus the starting
// player stats.
type Manifest struct {
	Title    string `yaml:"title"`
	Intro    string `yaml:"intro"`
	Backdrop string `yaml:"backdrop"`
	Player   struct {
		HP      int `yaml:"hp"`
		Mana    int `yaml:"mana"`
		Bullets int `yaml:"bullets"`
		Credits int `yaml:"credits"`
	} `yaml:"player"`
}

// Theme is a fully loaded, validated story theme.
type Theme struct {
	Manifest Manifest
	Graph    *scenegraph.Graph
	Triggers []models.Trigger
}

// Load reads a theme directory. The scene graph is required and must
// validate; events.json is optional; theme.yaml falls back to defaults
// if absent.
func Load(dir string) (*Theme, error) {
	graph, err := scenegraph.LoadFile(filepath.Join(dir, "scenes.json"))
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", dir, err)
	}

	triggers, err := events.LoadTriggersFile(filepath.Join(dir, "events.json"))
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", dir, err)
	}

	manifest, err := loadManifest(filepath.Join(dir, "theme.yaml"))
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", dir, err)
	}

	return &Theme{Manifest: manifest, Graph: graph, Triggers: triggers}, nil
}

func loadManifest(path string) (Manifest, error) {
	m := defaultManifest()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}

func defaultManifest() Manifest {
	var m Manifest
	m.Title = "A New Adventure"
	m.Intro = "You stand at the beginning of a mysterious journey..."
	m.Player.HP = 100
	m.Player.Mana = 50
	m.Player.Bullets = 10
	m.Player.Credits = 50
	return m
}

// NewPlayer builds the starting player for a session of this theme,
// positioned at the graph's initial scene.
func (t *Theme) NewPlayer() *models.Player {
	return &models.Player{
		LocationID: t.Graph.InitialSceneID,
		HP:         models.ClampStat(models.StatHP, t.Manifest.Player.HP),
		Mana:       models.ClampStat(models.StatMana, t.Manifest.Player.Mana),
		Bullets:    models.ClampStat(models.StatBullets, t.Manifest.Player.Bullets),
		Credits:    models.ClampStat(models.StatCredits, t.Manifest.Player.Credits),
	}
}
