package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tatianab/ironskeleton/internal/models"
)

const minimalGraph = `{
  "initialSceneId": "start",
  "scenes": {"start": {"text": "Here.", "isEnd": true, "options": []}}
}`

func writeTheme(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadShippedTheme(t *testing.T) {
	th, err := Load(filepath.Join("..", "..", "assets", "themes", "orizon"))
	if err != nil {
		t.Fatalf("shipped theme does not load: %v", err)
	}
	if th.Manifest.Title == "" {
		t.Error("shipped theme has no title")
	}
	if th.Graph.InitialSceneID != "intro" {
		t.Errorf("initial scene = %q, want intro", th.Graph.InitialSceneID)
	}
	if len(th.Triggers) == 0 {
		t.Error("shipped theme has no triggers")
	}

	p := th.NewPlayer()
	if p.LocationID != "intro" || p.HP != 100 || p.Mana != 50 || p.Bullets != 10 || p.Credits != 50 {
		t.Errorf("starting player = %+v", p)
	}
}

func TestLoadDefaultsWithoutManifestOrEvents(t *testing.T) {
	dir := writeTheme(t, map[string]string{"scenes.json": minimalGraph})

	th, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if th.Manifest.Title != "A New Adventure" {
		t.Errorf("default title = %q", th.Manifest.Title)
	}
	if th.Triggers != nil {
		t.Errorf("triggers = %+v, want nil", th.Triggers)
	}

	p := th.NewPlayer()
	if p.HP != 100 || p.Mana != 50 || p.Bullets != 10 || p.Credits != 50 {
		t.Errorf("default player = %+v", p)
	}
}

func TestLoadClampsManifestStats(t *testing.T) {
	dir := writeTheme(t, map[string]string{
		"scenes.json": minimalGraph,
		"theme.yaml":  "title: Test\nplayer:\n  hp: 250\n  mana: -10\n  bullets: 6\n  credits: 0\n",
	})

	th, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := th.NewPlayer()
	if p.HP != models.MaxHP {
		t.Errorf("hp = %d, want clamped to %d", p.HP, models.MaxHP)
	}
	if p.Mana != 0 {
		t.Errorf("mana = %d, want clamped to 0", p.Mana)
	}
}

func TestLoadFailsWithoutScenes(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load accepted a theme directory without scenes.json")
	}
}

func TestLoadFailsOnBadTriggers(t *testing.T) {
	dir := writeTheme(t, map[string]string{
		"scenes.json": minimalGraph,
		"events.json": `[{"probability": 2.0}]`,
	})
	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted a theme with an invalid trigger table")
	}
}
