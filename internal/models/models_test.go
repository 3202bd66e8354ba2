package models

import (
	"reflect"
	"testing"
)

func TestClampStat(t *testing.T) {
	tests := []struct {
		name  string
		stat  string
		value int
		want  int
	}{
		{"hp below zero", StatHP, -10, 0},
		{"hp above max", StatHP, 150, MaxHP},
		{"hp in range", StatHP, 40, 40},
		{"mana below zero", StatMana, -5, 0},
		{"mana has no upper bound", StatMana, 500, 500},
		{"bullets below zero", StatBullets, -1, 0},
		{"credits in range", StatCredits, 75, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampStat(tt.stat, tt.value); got != tt.want {
				t.Errorf("ClampStat(%q, %d) = %d, want %d", tt.stat, tt.value, got, tt.want)
			}
		})
	}
}

func TestPlayerStatAccess(t *testing.T) {
	p := &Player{HP: 100, Mana: 50, Bullets: 10, Credits: 50}

	if v, ok := p.Stat(StatMana); !ok || v != 50 {
		t.Errorf("Stat(mana) = %d, %v; want 50, true", v, ok)
	}
	if _, ok := p.Stat("luck"); ok {
		t.Error("Stat(luck) should not be a known stat")
	}

	p.SetStat(StatHP, 30)
	if p.HP != 30 {
		t.Errorf("SetStat(hp, 30): HP = %d, want 30", p.HP)
	}
	p.SetStat("luck", 7)
	if !reflect.DeepEqual(*p, Player{HP: 30, Mana: 50, Bullets: 10, Credits: 50}) {
		t.Errorf("SetStat with unknown name mutated the player: %+v", p)
	}
}

func TestSceneOptionLookup(t *testing.T) {
	scene := &Scene{
		ID: "hub",
		Options: []Option{
			{ID: 1, Text: "go north", NextSceneID: "hall"},
			{ID: 2, Text: "go south", NextSceneID: "cellar"},
		},
	}

	opt, ok := scene.Option(2)
	if !ok || opt.NextSceneID != "cellar" {
		t.Errorf("Option(2) = %+v, %v; want cellar edge", opt, ok)
	}
	if _, ok := scene.Option(9); ok {
		t.Error("Option(9) should not exist")
	}
}

func TestGenerationResultScene(t *testing.T) {
	result := &GenerationResult{
		ID:    "gen_1",
		Text:  "A corridor stretches ahead.",
		IsEnd: false,
		Options: []Option{
			{ID: 1, Text: "walk", NextSceneID: "dynamic_await"},
		},
	}

	scene := result.Scene()
	if scene.ID != "gen_1" || scene.Text != result.Text || scene.IsEnd {
		t.Errorf("Scene() = %+v, does not match result", scene)
	}

	// The scene owns its option slice; rewriting it must not leak back.
	scene.Options[0].NextSceneID = "anchor"
	if result.Options[0].NextSceneID != "dynamic_await" {
		t.Error("rewriting the scene's options mutated the result")
	}
}

func TestModeString(t *testing.T) {
	if ModeScripted.String() != "scripted" || ModeGenerated.String() != "generated" {
		t.Errorf("Mode strings = %q, %q", ModeScripted, ModeGenerated)
	}
}
