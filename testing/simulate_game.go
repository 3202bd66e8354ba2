// Command simulate_game plays a theme end to end without a human: a
// second model picks every turn's input, so generated detours and
// re-anchoring get exercised against the live backend.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/tatianab/ironskeleton/internal/config"
	"github.com/tatianab/ironskeleton/internal/generate"
	"github.com/tatianab/ironskeleton/internal/history"
	"github.com/tatianab/ironskeleton/internal/models"
	"github.com/tatianab/ironskeleton/internal/orchestrator"
	"github.com/tatianab/ironskeleton/internal/theme"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}

	t, err := theme.Load(cfg.ThemeDir)
	if err != nil {
		log.Fatalf("Failed to load theme: %v", err)
	}

	// The engine under test.
	client, err := generate.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to create generation client: %v", err)
	}
	defer client.Close()

	// The simulated player.
	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	playerModel := playerClient.GenerativeModel(cfg.GeminiModel)

	saveDir, err := os.MkdirTemp("", "simulate-*")
	if err != nil {
		log.Fatalf("Failed to create save dir: %v", err)
	}
	defer os.RemoveAll(saveDir)

	orch := orchestrator.New(t, history.NewStore(saveDir, cfg.HistoryCapacity), orchestrator.Config{
		MaxTurns:   cfg.MaxTurns,
		Client:     client,
		Rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:     zerolog.New(os.Stderr).Level(zerolog.WarnLevel),
		GenTimeout: cfg.GenTimeout,
		Notify: func(stat string, delta int) {
			fmt.Printf("  [%+d %s]\n", delta, stat)
		},
	})

	fmt.Printf("=== %s ===\n%s\n\n", t.Manifest.Title, t.Manifest.Intro)

	for turn := 1; turn <= cfg.MaxTurns; turn++ {
		scene := orch.GetCurrentScene()
		fmt.Printf("--- Turn %d (%s mode) ---\n", turn, orch.Mode())

		input := pickInput(ctx, playerModel, scene, orch.Hud())
		fmt.Printf("Player: %s\n", input)

		text, events, err := orch.RunTurn(ctx, input)
		if err != nil {
			fmt.Printf("Turn rejected: %v\n", err)
			continue
		}
		fmt.Printf("Game: %s\n", text)
		for _, ev := range events {
			fmt.Printf("Event: %s\n", ev)
		}

		hud := orch.Hud()
		fmt.Printf("Stats: HP=%d Mana=%d Bullets=%d Credits=%d\n\n", hud.HP, hud.Mana, hud.Bullets, hud.Credits)

		if ending, over := orch.CheckGameOver(); over {
			fmt.Printf("Session ended after %d turns: %s\n", orch.TurnCount(), ending)
			return
		}
	}
	fmt.Printf("Simulation stopped after %d turns without an ending.\n", orch.TurnCount())
}

// pickInput asks the player model for the next move. Roughly one turn
// in four it goes off script with free text so the generated path gets
// coverage; otherwise it picks a listed option.
func pickInput(ctx context.Context, model *genai.GenerativeModel, scene *models.Scene, stats models.Player) string {
	optionsText := ""
	for _, opt := range scene.Options {
		optionsText += fmt.Sprintf("%d. %s\n", opt.ID, opt.Text)
	}

	prompt := fmt.Sprintf(`You are playing a text adventure.

Scene:
%s

Options:
%s
Stats: HP=%d Mana=%d Bullets=%d Credits=%d

Reply with either the number of one option, or (about one turn in four) a short free-form action in plain English. Return ONLY the number or the action, nothing else.`,
		scene.Text, optionsText, stats.HP, stats.Mana, stats.Bullets, stats.Credits)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		if len(scene.Options) > 0 {
			return fmt.Sprintf("%d", scene.Options[0].ID)
		}
		return "look around"
	}
	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
}
