package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tatianab/ironskeleton/internal/config"
	"github.com/tatianab/ironskeleton/internal/generate"
	"github.com/tatianab/ironskeleton/internal/history"
	"github.com/tatianab/ironskeleton/internal/orchestrator"
	"github.com/tatianab/ironskeleton/internal/theme"
	"github.com/tatianab/ironskeleton/internal/tui"
)

func newPlayCommand() *cobra.Command {
	var themeDir string
	var resume bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a theme in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if themeDir != "" {
				cfg.ThemeDir = themeDir
			}
			return runPlay(cmd.Context(), cfg, resume)
		},
	}
	cmd.Flags().StringVar(&themeDir, "theme", "", "theme directory (overrides THEME_DIR)")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the last snapshot")
	return cmd
}

func runPlay(ctx context.Context, cfg *config.Config, resume bool) error {
	// The TUI owns the terminal, so operator logs go to a file.
	logger, closeLog, err := fileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	t, err := theme.Load(cfg.ThemeDir)
	if err != nil {
		return err
	}

	client, closeClient, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	sessionLog, err := history.NewSessionLog(cfg.LogDir)
	if err != nil {
		logger.Warn().Err(err).Msg("session transcript disabled")
		sessionLog = nil
	}

	store := history.NewStore(cfg.SaveDir, cfg.HistoryCapacity)
	notifs := &tui.Notifications{}

	orch := orchestrator.New(t, store, orchestrator.Config{
		MaxTurns:   cfg.MaxTurns,
		Client:     client,
		Rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:     logger,
		Notify:     notifs.Hook(),
		GenTimeout: cfg.GenTimeout,
		SessionLog: sessionLog,
	})

	if resume {
		if err := orch.Resume(); err != nil {
			logger.Warn().Err(err).Msg("could not resume, starting fresh")
		}
	}

	return tui.Run(orch, notifs, t.Manifest.Title, t.Manifest.Intro)
}

func fileLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.LogDir, "engine.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, func() { f.Close() }, nil
}

func buildClient(ctx context.Context, cfg *config.Config) (generate.Client, func(), error) {
	switch cfg.GenBackend {
	case config.BackendGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		client, err := generate.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("creating Gemini client: %w", err)
		}
		return client, client.Close, nil
	case config.BackendOpenAI:
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		client := generate.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		return client, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown generation backend %q", cfg.GenBackend)
	}
}
