package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tatianab/ironskeleton/internal/config"
	"github.com/tatianab/ironskeleton/internal/history"
	"github.com/tatianab/ironskeleton/internal/orchestrator"
	"github.com/tatianab/ironskeleton/internal/server"
	"github.com/tatianab/ironskeleton/internal/theme"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the turn API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	t, err := theme.Load(cfg.ThemeDir)
	if err != nil {
		return err
	}

	client, closeClient, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	newSession := func(sessionID string) (*orchestrator.Orchestrator, error) {
		store := history.NewStore(filepath.Join(cfg.SaveDir, sessionID), cfg.HistoryCapacity)
		return orchestrator.New(t, store, orchestrator.Config{
			MaxTurns:   cfg.MaxTurns,
			Client:     client,
			Rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
			Logger:     logger.With().Str("session", sessionID).Logger(),
			GenTimeout: cfg.GenTimeout,
		}), nil
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: server.New(logger, newSession).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("theme", t.Manifest.Title).Msg("serving turn API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
