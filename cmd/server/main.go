package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/AlrightyTighty/baddle-backend/internal/config"
	"github.com/AlrightyTighty/baddle-backend/internal/game"
	"github.com/AlrightyTighty/baddle-backend/internal/server"
	"github.com/AlrightyTighty/baddle-backend/internal/storage"
	"github.com/AlrightyTighty/baddle-backend/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func setupLogger(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	words, err := utils.LoadWords(cfg.WordsFile)
	if err != nil {
		return err
	}
	log.Info().Int("words", words.Len()).Str("file", cfg.WordsFile).Msg("word list loaded")

	sessionCfg := game.SessionConfig{
		Defaults:    cfg.Defaults,
		SettleDelay: cfg.SettleDelay,
		Words:       words,
		Logger:      &log.Logger,
	}

	var leaderboard server.Leaderboard
	if cfg.DatabaseURL != "" {
		store, err := storage.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		sessionCfg.Recorder = store
		leaderboard = store
		log.Info().Msg("result recording enabled")
	} else {
		log.Info().Msg("DATABASE_URL not set, results will not be recorded")
	}

	registry := game.NewRegistry(sessionCfg)
	srv := server.NewServer(cfg, registry, leaderboard, log.Logger).HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := registry.CloseAll(shutdownCtx, game.CloseGoingAway, "Server shutting down"); err != nil {
			log.Warn().Err(err).Msg("rooms did not close in time")
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
