package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JustinTDCT/Videotheque/internal/api"
	"github.com/JustinTDCT/Videotheque/internal/auth"
	"github.com/JustinTDCT/Videotheque/internal/catalog"
	"github.com/JustinTDCT/Videotheque/internal/config"
	"github.com/JustinTDCT/Videotheque/internal/covers"
	"github.com/JustinTDCT/Videotheque/internal/logging"
	"github.com/JustinTDCT/Videotheque/internal/metadata"
	"github.com/JustinTDCT/Videotheque/internal/scheduler"
	"github.com/JustinTDCT/Videotheque/internal/users"
	"github.com/JustinTDCT/Videotheque/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ver := version.Load()
	logging.Info().Str("version", ver.Version).Msg("Videotheque starting")

	if err := os.MkdirAll(cfg.Storage.CoverDir, 0o755); err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Storage.CoverDir).Msg("cannot create cover directory")
	}

	issuer, err := auth.NewIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("token issuer")
	}

	coverStore := covers.NewStore(cfg.Storage.CoverDir)
	catalogStore := catalog.NewStore(cfg.Storage.DataDir, coverStore)
	directory := users.NewDirectory(cfg.Storage.DataDir, catalogStore, coverStore, cfg.Security.MinPasswordLength, cfg.Security.RequireComplexPassword)
	discovery := metadata.NewClient(metadata.Config{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		Language:          cfg.TMDB.Language,
		Timeout:           cfg.TMDB.Timeout,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		Burst:             cfg.TMDB.Burst,
	})
	if !cfg.MetadataEnabled() {
		logging.Warn().Msg("TMDB_API_KEY not set, metadata routes will fail")
	}

	if cfg.Storage.SweepInterval > 0 {
		sweeper := scheduler.NewCoverSweeper(directory, catalogStore, coverStore, cfg.Storage.SweepInterval, cfg.Storage.SweepGrace)
		sweeper.Start()
		defer sweeper.Stop()
	}

	srv := api.NewServer(cfg, api.Deps{
		Users:     directory,
		Catalog:   catalogStore,
		Covers:    coverStore,
		Discovery: discovery,
		Issuer:    issuer,
		Version:   ver,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", httpServer.Addr).Str("data_dir", cfg.Storage.DataDir).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}
