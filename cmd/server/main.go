package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quickshare/quickshare/internal/gateway"
	"github.com/quickshare/quickshare/internal/identity"
	"github.com/quickshare/quickshare/internal/reaper"
	"github.com/quickshare/quickshare/internal/session"
	"github.com/quickshare/quickshare/internal/storage"
	"github.com/quickshare/quickshare/pkg/config"
)

func main() {
	// Best effort: a missing .env just means plain environment variables.
	_ = godotenv.Load()

	cfg := config.LoadFromEnv()
	setupLogging(cfg.Logging)

	log.Info().Msg("starting quickshare")

	blobs, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Limits.MaxSingleFileBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	registry := session.NewRegistry(cfg.Expiry.SessionTTL, cfg.Limits.MaxTotalBytes)
	sweeper := reaper.New(registry, blobs, cfg.Expiry.ReaperInterval, cfg.Expiry.SessionTTL)

	// One synchronous pass over leftovers from a previous process lifetime,
	// before any request can hand out a file.
	sweeper.StartupSweep(context.Background(), cfg.Expiry.StartupMaxAge)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	go sweeper.Run(reaperCtx)

	issuer := identity.NewIssuer(cfg.Identity.Secret)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      gateway.New(registry, blobs, issuer, cfg).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	stopReaper()

	// Give outstanding requests time to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
