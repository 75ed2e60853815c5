package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/internal/config"
	"github.com/ady24s/Cloud9/internal/crypto"
	"github.com/ady24s/Cloud9/internal/ingest"
	"github.com/ady24s/Cloud9/internal/logging"
	"github.com/ady24s/Cloud9/internal/optimizer"
	"github.com/ady24s/Cloud9/internal/providers"
	"github.com/ady24s/Cloud9/internal/store"
)

// Headless sweep runner, for deployments that separate the HTTP API
// from ingestion.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	st, err := store.NewStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer st.Close()

	if err := st.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	if err := st.Migrate(context.Background()); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	box, err := newSealedBox(cfg)
	if err != nil {
		logger.Fatal("failed to initialize credential encryption", zap.Error(err))
	}

	opts := providers.DefaultOptions()
	opts.Lookback = cfg.Lookback
	opts.MaxRegions = cfg.MaxRegions
	opts.MaxResources = cfg.MaxResources
	opts.Timeout = cfg.ProviderTimeout

	registry := providers.NewRegistry(
		providers.NewAWSAdapter(opts, logger),
		providers.NewAzureAdapter(opts, logger),
		providers.NewGCPAdapter(opts, logger),
	)

	artifacts, err := newArtifactStore(cfg, st)
	if err != nil {
		logger.Fatal("failed to initialize artifact store", zap.Error(err))
	}
	opt := optimizer.New(st.Metrics, artifacts, logger)

	sched := ingest.NewScheduler(
		&ingest.Config{Interval: cfg.SweepInterval, ProviderTimeout: cfg.ProviderTimeout},
		registry, st.Credentials, st.Metrics, box, opt, logger,
	)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweep loop stopped", zap.Error(err))
		}
	}()

	logger.Info("ingestor started", zap.Duration("interval", cfg.SweepInterval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	<-done

	logger.Info("ingestor exited")
}

func newSealedBox(cfg *config.Config) (*crypto.SealedBox, error) {
	if key := cfg.KeyBytes(); key != nil {
		return crypto.New(key)
	}
	return crypto.NewFromPassphrase(cfg.EncryptionPassphrase)
}

func newArtifactStore(cfg *config.Config, st *store.Store) (optimizer.ArtifactStore, error) {
	if cfg.ArtifactDir != "" {
		return optimizer.NewFileArtifactStore(cfg.ArtifactDir)
	}
	return optimizer.NewDBArtifactStore(st.Artifacts), nil
}
