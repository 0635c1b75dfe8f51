// Package main provides the entry point for the discovery API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/soretetsu/discovery-go/internal/config"
	"github.com/soretetsu/discovery-go/internal/db"
	"github.com/soretetsu/discovery-go/internal/embedding"
	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/server"
	"github.com/soretetsu/discovery-go/internal/service"
	"github.com/soretetsu/discovery-go/internal/vocab"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("discovery-server starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"scorer", cfg.Scorer,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	dbClient, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(context.Background())
	}()

	// Initialize database schema
	if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Tag vocabularies, with optional override file
	philosophers := vocab.DefaultPhilosophers()
	themes := vocab.DefaultThemes()
	if override, err := config.LoadVocabFile(cfg.VocabFile); err != nil {
		logger.Error("failed to load vocabulary file", "error", err)
		os.Exit(1)
	} else if override != nil {
		philosophers = vocab.New(override.Philosophers)
		themes = vocab.New(override.Themes)
		logger.Info("vocabulary override loaded",
			"philosophers", philosophers.Len(),
			"themes", themes.Len())
	}

	// Embedder construction is deferred until the first embedding-scored
	// query; the backend may not be reachable at startup.
	factory := func(ctx context.Context) (service.TextEmbedder, error) {
		return embedding.NewEmbedder(ctx, &cfg)
	}

	collector := metrics.NewCollector()
	discovery := service.NewDiscoveryService(dbClient, &cfg, collector, philosophers, themes, factory)
	ingest := service.NewIngestService(dbClient, collector)

	srv := server.New(":"+cfg.ServerPort, version, &cfg, discovery, ingest, service.NewJobManager(), logger)

	logger.Info("server ready, awaiting connections", "port", cfg.ServerPort)

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
