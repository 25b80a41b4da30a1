package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platformbuilds/alertdesk/internal/api"
	"github.com/platformbuilds/alertdesk/internal/config"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/internal/tracing"
	"github.com/platformbuilds/alertdesk/internal/version"
	"github.com/platformbuilds/alertdesk/pkg/cache"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting alertdesk",
		"version", version.Version,
		"commit", version.CommitHash,
		"environment", cfg.Environment,
		"upstream", cfg.Upstream.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Monitoring.TracingEnabled {
		tp, err := tracing.NewTracerProvider(ctx, "alertdesk", version.Version, cfg.Monitoring.OTLPEndpoint, cfg.Monitoring.SampleRatio)
		if err != nil {
			logger.Warn("Tracing disabled, exporter setup failed", "error", err)
		} else {
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Tracer shutdown failed", "error", err)
				}
			}()
			logger.Info("OTLP tracing enabled", "endpoint", cfg.Monitoring.OTLPEndpoint)
		}
	}

	// Valkey metadata cache; falls back to process memory until Valkey answers.
	metadataCache := cache.Connect(cfg.Cache.Nodes, cfg.Cache.DB, cfg.Cache.Password, cfg.Cache.TTLDuration(), logger)

	upstream := services.NewIncidentAPIService(cfg.Upstream, metadataCache, cfg.Cache.TTLDuration(), logger)
	registry := services.NewViewRegistry(
		upstream,
		cfg.Views.MaxMounted,
		time.Duration(cfg.Views.IdleTimeout)*time.Second,
		logger,
	)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		watcher := config.NewConfigWatcher(path, cfg, logger)
		watcher.RegisterWatcher(func(next *config.Config) {
			upstream.SetToken(next.Upstream.Token)
			logger.Info("Upstream token refreshed from configuration")
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.Warn("Configuration watcher exited", "error", err)
			}
		}()
	}

	apiServer := api.NewServer(cfg, logger, metadataCache, upstream, registry)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		logger.Fatal("Server failed to start", "error", err)
	}

	logger.Info("alertdesk shutdown complete")
}
