package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"sme_health/pkg/api/health"
	"sme_health/pkg/core/advisor"
	"sme_health/pkg/core/analysis"
	"sme_health/pkg/core/config"
	"sme_health/pkg/core/logging"
	"sme_health/pkg/core/pipeline"
	"sme_health/pkg/core/secure"
	"sme_health/pkg/core/store"
)

func main() {
	env, found := config.LoadEnv()
	logger := logging.New(env.LogLevel, env.LogFormat)
	if !found {
		logger.Info("No .env file found, using process environment")
	}

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	engine, err := analysis.NewEngine(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build analysis engine: %v", err)
	}

	// Recommendation templates on disk extend the built-in set.
	resourcesPath := "resources/advisor"
	if _, err := os.Stat(resourcesPath); err == nil {
		registry := advisor.DefaultRegistry()
		n, err := registry.LoadFromDirectory(resourcesPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to load advisor templates, using built-ins")
		} else {
			engine.SetAdvisor(advisor.New(registry))
			logger.WithField("loaded", n).Info("Advisor templates loaded")
		}
	}

	orchestrator := pipeline.NewOrchestrator(nil, engine, logger)

	var smes health.SMEStore
	if env.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := store.Connect(ctx, env.DatabaseURL)
		if err != nil {
			cancel()
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		if err := store.Migrate(ctx, pool); err != nil {
			cancel()
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		cancel()
		defer pool.Close()

		var cipher *secure.Cipher
		if env.EncryptionKey != "" {
			if cipher, err = secure.NewCipherFromBase64(env.EncryptionKey); err != nil {
				logger.Fatalf("Invalid ENCRYPTION_KEY: %v", err)
			}
		} else {
			logger.Warn("ENCRYPTION_KEY not set, sensitive SME fields will be rejected")
		}

		repo := store.NewRepository(pool, cipher)
		orchestrator.SetRepository(repo)
		smes = repo
		logger.Info("Database connected")
	} else {
		logger.Warn("DATABASE_URL not set, SME endpoints disabled")
	}

	uploads := store.NewMemoryUploadStore()
	c := cron.New()
	_, err = c.AddFunc(env.PurgeSchedule, func() {
		if n := uploads.Purge(env.UploadTTL); n > 0 {
			logger.WithField("purged", n).Info("Expired uploads purged")
		}
	})
	if err != nil {
		logger.Fatalf("Failed to schedule upload purge: %v", err)
	}
	c.Start()
	defer c.Stop()

	handler := health.NewHandler(orchestrator, uploads, smes, logger)
	server := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           health.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", env.Port).Info("API server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
