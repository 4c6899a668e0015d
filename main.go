package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/joho/godotenv"

	"github.com/jobwatch/job-alerts-service/common/config"
	"github.com/jobwatch/job-alerts-service/common/db"
	"github.com/jobwatch/job-alerts-service/common/logger"
	"github.com/jobwatch/job-alerts-service/common/messaging"
	"github.com/jobwatch/job-alerts-service/common/redis"
	"github.com/jobwatch/job-alerts-service/common/storage"
	"github.com/jobwatch/job-alerts-service/scheduler"
	"github.com/jobwatch/job-alerts-service/scraper/orchestrator"
)

func main() {
	// INITIATE CONFIGURATION
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file, using environment variables")
	}

	logger.Setup()

	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()

	// Create a base context with cancel for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// INITIATE DATABASES
	dbConn, err := db.SetupDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup database")
	}
	defer dbConn.Close()

	// INITIATE NATS CLIENT
	natsClient, err := messaging.SetupNatsBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup NATS client")
	}
	defer natsClient.Close()

	// Snapshot storage is optional; without a bucket snapshots are dropped.
	var snapshots storage.StorageService = storage.NoopStorage{}
	if cfg.GCS.Bucket != "" {
		gcsStorage, err := storage.NewGCSStorage(ctx, storage.GCSConfig{
			ProjectID:       cfg.GCS.ProjectID,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup GCS storage")
		}
		snapshots = gcsStorage
		log.Info().Str("bucket", cfg.GCS.Bucket).Msg("Snapshot archiving enabled")
	}

	// Register the scrape worker on NATS
	runLock := redis.NewRunLock(dbConn.Redis, cfg.Scrape.LockTTL)
	orch := orchestrator.New(cfg.Scrape, dbConn.Queries, runLock, snapshots, cfg.GCS.Bucket)

	consumeCtx, err := orch.Register(ctx, natsClient, dbConn.Queries)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register scrape consumer")
	}
	defer consumeCtx.Stop()
	log.Info().Msg("Scrape consumer registered successfully")

	// Optional built-in scheduler
	if cfg.Scrape.CronSchedule != "" {
		sched, err := scheduler.New(cfg.Scrape.CronSchedule, natsClient, dbConn.Queries)
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Scrape.CronSchedule).Msg("Invalid cron schedule")
		}
		sched.Start()
		defer sched.Stop()
	}

	// INITIATE SERVER
	server, err := NewAppHttpServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create the server")
	}

	// Inject dependencies
	server.SetDB(dbConn)
	server.SetNatsClient(natsClient)

	// Setup routes
	server.setupRoute()

	// Start server in a goroutine
	go func() {
		if err := server.start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			cancel()
		}
	}()

	log.Info().Str("address", cfg.Listen.Addr()).Msg("Server started successfully")

	// Wait for shutdown signal
	select {
	case <-shutdown:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled, shutting down")
	}

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server gracefully stopped")
}
