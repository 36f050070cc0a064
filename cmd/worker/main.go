package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"codemash/internal/backends/postgres"
	"codemash/internal/consumer"
	"codemash/internal/flow"
	"codemash/internal/metrics"
	"codemash/internal/queue"
	"codemash/internal/types"
)

func main() {
	createTables := flag.Bool("create-tables", false, "create database tables and exit")
	flag.Parse()

	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}

	cfg, err := types.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.Open(cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if *createTables {
		if err := postgres.CreateTables(ctx, db); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		log.Info("Tables created.")
		return
	}

	sqsClient, err := queue.ClientFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	gamesQueue, err := queue.NewSQS(ctx, sqsClient, cfg.QueueName, cfg.BatchSize, cfg.WaitTime)
	if err != nil {
		log.Fatalf("Failed to resolve games queue: %v", err)
	}

	m := metrics.New()
	go func() {
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			log.WithError(err).Error("metrics listener stopped")
		}
	}()

	watchman := flow.NewWatchman(cfg.Watchman)
	loop := consumer.NewLoop(gamesQueue, postgres.NewStore(db), watchman, m, cfg.K)

	log.WithFields(log.Fields{
		"queue":        cfg.QueueName,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("codemash worker starting")

	if err := loop.Run(ctx); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}
