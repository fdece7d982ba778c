package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig("")
	if err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting fintrack-worker", applog.FieldOperation, applog.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the event worker")
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, nil)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755); err != nil {
		logger.Error("Failed to create journal directory", applog.FieldError, err)
		os.Exit(1)
	}
	f, err := os.OpenFile(cfg.JournalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("Failed to open journal", applog.FieldError, err, "path", cfg.JournalPath)
		os.Exit(1)
	}
	defer f.Close()

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	journal := worker.NewJournal(f, logger)
	sweeper := cache.NewManager(logger)
	sweeper.Register(journal.Seen())
	go sweeper.Run(ctx, time.Hour)

	logger.Info("Consuming materialized expense events",
		"queue", cfg.AMQPQueue,
		"journal", cfg.JournalPath)
	err = client.ConsumeMaterialized(ctx, func(m *amqp.ExpenseMaterializedMessage) error {
		return journal.Handle(ctx, m)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	stats := journal.Stats()
	logger.Info("Worker shutdown complete",
		applog.FieldOperation, applog.OpShutdown,
		"written", stats.Written,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected)
}
