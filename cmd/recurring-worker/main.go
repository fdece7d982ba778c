package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
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
	logger.Info("Starting recurring-worker", applog.FieldOperation, applog.OpStartup)

	ctx, cancel := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, nil)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithDefaultCurrency(cfg.Currency()),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	} else {
		logger.Info("AMQP disabled, materialized expenses will not be announced")
	}
	tracker := services.NewTracker(res.Store, opts...)
	if err := tracker.Load(ctx); err != nil {
		// Applying onto an empty tracker would overwrite the corrupt data.
		if errors.Is(err, core.ErrInvalidSnapshot) {
			logger.Error("Stored snapshot is corrupt, refusing to run", applog.FieldError, err)
		} else {
			logger.Error("Failed to load snapshot", applog.FieldError, err)
		}
		os.Exit(1)
	}

	if err := services.NewScheduler(tracker, cfg.RecurringInterval, logger).Run(ctx); err != nil {
		logger.Error("Recurring processor stopped", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}
