package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"timetracker/internal/amqp"
	"timetracker/internal/backend"
	"timetracker/internal/cli"
	"timetracker/internal/config"
	"timetracker/internal/log"
	"timetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting timetracker-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	source, closeSource, err := backend.NewSource(startCtx, backendCfg, logger)
	if err != nil {
		cancelStart()
		logger.Error("Failed to open source store", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	sheet, err := backend.NewSheetsClient(startCtx, backendCfg, logger)
	cancelStart()
	if err != nil {
		_ = closeSource()
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		_ = closeSource()
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirror := worker.NewMirrorWorker(source, sheet, cfg.SyncBatchSize, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := consumer.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if err := closeSource(); err != nil {
			logger.Error("Source close error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Consume(gctx, mirror.HandleChange)
	})
	g.Go(func() error {
		return mirror.Run(gctx, cfg.SyncInterval)
	})

	logger.Info("Mirroring activity changes",
		"queue", cfg.AMQPQueue,
		"sheet", cfg.GoogleSheetName,
		"retry_interval", cfg.SyncInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully", "pending_days", mirror.Pending())
}
