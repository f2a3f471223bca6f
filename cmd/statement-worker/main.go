package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/export/google"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the statement worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	exporter, err := google.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize statement exporter", "error", err)
		os.Exit(1)
	}

	w := worker.NewStatementWorker(repo, exporter)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		bus.Close()
	})

	logger.Info("Statement worker started", "queue", cfg.AMQPQueue)
	err = bus.ConsumeRevalidations(ctx, func(msg *amqp.RevalidationMessage) error {
		return w.HandleRevalidation(ctx, msg)
	})
	if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", "error", err)
	}

	<-done
	logger.Info("Statement worker stopped")
}
