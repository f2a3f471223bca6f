package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/balance"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(applog.ComponentServer)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The revalidation bus is optional: without it writes still succeed,
	// only statement exports stay stale until the worker catches up.
	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, statement revalidation disabled", "error", err)
		} else {
			bus = client
			defer bus.Close()
		}
	}

	opts := []balance.Option{}
	if bus != nil {
		opts = append(opts, balance.WithRevalidator(balance.RevalidateFunc(func(ctx context.Context, userID string) {
			if err := bus.PublishRevalidation(ctx, userID, amqp.ReasonTransactionChanged); err != nil {
				logger.Error("Failed to publish revalidation signal", "user_id", userID, "error", err)
			}
		})))
	}
	cache := balance.New(repo, cfg.CacheTTL, opts...)

	analytics := services.NewAnalyticsService(repo)
	sessions := session.NewService(cfg.SessionSecret, cfg.SessionExpiresIn)

	srv := apphttp.NewServer(":"+cfg.Port, cache, analytics, sessions)
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second

	_, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	})

	logger.Info("Starting server",
		"port", cfg.Port,
		"cache_ttl", cfg.CacheTTL.String(),
		"amqp_enabled", bus != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		return
	}

	<-done
	logger.Info("Server stopped")
}
