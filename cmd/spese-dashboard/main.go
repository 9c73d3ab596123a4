package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"spese-analytics/internal/amqp"
	"spese-analytics/internal/backend"
	"spese-analytics/internal/cli"
	apphttp "spese-analytics/internal/http"
	"spese-analytics/internal/log"
	"spese-analytics/internal/metrics"
	"spese-analytics/internal/services"
	"spese-analytics/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout)

	logger.Info("Starting spese-dashboard")
	cfg := cli.LoadAndValidateConfig(logger)

	// Every instance gets its own queue so a change event reaches all of them.
	instanceQueue := ""
	if cfg.AMQPURL != "" {
		instanceQueue = cfg.AMQPQueue + "." + uuid.NewString()[:8]
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if instanceQueue != "" {
		bcfg.AMQPQueue = instanceQueue
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	result, err := backend.NewFactory(logger.Logger).CreateBackend(startCtx, bcfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataSource)
		os.Exit(1)
	}

	store, closeCache, err := cli.NewCacheStore(startCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create cache", log.FieldError, err, "cache", cfg.CacheBackend)
		_ = result.Close()
		os.Exit(1)
	}

	m := metrics.New()

	analyticsCfg := services.DefaultAnalyticsConfig()
	analyticsCfg.TagCap = cfg.TagCap
	analyticsCfg.Snapshot = cfg.RefreshInterval
	analyticsCfg.Upstream = cfg.DataSource
	svc := services.NewAnalyticsService(result.Backend, store, m, logger, analyticsCfg)

	// AMQP is optional; without it remote writes show up on the next refresh.
	var (
		consumer   worker.ChangeConsumer
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, instanceQueue, cfg.AMQPRoutingKey)
		if err != nil {
			logger.Warn("Failed to initialize AMQP consumer, continuing without change events", log.FieldError, err)
		} else {
			consumer = amqpClient
			logger.Info("Consuming change events", "exchange", cfg.AMQPExchange, "queue", instanceQueue)
		}
	}

	refresher := worker.NewRefreshWorker(svc, consumer, m, worker.RefreshWorkerConfig{Interval: cfg.RefreshInterval})

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Metrics:      m,
		Logger:       logger,
		StatsRefresh: cfg.StatsRefreshInterval,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := refresher.Stop(shutdownCtx); err != nil {
			logger.Warn("Refresh worker stop", log.FieldError, err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		closeCache()
		if err := result.Close(); err != nil {
			logger.Warn("Backend close", log.FieldError, err)
		}
	})

	if err := refresher.Start(ctx); err != nil {
		logger.Error("Failed to start refresh worker", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		logger.Info("Listening", "port", cfg.Port, "backend", cfg.DataSource, "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
