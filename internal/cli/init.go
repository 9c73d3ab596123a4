// Package cli holds the start-up helpers shared by the binaries and the
// spese-cli command tree.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spese-analytics/internal/cache"
	"spese-analytics/internal/config"
	"spese-analytics/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// NewCacheStore builds the analytics cache selected by CACHE_BACKEND. The
// returned cleanup releases it. In-memory stores are swept by a
// cache.Manager every CacheTTL.
func NewCacheStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return store, func() { _ = store.Close() }, nil
	default:
		store := cache.NewMemoryStore(cfg.CacheSize, cfg.CacheTTL)
		manager := cache.NewManager(logger)
		manager.Register(store)
		if cfg.CacheTTL > 0 {
			manager.StartCleanup(cfg.CacheTTL)
		}
		logger.Info("Using in-memory cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return store, manager.Stop, nil
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. On
// signal, cleanup runs with a context bounded by timeout and done is closed
// once it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ended.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
