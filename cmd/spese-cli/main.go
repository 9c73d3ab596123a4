package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"spese-analytics/internal/backend"
	"spese-analytics/internal/cli"
	"spese-analytics/internal/config"
	"spese-analytics/internal/services"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stderr)

	// The backend is opened only by commands that read data.
	factory := func(ctx context.Context) (cli.Analytics, func() error, error) {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
		if err != nil {
			return nil, nil, err
		}
		analyticsCfg := services.DefaultAnalyticsConfig()
		analyticsCfg.TagCap = cfg.TagCap
		analyticsCfg.Snapshot = 0
		analyticsCfg.Upstream = cfg.DataSource
		return services.NewAnalyticsService(result.Backend, nil, nil, logger, analyticsCfg), result.Close, nil
	}

	if err := cli.NewApp(version, factory).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
