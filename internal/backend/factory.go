package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spese-analytics/internal/adapters"
	"spese-analytics/internal/amqp"
	"spese-analytics/internal/source/api"
	"spese-analytics/internal/source/google"
	"spese-analytics/internal/source/memory"
	"spese-analytics/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case APIBackend:
		return f.createAPIBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAPIBackend(config Config) (*BackendResult, error) {
	client := api.New(config.APIBaseURL, config.APITimeout)

	f.logger.Info("Initialized API backend",
		"base_url", client.BaseURL(),
		"timeout", config.APITimeout)

	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional; without it writes are not announced.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.AMQPRoutingKey)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
		}
	}

	var adapter *adapters.SQLiteAdapter
	if amqpClient != nil {
		adapter = adapters.NewSQLiteAdapter(sqliteRepo, amqpClient)
	} else {
		adapter = adapters.NewSQLiteAdapter(sqliteRepo, nil)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Backend: adapter,
		Cleanup: func() error {
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					f.logger.Warn("Failed to close AMQP client", "error", err)
				}
			}
			return sqliteRepo.Close()
		},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ExpensesSheet:      config.GoogleSheetName,
		IncomeSheet:        config.GoogleIncomeSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuthClientJSON:    config.GoogleOAuthClientJSON,
		OAuthClientFile:    config.GoogleOAuthClientFile,
		OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
		OAuthTokenFile:     config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{Backend: store}, nil
}
