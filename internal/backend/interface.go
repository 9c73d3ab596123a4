package backend

import (
	"context"
	"time"

	"spese-analytics/internal/source"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend source.Source
	Cleanup CleanupFunc
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Remote REST API
	APIBaseURL string
	APITimeout time.Duration

	// SQLite specific
	SQLiteDBPath   string
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleIncomeSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// Memory backend specific
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	APIBackend    BackendType = "api"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case APIBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
