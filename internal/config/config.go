package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data sources the dashboard can read from.
const (
	SourceAPI    = "api"
	SourceSQLite = "sqlite"
	SourceSheets = "sheets"
	SourceMemory = "memory"
)

// Cache backends for fetched analytics payloads.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

var (
	validSources = []string{SourceAPI, SourceSQLite, SourceSheets, SourceMemory}
	validCaches  = []string{CacheMemory, CacheRedis}
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Data source selection
	DataSource string

	// Remote REST API
	APIBaseURL string
	APITimeout time.Duration

	// SQLite ledger
	SQLiteDBPath string

	// YAML seed for the memory source
	SeedFile string

	// Google Sheets ledger
	GoogleSpreadsheetID        string
	GoogleSheetName            string
	GoogleIncomeSheetName      string
	GoogleServiceAccountFile   string
	GoogleServiceAccountJSON   string
	GoogleApplicationCredsFile string
	GoogleOAuthClientFile      string
	GoogleOAuthClientJSON      string
	GoogleOAuthTokenFile       string
	GoogleOAuthTokenJSON       string

	// AMQP change notifications (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string

	// Refresh and cache
	RefreshInterval      time.Duration
	StatsRefreshInterval time.Duration
	CacheBackend         string
	CacheTTL             time.Duration
	CacheSize            int
	RedisAddr            string
	RedisPassword        string
	RedisDB              int

	// Shaping
	TagCap int
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataSource: getEnv("DATA_SOURCE", SourceAPI),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:5000"),
		APITimeout: getEnvDuration("API_TIMEOUT", 10*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spese.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:            getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleIncomeSheetName:      getEnv("GOOGLE_INCOME_SHEET_NAME", "Income"),
		GoogleServiceAccountFile:   getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON:   getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleApplicationCredsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleOAuthClientFile:      getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON:      getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenFile:       getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthTokenJSON:       getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "spese"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "analytics_invalidate"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "expense.changed"),

		RefreshInterval:      getEnvDuration("REFRESH_INTERVAL", 12*time.Second),
		StatsRefreshInterval: getEnvDuration("STATS_REFRESH_INTERVAL", 8*time.Second),
		CacheBackend:         getEnv("CACHE_BACKEND", CacheMemory),
		CacheTTL:             getEnvDuration("CACHE_TTL", 12*time.Second),
		CacheSize:            getEnvInt("CACHE_SIZE", 200),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),

		TagCap: getEnvInt("TAG_CAP", 10),
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validSources, c.DataSource) {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource, validSources))
	}

	switch c.DataSource {
	case SourceAPI:
		if u, err := url.Parse(c.APIBaseURL); err != nil || c.APIBaseURL == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.APITimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
		}
	case SourceSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite source")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets source")
		}
		hasServiceAccount := c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "" || c.GoogleApplicationCredsFile != ""
		hasOAuthClient := c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
		hasOAuthToken := c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != ""
		switch {
		case hasServiceAccount:
		case hasOAuthClient && !hasOAuthToken:
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided with an OAuth client (run spese-cli sheets-auth)")
		case !hasOAuthClient:
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or an OAuth client must be provided for sheets source")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}
	if c.StatsRefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid stats refresh interval %v: must be at least 1 second", c.StatsRefreshInterval))
	}

	if !slices.Contains(validCaches, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validCaches))
	}
	if c.CacheBackend == CacheRedis && c.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR is required when using redis cache")
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	if c.TagCap < 0 {
		errors = append(errors, fmt.Sprintf("invalid tag cap %d: must not be negative", c.TagCap))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
