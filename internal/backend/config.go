package backend

import (
	"fmt"

	"spese-analytics/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataSource)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataSource)
	}

	credsFile := appConfig.GoogleServiceAccountFile
	if credsFile == "" {
		credsFile = appConfig.GoogleApplicationCredsFile
	}

	return Config{
		Type: backendType,

		APIBaseURL: appConfig.APIBaseURL,
		APITimeout: appConfig.APITimeout,

		SQLiteDBPath:   appConfig.SQLiteDBPath,
		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPQueue:      appConfig.AMQPQueue,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleIncomeSheetName:    appConfig.GoogleIncomeSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: credsFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,

		SeedFile: appConfig.SeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case APIBackend:
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for api backend")
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional

	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleSheetName == "" {
			return fmt.Errorf("Google Sheet name is required for sheets backend")
		}
		oauth := (c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "") &&
			(c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != "")
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && !oauth {
			return fmt.Errorf("either GoogleServiceAccountJSON, GoogleServiceAccountFile or an OAuth client and token must be provided for sheets backend")
		}

	case MemoryBackend:
		// SeedFile is optional
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{APIBackend, SQLiteBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
