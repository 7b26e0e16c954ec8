package backend

import (
	"errors"
	"fmt"
	"time"

	"timetracker/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresURL  string
	// CacheTTL enables a read-through day cache in front of durable backends.
	CacheTTL time.Duration

	// Empty AMQPURL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresURL:  appConfig.PostgresURL,
		CacheTTL:     appConfig.CacheTTL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return errors.New("Postgres URL is required for postgres backend")
		}
	case SheetsBackend:
		if err := c.validateSheets(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) validateSheets() error {
	if c.GoogleSpreadsheetID == "" {
		return errors.New("Google Spreadsheet ID is required for sheets backend")
	}
	if c.GoogleSheetName == "" {
		return errors.New("Google Sheet name is required for sheets backend")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, SheetsBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
