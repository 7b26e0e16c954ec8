package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Supported DATA_BACKEND values.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets, BackendPostgres}

type Config struct {
	// HTTP server
	Port         string
	LogLevel     string
	StoreTimeout time.Duration

	// Storage
	DataBackend  string
	SQLiteDBPath string
	PostgresURL  string
	CacheTTL     time.Duration

	// AMQP change events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets, used as a backend or as the mirror target
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Identity provider
	AuthJWTSecret string
	AuthJWTIssuer string
	AuthLoginURL  string

	// Mirror worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 7*time.Second),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/timetracker.db"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),
		CacheTTL:     getEnvDuration("CACHE_TTL", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "timetracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "activity_changes"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Activities"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		AuthLoginURL:  getEnv("AUTH_LOGIN_URL", ""),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
	}
}

// Validate checks the server configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !isValidBackend(c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		errs = append(errs, c.validateSQLite()...)
	case BackendPostgres:
		errs = append(errs, c.validatePostgres()...)
	case BackendSheets:
		errs = append(errs, c.validateSheets()...)
	}

	if c.AMQPURL != "" {
		errs = append(errs, c.validateAMQP()...)
	}

	if strings.TrimSpace(c.AuthJWTSecret) == "" {
		errs = append(errs, "AUTH_JWT_SECRET is required to verify identity tokens")
	} else if len(c.AuthJWTSecret) < 16 {
		errs = append(errs, "AUTH_JWT_SECRET must be at least 16 characters")
	}

	if c.StoreTimeout < 100*time.Millisecond || c.StoreTimeout > time.Minute {
		errs = append(errs, fmt.Sprintf("invalid store timeout %v: must be between 100ms and 1m", c.StoreTimeout))
	}

	return joinErrors(errs)
}

// ValidateWorker checks the settings the mirror worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string
	if c.DataBackend != BackendSQLite && c.DataBackend != BackendPostgres {
		errs = append(errs, fmt.Sprintf("worker needs a durable source backend (sqlite or postgres), got '%s'", c.DataBackend))
	}
	switch c.DataBackend {
	case BackendSQLite:
		errs = append(errs, c.validateSQLite()...)
	case BackendPostgres:
		errs = append(errs, c.validatePostgres()...)
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the worker")
	} else {
		errs = append(errs, c.validateAMQP()...)
	}
	errs = append(errs, c.validateSheets()...)

	if c.SyncBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	return joinErrors(errs)
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validatePostgres() []string {
	if c.PostgresURL == "" {
		return []string{"POSTGRES_URL is required when using postgres backend"}
	}
	u, err := url.Parse(c.PostgresURL)
	if err != nil {
		return []string{fmt.Sprintf("invalid POSTGRES_URL: %v", err)}
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return []string{fmt.Sprintf("invalid POSTGRES_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme)}
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errs []string
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for Google Sheets")
	}
	if c.GoogleSheetName == "" {
		errs = append(errs, "GOOGLE_SHEET_NAME cannot be empty")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for Google Sheets")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errs
}

func (c *Config) validateAMQP() []string {
	var errs []string
	if u, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errs
}

func isValidBackend(b string) bool {
	for _, v := range validBackends {
		if b == v {
			return true
		}
	}
	return false
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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
