package backend

import (
	"context"
	"errors"
	"fmt"

	"timetracker/internal/amqp"
	"timetracker/internal/cache"
	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/services"
	"timetracker/internal/storage"
	"timetracker/internal/storage/postgres"
	"timetracker/internal/store"
	gsheet "timetracker/internal/store/google"
	"timetracker/internal/store/memory"
)

const dayCacheSize = 256

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.NewDiscard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the raw store for config.Type, puts a day cache in
// front of durable stores and wraps everything in an ActivityService that
// publishes change events when AMQP is configured.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		raw     Backend
		cleanup []CleanupFunc
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		raw = memory.New()
		f.logger.Info("Initialized memory backend")
	case SQLiteBackend:
		var repo *storage.SQLiteRepository
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		raw, cleanup = repo, append(cleanup, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		var repo *postgres.Repository
		repo, err = postgres.Open(ctx, config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		raw, cleanup = repo, append(cleanup, repo.Close)
		f.logger.Info("Initialized Postgres backend")
	case SheetsBackend:
		raw, err = NewSheetsClient(ctx, config, f.logger)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	result := &BackendResult{}
	var st store.ActivityStore = raw
	if config.Type.Durable() && config.CacheTTL > 0 {
		days := cache.NewLRUCache[[]core.Activity](dayCacheSize, config.CacheTTL)
		st = store.NewCachedStore(st, days)
		result.Caches = append(result.Caches, days)
	}

	publisher, err := f.createPublisher(config)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
	}
	// A nil *amqp.Client must not become a non-nil interface.
	var pub services.ChangePublisher
	if publisher != nil {
		pub = publisher
		cleanup = append(cleanup, publisher.Close)
	}

	result.Backend = services.NewActivityService(st, pub, f.logger)
	result.Cleanup = joinCleanup(cleanup)
	f.logger.Info("Backend ready",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", pub != nil,
		"cache_enabled", len(result.Caches) > 0)
	return result, nil
}

func (f *DefaultFactory) createPublisher(config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
	return client, nil
}

// NewSheetsClient opens the configured spreadsheet. The server uses it as a
// backend and the worker as its mirror target.
func NewSheetsClient(ctx context.Context, config Config, logger *log.Logger) (*gsheet.Client, error) {
	if err := config.validateSheets(); err != nil {
		return nil, err
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		CacheTTL:           config.CacheTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return cli, nil
}

// NewSource opens the durable store the mirror worker reads from, without
// caching or event publishing.
func NewSource(ctx context.Context, config Config, logger *log.Logger) (store.ActivityStore, CleanupFunc, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, repo.Close, nil
	case PostgresBackend:
		repo, err := postgres.Open(ctx, config.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("backend %q cannot be a mirror source", config.Type)
	}
}

func joinCleanup(fns []CleanupFunc) CleanupFunc {
	if len(fns) == 0 {
		return nil
	}
	return func() error {
		var errs []error
		// reverse order: publisher before store
		for i := len(fns) - 1; i >= 0; i-- {
			errs = append(errs, fns[i]())
		}
		return errors.Join(errs...)
	}
}
