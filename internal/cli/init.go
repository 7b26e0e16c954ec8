// Package cli holds the start-up steps shared by cmd/timetracker,
// cmd/timetracker-worker and cmd/trackerctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"timetracker/internal/config"
	"timetracker/internal/log"
)

// SetupLogger builds the process logger for the given LOG_LEVEL and makes it
// the slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{Level: log.ParseLevel(level), Component: log.ComponentApp})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the configuration, runs validate against it
// and exits the process when it fails.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM and a channel
// closed once cleanup has run or the timeout has elapsed.
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

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
