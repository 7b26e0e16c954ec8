package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"timetracker/internal/backend"
	"timetracker/internal/cli"
	"timetracker/internal/config"
	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/services"
)

var (
	userID      string
	dayDate     string
	backendName string
	dbPath      string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "trackerctl",
	Short: "trackerctl manages daily activity ledgers from the terminal",
	Long:  "trackerctl lists, adds, edits and removes one user's activities for a day and prints the day's category summary. It reads the same environment as the server.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User id (token subject)")
	rootCmd.PersistentFlags().StringVar(&dayDate, "date", "", "Day as YYYY-MM-DD (default today)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Override DATA_BACKEND ("+strings.Join(backend.GetBackendTypeStrings(), "|")+")")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Override SQLITE_DB_PATH")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log backend activity to stderr")
}

// loadConfig reads .env and the environment, then applies the flag overrides.
func loadConfig() *config.Config {
	cli.LoadEnvFile()
	cfg := config.Load()
	if backendName != "" {
		cfg.DataBackend = strings.ToLower(backendName)
	}
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	return cfg
}

func newLogger(cmd *cobra.Command) *log.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{
		Level:     level,
		Component: log.ComponentCLI,
		Handler:   slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}),
	})
}

// withLedger opens the backend, loads the --user/--date day and hands the
// ledger to run.
func withLedger(cmd *cobra.Command, run func(context.Context, *services.Ledger) error) error {
	scope, err := resolveScope()
	if err != nil {
		return err
	}
	cfg := loadConfig()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	ledger, err := services.OpenLedger(ctx, result.Backend, scope, services.WithLogger(logger))
	if err != nil {
		return err
	}
	return run(ctx, ledger)
}

func resolveScope() (core.Scope, error) {
	if strings.TrimSpace(userID) == "" {
		return core.Scope{}, fmt.Errorf("--user is required")
	}
	date := strings.TrimSpace(dayDate)
	if date == "" {
		date = core.Today().String()
	}
	return core.NewScope(userID, date)
}
