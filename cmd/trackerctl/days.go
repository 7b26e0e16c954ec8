package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"timetracker/internal/config"
	"timetracker/internal/storage"
)

var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "List the days --user has activities for (sqlite backend)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		cfg := loadConfig()
		if cfg.DataBackend != config.BackendSQLite {
			return fmt.Errorf("days needs the sqlite backend, got %q", cfg.DataBackend)
		}
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, newLogger(cmd))
		if err != nil {
			return err
		}
		defer repo.Close()

		days, err := repo.ListDays(cmd.Context(), userID)
		if err != nil {
			return err
		}
		for _, d := range days {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daysCmd)
}
