package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"timetracker/internal/core"
	"timetracker/internal/services"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the day's totals and per-category minutes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(_ context.Context, l *services.Ledger) error {
			s := l.Summary()
			out := cmd.OutOrStdout()
			if summaryJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaryOutput(s))
			}
			if !s.HasData() {
				fmt.Fprintf(out, "No activities on %s\n", s.Date)
				return nil
			}
			fmt.Fprintf(out, "Date: %s\n", s.Date)
			fmt.Fprintf(out, "Total hours: %s\n", core.FormatHours(s.TotalHours))
			fmt.Fprintf(out, "Activities: %d\n", s.ActivityCount)
			fmt.Fprintf(out, "Remaining: %d minutes\n", s.RemainingMinutes)
			fmt.Fprintln(out, "CATEGORY\tMINUTES")
			for _, c := range s.ByCategory {
				fmt.Fprintf(out, "%s\t%d\n", c.Label, c.Minutes)
			}
			return nil
		})
	},
}

type categoryOutput struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}

func summaryOutput(s core.DaySummary) map[string]any {
	cats := make([]categoryOutput, 0, len(s.ByCategory))
	for _, c := range s.ByCategory {
		cats = append(cats, categoryOutput{Label: c.Label, Minutes: c.Minutes})
	}
	return map[string]any{
		"date":              s.Date.String(),
		"total_minutes":     s.TotalMinutes,
		"total_hours":       core.FormatHours(s.TotalHours),
		"activity_count":    s.ActivityCount,
		"remaining_minutes": s.RemainingMinutes,
		"analysable":        s.Analysable,
		"by_category":       cats,
	}
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Print the summary as JSON")
	rootCmd.AddCommand(summaryCmd)
}
