package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"timetracker/internal/core"
	"timetracker/internal/services"
)

var (
	activityName     string
	activityCategory string
	activityMinutes  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the day's activities in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(_ context.Context, l *services.Ledger) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "ID\tNAME\tCATEGORY\tMINUTES")
			for _, a := range l.Activities() {
				fmt.Fprintf(out, "%s\t%s\t%s\t%d\n", a.ID, a.Name, a.CategoryLabel(), a.Minutes)
			}
			fmt.Fprintf(out, "Remaining: %d minutes\n", l.RemainingMinutes())
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an activity to the day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := activityInput()
		return withLedger(cmd, func(ctx context.Context, l *services.Ledger) error {
			a, err := l.Add(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%dm) as %s, %d minutes remaining\n",
				a.Name, a.Minutes, a.ID, l.RemainingMinutes())
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace an activity's name, category and minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := activityInput()
		return withLedger(cmd, func(ctx context.Context, l *services.Ledger) error {
			a, err := l.Edit(ctx, args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s (%dm)\n", a.ID, a.Name, a.Minutes)
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an activity from the day",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, l *services.Ledger) error {
			if err := l.Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		})
	},
}

func activityInput() core.ActivityInput {
	return core.ActivityInput{Name: activityName, Category: activityCategory, Minutes: activityMinutes}
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&activityName, "name", "", "Activity name")
		c.Flags().StringVar(&activityCategory, "category", "", "Category (blank groups under Uncategorized)")
		c.Flags().IntVar(&activityMinutes, "minutes", 0, "Duration in minutes")
		_ = c.MarkFlagRequired("name")
		_ = c.MarkFlagRequired("minutes")
	}
	rootCmd.AddCommand(listCmd, addCmd, editCmd, removeCmd)
}
