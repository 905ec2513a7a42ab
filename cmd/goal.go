package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Show or set the daily study goal",
	Args:  cobra.NoArgs,
	RunE:  runGoalShow,
}

var goalSetCmd = &cobra.Command{
	Use:   "set <minutes>",
	Short: "Set today's goal; the first goal set for a day is kept",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalSet,
}

var goalHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded daily goals, newest first",
	Args:  cobra.NoArgs,
	RunE:  runGoalHistory,
}

func init() {
	goalCmd.AddCommand(goalSetCmd)
	goalCmd.AddCommand(goalHistoryCmd)
}

func runGoalShow(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	if g, ok := goalStore.GoalFor(now); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Today's goal: %s\n", timecalc.FormatMinutes(g.Minutes))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Today's goal: %s %s\n", timecalc.FormatMinutes(cfg.DefaultGoalMinutes), faint("(default, not set)"))
	return nil
}

func runGoalSet(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	minutes, err := parseMinutesArg(args[0])
	if err != nil {
		return err
	}
	written, err := goalStore.RecordGoal(now, minutes)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !written {
		g, _ := goalStore.GoalFor(now)
		fmt.Fprintf(out, "Today's goal is already %s; it can be set once per day.\n", timecalc.FormatMinutes(g.Minutes))
		return nil
	}
	success(out, "Goal for %s set to %s", now.Format(model.DateLayout), timecalc.FormatMinutes(minutes))
	return nil
}

func runGoalHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	history := goalStore.History()
	if len(history) == 0 {
		fmt.Fprintln(out, "No goals recorded.")
		return nil
	}
	for _, g := range history {
		fmt.Fprintf(out, "%s  %s\n", g.Date.Format(model.DateLayout), timecalc.FormatMinutes(g.Minutes))
	}
	return nil
}
