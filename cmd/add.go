package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

var (
	addDate string
	addNote string
)

var addCmd = &cobra.Command{
	Use:   "add <subject> <minutes>",
	Short: "Log a study session",
	Long: `Log a study session for a subject. The duration is whole minutes or a
duration such as 1h30m. The entry records today's daily goal.

Examples:
  stt add Math 45
  stt add "Linear Algebra" 1h30m --date 2026-10-15
  stt add Biology 30 --note "chapter 4"`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeAddArgs,
	RunE:              runAdd,
}

// completeAddArgs suggests known subjects for the first argument only.
func completeAddArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeSubjects(cmd, args, toComplete)
}

func init() {
	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "Day of the session (YYYY-MM-DD, default today)")
	addCmd.Flags().StringVarP(&addNote, "note", "n", "", "Free-text note")
}

func runAdd(cmd *cobra.Command, args []string) error {
	now := nowFunc()

	minutes, err := parseMinutesArg(args[1])
	if err != nil {
		return err
	}

	date := now
	if addDate != "" {
		if date, err = timecalc.ParseDate(addDate, now.Location()); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	goal := goalStore.MinutesFor(date, cfg.DefaultGoalMinutes)
	e, err := entryStore.Append(model.Entry{
		Subject:           args[0],
		DurationMinutes:   minutes,
		Date:              date,
		Note:              strings.TrimSpace(addNote),
		DailyGoalSnapshot: &goal,
	})
	if err != nil {
		return err
	}
	dataChanged = true

	out := cmd.OutOrStdout()
	success(out, "Logged %s of %s", timecalc.FormatMinutes(e.DurationMinutes), e.Subject)
	fmt.Fprintf(out, "  %s %s\n", faint(shortID(e.ID)), e.Day())
	return nil
}
