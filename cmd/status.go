package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/stats"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

const barWidth = 20

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's, this week's and the total study time with goal progress",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	out := cmd.OutOrStdout()

	entries := entryStore.Entries()
	ov := stats.Summarize(entries, now)
	y, w := now.ISOWeek()

	fmt.Fprintf(out, "%-11s%-10s%s\n", "Today", timecalc.FormatMinutes(ov.Today), faint(now.Format(model.DateLayout)))
	fmt.Fprintf(out, "%-11s%-10s%s\n", "This week", timecalc.FormatMinutes(ov.Week), faint(timecalc.ISOWeekLabel(y, w)))
	fmt.Fprintf(out, "%-11s%-10s%s\n", "Total", timecalc.FormatMinutes(ov.Total), faint(fmt.Sprintf("%d sessions, last %d days", len(entries), cfg.RetentionDays)))
	fmt.Fprintln(out)

	goal, recorded := goalStore.GoalFor(now)
	minutes := cfg.DefaultGoalMinutes
	if recorded {
		minutes = goal.Minutes
	}
	printProgress(out, stats.GoalProgress(ov.Today, minutes), !recorded)

	if top := stats.MinutesBySubject(stats.Filter{From: now, To: now}.Apply(entries)); len(top) > 0 {
		fmt.Fprintln(out)
		for _, st := range top {
			fmt.Fprintf(out, "  %-24s%s\n", st.Subject, timecalc.FormatMinutes(st.Minutes))
		}
	}
	return nil
}

func printProgress(w io.Writer, p stats.Progress, isDefault bool) {
	label := timecalc.FormatMinutes(p.Goal)
	if isDefault {
		label += " " + faint("(default)")
	}
	fmt.Fprintf(w, "%-11s%s\n", "Goal", label)

	var c *color.Color
	switch p.Tier {
	case stats.TierReached:
		c = color.New(color.FgGreen)
	case stats.TierHalfway:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	fmt.Fprintf(w, "%-11s%s %3.0f%%", "", c.Sprint(progressBar(p.Fraction, barWidth)), p.Fraction*100)
	if p.Remaining > 0 {
		fmt.Fprintf(w, "  %s to go\n", timecalc.FormatMinutes(p.Remaining))
	} else {
		fmt.Fprintln(w, "  reached")
	}
}

// progressBar renders fraction (0..1) as a bar of width cells.
func progressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
