package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/stats"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

// filterFlags are the selection flags shared by list, report, heatmap and
// export.
type filterFlags struct {
	subject string
	from    string
	to      string
	today   bool
	week    bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.subject, "subject", "s", "", "Only include this subject (case-insensitive)")
	cmd.Flags().StringVar(&f.from, "from", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day to include (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&f.today, "today", false, "Only today")
	cmd.Flags().BoolVar(&f.week, "week", false, "Only the current ISO week")
	cmd.MarkFlagsMutuallyExclusive("today", "week")
	_ = cmd.RegisterFlagCompletionFunc("subject", completeSubjects)
}

// completeSubjects suggests the subjects already in the log.
func completeSubjects(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if entryStore == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	prefix := strings.ToLower(toComplete)
	var out []string
	for _, s := range stats.Subjects(entryStore.Entries()) {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			out = append(out, s)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// build turns the flags into a stats.Filter relative to now.
func (f filterFlags) build(now time.Time) (stats.Filter, error) {
	filter := stats.Filter{Subject: strings.TrimSpace(f.subject)}
	switch {
	case f.today:
		filter.From = timecalc.StartOfDay(now)
		filter.To = filter.From
	case f.week:
		filter.From, filter.To = timecalc.WeekRange(now)
	}
	if f.from != "" {
		d, err := timecalc.ParseDate(f.from, now.Location())
		if err != nil {
			return filter, fmt.Errorf("invalid --from: %w", err)
		}
		filter.From = d
	}
	if f.to != "" {
		d, err := timecalc.ParseDate(f.to, now.Location())
		if err != nil {
			return filter, fmt.Errorf("invalid --to: %w", err)
		}
		filter.To = d
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return filter, fmt.Errorf("--to %s is before --from %s", filter.To.Format("2006-01-02"), filter.From.Format("2006-01-02"))
	}
	return filter, nil
}

// parseMinutesArg accepts whole minutes ("45") or a Go duration ("1h30m").
func parseMinutesArg(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %d", n)
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use minutes like 45 or a duration like 1h30m)", s)
	}
	if d%time.Minute != 0 {
		return 0, fmt.Errorf("duration %q is not a whole number of minutes", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return int(d / time.Minute), nil
}
