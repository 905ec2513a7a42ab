package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

var listFilter filterFlags

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List study sessions",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listFilter.register(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := listFilter.build(nowFunc())
	if err != nil {
		return err
	}
	printList(cmd.OutOrStdout(), filter.Apply(entryStore.Entries()))
	return nil
}

// printList groups entries by date and prints them.
func printList(w io.Writer, entries []model.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	byDay := map[string][]model.Entry{}
	var days []string
	for _, e := range entries {
		day := e.Day()
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], e)
	}
	sort.Strings(days)

	total := 0
	for _, day := range days {
		fmt.Fprintln(w, day)
		for _, e := range byDay[day] {
			note := ""
			if e.Note != "" {
				note = "  " + faint(e.Note)
			}
			fmt.Fprintf(w, "  %s  %-24s%8s%s\n", faint(shortID(e.ID)), e.Subject, timecalc.FormatMinutes(e.DurationMinutes), note)
			total += e.DurationMinutes
		}
	}
	fmt.Fprintf(w, "Total: %s in %d sessions\n", timecalc.FormatMinutes(total), len(entries))
}
