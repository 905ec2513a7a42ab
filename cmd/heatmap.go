package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/stats"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

var heatmapFilter filterFlags

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Show study minutes per weekday and ISO week",
	Args:  cobra.NoArgs,
	RunE:  runHeatmap,
}

func init() {
	heatmapFilter.register(heatmapCmd)
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	filter, err := heatmapFilter.build(nowFunc())
	if err != nil {
		return err
	}
	printHeatmap(cmd.OutOrStdout(), stats.BuildHeatmap(filter.Apply(entryStore.Entries())))
	return nil
}

// shades from empty to the busiest cell.
var shades = []string{"·", "░", "▒", "▓", "█"}

// shade maps minutes to one of shades relative to peak.
func shade(minutes, peak int) string {
	if minutes <= 0 || peak <= 0 {
		return shades[0]
	}
	i := 1 + (minutes*(len(shades)-1)-1)/peak
	if i >= len(shades) {
		i = len(shades) - 1
	}
	return shades[i]
}

// printHeatmap prints one row per weekday and one column per ISO week.
func printHeatmap(w io.Writer, h stats.Heatmap) {
	if len(h.Weeks) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}
	peak := h.Max()
	grid := h.Grid()

	fmt.Fprintf(w, "     %s … %s\n", h.Weeks[0].Label(), h.Weeks[len(h.Weeks)-1].Label())
	for row, day := range stats.Weekdays {
		fmt.Fprintf(w, "%-4s ", day.String()[:3])
		for _, minutes := range grid[row] {
			fmt.Fprint(w, shade(minutes, peak))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "     %s = %s\n", shades[len(shades)-1], timecalc.FormatMinutes(peak))
}
