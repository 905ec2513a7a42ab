package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a study session by id or unique id prefix",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	e, err := entryStore.Delete(args[0])
	if err != nil {
		return err
	}
	dataChanged = true

	out := cmd.OutOrStdout()
	color.New(color.FgYellow).Fprintf(out, "✗ Deleted %s of %s\n", timecalc.FormatMinutes(e.DurationMinutes), e.Subject)
	fmt.Fprintf(out, "  %s %s\n", faint(shortID(e.ID)), e.Day())
	return nil
}
