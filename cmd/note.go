package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note <id> <text>...",
	Short: "Replace the note of a study session",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runNote,
}

func runNote(cmd *cobra.Command, args []string) error {
	note := strings.Join(args[1:], " ")
	if err := entryStore.UpdateNote(args[0], note); err != nil {
		return err
	}
	dataChanged = true

	e, err := entryStore.Get(args[0])
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Note saved for %s on %s", e.Subject, e.Day())
	return nil
}
