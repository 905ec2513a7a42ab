package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all study sessions and goals",
	Long: `Delete all study sessions and goals. Remote backups are kept; run
"stt backup now" first if you want a copy of the current log.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm deleting all data")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return errors.New("refusing to delete all data without --yes")
	}
	n := len(entryStore.Entries())
	if err := entryStore.Reset(); err != nil {
		return err
	}
	if err := goalStore.Reset(); err != nil {
		return err
	}
	color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted %d sessions and all goals\n", n)
	return nil
}
