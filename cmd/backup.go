package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/backup"
	"github.com/Tiliavir/study-time-tracker/internal/config"
	"github.com/Tiliavir/study-time-tracker/internal/msgraph"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the study log to OneDrive or a local folder",
	Long: `Back up entries.csv to the folder configured under "backup" in
~/.stt/config.json. Without a subcommand, shows the backup status.

The automatic backup runs at most once per day, after a command that changed
the log. Manual backups are timestamped and can be taken any time.`,
	Args: cobra.NoArgs,
	RunE: runBackupStatus,
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run today's automatic backup if it has not happened yet",
	Args:  cobra.NoArgs,
	RunE:  runBackupRun,
}

var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Upload a timestamped manual backup",
	Args:  cobra.NoArgs,
	RunE:  runBackupNow,
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List backups, newest first",
	Args:    cobra.NoArgs,
	RunE:    runBackupList,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a backup by its remote id",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

var backupLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to OneDrive with a device code",
	Args:  cobra.NoArgs,
	RunE:  runBackupLogin,
}

var backupLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the cached OneDrive token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := msgraph.Logout(dataDir); err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Signed out of OneDrive")
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupRunCmd)
	backupCmd.AddCommand(backupNowCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupLoginCmd)
	backupCmd.AddCommand(backupLogoutCmd)
}

func runBackupStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	provider := cfg.Backup.Provider
	if provider == config.ProviderNone {
		fmt.Fprintln(out, `Backups are disabled. Set "backup.provider" to "onedrive" or "local" in the config file.`)
		return nil
	}
	auto := "off"
	if cfg.Backup.Auto {
		auto = "on"
	}
	fmt.Fprintf(out, "%-13s%s\n", "Provider", provider)
	fmt.Fprintf(out, "%-13s%s\n", "Folder", cfg.Backup.FolderName)
	fmt.Fprintf(out, "%-13s%s\n", "Auto backup", auto)

	coord, err := newCoordinator(cmd.Context(), false)
	if err != nil {
		fmt.Fprintf(out, "%-13s%s\n", "Remote", color.RedString("unavailable: %v", err))
		return nil
	}
	if last, ok := coord.LastAutoBackup(); ok {
		fmt.Fprintf(out, "%-13s%s\n", "Last auto", last)
	} else {
		fmt.Fprintf(out, "%-13s%s\n", "Last auto", "never")
	}
	if coord.IsBackedUpToday() {
		fmt.Fprintf(out, "%-13s%s\n", "Today", color.GreenString("backed up"))
	} else {
		fmt.Fprintf(out, "%-13s%s\n", "Today", color.YellowString("pending"))
	}
	if err := coord.Available(); err != nil {
		fmt.Fprintf(out, "%-13s%s\n", "Remote", color.RedString("%v", err))
	} else {
		fmt.Fprintf(out, "%-13s%s\n", "Remote", color.GreenString("reachable"))
		fmt.Fprintf(out, "%-13s%s\n", "Folder ID", faint(coord.FolderID()))
	}
	return nil
}

func runBackupRun(cmd *cobra.Command, args []string) error {
	res, err := runAutoBackup(cmd.Context(), true)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "Already backed up today.")
		return nil
	}
	success(cmd.OutOrStdout(), "Backed up to %s", res.Name)
	return nil
}

func runBackupNow(cmd *cobra.Command, args []string) error {
	coord, err := newCoordinator(cmd.Context(), true)
	if err != nil {
		return err
	}
	name, err := coord.ManualBackup(cmd.Context(), entryStore.Path())
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Backed up to %s", name)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	coord, err := newCoordinator(cmd.Context(), true)
	if err != nil {
		return err
	}
	list, err := coord.ListBackups(cmd.Context())
	if err != nil {
		// Listing failures are a status, not a command failure.
		warnf("%v", err)
	}
	printBackups(cmd.OutOrStdout(), list)
	return nil
}

func printBackups(w io.Writer, list []backup.Backup) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No backups found.")
		return
	}
	for _, b := range list {
		fmt.Fprintf(w, "%s  %-6s  %s\n", b.Created.Local().Format("2006-01-02 15:04"), b.Kind, b.Name)
		fmt.Fprintf(w, "  %s\n", faint(b.ID))
		if b.DownloadURL != "" {
			fmt.Fprintf(w, "  %s\n", faint(b.DownloadURL))
		}
	}
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	coord, err := newCoordinator(cmd.Context(), true)
	if err != nil {
		return err
	}
	if err := coord.DeleteBackup(cmd.Context(), args[0]); err != nil {
		return err
	}
	color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted backup %s\n", args[0])
	return nil
}

func runBackupLogin(cmd *cobra.Command, args []string) error {
	if cfg.Backup.Provider != config.ProviderOneDrive {
		fmt.Fprintln(os.Stderr, `Note: "backup.provider" is not "onedrive"; the token is cached anyway.`)
	}
	_, err := msgraph.LoadClient(cmd.Context(), dataDir, msgraph.Settings{
		TenantID: cfg.Backup.OneDrive.TenantID,
		ClientID: cfg.Backup.OneDrive.ClientID,
		DriveID:  cfg.Backup.OneDrive.DriveID,
	}, true)
	if err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Signed in to OneDrive")
	return nil
}
