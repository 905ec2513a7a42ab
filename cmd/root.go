package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/backup"
	"github.com/Tiliavir/study-time-tracker/internal/config"
	"github.com/Tiliavir/study-time-tracker/internal/msgraph"
	"github.com/Tiliavir/study-time-tracker/internal/storage"
)

var (
	flagDataDir string
	flagConfig  string

	cfg        config.Config
	dataDir    string
	entryStore *storage.EntryStore
	goalStore  *storage.GoalStore

	// dataChanged is set by commands that modified the entry table; it
	// triggers the daily automatic backup after the command finished.
	dataChanged bool

	nowFunc = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "stt",
	Short: "Study Time Tracker – log study sessions per subject",
	Long: `stt is a single-binary, file-based study time log.
All data is stored as human-readable CSV files in ~/.stt/.

  $ stt add "Linear Algebra" 45          # log 45 minutes for today
  $ stt add Biology 1h30m --date 2026-10-15
  $ stt status                           # today, this week, goal progress
  $ stt report --by week                 # totals per ISO week
  $ stt export                           # study_export.xlsx with a Sum row

Entries older than the retention window (180 days by default) are pruned
when the log is loaded. Configure backups in ~/.stt/config.json.`,
	SilenceUsage:       true,
	PersistentPreRunE:  openData,
	PersistentPostRunE: autoBackupAfterChange,
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, storage.ErrStorageUnavailable) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory holding the CSV tables (overrides data_dir)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.stt/config.json)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(heatmapCmd)
	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(mcpCmd)
}

// openData loads the config and both tables before every command.
func openData(cmd *cobra.Command, _ []string) error {
	dataChanged = false
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFrom(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		warnf("%v (using defaults)", err)
	}

	dataDir = flagDataDir
	if dataDir == "" {
		if dataDir, err = cfg.ResolveDataDir(); err != nil {
			return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
		}
	}

	opts := storage.Options{RetentionDays: cfg.RetentionDays, Now: nowFunc}

	var report storage.LoadReport
	entryStore, report, err = storage.Open(filepath.Join(dataDir, storage.EntriesFile), opts)
	if err != nil {
		return err
	}
	reportLoad(storage.EntriesFile, report)

	goalStore, report, err = storage.OpenGoals(filepath.Join(dataDir, storage.GoalsFile), opts)
	if err != nil {
		return err
	}
	reportLoad(storage.GoalsFile, report)
	return nil
}

// reportLoad prints the non-fatal findings of a table load to stderr. A
// missing file on first run is not worth a warning.
func reportLoad(name string, r storage.LoadReport) {
	if r.Unavailable != nil && !errors.Is(r.Unavailable, os.ErrNotExist) {
		warnf("%s could not be read, starting empty: %v", name, r.Unavailable)
	}
	for _, d := range r.Dropped {
		warnf("%s: skipped %v", name, d)
	}
	if r.Pruned > 0 {
		fmt.Fprintf(os.Stderr, "Pruned %d entries older than %d days.\n", r.Pruned, cfg.RetentionDays)
	}
}

// autoBackupAfterChange runs the daily automatic backup after a command
// changed data. Failures never fail the command.
func autoBackupAfterChange(cmd *cobra.Command, _ []string) error {
	if !dataChanged || !cfg.Backup.Auto || cfg.Backup.Provider == config.ProviderNone {
		return nil
	}
	res, err := runAutoBackup(cmd.Context(), false)
	if err != nil {
		warnf("automatic backup failed: %v", err)
		return nil
	}
	if !res.Skipped {
		fmt.Fprintf(os.Stderr, "Backed up to %s.\n", res.Name)
	}
	return nil
}

func runAutoBackup(ctx context.Context, interactive bool) (backup.AutoResult, error) {
	coord, err := newCoordinator(ctx, interactive)
	if err != nil {
		return backup.AutoResult{}, err
	}
	return coord.RunAutoBackupIfNeeded(ctx, entryStore.Path())
}

// newCoordinator builds the backup coordinator for the configured provider.
// With interactive false the OneDrive provider never prompts for sign-in.
func newCoordinator(ctx context.Context, interactive bool) (*backup.Coordinator, error) {
	var (
		remote backup.Remote
		root   string
	)
	switch cfg.Backup.Provider {
	case config.ProviderLocal:
		dir, err := cfg.ResolveLocalDir()
		if err != nil {
			return nil, err
		}
		remote = backup.LocalFolder{Dir: dir}
	case config.ProviderOneDrive:
		client, err := msgraph.LoadClient(ctx, dataDir, msgraph.Settings{
			TenantID: cfg.Backup.OneDrive.TenantID,
			ClientID: cfg.Backup.OneDrive.ClientID,
			DriveID:  cfg.Backup.OneDrive.DriveID,
		}, interactive)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", backup.ErrRemoteUnavailable, err)
		}
		remote = client
		root = cfg.Backup.OneDrive.Parent
	default:
		return nil, errors.New(`backups are disabled; set "backup.provider" in the config file`)
	}
	return backup.New(ctx, remote, backup.Options{
		FolderName:   cfg.Backup.FolderName,
		Root:         root,
		SentinelPath: filepath.Join(dataDir, storage.SentinelFile),
		Now:          nowFunc,
	}), nil
}

func success(w io.Writer, format string, a ...any) {
	color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", a...)
}

func warnf(format string, a ...any) {
	color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: "+format+"\n", a...)
}

func faint(s string) string {
	return color.New(color.Faint).Sprint(s)
}

// shortID returns the first eight characters of an id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
