package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/export"
)

var (
	exportFilter filterFlags
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export study sessions to xlsx, csv, json or yaml",
	Long: `Export study sessions. The default xlsx workbook has one sheet with a
header row, fitted column widths and a trailing Sum row.

Use -o - to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportFilter.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "Output format: xlsx, csv, json, yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default study_export.<format>)")
}

func runExport(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	if !slices.Contains(export.Formats, exportFormat) {
		return fmt.Errorf("unknown --format %q (use xlsx, csv, json or yaml)", exportFormat)
	}
	filter, err := exportFilter.build(now)
	if err != nil {
		return err
	}
	entries := filter.Apply(entryStore.Entries())

	data, err := export.Render(exportFormat, entries, now)
	if err != nil {
		return err
	}

	if exportOutput == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	path := exportOutput
	if path == "" {
		path = export.FileName(exportFormat)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	success(cmd.OutOrStdout(), "Exported %d sessions to %s", len(entries), path)
	return nil
}
