package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/config"
	"github.com/Tiliavir/study-time-tracker/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server for MCP-compatible assistants.
Add to the client config:

  {
    "mcpServers": {
      "stt": { "command": "stt", "args": ["mcp"] }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	server, err := mcp.NewServer(mcp.Options{
		Entries:     entryStore,
		Goals:       goalStore,
		DefaultGoal: cfg.DefaultGoalMinutes,
		Now:         nowFunc,
		AfterWrite:  mcpAfterWrite,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "stt MCP server listening on stdio")
	return server.Serve(cmd.Context())
}

// mcpAfterWrite runs the daily backup after a tool logged a session. Stdout
// carries the protocol, so it never prompts.
func mcpAfterWrite(ctx context.Context) error {
	if !cfg.Backup.Auto || cfg.Backup.Provider == config.ProviderNone {
		return nil
	}
	_, err := runAutoBackup(ctx, false)
	return err
}
