// Package mcp exposes the study log to MCP clients over stdio.
package mcp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Tiliavir/study-time-tracker/internal/storage"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Options wires the server to the stores.
type Options struct {
	Entries *storage.EntryStore
	Goals   *storage.GoalStore
	// DefaultGoal is the daily goal used when none is recorded for the day.
	DefaultGoal int
	// Now returns the current time.
	Now func() time.Time
	// AfterWrite runs after a tool changed the stores, e.g. to trigger the
	// daily backup. Its error is reported to the client as a warning.
	AfterWrite func(ctx context.Context) error
}

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	opts      Options

	// mu serialises store access; tool calls may run concurrently.
	mu sync.Mutex
}

// NewServer creates a new MCP server over the given stores.
func NewServer(opts Options) (*Server, error) {
	if opts.Entries == nil || opts.Goals == nil {
		return nil, errors.New("mcp: entry and goal stores are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultGoal <= 0 {
		opts.DefaultGoal = 90
	}

	s := &Server{
		mcpServer: mcp.NewServer(
			&mcp.Implementation{
				Name:    "stt",
				Version: Version,
			},
			nil,
		),
		opts: opts,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the server on stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) afterWrite(ctx context.Context) string {
	if s.opts.AfterWrite == nil {
		return ""
	}
	if err := s.opts.AfterWrite(ctx); err != nil {
		return err.Error()
	}
	return ""
}
