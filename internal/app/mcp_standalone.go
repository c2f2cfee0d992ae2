package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	mcpserver "exdform/internal/mcp"
)

// Version is reported to MCP clients; set at build time with -ldflags.
var Version = "dev"

// ServeMCP runs the form as an MCP server on stdin/stdout until interrupted.
// The store must already be open; the schema may be loaded later by the agent.
func ServeMCP(ctx context.Context, a *App) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := mcpserver.New(mcpserver.Deps{
		Form:    a.form,
		Log:     a.log,
		Version: Version,
	})
	err := srv.Serve(ctx, os.Stdin, a.env.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
