package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"exdform/internal/apperror"
	"exdform/internal/logger"
	"exdform/internal/service"
)

// Server is the MCP server for exdform.
// It exposes the form session as tools, resources and prompts so agents can
// load schemas, enter records and read exports and reports.
type Server struct {
	mcp *server.MCPServer
	log *logger.Logger

	// tool handlers may run concurrently; the form session is not safe for that
	mu   sync.Mutex
	form *service.FormService
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Form    *service.FormService
	Log     *logger.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		form: deps.Form,
		log:  logger.OrNop(deps.Log).WithComponent("mcp"),
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(
		"exdform-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerFormTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// Serve runs the MCP protocol over in/out until ctx is cancelled or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Infow("starting stdio server")
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}

// MCPServer exposes the underlying server, mainly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// locked runs fn with exclusive access to the form service.
func (s *Server) locked(fn func() (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports err to the agent as a tool-level failure carrying the
// structured error, so it can correct its input and retry.
func (s *Server) errorResult(ctx context.Context, tool string, err error) (*mcp.CallToolResult, error) {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		appErr = apperror.NewInternal(err)
	}
	s.log.Warnw("tool failed", "tool", tool, "code", appErr.Code, "error", err)
	res, merr := jsonResult(appErr)
	if merr != nil {
		return nil, merr
	}
	res.IsError = true
	return res, nil
}
