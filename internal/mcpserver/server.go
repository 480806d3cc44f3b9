// Package mcpserver publishes the task-list operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/loykin/taskr/internal/ops"
)

// Name is the server name announced during initialization.
const Name = "taskr"

// Server wraps an MCP server whose tools call into a Dispatcher.
type Server struct {
	srv    *server.MCPServer
	ops    *ops.Dispatcher
	logger *slog.Logger
}

// New creates the MCP server and registers every tool.
func New(d *ops.Dispatcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		srv: server.NewMCPServer(
			Name,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
			server.WithInstructions(instructions),
		),
		ops:    d,
		logger: logger,
	}
	for _, t := range s.tools() {
		s.srv.AddTool(t.def, t.handle)
	}
	return s
}

// MCP exposes the underlying server, mainly for tests and embedding.
func (s *Server) MCP() *server.MCPServer { return s.srv }

// Serve speaks JSON-RPC on in/out until ctx is cancelled or in closes.
// Nothing else may write to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.srv)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio", "tools", len(s.tools()))
	return stdio.Listen(ctx, in, out)
}

const instructions = `Session-scoped task lists. Keep one session_id per project or conversation.
Use todo_write to replace a list, todo_update_status and todo_add_item for single changes,
and todo_continue_from_last_conversation to pick up unfinished work.`
