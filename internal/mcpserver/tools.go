package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/loykin/taskr/internal/ops"
	"github.com/loykin/taskr/internal/render"
)

// ContinueTool renders the most recent open work as text.
const ContinueTool = "todo_continue_from_last_conversation"

type tool struct {
	def    mcp.Tool
	handle server.ToolHandlerFunc
}

var (
	statusEnum   = mcp.Enum("pending", "in_progress", "completed", "cancelled")
	priorityEnum = mcp.Enum("high", "medium", "low")
	sessionParam = mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session identifier (3-100 chars: letters, digits, '_' or '-')"),
	)
)

func (s *Server) tools() []tool {
	return []tool{
		{
			def: mcp.NewTool(ops.ToolPrefix+ops.OpRead,
				mcp.WithDescription("Read the todo list of a session, optionally filtered by status or priority."),
				sessionParam,
				mcp.WithString("status_filter", mcp.Description("Only return todos with this status"), statusEnum),
				mcp.WithString("priority_filter", mcp.Description("Only return todos with this priority"), priorityEnum),
				mcp.WithBoolean("include_stats", mcp.Description("Include counts and completion rate for the returned todos")),
			),
			handle: s.call(ops.OpRead),
		},
		{
			def: mcp.NewTool(ops.ToolPrefix+ops.OpWrite,
				mcp.WithDescription("Replace the whole todo list of a session. An empty list clears it."),
				sessionParam,
				mcp.WithArray("todos",
					mcp.Required(),
					mcp.Description("Todos to store; ids, status and priority are filled in when missing"),
					mcp.Items(map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":       map[string]any{"type": []string{"string", "integer"}},
							"content":  map[string]any{"type": "string"},
							"status":   map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed", "cancelled"}},
							"priority": map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
						},
						"required": []string{"content"},
					}),
				),
			),
			handle: s.call(ops.OpWrite),
		},
		{
			def: mcp.NewTool(ops.ToolPrefix+ops.OpUpdateStatus,
				mcp.WithDescription("Change the status of one todo."),
				sessionParam,
				mcp.WithString("todo_id", mcp.Required(), mcp.Description("Id of the todo to update")),
				mcp.WithString("new_status", mcp.Required(), mcp.Description("New status"), statusEnum),
			),
			handle: s.call(ops.OpUpdateStatus),
		},
		{
			def: mcp.NewTool(ops.ToolPrefix+ops.OpAddItem,
				mcp.WithDescription("Append one todo to a session, creating the session if needed."),
				sessionParam,
				mcp.WithString("content", mcp.Required(), mcp.Description("What needs doing")),
				mcp.WithString("priority", mcp.DefaultString("medium"), priorityEnum),
				mcp.WithString("status", mcp.DefaultString("pending"), statusEnum),
				mcp.WithString("todo_id", mcp.Description("Explicit id; generated when omitted")),
			),
			handle: s.call(ops.OpAddItem),
		},
		{
			def: mcp.NewTool(ops.ToolPrefix+ops.OpDeleteSession,
				mcp.WithDescription("Delete a session and all of its todos."),
				sessionParam,
			),
			handle: s.call(ops.OpDeleteSession),
		},
		{
			def: mcp.NewTool(ops.ToolPrefix+ops.OpGetSessions,
				mcp.WithDescription("List every session with counts, completion rate and storage details."),
			),
			handle: s.call(ops.OpGetSessions),
		},
		{
			def: mcp.NewTool(ops.ToolPrefix+ops.OpFindActiveWork,
				mcp.WithDescription("Find the most recently updated session that still has pending or in-progress todos."),
			),
			handle: s.call(ops.OpFindActiveWork),
		},
		{
			def: mcp.NewTool(ContinueTool,
				mcp.WithDescription("Summarize unfinished work from the most recent session so it can be resumed."),
			),
			handle: s.handleContinue,
		},
	}
}

// call adapts a dispatcher operation to an MCP tool handler. Operation
// failures become error results, not protocol errors.
func (s *Server) call(op string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := s.ops.Call(ctx, op, req.GetArguments())
		if err != nil {
			s.logger.Debug("tool call failed", "tool", req.Params.Name, "error", err)
		}
		return toResult(res)
	}
}

func (s *Server) handleContinue(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.ops.FindActiveWork(ctx)
	if err != nil {
		return toResult(res)
	}
	text, err := render.New(io.Discard).Continuation(res)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("render continuation", err), nil
	}
	return mcp.NewToolResultText(text), nil
}

func toResult(res ops.Result) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encode result", err), nil
	}
	if res.IsError() {
		return mcp.NewToolResultError(string(raw)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
