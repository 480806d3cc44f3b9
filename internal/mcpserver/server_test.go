package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loykin/taskr/internal/ops"
	"github.com/loykin/taskr/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(ops.New(store.Open(context.Background()), nil), "test", nil)
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	for _, tl := range s.tools() {
		if tl.def.Name != name {
			continue
		}
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := tl.handle(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(res.Content) != 1 {
			t.Fatalf("%s: expected one content item, got %d", name, len(res.Content))
		}
		text, ok := res.Content[0].(mcp.TextContent)
		if !ok {
			t.Fatalf("%s: unexpected content %T", name, res.Content[0])
		}
		return text.Text, res.IsError
	}
	t.Fatalf("tool %s not registered", name)
	return "", false
}

func decode(t *testing.T, text string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	return m
}

func TestToolNames(t *testing.T) {
	s := newTestServer(t)
	want := map[string]bool{
		"todo_read": true, "todo_write": true, "todo_update_status": true, "todo_add_item": true,
		"todo_delete_session": true, "todo_get_sessions": true, "todo_find_active_work": true,
		ContinueTool: true,
	}
	tools := s.tools()
	if len(tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(tools))
	}
	for _, tl := range tools {
		if !want[tl.def.Name] {
			t.Fatalf("unexpected tool %q", tl.def.Name)
		}
	}
}

func TestWriteReadUpdate(t *testing.T) {
	s := newTestServer(t)
	text, isErr := callTool(t, s, "todo_write", map[string]any{
		"session_id": "mcp-proj",
		"todos": []any{
			map[string]any{"content": "design", "status": "in_progress", "priority": "high"},
			map[string]any{"content": "build"},
		},
	})
	if isErr {
		t.Fatalf("write failed: %s", text)
	}
	if got := decode(t, text); got["todo_count"] != 2.0 {
		t.Fatalf("write payload: %v", got)
	}

	text, isErr = callTool(t, s, "todo_update_status", map[string]any{
		"session_id": "mcp-proj", "todo_id": "todo-2", "new_status": "completed",
	})
	if isErr {
		t.Fatalf("update failed: %s", text)
	}
	got := decode(t, text)
	if got["old_status"] != "pending" || got["new_status"] != "completed" {
		t.Fatalf("update payload: %v", got)
	}

	text, _ = callTool(t, s, "todo_read", map[string]any{"session_id": "mcp-proj", "status_filter": "completed"})
	got = decode(t, text)
	if got["count"] != 1.0 || got["total_count"] != 2.0 {
		t.Fatalf("read payload: %v", got)
	}
}

func TestErrorResults(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		tool string
		args map[string]any
		msg  string
	}{
		{"todo_read", map[string]any{"session_id": "x"}, "Invalid session_id"},
		{"todo_write", map[string]any{"session_id": "abc", "todos": "nope"}, "Invalid todos"},
		{"todo_update_status", map[string]any{"session_id": "abc", "todo_id": "1", "new_status": "done"}, "Invalid status"},
		{"todo_update_status", map[string]any{"session_id": "abc", "todo_id": "1", "new_status": "completed"}, "not found"},
	}
	for _, tc := range cases {
		text, isErr := callTool(t, s, tc.tool, tc.args)
		if !isErr {
			t.Fatalf("%s: expected error result, got %s", tc.tool, text)
		}
		msg, _ := decode(t, text)["error"].(string)
		if !strings.Contains(msg, tc.msg) {
			t.Fatalf("%s: error %q does not contain %q", tc.tool, msg, tc.msg)
		}
	}
}

func TestAddAndSessions(t *testing.T) {
	s := newTestServer(t)
	text, isErr := callTool(t, s, "todo_add_item", map[string]any{"session_id": "adds", "content": "one"})
	if isErr {
		t.Fatalf("add failed: %s", text)
	}
	got := decode(t, text)
	if got["todo_id"] != "todo-1" || got["total_todos"] != 1.0 {
		t.Fatalf("add payload: %v", got)
	}
	todoObj := got["todo"].(map[string]any)
	if todoObj["priority"] != "medium" || todoObj["status"] != "pending" {
		t.Fatalf("defaults not applied: %v", todoObj)
	}

	text, _ = callTool(t, s, "todo_get_sessions", nil)
	if got := decode(t, text); got["total_sessions"] != 1.0 {
		t.Fatalf("sessions payload: %v", got)
	}

	text, _ = callTool(t, s, "todo_delete_session", map[string]any{"session_id": "adds"})
	if got := decode(t, text); got["deleted"] != true {
		t.Fatalf("delete payload: %v", got)
	}
}

func TestContinueFromLastConversation(t *testing.T) {
	s := newTestServer(t)
	text, isErr := callTool(t, s, ContinueTool, nil)
	if isErr || !strings.Contains(text, "No active sessions") {
		t.Fatalf("expected no active work, got %q", text)
	}

	callTool(t, s, "todo_write", map[string]any{
		"session_id": "resume-me",
		"todos": []any{
			map[string]any{"content": "half done", "status": "in_progress"},
			map[string]any{"content": "not started"},
		},
	})
	text, isErr = callTool(t, s, ContinueTool, nil)
	if isErr {
		t.Fatalf("continue failed: %s", text)
	}
	for _, want := range []string{"resume-me", "half done", "not started"} {
		if !strings.Contains(text, want) {
			t.Fatalf("continuation missing %q:\n%s", want, text)
		}
	}
}

func TestListToolsOverJSONRPC(t *testing.T) {
	s := newTestServer(t)
	resp := s.MCP().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Result.Tools) != 8 {
		t.Fatalf("expected 8 tools, got %s", raw)
	}
}
