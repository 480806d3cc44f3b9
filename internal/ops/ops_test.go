package ops

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/loykin/taskr/internal/service"
	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/store/jsonfile"
	"github.com/loykin/taskr/internal/todo"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return New(store.Open(context.Background()), nil)
}

// decode round-trips a payload through JSON the way a transport sees it.
func decode(t *testing.T, r Result) map[string]any {
	t.Helper()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestCallUnknownOperation(t *testing.T) {
	d := newDispatcher(t)
	res, err := d.Call(context.Background(), "todo_frobnicate", nil)
	if !errors.Is(err, ErrUnknownOp) {
		t.Fatalf("expected ErrUnknownOp, got %v", err)
	}
	if !res.IsError() || res.Message() != "Unknown tool: todo_frobnicate" {
		t.Fatalf("unexpected payload: %v", res)
	}
}

func TestToolNamesAreAccepted(t *testing.T) {
	d := newDispatcher(t)
	for _, name := range d.Names() {
		res, _ := d.Call(context.Background(), ToolPrefix+name, map[string]any{"session_id": "sess", "todos": []any{}})
		if res == nil {
			t.Fatalf("%s: nil result", name)
		}
		if res.IsError() && res.Message() == "Unknown tool: "+ToolPrefix+name {
			t.Fatalf("%s not routed", name)
		}
	}
}

func TestWriteReadPayloads(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)

	res, err := d.Write(ctx, map[string]any{
		"session_id": "proj-1",
		"todos": []any{
			map[string]any{"content": "A", "status": "pending", "priority": "high"},
			map[string]any{"id": 2.0, "content": "B", "status": "completed"},
		},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	w := decode(t, res)
	if w["success"] != true || w["todo_count"] != 2.0 || w["session_id"] != "proj-1" {
		t.Fatalf("write payload: %v", w)
	}
	stats, ok := w["stats"].(map[string]any)
	if !ok || stats["completion_rate"] != 50.0 {
		t.Fatalf("write stats: %v", w["stats"])
	}

	res, err = d.Read(ctx, map[string]any{"session_id": "proj-1", "status_filter": "completed", "include_stats": true})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	r := decode(t, res)
	todos := r["todos"].([]any)
	if len(todos) != 1 || todos[0].(map[string]any)["id"] != "2" {
		t.Fatalf("filtered todos: %v", todos)
	}
	if r["count"] != 1.0 || r["total_count"] != 2.0 {
		t.Fatalf("counts: %v %v", r["count"], r["total_count"])
	}
	if _, ok := r["last_updated"].(float64); !ok {
		t.Fatalf("last_updated should be epoch seconds: %v", r["last_updated"])
	}
	if s := r["stats"].(map[string]any); s["total"] != 1.0 || s["completion_rate"] != 100.0 {
		t.Fatalf("stats should cover the filtered list: %v", s)
	}

	// unknown sessions read as empty without a timestamp
	res, _ = d.Read(ctx, map[string]any{"session_id": "never"})
	if _, ok := res["last_updated"]; ok {
		t.Fatalf("unexpected last_updated for absent session")
	}
	if got := res["todos"].([]todo.Record); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func TestWriteArgumentErrors(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	cases := []struct {
		name string
		args map[string]any
		msg  string
	}{
		{"missing session", map[string]any{"todos": []any{}}, "Invalid session_id: Session ID is required but was empty"},
		{"numeric session", map[string]any{"session_id": 12345.0, "todos": []any{}}, "Invalid session_id: Session ID must be a string"},
		{"missing todos", map[string]any{"session_id": "sess"}, "Invalid todos: Todos must be a list"},
		{"object id", map[string]any{"session_id": "sess", "todos": []any{map[string]any{"id": map[string]any{}, "content": "x"}}},
			"Invalid todos: Todo item 0: Todo id must be a string, integer, or number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := d.Write(ctx, tc.args)
			if !service.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(res) != 1 || res["error"] != tc.msg {
				t.Fatalf("payload %v, want error %q", res, tc.msg)
			}
		})
	}
}

func TestUpdateAddDelete(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	if _, err := d.AddItem(ctx, map[string]any{"session_id": "sess", "content": "first"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	res, err := d.AddItem(ctx, map[string]any{"session_id": "sess", "content": "second", "priority": "high", "todo_id": "custom"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res["todo_id"] != "custom" || res["total_todos"] != 2 || res["message"] != "Added todo 'custom' to session sess" {
		t.Fatalf("add payload: %v", res)
	}
	if rec := res["todo"].(todo.Record); rec.Priority != todo.PriorityHigh || rec.Status != todo.StatusPending {
		t.Fatalf("added record: %+v", rec)
	}

	if _, err := d.AddItem(ctx, map[string]any{"session_id": "sess", "content": "again", "todo_id": "custom"}); !service.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	res, err = d.UpdateStatus(ctx, map[string]any{"session_id": "sess", "todo_id": "todo-1", "new_status": "in_progress"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res["old_status"] != "pending" || res["new_status"] != "in_progress" {
		t.Fatalf("update payload: %v", res)
	}
	if _, err := d.UpdateStatus(ctx, map[string]any{"session_id": "sess", "todo_id": "nope", "new_status": "completed"}); !service.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	res, err = d.DeleteSession(ctx, map[string]any{"session_id": "sess"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res["deleted"] != true || res["deleted_todo_count"] != 2 || res["message"] != "Deleted session sess and 2 todos" {
		t.Fatalf("delete payload: %v", res)
	}
	res, err = d.DeleteSession(ctx, map[string]any{"session_id": "sess"})
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if res["deleted"] != false || res["success"] != false || res["message"] != "Session sess not found" {
		t.Fatalf("second delete payload: %v", res)
	}
}

func TestSessionsAndActiveWork(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)

	res, _ := d.FindActiveWork(ctx)
	if v, ok := res["active_session"]; !ok || v != nil {
		t.Fatalf("expected null active_session, got %v", res)
	}
	if res["message"] != "No active sessions with unfinished work found" {
		t.Fatalf("message: %v", res["message"])
	}

	_, _ = d.Write(ctx, map[string]any{"session_id": "work", "todos": []any{
		map[string]any{"content": "a", "status": "in_progress"},
		map[string]any{"content": "b"},
	}})
	_, _ = d.Write(ctx, map[string]any{"session_id": "empty", "todos": []any{}})

	res, _ = d.FindActiveWork(ctx)
	got := decode(t, res)
	if got["active_session"] != "work" || got["pending_count"] != 1.0 || got["in_progress_count"] != 1.0 {
		t.Fatalf("active work: %v", got)
	}

	res, _ = d.GetSessions(ctx)
	got = decode(t, res)
	if got["total_sessions"] != 2.0 {
		t.Fatalf("total_sessions: %v", got["total_sessions"])
	}
	st := got["storage_stats"].(map[string]any)
	if st["has_file_persistence"] != false || st["storage_file"] != nil {
		t.Fatalf("storage stats: %v", st)
	}
	if sb := st["status_breakdown"].(map[string]any); sb["cancelled"] != 0.0 {
		t.Fatalf("status breakdown should list every status: %v", sb)
	}
}

func TestPersistenceAcrossDispatchers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todos.json")
	f, err := jsonfile.New(path)
	if err != nil {
		t.Fatal(err)
	}
	d := New(store.Open(ctx, store.WithPersister(f)), nil)
	_, err = d.Write(ctx, map[string]any{"session_id": "keep", "todos": []any{
		map[string]any{"content": "one"}, map[string]any{"content": "two"}, map[string]any{"content": "three"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	f2, _ := jsonfile.New(path)
	d2 := New(store.Open(ctx, store.WithPersister(f2)), nil)
	res, _ := d2.Read(ctx, map[string]any{"session_id": "keep"})
	if res["count"] != 3 {
		t.Fatalf("expected 3 records after reopen, got %v", res["count"])
	}
	res, _ = d2.GetSessions(ctx)
	st := res["storage_stats"].(store.Stats)
	if !st.HasFilePersistence || st.StorageFile == nil || *st.StorageFile != path {
		t.Fatalf("storage stats: %+v", st)
	}
}

func TestBoolArg(t *testing.T) {
	cases := map[any]bool{true: true, false: false, "true": true, " 1 ": true, "no": false, 1.0: false, nil: false}
	for in, want := range cases {
		if got := boolArg(map[string]any{"k": in}, "k"); got != want {
			t.Fatalf("boolArg(%v) = %v, want %v", in, got, want)
		}
	}
}
