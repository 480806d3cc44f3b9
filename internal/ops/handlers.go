package ops

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/loykin/taskr/internal/service"
	"github.com/loykin/taskr/internal/store"
)

func (d *Dispatcher) read(_ context.Context, args map[string]any) (Result, error) {
	sid, err := sessionArg(args)
	if err != nil {
		return nil, err
	}
	r, err := d.queries.Read(sid, service.Filter{
		Status:       stringArg(args, "status_filter"),
		Priority:     stringArg(args, "priority_filter"),
		IncludeStats: boolArg(args, "include_stats"),
	})
	if err != nil {
		return nil, err
	}
	out := Result{
		"session_id":  r.SessionID,
		"todos":       r.Todos,
		"count":       r.Count,
		"total_count": r.Total,
	}
	if r.Stats != nil {
		out["stats"] = *r.Stats
	}
	if r.LastUpdated != nil {
		out["last_updated"] = store.UnixSeconds(*r.LastUpdated)
	}
	return out, nil
}

func (d *Dispatcher) write(ctx context.Context, args map[string]any) (Result, error) {
	sid, err := sessionArg(args)
	if err != nil {
		return nil, err
	}
	raw, ok := args["todos"]
	if !ok {
		return nil, &service.Error{Kind: service.KindValidation, Msg: "Invalid todos: Todos must be a list"}
	}
	w, err := d.mutations.WriteAll(ctx, sid, raw)
	if err != nil {
		return nil, err
	}
	out := Result{
		"success":    true,
		"message":    w.Message,
		"session_id": w.SessionID,
		"todo_count": w.Count,
	}
	if w.Stats != nil {
		out["stats"] = *w.Stats
	}
	return out, nil
}

func (d *Dispatcher) updateStatus(ctx context.Context, args map[string]any) (Result, error) {
	sid, err := sessionArg(args)
	if err != nil {
		return nil, err
	}
	status := stringArg(args, "new_status")
	if status == "" {
		status = stringArg(args, "status")
	}
	c, err := d.mutations.UpdateStatus(ctx, sid, stringArg(args, "todo_id"), status)
	if err != nil {
		return nil, err
	}
	return Result{
		"success":    true,
		"message":    c.Message,
		"session_id": c.SessionID,
		"todo_id":    c.TodoID,
		"old_status": string(c.Old),
		"new_status": string(c.New),
	}, nil
}

func (d *Dispatcher) addItem(ctx context.Context, args map[string]any) (Result, error) {
	sid, err := sessionArg(args)
	if err != nil {
		return nil, err
	}
	id := stringArg(args, "todo_id")
	if id == "" {
		id = stringArg(args, "id")
	}
	a, err := d.mutations.AddOne(ctx, sid, service.NewTodo{
		Content:  stringArg(args, "content"),
		Priority: stringArg(args, "priority"),
		Status:   stringArg(args, "status"),
		ID:       id,
	})
	if err != nil {
		return nil, err
	}
	return Result{
		"success":     true,
		"message":     a.Message,
		"session_id":  a.SessionID,
		"todo_id":     a.Todo.ID,
		"total_todos": a.Total,
		"todo":        a.Todo,
	}, nil
}

func (d *Dispatcher) deleteSession(ctx context.Context, args map[string]any) (Result, error) {
	sid, err := sessionArg(args)
	if err != nil {
		return nil, err
	}
	r, err := d.mutations.DeleteSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	return Result{
		"success":            r.Deleted,
		"deleted":            r.Deleted,
		"message":            r.Message,
		"session_id":         r.SessionID,
		"deleted_todo_count": r.Count,
	}, nil
}

func (d *Dispatcher) getSessions(context.Context, map[string]any) (Result, error) {
	l := d.queries.ListSessions()
	sessions := make([]map[string]any, 0, len(l.Sessions))
	for _, s := range l.Sessions {
		sessions = append(sessions, map[string]any{
			"session_id":      s.SessionID,
			"todo_count":      s.TodoCount,
			"last_updated":    store.UnixSeconds(s.LastUpdated),
			"completion_rate": s.CompletionRate,
			"status_counts":   s.StatusCounts,
		})
	}
	return Result{
		"total_sessions": len(sessions),
		"sessions":       sessions,
		"storage_stats":  l.Storage,
	}, nil
}

func (d *Dispatcher) findActiveWork(context.Context, map[string]any) (Result, error) {
	w := d.queries.FindActiveWork()
	if !w.Found {
		return Result{
			"message":        "No active sessions with unfinished work found",
			"active_session": nil,
		}, nil
	}
	return Result{
		"active_session":      w.SessionID,
		"total_todos":         w.Total,
		"pending_count":       w.Pending,
		"in_progress_count":   w.InProgress,
		"next_pending_todos":  w.NextPending,
		"current_in_progress": w.Current,
		"last_updated":        store.UnixSeconds(w.LastUpdated),
	}, nil
}

func sessionArg(args map[string]any) (string, error) {
	v := args["session_id"]
	if err := service.CheckSession(v); err != nil {
		return "", err
	}
	return v.(string), nil
}

// stringArg reads a scalar argument as a string. Numbers are formatted the
// way a JSON decoder produced them; anything else reads as empty.
func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}
