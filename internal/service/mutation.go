package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/todo"
)

// Mutations is the write side: full replacement, status updates, single
// inserts and session deletion. Every write goes through store.Store.
type Mutations struct {
	store  *store.Store
	logger *slog.Logger
}

func NewMutations(s *store.Store, logger *slog.Logger) *Mutations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutations{store: s, logger: logger}
}

type WriteResult struct {
	SessionID string
	Count     int
	// Stats is nil when the write cleared the session.
	Stats   *todo.Summary
	Message string
}

type StatusChange struct {
	SessionID string
	TodoID    string
	Old       todo.Status
	New       todo.Status
	Message   string
}

// NewTodo describes a record to append. Empty Priority and Status take the
// defaults; other values are validated as given. An empty ID is generated.
type NewTodo struct {
	Content  string
	Priority string
	Status   string
	ID       string
}

type AddResult struct {
	SessionID string
	Todo      todo.Record
	Total     int
	Message   string
}

type DeleteResult struct {
	SessionID string
	Deleted   bool
	Count     int
	Message   string
}

// CheckSession validates a raw session_id argument the way every operation
// does, so transports can reject non-string keys with the same message.
func CheckSession(v any) error {
	if err := todo.ValidateSessionID(v); err != nil {
		return newError(KindValidation, "Invalid session_id: %s", err.Error())
	}
	return nil
}

func checkSession(sessionID string) error { return CheckSession(sessionID) }

// WriteAll replaces the session's records with raw after normalization and
// validation. An empty list clears the session but keeps it.
func (m *Mutations) WriteAll(ctx context.Context, sessionID string, raw any) (WriteResult, error) {
	if err := checkSession(sessionID); err != nil {
		return WriteResult{}, err
	}
	records, err := todo.DecodeAll(raw)
	if err != nil {
		return WriteResult{}, newError(KindValidation, "Invalid todos: %s", err.Error())
	}
	m.store.Set(ctx, sessionID, records)
	m.logger.Debug("todos written", "session", sessionID, "count", len(records))

	res := WriteResult{SessionID: sessionID, Count: len(records)}
	if len(records) == 0 {
		res.Message = fmt.Sprintf("Successfully cleared todos for session %s (stored empty list).", sessionID)
		return res, nil
	}
	sum := todo.Summarize(records)
	res.Stats = &sum
	res.Message = fmt.Sprintf("Successfully stored %d todos for session %s.\n%s", len(records), sessionID, sum.Describe())
	return res, nil
}

// UpdateStatus sets the status of the first record with id. Transition
// legality is not enforced.
func (m *Mutations) UpdateStatus(ctx context.Context, sessionID, id, newStatus string) (StatusChange, error) {
	if err := checkSession(sessionID); err != nil {
		return StatusChange{}, err
	}
	to := todo.Status(newStatus)
	if !to.Valid() {
		return StatusChange{}, newError(KindValidation, "Invalid status. Must be one of: %s", statusList())
	}
	var from todo.Status
	err := m.store.Update(ctx, sessionID, func(rs []todo.Record) ([]todo.Record, error) {
		for i := range rs {
			if rs[i].ID == id {
				from = rs[i].Status
				rs[i].Status = to
				return rs, nil
			}
		}
		return nil, newError(KindNotFound, "Todo with ID '%s' not found in session %s", id, sessionID)
	})
	if err != nil {
		return StatusChange{}, err
	}
	m.logger.Debug("todo status updated", "session", sessionID, "id", id, "from", from, "to", to)
	return StatusChange{
		SessionID: sessionID,
		TodoID:    id,
		Old:       from,
		New:       to,
		Message:   fmt.Sprintf("Updated todo '%s' status from '%s' to '%s'", id, from, to),
	}, nil
}

// AddOne appends a record. Without an id, "todo-N" is generated with N
// starting at the current count + 1 and bumped until unused.
func (m *Mutations) AddOne(ctx context.Context, sessionID string, in NewTodo) (AddResult, error) {
	if err := checkSession(sessionID); err != nil {
		return AddResult{}, err
	}
	raw := map[string]any{
		"content":  in.Content,
		"priority": orDefault(in.Priority, string(todo.PriorityMedium)),
		"status":   orDefault(in.Status, string(todo.StatusPending)),
	}
	var (
		added todo.Record
		total int
	)
	err := m.store.Update(ctx, sessionID, func(rs []todo.Record) ([]todo.Record, error) {
		used := make(map[string]struct{}, len(rs))
		for _, r := range rs {
			used[r.ID] = struct{}{}
		}
		id := strings.TrimSpace(in.ID)
		if id == "" {
			for n := len(rs); ; n++ {
				id = todo.DefaultID(n)
				if _, taken := used[id]; !taken {
					break
				}
			}
		}
		raw["id"] = id
		if err := todo.ValidateRecord(raw); err != nil {
			return nil, newError(KindValidation, "Invalid todo: %s", err.Error())
		}
		if _, taken := used[id]; taken {
			return nil, newError(KindConflict, "Todo with ID '%s' already exists in session %s", id, sessionID)
		}
		added = todo.Decode(raw)
		total = len(rs) + 1
		return append(rs, added), nil
	})
	if err != nil {
		return AddResult{}, err
	}
	m.logger.Debug("todo added", "session", sessionID, "id", added.ID)
	return AddResult{
		SessionID: sessionID,
		Todo:      added,
		Total:     total,
		Message:   fmt.Sprintf("Added todo '%s' to session %s", added.ID, sessionID),
	}, nil
}

// DeleteSession removes the session. A missing session is reported through
// Deleted=false, not as an error.
func (m *Mutations) DeleteSession(ctx context.Context, sessionID string) (DeleteResult, error) {
	if err := checkSession(sessionID); err != nil {
		return DeleteResult{}, err
	}
	count := len(m.store.Get(sessionID))
	if !m.store.Delete(ctx, sessionID) {
		return DeleteResult{
			SessionID: sessionID,
			Message:   fmt.Sprintf("Session %s not found", sessionID),
		}, nil
	}
	m.logger.Info("session deleted", "session", sessionID, "todos", count)
	return DeleteResult{
		SessionID: sessionID,
		Deleted:   true,
		Count:     count,
		Message:   fmt.Sprintf("Deleted session %s and %d todos", sessionID, count),
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func statusList() string {
	parts := make([]string, len(todo.Statuses))
	for i, s := range todo.Statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
