package todo

import "strings"

// Status is the lifecycle state of a task record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Active reports whether work is still outstanding for a record in this state.
func (s Status) Active() bool { return s == StatusPending || s == StatusInProgress }

// Priority ranks a task record.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every accepted priority in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// Record is a validated task record. Values of this type only come out of
// Decode / DecodeAll (or a persister that stored them), so the enums hold.
type Record struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
}

// Raw returns the record as a plain argument map, the shape the validator accepts.
func (r Record) Raw() map[string]any {
	return map[string]any{
		"id":       r.ID,
		"content":  r.Content,
		"status":   string(r.Status),
		"priority": string(r.Priority),
	}
}

// Clone returns a copy of rs that shares no backing array with it.
func Clone(rs []Record) []Record {
	out := make([]Record, len(rs))
	copy(out, rs)
	return out
}

// Filter keeps records matching status and priority. Empty arguments match everything.
// Order is preserved.
func Filter(rs []Record, status Status, priority Priority) []Record {
	out := make([]Record, 0, len(rs))
	for _, r := range rs {
		if status != "" && r.Status != status {
			continue
		}
		if priority != "" && r.Priority != priority {
			continue
		}
		out = append(out, r)
	}
	return out
}

func joinStatuses() string {
	parts := make([]string, len(Statuses))
	for i, s := range Statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func joinPriorities() string {
	parts := make([]string, len(Priorities))
	for i, p := range Priorities {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
