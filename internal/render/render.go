// Package render turns operation payloads into terminal text. It only reads
// the payloads it is given.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/todo"
)

const timeLayout = "2006-01-02 15:04:05"

// Renderer holds styles bound to an output. Writers that are not terminals
// get plain text.
type Renderer struct {
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	id      lipgloss.Style
	status  map[todo.Status]lipgloss.Style
	prio    map[todo.Priority]lipgloss.Style
	warning lipgloss.Style
}

func New(w io.Writer) *Renderer {
	lr := lipgloss.NewRenderer(w)
	return &Renderer{
		title:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		label:   lr.NewStyle().Bold(true),
		muted:   lr.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		id:      lr.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		warning: lr.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		status: map[todo.Status]lipgloss.Style{
			todo.StatusPending:    lr.NewStyle(),
			todo.StatusInProgress: lr.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
			todo.StatusCompleted:  lr.NewStyle().Foreground(lipgloss.Color("#10B981")),
			todo.StatusCancelled:  lr.NewStyle().Foreground(lipgloss.Color("#6B7280")).Strikethrough(true),
		},
		prio: map[todo.Priority]lipgloss.Style{
			todo.PriorityHigh:   lr.NewStyle().Foreground(lipgloss.Color("#EF4444")),
			todo.PriorityMedium: lr.NewStyle(),
			todo.PriorityLow:    lr.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		},
	}
}

var marks = map[todo.Status]string{
	todo.StatusPending:    "[ ]",
	todo.StatusInProgress: "[~]",
	todo.StatusCompleted:  "[x]",
	todo.StatusCancelled:  "[-]",
}

type activeWork struct {
	Message         string        `json:"message"`
	ActiveSession   *string       `json:"active_session"`
	TotalTodos      int           `json:"total_todos"`
	PendingCount    int           `json:"pending_count"`
	InProgressCount int           `json:"in_progress_count"`
	NextPending     []todo.Record `json:"next_pending_todos"`
	Current         []todo.Record `json:"current_in_progress"`
	LastUpdated     float64       `json:"last_updated"`
}

type readResult struct {
	SessionID   string        `json:"session_id"`
	Todos       []todo.Record `json:"todos"`
	Count       int           `json:"count"`
	TotalCount  int           `json:"total_count"`
	Stats       *todo.Summary `json:"stats"`
	LastUpdated *float64      `json:"last_updated"`
}

type sessionList struct {
	TotalSessions int `json:"total_sessions"`
	Sessions      []struct {
		SessionID      string              `json:"session_id"`
		TodoCount      int                 `json:"todo_count"`
		LastUpdated    float64             `json:"last_updated"`
		CompletionRate float64             `json:"completion_rate"`
		StatusCounts   map[todo.Status]int `json:"status_counts"`
	} `json:"sessions"`
	StorageStats store.Stats `json:"storage_stats"`
}

// view re-decodes a payload into a typed view. Payloads built in process and
// ones decoded from HTTP responses go through the same path.
func view(payload map[string]any, v any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Continuation renders a find_active_work payload as a hand-off summary.
func (r *Renderer) Continuation(payload map[string]any) (string, error) {
	if msg, ok := payload["error"].(string); ok {
		return r.warning.Render("Error: " + msg), nil
	}
	var w activeWork
	if err := view(payload, &w); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(r.title.Render("Continue from last conversation"))
	b.WriteString("\n")
	if w.ActiveSession == nil {
		b.WriteString(r.muted.Render(w.Message))
		b.WriteString("\n")
		return b.String(), nil
	}
	fmt.Fprintf(&b, "%s %s %s\n", r.label.Render("Session:"), *w.ActiveSession,
		r.muted.Render("(updated "+stamp(w.LastUpdated)+")"))
	fmt.Fprintf(&b, "%s %d in progress, %d pending, %d total\n", r.label.Render("Open work:"),
		w.InProgressCount, w.PendingCount, w.TotalTodos)
	if len(w.Current) > 0 {
		b.WriteString(r.label.Render("In progress"))
		b.WriteString("\n")
		r.writeRecords(&b, w.Current)
	}
	if len(w.NextPending) > 0 {
		b.WriteString(r.label.Render("Next up"))
		b.WriteString("\n")
		r.writeRecords(&b, w.NextPending)
		if more := w.PendingCount - len(w.NextPending); more > 0 {
			b.WriteString(r.muted.Render(fmt.Sprintf("  ... and %d more pending", more)))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// Todos renders a read payload.
func (r *Renderer) Todos(payload map[string]any) (string, error) {
	if msg, ok := payload["error"].(string); ok {
		return r.warning.Render("Error: " + msg), nil
	}
	var rr readResult
	if err := view(payload, &rr); err != nil {
		return "", err
	}
	var b strings.Builder
	header := fmt.Sprintf("Session %s: %d of %d todos", rr.SessionID, rr.Count, rr.TotalCount)
	b.WriteString(r.title.Render(header))
	if rr.LastUpdated != nil {
		b.WriteString(" " + r.muted.Render("(updated "+stamp(*rr.LastUpdated)+")"))
	}
	b.WriteString("\n")
	if len(rr.Todos) == 0 {
		b.WriteString(r.muted.Render("  no todos"))
		b.WriteString("\n")
	}
	r.writeRecords(&b, rr.Todos)
	if rr.Stats != nil {
		line := fmt.Sprintf("%.1f%% complete", rr.Stats.CompletionRate)
		if d := rr.Stats.Describe(); d != "" {
			line += "; " + d
		}
		b.WriteString(r.muted.Render(line))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Sessions renders a get_sessions payload as one line per session.
func (r *Renderer) Sessions(payload map[string]any) (string, error) {
	if msg, ok := payload["error"].(string); ok {
		return r.warning.Render("Error: " + msg), nil
	}
	var sl sessionList
	if err := view(payload, &sl); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(r.title.Render(fmt.Sprintf("%d sessions, %d todos", sl.TotalSessions, sl.StorageStats.TotalTodos)))
	b.WriteString("\n")
	width := 0
	for _, s := range sl.Sessions {
		if len(s.SessionID) > width {
			width = len(s.SessionID)
		}
	}
	for _, s := range sl.Sessions {
		fmt.Fprintf(&b, "  %s %4d todos %5.1f%% done  %s\n",
			r.id.Render(fmt.Sprintf("%-*s", width, s.SessionID)),
			s.TodoCount, s.CompletionRate, r.muted.Render(stamp(s.LastUpdated)))
	}
	if sl.StorageStats.StorageFile != nil {
		b.WriteString(r.muted.Render("storage: " + *sl.StorageStats.StorageFile))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *Renderer) writeRecords(b *strings.Builder, rs []todo.Record) {
	for _, rec := range rs {
		fmt.Fprintf(b, "  %s %s %s %s\n",
			r.status[rec.Status].Render(marks[rec.Status]),
			r.id.Render(rec.ID),
			r.status[rec.Status].Render(rec.Content),
			r.prio[rec.Priority].Render("("+string(rec.Priority)+")"))
	}
}

func stamp(f float64) string {
	if f == 0 {
		return "never"
	}
	return store.FromUnixSeconds(f).Local().Format(timeLayout)
}
