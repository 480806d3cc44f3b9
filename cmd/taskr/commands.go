package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loykin/taskr"
	"github.com/loykin/taskr/internal/render"
)

type command struct {
	*app
	// newRunner is swapped in tests.
	newRunner func(cmd *cobra.Command) (runner, error)
}

func (c *command) runner(cmd *cobra.Command) (runner, error) {
	if c.newRunner != nil {
		return c.newRunner(cmd)
	}
	if c.flags.APIUrl != "" {
		return newRemote(c.app), nil
	}
	return openLocal(cmd.Context(), c.app)
}

// exec runs op and prints its payload, rendered by show unless --json is
// set. An error payload becomes the command's error.
func (c *command) exec(cmd *cobra.Command, op string, args map[string]any, show func(*render.Renderer, map[string]any) (string, error)) error {
	r, err := c.runner(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = r.close() }()

	res, err := r.call(cmd.Context(), op, args)
	if res == nil {
		return err
	}
	if msg, ok := res["error"].(string); ok {
		if c.flags.JSON {
			printJSON(cmd.OutOrStdout(), res)
		}
		return errors.New(msg)
	}
	out := cmd.OutOrStdout()
	if c.flags.JSON {
		printJSON(out, res)
		return nil
	}
	text, err := show(render.New(out), res)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(out, text)
	if !strings.HasSuffix(text, "\n") {
		_, _ = fmt.Fprintln(out)
	}
	return nil
}

func message(_ *render.Renderer, res map[string]any) (string, error) {
	msg, _ := res["message"].(string)
	return msg, nil
}

func createReadCommand(c *command) *cobra.Command {
	f := &ReadFlags{}
	cmd := &cobra.Command{
		Use:   "read <session_id>",
		Short: "Show the todos of a session",
		Long: `Show the todos of a session, optionally filtered.

Examples:
  taskr read my-project
  taskr read my-project --status=in_progress --stats`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{"session_id": args[0], "include_stats": f.Stats}
			if f.Status != "" {
				a["status_filter"] = f.Status
			}
			if f.Priority != "" {
				a["priority_filter"] = f.Priority
			}
			return c.exec(cmd, taskr.OpRead, a, (*render.Renderer).Todos)
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "only todos with this status")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "only todos with this priority")
	cmd.Flags().BoolVar(&f.Stats, "stats", false, "include status and priority counts")
	return cmd
}

func createWriteCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "write <session_id> [file|-]",
		Short: "Replace the todos of a session from JSON",
		Long: `Replace the todo list of a session. The input is a JSON array of todos or an
object with a "todos" array, read from the file argument or stdin.

Examples:
  taskr write my-project todos.json
  echo '[{"content": "ship it", "priority": "high"}]' | taskr write my-project`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 2 {
				src = args[1]
			}
			todos, err := readTodos(cmd.InOrStdin(), src)
			if err != nil {
				return err
			}
			return c.exec(cmd, taskr.OpWrite, map[string]any{"session_id": args[0], "todos": todos}, message)
		},
	}
}

func createStatusCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session_id> <todo_id> <status>",
		Short: "Change the status of a todo",
		Long: `Change the status of a todo to pending, in_progress, completed or cancelled.

Examples:
  taskr status my-project todo-2 completed`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.exec(cmd, taskr.OpUpdateStatus, map[string]any{
				"session_id": args[0],
				"todo_id":    args[1],
				"new_status": args[2],
			}, message)
		},
	}
}

func createAddCommand(c *command) *cobra.Command {
	f := &AddFlags{}
	cmd := &cobra.Command{
		Use:   "add <session_id> <content>...",
		Short: "Append a todo to a session",
		Long: `Append a todo to a session, creating the session if needed.

Examples:
  taskr add my-project "write the release notes" --priority=high
  taskr add my-project review PR 12 --id=review`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{
				"session_id": args[0],
				"content":    strings.Join(args[1:], " "),
				"priority":   f.Priority,
				"status":     f.Status,
			}
			if f.ID != "" {
				a["todo_id"] = f.ID
			}
			return c.exec(cmd, taskr.OpAddItem, a, message)
		},
	}
	cmd.Flags().StringVar(&f.Priority, "priority", "medium", "high, medium or low")
	cmd.Flags().StringVar(&f.Status, "status", "pending", "initial status")
	cmd.Flags().StringVar(&f.ID, "id", "", "explicit todo id (generated when empty)")
	return cmd
}

func createDeleteCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session_id>",
		Short: "Delete a session and its todos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.exec(cmd, taskr.OpDeleteSession, map[string]any{"session_id": args[0]}, message)
		},
	}
}

func createSessionsCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions with completion rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.exec(cmd, taskr.OpGetSessions, map[string]any{}, (*render.Renderer).Sessions)
		},
	}
}

func createContinueCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:     "continue",
		Aliases: []string{"active"},
		Short:   "Summarize where the last conversation left off",
		Long: `Summarize the most recently updated session that still has pending or
in-progress todos: what is in progress and what comes next.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.exec(cmd, taskr.OpFindActiveWork, map[string]any{}, (*render.Renderer).Continuation)
		},
	}
}

// readTodos decodes the todo list from src ("-" is stdin). Numbers are kept
// as json.Number so integer ids are not rounded.
func readTodos(stdin io.Reader, src string) (any, error) {
	var raw []byte
	var err error
	if src == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse todos: %w", err)
	}
	if m, ok := v.(map[string]any); ok {
		if todos, ok := m["todos"]; ok {
			return todos, nil
		}
	}
	return v, nil
}
