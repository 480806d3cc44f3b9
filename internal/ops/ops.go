// Package ops exposes the task-list operations as named calls over plain
// argument maps. Every call returns a payload; failures become {"error": msg}.
package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/loykin/taskr/internal/metrics"
	"github.com/loykin/taskr/internal/service"
	"github.com/loykin/taskr/internal/store"
)

// Operation names.
const (
	OpRead           = "read"
	OpWrite          = "write"
	OpUpdateStatus   = "update_status"
	OpAddItem        = "add_item"
	OpDeleteSession  = "delete_session"
	OpGetSessions    = "get_sessions"
	OpFindActiveWork = "find_active_work"
)

// ToolPrefix is prepended to operation names when they are published as tools.
const ToolPrefix = "todo_"

// ErrUnknownOp is returned by Call for a name that is not an operation.
var ErrUnknownOp = errors.New("unknown operation")

// Result is an operation payload.
type Result map[string]any

// IsError reports whether r is an error payload.
func (r Result) IsError() bool {
	_, ok := r["error"]
	return ok
}

// Message returns the error or message text of r, if any.
func (r Result) Message() string {
	if s, ok := r["error"].(string); ok {
		return s
	}
	s, _ := r["message"].(string)
	return s
}

func errorResult(err error) Result { return Result{"error": err.Error()} }

type handler func(ctx context.Context, args map[string]any) (Result, error)

// Dispatcher routes operation names to the query and mutation services.
type Dispatcher struct {
	mutations *service.Mutations
	queries   *service.Queries
	logger    *slog.Logger
	handlers  map[string]handler
}

func New(s *store.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		mutations: service.NewMutations(s, logger),
		queries:   service.NewQueries(s),
		logger:    logger,
	}
	d.handlers = map[string]handler{
		OpRead:           d.read,
		OpWrite:          d.write,
		OpUpdateStatus:   d.updateStatus,
		OpAddItem:        d.addItem,
		OpDeleteSession:  d.deleteSession,
		OpGetSessions:    d.getSessions,
		OpFindActiveWork: d.findActiveWork,
	}
	return d
}

// Names lists the operation names in sorted order.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.handlers))
	for k := range d.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Call runs the named operation. The tool form of a name ("todo_read") is
// accepted too. The returned Result is never nil; on failure it is an error
// payload and err carries the cause so transports can classify it.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (res Result, err error) {
	op := strings.TrimPrefix(name, ToolPrefix)
	h, ok := d.handlers[op]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownOp, name)
		return Result{"error": fmt.Sprintf("Unknown tool: %s", name)}, err
	}
	if args == nil {
		args = map[string]any{}
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
			res = errorResult(err)
			d.logger.Error("operation panicked", "op", op, "panic", r)
		}
		outcome := "ok"
		switch {
		case err != nil && service.KindOf(err) != 0:
			outcome = service.KindOf(err).String()
		case err != nil:
			outcome = "error"
		}
		metrics.ObserveOperation(op, outcome, time.Since(start).Seconds())
	}()
	res, err = h(ctx, args)
	if err != nil {
		d.logger.Debug("operation failed", "op", op, "error", err)
		return errorResult(err), err
	}
	return res, nil
}

// Read is Call(OpRead).
func (d *Dispatcher) Read(ctx context.Context, args map[string]any) (Result, error) {
	return d.Call(ctx, OpRead, args)
}

func (d *Dispatcher) Write(ctx context.Context, args map[string]any) (Result, error) {
	return d.Call(ctx, OpWrite, args)
}

func (d *Dispatcher) UpdateStatus(ctx context.Context, args map[string]any) (Result, error) {
	return d.Call(ctx, OpUpdateStatus, args)
}

func (d *Dispatcher) AddItem(ctx context.Context, args map[string]any) (Result, error) {
	return d.Call(ctx, OpAddItem, args)
}

func (d *Dispatcher) DeleteSession(ctx context.Context, args map[string]any) (Result, error) {
	return d.Call(ctx, OpDeleteSession, args)
}

func (d *Dispatcher) GetSessions(ctx context.Context) (Result, error) {
	return d.Call(ctx, OpGetSessions, nil)
}

func (d *Dispatcher) FindActiveWork(ctx context.Context) (Result, error) {
	return d.Call(ctx, OpFindActiveWork, nil)
}
