package main

import (
	"context"
	"strings"

	"github.com/loykin/taskr"
	"github.com/loykin/taskr/pkg/client"
)

// runner executes an operation either against a locally opened store or a
// remote server. Both return the same payload shape.
type runner interface {
	call(ctx context.Context, op string, args map[string]any) (map[string]any, error)
	close() error
}

type localRunner struct {
	store *taskr.Store
	d     *taskr.Dispatcher
}

func openLocal(ctx context.Context, a *app) (*localRunner, error) {
	s, err := taskr.Open(ctx, a.cfg.Store.DSN, a.logger)
	if err != nil {
		return nil, err
	}
	return &localRunner{store: s, d: taskr.New(s, a.logger)}, nil
}

func (r *localRunner) call(ctx context.Context, op string, args map[string]any) (map[string]any, error) {
	return r.d.Call(ctx, op, args)
}

func (r *localRunner) close() error { return r.store.Close() }

type remoteRunner struct {
	c *client.Client
}

func newRemote(a *app) *remoteRunner {
	return &remoteRunner{c: client.New(client.Config{
		BaseURL:  a.flags.APIUrl,
		Timeout:  a.flags.APITimeout,
		Logger:   a.logger,
		Insecure: a.flags.Insecure,
	})}
}

func (r *remoteRunner) call(ctx context.Context, op string, args map[string]any) (map[string]any, error) {
	sid, _ := args["session_id"].(string)
	str := func(k string) string { s, _ := args[k].(string); return s }
	var (
		p   client.Payload
		err error
	)
	switch op {
	case taskr.OpRead:
		stats, _ := args["include_stats"].(bool)
		p, err = r.c.Read(ctx, sid, client.ReadQuery{
			Status:       str("status_filter"),
			Priority:     str("priority_filter"),
			IncludeStats: stats,
		})
	case taskr.OpUpdateStatus:
		p, err = r.c.UpdateStatus(ctx, sid, str("todo_id"), str("new_status"))
	case taskr.OpAddItem:
		p, err = r.c.Add(ctx, sid, client.AddRequest{
			Content:  str("content"),
			Priority: str("priority"),
			Status:   str("status"),
			ID:       str("todo_id"),
		})
	case taskr.OpDeleteSession:
		p, err = r.c.Delete(ctx, sid)
	case taskr.OpGetSessions:
		p, err = r.c.Sessions(ctx)
	case taskr.OpFindActiveWork:
		p, err = r.c.Active(ctx)
	default:
		// write keeps raw records (numeric ids, extra fields) intact
		p, err = r.c.Tool(ctx, strings.TrimPrefix(op, "todo_"), args)
	}
	return p, err
}

func (r *remoteRunner) close() error { return nil }
