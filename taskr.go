package taskr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/taskr/internal/config"
	"github.com/loykin/taskr/internal/mcpserver"
	"github.com/loykin/taskr/internal/metrics"
	"github.com/loykin/taskr/internal/ops"
	iapi "github.com/loykin/taskr/internal/server"
	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/store/factory"
	"github.com/loykin/taskr/internal/todo"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Record = todo.Record

type Status = todo.Status

type Priority = todo.Priority

type Config = cfg.Config

type Store = store.Store

type StoreStats = store.Stats

// Dispatcher runs operations by name; see the Op constants.
type Dispatcher = ops.Dispatcher

// Result is an operation payload.
type Result = ops.Result

const (
	OpRead           = ops.OpRead
	OpWrite          = ops.OpWrite
	OpUpdateStatus   = ops.OpUpdateStatus
	OpAddItem        = ops.OpAddItem
	OpDeleteSession  = ops.OpDeleteSession
	OpGetSessions    = ops.OpGetSessions
	OpFindActiveWork = ops.OpFindActiveWork
)

// Open creates a store backed by dsn ("" keeps everything in memory) and
// loads whatever the backend already holds.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	p, err := factory.NewFromDSN(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", factory.Redacted(dsn), err)
	}
	opts := []store.Option{}
	if p != nil {
		opts = append(opts, store.WithPersister(p))
	}
	if logger != nil {
		opts = append(opts, store.WithLogger(logger))
	}
	return store.Open(ctx, opts...), nil
}

// New returns a dispatcher over s.
func New(s *Store, logger *slog.Logger) *Dispatcher { return ops.New(s, logger) }

// LoadConfig reads path (optional) plus TASKR_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	c, err := cfg.Load(path)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// NewHTTPServer builds the REST server for c. Run it with ServeHTTP.
func NewHTTPServer(c cfg.ServerConfig, d *Dispatcher, logger *slog.Logger) (*http.Server, error) {
	return iapi.NewServer(c, d, logger)
}

// ServeHTTP runs srv until ctx is cancelled.
func ServeHTTP(ctx context.Context, srv *http.Server) error { return iapi.Serve(ctx, srv) }

// NewMCPServer exposes d as MCP tools.
func NewMCPServer(d *Dispatcher, version string, logger *slog.Logger) *mcpserver.Server {
	return mcpserver.New(d, version, logger)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// NewMetricsServer returns a server exposing /metrics from the default registry.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
