package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/taskr"
	itls "github.com/loykin/taskr/internal/tls"
)

func createServeCommand(a *app) *cobra.Command {
	f := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task lists over HTTP",
		Long: `Start the HTTP API. Settings come from the [server], [store] and [metrics]
sections of the config file; flags override them.

Examples:
  taskr serve --storage-file=~/.taskr/todos.json
  taskr serve --listen=127.0.0.1:8443 --tls-dir=./certs    # self-signed TLS
  taskr serve --metrics-listen=:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a, f)
		},
	}
	cmd.Flags().StringVar(&f.Listen, "listen", "", "HTTP listen address (overrides [server].listen)")
	cmd.Flags().StringVar(&f.BasePath, "base-path", "", "route prefix (overrides [server].base_path)")
	cmd.Flags().StringVar(&f.TLSDir, "tls-dir", "", "serve TLS with a self-signed certificate kept in this directory")
	cmd.Flags().StringVar(&f.MetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	return cmd
}

func runServe(ctx context.Context, a *app, f *ServeFlags) error {
	cfg := a.cfg
	if f.Listen != "" {
		cfg.Server.Listen = f.Listen
	}
	if f.BasePath != "" {
		cfg.Server.BasePath = f.BasePath
	}
	if f.TLSDir != "" {
		cfg.Server.TLS = itls.SelfSigned(f.TLSDir)
	}
	if f.MetricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = f.MetricsListen
	}

	if cfg.Metrics.Enabled {
		if err := taskr.RegisterMetricsDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		msrv := taskr.NewMetricsServer(cfg.Metrics.Listen)
		go func() {
			a.logger.Info("metrics listening", "addr", cfg.Metrics.Listen)
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = msrv.Shutdown(sctx)
		}()
	}

	s, err := taskr.Open(ctx, cfg.Store.DSN, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	srv, err := taskr.NewHTTPServer(cfg.Server, taskr.New(s, a.logger), a.logger)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.logger.Info("taskr listening",
		"addr", cfg.Server.Listen,
		"base_path", cfg.Server.BasePath,
		"tls", srv.TLSConfig != nil,
		"persistent", s.Persistent(),
	)
	return taskr.ServeHTTP(ctx, srv)
}

func createMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task lists as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout for agent clients. Logs go to stderr or the
configured log file, never to stdout.

Example client entry:
  {"command": "taskr", "args": ["mcp", "--storage-file", "~/.taskr/todos.json"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := taskr.Open(cmd.Context(), a.cfg.Store.DSN, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			m := taskr.NewMCPServer(taskr.New(s, a.logger), version, a.logger)
			return m.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
