package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/taskr"
	"github.com/loykin/taskr/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := buildRoot()
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath  string
	StorageFile string
	LogLevel    string
	APIUrl      string
	APITimeout  time.Duration
	Insecure    bool
	JSON        bool
}

// app carries what PersistentPreRunE resolved for the running command.
type app struct {
	flags  *GlobalFlags
	cfg    *taskr.Config
	logger *slog.Logger
	closer io.Closer
}

func buildRoot() *cobra.Command {
	a := &app{flags: &GlobalFlags{}}
	root := createRootCommand(a)
	c := &command{app: a}
	root.AddCommand(
		createServeCommand(a),
		createMCPCommand(a),
		createReadCommand(c),
		createWriteCommand(c),
		createStatusCommand(c),
		createAddCommand(c),
		createDeleteCommand(c),
		createSessionsCommand(c),
		createContinueCommand(c),
	)
	return root
}

// createRootCommand creates the root command with the persistent flags
func createRootCommand(a *app) *cobra.Command {
	flags := a.flags
	root := &cobra.Command{
		Use:   "taskr",
		Short: "Session-scoped task lists for agents and humans",
		Long: `Taskr keeps independent todo lists per session, persisted to a JSON file,
SQLite or PostgreSQL, and serves them over HTTP, MCP (stdio) or this CLI.

Examples:
  taskr write my-project todos.json
  taskr add my-project "write tests" --priority=high
  taskr read my-project --status=pending
  taskr continue
  taskr serve --listen=:8080
  taskr read my-project --api-url=http://remote:8080/api   # remote`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closer != nil {
				_ = a.closer.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	pf.StringVar(&flags.StorageFile, "storage-file", "", "storage location: JSON file path, sqlite://path or postgres:// DSN (overrides [store].dsn)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.APIUrl, "api-url", "", "talk to a running taskr server instead of opening the store")
	pf.DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "timeout for remote API calls")
	pf.BoolVar(&flags.Insecure, "insecure", false, "skip TLS verification for --api-url")
	pf.BoolVar(&flags.JSON, "json", false, "print raw JSON payloads")
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := taskr.LoadConfig(a.flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cmd.Flags().Changed("storage-file") {
		cfg.Store.DSN = a.flags.StorageFile
	}
	if a.flags.LogLevel != "" {
		cfg.Log.Slog.Level = a.flags.LogLevel
	}
	a.cfg = cfg
	a.logger, a.closer = logger.NewSlogger(cfg.Log, cmd.ErrOrStderr())
	return nil
}
