package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTOML(t *testing.T, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "taskr.toml")
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return file
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.DSN != "" {
		t.Fatalf("expected in-memory store by default, got %q", cfg.Store.DSN)
	}
	if cfg.Server.Listen != ":8080" || cfg.Server.BasePath != "/api" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Metrics.Enabled || cfg.Metrics.Listen != ":9090" {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if cfg.Log.Slog.Level != "info" || cfg.Log.Slog.Format != "text" || !cfg.Log.Slog.TimeStamps {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log.Slog)
	}
	if cfg.Log.File.MaxSizeMB != 10 || cfg.Log.File.MaxBackups != 3 || cfg.Log.File.MaxAgeDays != 7 {
		t.Fatalf("unexpected log file defaults: %+v", cfg.Log.File)
	}
}

func TestLoad_Full(t *testing.T) {
	file := writeTOML(t, `
[store]
dsn = "sqlite:///var/lib/taskr/todos.db"

[server]
listen = "127.0.0.1:7000"
base_path = "/v1"

[server.tls]
enabled = true
dir = "/etc/taskr/tls"
auto_generate = true
min_version = "1.3"

[server.tls.auto_gen]
common_name = "taskr.local"
dns_names = ["taskr.local", "localhost"]
valid_days = 30

[metrics]
enabled = true
listen = ":9100"

[log]
level = "debug"
format = "json"
timestamps = false

[log.file]
path = "/var/log/taskr.log"
max_size_mb = 50
compress = true
`)
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.DSN != "sqlite:///var/lib/taskr/todos.db" {
		t.Fatalf("dsn: %q", cfg.Store.DSN)
	}
	if cfg.Server.Listen != "127.0.0.1:7000" || cfg.Server.BasePath != "/v1" {
		t.Fatalf("server: %+v", cfg.Server)
	}
	tls := cfg.Server.TLS
	if !tls.Enabled || !tls.AutoGenerate || tls.Dir != "/etc/taskr/tls" || tls.MinVersion != "1.3" || tls.MaxVersion != "1.3" {
		t.Fatalf("tls: %+v", tls)
	}
	if tls.AutoGen.CommonName != "taskr.local" || len(tls.AutoGen.DNSNames) != 2 || tls.AutoGen.ValidDays != 30 {
		t.Fatalf("tls auto gen: %+v", tls.AutoGen)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != ":9100" {
		t.Fatalf("metrics: %+v", cfg.Metrics)
	}
	if cfg.Log.Slog.Level != "debug" || cfg.Log.Slog.Format != "json" || cfg.Log.Slog.TimeStamps {
		t.Fatalf("log: %+v", cfg.Log.Slog)
	}
	if cfg.Log.File.Path != "/var/log/taskr.log" || cfg.Log.File.MaxSizeMB != 50 || cfg.Log.File.MaxBackups != 3 || !cfg.Log.File.Compress {
		t.Fatalf("log file: %+v", cfg.Log.File)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TASKR_STORE_DSN", "/tmp/todos.json")
	t.Setenv("TASKR_LOG_LEVEL", "warn")
	file := writeTOML(t, `
[store]
dsn = "memory"
`)
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.DSN != "/tmp/todos.json" {
		t.Fatalf("env should override file, got %q", cfg.Store.DSN)
	}
	if cfg.Log.Slog.Level != "warn" {
		t.Fatalf("log level: %q", cfg.Log.Slog.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	cases := []struct {
		name string
		data string
		want string
	}{
		{"broken toml", "[store\ndsn=", "read config"},
		{"half tls pair", "[server.tls]\nenabled = true\ncert_file = \"c.pem\"\n", "must be set together"},
		{"tls without source", "[server.tls]\nenabled = true\n", "neither cert_file/key_file nor dir"},
		{"empty listen", "[server]\nlisten = \"\"\n", "server.listen"},
		{"bad format", "[log]\nformat = \"xml\"\n", "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTOML(t, tc.data))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
