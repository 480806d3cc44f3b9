package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/taskr/internal/logger"
)

// EnvPrefix prefixes environment overrides: TASKR_STORE_DSN, TASKR_LOG_LEVEL, ...
const EnvPrefix = "TASKR"

// Config represents the top-level TOML structure.
type Config struct {
	Store   StoreConfig   `toml:"store" mapstructure:"store"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	Log     logger.Config `toml:"log" mapstructure:"log"`
}

// StoreConfig selects the persistence backend. An empty DSN keeps sessions in
// memory only.
type StoreConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type ServerConfig struct {
	Listen   string    `toml:"listen" mapstructure:"listen"`
	BasePath string    `toml:"base_path" mapstructure:"base_path"`
	TLS      TLSConfig `toml:"tls" mapstructure:"tls"`
}

// TLSConfig configures HTTPS. CertFile/KeyFile win over Dir; with
// AutoGenerate a self-signed pair is created in Dir when missing.
type TLSConfig struct {
	Enabled      bool       `toml:"enabled" mapstructure:"enabled"`
	CertFile     string     `toml:"cert_file" mapstructure:"cert_file"`
	KeyFile      string     `toml:"key_file" mapstructure:"key_file"`
	Dir          string     `toml:"dir" mapstructure:"dir"`
	AutoGenerate bool       `toml:"auto_generate" mapstructure:"auto_generate"`
	MinVersion   string     `toml:"min_version" mapstructure:"min_version"`
	MaxVersion   string     `toml:"max_version" mapstructure:"max_version"`
	AutoGen      AutoGenTLS `toml:"auto_gen" mapstructure:"auto_gen"`
}

type AutoGenTLS struct {
	CommonName   string   `toml:"common_name" mapstructure:"common_name"`
	Organization string   `toml:"organization" mapstructure:"organization"`
	DNSNames     []string `toml:"dns_names" mapstructure:"dns_names"`
	IPAddresses  []string `toml:"ip_addresses" mapstructure:"ip_addresses"`
	ValidDays    int      `toml:"valid_days" mapstructure:"valid_days"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.dsn", "")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")
	v.SetDefault("server.tls.dir", "")
	v.SetDefault("server.tls.auto_generate", false)
	v.SetDefault("server.tls.min_version", "1.2")
	v.SetDefault("server.tls.max_version", "1.3")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", false)
	v.SetDefault("log.timestamps", true)
	v.SetDefault("log.source", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.file.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.file.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.file.compress", false)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Default returns the built-in configuration with environment overrides applied.
func Default() Config {
	var cfg Config
	_ = newViper().Unmarshal(&cfg)
	return cfg
}

// Load reads a TOML file (optional: an empty path uses defaults only) and
// applies TASKR_* environment overrides.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks combinations viper cannot express.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("server.listen must not be empty")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Listen) == "" {
		return errors.New("metrics.listen must be set when metrics are enabled")
	}
	t := c.Server.TLS
	if t.Enabled {
		if (t.CertFile == "") != (t.KeyFile == "") {
			return errors.New("server.tls: cert_file and key_file must be set together")
		}
		if t.CertFile == "" && t.Dir == "" {
			return errors.New("server.tls: enabled but neither cert_file/key_file nor dir is set")
		}
	}
	switch strings.ToLower(c.Log.Slog.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Slog.Format)
	}
	return nil
}
