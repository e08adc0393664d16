// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Poller   PollerConfig   `mapstructure:"poller"`
	State    StateConfig    `mapstructure:"state"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig controls the Postgres connection pool.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// DisableStatementCache is required behind transaction-pooling pgbouncer.
	DisableStatementCache bool `mapstructure:"disable_statement_cache"`
	AutoMigrate           bool `mapstructure:"auto_migrate"`
}

// SourceConfig names the change-log tables.
type SourceConfig struct {
	Schema        string `mapstructure:"schema"`
	EditDataTable string `mapstructure:"edit_data_table"`
	EditNoteTable string `mapstructure:"edit_note_table"`
	BatchSize     int    `mapstructure:"batch_size"`
}

// ArchiveConfig names the candidate table.
type ArchiveConfig struct {
	Table string `mapstructure:"table"`
}

// PollerConfig controls cycle scheduling.
type PollerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	Concurrent    bool          `mapstructure:"concurrent"`
	StartFrom     string        `mapstructure:"start_from"`
	EditDataStart int64         `mapstructure:"edit_data_start"`
	EditNoteStart int64         `mapstructure:"edit_note_start"`
}

// StateConfig selects where watermarks are persisted.
type StateConfig struct {
	Backend  string `mapstructure:"backend"`
	Table    string `mapstructure:"table"`
	Name     string `mapstructure:"name"`
	RedisURL string `mapstructure:"redis_url"`
}

// MetricsConfig configures the Prometheus registry and Pushgateway.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	PushURL   string `mapstructure:"push_url"`
	Job       string `mapstructure:"job"`
}

// NotifyConfig enables Pub/Sub announcements of new candidates.
type NotifyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the operator HTTP server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// State backends.
const (
	StatePostgres = "postgres"
	StateRedis    = "redis"
	StateMemory   = "memory"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXURL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default so AutomaticEnv can override it.
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.disable_statement_cache", false)
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("source.schema", "musicbrainz")
	v.SetDefault("source.edit_data_table", "edit_data")
	v.SetDefault("source.edit_note_table", "edit_note")
	v.SetDefault("source.batch_size", 10)
	v.SetDefault("archive.table", "external_url_archiver.internet_archive_urls")
	v.SetDefault("poller.interval", 30*time.Second)
	v.SetDefault("poller.concurrent", false)
	v.SetDefault("poller.start_from", "latest")
	v.SetDefault("poller.edit_data_start", 0)
	v.SetDefault("poller.edit_note_start", 0)
	v.SetDefault("state.backend", StatePostgres)
	v.SetDefault("state.table", "external_url_archiver.poller_state")
	v.SetDefault("state.name", "default")
	v.SetDefault("state.redis_url", "")
	v.SetDefault("metrics.namespace", "exurl_archiver")
	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "exurl_archiver")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("database.max_conns must be > 0")
	}
	if c.Source.BatchSize <= 0 {
		return fmt.Errorf("source.batch_size must be > 0")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be > 0")
	}
	switch c.Poller.StartFrom {
	case "latest", "explicit":
	default:
		return fmt.Errorf("poller.start_from must be latest or explicit, got %q", c.Poller.StartFrom)
	}
	if c.Poller.EditDataStart < 0 || c.Poller.EditNoteStart < 0 {
		return fmt.Errorf("poller start watermarks must be >= 0")
	}
	switch c.State.Backend {
	case StatePostgres, StateMemory:
	case StateRedis:
		if c.State.RedisURL == "" {
			return fmt.Errorf("state.redis_url must be set when state.backend is redis")
		}
	default:
		return fmt.Errorf("state.backend must be postgres, redis or memory, got %q", c.State.Backend)
	}
	if c.Notify.Enabled && (c.Notify.ProjectID == "" || c.Notify.Topic == "") {
		return fmt.Errorf("notify.project_id and notify.topic must be set when notify is enabled")
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set when the server is enabled")
	}
	return nil
}
