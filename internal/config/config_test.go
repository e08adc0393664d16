package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
database:
  dsn: postgres://mb:mb@db:5432/musicbrainz
  max_conns: 8
  disable_statement_cache: true
source:
  schema: mb
  batch_size: 25
poller:
  interval: 5s
  concurrent: true
  start_from: explicit
  edit_data_start: 1000
  edit_note_start: 2000
state:
  backend: redis
  redis_url: redis://cache:6379/0
metrics:
  push_url: http://pushgateway:9091
notify:
  enabled: true
  project_id: proj
  topic: archive-candidates
logging:
  development: true
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.MaxConns != 8 || !cfg.Database.DisableStatementCache {
		t.Fatalf("expected database overrides to apply: %+v", cfg.Database)
	}
	if cfg.Source.Schema != "mb" || cfg.Source.BatchSize != 25 || cfg.Source.EditDataTable != "edit_data" {
		t.Fatalf("unexpected source config: %+v", cfg.Source)
	}
	if cfg.Poller.Interval != 5*time.Second || !cfg.Poller.Concurrent {
		t.Fatalf("unexpected poller config: %+v", cfg.Poller)
	}
	if cfg.Poller.EditDataStart != 1000 || cfg.Poller.EditNoteStart != 2000 {
		t.Fatalf("expected explicit start watermarks: %+v", cfg.Poller)
	}
	if cfg.State.Backend != StateRedis || cfg.State.Name != "default" {
		t.Fatalf("unexpected state config: %+v", cfg.State)
	}
	if cfg.Metrics.PushURL != "http://pushgateway:9091" || cfg.Metrics.Namespace != "exurl_archiver" {
		t.Fatalf("unexpected metrics config: %+v", cfg.Metrics)
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Setenv("EXURL_DATABASE_DSN", "postgres://localhost/musicbrainz")
	t.Setenv("EXURL_POLLER_INTERVAL", "1m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "postgres://localhost/musicbrainz" {
		t.Fatalf("expected dsn from env, got %q", cfg.Database.DSN)
	}
	if cfg.Poller.Interval != time.Minute {
		t.Fatalf("expected interval from env, got %v", cfg.Poller.Interval)
	}
	if cfg.Database.MaxConns != 5 || cfg.Source.BatchSize != 10 {
		t.Fatalf("expected defaults, got %+v / %+v", cfg.Database, cfg.Source)
	}
	if cfg.Poller.StartFrom != "latest" || cfg.State.Backend != StatePostgres {
		t.Fatalf("unexpected defaults: %+v / %+v", cfg.Poller, cfg.State)
	}
	if cfg.Archive.Table != "external_url_archiver.internet_archive_urls" {
		t.Fatalf("unexpected archive table %q", cfg.Archive.Table)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Database: DatabaseConfig{DSN: "postgres://x", MaxConns: 5},
		Source:   SourceConfig{BatchSize: 10},
		Poller:   PollerConfig{Interval: time.Second, StartFrom: "latest"},
		State:    StateConfig{Backend: StateMemory},
		Server:   ServerConfig{Enabled: true, Addr: ":8080"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"zero conns", func(c *Config) { c.Database.MaxConns = 0 }, "max_conns"},
		{"zero batch", func(c *Config) { c.Source.BatchSize = 0 }, "batch_size"},
		{"zero interval", func(c *Config) { c.Poller.Interval = 0 }, "interval"},
		{"bad start_from", func(c *Config) { c.Poller.StartFrom = "now" }, "start_from"},
		{"negative start", func(c *Config) { c.Poller.EditNoteStart = -1 }, "start watermarks"},
		{"redis without url", func(c *Config) { c.State.Backend = StateRedis }, "redis_url"},
		{"unknown backend", func(c *Config) { c.State.Backend = "etcd" }, "state.backend"},
		{"notify without topic", func(c *Config) { c.Notify.Enabled = true }, "notify"},
		{"server without addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
