package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/stagehand/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "15m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "stagehand"
user = "stagehand"
password = "stagehand"
ssl_mode = "disable"
max_open_conns = 25
max_idle_conns = 5
conn_max_lifetime = "15m"
conn_timeout = "5s"

[storage]
container_name = "mail"
connection_string = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

[api]
base_path = "/api"
max_body_size = "2MB"

[api.cors]
enabled = false

[api.pagination]
default_page_size = 25
max_page_size = 50

[automation]
max_attempts = 5
retry_delay = "20ms"

[scheduler]
enabled = true
interval = "10m"
concurrency = 2

[notify]
from = "admissions@example.edu"
outbox_prefix = "pending"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[scheduler]
enabled = false
`

// minimalConfig provides the minimum fields required for validation to
// pass (db name, db user, storage connection string).
const minimalConfig = `
[database]
name = "stagehand"
user = "stagehand"

[storage]
connection_string = "conn"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func loadFrom(t *testing.T, files map[string]string) (*config.Config, error) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeConfig(t, dir, name, content)
	}
	chdir(t, dir)
	return config.Load()
}

func TestLoad(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{"config.toml": baseConfig})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host: got %s, want localhost", cfg.Database.Host)
	}
	if cfg.Storage.ContainerName != "mail" {
		t.Errorf("storage container: got %s, want mail", cfg.Storage.ContainerName)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 || cfg.API.Pagination.MaxPageSize != 50 {
		t.Errorf("pagination: got %+v", cfg.API.Pagination)
	}
	if got := cfg.API.MaxBodySizeBytes(); got != 2*1024*1024 {
		t.Errorf("max body size: got %d", got)
	}
	if cfg.Automation.MaxAttempts != 5 || cfg.Automation.RetryDelayDuration() != 20*time.Millisecond {
		t.Errorf("automation: got %+v", cfg.Automation)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.IntervalDuration() != 10*time.Minute || cfg.Scheduler.Concurrency != 2 {
		t.Errorf("scheduler: got %+v", cfg.Scheduler)
	}
	if cfg.Notify.From != "admissions@example.edu" || cfg.Notify.OutboxPrefix != "pending" {
		t.Errorf("notify: got %+v", cfg.Notify)
	}
}

func TestLoadWithOverlay(t *testing.T) {
	t.Setenv("STAGEHAND_ENV", "staging")

	cfg, err := loadFrom(t, map[string]string{
		"config.toml":         baseConfig,
		"config.staging.toml": overlayConfig,
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432 (from base)", cfg.Database.Port)
	}
	if cfg.Scheduler.Enabled {
		t.Error("scheduler enabled: overlay should disable it")
	}
	if cfg.Scheduler.Interval != "10m" {
		t.Errorf("scheduler interval: got %s, want 10m (from base)", cfg.Scheduler.Interval)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	t.Setenv("STAGEHAND_VERSION", "2.0.0")
	t.Setenv("STAGEHAND_SERVER_PORT", "3000")
	t.Setenv("STAGEHAND_API_MAX_BODY_SIZE", "512KB")
	t.Setenv("STAGEHAND_AUTOMATION_MAX_ATTEMPTS", "7")
	t.Setenv("STAGEHAND_SCHEDULER_INTERVAL", "1h")
	t.Setenv("STAGEHAND_NOTIFY_FROM", "ops@example.edu")

	cfg, err := loadFrom(t, map[string]string{"config.toml": baseConfig})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if got := cfg.API.MaxBodySizeBytes(); got != 512*1024 {
		t.Errorf("max body size: got %d, want %d", got, 512*1024)
	}
	if cfg.Automation.MaxAttempts != 7 {
		t.Errorf("max attempts: got %d, want 7", cfg.Automation.MaxAttempts)
	}
	if cfg.Scheduler.IntervalDuration() != time.Hour {
		t.Errorf("scheduler interval: got %s, want 1h", cfg.Scheduler.Interval)
	}
	if cfg.Notify.From != "ops@example.edu" {
		t.Errorf("notify from: got %s", cfg.Notify.From)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Setenv("STAGEHAND_DB_NAME", "testdb")
	t.Setenv("STAGEHAND_DB_USER", "testuser")
	t.Setenv("STAGEHAND_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := loadFrom(t, nil)
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("db name from env: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.Storage.ConnectionString != "conn" {
		t.Errorf("storage conn from env: got %s, want conn", cfg.Storage.ConnectionString)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{"config.toml": minimalConfig})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Env() != "local" {
		t.Errorf("env: got %s, want local", cfg.Env())
	}
	if d := cfg.ShutdownTimeoutDuration(); d != 30*time.Second {
		t.Errorf("shutdown timeout: got %v, want 30s", d)
	}
	if addr := cfg.Server.Addr(); addr != "0.0.0.0:8080" {
		t.Errorf("addr: got %s, want 0.0.0.0:8080", addr)
	}
	if cfg.API.Pagination.DefaultPageSize != 20 || cfg.API.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination: got %+v", cfg.API.Pagination)
	}
	if got := cfg.API.MaxBodySizeBytes(); got != 1024*1024 {
		t.Errorf("max body size: got %d, want 1MB", got)
	}
	if cfg.Automation.MaxAttempts != 3 {
		t.Errorf("max attempts: got %d, want 3", cfg.Automation.MaxAttempts)
	}
	if cfg.Scheduler.Enabled || cfg.Scheduler.Concurrency != 4 {
		t.Errorf("scheduler: got %+v", cfg.Scheduler)
	}
	if cfg.Notify.OutboxPrefix != "outbox" {
		t.Errorf("outbox prefix: got %s", cfg.Notify.OutboxPrefix)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	_, err := loadFrom(t, map[string]string{"config.toml": `version = `})
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{"invalid port", "[server]\nport = 99999\n", "invalid port"},
		{"invalid read_timeout", "[server]\nread_timeout = \"bad\"\n", "invalid read_timeout"},
		{"invalid body size", "[api]\nmax_body_size = \"lots\"\n", "invalid max_body_size"},
		{"invalid attempts", "[automation]\nmax_attempts = -1\n", "max_attempts"},
		{"invalid interval", "[scheduler]\ninterval = \"often\"\n", "invalid interval"},
		{"invalid sender", "[notify]\nfrom = \"not an address\"\n", "invalid from address"},
		{"missing template dir", "[notify]\ntemplate_dir = \"/nonexistent/templates\"\n", "template_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFrom(t, map[string]string{"config.toml": minimalConfig + tt.extra})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
