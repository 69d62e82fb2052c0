// Package config loads the service configuration from config.toml, an
// optional per-environment overlay, and STAGEHAND_ environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/stagehand/internal/automation"
	"github.com/JaimeStill/stagehand/internal/notify"
	"github.com/JaimeStill/stagehand/internal/scheduler"
	"github.com/JaimeStill/stagehand/pkg/database"
	"github.com/JaimeStill/stagehand/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvStagehandEnv             = "STAGEHAND_ENV"
	EnvStagehandShutdownTimeout = "STAGEHAND_SHUTDOWN_TIMEOUT"
	EnvStagehandVersion         = "STAGEHAND_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "STAGEHAND_DB_HOST",
	Port:            "STAGEHAND_DB_PORT",
	Name:            "STAGEHAND_DB_NAME",
	User:            "STAGEHAND_DB_USER",
	Password:        "STAGEHAND_DB_PASSWORD",
	SSLMode:         "STAGEHAND_DB_SSL_MODE",
	MaxOpenConns:    "STAGEHAND_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "STAGEHAND_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "STAGEHAND_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "STAGEHAND_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "STAGEHAND_STORAGE_CONTAINER_NAME",
	ConnectionString: "STAGEHAND_STORAGE_CONNECTION_STRING",
	ServiceURL:       "STAGEHAND_STORAGE_SERVICE_URL",
	MaxListSize:      "STAGEHAND_STORAGE_MAX_LIST_SIZE",
}

var automationEnv = &automation.Env{
	MaxAttempts: "STAGEHAND_AUTOMATION_MAX_ATTEMPTS",
	RetryDelay:  "STAGEHAND_AUTOMATION_RETRY_DELAY",
}

var schedulerEnv = &scheduler.Env{
	Enabled:     "STAGEHAND_SCHEDULER_ENABLED",
	Interval:    "STAGEHAND_SCHEDULER_INTERVAL",
	Concurrency: "STAGEHAND_SCHEDULER_CONCURRENCY",
}

var notifyEnv = &notify.Env{
	From:         "STAGEHAND_NOTIFY_FROM",
	TemplateDir:  "STAGEHAND_NOTIFY_TEMPLATE_DIR",
	OutboxPrefix: "STAGEHAND_NOTIFY_OUTBOX_PREFIX",
}

// Config is the root configuration for the Stagehand service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Automation      automation.Config `toml:"automation"`
	Scheduler       scheduler.Config  `toml:"scheduler"`
	Notify          notify.Config     `toml:"notify"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the STAGEHAND_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvStagehandEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Automation.Merge(&overlay.Automation)
	c.Scheduler.Merge(&overlay.Scheduler)
	c.Notify.Merge(&overlay.Notify)
}

// Finalize applies defaults, environment overrides and validation to every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Automation.Finalize(automationEnv); err != nil {
		return fmt.Errorf("automation: %w", err)
	}
	if err := c.Scheduler.Finalize(schedulerEnv); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Notify.Finalize(notifyEnv); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvStagehandShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvStagehandVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvStagehandEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
