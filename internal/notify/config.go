package notify

import (
	"fmt"
	"net/mail"
	"os"
	"strings"
)

// Config holds the sender identity, template location and outbox layout
// for rendered notifications.
type Config struct {
	From         string `toml:"from"`
	TemplateDir  string `toml:"template_dir"`
	OutboxPrefix string `toml:"outbox_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	From         string
	TemplateDir  string
	OutboxPrefix string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.From != "" {
		c.From = overlay.From
	}
	if overlay.TemplateDir != "" {
		c.TemplateDir = overlay.TemplateDir
	}
	if overlay.OutboxPrefix != "" {
		c.OutboxPrefix = overlay.OutboxPrefix
	}
}

func (c *Config) loadDefaults() {
	if c.From == "" {
		c.From = "noreply@stagehand.local"
	}
	if c.OutboxPrefix == "" {
		c.OutboxPrefix = "outbox"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.From != "" {
		if v := os.Getenv(env.From); v != "" {
			c.From = v
		}
	}
	if env.TemplateDir != "" {
		if v := os.Getenv(env.TemplateDir); v != "" {
			c.TemplateDir = v
		}
	}
	if env.OutboxPrefix != "" {
		if v := os.Getenv(env.OutboxPrefix); v != "" {
			c.OutboxPrefix = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := mail.ParseAddress(c.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	c.OutboxPrefix = strings.Trim(c.OutboxPrefix, "/")
	if c.OutboxPrefix == "" || strings.Contains(c.OutboxPrefix, "..") {
		return fmt.Errorf("invalid outbox_prefix %q", c.OutboxPrefix)
	}
	if c.TemplateDir != "" {
		info, err := os.Stat(c.TemplateDir)
		if err != nil {
			return fmt.Errorf("template_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("template_dir %s is not a directory", c.TemplateDir)
		}
	}
	return nil
}
