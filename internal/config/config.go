// Package config loads, merges and validates codetime settings from the
// configuration file and command-line flags
package config

import (
	"fmt"
	"io"
	"os"
	"time"
)

type (
	// Config holds all configuration settings.
	Config struct {
		User      UserConfig      `mapstructure:"user"`
		Sync      SyncConfig      `mapstructure:"sync"`
		Tracker   TrackerConfig   `mapstructure:"tracker"`
		Control   ControlConfig   `mapstructure:"control"`
		Log       LogConfig       `mapstructure:"log"`
		DevServer DevServerConfig `mapstructure:"dev_server"`
		Display   DisplayConfig   `mapstructure:"display"`
		CLI       CLIConfig       `mapstructure:"-"`
	}

	// UserConfig holds the identity used when syncing.
	UserConfig struct {
		Username string `mapstructure:"username"`
	}

	// SyncConfig holds settings for the remote aggregator.
	SyncConfig struct {
		Endpoint string        `mapstructure:"endpoint"`
		APIKey   string        `mapstructure:"api_key"`
		Source   string        `mapstructure:"source"`
		Interval time.Duration `mapstructure:"interval"`
		Timeout  time.Duration `mapstructure:"timeout"`
	}

	// TrackerConfig holds heartbeat settings.
	TrackerConfig struct {
		Workspace    string        `mapstructure:"workspace"`
		TickInterval time.Duration `mapstructure:"tick_interval"`
	}

	// ControlConfig holds settings for the local control API.
	ControlConfig struct {
		Listen string `mapstructure:"listen"`
	}

	// LogConfig holds logging settings.
	LogConfig struct {
		Level      string `mapstructure:"level"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
	}

	// DevServerConfig holds settings for the development aggregator.
	DevServerConfig struct {
		Listen string `mapstructure:"listen"`
		DBPath string `mapstructure:"db_path"`
		APIKey string `mapstructure:"api_key"`
	}

	// DisplayConfig holds display-related settings.
	DisplayConfig struct {
		DarkTheme bool `mapstructure:"dark_theme"`
	}

	// CLIConfig holds values that only come from the command line.
	CLIConfig struct {
		ConfigPath string
		Debug      bool
		NoColor    bool
	}

	// Option is a function that modifies Config.
	Option func(*Config) error
)

const Version = "v0.3.0"

var (
	Stdin  io.Reader = os.Stdin
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// New creates a new Config and applies options in order.
func New(opts ...Option) (*Config, error) {
	cfg := &Config{}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errConfigOption.Wrap(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errConfigValidation.Wrap(err)
	}

	return cfg, nil
}

// Workspace returns the configured workspace, falling back to the current
// working directory.
func (c *Config) Workspace() string {
	if c.Tracker.Workspace != "" {
		return c.Tracker.Workspace
	}

	wd, err := os.Getwd()
	if err != nil {
		return "default"
	}

	return wd
}

// String is used in debug logs. The API keys are redacted.
func (c *Config) String() string {
	return fmt.Sprintf(
		"user=%q endpoint=%q interval=%s tick=%s workspace=%q listen=%q",
		c.User.Username,
		c.Sync.Endpoint,
		c.Sync.Interval,
		c.Tracker.TickInterval,
		c.Tracker.Workspace,
		c.Control.Listen,
	)
}
