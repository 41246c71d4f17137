package config

import (
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// CLIOptions represents command-line configuration options.
type CLIOptions struct {
	Username     string
	Endpoint     string
	Workspace    string
	Listen       string
	SyncInterval string
	TickInterval string
	Debug        bool
	NoColor      bool
}

// WithCLIConfig returns an Option that loads configuration from CLI flags.
func WithCLIConfig(ctx *cli.Context) Option {
	return func(c *Config) error {
		opts := CLIOptions{
			Username:     ctx.String("username"),
			Endpoint:     ctx.String("endpoint"),
			Workspace:    ctx.String("workspace"),
			Listen:       ctx.String("listen"),
			SyncInterval: ctx.String("sync-interval"),
			TickInterval: ctx.String("tick-interval"),
			Debug:        ctx.Bool("debug"),
			NoColor:      ctx.Bool("no-color"),
		}

		return applyCLIOptions(c, opts)
	}
}

// applyCLIOptions applies CLI options to the config. Empty values leave the
// file configuration untouched.
func applyCLIOptions(c *Config, opts CLIOptions) error {
	if opts.Username != "" {
		c.User.Username = NormalizeUsername(opts.Username)
	}

	if opts.Endpoint != "" {
		c.Sync.Endpoint = opts.Endpoint
	}

	if opts.Workspace != "" {
		c.Tracker.Workspace = opts.Workspace
	}

	if opts.Listen != "" {
		c.Control.Listen = opts.Listen
	}

	if err := applyCLIDurations(c, opts); err != nil {
		return err
	}

	c.CLI.Debug = opts.Debug
	c.CLI.NoColor = opts.NoColor

	if opts.Debug {
		c.Log.Level = "debug"
	}

	return nil
}

// applyCLIDurations handles parsing and applying duration settings from CLI.
func applyCLIDurations(c *Config, opts CLIOptions) error {
	if opts.SyncInterval != "" {
		dur, err := time.ParseDuration(opts.SyncInterval)
		if err != nil {
			return errInvalidDuration.Fmt("sync-interval", opts.SyncInterval).Wrap(err)
		}

		c.Sync.Interval = dur
	}

	if opts.TickInterval != "" {
		dur, err := time.ParseDuration(opts.TickInterval)
		if err != nil {
			return errInvalidDuration.Fmt("tick-interval", opts.TickInterval).Wrap(err)
		}

		c.Tracker.TickInterval = dur
	}

	return nil
}

// NormalizeUsername turns an account label into a username. Email-style
// labels keep only the part before the "@".
func NormalizeUsername(label string) string {
	label = strings.TrimSpace(label)

	if i := strings.Index(label, "@"); i > 0 {
		return label[:i]
	}

	return label
}
