package config

import (
	"net/url"
	"slices"
	"strings"
	"time"
)

var (
	minTickInterval = 100 * time.Millisecond
	maxTickInterval = time.Minute

	minSyncInterval = time.Minute

	logLevels = []string{"debug", "info", "warn", "error"}
)

// Validate performs validation checks on the Config struct and its fields.
func (c *Config) Validate() error {
	if err := c.validateTracker(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return errInvalidLogLevel.Fmt(c.Log.Level)
	}

	if strings.TrimSpace(c.Control.Listen) == "" {
		return errEmptyListen.Fmt("control")
	}

	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.TickInterval < minTickInterval ||
		c.Tracker.TickInterval > maxTickInterval {
		return errInvalidTickInterval.Fmt(minTickInterval, maxTickInterval)
	}

	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Interval < minSyncInterval {
		return errInvalidSyncInterval.Fmt(c.Sync.Interval, minSyncInterval)
	}

	if c.Sync.Timeout <= 0 {
		return errInvalidTimeout
	}

	u, err := url.Parse(c.Sync.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errInvalidEndpoint.Fmt(c.Sync.Endpoint)
	}

	return nil
}
