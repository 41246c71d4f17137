package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoisaiah/codetime/internal/config"
)

// defaultConfig returns a new Config instance with default values.
func defaultConfig(configPath string) *config.Config {
	return &config.Config{
		Sync: config.SyncConfig{
			Endpoint: "http://127.0.0.1:8787/functions/v1/pushToDb",
			Source:   "vscode",
			Interval: 14 * time.Minute,
			Timeout:  30 * time.Second,
		},
		Tracker: config.TrackerConfig{
			TickInterval: time.Second,
		},
		Control: config.ControlConfig{
			Listen: "127.0.0.1:7878",
		},
		Log: config.LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
		DevServer: config.DevServerConfig{
			Listen: "127.0.0.1:8787",
		},
		Display: config.DisplayConfig{
			DarkTheme: true,
		},
		CLI: config.CLIConfig{
			ConfigPath: configPath,
		},
	}
}

func TestViperWriteConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	cfg, err := config.New(
		config.WithViperConfig(configPath),
	)
	require.NoError(t, err)

	assert.Equal(t, defaultConfig(configPath), cfg)

	_, err = os.Stat(configPath)
	require.NoError(t, err, "default config should be written on first run")

	// reading the written file back yields the same values
	again, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestViperReadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	modified := `user:
  username: ada
sync:
  endpoint: https://example.com/functions/v1/pushToDb
  api_key: secret
  interval: 20m
tracker:
  tick_interval: 2s
  workspace: /src/project
`

	require.NoError(t, os.WriteFile(configPath, []byte(modified), 0o600))

	cfg, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	want := defaultConfig(configPath)
	want.User.Username = "ada"
	want.Sync.Endpoint = "https://example.com/functions/v1/pushToDb"
	want.Sync.APIKey = "secret"
	want.Sync.Interval = 20 * time.Minute
	want.Tracker.TickInterval = 2 * time.Second
	want.Tracker.Workspace = "/src/project"

	assert.Equal(t, want, cfg)
	assert.Equal(t, "/src/project", cfg.Workspace())
}

func TestEnvironmentOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	t.Setenv("CODETIME_SYNC_API_KEY", "from-env")

	cfg, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Sync.APIKey)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		Name   string
		Modify func(c *config.Config)
		Err    bool
	}{
		{
			Name:   "defaults are valid",
			Modify: func(_ *config.Config) {},
		},
		{
			Name:   "tick interval too short",
			Modify: func(c *config.Config) { c.Tracker.TickInterval = time.Millisecond },
			Err:    true,
		},
		{
			Name:   "sync interval too short",
			Modify: func(c *config.Config) { c.Sync.Interval = 10 * time.Second },
			Err:    true,
		},
		{
			Name:   "endpoint without scheme",
			Modify: func(c *config.Config) { c.Sync.Endpoint = "example.com/push" },
			Err:    true,
		},
		{
			Name:   "unknown log level",
			Modify: func(c *config.Config) { c.Log.Level = "verbose" },
			Err:    true,
		},
		{
			Name:   "empty control listen address",
			Modify: func(c *config.Config) { c.Control.Listen = " " },
			Err:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			cfg := defaultConfig("")
			tc.Modify(cfg)

			err := cfg.Validate()
			if tc.Err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "ada", config.NormalizeUsername("ada@example.com"))
	assert.Equal(t, "grace", config.NormalizeUsername("  grace "))
	assert.Equal(t, "@handle", config.NormalizeUsername("@handle"))
}
