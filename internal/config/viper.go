package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CODETIME"

const (
	keyUsername        = "user.username"
	keySyncEndpoint    = "sync.endpoint"
	keySyncAPIKey      = "sync.api_key"
	keySyncSource      = "sync.source"
	keySyncInterval    = "sync.interval"
	keySyncTimeout     = "sync.timeout"
	keyTickInterval    = "tracker.tick_interval"
	keyWorkspace       = "tracker.workspace"
	keyControlListen   = "control.listen"
	keyLogLevel        = "log.level"
	keyLogMaxSize      = "log.max_size"
	keyLogMaxBackups   = "log.max_backups"
	keyLogMaxAge       = "log.max_age"
	keyDevServerListen = "dev_server.listen"
	keyDevServerDBPath = "dev_server.db_path"
	keyDevServerAPIKey = "dev_server.api_key"
	keyDarkTheme       = "display.dark_theme"
)

// WithViperConfig returns an Option that loads configuration from the YAML
// file at configPath. The file is created with default values if it does not
// exist yet. Every key may also be overridden through the environment, e.g.
// CODETIME_SYNC_API_KEY.
func WithViperConfig(configPath string) Option {
	return func(c *Config) error {
		v := viper.New()

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		setDefaults(v)

		c.CLI.ConfigPath = configPath

		err := v.ReadInConfig()
		if err == nil {
			return loadViperConfig(v, c)
		}

		if !errors.Is(err, os.ErrNotExist) {
			return errReadConfig.Wrap(err)
		}

		if err := v.WriteConfig(); err != nil {
			return errWriteConfig.Wrap(err)
		}

		return loadViperConfig(v, c)
	}
}

// setDefaults configures Viper with the default value of every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault(keyUsername, "")
	v.SetDefault(keySyncEndpoint, "http://127.0.0.1:8787/functions/v1/pushToDb")
	v.SetDefault(keySyncAPIKey, "")
	v.SetDefault(keySyncSource, "vscode")
	v.SetDefault(keySyncInterval, "14m")
	v.SetDefault(keySyncTimeout, "30s")
	v.SetDefault(keyTickInterval, "1s")
	v.SetDefault(keyWorkspace, "")
	v.SetDefault(keyControlListen, "127.0.0.1:7878")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogMaxSize, 10)
	v.SetDefault(keyLogMaxBackups, 3)
	v.SetDefault(keyLogMaxAge, 28)
	v.SetDefault(keyDevServerListen, "127.0.0.1:8787")
	v.SetDefault(keyDevServerDBPath, "")
	v.SetDefault(keyDevServerAPIKey, "")
	v.SetDefault(keyDarkTheme, true)
}

// loadViperConfig loads configuration from Viper into the Config struct.
func loadViperConfig(v *viper.Viper, c *Config) error {
	return v.Unmarshal(c)
}
