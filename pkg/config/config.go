// Package config loads seedpick configuration from file, environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when neither file nor environment provide a value.
const (
	DefaultURL             = "http://localhost:9091/transmission/rpc"
	DefaultRefreshInterval = 5 * time.Second
	DefaultRPCTimeout      = 10 * time.Second
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	// URL is the Transmission RPC endpoint.
	URL string `mapstructure:"url"`

	// Username and Password enable HTTP basic auth when set.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// RefreshInterval is the cadence of routine progress polls.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// RPCTimeout bounds each RPC round trip.
	RPCTimeout time.Duration `mapstructure:"rpc_timeout"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/seedpick/config.yaml
//   - $HOME/.config/seedpick/config.yaml
//
// Environment variables use the SEEDPICK_ prefix (e.g. SEEDPICK_URL).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "seedpick"))
	}
	homeDir, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "seedpick"))
	}

	v.SetEnvPrefix("SEEDPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers defaults on a viper instance. Shared with the CLI,
// which binds flags on the global viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("url", DefaultURL)
	v.SetDefault("refresh_interval", DefaultRefreshInterval)
	v.SetDefault("rpc_timeout", DefaultRPCTimeout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.components", map[string]string{
		"session": "info",
		"tui":     "info",
	})
}

// SetDefaults registers defaults on the global viper for flag binding.
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid rpc url %q", c.URL)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh_interval %s is below the 1s floor", c.RefreshInterval)
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("rpc_timeout must be positive, got %s", c.RPCTimeout)
	}
	return nil
}
