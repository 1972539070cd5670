// Package config provides YAML-based configuration loading for splitwire.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	// AppName optional logical name of the client application
	AppName string `mapstructure:"app_name"`

	// QueryID identifies the query whose splits this client dispatches;
	// combined with a split index it forms the result registration id
	QueryID string `mapstructure:"query_id"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Net holds dial/callback options
	Net NetConfig `mapstructure:"net"`

	// Registry seeds the instance registry with statically known daemons
	Registry RegistryConfig `mapstructure:"registry"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// NetConfig contains networking tuning options.
type NetConfig struct {
	DialTimeoutMS int `mapstructure:"dial_timeout_ms"`
	// UmbilicalListen is the callback channel's listen address; empty
	// binds an ephemeral port on all interfaces
	UmbilicalListen string `mapstructure:"umbilical_listen"`
	// AdvertiseHost overrides the callback host daemons dial back to
	AdvertiseHost string `mapstructure:"advertise_host"`
}

// RegistryConfig seeds the instance registry.
type RegistryConfig struct {
	// TTLSeconds bounds how long a static instance counts as alive
	// without a refresh; 0 disables expiry
	TTLSeconds int `mapstructure:"ttl_seconds"`
	// Static lists daemons known up front
	Static []StaticInstance `mapstructure:"static"`
}

// StaticInstance describes one statically configured daemon.
type StaticInstance struct {
	Host          string `mapstructure:"host"`
	Hostname      string `mapstructure:"hostname"`
	ExecutionPort int    `mapstructure:"execution_port"`
	ResultPort    int    `mapstructure:"result_port"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		AppName: "splitwire",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stderr"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/splitwire.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Net: NetConfig{DialTimeoutMS: 10000},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment
// overrides. Environment variables use the prefix SPLITWIRE and `.`/`-`
// are replaced with `_`. Example: SPLITWIRE_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SPLITWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("query_id", cfg.QueryID)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("net.dial_timeout_ms", cfg.Net.DialTimeoutMS)
	v.SetDefault("net.umbilical_listen", cfg.Net.UmbilicalListen)
	v.SetDefault("net.advertise_host", cfg.Net.AdvertiseHost)
	v.SetDefault("registry.ttl_seconds", cfg.Registry.TTLSeconds)
	v.SetDefault("registry.static", cfg.Registry.Static)

	// Choose config file
	if path == "" {
		if envPath := os.Getenv("SPLITWIRE_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `splitwire`
		v.SetConfigName("splitwire")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".splitwire"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if c.Net.DialTimeoutMS < 0 {
		return fmt.Errorf("invalid net.dial_timeout_ms: %d", c.Net.DialTimeoutMS)
	}
	for i, si := range c.Registry.Static {
		if strings.TrimSpace(si.Host) == "" {
			return fmt.Errorf("registry.static[%d]: missing host", i)
		}
		if si.Hostname == "" {
			c.Registry.Static[i].Hostname = si.Host
		}
	}
	return nil
}
