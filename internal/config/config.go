package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Transport modes. auto probes for a reachable live transport per
// call, online always uses it, offline always uses the mock.
const (
	ModeAuto    = "auto"
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Config holds application configuration.
type Config struct {
	Bluesky BlueskyConfig `mapstructure:"bluesky"`
	Storage StorageConfig `mapstructure:"storage"`
	UI      UIConfig      `mapstructure:"ui"`
}

// BlueskyConfig holds service and transport settings.
type BlueskyConfig struct {
	Service    string `mapstructure:"service"`
	Identifier string `mapstructure:"identifier"`
	Transport  string `mapstructure:"transport"`
}

// StorageConfig holds local cache and log paths.
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	LogPath      string `mapstructure:"log_path"`
	LogLevel     string `mapstructure:"log_level"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat   string `mapstructure:"date_format"`
	TimelineSize int    `mapstructure:"timeline_size"`
}

// Load reads configuration from file and env. Env var overrides use prefix PERCH_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "perch")

	// default values
	v.SetDefault("bluesky.service", "https://bsky.social")
	v.SetDefault("bluesky.identifier", "")
	v.SetDefault("bluesky.transport", ModeAuto)
	v.SetDefault("storage.database_path", filepath.Join(dataDir, "perch.db"))
	v.SetDefault("storage.log_path", filepath.Join(dataDir, "perch.log"))
	v.SetDefault("storage.log_level", "info")
	v.SetDefault("ui.date_format", "02 Jan 15:04")
	v.SetDefault("ui.timeline_size", 50)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("PERCH_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "perch"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PERCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validateTransport(c.Bluesky.Transport); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory
// if needed. The login flow uses it to remember the identifier between
// runs; only non-sensitive preferences land here, never passwords.
func Save(cfg Config) error {
	path := os.Getenv("PERCH_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "perch", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("bluesky.service", cfg.Bluesky.Service)
	v.Set("bluesky.identifier", cfg.Bluesky.Identifier)
	v.Set("bluesky.transport", cfg.Bluesky.Transport)
	v.Set("storage.database_path", cfg.Storage.DatabasePath)
	v.Set("storage.log_path", cfg.Storage.LogPath)
	v.Set("storage.log_level", cfg.Storage.LogLevel)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timeline_size", cfg.UI.TimelineSize)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func validateTransport(mode string) error {
	switch mode {
	case ModeAuto, ModeOnline, ModeOffline:
		return nil
	default:
		return fmt.Errorf("config: unknown transport mode %q", mode)
	}
}
