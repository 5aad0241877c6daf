package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// APIConfig holds connection settings for the CRM REST/search backend.
type APIConfig struct {
	// BaseURL is the root URL of the CRM backend.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Token is the API token. Usually left empty here and resolved
	// from the environment or the system keyring instead.
	Token string `mapstructure:"token" yaml:"token"`

	// Tenant is the tenant identifier sent with every request.
	Tenant string `mapstructure:"tenant" yaml:"tenant"`

	// TimeoutSec is the per-request HTTP timeout.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// TimelineConfig holds tuning knobs for the aggregation engine.
type TimelineConfig struct {
	// PageSize is the fetch window growth per "load more".
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// SubNoteLimit caps the notes attached to a case/deal during
	// enrichment.
	SubNoteLimit int `mapstructure:"sub_note_limit" yaml:"sub_note_limit"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Timeline TimelineConfig `mapstructure:"timeline" yaml:"timeline"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Database string         `mapstructure:"database" yaml:"database"`
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/crm-timeline/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "crm-timeline", "config.yaml")
}

// DefaultDatabasePath returns the default path for the local
// snapshot database.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "timeline.db")
	}
	return filepath.Join(home, ".local", "share", "crm-timeline", "timeline.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			TimeoutSec: 30,
		},
		Timeline: TimelineConfig{
			PageSize:     50,
			SubNoteLimit: 10,
		},
		Display:  DisplayConfig{Theme: "default"},
		Database: DefaultDatabasePath(),
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("timeline.page_size", 50)
	v.SetDefault("timeline.sub_note_limit", 10)
	v.SetDefault("display.theme", "default")
	v.SetDefault("database", DefaultDatabasePath())
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("timeline", cfg.Timeline)
	v.Set("display", cfg.Display)
	v.Set("database", cfg.Database)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
