package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultStorageKey is the durable slot holding the technology collection.
const DefaultStorageKey = "tech_tracker_technologies"

// StorageConfig controls where the collection is persisted.
type StorageConfig struct {
	// Path is the SQLite database file. ":memory:" keeps state in RAM.
	Path string `mapstructure:"path" yaml:"path"`

	// Key names the durable slot inside the database.
	Key string `mapstructure:"key" yaml:"key"`

	// Seed fills an empty slot with a starter collection on first run.
	Seed bool `mapstructure:"seed" yaml:"seed"`
}

// LookupConfig holds settings for the repository search integration.
type LookupConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Limit      int    `mapstructure:"limit" yaml:"limit"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// Language optionally narrows results (e.g. "go", "javascript").
	Language string `mapstructure:"language" yaml:"language"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	SortBy   string `mapstructure:"sort_by" yaml:"sort_by"`
	SortDesc bool   `mapstructure:"sort_desc" yaml:"sort_desc"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Lookup  LookupConfig  `mapstructure:"lookup" yaml:"lookup"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/techtracker, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "techtracker")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Path: filepath.Join(ConfigDir(), "tracker.db"),
			Key:  DefaultStorageKey,
			Seed: true,
		},
		Lookup: LookupConfig{
			BaseURL:    "https://api.github.com",
			Limit:      5,
			TimeoutSec: 10,
		},
		Display: DisplayConfig{
			Theme:    "auto",
			SortBy:   "createdAt",
			SortDesc: true,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "techtracker.log"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("storage.seed", d.Storage.Seed)
	v.SetDefault("lookup.base_url", d.Lookup.BaseURL)
	v.SetDefault("lookup.limit", d.Lookup.Limit)
	v.SetDefault("lookup.timeout_sec", d.Lookup.TimeoutSec)
	v.SetDefault("lookup.language", d.Lookup.Language)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.sort_by", d.Display.SortBy)
	v.SetDefault("display.sort_desc", d.Display.SortDesc)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TECHTRACKER_ override file values
// (e.g. TECHTRACKER_STORAGE_PATH). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("techtracker")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if strings.TrimSpace(cfg.Storage.Key) == "" {
		cfg.Storage.Key = DefaultStorageKey
	}
	if cfg.Lookup.Limit <= 0 {
		cfg.Lookup.Limit = 5
	}
	if cfg.Lookup.TimeoutSec <= 0 {
		cfg.Lookup.TimeoutSec = 10
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

	v.Set("storage", map[string]any{
		"path": cfg.Storage.Path,
		"key":  cfg.Storage.Key,
		"seed": cfg.Storage.Seed,
	})
	v.Set("lookup", map[string]any{
		"base_url":    cfg.Lookup.BaseURL,
		"limit":       cfg.Lookup.Limit,
		"timeout_sec": cfg.Lookup.TimeoutSec,
		"language":    cfg.Lookup.Language,
	})
	v.Set("display", map[string]any{
		"theme":     cfg.Display.Theme,
		"sort_by":   cfg.Display.SortBy,
		"sort_desc": cfg.Display.SortDesc,
	})
	v.Set("log", map[string]any{
		"level": cfg.Log.Level,
		"json":  cfg.Log.JSON,
		"file":  cfg.Log.File,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
