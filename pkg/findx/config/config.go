// Package config provides configuration management for findx.
// Configuration is loaded from a YAML file and environment variables
// via viper, with XDG-aware defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	// DefaultHashAlgorithm is the content digest used for duplicate
	// confirmation and explicit hashing.
	DefaultHashAlgorithm = "sha256"

	// DefaultWatchDebounce is how long the watcher coalesces filesystem
	// events before triggering a refresh.
	DefaultWatchDebounce = "2s"
)

// DefaultExclusions contains paths excluded from scanning by default.
var DefaultExclusions = []string{
	"/proc",
	"/sys",
	"/dev",
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	// IndexDir is the directory holding the badger index database.
	IndexDir string `mapstructure:"index_dir"`

	// Exclude contains glob patterns skipped during scans.
	Exclude []string `mapstructure:"exclude"`

	// HashAlgorithm selects the content digest (sha256, sha1, md5).
	HashAlgorithm string `mapstructure:"hash_algorithm"`

	// IncludeEmpty reports zero-byte files in duplicate groups.
	IncludeEmpty bool `mapstructure:"include_empty"`

	Watch struct {
		Debounce string `mapstructure:"debounce"`
	} `mapstructure:"watch"`

	Journal struct {
		Enabled bool   `mapstructure:"enabled"`
		Dir     string `mapstructure:"dir"`
	} `mapstructure:"journal"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/findx/config.yaml
//   - $HOME/.config/findx/config.yaml
//
// Environment variables are prefixed with FINDX_ (e.g. FINDX_INDEX_DIR).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "findx"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "findx"))

	v.SetEnvPrefix("FINDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper applies the findx defaults to v, reads its config file if
// one is found, and unmarshals the typed configuration. The CLI passes
// its flag-bound viper here so flag values override file and
// environment settings.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("index_dir", DefaultIndexDir())
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("hash_algorithm", DefaultHashAlgorithm)
	v.SetDefault("include_empty", false)
	v.SetDefault("watch.debounce", DefaultWatchDebounce)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.dir", DefaultJournalDir())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"index":   "info",
		"dedup":   "info",
		"query":   "info",
		"watcher": "warn",
	})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// DefaultIndexDir returns the default location of the index database
// under the XDG state directory.
func DefaultIndexDir() string {
	return filepath.Join(xdg.StateHome, "findx", "index")
}

// DefaultJournalDir returns the default location of the operation
// journal under the XDG state directory.
func DefaultJournalDir() string {
	return filepath.Join(xdg.StateHome, "findx", "journal")
}
