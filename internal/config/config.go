// Package config loads bookmirror settings from a YAML file, BOOKMIRROR_*
// environment variables and built-in defaults, in that order of precedence
// (environment wins over the file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bookmirror/bookmirror/internal/mirror"
	"github.com/bookmirror/bookmirror/internal/places"
)

// EnvPrefix is prepended to every key to form its environment variable,
// e.g. BOOKMIRROR_OUTPUT_DIR.
const EnvPrefix = "BOOKMIRROR"

// Config holds every bookmirror setting.
type Config struct {
	// Folder is the bookmark folder directly under the toolbar to mirror.
	Folder string `mapstructure:"folder"`

	// OutputDir is the mirror directory. It is created at startup.
	OutputDir string `mapstructure:"output_dir"`

	// ProfilesRoot is searched for a profile holding places.sqlite.
	ProfilesRoot string `mapstructure:"profiles_root"`

	// Database, if set, skips profile discovery.
	Database string `mapstructure:"database"`

	ToolbarRoot      int64    `mapstructure:"toolbar_root"`
	DocumentPatterns []string `mapstructure:"document_patterns"`
	ShortcutFormat   string   `mapstructure:"shortcut_format"`

	PollInterval      time.Duration `mapstructure:"poll_interval"`
	ReconcileOnStart  bool          `mapstructure:"reconcile_on_start"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	FastPath          bool          `mapstructure:"fast_path"`
	WatchFS           bool          `mapstructure:"watch_fs"`

	// HTTPTimeout bounds each download. Zero leaves downloads unbounded.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	Verbose       bool   `mapstructure:"verbose"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days"`

	// DashboardPort enables the live dashboard on watch when > 0.
	DashboardPort int `mapstructure:"dashboard_port"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Folder:           "R",
		OutputDir:        defaultOutputDir(),
		ProfilesRoot:     places.DefaultProfilesRoot(),
		ToolbarRoot:      places.ToolbarRoot,
		DocumentPatterns: append([]string(nil), mirror.DefaultDocumentPatterns...),
		ShortcutFormat:   mirror.DefaultFormatName(),
		PollInterval:     time.Second,
		ReconcileOnStart: true,
		WatchFS:          true,
		LogMaxSizeMB:     10,
		LogMaxBackups:    3,
		LogMaxAgeDays:    28,
	}
}

// defaultOutputDir is the iCloud Drive Bookmarks folder on macOS and
// ~/Bookmarks elsewhere.
func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Bookmarks"
	}
	icloud := filepath.Join(home, "Library", "Mobile Documents", "com~apple~CloudDocs")
	if info, err := os.Stat(icloud); err == nil && info.IsDir() {
		return filepath.Join(icloud, "Bookmarks")
	}
	return filepath.Join(home, "Bookmarks")
}

// DefaultPath returns ~/.bookmirror/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bookmirror", "config.yaml")
}

// Load reads the config file at path, overlays BOOKMIRROR_* environment
// variables and fills the remaining keys from DefaultConfig. A missing file
// is not an error. List values in the environment are comma separated.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range DefaultConfig().settings() {
		v.SetDefault(key, value)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.OutputDir = expandHome(cfg.OutputDir)
	cfg.ProfilesRoot = expandHome(cfg.ProfilesRoot)
	cfg.Database = expandHome(cfg.Database)
	cfg.LogFile = expandHome(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a pass.
func (c *Config) Validate() error {
	if c.Folder == "" {
		return fmt.Errorf("folder must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile_interval must not be negative, got %v", c.ReconcileInterval)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %v", c.HTTPTimeout)
	}
	if _, err := mirror.NewClassifier(c.DocumentPatterns); err != nil {
		return err
	}
	if _, err := mirror.FormatByName(c.ShortcutFormat); err != nil {
		return err
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("dashboard_port out of range: %d", c.DashboardPort)
	}
	return nil
}

// settings maps every key to its value.
func (c *Config) settings() map[string]interface{} {
	return map[string]interface{}{
		"folder":             c.Folder,
		"output_dir":         c.OutputDir,
		"profiles_root":      c.ProfilesRoot,
		"database":           c.Database,
		"toolbar_root":       c.ToolbarRoot,
		"document_patterns":  c.DocumentPatterns,
		"shortcut_format":    c.ShortcutFormat,
		"poll_interval":      c.PollInterval,
		"reconcile_on_start": c.ReconcileOnStart,
		"reconcile_interval": c.ReconcileInterval,
		"fast_path":          c.FastPath,
		"watch_fs":           c.WatchFS,
		"http_timeout":       c.HTTPTimeout,
		"verbose":            c.Verbose,
		"log_file":           c.LogFile,
		"log_max_size_mb":    c.LogMaxSizeMB,
		"log_max_backups":    c.LogMaxBackups,
		"log_max_age_days":   c.LogMaxAgeDays,
		"dashboard_port":     c.DashboardPort,
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
