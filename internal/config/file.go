package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a Config. Durations are written as strings
// such as "1s" so the file round-trips through Load.
type File struct {
	Folder            string   `yaml:"folder" toml:"folder"`
	OutputDir         string   `yaml:"output_dir" toml:"output_dir"`
	ProfilesRoot      string   `yaml:"profiles_root" toml:"profiles_root"`
	Database          string   `yaml:"database" toml:"database"`
	ToolbarRoot       int64    `yaml:"toolbar_root" toml:"toolbar_root"`
	DocumentPatterns  []string `yaml:"document_patterns" toml:"document_patterns"`
	ShortcutFormat    string   `yaml:"shortcut_format" toml:"shortcut_format"`
	PollInterval      string   `yaml:"poll_interval" toml:"poll_interval"`
	ReconcileOnStart  bool     `yaml:"reconcile_on_start" toml:"reconcile_on_start"`
	ReconcileInterval string   `yaml:"reconcile_interval" toml:"reconcile_interval"`
	FastPath          bool     `yaml:"fast_path" toml:"fast_path"`
	WatchFS           bool     `yaml:"watch_fs" toml:"watch_fs"`
	HTTPTimeout       string   `yaml:"http_timeout" toml:"http_timeout"`
	Verbose           bool     `yaml:"verbose" toml:"verbose"`
	LogFile           string   `yaml:"log_file" toml:"log_file"`
	LogMaxSizeMB      int      `yaml:"log_max_size_mb" toml:"log_max_size_mb"`
	LogMaxBackups     int      `yaml:"log_max_backups" toml:"log_max_backups"`
	LogMaxAgeDays     int      `yaml:"log_max_age_days" toml:"log_max_age_days"`
	DashboardPort     int      `yaml:"dashboard_port" toml:"dashboard_port"`
}

// File returns the on-disk form of c.
func (c *Config) File() File {
	return File{
		Folder:            c.Folder,
		OutputDir:         c.OutputDir,
		ProfilesRoot:      c.ProfilesRoot,
		Database:          c.Database,
		ToolbarRoot:       c.ToolbarRoot,
		DocumentPatterns:  c.DocumentPatterns,
		ShortcutFormat:    c.ShortcutFormat,
		PollInterval:      c.PollInterval.String(),
		ReconcileOnStart:  c.ReconcileOnStart,
		ReconcileInterval: c.ReconcileInterval.String(),
		FastPath:          c.FastPath,
		WatchFS:           c.WatchFS,
		HTTPTimeout:       c.HTTPTimeout.String(),
		Verbose:           c.Verbose,
		LogFile:           c.LogFile,
		LogMaxSizeMB:      c.LogMaxSizeMB,
		LogMaxBackups:     c.LogMaxBackups,
		LogMaxAgeDays:     c.LogMaxAgeDays,
		DashboardPort:     c.DashboardPort,
	}
}

// Encode writes c to w as "yaml" or "toml".
func (c *Config) Encode(w io.Writer, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c.File()); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(c.File()); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want yaml or toml)", format)
	}
}

var defaultTemplate = template.Must(template.New("config").Funcs(template.FuncMap{"q": quote}).Parse(`# bookmirror configuration
# Every key can be overridden with a BOOKMIRROR_<KEY> environment variable.

# Bookmark folder directly under the bookmarks toolbar
folder: {{ q .Folder }}

# Directory the folder is mirrored into (created if missing)
output_dir: {{ q .OutputDir }}

# Where Firefox profiles live; the first *.default-release* profile with
# places.sqlite wins
profiles_root: {{ q .ProfilesRoot }}

# Explicit path to places.sqlite; skips profile discovery when set
database: {{ q .Database }}

# Row id of the bookmarks toolbar in moz_bookmarks
toolbar_root: {{ .ToolbarRoot }}

# URLs matching any of these (case-insensitive) are downloaded as PDFs;
# everything else becomes a shortcut file
document_patterns:
{{- range .DocumentPatterns }}
  - {{ q . }}
{{- end }}

# Shortcut file format: webloc (macOS) or url (Windows)
shortcut_format: {{ .ShortcutFormat }}

# How often places.sqlite is checked for changes
poll_interval: {{ .PollInterval }}

# Run a full reconciliation before polling starts
reconcile_on_start: {{ .ReconcileOnStart }}

# Force a full reconciliation this often (0s = never)
reconcile_interval: {{ .ReconcileInterval }}

# Handle a change by adding only the newest bookmark. Faster, but
# deletions wait for the next full reconciliation.
fast_path: {{ .FastPath }}

# Wake up early on file system events in the profile directory
watch_fs: {{ .WatchFS }}

# Per-download timeout (0s = none)
http_timeout: {{ .HTTPTimeout }}

# Log skipped bookmarks and memory use after each pass
verbose: {{ .Verbose }}

# Also log to this file, rotated by size
log_file: {{ q .LogFile }}
log_max_size_mb: {{ .LogMaxSizeMB }}
log_max_backups: {{ .LogMaxBackups }}
log_max_age_days: {{ .LogMaxAgeDays }}

# Serve a live dashboard on this port during watch (0 = off)
dashboard_port: {{ .DashboardPort }}
`))

// quote renders s as a YAML scalar, quoting only when needed.
func quote(s string) string {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return string(bytes.TrimSpace(out))
}

// WriteDefault writes a commented configuration file built from c.
func (c *Config) WriteDefault(path string) error {
	var buf bytes.Buffer
	if err := defaultTemplate.Execute(&buf, c.File()); err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// WriteDefault writes the default configuration file to path.
func WriteDefault(path string) error {
	return DefaultConfig().WriteDefault(path)
}

// ParseDuration parses a duration, treating an empty string as zero.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
