// Package config handles loading and validating tracker-tui configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DirName is the name of the configuration directory.
const DirName = ".tracker-tui"

// Built-in view identifiers.
const (
	ViewAssignedToMe = "assigned-to-me"
	ViewFollowedByMe = "followed-by-me"
	ViewCustom       = "custom"
)

// DefaultViews are used when config.yaml lists no views.
var DefaultViews = []ViewConfig{
	{ID: ViewAssignedToMe, Label: "Assigned to me", Query: "Resolution: empty() and Assignee: me()"},
	{ID: ViewFollowedByMe, Label: "Followed by me", Query: "Resolution: empty() and Followers: me()"},
}

// DefaultColumns are shown when config.yaml lists no columns.
var DefaultColumns = []string{"key", "summary", "status", "priority", "updated"}

// KnownColumns are the column names the issue table can render.
var KnownColumns = []string{"key", "summary", "status", "priority", "created", "updated"}

// Config holds the application configuration.
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Views   []ViewConfig  `yaml:"views"`
	// Query is a free-form tracker query shown as an extra "custom" view.
	Query   string    `yaml:"query,omitempty"`
	Columns []string  `yaml:"columns"`
	Log     LogConfig `yaml:"log"`
}

// TrackerConfig holds connection settings.
// The host lives in config.yaml; the session cookie lives in a separate
// secrets.yaml file that is gitignored.
type TrackerConfig struct {
	Host     string `yaml:"host"`
	FrontURL string `yaml:"front_url,omitempty"`
	Cookie   string `yaml:"-"` // loaded from secrets file, not config
}

// SecretsConfig holds sensitive credentials loaded from a separate file.
type SecretsConfig struct {
	Tracker TrackerSecrets `yaml:"tracker"`
}

// TrackerSecrets holds the browser session cookie.
type TrackerSecrets struct {
	Cookie string `yaml:"cookie"`
}

// ViewConfig defines a query-backed view in the TUI.
type ViewConfig struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Query string `yaml:"query"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn or error
}

// DefaultConfigDir returns the .tracker-tui directory next to the executable.
func DefaultConfigDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("finding executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving executable symlinks: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), DirName), nil
}

// ConfigPath returns the config.yaml path inside dir.
func ConfigPath(dir string) string { return filepath.Join(dir, "config.yaml") }

// SecretsPath returns the secrets.yaml path inside dir.
func SecretsPath(dir string) string { return filepath.Join(dir, "secrets.yaml") }

// StatePath returns the state database path inside dir.
func StatePath(dir string) string { return filepath.Join(dir, "state.db") }

// LogPath returns the log file path inside dir.
func LogPath(dir string) string { return filepath.Join(dir, "tracker-tui.log") }

// Load reads and parses the config and secrets files.
// configPath is the path to config.yaml, secretsPath is the path to secrets.yaml.
// A missing secrets file leaves the cookie empty; the caller decides how to
// ask for one.
func Load(configPath, secretsPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	secrets, err := loadSecrets(secretsPath)
	if err != nil {
		return nil, err
	}
	cfg.Tracker.Cookie = secrets.Tracker.Cookie

	if len(cfg.Columns) == 0 {
		cfg.Columns = DefaultColumns
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func loadSecrets(path string) (SecretsConfig, error) {
	var secrets SecretsConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return secrets, nil
		}
		return secrets, fmt.Errorf("reading secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return secrets, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

// SaveCookie writes the session cookie to the secrets file, creating the
// file and its directory when needed.
func SaveCookie(secretsPath, cookie string) error {
	secrets, err := loadSecrets(secretsPath)
	if err != nil {
		return err
	}
	secrets.Tracker.Cookie = cookie

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshaling secrets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(secretsPath), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(secretsPath, append([]byte(secretsHeader), data...), 0o600); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	return nil
}

// ResolvedViews returns the configured views, or DefaultViews when none are
// configured, followed by the custom query view if one is set.
func (c *Config) ResolvedViews() []ViewConfig {
	views := c.Views
	if len(views) == 0 {
		views = DefaultViews
	}
	out := make([]ViewConfig, len(views), len(views)+1)
	copy(out, views)
	if c.Query != "" {
		out = append(out, ViewConfig{ID: ViewCustom, Label: "Custom query", Query: c.Query})
	}
	return out
}

// Validate checks that all required config fields are set.
func (c *Config) Validate() error {
	if c.Tracker.Host == "" {
		return fmt.Errorf("tracker.host is required")
	}
	u, err := url.Parse(c.Tracker.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tracker.host must be an absolute URL, got %q", c.Tracker.Host)
	}
	if c.Tracker.FrontURL != "" {
		u, err := url.Parse(c.Tracker.FrontURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("tracker.front_url must be an absolute URL, got %q", c.Tracker.FrontURL)
		}
	}

	ids := make(map[string]bool)
	for i, v := range c.Views {
		if v.ID == "" {
			return fmt.Errorf("views[%d].id is required", i)
		}
		if ids[v.ID] {
			return fmt.Errorf("views[%d].id %q is duplicated", i, v.ID)
		}
		ids[v.ID] = true
		if v.Label == "" {
			return fmt.Errorf("views[%d].label is required", i)
		}
		if v.Query == "" {
			return fmt.Errorf("views[%d].query is required", i)
		}
	}
	if c.Query != "" && ids[ViewCustom] {
		return fmt.Errorf("views: id %q is reserved for the top-level query", ViewCustom)
	}

	for i, col := range c.Columns {
		if !isKnownColumn(col) {
			return fmt.Errorf("columns[%d]: unknown column %q", i, col)
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	return nil
}

func isKnownColumn(name string) bool {
	for _, k := range KnownColumns {
		if k == name {
			return true
		}
	}
	return false
}
