// Package config handles loading and saving dbw configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/dbw/config.yaml
//   - Data:    ~/.local/share/dbw/ (bookmarks database)
//   - State:   ~/.local/state/dbw/ (log file, last view state)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/databrowser/pkg/filter"
)

const appName = "dbw"

// ServiceConfig locates the data service.
type ServiceConfig struct {
	BaseURL  string        `yaml:"base_url,omitempty"`
	Instance string        `yaml:"instance,omitempty"` // prod, dev, debug
	Format   string        `yaml:"format,omitempty"`   // json
	Timeout  time.Duration `yaml:"timeout,omitempty"`  // per HTTP attempt, e.g. "60s"
	Retries  int           `yaml:"retries,omitempty"`  // attempts including the first
}

// FilterConfig holds the initial create-since windows in hours.
// 0 disables a window, 9999 means "forever".
type FilterConfig struct {
	DatasetCreateSince int `yaml:"dataset_create_since"`
	BlockCreateSince   int `yaml:"block_create_since"`
	FileCreateSince    int `yaml:"file_create_since"`
}

// State converts the windows to a filter.State.
func (f FilterConfig) State() *filter.State {
	s := filter.New()
	s.Set(filter.DatasetCreateSince, filter.Window(f.DatasetCreateSince))
	s.Set(filter.BlockCreateSince, filter.Window(f.BlockCreateSince))
	s.Set(filter.FileCreateSince, filter.Window(f.FileCreateSince))
	return s
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	DetailPane  bool    `yaml:"detail_pane"`            // Show the node detail pane
	SplitRatio  float64 `yaml:"split_ratio,omitempty"`  // Tree pane share of the width (0.2-0.8)
	ExpandDepth int     `yaml:"expand_depth,omitempty"` // Levels expanded after a fetch (1 = datasets open)
}

// BookmarksConfig locates the bookmark store.
type BookmarksConfig struct {
	Path string `yaml:"path,omitempty"` // SQLite file; default DataDir()/bookmarks.db
}

// ExperimentalConfig holds experimental feature flags.
type ExperimentalConfig struct {
	// FileFilter enables the file_create_since window in queries and menus.
	FileFilter bool `yaml:"file_filter,omitempty"`
}

// Config is the top-level configuration for dbw.
type Config struct {
	Service      ServiceConfig      `yaml:"service,omitempty"`
	Filters      FilterConfig       `yaml:"filters"`
	UI           UIConfig           `yaml:"ui,omitempty"`
	Bookmarks    BookmarksConfig    `yaml:"bookmarks,omitempty"`
	QuickViews   map[int]string     `yaml:"quick_views,omitempty"` // Number key (1-9) -> view state
	Experimental ExperimentalConfig `yaml:"experimental,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:  "https://cmsweb.cern.ch/phedex/datasvc",
			Instance: "prod",
			Format:   "json",
			Timeout:  60 * time.Second,
			Retries:  3,
		},
		Filters: FilterConfig{
			BlockCreateSince: 24,
		},
		UI: UIConfig{
			DetailPane:  true,
			SplitRatio:  0.6,
			ExpandDepth: 1,
		},
		QuickViews: make(map[int]string),
	}
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigDir returns the XDG config directory for dbw.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for dbw.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the XDG state directory for dbw.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// BookmarksPath returns the configured bookmark database path, defaulting
// to bookmarks.db in the data directory.
func (c Config) BookmarksPath() string {
	if c.Bookmarks.Path != "" {
		return c.Bookmarks.Path
	}
	dir := DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "bookmarks.db")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.QuickViews == nil {
		cfg.QuickViews = make(map[int]string)
	}
	cfg.Bookmarks.Path = expandHome(cfg.Bookmarks.Path)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	for name, w := range map[string]int{
		"dataset_create_since": c.Filters.DatasetCreateSince,
		"block_create_since":   c.Filters.BlockCreateSince,
		"file_create_since":    c.Filters.FileCreateSince,
	} {
		if !filter.Window(w).Valid() {
			return fmt.Errorf("filters.%s must be between 0 and %d, got %d", name, filter.Unbounded, w)
		}
	}
	if r := c.UI.SplitRatio; r != 0 && (r < 0.2 || r > 0.8) {
		return fmt.Errorf("ui.split_ratio must be between 0.2 and 0.8, got %g", r)
	}
	if c.Service.Retries < 0 {
		return fmt.Errorf("service.retries must not be negative, got %d", c.Service.Retries)
	}
	for n := range c.QuickViews {
		if n < 1 || n > 9 {
			return fmt.Errorf("quick_views keys must be 1-9, got %d", n)
		}
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// QuickView returns the view state bound to number key n (1-9), or "".
func (c Config) QuickView(n int) string {
	return c.QuickViews[n]
}

// SetQuickView binds a view state to number key n (1-9). An empty state
// removes the binding.
func (c *Config) SetQuickView(n int, state string) {
	if c.QuickViews == nil {
		c.QuickViews = make(map[int]string)
	}
	if state == "" {
		delete(c.QuickViews, n)
	} else {
		c.QuickViews[n] = state
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
