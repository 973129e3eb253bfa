package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/sjson"
)

const (
	appName              = "scrollkit"
	defaultDataDirectory = ".scrollkit"
	defaultLogLevel      = "info"

	projectConfigName = ".scrollkit.json"
)

// ListOptions controls the layout of the list. Heights are in terminal rows.
type ListOptions struct {
	ItemHeight     int `json:"item_height,omitempty"`
	Spacing        int `json:"spacing,omitempty"`
	PaddingTop     int `json:"padding_top,omitempty"`
	PaddingBottom  int `json:"padding_bottom,omitempty"`
	OverscanBefore int `json:"overscan_before,omitempty"`
	OverscanAfter  int `json:"overscan_after,omitempty"`
	// WheelStep is the number of rows a mouse wheel notch scrolls.
	WheelStep int `json:"wheel_step,omitempty"`
	// ShowDetails renders a second row with size and modification time.
	ShowDetails bool `json:"show_details,omitempty"`
	// PoolCapacity bounds the number of pooled cells. Zero means unbounded.
	PoolCapacity int `json:"pool_capacity,omitempty"`
}

// SourceOptions controls which files are listed.
type SourceOptions struct {
	Include  []string `json:"include,omitempty"`
	Ignore   []string `json:"ignore,omitempty"`
	Hidden   bool     `json:"hidden,omitempty"`
	MaxDepth int      `json:"max_depth,omitempty"`
	// Watch re-scans the directory when files change.
	Watch      *bool `json:"watch,omitempty"`
	DebounceMS int   `json:"debounce_ms,omitempty"`
}

type Options struct {
	Debug         bool   `json:"debug,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`
	DataDirectory string `json:"data_directory,omitempty"` // Relative to the cwd
}

type Config struct {
	List    ListOptions   `json:"list"`
	Source  SourceOptions `json:"source"`
	Options *Options      `json:"options,omitempty"`

	// Internal
	workingDir     string `json:"-"`
	dataConfigPath string `json:"-"`
}

func (c *Config) WorkingDir() string {
	return c.workingDir
}

// WatchEnabled reports whether the listing should follow filesystem changes.
func (c *Config) WatchEnabled() bool {
	return c.Source.Watch == nil || *c.Source.Watch
}

// ProjectConfig returns the path of the project config file.
func (c *Config) ProjectConfig() string {
	return filepath.Join(c.workingDir, projectConfigName)
}

func (c *Config) setDefaults(workingDir string) {
	c.workingDir = workingDir
	if c.Options == nil {
		c.Options = &Options{}
	}
	if c.Options.DataDirectory == "" {
		c.Options.DataDirectory = filepath.Join(workingDir, defaultDataDirectory)
	}
	if c.Options.LogLevel == "" {
		c.Options.LogLevel = defaultLogLevel
	}
	if c.List.ItemHeight <= 0 {
		c.List.ItemHeight = 1
	}
	if c.List.WheelStep <= 0 {
		c.List.WheelStep = 2
	}
	c.List.Spacing = max(0, c.List.Spacing)
	c.List.PaddingTop = max(0, c.List.PaddingTop)
	c.List.PaddingBottom = max(0, c.List.PaddingBottom)
	c.List.OverscanBefore = max(0, c.List.OverscanBefore)
	c.List.OverscanAfter = max(0, c.List.OverscanAfter)
	if c.Source.DebounceMS <= 0 {
		c.Source.DebounceMS = 150
	}
}

func (c *Config) SetConfigField(key string, value any) error {
	return c.editConfigFile(key, func(data string) (string, error) {
		return sjson.Set(data, key, value)
	})
}

// SetRawConfigField stores raw JSON at key, e.g. `["**/*.go"]` or `3`.
func (c *Config) SetRawConfigField(key, raw string) error {
	return c.editConfigFile(key, func(data string) (string, error) {
		return sjson.SetRaw(data, key, raw)
	})
}

func (c *Config) editConfigFile(key string, edit func(string) (string, error)) error {
	// read the data
	data, err := os.ReadFile(c.dataConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			data = []byte("{}")
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	newValue, err := edit(string(data))
	if err != nil {
		return fmt.Errorf("failed to set config field %s: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(c.dataConfigPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.dataConfigPath, []byte(newValue), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
