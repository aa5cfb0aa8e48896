package wearable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SessionConfig carries the per-session decode settings that used to live in
// process-wide flags. Fields are pointers so a partial config file only
// overrides what it names; omitted fields keep their defaults.
type SessionConfig struct {
	Debug   *bool `json:"debug,omitempty"`
	MaxDays *int  `json:"max_days,omitempty"`

	// Parallel arrays defining the windowing spec: window i starts at
	// WindowBases[i] o'clock and recurs every WindowPeriods[i] hours.
	WindowBases   []int `json:"window_bases,omitempty"`
	WindowPeriods []int `json:"window_periods,omitempty"`
}

// DefaultSessionConfig returns the settings used when no config file is
// supplied: one full-day window, MaxDays days, debug off.
func DefaultSessionConfig() *SessionConfig {
	debug := false
	maxDays := MaxDays
	return &SessionConfig{
		Debug:         &debug,
		MaxDays:       &maxDays,
		WindowBases:   []int{0},
		WindowPeriods: []int{24},
	}
}

// LoadSessionConfig loads a SessionConfig from a JSON file. The path must
// have a .json extension and the file must be under 1MB. Fields omitted
// from the file retain the defaults, so partial configs are safe.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultSessionConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SessionConfig) validate() error {
	if len(c.WindowBases) != len(c.WindowPeriods) {
		return fmt.Errorf("window_bases has %d entries, window_periods has %d",
			len(c.WindowBases), len(c.WindowPeriods))
	}
	if c.MaxDays != nil && (*c.MaxDays <= 0 || *c.MaxDays > MaxDays) {
		return fmt.Errorf("max_days %d out of range [1,%d]", *c.MaxDays, MaxDays)
	}
	return c.Windows().Validate()
}

// Windows builds the WindowSpec described by the config.
func (c *SessionConfig) Windows() WindowSpec {
	spec := make(WindowSpec, len(c.WindowBases))
	for i := range c.WindowBases {
		spec[i] = Window{BaseHour: c.WindowBases[i], PeriodHours: c.WindowPeriods[i]}
	}
	return spec
}
