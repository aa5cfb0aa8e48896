package wearable

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSessionConfig(t *testing.T) {
	path := writeConfig(t, "session.json",
		`{"debug": true, "max_days": 10, "window_bases": [0, 8], "window_periods": [24, 12]}`)
	cfg, err := LoadSessionConfig(path)
	if err != nil {
		t.Fatalf("LoadSessionConfig: %v", err)
	}
	if cfg.Debug == nil || !*cfg.Debug {
		t.Error("debug not set")
	}
	if cfg.MaxDays == nil || *cfg.MaxDays != 10 {
		t.Error("max_days not set")
	}
	spec := cfg.Windows()
	if len(spec) != 2 || spec[1] != (Window{BaseHour: 8, PeriodHours: 12}) {
		t.Errorf("windows = %v", spec)
	}
}

func TestLoadSessionConfig_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"max_days": 5}`)
	cfg, err := LoadSessionConfig(path)
	if err != nil {
		t.Fatalf("LoadSessionConfig: %v", err)
	}
	if *cfg.MaxDays != 5 {
		t.Errorf("max_days = %d, want 5", *cfg.MaxDays)
	}
	if *cfg.Debug {
		t.Error("debug default should be false")
	}
	if len(cfg.Windows()) != 1 {
		t.Errorf("windows = %v, want one full-day default", cfg.Windows())
	}
}

func TestLoadSessionConfig_Rejections(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		path := writeConfig(t, "session.yaml", `{}`)
		if _, err := LoadSessionConfig(path); err == nil {
			t.Error("non-json extension accepted")
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadSessionConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("missing file accepted")
		}
	})
	t.Run("mismatched window arrays", func(t *testing.T) {
		path := writeConfig(t, "bad.json", `{"window_bases": [0, 8], "window_periods": [24]}`)
		if _, err := LoadSessionConfig(path); err == nil {
			t.Error("mismatched window arrays accepted")
		}
	})
	t.Run("max_days out of range", func(t *testing.T) {
		path := writeConfig(t, "days.json", `{"max_days": 99}`)
		if _, err := LoadSessionConfig(path); err == nil {
			t.Error("max_days 99 accepted")
		}
	})
	t.Run("invalid window", func(t *testing.T) {
		path := writeConfig(t, "win.json", `{"window_bases": [25], "window_periods": [1]}`)
		if _, err := LoadSessionConfig(path); err == nil {
			t.Error("base hour 25 accepted")
		}
	})
}
