package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-navgen/internal/navdata"
)

// ErrInvalidConfig is returned for settings the tools cannot run with.
var ErrInvalidConfig = errors.New("invalid config")

// localConfigName is looked up in the working directory before ConfigDir.
const localConfigName = "wpgen.yaml"

// Load builds the configuration: defaults, then the config file, then
// flags. An explicit --config path must exist; the implicit locations are
// optional.
func Load(flags *Flags) (*Config, error) {
	cfg := Default()

	path := findConfigFile()
	if flags != nil && flags.ConfigPath != "" {
		path = flags.ConfigPath
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	ApplyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the pipeline depends on.
func (c *Config) Validate() error {
	if _, err := navdata.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	checks := []struct {
		ok  bool
		msg string
		val any
	}{
		{c.Generator.MaxHeightRange > 0, "max_height_range must be positive", c.Generator.MaxHeightRange},
		{c.Generator.MaxPolygonVertices >= 3, "max_polygon_vertices must be at least 3", c.Generator.MaxPolygonVertices},
		{c.Flood.Resolution >= 0, "flood resolution must not be negative", c.Flood.Resolution},
	}
	for _, ck := range checks {
		if !ck.ok {
			return fmt.Errorf("%w: %s, got %v", ErrInvalidConfig, ck.msg, ck.val)
		}
	}
	return nil
}

// findConfigFile returns the first existing implicit config location.
func findConfigFile() string {
	for _, path := range []string{
		localConfigName,
		filepath.Join(ConfigDir(), "config.yaml"),
	} {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "MidgardNavgen")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MidgardNavgen")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "midgard-navgen")
	}
	return filepath.Join(home, ".config", "midgard-navgen")
}

// loadFromFile merges a YAML file over cfg. Unknown keys are rejected so
// that typos do not silently fall back to defaults.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
