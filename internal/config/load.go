package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the viewer cannot run with.
func (c *Config) Validate() error {
	if c.Graphics.FPSLimit < 0 {
		return fmt.Errorf("%w: graphics.fps_limit %d", ErrInvalidConfig, c.Graphics.FPSLimit)
	}
	if c.Level.TileSize <= 0 {
		return fmt.Errorf("%w: level.tile_size %d", ErrInvalidConfig, c.Level.TileSize)
	}
	if c.Physics.ProjectionStep <= 0 {
		return fmt.Errorf("%w: physics.projection_step %g", ErrInvalidConfig, c.Physics.ProjectionStep)
	}
	if c.Physics.MaxProjectionSteps <= 0 {
		return fmt.Errorf("%w: physics.max_projection_steps %d", ErrInvalidConfig, c.Physics.MaxProjectionSteps)
	}
	if c.Physics.CraterRadius < 0 {
		return fmt.Errorf("%w: physics.crater_radius %d", ErrInvalidConfig, c.Physics.CraterRadius)
	}
	switch c.Preprocess.Border {
	case "", "blank", "solid":
	default:
		return fmt.Errorf("%w: preprocess.border %q", ErrInvalidConfig, c.Preprocess.Border)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Craterfield")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Craterfield")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "craterfield")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "craterfield")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
