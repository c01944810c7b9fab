// Package config provides controller configuration management.
//
// This package handles reading and writing .gdpilot/config.yaml files,
// which carry machine-local settings: where the Godot editor lives, which
// loopback port the command listener uses, and timing knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dir is the per-project configuration directory name.
const Dir = ".gdpilot"

// FileName is the configuration file name inside Dir.
const FileName = "config.yaml"

// Config represents the .gdpilot/config.yaml file.
type Config struct {
	// GodotPath is the explicit editor executable path. Empty means
	// auto-detect (env vars, PATH, well-known locations).
	GodotPath string `yaml:"godot_path,omitempty"`

	// Port is the loopback port the injected listener serves on.
	Port int `yaml:"port,omitempty"`

	// CommandTimeoutSeconds bounds how long a command waits for its reply.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds,omitempty"`

	// DefaultScene is appended to the editor launch arguments when a start
	// request names no scene.
	DefaultScene string `yaml:"default_scene,omitempty"`

	// LogLines is the per-stream capacity of the captured editor output.
	LogLines int `yaml:"log_lines,omitempty"`
}

// Path returns the config file location for a working directory.
func Path(workDir string) string {
	return filepath.Join(workDir, Dir, FileName)
}

// Load reads a configuration file. A missing file is not an error: every
// setting has a working default, so callers get a zero Config back.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Write saves a configuration file, creating the directory if needed.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# gdpilot configuration\n\n"
	if err := os.WriteFile(path, []byte(header+string(data)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
