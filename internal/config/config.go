// Package config loads the toolchain's ambient configuration from a
// YAML file: import sandbox root, parser error cap, flow interpreter
// caps, storage backend selection, and logging.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all tenor toolchain configuration.
type Config struct {
	// Import resolution
	SandboxRoot string `yaml:"sandbox_root"`

	// Parser settings
	MaxParseErrors int `yaml:"max_parse_errors"`

	Flow    FlowConfig    `yaml:"flow"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// FlowConfig caps the interpreter's defense-in-depth limits.
type FlowConfig struct {
	MaxSteps int64 `yaml:"max_steps"`
	MaxDepth int   `yaml:"max_depth"`
}

// StorageConfig selects a storage backend. The core ships only the
// in-memory reference; external drivers register their own names.
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

// LoggingConfig configures the shared zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SandboxRoot:    ".",
		MaxParseErrors: 10,
		Flow: FlowConfig{
			MaxSteps: 10_000,
			MaxDepth: 256,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Logging: LoggingConfig{
			Level:      "info",
			JSONFormat: false,
		},
	}
}

// Load reads path as YAML over the defaults. A missing file is not an
// error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.MaxParseErrors < 0 {
		return nil, fmt.Errorf("config: max_parse_errors must be non-negative, got %d", cfg.MaxParseErrors)
	}
	return cfg, nil
}
