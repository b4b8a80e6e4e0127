// Package config provides configuration loading and management for semwire.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semwire/catalog"
)

// Scan kinds.
const (
	KindCommand  = "command"
	KindListener = "listener"
)

// Config represents the complete semwire configuration
type Config struct {
	// DevMode registers components marked development-only
	DevMode bool         `yaml:"dev_mode"`
	Plugin  PluginConfig `yaml:"plugin"`
	// Scan lists the namespaces registered on startup, in order
	Scan []ScanConfig `yaml:"scan"`
	// Index is an optional component manifest; empty means the compiled-in catalog
	Index   string        `yaml:"index,omitempty"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
	// Watch re-runs registration when the plugin descriptor changes
	Watch bool `yaml:"watch"`
}

// PluginConfig locates the plugin descriptor and data directory
type PluginConfig struct {
	Descriptor string `yaml:"descriptor"`
	DataDir    string `yaml:"data_dir,omitempty"`
}

// ScanConfig is one registration pass
type ScanConfig struct {
	Namespace string `yaml:"namespace"`
	// Kind is "command" or "listener"
	Kind string `yaml:"kind"`
	// Shallow excludes sub-namespaces
	Shallow bool `yaml:"shallow,omitempty"`
}

// NATSConfig configures the NATS event bus
type NATSConfig struct {
	// Enabled selects the NATS bus instead of the in-process bus
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr,omitempty"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Plugin: PluginConfig{
			Descriptor: "plugin.yaml",
		},
		Scan: []ScanConfig{
			{Namespace: "commands", Kind: KindCommand},
			{Namespace: "listeners", Kind: KindListener},
		},
		NATS: NATSConfig{
			URL:           nats.DefaultURL,
			SubjectPrefix: "semwire.events",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Plugin.Descriptor == "" {
		return fmt.Errorf("plugin.descriptor is required")
	}
	if len(c.Scan) == 0 {
		return fmt.Errorf("at least one scan entry is required")
	}
	for i, s := range c.Scan {
		if err := catalog.ValidateNamespace(s.Namespace); err != nil {
			return fmt.Errorf("scan[%d]: %w", i, err)
		}
		if s.Kind != KindCommand && s.Kind != KindListener {
			return fmt.Errorf("scan[%d]: kind must be %q or %q, got %q", i, KindCommand, KindListener, s.Kind)
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	return readConfig(path, DefaultConfig())
}

// loadLayer loads a YAML file into an empty Config, so that Merge only
// applies the settings the file names.
func loadLayer(path string) (*Config, error) {
	return readConfig(path, &Config{})
}

func readConfig(path string, config *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
// Boolean switches can be turned on by a later layer but not off.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.DevMode {
		c.DevMode = true
	}
	if other.Watch {
		c.Watch = true
	}

	// Plugin
	if other.Plugin.Descriptor != "" {
		c.Plugin.Descriptor = other.Plugin.Descriptor
	}
	if other.Plugin.DataDir != "" {
		c.Plugin.DataDir = other.Plugin.DataDir
	}

	// Scan entries replace, never append
	if len(other.Scan) > 0 {
		c.Scan = append([]ScanConfig(nil), other.Scan...)
	}
	if other.Index != "" {
		c.Index = other.Index
	}

	// NATS
	if other.NATS.Enabled {
		c.NATS.Enabled = true
	}
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}

// ResolvePath resolves a config-relative path against dir.
func ResolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
