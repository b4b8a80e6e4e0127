package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semwire.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semwire"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Environment variables applied after all config files.
const (
	EnvDevMode  = "SEMWIRE_DEV_MODE"
	EnvNATSURL  = "SEMWIRE_NATS_URL"
	EnvLogLevel = "SEMWIRE_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger  *slog.Logger
	workDir string
	homeDir string
	getenv  func(string) string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWorkDir sets the directory the project config search starts from.
func WithWorkDir(dir string) LoaderOption {
	return func(l *Loader) { l.workDir = dir }
}

// WithHomeDir sets the directory holding the user config.
func WithHomeDir(dir string) LoaderOption {
	return func(l *Loader) { l.homeDir = dir }
}

// WithEnv replaces os.Getenv.
func WithEnv(getenv func(string) string) LoaderOption {
	return func(l *Loader) { l.getenv = getenv }
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, getenv: os.Getenv}
	for _, opt := range opts {
		opt(l)
	}
	if l.workDir == "" {
		l.workDir, _ = os.Getwd()
	}
	if l.homeDir == "" {
		l.homeDir, _ = os.UserHomeDir()
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/semwire/config.yaml)
// 3. Project config (semwire.yaml in current or parent directories)
// 4. Environment variables
//
// Each file is a partial layer: only the settings it names override the
// layers below. Relative paths resolve against the project config's
// directory, or the work directory when there is none.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := loadLayer(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	baseDir := l.workDir
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		projectConfig, err := loadLayer(projectConfigPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		baseDir = filepath.Dir(projectConfigPath)
		config.Merge(projectConfig)
	} else {
		l.logger.Debug("No project config found")
	}
	resolvePaths(config, baseDir)

	return l.finish(config)
}

// LoadFile loads defaults, then path, then environment variables.
func (l *Loader) LoadFile(path string) (*Config, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	resolvePaths(config, filepath.Dir(abs))
	return l.finish(config)
}

func (l *Loader) finish(config *Config) (*Config, error) {
	l.applyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) applyEnv(config *Config) {
	if v := l.getenv(EnvDevMode); v != "" {
		if dev, err := strconv.ParseBool(v); err == nil {
			config.DevMode = dev
		} else {
			l.logger.Warn("Ignoring invalid environment value", slog.String("name", EnvDevMode), slog.String("value", v))
		}
	}
	if v := l.getenv(EnvNATSURL); v != "" {
		config.NATS.URL = v
		config.NATS.Enabled = true
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		config.Log.Level = v
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

func (l *Loader) userConfigPath() string {
	if l.homeDir == "" {
		return ""
	}
	return filepath.Join(l.homeDir, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semwire.yaml in the work directory and its parents
func (l *Loader) findProjectConfig() string {
	if l.workDir == "" {
		return ""
	}

	dir := l.workDir
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func resolvePaths(config *Config, dir string) {
	config.Plugin.Descriptor = ResolvePath(dir, config.Plugin.Descriptor)
	config.Plugin.DataDir = ResolvePath(dir, config.Plugin.DataDir)
	config.Index = ResolvePath(dir, config.Index)
}
