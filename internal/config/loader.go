package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultDir = ".shoal"
	configFile = "config.yaml"
)

// Loader handles loading and saving the configuration file.
type Loader struct {
	baseDir string
}

// NewLoader creates a new config loader.
// The base directory is resolved in this order:
//  1. SHOAL_CONFIG environment variable.
//  2. ~/.shoal under the user home directory.
//  3. /tmp/shoal-fallback (containerized environments without a home dir).
//
// The loader never fails to construct. Where no config file exists, Load
// returns defaults with env var overrides applied.
func NewLoader() *Loader {
	if baseDir := os.Getenv("SHOAL_CONFIG"); baseDir != "" {
		return &Loader{baseDir: baseDir}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return &Loader{baseDir: filepath.Join(homeDir, defaultDir)}
	}

	return &Loader{baseDir: "/tmp/shoal-fallback"}
}

// Path returns the path to the config file.
func (l *Loader) Path() string {
	return filepath.Join(l.baseDir, configFile)
}

// LogPath returns the path interactive mode logs to.
func (l *Loader) LogPath() string {
	return filepath.Join(l.baseDir, "shoal.log")
}

// Load loads the configuration. Returns defaults if the file doesn't exist.
// Environment variable overrides are applied on top in either case.
func (l *Loader) Load() (*Config, error) {
	path := l.Path()

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		//nolint:gosec // G304: Path is from trusted config directory.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyEnv(cfg)

	if err := resolveAPIKeyReferences(cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve API keys: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration.
// Uses 0600 permissions since api_keys may contain secrets.
func (l *Loader) Save(cfg *Config) error {
	path := l.Path()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
