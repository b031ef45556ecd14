// Package config provides persistent configuration for the PageLens CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultServer is the server URL used when no configuration exists.
const DefaultServer = "http://localhost:8080"

// Config is the CLI configuration. User-supplied provider keys are NOT stored
// here; they live in the system keychain.
type Config struct {
	// Server is the PageLens server base URL
	Server string `yaml:"server"`

	// CredentialModes records the preferred credential mode per provider id
	// ("system" or "user")
	CredentialModes map[string]string `yaml:"credential_modes,omitempty"`
}

// DefaultConfigDir returns the config directory (~/.pagelens)
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pagelens"
	}
	return filepath.Join(home, ".pagelens")
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// New creates a config with defaults
func New() *Config {
	return &Config{
		Server:          DefaultServer,
		CredentialModes: make(map[string]string),
	}
}

// Load reads the config from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.CredentialModes == nil {
		cfg.CredentialModes = make(map[string]string)
	}
	return cfg, nil
}

// LoadOrCreate reads the config, falling back to defaults when the file does
// not exist yet
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return Load(path)
}

// Save writes the config to the given path, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Mode returns the stored credential mode for a provider, or "" when unset
func (c *Config) Mode(providerID string) string {
	return c.CredentialModes[providerID]
}

// SetMode stores the credential mode for a provider
func (c *Config) SetMode(providerID, mode string) {
	if c.CredentialModes == nil {
		c.CredentialModes = make(map[string]string)
	}
	c.CredentialModes[providerID] = mode
}
