package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "modelfinder"
	configFile = "config.yaml"
)

var (
	// Global registry instance (loaded lazily)
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// Environment holds the environment variables that override the file.
type Environment struct {
	ConfigDir string        `env:"MODELFINDER_CONFIG_DIR"`
	Endpoint  string        `env:"MODELFINDER_ENDPOINT"`
	Timeout   time.Duration `env:"MODELFINDER_TIMEOUT"`
}

// LoadEnvironment parses the MODELFINDER_* variables.
func LoadEnvironment() (Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return Environment{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// Apply overrides settings with any variables that are set.
func (e Environment) Apply(s *Settings) {
	if e.Endpoint != "" {
		s.Endpoint = e.Endpoint
	}
	if e.Timeout > 0 {
		s.TimeoutSeconds = int((e.Timeout + time.Second - 1) / time.Second)
	}
}

// Effective returns the settings in use: the file's settings with the
// environment overrides applied. The registry keeps the file's values, so
// Save never writes an override to disk.
func (r *Registry) Effective() *Settings {
	s := *DefaultSettings()
	if r.Settings != nil {
		s = *r.Settings
	}
	if s.Server != nil {
		server := *s.Server
		s.Server = &server
	}
	r.env.Apply(&s)
	return &s
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
//   - MODELFINDER_CONFIG_DIR when set
//   - Linux: $XDG_CONFIG_HOME/modelfinder or $HOME/.config/modelfinder
//   - macOS: $HOME/.config/modelfinder
//   - Windows: %LOCALAPPDATA%\modelfinder
func GetConfigDir() (string, error) {
	e, err := LoadEnvironment()
	if err != nil {
		return "", err
	}
	if e.ConfigDir != "" {
		return e.ConfigDir, nil
	}

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// LoadRegistry loads the configuration registry from disk. Environment
// overrides are read alongside and exposed through Effective.
// A missing file yields the defaults.
// Thread-safe - multiple calls return the same instance.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		globalRegistry, globalRegistryErr = loadRegistryFromDisk()
	})
	return globalRegistry, globalRegistryErr
}

func loadRegistryFromDisk() (*Registry, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	registry, err := LoadRegistryFrom(configPath)
	if err != nil {
		return nil, err
	}

	e, err := LoadEnvironment()
	if err != nil {
		return nil, err
	}
	registry.env = e

	return registry, nil
}

// LoadRegistryFrom reads a registry from an explicit path.
// A missing file yields a new default registry.
func LoadRegistryFrom(configPath string) (*Registry, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys missing from the file keep their defaults
	registry := Registry{Settings: DefaultSettings()}
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if registry.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", registry.Version, CurrentVersion)
	}

	if registry.Settings == nil {
		registry.Settings = DefaultSettings()
	}
	registry.Settings.fillDefaults()

	return &registry, nil
}

// Save saves the registry to the default config path.
func (r *Registry) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return r.SaveTo(configPath)
}

// SaveTo writes the registry to configPath atomically.
func (r *Registry) SaveTo(configPath string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# modelfinder configuration
# Settings for the lookup tools and the most recent resolved serial numbers.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// SaveGlobal saves the global registry instance to disk.
func SaveGlobal() error {
	registry, err := LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	return registry.Save()
}

// CreateDefaultConfig writes a default configuration file, refusing to
// overwrite an existing one.
func CreateDefaultConfig() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(configPath); err == nil {
		return configPath, fmt.Errorf("config file already exists: %s", configPath)
	}
	return configPath, NewRegistry().SaveTo(configPath)
}
