// Package config loads credvault configuration from YAML with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvConfig            = "CREDVAULT_CONFIG"
	EnvStoreDriver       = "CREDVAULT_STORE_DRIVER"
	EnvStorePath         = "CREDVAULT_STORE_PATH"
	EnvLogLevel          = "CREDVAULT_LOG_LEVEL"
	EnvLogFormat         = "CREDVAULT_LOG_FORMAT"
	EnvBiometricProvider = "CREDVAULT_BIOMETRIC_PROVIDER"
	EnvMetricsTextfile   = "CREDVAULT_METRICS_TEXTFILE"
	EnvMaxAttempts       = "CREDVAULT_MAX_ATTEMPTS"
	// EnvCode supplies the unlock code to non-interactive callers
	EnvCode = "CREDVAULT_CODE"
)

// Biometric providers
const (
	ProviderFprintd = "fprintd"
	ProviderNone    = "none"
)

// Config is the complete credvault configuration
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Device    DeviceConfig    `yaml:"device"`
	Biometric BiometricConfig `yaml:"biometric"`
	Lockout   LockoutConfig   `yaml:"lockout"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string `yaml:"driver"` // bolt or sqlite
	Path   string `yaml:"path"`
}

// DeviceConfig scopes the device identifier
type DeviceConfig struct {
	// AppID keys the machine id; changing it orphans existing vaults
	AppID string `yaml:"app_id"`
}

// BiometricConfig configures the biometric factor
type BiometricConfig struct {
	Provider string `yaml:"provider"` // fprintd or none
	User     string `yaml:"user"`
	Finger   string `yaml:"finger"`
	// KeyringService is the OS keyring service holding hardware keys
	KeyringService string        `yaml:"keyring_service"`
	Validity       time.Duration `yaml:"validity"`
	BusyTimeout    time.Duration `yaml:"busy_timeout"`
}

// LockoutConfig configures attempt limits
type LockoutConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// LoggingConfig configures zerolog output
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// MetricsConfig configures the Prometheus textfile export
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "bolt",
			Path:   filepath.Join(dataDir(), "vault.db"),
		},
		Device: DeviceConfig{AppID: "credvault"},
		Biometric: BiometricConfig{
			Provider:       ProviderFprintd,
			User:           os.Getenv("USER"),
			KeyringService: "credvault",
			Validity:       30 * time.Second,
			BusyTimeout:    2 * time.Second,
		},
		Lockout: LockoutConfig{MaxAttempts: 3},
		Logging: LoggingConfig{Level: "warn", Format: "console"},
	}
}

// Resolve loads the configuration from flagPath, $CREDVAULT_CONFIG or the
// default location, in that order. A missing default file is not an error.
func Resolve(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		return Load(path)
	}

	path = DefaultPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// Load reads a YAML file on top of Default, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	// #nosec G304 - config path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if driver := os.Getenv(EnvStoreDriver); driver != "" {
		cfg.Store.Driver = driver
	}
	if path := os.Getenv(EnvStorePath); path != "" {
		cfg.Store.Path = path
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv(EnvLogFormat); format != "" {
		cfg.Logging.Format = format
	}
	if provider := os.Getenv(EnvBiometricProvider); provider != "" {
		cfg.Biometric.Provider = provider
	}
	if textfile := os.Getenv(EnvMetricsTextfile); textfile != "" {
		cfg.Metrics.Textfile = textfile
	}
	if maxAttempts := os.Getenv(EnvMaxAttempts); maxAttempts != "" {
		n, err := strconv.Atoi(maxAttempts)
		if err != nil || n < 1 {
			log.Warn().Str("value", maxAttempts).Int("default", cfg.Lockout.MaxAttempts).
				Msg("ignoring invalid " + EnvMaxAttempts)
		} else {
			cfg.Lockout.MaxAttempts = n
		}
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	switch c.Biometric.Provider {
	case ProviderFprintd, ProviderNone:
	default:
		return fmt.Errorf("unknown biometric provider %q", c.Biometric.Provider)
	}
	if c.Biometric.Validity <= 0 {
		return fmt.Errorf("biometric validity must be positive")
	}
	if c.Biometric.BusyTimeout <= 0 {
		return fmt.Errorf("biometric busy_timeout must be positive")
	}

	if c.Lockout.MaxAttempts < 1 {
		return fmt.Errorf("lockout max_attempts must be at least 1")
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/credvault/config.yaml
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "credvault", "config.yaml")
}

func dataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "credvault")
}
