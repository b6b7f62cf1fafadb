package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "bolt", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Biometric.BusyTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "credvault", cfg.Device.AppID)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
  path: /tmp/credvault-test.db
biometric:
  provider: none
  validity: 10s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/credvault-test.db", cfg.Store.Path)
	assert.Equal(t, ProviderNone, cfg.Biometric.Provider)
	assert.Equal(t, 10*time.Second, cfg.Biometric.Validity)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Unset fields keep their defaults
	assert.Equal(t, "credvault", cfg.Device.AppID)
	assert.Equal(t, 2*time.Second, cfg.Biometric.BusyTimeout)
	assert.Equal(t, 3, cfg.Lockout.MaxAttempts)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: bolt\n")

	t.Setenv(EnvStoreDriver, "sqlite")
	t.Setenv(EnvStorePath, "/tmp/override.db")
	t.Setenv(EnvLogLevel, "info")
	t.Setenv(EnvBiometricProvider, "none")
	t.Setenv(EnvMetricsTextfile, "/tmp/credvault.prom")
	t.Setenv(EnvMaxAttempts, "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/override.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ProviderNone, cfg.Biometric.Provider)
	assert.Equal(t, "/tmp/credvault.prom", cfg.Metrics.Textfile)
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
}

func TestInvalidMaxAttemptsEnvIgnored(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv(EnvMaxAttempts, "zero")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Lockout.MaxAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }},
		{"empty path", func(c *Config) { c.Store.Path = "" }},
		{"unknown provider", func(c *Config) { c.Biometric.Provider = "faceid" }},
		{"zero validity", func(c *Config) { c.Biometric.Validity = 0 }},
		{"zero busy timeout", func(c *Config) { c.Biometric.BusyTimeout = 0 }},
		{"zero attempts", func(c *Config) { c.Lockout.MaxAttempts = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "store: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "store:\n  driver: redis\n"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvConfig, "")

	// No file anywhere: defaults
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store.Driver)

	// Environment path
	envPath := writeConfig(t, "store:\n  driver: sqlite\n")
	t.Setenv(EnvConfig, envPath)
	cfg, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)

	// Flag wins over environment
	flagPath := writeConfig(t, "logging:\n  level: error\n")
	cfg, err = Resolve(flagPath)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store.Driver)
	assert.Equal(t, "error", cfg.Logging.Level)
}
