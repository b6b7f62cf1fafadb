package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/illarion/credvault/internal/biometric"
	"github.com/illarion/credvault/internal/config"
	"github.com/illarion/credvault/internal/device"
	"github.com/illarion/credvault/internal/keystore"
	"github.com/illarion/credvault/internal/logging"
	"github.com/illarion/credvault/internal/metrics"
	"github.com/illarion/credvault/internal/storage"
	"github.com/illarion/credvault/internal/vault"
)

// App is a vault opened from configuration for one command
type App struct {
	Config        *config.Config
	Log           zerolog.Logger
	Store         storage.Store
	Authenticator biometric.Authenticator
	Keys          *keystore.Keyring
	Metrics       *metrics.Recorder
	Vault         *vault.Vault
}

// Open resolves configuration and wires the vault
func Open(configPath string) (*App, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	vaultID, err := store.VaultID()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to read vault id: %w", err)
	}

	app := &App{
		Config:  cfg,
		Log:     logger,
		Store:   store,
		Metrics: metrics.NewRecorder(),
	}

	var enrollment keystore.EnrollmentSource
	switch cfg.Biometric.Provider {
	case config.ProviderFprintd:
		fp := biometric.NewFprintd(cfg.Biometric.User,
			biometric.WithFinger(cfg.Biometric.Finger),
			biometric.WithPromptWriter(os.Stderr),
		)
		app.Authenticator = fp
		enrollment = fp
	default:
		app.Authenticator = biometric.Unsupported{}
		enrollment = biometric.Unsupported{}
	}

	app.Keys = keystore.NewKeyring(vaultID, enrollment,
		keystore.WithService(cfg.Biometric.KeyringService),
		keystore.WithValidity(cfg.Biometric.Validity),
	)

	v, err := vault.New(vault.Options{
		Store:         store,
		Device:        device.NewMachineID(cfg.Device.AppID),
		Keys:          app.Keys,
		Authenticator: app.Authenticator,
		MaxAttempts:   cfg.Lockout.MaxAttempts,
		BusyTimeout:   cfg.Biometric.BusyTimeout,
		Logger:        &logger,
		Metrics:       app.Metrics,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	app.Vault = v

	logger.Debug().
		Str("driver", cfg.Store.Driver).
		Str("path", cfg.Store.Path).
		Str("provider", cfg.Biometric.Provider).
		Msg("vault opened")
	return app, nil
}

// Close exports metrics and closes the vault
func (a *App) Close() {
	if err := a.Metrics.WriteTextfile(a.Config.Metrics.Textfile); err != nil {
		a.Log.Warn().Err(err).Str("path", a.Config.Metrics.Textfile).Msg("failed to write metrics")
	}
	if err := a.Vault.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("failed to close vault")
	}
}

// OpenOrExit is like Open but exits on error
func OpenOrExit(configPath string) *App {
	app, err := Open(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return app
}
