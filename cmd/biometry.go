package cmd

import (
	"context"
	"fmt"
	"os"
)

// Biometry runs a biometry subcommand: enroll, probe or status
func Biometry(ctx context.Context, app *App, sub string) error {
	switch sub {
	case "enroll":
		if _, err := Unlock(ctx, app, false); err != nil {
			return err
		}
		return EnrollBiometry(ctx, app)

	case "probe":
		changed, err := app.Vault.HasBiometryChanged(ctx)
		if err != nil {
			return err
		}
		if changed {
			fmt.Println("Biometric enrollment changed")
			return nil
		}
		fmt.Println("Biometric enrollment unchanged")
		return nil

	case "status":
		return biometryStatus(ctx, app)

	default:
		return fmt.Errorf("unknown biometry subcommand: %s", sub)
	}
}

func biometryStatus(ctx context.Context, app *App) error {
	status, err := app.Vault.Status()
	if err != nil {
		return err
	}

	fmt.Printf("Provider: %s\n", app.Config.Biometric.Provider)
	if err := app.Authenticator.Availability(ctx); err != nil {
		fmt.Printf("Available: no (%s)\n", err)
	} else {
		fmt.Println("Available: yes")
	}

	if !status.BiometryConfigured {
		fmt.Println("Enabled: no")
		return nil
	}
	fmt.Println("Enabled: yes")
	fmt.Printf("Failed attempts: %d/%d\n", status.BiometryAttempts, status.MaxAttempts)
	if status.BiometryAttempts >= status.MaxAttempts {
		fmt.Fprintln(os.Stderr, "Biometric unlock is disabled until the next unlock with the code")
	}
	return nil
}
