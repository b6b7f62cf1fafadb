package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/credvault/internal/biometric"
)

var errAlreadySetUp = errors.New("vault already holds a secret")

// EnrollPrompt is shown when biometric unlock is enabled
var EnrollPrompt = biometric.Prompt{
	Title:       "Enable biometric unlock",
	Description: "Touch the sensor to protect the vault with your fingerprint",
	CancelText:  "Skip",
}

// Setup stores a new secret in an empty vault and protects it with an
// unlock code and, optionally, a fingerprint
func Setup(ctx context.Context, app *App, biometry bool) error {
	empty, err := app.Vault.IsEmpty()
	if err != nil {
		return err
	}
	if !empty {
		return errAlreadySetUp
	}

	cred, err := ReadCredential()
	if err != nil {
		return err
	}
	// The code must exist before the secret can be sealed
	if err := SetCode(app); err != nil {
		return err
	}
	if _, err := app.Vault.Save(cred); err != nil {
		if cerr := app.Vault.Clean(); cerr != nil {
			app.Log.Error().Err(cerr).Msg("failed to roll back setup")
		}
		return err
	}
	fmt.Println("Vault set up")

	if biometry {
		return EnrollBiometry(ctx, app)
	}
	return nil
}

// EnrollBiometry seals the unlocked secret under a new biometric key
func EnrollBiometry(ctx context.Context, app *App) error {
	fmt.Fprintln(os.Stderr, "Touch the fingerprint sensor...")
	if err := app.Vault.SetUnlockBiometry(ctx, EnrollPrompt); err != nil {
		return err
	}
	fmt.Println("Biometric unlock enabled")
	return nil
}
