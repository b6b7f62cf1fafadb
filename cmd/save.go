package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/credvault/internal/vault"
)

// Save replaces the stored credential. Factors whose copy could not be
// resealed are set up again.
func Save(ctx context.Context, app *App, biometry bool) error {
	if _, err := Unlock(ctx, app, biometry); err != nil {
		return err
	}

	cred, err := ReadCredential()
	if err != nil {
		return err
	}

	res, err := app.Vault.Save(cred)
	if errors.Is(err, vault.ErrNotSetUp) {
		// The fingerprint authorization expired while the credential was typed
		fmt.Fprintln(os.Stderr, "Fingerprint authorization expired, enter the unlock code")
		if _, err := unlockByCode(app); err != nil {
			return err
		}
		res, err = app.Vault.Save(cred)
	}
	if err != nil {
		return err
	}

	biometricDropped := false
	for _, f := range res.Dropped {
		if f == vault.FactorBiometric {
			biometricDropped = true
		}
	}

	status, err := app.Vault.Status()
	if err != nil {
		return err
	}
	if !status.PINConfigured {
		fmt.Fprintln(os.Stderr, "Set an unlock code for the new secret")
		if err := SetCode(app); err != nil {
			return err
		}
	}
	fmt.Println("Secret saved")

	if biometricDropped {
		if biometry {
			return EnrollBiometry(ctx, app)
		}
		fmt.Fprintln(os.Stderr, "Biometric unlock was reset")
		fmt.Fprintln(os.Stderr, "Run 'credvault biometry enroll' to enable it again")
	}
	return nil
}
