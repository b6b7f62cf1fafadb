package cmd

import (
	"context"
	"fmt"
	"os"
)

// Read unlocks the vault and prints the stored credential
func Read(ctx context.Context, app *App, biometry, passwordOnly bool) error {
	cred, err := Unlock(ctx, app, biometry)
	if err != nil {
		return err
	}

	if cred.IsZero() {
		fmt.Fprintln(os.Stderr, "No secret stored")
		return nil
	}

	if passwordOnly {
		fmt.Println(cred.Password)
		return nil
	}
	fmt.Printf("login: %s\n", cred.Login)
	fmt.Printf("password: %s\n", cred.Password)
	return nil
}
