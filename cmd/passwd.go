package cmd

import (
	"context"
	"fmt"
	"os"
)

// Passwd changes the unlock code
func Passwd(ctx context.Context, app *App, biometry bool) error {
	if _, err := Unlock(ctx, app, biometry); err != nil {
		return err
	}

	if err := SetCode(app); err != nil {
		return err
	}

	// Old ciphertexts stay in free pages until compaction
	if err := app.Store.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("Unlock code changed")
	return nil
}
