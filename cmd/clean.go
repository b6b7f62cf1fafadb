package cmd

import (
	"fmt"
	"os"
)

// Clean erases the vault after confirmation
func Clean(app *App, force bool) error {
	if !force && !Confirm("Erase the stored secret and all unlock factors?") {
		fmt.Fprintln(os.Stderr, "Aborted")
		return nil
	}

	if err := app.Vault.Clean(); err != nil {
		return err
	}
	if err := app.Store.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("Vault erased")
	return nil
}
