package cmd

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Status shows the vault state without unlocking it
func Status(app *App) error {
	return writeStatus(os.Stdout, app)
}

func writeStatus(w io.Writer, app *App) error {
	status, err := app.Vault.Status()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Vault: %s (%s)\n", app.Store.Path(), app.Config.Store.Driver)
	if modified, err := app.Store.Modified(); err == nil {
		fmt.Fprintf(w, "Last modified: %s\n", modified.Local().Format(time.RFC1123))
	}
	if status.Empty {
		fmt.Fprintln(w, "State: empty")
		fmt.Fprintln(w, "Run 'credvault setup' to store a secret")
		return nil
	}
	fmt.Fprintf(w, "State: %s\n", status.State)

	fields, err := app.Store.Keys()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Stored fields: %d\n", len(fields))

	fmt.Fprintln(w, "Unlock factors:")
	fmt.Fprintf(w, "  code      %s  failed attempts %d/%d\n",
		enabled(status.PINConfigured), status.PINAttempts, status.MaxAttempts)
	fmt.Fprintf(w, "  biometry  %s  failed attempts %d/%d\n",
		enabled(status.BiometryConfigured), status.BiometryAttempts, status.MaxAttempts)
	return nil
}

func enabled(b bool) string {
	if b {
		return "enabled "
	}
	return "disabled"
}
