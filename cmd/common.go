package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/illarion/credvault/internal/biometric"
	"github.com/illarion/credvault/internal/config"
	"github.com/illarion/credvault/internal/crypto"
	"github.com/illarion/credvault/internal/vault"
)

var errCodeMismatch = errors.New("unlock codes do not match")

var stdin = bufio.NewReader(os.Stdin)

// UnlockPrompt is shown by the biometric provider
var UnlockPrompt = biometric.Prompt{
	Title:      "Unlock credvault",
	Subtitle:   "Confirm your identity",
	CancelText: "Use unlock code",
}

// ReadSecret reads a line from the terminal without echoing
func ReadSecret(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return secret, nil
}

// ReadLine reads one echoed line from stdin
func ReadLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// CodeFromEnv returns the unlock code from CREDVAULT_CODE, or nil
func CodeFromEnv() []byte {
	code := os.Getenv(config.EnvCode)
	if code == "" {
		return nil
	}
	return []byte(code)
}

// GetCode retrieves the unlock code from the environment or prompts for it.
// The caller clears the returned slice.
func GetCode(prompt string) ([]byte, error) {
	if code := CodeFromEnv(); code != nil {
		return code, nil
	}
	return ReadSecret(prompt)
}

// GetNewCode reads a new unlock code twice, or takes it from the environment
func GetNewCode() ([]byte, error) {
	if code := CodeFromEnv(); code != nil {
		return code, nil
	}

	code1, err := ReadSecret("New unlock code: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(code1)

	code2, err := ReadSecret("Confirm unlock code: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(code2)

	if !crypto.ConstantTimeCompare(code1, code2) {
		return nil, errCodeMismatch
	}

	result := make([]byte, len(code1))
	copy(result, code1)
	return result, nil
}

// ReadCredential prompts for a login and a password
func ReadCredential() (vault.Credential, error) {
	login, err := ReadLine("Login: ")
	if err != nil {
		return vault.Credential{}, err
	}
	password, err := ReadSecret("Password: ")
	if err != nil {
		return vault.Credential{}, err
	}
	defer crypto.ClearBytes(password)

	return vault.Credential{Login: login, Password: string(password)}, nil
}

// Confirm asks a yes/no question, defaulting to no
func Confirm(question string) bool {
	answer, err := ReadLine(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// Unlock opens the vault with the biometric factor when asked to, falling
// back to the unlock code. An empty vault is already unlocked.
func Unlock(ctx context.Context, app *App, biometry bool) (vault.Credential, error) {
	state, err := app.Vault.State()
	if err != nil {
		return vault.Credential{}, err
	}
	if state == vault.StateUnlocked {
		cred, _, err := app.Vault.Read()
		return cred, err
	}

	if biometry {
		cred, err := app.Vault.UnlockByBiometry(ctx, UnlockPrompt)
		if err == nil {
			return cred, nil
		}
		switch vault.KindOf(err) {
		case vault.KindBiometricUnavailable, vault.KindNotSetUp, vault.KindKeyInvalidated,
			vault.KindTooManyAttempts, vault.KindCanceled, vault.KindWrongFactor:
			fmt.Fprintf(os.Stderr, "Biometric unlock failed: %s\n", describe(err))
		default:
			return vault.Credential{}, err
		}
		if ctx.Err() != nil {
			return vault.Credential{}, err
		}
	}

	return unlockByCode(app)
}

// unlockByCode prompts until the code is accepted. A code from the
// environment gets a single try.
func unlockByCode(app *App) (vault.Credential, error) {
	fromEnv := CodeFromEnv() != nil
	for {
		code, err := GetCode("Unlock code: ")
		if err != nil {
			return vault.Credential{}, err
		}
		cred, err := app.Vault.UnlockByCode(string(code))
		crypto.ClearBytes(code)

		if err == nil {
			return cred, nil
		}
		if fromEnv || !errors.Is(err, vault.ErrWrongFactor) {
			return vault.Credential{}, err
		}
		fmt.Fprintf(os.Stderr, "%s\n", describe(err))
	}
}

// SetCode reads a new unlock code and seals the vault under it
func SetCode(app *App) error {
	code, err := GetNewCode()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(code)

	if len(code) == 0 {
		return errors.New("unlock code must not be empty")
	}
	return app.Vault.SetUnlockCode(string(code))
}

func describe(err error) string {
	var e *vault.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// HandleError prints a message for err and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, vault.ErrNotSetUp):
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		fmt.Fprintf(os.Stderr, "Run 'credvault setup' first\n")
	case errors.Is(err, vault.ErrNotUnlocked):
		fmt.Fprintf(os.Stderr, "Error: vault is locked\n")
	case errors.Is(err, vault.ErrWrongFactor):
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
	case errors.Is(err, vault.ErrTooManyAttempts):
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		if vault.CodeOf(err) == vault.CodePINTooMany {
			fmt.Fprintf(os.Stderr, "Run 'credvault setup' to store a new secret\n")
		}
	case errors.Is(err, vault.ErrKeyInvalidated):
		fmt.Fprintf(os.Stderr, "Error: biometric enrollment changed since setup\n")
		fmt.Fprintf(os.Stderr, "Run 'credvault biometry enroll' to enable biometric unlock again\n")
	case errors.Is(err, vault.ErrBiometricUnavailable):
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
	case errors.Is(err, vault.ErrCanceled):
		fmt.Fprintf(os.Stderr, "Canceled\n")
	case errors.Is(err, vault.ErrContextUnavailable):
		fmt.Fprintf(os.Stderr, "Error: cannot read the device identifier\n")
		fmt.Fprintf(os.Stderr, "Check that /etc/machine-id exists and is readable\n")
	case errors.Is(err, errAlreadySetUp):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'credvault save' to replace it or 'credvault clean' to erase it\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
