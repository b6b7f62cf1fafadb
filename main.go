package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/credvault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("credvault", flag.ExitOnError)
	configPath := global.String("config", "", "Path to the configuration file")
	global.Usage = printUsage
	if err := global.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "setup":
		runSetup(ctx, *configPath, args[1:])
	case "read":
		runRead(ctx, *configPath, args[1:])
	case "save":
		runSave(ctx, *configPath, args[1:])
	case "passwd":
		runPasswd(ctx, *configPath, args[1:])
	case "biometry":
		runBiometry(ctx, *configPath, args[1:])
	case "status":
		runStatus(ctx, *configPath, args[1:])
	case "clean":
		runClean(ctx, *configPath, args[1:])
	case "compact":
		runCompact(ctx, *configPath, args[1:])
	case "completion":
		runCompletion(ctx, args[1:])
	case "help", "-h", "--help":
		if len(args) <= 1 {
			printUsage()
			return
		}
		printCommandHelp(args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

// withApp opens the vault, runs fn and closes the vault before reporting
// fn's error, so metrics are exported on failures too
func withApp(configPath string, fn func(app *cmd.App) error) {
	app := cmd.OpenOrExit(configPath)
	err := fn(app)
	app.Close()
	if err != nil {
		cmd.HandleError(err)
	}
}

func runSetup(ctx context.Context, configPath string, args []string) {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	biometry := fs.Bool("biometry", false, "Also enable biometric unlock")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	withApp(configPath, func(app *cmd.App) error {
		return cmd.Setup(ctx, app, *biometry)
	})
}

func runRead(ctx context.Context, configPath string, args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	biometry := fs.Bool("biometry", false, "Unlock with the fingerprint sensor")
	passwordOnly := fs.Bool("password", false, "Print only the password")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	withApp(configPath, func(app *cmd.App) error {
		return cmd.Read(ctx, app, *biometry, *passwordOnly)
	})
}

func runSave(ctx context.Context, configPath string, args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	biometry := fs.Bool("biometry", false, "Unlock with, and re-enable, the fingerprint sensor")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	withApp(configPath, func(app *cmd.App) error {
		return cmd.Save(ctx, app, *biometry)
	})
}

func runPasswd(ctx context.Context, configPath string, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	biometry := fs.Bool("biometry", false, "Unlock with the fingerprint sensor")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	withApp(configPath, func(app *cmd.App) error {
		return cmd.Passwd(ctx, app, *biometry)
	})
}

func runBiometry(ctx context.Context, configPath string, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: credvault biometry <enroll|probe|status>")
		os.Exit(1)
	}

	withApp(configPath, func(app *cmd.App) error {
		return cmd.Biometry(ctx, app, args[0])
	})
}

func runStatus(_ context.Context, configPath string, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	withApp(configPath, cmd.Status)
}

func runClean(_ context.Context, configPath string, args []string) {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	force := fs.Bool("force", false, "Erase without confirmation")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	withApp(configPath, func(app *cmd.App) error {
		return cmd.Clean(app, *force)
	})
}

func runCompact(_ context.Context, configPath string, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	withApp(configPath, cmd.Compact)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: credvault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	if err := cmd.Completion(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("credvault - Local credential vault with code and fingerprint unlock")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  credvault [--config <file>] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  setup       Store a secret and set the unlock code")
	fmt.Println("  read        Unlock the vault and print the secret")
	fmt.Println("  save        Replace the stored secret")
	fmt.Println("  passwd      Change the unlock code")
	fmt.Println("  biometry    Manage fingerprint unlock")
	fmt.Println("  status      Show vault status")
	fmt.Println("  clean       Erase the vault")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  credvault setup --biometry        # Store a secret, enable fingerprint unlock")
	fmt.Println("  credvault read --biometry         # Unlock with a fingerprint")
	fmt.Println("  credvault read --password         # Print only the password")
	fmt.Println("  credvault status                  # Check vault status")
	fmt.Println()
	fmt.Println("Use 'credvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "setup":
		fmt.Println("credvault setup [--biometry]")
		fmt.Println()
		fmt.Println("Stores a login and password in an empty vault and protects them")
		fmt.Println("with an unlock code. The code is read from CREDVAULT_CODE when set.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --biometry   Also enable fingerprint unlock")
	case "read":
		fmt.Println("credvault read [--biometry] [--password]")
		fmt.Println()
		fmt.Println("Unlocks the vault and prints the stored credential.")
		fmt.Println("Three wrong unlock codes in a row erase the vault.")
		fmt.Println("Three failed fingerprint reads disable fingerprint unlock until")
		fmt.Println("the next unlock with the code.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --biometry   Unlock with the fingerprint sensor, falling back to the code")
		fmt.Println("  --password   Print only the password")
	case "save":
		fmt.Println("credvault save [--biometry]")
		fmt.Println()
		fmt.Println("Unlocks the vault and replaces the stored credential.")
		fmt.Println("Fingerprint unlock is reset by every save; with --biometry it is")
		fmt.Println("enabled again right away.")
	case "passwd":
		fmt.Println("credvault passwd [--biometry]")
		fmt.Println()
		fmt.Println("Unlocks the vault and changes the unlock code.")
	case "biometry":
		fmt.Println("credvault biometry <enroll|probe|status>")
		fmt.Println()
		fmt.Println("  enroll   Enable fingerprint unlock (requires the unlock code)")
		fmt.Println("  probe    Report whether enrolled fingerprints changed since the last probe")
		fmt.Println("  status   Show fingerprint availability and failed attempts")
	case "status":
		fmt.Println("credvault status")
		fmt.Println()
		fmt.Println("Shows the vault state, configured unlock factors and failed attempts.")
		fmt.Println("Does not require the unlock code.")
	case "clean":
		fmt.Println("credvault clean [--force]")
		fmt.Println()
		fmt.Println("Erases the stored secret, the unlock code and the fingerprint key.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --force   Erase without confirmation")
	case "compact":
		fmt.Println("credvault compact")
		fmt.Println()
		fmt.Println("Compacts the vault database to reclaim unused disk space.")
		fmt.Println("This is done automatically after 'passwd' and 'clean'.")
	case "completion":
		fmt.Println("credvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(credvault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(credvault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  credvault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
