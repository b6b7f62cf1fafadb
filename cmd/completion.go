package cmd

import (
	"fmt"
)

// Completion outputs shell completion scripts
func Completion(shell string) error {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish)", shell)
	}
	return nil
}

const bashCompletion = `_credvault() {
    local cur prev words cword
    _init_completion || return

    local commands="setup read save passwd biometry status clean compact completion help"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands --config" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        setup|save|passwd)
            COMPREPLY=($(compgen -W "--biometry" -- "$cur"))
            ;;
        read)
            COMPREPLY=($(compgen -W "--biometry --password" -- "$cur"))
            ;;
        biometry)
            COMPREPLY=($(compgen -W "enroll probe status" -- "$cur"))
            ;;
        clean)
            COMPREPLY=($(compgen -W "--force" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _credvault credvault
`

const zshCompletion = `#compdef credvault

_credvault() {
    local -a commands
    commands=(
        'setup:Store a secret and set the unlock code'
        'read:Unlock the vault and print the secret'
        'save:Replace the stored secret'
        'passwd:Change the unlock code'
        'biometry:Manage biometric unlock'
        'status:Show vault status'
        'clean:Erase the vault'
        'compact:Compact vault to reclaim disk space'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'credvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                setup|save|passwd)
                    _arguments '--biometry[Use the fingerprint sensor]'
                    ;;
                read)
                    _arguments \
                        '--biometry[Unlock with the fingerprint sensor]' \
                        '--password[Print only the password]'
                    ;;
                biometry)
                    _values 'subcommand' enroll probe status
                    ;;
                clean)
                    _arguments '--force[Erase without confirmation]'
                    ;;
                help)
                    _describe -t commands 'credvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_credvault "$@"
`

const fishCompletion = `# credvault fish completions

set -l commands setup read save passwd biometry status clean compact help completion

complete -c credvault -f

# Commands
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a setup -d 'Store a secret'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a read -d 'Print the secret'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a save -d 'Replace the secret'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change the unlock code'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a biometry -d 'Manage biometric unlock'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a clean -d 'Erase the vault'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c credvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# flags
complete -c credvault -n "__fish_seen_subcommand_from setup save passwd read" -l biometry -d 'Use the fingerprint sensor'
complete -c credvault -n "__fish_seen_subcommand_from read" -l password -d 'Print only the password'
complete -c credvault -n "__fish_seen_subcommand_from clean" -l force -d 'Erase without confirmation'

# biometry subcommands
complete -c credvault -n "__fish_seen_subcommand_from biometry" -a "enroll probe status"

# help completions
complete -c credvault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c credvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
