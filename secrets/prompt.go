package secrets

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rgb-tools/iris-wallet-core/flavour"
	"golang.org/x/term"
)

// Credentials is a mnemonic/password pair obtained interactively when the
// keyring is unavailable.
type Credentials struct {
	Mnemonic string
	Password string
}

// Prompter obtains credentials from the user. The GUI installs its own
// dialog-backed implementation; TerminalPrompter serves headless runs.
type Prompter interface {
	// PromptCredentials asks the user for the wallet mnemonic and
	// password.
	PromptCredentials(reason string) (*Credentials, error)

	// PromptPassword asks for the wallet password only.
	PromptPassword(reason string) (string, error)
}

// PromptStore adapts a Prompter to the Store interface for the
// prompt-each-time secret flow. It never persists anything: reads of the
// password and mnemonic keys go through the prompter, writes succeed
// silently so callers need not special-case the mode, and everything else
// is absent.
type PromptStore struct {
	prompter Prompter
}

// NewPromptStore returns a Store that asks the user on each read.
func NewPromptStore(prompter Prompter) *PromptStore {
	return &PromptStore{prompter: prompter}
}

// SetSecret discards the value; prompt-mode secrets live only with the user.
func (p *PromptStore) SetSecret(string, string, flavour.Network) error {
	return nil
}

// GetSecret prompts for the requested secret.
func (p *PromptStore) GetSecret(key string,
	network flavour.Network) (string, error) {

	switch key {
	case KeyWalletPassword:
		return p.prompter.PromptPassword(
			"wallet password required",
		)

	case KeyMnemonic:
		creds, err := p.prompter.PromptCredentials(
			"wallet mnemonic required",
		)
		if err != nil {
			return "", err
		}
		return creds.Mnemonic, nil
	}

	return "", ErrNotFound
}

// DeleteSecret is a no-op since nothing is stored.
func (p *PromptStore) DeleteSecret(string, flavour.Network) error {
	return nil
}

// TerminalPrompter reads credentials from the controlling terminal without
// echoing the password.
type TerminalPrompter struct{}

// PromptCredentials implements Prompter.
func (TerminalPrompter) PromptCredentials(
	reason string) (*Credentials, error) {

	fmt.Printf("%s\n", reason)
	fmt.Print("Mnemonic: ")

	reader := bufio.NewReader(os.Stdin)
	mnemonic, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("unable to read mnemonic: %w", err)
	}

	password, err := TerminalPrompter{}.PromptPassword("")
	if err != nil {
		return nil, err
	}

	return &Credentials{
		Mnemonic: strings.TrimSpace(mnemonic),
		Password: password,
	}, nil
}

// PromptPassword implements Prompter.
func (TerminalPrompter) PromptPassword(reason string) (string, error) {
	if reason != "" {
		fmt.Printf("%s\n", reason)
	}
	fmt.Print("Password: ")

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("unable to read password: %w", err)
	}

	return string(raw), nil
}
