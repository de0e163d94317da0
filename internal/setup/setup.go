// Package setup holds the interactive prompts for adding entries and
// unlocking the vault
package setup

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/otpdeck/otpdeck/internal/secure"
	"github.com/otpdeck/otpdeck/internal/totp"
	"github.com/otpdeck/otpdeck/internal/vault"
)

// ErrPassphraseMismatch is returned when the confirmation differs
var ErrPassphraseMismatch = errors.New("passphrases do not match")

// Prompter implements WizardRunner over a line reader and a hidden input
// reader
type Prompter struct {
	In         LineReader
	Out        io.Writer
	ReadSecret SecretReader
}

// Ensure Prompter implements WizardRunner interface
var _ WizardRunner = (*Prompter)(nil)

// NewTerminalPrompter prompts on out and reads from in, which should be a
// terminal for hidden input to work
func NewTerminalPrompter(in *os.File, out io.Writer) *Prompter {
	return &Prompter{
		In:  bufio.NewReader(in),
		Out: out,
		ReadSecret: func() ([]byte, error) {
			return term.ReadPassword(int(in.Fd()))
		},
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RunTOTP implements WizardRunner
func (p *Prompter) RunTOTP(name string) (vault.Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		var err error
		name, err = p.ask("Enter name for this TOTP entry: ")
		if err != nil {
			return vault.Entry{}, err
		}
		if name == "" {
			return vault.Entry{}, fmt.Errorf("entry name cannot be empty")
		}
	}

	issuer, err := p.ask("Enter issuer (optional): ")
	if err != nil {
		return vault.Entry{}, err
	}

	secret, err := p.Secret()
	if err != nil {
		return vault.Entry{}, err
	}

	return vault.Entry{Name: name, Issuer: issuer, Secret: secret}, nil
}

// Secret implements WizardRunner
func (p *Prompter) Secret() (string, error) {
	fmt.Fprintln(p.Out, "Enter your TOTP secret key (this will not be echoed):")
	secret, err := p.ReadSecret()
	fmt.Fprintln(p.Out) // newline after the hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	defer secure.SecureZeroBytes(secret)

	return totp.ValidateAndNormalizeSecret(string(secret))
}

// Passphrase implements WizardRunner
func (p *Prompter) Passphrase(confirm bool) ([]byte, error) {
	fmt.Fprint(p.Out, "Vault passphrase: ")
	pass, err := p.ReadSecret()
	fmt.Fprintln(p.Out)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	pass = bytes.TrimRight(pass, "\r\n")
	if len(pass) == 0 {
		return nil, vault.ErrNoPassphrase
	}
	if !confirm {
		return pass, nil
	}

	fmt.Fprint(p.Out, "Confirm passphrase: ")
	again, err := p.ReadSecret()
	fmt.Fprintln(p.Out)
	if err != nil {
		secure.SecureZeroBytes(pass)
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	defer secure.SecureZeroBytes(again)

	if subtle.ConstantTimeCompare(pass, bytes.TrimRight(again, "\r\n")) != 1 {
		secure.SecureZeroBytes(pass)
		return nil, ErrPassphraseMismatch
	}

	return pass, nil
}

func (p *Prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	line, err := p.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
