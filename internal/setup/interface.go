package setup

import "github.com/otpdeck/otpdeck/internal/vault"

// WizardRunner collects input that must be typed by the user
type WizardRunner interface {
	// RunTOTP asks for the details of a new entry. A non-empty name skips
	// the name prompt.
	RunTOTP(name string) (vault.Entry, error)

	// Secret reads a TOTP secret without echo and returns it normalized
	Secret() (string, error)

	// Passphrase reads the vault passphrase without echo. With confirm set
	// it is asked twice and both must match.
	Passphrase(confirm bool) ([]byte, error)
}

// LineReader reads one line of visible input
type LineReader interface {
	ReadString(delim byte) (string, error)
}

// SecretReader reads one line of input without echoing it
type SecretReader func() ([]byte, error)
