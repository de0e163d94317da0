package mocks

import (
	"github.com/otpdeck/otpdeck/internal/setup"
	"github.com/otpdeck/otpdeck/internal/vault"
)

// MockWizardRunner is a mock implementation of setup.WizardRunner
type MockWizardRunner struct {
	RunTOTPFunc    func(name string) (vault.Entry, error)
	SecretFunc     func() (string, error)
	PassphraseFunc func(confirm bool) ([]byte, error)
}

// Ensure MockWizardRunner implements setup.WizardRunner interface
var _ setup.WizardRunner = (*MockWizardRunner)(nil)

// RunTOTP implements the setup.WizardRunner interface
func (m *MockWizardRunner) RunTOTP(name string) (vault.Entry, error) {
	return m.RunTOTPFunc(name)
}

// Secret implements the setup.WizardRunner interface
func (m *MockWizardRunner) Secret() (string, error) {
	return m.SecretFunc()
}

// Passphrase implements the setup.WizardRunner interface
func (m *MockWizardRunner) Passphrase(confirm bool) ([]byte, error) {
	return m.PassphraseFunc(confirm)
}
