package totp

import "time"

// Provider defines the interface for TOTP operations
type Provider interface {
	// Generate generates the code for the current window
	Generate(secret string) (string, error)

	// GenerateConsecutiveCodes generates the current and next codes
	GenerateConsecutiveCodes(secret string) (current string, next string, err error)

	// GenerateForTime generates the code for the window containing t
	GenerateForTime(secret string, t time.Time) (string, error)

	// Verify checks a submitted code against the current time
	Verify(code, secret string) bool

	// IsValidSecret reports whether the secret can produce a code
	IsValidSecret(secret string) bool

	// SecondsRemaining returns the seconds left in the current window
	SecondsRemaining() int64
}

// DefaultProvider implements Provider with fixed options and an injectable clock
type DefaultProvider struct {
	Options Options
	Now     func() time.Time
}

// Ensure DefaultProvider implements Provider interface
var _ Provider = (*DefaultProvider)(nil)

// NewDefaultProvider creates a new DefaultProvider using the wall clock
func NewDefaultProvider() Provider {
	return NewProvider(DefaultOptions(), time.Now)
}

// NewProvider creates a provider with the given options and clock
func NewProvider(opts Options, now func() time.Time) *DefaultProvider {
	if now == nil {
		now = time.Now
	}
	return &DefaultProvider{Options: opts, Now: now}
}

// Generate implements the Provider interface
func (p *DefaultProvider) Generate(secret string) (string, error) {
	return GenerateCustom(secret, p.Now(), p.Options)
}

// GenerateConsecutiveCodes implements the Provider interface
func (p *DefaultProvider) GenerateConsecutiveCodes(secret string) (current string, next string, err error) {
	return GenerateConsecutiveCodesCustom(secret, p.Now(), p.Options)
}

// GenerateForTime implements the Provider interface
func (p *DefaultProvider) GenerateForTime(secret string, t time.Time) (string, error) {
	return GenerateCustom(secret, t, p.Options)
}

// Verify implements the Provider interface
func (p *DefaultProvider) Verify(code, secret string) bool {
	return VerifyCustom(code, secret, p.Now(), p.Options)
}

// IsValidSecret implements the Provider interface
func (p *DefaultProvider) IsValidSecret(secret string) bool {
	_, err := GenerateCustom(secret, p.Now(), p.Options)
	return err == nil
}

// SecondsRemaining implements the Provider interface
func (p *DefaultProvider) SecondsRemaining() int64 {
	return SecondsRemaining(p.Now(), p.Options.Period)
}
