package mocks

import "time"

// MockProvider is a mock implementation of the totp.Provider interface
type MockProvider struct {
	GenerateFunc                 func(secret string) (string, error)
	GenerateConsecutiveCodesFunc func(secret string) (current string, next string, err error)
	GenerateForTimeFunc          func(secret string, t time.Time) (string, error)
	VerifyFunc                   func(code, secret string) bool
	IsValidSecretFunc            func(secret string) bool
	SecondsRemainingFunc         func() int64
}

// Generate implements the totp.Provider interface
func (m *MockProvider) Generate(secret string) (string, error) {
	return m.GenerateFunc(secret)
}

// GenerateConsecutiveCodes implements the totp.Provider interface
func (m *MockProvider) GenerateConsecutiveCodes(secret string) (current string, next string, err error) {
	return m.GenerateConsecutiveCodesFunc(secret)
}

// GenerateForTime implements the totp.Provider interface
func (m *MockProvider) GenerateForTime(secret string, t time.Time) (string, error) {
	return m.GenerateForTimeFunc(secret, t)
}

// Verify implements the totp.Provider interface
func (m *MockProvider) Verify(code, secret string) bool {
	return m.VerifyFunc(code, secret)
}

// IsValidSecret implements the totp.Provider interface
func (m *MockProvider) IsValidSecret(secret string) bool {
	if m.IsValidSecretFunc == nil {
		return true
	}
	return m.IsValidSecretFunc(secret)
}

// SecondsRemaining implements the totp.Provider interface
func (m *MockProvider) SecondsRemaining() int64 {
	if m.SecondsRemainingFunc == nil {
		return 30
	}
	return m.SecondsRemainingFunc()
}
