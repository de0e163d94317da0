package totp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"github.com/otpdeck/otpdeck/internal/secure"
)

// ErrInvalidSecret is returned when a secret has no decodable Base32 content
var ErrInvalidSecret = errors.New("totp: invalid secret")

var rawBase32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Normalize strips every character outside the Base32 alphabet (A-Z, 2-7,
// case-insensitive) and uppercases what is left. It never fails: input with
// no valid characters normalizes to the empty string.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, c := range raw {
		switch {
		case c >= 'A' && c <= 'Z', c >= '2' && c <= '7':
			b.WriteRune(c)
		case c >= 'a' && c <= 'z':
			b.WriteRune(c - 'a' + 'A')
		}
	}

	return b.String()
}

// DecodeSecret normalizes raw and decodes it to key bytes. Padding is not
// required, but the normalized length must be a valid unpadded Base32
// length: a string whose last character cannot complete a byte (length 1, 3
// or 6 mod 8) is not decodable.
// The caller owns the returned slice and should zero it after use.
func DecodeSecret(raw string) ([]byte, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil, fmt.Errorf("%w: no base32 characters", ErrInvalidSecret)
	}
	// The decoder drops a dangling final character instead of failing
	switch len(normalized) % 8 {
	case 1, 3, 6:
		return nil, fmt.Errorf("%w: invalid base32 length %d", ErrInvalidSecret, len(normalized))
	}

	key, err := rawBase32.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: secret decodes to zero bytes", ErrInvalidSecret)
	}

	return key, nil
}

// ValidateAndNormalizeSecret returns the canonical form of a secret that is
// safe to store, or ErrInvalidSecret
func ValidateAndNormalizeSecret(raw string) (string, error) {
	key, err := DecodeSecret(raw)
	if err != nil {
		return "", err
	}
	defer secure.SecureZeroBytes(key)

	return Normalize(raw), nil
}
