// Package totp derives and checks time-based one-time passwords (RFC 6238)
// for Base32 shared secrets.
//
// Every function is a pure function of its arguments: the time is always
// passed in or sampled exactly once per call, so a generation and the
// validation that follows it agree on the same time step.
package totp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/otpdeck/otpdeck/internal/secure"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// Algorithm is the HMAC hash used to derive codes
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

const (
	DefaultPeriod uint = 30
	DefaultDigits      = 6
	DefaultSkew   uint = 1
	// MaxSkew bounds the periods checked on each side of the current one
	MaxSkew       uint = 10

	minDigits = 6
	maxDigits = 8

	// SecretSize is the length in bytes of secrets created by NewSecret
	SecretSize = 20
)

var (
	// ErrInvalidOptions is returned for unsupported digit counts or algorithms
	ErrInvalidOptions = errors.New("totp: invalid options")
	// ErrInvalidTime is returned for times before the Unix epoch
	ErrInvalidTime = errors.New("totp: time before unix epoch")
)

// Options controls code derivation. Zero Period, Digits and Algorithm fall
// back to 30 seconds, 6 digits and SHA1. Skew is the number of periods
// checked on each side of the current one during verification; zero checks
// the current period only and values above MaxSkew are rejected.
type Options struct {
	Period    uint
	Digits    int
	Algorithm Algorithm
	Skew      uint
}

// DefaultOptions returns SHA1, 30 second, 6 digit options that accept one
// period of clock drift in either direction
func DefaultOptions() Options {
	return Options{
		Period:    DefaultPeriod,
		Digits:    DefaultDigits,
		Algorithm: AlgorithmSHA1,
		Skew:      DefaultSkew,
	}
}

func (o Options) normalize() (Options, error) {
	if o.Period == 0 {
		o.Period = DefaultPeriod
	}
	if o.Digits == 0 {
		o.Digits = DefaultDigits
	}
	if o.Algorithm == "" {
		o.Algorithm = AlgorithmSHA1
	}

	if o.Digits < minDigits || o.Digits > maxDigits {
		return o, fmt.Errorf("%w: digits must be between %d and %d, got %d", ErrInvalidOptions, minDigits, maxDigits, o.Digits)
	}
	if _, err := o.Algorithm.otp(); err != nil {
		return o, err
	}
	if o.Skew > MaxSkew {
		return o, fmt.Errorf("%w: skew must be at most %d, got %d", ErrInvalidOptions, MaxSkew, o.Skew)
	}

	return o, nil
}

func (a Algorithm) otp() (otp.Algorithm, error) {
	switch a {
	case AlgorithmSHA1:
		return otp.AlgorithmSHA1, nil
	case AlgorithmSHA256:
		return otp.AlgorithmSHA256, nil
	case AlgorithmSHA512:
		return otp.AlgorithmSHA512, nil
	default:
		return 0, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidOptions, string(a))
	}
}

// Counter returns the time step counter floor(unix(t) / period)
func Counter(t time.Time, period uint) (uint64, error) {
	if period == 0 {
		period = DefaultPeriod
	}

	unix := t.Unix()
	if unix < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, t.UTC().Format(time.RFC3339))
	}

	return uint64(unix) / uint64(period), nil
}

// Generate returns the 6 digit SHA1 code for the current 30 second window
func Generate(secret string) (string, error) {
	return GenerateCustom(secret, time.Now(), DefaultOptions())
}

// GenerateForTime returns the default code for the window containing t
func GenerateForTime(secret string, t time.Time) (string, error) {
	return GenerateCustom(secret, t, DefaultOptions())
}

// GenerateCustom returns the code for the window containing t. It fails with
// ErrInvalidSecret when the secret has no decodable content; it never
// returns a placeholder code.
func GenerateCustom(secret string, t time.Time, opts Options) (string, error) {
	opts, err := opts.normalize()
	if err != nil {
		return "", err
	}

	counter, err := Counter(t, opts.Period)
	if err != nil {
		return "", err
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	defer secure.SecureZeroBytes(key)

	return generate(key, counter, opts)
}

// GenerateConsecutiveCodes returns the current code and the one for the
// following window, both computed from a single clock reading
func GenerateConsecutiveCodes(secret string) (current string, next string, err error) {
	return GenerateConsecutiveCodesCustom(secret, time.Now(), DefaultOptions())
}

// GenerateConsecutiveCodesCustom returns the codes for the window containing
// t and the window after it
func GenerateConsecutiveCodesCustom(secret string, t time.Time, opts Options) (current string, next string, err error) {
	opts, err = opts.normalize()
	if err != nil {
		return "", "", err
	}

	counter, err := Counter(t, opts.Period)
	if err != nil {
		return "", "", err
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return "", "", err
	}
	defer secure.SecureZeroBytes(key)

	current, err = generate(key, counter, opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate current TOTP: %w", err)
	}

	next, err = generate(key, counter+1, opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate next TOTP: %w", err)
	}

	return current, next, nil
}

// IsValidSecret reports whether a code can be generated from secret right now.
// It is the check to run before accepting a typed or scanned secret.
func IsValidSecret(secret string) bool {
	_, err := Generate(secret)
	return err == nil
}

// NewSecret returns a random Base32 secret without padding
func NewSecret() (string, error) {
	key := make([]byte, SecretSize)
	defer secure.SecureZeroBytes(key)

	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}

	return rawBase32.EncodeToString(key), nil
}

// generate runs the HOTP derivation (HMAC over the big-endian counter,
// dynamic truncation, modulo 10^digits) on already decoded key bytes.
// opts must be normalized.
func generate(key []byte, counter uint64, opts Options) (string, error) {
	algo, err := opts.Algorithm.otp()
	if err != nil {
		return "", err
	}

	// hotp wants text; hand it the canonical padded form so its own
	// decoding cannot disagree with DecodeSecret
	code, err := hotp.GenerateCodeCustom(base32.StdEncoding.EncodeToString(key), counter, hotp.ValidateOpts{
		Digits:    otp.Digits(opts.Digits),
		Algorithm: algo,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP: %w", err)
	}

	return code, nil
}
