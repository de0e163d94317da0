package totp

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/otpdeck/otpdeck/internal/secure"
)

// ErrNoMatch is returned by Match when no window in range produces the code
var ErrNoMatch = errors.New("totp: code does not match")

// Verify checks a submitted code with the default options, accepting the
// previous, current and next 30 second windows
func Verify(code, secret string, t time.Time) bool {
	return VerifyCustom(code, secret, t, DefaultOptions())
}

// VerifyCustom checks a submitted code against every window within
// opts.Skew periods of t. An invalid secret never verifies.
func VerifyCustom(code, secret string, t time.Time, opts Options) bool {
	_, err := Match(code, secret, t, opts)
	return err == nil
}

// Match returns the window offset, in periods relative to t, whose code
// equals the submitted one. The current window is tried first, then
// -1, +1, -2, +2 and so on. Windows before the Unix epoch are skipped.
func Match(code, secret string, t time.Time, opts Options) (int64, error) {
	opts, err := opts.normalize()
	if err != nil {
		return 0, err
	}

	if len(code) != opts.Digits {
		return 0, ErrNoMatch
	}

	counter, err := Counter(t, opts.Period)
	if err != nil {
		return 0, err
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return 0, err
	}
	defer secure.SecureZeroBytes(key)

	for _, offset := range offsets(opts.Skew) {
		if offset < 0 && uint64(-offset) > counter {
			continue
		}

		candidate, err := generate(key, uint64(int64(counter)+offset), opts)
		if err != nil {
			return 0, err
		}

		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 {
			return offset, nil
		}
	}

	return 0, ErrNoMatch
}

func offsets(skew uint) []int64 {
	out := make([]int64, 0, 2*skew+1)
	out = append(out, 0)
	for i := int64(1); i <= int64(skew); i++ {
		out = append(out, -i, i)
	}
	return out
}
