package testutil

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomString returns length URL-safe characters read from crypto/rand
func RandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}

	// Every 3 random bytes encode to 4 characters
	buf := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
