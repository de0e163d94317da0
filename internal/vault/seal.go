package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/otpdeck/otpdeck/internal/secure"
)

// Sealed secret format:
// [0]      version (currently 1)
// [1..24]  24-byte XChaCha20 nonce
// [25..]   ciphertext + Poly1305 tag
const sealVersion byte = 1

const saltSize = 16

type kdfParams struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
}

// Argon2id parameters, RFC 9106 second recommendation
var kdf = kdfParams{time: 3, memory: 64 * 1024, threads: 4}

var (
	errSealedTooShort     = errors.New("vault: sealed secret too short")
	errUnsupportedVersion = errors.New("vault: unsupported sealed secret version")
	errOpenFailed         = errors.New("vault: cannot open sealed secret")
)

type sealer struct {
	key  []byte
	aead cipher.AEAD
}

func newSealer(passphrase, salt []byte) (*sealer, error) {
	if len(passphrase) == 0 {
		return nil, ErrNoPassphrase
	}
	if len(salt) != saltSize {
		return nil, fmt.Errorf("vault: invalid salt length %d (want %d)", len(salt), saltSize)
	}

	key := argon2.IDKey(passphrase, salt, kdf.time, kdf.memory, kdf.threads, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		secure.SecureZeroBytes(key)
		return nil, fmt.Errorf("vault: cipher init failed: %w", err)
	}

	return &sealer{key: key, aead: aead}, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("vault: salt generation failed: %w", err)
	}
	return salt, nil
}

// seal encrypts plaintext, binding it to aad (the entry ID) so a sealed
// secret cannot be moved to another row
func (s *sealer) seal(plaintext []byte, aad string) ([]byte, error) {
	nonceSize := s.aead.NonceSize()

	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+s.aead.Overhead())
	out[0] = sealVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("vault: nonce generation failed: %w", err)
	}

	return s.aead.Seal(out, out[1:], plaintext, []byte(aad)), nil
}

func (s *sealer) open(sealed []byte, aad string) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < 1+nonceSize+s.aead.Overhead() {
		return nil, errSealedTooShort
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("%w: %d", errUnsupportedVersion, sealed[0])
	}

	plain, err := s.aead.Open(nil, sealed[1:1+nonceSize], sealed[1+nonceSize:], []byte(aad))
	if err != nil {
		// Do not distinguish wrong key from tampering
		return nil, errOpenFailed
	}
	return plain, nil
}

func (s *sealer) wipe() {
	secure.SecureZeroBytes(s.key)
}
