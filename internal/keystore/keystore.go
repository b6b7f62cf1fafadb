package keystore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrKeyInvalidated   = errors.New("key permanently invalidated")
	ErrNotAuthenticated = errors.New("key use not authorized by a recent authentication")
	ErrEncryptFailed    = errors.New("key store encrypt failed")
	ErrDecryptFailed    = errors.New("key store decrypt failed")
)

// Authorization proves a fresh user authentication to the key store.
// Keys refuse to operate when AuthenticatedAt is zero or outside the
// store's validity window.
type Authorization struct {
	AuthenticatedAt time.Time
}

// KeyStore manages named symmetric keys that are only usable after user
// authentication and that become permanently invalid when the enrolled
// biometric set changes.
type KeyStore interface {
	// GenerateKey creates or replaces the key, bound to the current enrollment.
	GenerateKey(ctx context.Context, name string) error
	// DeleteKey removes the key. Deleting a missing key is not an error.
	DeleteKey(name string) error
	// Check returns nil for a usable key, ErrKeyNotFound or ErrKeyInvalidated.
	Check(ctx context.Context, name string) error
	Encrypt(ctx context.Context, name string, auth Authorization, plaintext []byte) (ciphertext, iv []byte, err error)
	Decrypt(ctx context.Context, name string, auth Authorization, ciphertext, iv []byte) ([]byte, error)
}

// EnrollmentSource reports an identifier of the currently enrolled
// biometric set. Any change in enrollment must change the identifier.
type EnrollmentSource interface {
	EnrollmentID(ctx context.Context) (string, error)
}
