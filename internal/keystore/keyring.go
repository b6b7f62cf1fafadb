package keystore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/hkdf"

	"github.com/illarion/credvault/internal/crypto"
)

const (
	DefaultService  = "credvault"
	DefaultValidity = 30 * time.Second

	recordVersion = 1
	bindingInfo   = "credvault enrollment binding v1"
)

// keyRecord is what lands in the OS keyring, CBOR encoded and base64 wrapped
type keyRecord struct {
	Version int    `cbor:"1,keyasint"`
	Key     []byte `cbor:"2,keyasint"`
	Binding []byte `cbor:"3,keyasint"`
	Created int64  `cbor:"4,keyasint"`
	// Invalidated records keep no key material
	Invalidated bool `cbor:"5,keyasint,omitempty"`
}

// Keyring keeps keys in the OS keyring (Secret Service, macOS Keychain,
// Windows Credential Manager). Each key is bound to the enrollment id
// reported by its EnrollmentSource; a key whose binding no longer matches
// is reported as invalidated and never used again.
type Keyring struct {
	service    string
	namespace  string
	enrollment EnrollmentSource
	validity   time.Duration
	now        func() time.Time
}

// Option configures a Keyring
type Option func(*Keyring)

// WithService overrides the keyring service name
func WithService(service string) Option {
	return func(k *Keyring) { k.service = service }
}

// WithValidity sets how long an authorization stays usable
func WithValidity(d time.Duration) Option {
	return func(k *Keyring) { k.validity = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(k *Keyring) { k.now = now }
}

// NewKeyring returns a key store whose entries are scoped to namespace,
// normally the vault id.
func NewKeyring(namespace string, enrollment EnrollmentSource, opts ...Option) *Keyring {
	k := &Keyring{
		service:    DefaultService,
		namespace:  namespace,
		enrollment: enrollment,
		validity:   DefaultValidity,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Keyring) account(name string) string {
	return k.namespace + "/" + name
}

// GenerateKey creates a fresh random key bound to the current enrollment
func (k *Keyring) GenerateKey(ctx context.Context, name string) error {
	enrollmentID, err := k.enrollment.EnrollmentID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read enrollment: %w", err)
	}

	key, err := crypto.GenerateRandom(crypto.KeySize)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(key)

	binding, err := bind(key, enrollmentID)
	if err != nil {
		return err
	}

	data, err := cbor.Marshal(keyRecord{
		Version: recordVersion,
		Key:     key,
		Binding: binding,
		Created: k.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode key record: %w", err)
	}

	if err := keyring.Set(k.service, k.account(name), base64.StdEncoding.EncodeToString(data)); err != nil {
		return fmt.Errorf("failed to store key %s: %w", name, err)
	}
	return nil
}

// DeleteKey removes the key from the keyring
func (k *Keyring) DeleteKey(name string) error {
	err := keyring.Delete(k.service, k.account(name))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", name, err)
	}
	return nil
}

// Check verifies the key exists and is still bound to the current enrollment
func (k *Keyring) Check(ctx context.Context, name string) error {
	rec, err := k.load(ctx, name)
	if rec != nil {
		crypto.ClearBytes(rec.Key)
	}
	return err
}

// Encrypt seals plaintext under the named key
func (k *Keyring) Encrypt(ctx context.Context, name string, auth Authorization, plaintext []byte) ([]byte, []byte, error) {
	if err := k.authorize(auth); err != nil {
		return nil, nil, err
	}

	rec, err := k.load(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.ClearBytes(rec.Key)

	ciphertext, iv, err := crypto.SealCBC(rec.Key, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEncryptFailed, err)
	}
	return ciphertext, iv, nil
}

// Decrypt opens ciphertext sealed by Encrypt under the named key
func (k *Keyring) Decrypt(ctx context.Context, name string, auth Authorization, ciphertext, iv []byte) ([]byte, error) {
	if err := k.authorize(auth); err != nil {
		return nil, err
	}

	rec, err := k.load(ctx, name)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(rec.Key)

	plaintext, err := crypto.OpenCBC(rec.Key, ciphertext, iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

func (k *Keyring) authorize(auth Authorization) error {
	if auth.AuthenticatedAt.IsZero() {
		return ErrNotAuthenticated
	}
	age := k.now().Sub(auth.AuthenticatedAt)
	if age < 0 || age > k.validity {
		return ErrNotAuthenticated
	}
	return nil
}

// load reads the record and verifies its enrollment binding
func (k *Keyring) load(ctx context.Context, name string) (*keyRecord, error) {
	encoded, err := keyring.Get(k.service, k.account(name))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", name, err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt key record", ErrKeyInvalidated)
	}
	var rec keyRecord
	if err := cbor.Unmarshal(data, &rec); err != nil || rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: corrupt key record", ErrKeyInvalidated)
	}
	if rec.Invalidated {
		return nil, ErrKeyInvalidated
	}
	if len(rec.Key) != crypto.KeySize {
		return nil, fmt.Errorf("%w: corrupt key record", ErrKeyInvalidated)
	}

	enrollmentID, err := k.enrollment.EnrollmentID(ctx)
	if err != nil {
		crypto.ClearBytes(rec.Key)
		return nil, fmt.Errorf("failed to read enrollment: %w", err)
	}

	expected, err := bind(rec.Key, enrollmentID)
	if err != nil {
		crypto.ClearBytes(rec.Key)
		return nil, err
	}
	if !hmac.Equal(expected, rec.Binding) {
		crypto.ClearBytes(rec.Key)
		if err := k.invalidate(name, rec.Created); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyInvalidated, err)
		}
		return nil, ErrKeyInvalidated
	}

	return &rec, nil
}

// invalidate replaces the record with a tombstone so the key stays
// unusable even if the old enrollment is restored
func (k *Keyring) invalidate(name string, created int64) error {
	data, err := cbor.Marshal(keyRecord{
		Version:     recordVersion,
		Created:     created,
		Invalidated: true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode key record: %w", err)
	}
	if err := keyring.Set(k.service, k.account(name), base64.StdEncoding.EncodeToString(data)); err != nil {
		return fmt.Errorf("failed to invalidate key %s: %w", name, err)
	}
	return nil
}

// bind derives the enrollment binding of a key
func bind(key []byte, enrollmentID string) ([]byte, error) {
	out := make([]byte, 32)
	r := hkdf.New(sha256.New, key, []byte(enrollmentID), []byte(bindingInfo))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("failed to derive binding: %w", err)
	}
	return out, nil
}
