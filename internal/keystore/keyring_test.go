package keystore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type fakeEnrollment struct {
	mu  sync.Mutex
	id  string
	err error
}

func (f *fakeEnrollment) EnrollmentID(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.err
}

func (f *fakeEnrollment) set(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = id
}

func newTestKeyring(t *testing.T) (*Keyring, *fakeEnrollment, *time.Time) {
	t.Helper()
	keyring.MockInit()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	enrollment := &fakeEnrollment{id: "enrolled-a"}
	k := NewKeyring("vault-1", enrollment, WithClock(func() time.Time { return now }))
	return k, enrollment, &now
}

func TestKeyringEncryptDecrypt(t *testing.T) {
	k, _, now := newTestKeyring(t)
	ctx := context.Background()

	require.NoError(t, k.GenerateKey(ctx, "vault"))
	require.NoError(t, k.Check(ctx, "vault"))

	auth := Authorization{AuthenticatedAt: *now}
	ciphertext, iv, err := k.Encrypt(ctx, "vault", auth, []byte("secret payload"))
	require.NoError(t, err)
	assert.NotEmpty(t, ciphertext)
	assert.Len(t, iv, 16)

	plaintext, err := k.Decrypt(ctx, "vault", auth, ciphertext, iv)
	require.NoError(t, err)
	assert.Equal(t, "secret payload", string(plaintext))
}

func TestKeyringMissingKey(t *testing.T) {
	k, _, now := newTestKeyring(t)
	ctx := context.Background()

	assert.ErrorIs(t, k.Check(ctx, "vault"), ErrKeyNotFound)

	_, _, err := k.Encrypt(ctx, "vault", Authorization{AuthenticatedAt: *now}, []byte("x"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting a missing key is a no-op
	assert.NoError(t, k.DeleteKey("vault"))
}

func TestKeyringRequiresFreshAuthorization(t *testing.T) {
	k, _, now := newTestKeyring(t)
	ctx := context.Background()
	require.NoError(t, k.GenerateKey(ctx, "vault"))

	tests := []struct {
		name string
		auth Authorization
	}{
		{"zero", Authorization{}},
		{"expired", Authorization{AuthenticatedAt: now.Add(-DefaultValidity - time.Second)}},
		{"future", Authorization{AuthenticatedAt: now.Add(time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := k.Encrypt(ctx, "vault", tt.auth, []byte("x"))
			assert.ErrorIs(t, err, ErrNotAuthenticated)

			_, err = k.Decrypt(ctx, "vault", tt.auth, make([]byte, 16), make([]byte, 16))
			assert.ErrorIs(t, err, ErrNotAuthenticated)
		})
	}
}

func TestKeyringInvalidatedByEnrollmentChange(t *testing.T) {
	k, enrollment, now := newTestKeyring(t)
	ctx := context.Background()
	auth := Authorization{AuthenticatedAt: *now}

	require.NoError(t, k.GenerateKey(ctx, "vault"))
	ciphertext, iv, err := k.Encrypt(ctx, "vault", auth, []byte("secret"))
	require.NoError(t, err)

	enrollment.set("enrolled-b")

	assert.ErrorIs(t, k.Check(ctx, "vault"), ErrKeyInvalidated)
	_, err = k.Decrypt(ctx, "vault", auth, ciphertext, iv)
	assert.ErrorIs(t, err, ErrKeyInvalidated)

	// Invalidation is permanent, even if the old enrollment comes back
	enrollment.set("enrolled-a")
	assert.ErrorIs(t, k.Check(ctx, "vault"), ErrKeyInvalidated)

	// A regenerated key is bound to the enrollment at generation time
	enrollment.set("enrolled-b")
	require.NoError(t, k.GenerateKey(ctx, "vault"))
	assert.NoError(t, k.Check(ctx, "vault"))
}

func TestKeyringEnrollmentError(t *testing.T) {
	k, enrollment, _ := newTestKeyring(t)
	ctx := context.Background()
	require.NoError(t, k.GenerateKey(ctx, "vault"))

	enrollment.err = errors.New("sensor offline")
	err := k.Check(ctx, "vault")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyInvalidated)
}

func TestKeyringNamespacesAreIsolated(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	enrollment := &fakeEnrollment{id: "enrolled-a"}

	a := NewKeyring("vault-a", enrollment)
	b := NewKeyring("vault-b", enrollment)

	require.NoError(t, a.GenerateKey(ctx, "vault"))
	assert.NoError(t, a.Check(ctx, "vault"))
	assert.ErrorIs(t, b.Check(ctx, "vault"), ErrKeyNotFound)
}

func TestKeyringWrongCiphertext(t *testing.T) {
	k, _, now := newTestKeyring(t)
	ctx := context.Background()
	auth := Authorization{AuthenticatedAt: *now}
	require.NoError(t, k.GenerateKey(ctx, "vault"))

	_, err := k.Decrypt(ctx, "vault", auth, []byte("short"), make([]byte, 16))
	assert.ErrorIs(t, err, ErrDecryptFailed)
}
