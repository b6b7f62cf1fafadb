package vault

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/credvault/internal/storage"
)

func newTestLockout(t *testing.T, max int) (*Lockout, storage.Store) {
	t.Helper()
	store, err := storage.OpenBolt(filepath.Join(t.TempDir(), "lockout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewLockout(store, max), store
}

func TestLockoutDefaults(t *testing.T) {
	l, _ := newTestLockout(t, 0)
	assert.Equal(t, DefaultMaxAttempts, l.Max())

	n, err := l.Attempts(FactorPIN)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLockoutRecordFailure(t *testing.T) {
	l, store := newTestLockout(t, 3)

	d, err := l.RecordFailure(FactorPIN)
	require.NoError(t, err)
	assert.Equal(t, Decision{Attempts: 1, Remaining: 2}, d)

	d, err = l.RecordFailure(FactorPIN)
	require.NoError(t, err)
	assert.Equal(t, Decision{Attempts: 2, Remaining: 1}, d)

	d, err = l.RecordFailure(FactorPIN)
	require.NoError(t, err)
	assert.Equal(t, Decision{Attempts: 3, Remaining: 0, LockedOut: true}, d)

	// Stored as a decimal string
	raw, err := store.Get(FieldPINAttempts)
	require.NoError(t, err)
	assert.Equal(t, "3", string(raw))

	exhausted, err := l.Exhausted(FactorPIN)
	require.NoError(t, err)
	assert.True(t, exhausted)

	exhausted, err = l.Exhausted(FactorBiometric)
	require.NoError(t, err)
	assert.False(t, exhausted)
}

func TestLockoutSuccessResetsBothFactors(t *testing.T) {
	l, store := newTestLockout(t, 3)

	_, err := l.RecordFailure(FactorPIN)
	require.NoError(t, err)
	_, err = l.RecordFailure(FactorBiometric)
	require.NoError(t, err)

	require.NoError(t, l.RecordSuccess())

	for _, f := range []Factor{FactorPIN, FactorBiometric} {
		n, err := l.Attempts(f)
		require.NoError(t, err)
		assert.Equal(t, 0, n, f.String())
	}

	_, err = store.Get(FieldFingerprintAttempts)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLockoutCorruptCounter(t *testing.T) {
	l, store := newTestLockout(t, 3)
	require.NoError(t, store.Set(FieldPINAttempts, []byte("three")))

	_, err := l.Attempts(FactorPIN)
	assert.Error(t, err)

	_, err = l.RecordFailure(FactorPIN)
	assert.Error(t, err)
}
