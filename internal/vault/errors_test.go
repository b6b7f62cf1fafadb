package vault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("unlock: %w", newError(KindWrongFactor, CodePINWrong, "wrong unlock code", nil))

	assert.ErrorIs(t, err, ErrWrongFactor)
	assert.ErrorIs(t, err, &Error{Kind: KindWrongFactor, Code: CodePINWrong})
	assert.NotErrorIs(t, err, &Error{Kind: KindWrongFactor, Code: CodeBiometricWrong})
	assert.NotErrorIs(t, err, ErrTooManyAttempts)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := storageError(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, "vault storage failed (code 60): disk full", err.Error())
}

func TestKindAndCodeOf(t *testing.T) {
	assert.Equal(t, KindUndefined, KindOf(nil))
	assert.Equal(t, KindUndefined, KindOf(errors.New("plain")))
	assert.Equal(t, CodeUndefined, CodeOf(errors.New("plain")))

	err := newError(KindBusy, CodeBusy, "", nil)
	assert.Equal(t, KindBusy, KindOf(err))
	assert.Equal(t, CodeBusy, CodeOf(err))
	assert.Equal(t, "busy (code 30)", err.Error())
}
