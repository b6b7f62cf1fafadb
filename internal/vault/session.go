package vault

import (
	"errors"
	"time"

	"github.com/awnumar/memguard"
)

var errSessionUnavailable = errors.New("session enclave unavailable")

// session holds unlocked material sealed in memguard enclaves
type session struct {
	secret *memguard.Enclave
	pinKey *memguard.Enclave
	// bioAuth is when the last biometric challenge succeeded
	bioAuth time.Time
}

// setSecret seals record into the session. The source slice is wiped.
func (s *session) setSecret(record []byte) {
	s.secret = seal(record)
}

// setPINKey seals key into the session. The source slice is wiped.
func (s *session) setPINKey(key []byte) {
	s.pinKey = seal(key)
}

// setBiometricAuth records a successful biometric challenge
func (s *session) setBiometricAuth(at time.Time) {
	s.bioAuth = at
}

func (s *session) hasBiometricAuth() bool { return !s.bioAuth.IsZero() }

func (s *session) hasSecret() bool { return s.secret != nil }

func (s *session) hasPINKey() bool { return s.pinKey != nil }

// openSecret returns a copy of the packed record; the caller wipes it
func (s *session) openSecret() ([]byte, error) {
	return open(s.secret)
}

// openPINKey returns a copy of the PIN key; the caller wipes it
func (s *session) openPINKey() ([]byte, error) {
	return open(s.pinKey)
}

func (s *session) destroy() {
	s.secret = nil
	s.pinKey = nil
	s.bioAuth = time.Time{}
}

func seal(b []byte) *memguard.Enclave {
	if len(b) == 0 {
		return nil
	}
	return memguard.NewBufferFromBytes(b).Seal()
}

func open(e *memguard.Enclave) ([]byte, error) {
	if e == nil {
		return nil, errSessionUnavailable
	}
	buf, err := e.Open()
	if err != nil {
		return nil, errSessionUnavailable
	}
	defer buf.Destroy()

	out := make([]byte, buf.Size())
	copy(out, buf.Bytes())
	return out, nil
}
