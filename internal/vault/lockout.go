package vault

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/illarion/credvault/internal/storage"
)

// DefaultMaxAttempts is the number of consecutive failures allowed per factor
const DefaultMaxAttempts = 3

// Decision is the outcome of recording a failed attempt
type Decision struct {
	Attempts  int
	Remaining int
	LockedOut bool
}

// Lockout keeps persisted per-factor failure counters. A successful
// unlock through either factor resets both.
type Lockout struct {
	store storage.Store
	max   int
}

// NewLockout returns a Lockout over store; max < 1 selects DefaultMaxAttempts
func NewLockout(store storage.Store, max int) *Lockout {
	if max < 1 {
		max = DefaultMaxAttempts
	}
	return &Lockout{store: store, max: max}
}

// Max returns the attempt limit
func (l *Lockout) Max() int {
	return l.max
}

// Attempts returns the persisted failure count for f; absent means 0
func (l *Lockout) Attempts(f Factor) (int, error) {
	data, err := l.store.Get(f.fields().attempts)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(data))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("corrupt %s counter %q", f, data)
	}
	return n, nil
}

// Exhausted reports whether f has reached the attempt limit
func (l *Lockout) Exhausted(f Factor) (bool, error) {
	n, err := l.Attempts(f)
	if err != nil {
		return false, err
	}
	return n >= l.max, nil
}

// RecordFailure increments the counter for f
func (l *Lockout) RecordFailure(f Factor) (Decision, error) {
	n, err := l.Attempts(f)
	if err != nil {
		return Decision{}, err
	}
	n++
	if err := l.store.Set(f.fields().attempts, []byte(strconv.Itoa(n))); err != nil {
		return Decision{}, err
	}

	d := Decision{Attempts: n, Remaining: l.max - n, LockedOut: n >= l.max}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

// RecordSuccess resets both counters
func (l *Lockout) RecordSuccess() error {
	for _, f := range []Factor{FactorPIN, FactorBiometric} {
		if err := l.store.Set(f.fields().attempts, nil); err != nil {
			return err
		}
	}
	return nil
}
