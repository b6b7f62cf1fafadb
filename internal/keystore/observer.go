package keystore

import (
	"context"
	"errors"
	"fmt"
)

// CanaryKey is the key name reserved for enrollment change probing
const CanaryKey = "canary"

// Change is the result of an enrollment probe
type Change int

const (
	Unchanged Change = iota
	Changed
)

func (c Change) String() string {
	if c == Changed {
		return "changed"
	}
	return "unchanged"
}

// ChangeObserver detects biometric enrollment changes through a dedicated
// canary key. It never touches the keys that protect real data.
type ChangeObserver struct {
	keys KeyStore
	name string
}

// NewChangeObserver returns an observer probing the canary key in keys
func NewChangeObserver(keys KeyStore) *ChangeObserver {
	return &ChangeObserver{keys: keys, name: CanaryKey}
}

// Probe reports Changed once after the enrollment changed, then
// regenerates the canary so the next probe starts from the new baseline.
// A missing canary is created and reported as Unchanged. The invalidated
// canary is replaced in place, so a failed regeneration leaves it
// invalidated and the change is reported again by the next probe.
func (o *ChangeObserver) Probe(ctx context.Context) (Change, error) {
	err := o.keys.Check(ctx, o.name)
	switch {
	case err == nil:
		return Unchanged, nil

	case errors.Is(err, ErrKeyNotFound):
		if err := o.keys.GenerateKey(ctx, o.name); err != nil {
			return Unchanged, fmt.Errorf("failed to create canary key: %w", err)
		}
		return Unchanged, nil

	case errors.Is(err, ErrKeyInvalidated):
		if err := o.keys.GenerateKey(ctx, o.name); err != nil {
			return Changed, fmt.Errorf("failed to regenerate canary key: %w", err)
		}
		return Changed, nil

	default:
		return Unchanged, err
	}
}
