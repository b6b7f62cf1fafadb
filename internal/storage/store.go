package storage

import (
	"errors"
	"fmt"
	"time"
)

// Supported drivers
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Store is durable key/value persistence for the vault fields.
// Every call is committed on return; the returned error is the only
// success signal. Vault fields live in their own namespace so that Clear
// and IsEmpty never see configuration such as the vault id.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set stores value under key. A nil value removes the key.
	Set(key string, value []byte) error
	// Keys lists the vault field names currently stored.
	Keys() ([]string, error)
	// IsEmpty reports whether no vault field is stored.
	IsEmpty() (bool, error)
	// Clear removes every vault field.
	Clear() error
	// VaultID returns a stable identifier for this store, creating it on first use.
	VaultID() (string, error)
	// Modified returns when a vault field was last written or cleared.
	Modified() (time.Time, error)
	// Path returns the database file path.
	Path() string
	// Compact reclaims space left by removed values.
	Compact() error
	Close() error
}

// Open opens the store at path using the named driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverBolt, "":
		return OpenBolt(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
