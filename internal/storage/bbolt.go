package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // version, timestamps, vault id - survives Clean
	VaultBucket  = []byte("vault")  // vault fields: tags, ciphertexts, IVs, counters
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")
)

// Bolt provides BBolt-based storage for credvault
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates a credvault database and its bucket structure
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, boltOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Bolt{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the bucket structure on first open
func (s *Bolt) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, VaultBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}

		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// Path returns the database file path
func (s *Bolt) Path() string {
	return s.db.Path()
}

// Close closes the database
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Get retrieves a vault field
func (s *Bolt) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return fmt.Errorf("vault bucket not found")
		}
		data = vault.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// Set stores a vault field, removing it when value is nil
func (s *Bolt) Set(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if value == nil {
			if err := vault.Delete([]byte(key)); err != nil {
				return err
			}
		} else if err := vault.Put([]byte(key), value); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// Keys returns all stored vault field names
func (s *Bolt) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return nil
		}
		return vault.ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// IsEmpty reports whether the vault bucket holds no fields
func (s *Bolt) IsEmpty() (bool, error) {
	empty := true
	err := s.db.View(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return fmt.Errorf("vault bucket not found")
		}
		k, _ := vault.Cursor().First()
		empty = k == nil
		return nil
	})
	return empty, err
}

// Clear removes every vault field in a single transaction
func (s *Bolt) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(VaultBucket); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("failed to delete vault bucket: %w", err)
		}
		if _, err := tx.CreateBucket(VaultBucket); err != nil {
			return fmt.Errorf("failed to create vault bucket: %w", err)
		}
		return touchModified(tx)
	})
}

// Modified retrieves the last modified timestamp
func (s *Bolt) Modified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// VaultID retrieves the vault ID, generating one on first use
func (s *Bolt) VaultID() (string, error) {
	var vaultID string
	err := s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if data := config.Get(ConfigVaultID); data != nil {
			vaultID = string(data)
			return nil
		}
		vaultID = uuid.NewString()
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get vault ID: %w", err)
	}
	return vaultID, nil
}

func touchModified(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// boltOptions are used for every open of a vault database
var boltOptions = &bolt.Options{Timeout: time.Second}

// Compact copies the live pages into a fresh file and swaps it in, so
// pages freed by Clean no longer hold old ciphertext. The store is
// reopened on every path once the source was closed.
func (s *Bolt) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, boltOptions)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	swapErr := replaceFile(tmpPath, srcPath)
	if swapErr != nil {
		os.Remove(tmpPath)
	}

	db, err := bolt.Open(srcPath, 0600, boltOptions)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", errors.Join(swapErr, err))
	}
	s.db = db

	if swapErr != nil {
		return fmt.Errorf("failed to replace database: %w", swapErr)
	}
	return nil
}

// replaceFile moves src over dst, keeping dst when the move fails
func replaceFile(src, dst string) error {
	backup := dst + ".backup"
	if err := os.Rename(dst, backup); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if rerr := os.Rename(backup, dst); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return os.Remove(backup)
}
