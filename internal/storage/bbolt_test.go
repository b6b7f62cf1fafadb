package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// openStores returns one store per driver, each in its own temp dir
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	stores := make(map[string]Store)
	for _, driver := range []string{DriverBolt, DriverSQLite} {
		path := filepath.Join(t.TempDir(), "test.credvault")
		s, err := Open(driver, path)
		if err != nil {
			t.Fatalf("Failed to open %s store: %v", driver, err)
		}
		t.Cleanup(func() { s.Close() })
		stores[driver] = s
	}
	return stores
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("leveldb", filepath.Join(t.TempDir(), "x"))
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Expected ErrUnknownDriver, got %v", err)
	}
}

func TestNewStoreIsEmpty(t *testing.T) {
	for driver, s := range openStores(t) {
		t.Run(driver, func(t *testing.T) {
			empty, err := s.IsEmpty()
			if err != nil {
				t.Fatalf("Failed to check emptiness: %v", err)
			}
			if !empty {
				t.Error("New store should be empty")
			}

			if _, err := s.Get("check_hash"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSetGetRemove(t *testing.T) {
	for driver, s := range openStores(t) {
		t.Run(driver, func(t *testing.T) {
			value := []byte{0x00, 0x01, 0xfe, 0xff}
			if err := s.Set("login_pass", value); err != nil {
				t.Fatalf("Failed to set: %v", err)
			}

			got, err := s.Get("login_pass")
			if err != nil {
				t.Fatalf("Failed to get: %v", err)
			}
			if !bytes.Equal(got, value) {
				t.Errorf("Value mismatch: got %v, want %v", got, value)
			}

			// Overwrite
			if err := s.Set("login_pass", []byte("v2")); err != nil {
				t.Fatalf("Failed to overwrite: %v", err)
			}
			got, _ = s.Get("login_pass")
			if string(got) != "v2" {
				t.Errorf("Overwrite not applied: got %q", got)
			}

			// Nil removes
			if err := s.Set("login_pass", nil); err != nil {
				t.Fatalf("Failed to remove: %v", err)
			}
			if _, err := s.Get("login_pass"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound after removal, got %v", err)
			}

			// Removing a missing key is not an error
			if err := s.Set("never_set", nil); err != nil {
				t.Errorf("Removing missing key failed: %v", err)
			}
		})
	}
}

func TestKeysAndClear(t *testing.T) {
	for driver, s := range openStores(t) {
		t.Run(driver, func(t *testing.T) {
			want := []string{"check_hash", "login_pass", "pincode_cipherIV"}
			for _, k := range want {
				if err := s.Set(k, []byte(k)); err != nil {
					t.Fatalf("Failed to set %s: %v", k, err)
				}
			}

			keys, err := s.Keys()
			if err != nil {
				t.Fatalf("Failed to list keys: %v", err)
			}
			sort.Strings(keys)
			if len(keys) != len(want) {
				t.Fatalf("Expected %d keys, got %v", len(want), keys)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("Key %d: got %s, want %s", i, keys[i], want[i])
				}
			}

			if err := s.Clear(); err != nil {
				t.Fatalf("Failed to clear: %v", err)
			}
			empty, err := s.IsEmpty()
			if err != nil {
				t.Fatalf("Failed to check emptiness: %v", err)
			}
			if !empty {
				t.Error("Store should be empty after Clear")
			}
			keys, _ = s.Keys()
			if len(keys) != 0 {
				t.Errorf("Expected no keys after Clear, got %v", keys)
			}
		})
	}
}

func TestVaultIDSurvivesClear(t *testing.T) {
	for driver, s := range openStores(t) {
		t.Run(driver, func(t *testing.T) {
			id1, err := s.VaultID()
			if err != nil {
				t.Fatalf("Failed to get vault ID: %v", err)
			}
			if id1 == "" {
				t.Fatal("Vault ID should not be empty")
			}

			if err := s.Set("check_hash", []byte("tag")); err != nil {
				t.Fatalf("Failed to set: %v", err)
			}
			if err := s.Clear(); err != nil {
				t.Fatalf("Failed to clear: %v", err)
			}

			id2, err := s.VaultID()
			if err != nil {
				t.Fatalf("Failed to get vault ID: %v", err)
			}
			if id1 != id2 {
				t.Errorf("Vault ID changed: %s -> %s", id1, id2)
			}

			// Config entries are not vault fields
			empty, _ := s.IsEmpty()
			if !empty {
				t.Error("Vault ID should not count as a vault field")
			}
		})
	}
}

func TestCompact(t *testing.T) {
	for driver, s := range openStores(t) {
		t.Run(driver, func(t *testing.T) {
			if err := s.Set("login_pass", bytes.Repeat([]byte("x"), 4096)); err != nil {
				t.Fatalf("Failed to set: %v", err)
			}
			if err := s.Set("check_hash", []byte("tag")); err != nil {
				t.Fatalf("Failed to set: %v", err)
			}
			if err := s.Set("login_pass", nil); err != nil {
				t.Fatalf("Failed to remove: %v", err)
			}

			id, _ := s.VaultID()
			if err := s.Compact(); err != nil {
				t.Fatalf("Failed to compact: %v", err)
			}

			got, err := s.Get("check_hash")
			if err != nil {
				t.Fatalf("Failed to get after compact: %v", err)
			}
			if string(got) != "tag" {
				t.Errorf("Value lost in compact: got %q", got)
			}
			if after, _ := s.VaultID(); after != id {
				t.Errorf("Vault ID changed in compact: %s -> %s", id, after)
			}
		})
	}
}

func TestPersistence(t *testing.T) {
	for _, driver := range []string{DriverBolt, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.credvault")

			s, err := Open(driver, path)
			if err != nil {
				t.Fatalf("Failed to open: %v", err)
			}
			if err := s.Set("fingerprint_attempts", []byte("2")); err != nil {
				t.Fatalf("Failed to set: %v", err)
			}
			id, _ := s.VaultID()
			if err := s.Close(); err != nil {
				t.Fatalf("Failed to close: %v", err)
			}

			s, err = Open(driver, path)
			if err != nil {
				t.Fatalf("Failed to reopen: %v", err)
			}
			defer s.Close()

			got, err := s.Get("fingerprint_attempts")
			if err != nil {
				t.Fatalf("Failed to get after reopen: %v", err)
			}
			if string(got) != "2" {
				t.Errorf("Value mismatch after reopen: got %q", got)
			}
			if after, _ := s.VaultID(); after != id {
				t.Errorf("Vault ID not persisted: %s -> %s", id, after)
			}
		})
	}
}

func TestModifiedAndPath(t *testing.T) {
	for _, driver := range []string{DriverBolt, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.credvault")
			s, err := Open(driver, path)
			if err != nil {
				t.Fatalf("Failed to open: %v", err)
			}
			defer s.Close()

			if s.Path() != path {
				t.Errorf("Path = %q, want %q", s.Path(), path)
			}

			created, err := s.Modified()
			if err != nil {
				t.Fatalf("Failed to read modified time: %v", err)
			}

			time.Sleep(10 * time.Millisecond)
			if err := s.Set("check_hash", []byte("tag")); err != nil {
				t.Fatalf("Failed to set: %v", err)
			}
			written, err := s.Modified()
			if err != nil {
				t.Fatalf("Failed to read modified time: %v", err)
			}
			if !written.After(created) {
				t.Errorf("Set did not advance modified time: %v -> %v", created, written)
			}

			time.Sleep(10 * time.Millisecond)
			if err := s.Clear(); err != nil {
				t.Fatalf("Failed to clear: %v", err)
			}
			cleared, err := s.Modified()
			if err != nil {
				t.Fatalf("Failed to read modified time: %v", err)
			}
			if !cleared.After(written) {
				t.Errorf("Clear did not advance modified time: %v -> %v", written, cleared)
			}
		})
	}
}

func TestCompactReopensAfterFailedSwap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.credvault")
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	defer s.Close()

	if err := s.Set("check_hash", []byte("tag")); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}

	// A non-empty directory at the backup path makes the swap fail
	backup := path + ".backup"
	if err := os.MkdirAll(filepath.Join(backup, "blocker"), 0700); err != nil {
		t.Fatalf("Failed to create blocker: %v", err)
	}

	if err := s.Compact(); err == nil {
		t.Fatal("Expected compact to fail")
	}

	got, err := s.Get("check_hash")
	if err != nil {
		t.Fatalf("Store unusable after failed compact: %v", err)
	}
	if string(got) != "tag" {
		t.Errorf("Value lost in failed compact: got %q", got)
	}
	if err := s.Set("pincode_attempts", []byte("1")); err != nil {
		t.Errorf("Store not writable after failed compact: %v", err)
	}
	if _, err := os.Stat(path + ".compact"); !os.IsNotExist(err) {
		t.Errorf("Temporary compact file left behind: %v", err)
	}
}
