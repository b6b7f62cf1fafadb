package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Namespaces in the entries table
const (
	nsConfig = "config"
	nsVault  = "vault"
)

// SQLite stores vault fields in a single SQLite file.
// Config entries (version, vault id) share the table under their own
// namespace so that Clear only touches vault fields.
type SQLite struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSQLite opens or creates a SQLite-backed store at path
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	// One writer; keeps pragmas applied to the only connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA secure_delete=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	s := &SQLite{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	now := time.Now()
	created, _ := now.MarshalBinary()
	for key, value := range map[string][]byte{
		string(ConfigVersion):  []byte("1"),
		string(ConfigCreated):  created,
		string(ConfigModified): created,
	} {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)`,
			nsConfig, key, value, now.Unix(),
		); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func touchModifiedSQL(db execer) error {
	now := time.Now()
	modified, _ := now.MarshalBinary()
	_, err := db.Exec(
		`INSERT INTO entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		nsConfig, string(ConfigModified), modified, now.Unix(),
	)
	return err
}

// Modified retrieves the last modified timestamp
func (s *SQLite) Modified() (time.Time, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT value FROM entries WHERE namespace = ? AND key = ?`, nsConfig, string(ConfigModified),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("modified time not found")
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read modified time: %w", err)
	}
	var modified time.Time
	if err := modified.UnmarshalBinary(data); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode modified time: %w", err)
	}
	return modified, nil
}

// Path returns the database file path
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get retrieves a vault field
func (s *SQLite) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(
		`SELECT value FROM entries WHERE namespace = ? AND key = ?`, nsVault, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set stores a vault field, removing it when value is nil
func (s *SQLite) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	defer tx.Rollback()

	if value == nil {
		_, err = tx.Exec(`DELETE FROM entries WHERE namespace = ? AND key = ?`, nsVault, key)
	} else {
		_, err = tx.Exec(
			`INSERT INTO entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			nsVault, key, value, time.Now().Unix(),
		)
	}
	if err == nil {
		err = touchModifiedSQL(tx)
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Keys returns all stored vault field names
func (s *SQLite) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM entries WHERE namespace = ? ORDER BY key`, nsVault)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// IsEmpty reports whether no vault field is stored
func (s *SQLite) IsEmpty() (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE namespace = ?`, nsVault).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}
	return n == 0, nil
}

// Clear removes every vault field
func (s *SQLite) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to clear vault: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries WHERE namespace = ?`, nsVault); err != nil {
		return fmt.Errorf("failed to clear vault: %w", err)
	}
	if err := touchModifiedSQL(tx); err != nil {
		return fmt.Errorf("failed to clear vault: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to clear vault: %w", err)
	}
	return nil
}

// VaultID retrieves the vault ID, generating one on first use
func (s *SQLite) VaultID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to get vault ID: %w", err)
	}
	defer tx.Rollback()

	var value []byte
	err = tx.QueryRow(
		`SELECT value FROM entries WHERE namespace = ? AND key = ?`, nsConfig, string(ConfigVaultID),
	).Scan(&value)
	if err == nil {
		return string(value), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to get vault ID: %w", err)
	}

	vaultID := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)`,
		nsConfig, string(ConfigVaultID), []byte(vaultID), time.Now().Unix(),
	); err != nil {
		return "", fmt.Errorf("failed to store vault ID: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to store vault ID: %w", err)
	}
	return vaultID, nil
}

// Compact rebuilds the database file, dropping freed pages
func (s *SQLite) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
