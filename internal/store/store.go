// Package store provides the SQLite/libSQL-backed traffic tables.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // register libsql driver
	_ "modernc.org/sqlite"                               // register sqlite driver
)

// StorageError wraps a failed read or write against the traffic tables.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store executes parameterized statements against the traffic database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn. libsql://, wss:// and https:// URLs go through the
// libSQL driver; anything else is treated as a local SQLite path or file: URI.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("opening db: empty database url")
	}

	driver := DriverFor(dsn)
	if driver == "sqlite" {
		if dir := localDir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("creating db dir: %w", err)
			}
		}
		dsn = withPragmas(dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	if driver == "sqlite" && isMemory(dsn) {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to db: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// DriverFor reports which registered database/sql driver serves dsn.
func DriverFor(dsn string) string {
	for _, prefix := range []string{"libsql://", "wss://", "ws://", "https://", "http://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "libsql"
		}
	}
	return "sqlite"
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// InitSchema creates the traffic tables and indexes if they don't exist.
// onStep, if non-nil, is called after each statement succeeds.
func (s *Store) InitSchema(ctx context.Context, onStep func(name string)) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt.sql); err != nil {
			return &StorageError{Op: "creating " + stmt.name, Err: err}
		}
		if onStep != nil {
			onStep(stmt.name)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func localDir(dsn string) string {
	if isMemory(dsn) {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	pragmas := "_pragma=busy_timeout(5000)"
	if !isMemory(dsn) {
		pragmas = "_pragma=journal_mode(wal)&_pragma=synchronous(normal)&" + pragmas
	}
	return dsn + sep + pragmas
}
