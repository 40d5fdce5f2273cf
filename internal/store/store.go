package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/logging"
)

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

// DefaultFile is the database file name inside the config directory.
const DefaultFile = "tramesniff.db"

var (
	// ErrNotConnected is returned by every operation on a closed store.
	ErrNotConnected = errors.New("store is not connected")
	// ErrNotFound is returned when a row addressed by id or key is missing.
	ErrNotFound = errors.New("not found")
)

// Store wraps the SQLite handle.
type Store struct {
	sql  *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for database: %w", err)
	}

	db, err := sql.Open("sqlite3", path+sqliteConnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{sql: db, path: path}
	if err := s.MigrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Debug("Store opened", zap.String("path", path))
	return s, nil
}

// Path returns the database file path, empty for injected handles.
func (s *Store) Path() string {
	return s.path
}

// MigrateUp applies pending schema migrations.
func (s *Store) MigrateUp() error {
	if s.sql == nil {
		return ErrNotConnected
	}
	if err := MigrateUp(s.sql, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	return nil
}

// Close releases the database handle. Further calls return ErrNotConnected.
func (s *Store) Close() error {
	if s.sql == nil {
		return nil
	}
	err := s.sql.Close()
	s.sql = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting injects a database handle. When migrate is true the
// schema is applied to it.
func (s *Store) SetSQLForTesting(db *sql.DB, migrate bool) error {
	s.sql = db
	if !migrate {
		return nil
	}
	return s.MigrateUp()
}

func (s *Store) db() (*sql.DB, error) {
	if s == nil || s.sql == nil {
		return nil, ErrNotConnected
	}
	return s.sql, nil
}

// execOne runs a prepared statement that must touch exactly one row.
func execOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// insert runs a prepared insert and returns the new row id.
func insert(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}
	return id, nil
}
